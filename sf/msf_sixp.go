// Copyright (c) 2025, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package sf

import (
	"github.com/pkg/errors"

	"github.com/openthread/tsch-ns/logger"
	"github.com/openthread/tsch-ns/prng"
	"github.com/openthread/tsch-ns/schedule"
	"github.com/openthread/tsch-ns/sixp"
	. "github.com/openthread/tsch-ns/types"
)

// initiatedTxn is the state of a transaction this node started, kept until its outcome.
type initiatedTxn struct {
	peer     NodeId
	command  sixp.Command
	options  schedule.CellOptions
	numCells int
	// remaining is the number of cells an ADD still wants after this round.
	remaining int
	// candidates are locked by this node until the outcome.
	candidates []schedule.CellRef
	// relocation holds the cells a RELOCATE moves in this round, rest those left for later rounds.
	relocation []schedule.CellRef
	rest       []schedule.CellRef
	// guard is the cell a CLEAR keeps.
	guard *schedule.CellRef
}

// respondingTxn is the change a response commits once the response is acknowledged.
type respondingTxn struct {
	peer       NodeId
	command    sixp.Command
	options    schedule.CellOptions // options of the cells on this node
	granted    []schedule.CellRef
	relocation []schedule.CellRef
	locked     []schedule.CellRef
}

func (m *MSF) lock(cells []schedule.CellRef) {
	for _, c := range cells {
		m.locked.Lock(c.SlotOffset)
	}
}

func (m *MSF) unlock(cells []schedule.CellRef) {
	for _, c := range cells {
		m.locked.Unlock(c.SlotOffset)
	}
}

func (m *MSF) send(txn *initiatedTxn, req *sixp.Request) {
	req.Src, req.Dst, req.Command = m.id(), txn.peer, txn.command
	id := m.transport.SendRequest(req)
	m.initiated[id] = txn
}

// createAvailableCellList proposes n cells on slots that are neither used nor locked, with random
// channels, and locks them.
func (m *MSF) createAvailableCellList(n int) ([]schedule.CellRef, error) {
	available := schedule.AvailableSlots(m.table().SlotframeLength(),
		[]*schedule.Table{m.table()}, []*schedule.LockedSlots{m.locked})
	if len(available) <= n {
		return nil, errors.Wrapf(schedule.ErrNoCandidateCells, "node %d: %d free slots", m.id(), len(available))
	}
	cells := make([]schedule.CellRef, 0, n)
	for _, slot := range prng.Sample(m.rand, available, n) {
		cells = append(cells, schedule.CellRef{
			SlotOffset:    slot,
			ChannelOffset: m.rand.Intn(m.mac.Config().NumChannels),
		})
	}
	m.lock(cells)
	return cells, nil
}

// createOccupiedCellList picks up to n of the cells to neighbor with exactly the given options.
func (m *MSF) createOccupiedCellList(neighbor NodeId, options schedule.CellOptions, n int) []schedule.CellRef {
	var cells []schedule.CellRef
	for _, c := range m.table().CellsMatching(neighbor, options) {
		cells = append(cells, c.Ref())
	}
	return prng.Sample(m.rand, cells, n)
}

// areCellsAllocated reports whether every cell of the list is scheduled to peer with the given options.
func (m *MSF) areCellsAllocated(peer NodeId, cells []schedule.CellRef, options schedule.CellOptions) bool {
	for _, ref := range cells {
		c := m.table().Get(ref.SlotOffset)
		if c == nil || c.Neighbor != peer || c.Options != options || c.ChannelOffset != ref.ChannelOffset {
			return false
		}
	}
	return true
}

// freeCells keeps the cells whose slot is inside the slotframe, unused and unlocked.
func (m *MSF) freeCells(cells []schedule.CellRef) []schedule.CellRef {
	var res []schedule.CellRef
	for _, c := range cells {
		if c.SlotOffset < 0 || c.SlotOffset >= m.table().SlotframeLength() {
			continue
		}
		if !m.table().IsOccupied(c.SlotOffset) && !m.locked.Contains(c.SlotOffset) {
			res = append(res, c)
		}
	}
	return res
}

func (m *MSF) addCells(neighbor NodeId, cells []schedule.CellRef, options schedule.CellOptions) {
	for _, c := range cells {
		m.mac.AddCell(c.SlotOffset, c.ChannelOffset, neighbor, options)
	}
}

func (m *MSF) deleteCells(neighbor NodeId, cells []schedule.CellRef, options schedule.CellOptions) {
	for _, c := range cells {
		m.mac.DeleteCell(c.SlotOffset, c.ChannelOffset, neighbor, options)
	}
}

func (m *MSF) relocateCells(neighbor NodeId, from, to []schedule.CellRef, options schedule.CellOptions) {
	logger.AssertEqual(len(from), len(to))
	m.addCells(neighbor, to, options)
	m.deleteCells(neighbor, from, options)
}

// clearCells deletes every cell to neighbor except guard.
func (m *MSF) clearCells(neighbor NodeId, guard *schedule.CellRef) {
	for _, c := range m.table().DedicatedCellsTo(neighbor) {
		if guard != nil && c.SlotOffset == guard.SlotOffset {
			continue
		}
		m.mac.DeleteCell(c.SlotOffset, c.ChannelOffset, neighbor, c.Options)
	}
}

// RequestAddingCells asks neighbor for numCells cells. A TX|RX|SHARED request is for a single cell.
// At most CellListLen cells are asked for per transaction; the rest follow once it completes.
func (m *MSF) RequestAddingCells(neighbor NodeId, options schedule.CellOptions, numCells int) error {
	if numCells <= 0 {
		return nil
	}
	txn := &initiatedTxn{peer: neighbor, command: sixp.CmdAdd, options: options, numCells: numCells}
	if options == schedule.OptionsTxRxSh {
		logger.AssertEqual(1, numCells)
	} else if numCells > m.cfg.CellListLen {
		txn.numCells, txn.remaining = m.cfg.CellListLen, numCells-m.cfg.CellListLen
	}

	candidates, err := m.createAvailableCellList(m.cfg.CellListLen)
	if err != nil {
		return err
	}
	txn.candidates = candidates
	m.send(txn, &sixp.Request{CellOptions: options, NumCells: txn.numCells, CellList: candidates})
	return nil
}

// RequestDeletingCells asks neighbor to remove numCells of the cells with the given options.
func (m *MSF) RequestDeletingCells(neighbor NodeId, options schedule.CellOptions, numCells int) error {
	cells := m.createOccupiedCellList(neighbor, options, m.cfg.CellListLen)
	if len(cells) == 0 {
		return errors.Wrapf(schedule.ErrNoCandidateCells, "node %d: no %v cell to %d", m.id(), options, neighbor)
	}
	txn := &initiatedTxn{peer: neighbor, command: sixp.CmdDelete, options: options, numCells: numCells}
	m.send(txn, &sixp.Request{CellOptions: options, NumCells: numCells, CellList: cells})
	return nil
}

// RequestRelocatingCells moves cells to new slots, CellListLen cells per round.
func (m *MSF) RequestRelocatingCells(neighbor NodeId, options schedule.CellOptions, cells []schedule.CellRef) error {
	if len(cells) == 0 {
		return nil
	}
	round := cells
	var rest []schedule.CellRef
	if len(cells) > m.cfg.CellListLen {
		round = cells[:m.cfg.CellListLen]
		rest = append(rest, cells[m.cfg.CellListLen:]...)
	}
	round = append([]schedule.CellRef(nil), round...)

	candidates, err := m.createAvailableCellList(m.cfg.CellListLen)
	if err != nil {
		return err
	}
	txn := &initiatedTxn{
		peer:       neighbor,
		command:    sixp.CmdRelocate,
		options:    options,
		numCells:   len(round),
		candidates: candidates,
		relocation: round,
		rest:       rest,
	}
	m.send(txn, &sixp.Request{
		CellOptions:        options,
		NumCells:           len(round),
		CellList:           candidates,
		RelocationCellList: round,
	})
	return nil
}

// RequestClear removes every cell between this node and neighbor, except guard if set. The local
// cells go whatever the outcome.
func (m *MSF) RequestClear(neighbor NodeId, guard *schedule.CellRef) {
	m.send(&initiatedTxn{peer: neighbor, command: sixp.CmdClear, guard: guard}, &sixp.Request{})
}

func (m *MSF) OnRequestOutcome(id sixp.TransactionId, event sixp.CallbackEvent, resp *sixp.Response) {
	txn, ok := m.initiated[id]
	if !ok {
		logger.Warnf("Node %d: outcome %v of unknown transaction %d", m.id(), event, id)
		return
	}
	delete(m.initiated, id)
	m.unlock(txn.candidates)

	success := event == sixp.EventPacketReceived && resp != nil && resp.ReturnCode == sixp.RcSuccess
	switch txn.command {
	case sixp.CmdAdd:
		m.completeAdd(txn, event, resp, success)
	case sixp.CmdDelete:
		if success {
			m.deleteCells(txn.peer, resp.CellList, txn.options)
		}
	case sixp.CmdRelocate:
		if success {
			m.completeRelocate(txn, resp)
		}
	case sixp.CmdClear:
		m.clearCells(txn.peer, txn.guard)
	}
}

func (m *MSF) completeAdd(txn *initiatedTxn, event sixp.CallbackEvent, resp *sixp.Response, success bool) {
	if event == sixp.EventTimeout && txn.options == schedule.OptionsTxRxSh {
		m.logRecoverable(txn.peer, m.RequestAddingCells(txn.peer, schedule.OptionsTxRxSh, 1))
		return
	}
	if !success {
		return
	}
	m.addCells(txn.peer, resp.CellList, txn.options)
	shortfall := txn.numCells - len(resp.CellList)
	if shortfall > 0 && txn.options == schedule.OptionsTxRxSh {
		schedule.Fatal(m.id(), "add shared cell", txn.candidates[0].SlotOffset,
			errors.Wrapf(schedule.ErrScheduleConflict, "node %d granted no shared cell", txn.peer))
	}
	m.logRecoverable(txn.peer, m.RequestAddingCells(txn.peer, txn.options, txn.remaining+shortfall))
}

func (m *MSF) completeRelocate(txn *initiatedTxn, resp *sixp.Response) {
	granted := len(resp.CellList)
	logger.AssertTrue(granted <= len(txn.relocation))
	m.relocateCells(txn.peer, txn.relocation[:granted], resp.CellList, txn.options)
	if granted == 0 {
		return
	}
	rest := append(txn.rest, txn.relocation[granted:]...)
	m.logRecoverable(txn.peer, m.RequestRelocatingCells(txn.peer, txn.options, rest))
}

// RecvRequest answers a negotiation request. Nothing changes in the schedule until the response is
// acknowledged.
func (m *MSF) RecvRequest(req *sixp.Request) *sixp.Response {
	var txn *respondingTxn
	switch req.Command {
	case sixp.CmdAdd:
		txn = m.recvAdd(req)
	case sixp.CmdDelete:
		txn = m.recvDelete(req)
	case sixp.CmdRelocate:
		txn = m.recvRelocate(req)
	case sixp.CmdClear:
		txn = &respondingTxn{peer: req.Src, command: sixp.CmdClear}
	}
	if txn == nil {
		return &sixp.Response{ReturnCode: sixp.RcErr}
	}
	m.responding[req.TransactionId] = txn
	return &sixp.Response{ReturnCode: sixp.RcSuccess, CellList: txn.granted}
}

func (m *MSF) recvAdd(req *sixp.Request) *respondingTxn {
	available := m.freeCells(req.CellList)
	if len(available) == 0 {
		return nil
	}
	granted := available
	if len(available) >= req.NumCells {
		granted = prng.Sample(m.rand, available, req.NumCells)
	}
	m.lock(available)
	return &respondingTxn{
		peer:    req.Src,
		command: sixp.CmdAdd,
		options: req.CellOptions.Inverted(),
		granted: granted,
		locked:  available,
	}
}

func isDirectional(options schedule.CellOptions) bool {
	return options == schedule.OptionTx || options == schedule.OptionRx
}

func (m *MSF) recvDelete(req *sixp.Request) *respondingTxn {
	if !isDirectional(req.CellOptions) {
		return nil
	}
	ours := req.CellOptions.Inverted()
	if !m.areCellsAllocated(req.Src, req.CellList, ours) || req.NumCells > len(req.CellList) {
		return nil
	}
	return &respondingTxn{
		peer:    req.Src,
		command: sixp.CmdDelete,
		options: ours,
		granted: prng.Sample(m.rand, req.CellList, req.NumCells),
	}
}

func (m *MSF) recvRelocate(req *sixp.Request) *respondingTxn {
	if !isDirectional(req.CellOptions) {
		return nil
	}
	ours := req.CellOptions.Inverted()
	if !m.areCellsAllocated(req.Src, req.RelocationCellList, ours) || req.NumCells > len(req.CellList) {
		return nil
	}
	available := m.freeCells(req.CellList)
	granted := prng.Sample(m.rand, available, min(req.NumCells, len(available)))
	m.lock(granted)
	return &respondingTxn{
		peer:       req.Src,
		command:    sixp.CmdRelocate,
		options:    ours,
		granted:    granted,
		relocation: req.RelocationCellList,
		locked:     granted,
	}
}

func (m *MSF) OnResponseOutcome(id sixp.TransactionId, event sixp.CallbackEvent) {
	txn, ok := m.responding[id]
	if !ok {
		return
	}
	delete(m.responding, id)
	defer m.unlock(txn.locked)

	acked := event == sixp.EventMacAckReceived
	switch txn.command {
	case sixp.CmdAdd:
		if acked {
			m.addCells(txn.peer, txn.granted, txn.options)
		}
	case sixp.CmdDelete:
		if acked {
			m.deleteCells(txn.peer, txn.granted, txn.options)
		}
	case sixp.CmdRelocate:
		if acked {
			m.relocateCells(txn.peer, txn.relocation[:len(txn.granted)], txn.granted, txn.options)
		}
	case sixp.CmdClear:
		// the initiator clears whatever the outcome, so the responder does too
		m.clearCells(txn.peer, nil)
	}
}
