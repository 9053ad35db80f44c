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
	"math/rand"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/openthread/tsch-ns/dispatcher"
	"github.com/openthread/tsch-ns/eventlog"
	"github.com/openthread/tsch-ns/logger"
	"github.com/openthread/tsch-ns/schedule"
	"github.com/openthread/tsch-ns/sixp"
	"github.com/openthread/tsch-ns/tsch"
	. "github.com/openthread/tsch-ns/types"
)

const (
	purposeHousekeeping = "sf.housekeeping_collision"
	purposeRefresh      = "sf.refresh_tables"
)

// MSF is the minimal scheduling function: it adapts the number of dedicated TX cells to the preferred
// parent to the observed cell utilization, relocates colliding cells and moves cells on parent change.
type MSF struct {
	cfg       *Config
	mac       Mac
	routing   Routing
	transport sixp.Transport
	topology  Topology
	engine    tsch.Engine
	rand      *rand.Rand
	log       *eventlog.Logger

	locked          *schedule.LockedSlots
	numCellsPassed  int
	numCellsUsed    int
	cellUtilization float64
	// starved counts the adaptation rounds that wanted a cell to a parent whose schedule was full.
	starved    map[NodeId]int
	initiated  map[sixp.TransactionId]*initiatedTxn
	responding map[sixp.TransactionId]*respondingTxn
	started    bool
}

func NewMSF(cfg *Config, deps Deps) *MSF {
	return &MSF{
		cfg:        cfg,
		mac:        deps.Mac,
		routing:    deps.Routing,
		transport:  deps.Transport,
		topology:   deps.Topology,
		engine:     deps.Engine,
		rand:       deps.Rand,
		log:        deps.Log,
		locked:     schedule.NewLockedSlots(),
		starved:    map[NodeId]int{},
		initiated:  map[sixp.TransactionId]*initiatedTxn{},
		responding: map[sixp.TransactionId]*respondingTxn{},
	}
}

func (m *MSF) Class() Class {
	return ClassMSF
}

func (m *MSF) LockedSlots() *schedule.LockedSlots {
	return m.locked
}

// StarvedCount returns how many adaptation rounds found the schedule to neighbor full since the last
// forced parent switch.
func (m *MSF) StarvedCount(neighbor NodeId) int {
	return m.starved[neighbor]
}

// PendingTransactions returns the number of transactions this node initiated that are not complete.
func (m *MSF) PendingTransactions() int {
	return len(m.initiated)
}

func (m *MSF) id() NodeId {
	return m.mac.Id()
}

func (m *MSF) table() *schedule.Table {
	return m.mac.Schedule()
}

func (m *MSF) tag(purpose string) dispatcher.Tag {
	return dispatcher.Tag{NodeId: m.id(), Purpose: purpose}
}

// Start arms the periodic collision housekeeping and the guard cell release. The root does neither.
func (m *MSF) Start() {
	if m.mac.IsRoot() || m.started {
		return
	}
	m.started = true
	m.scheduleHousekeeping()
	m.scheduleRefresh()
}

// Stop cancels the timers and forgets the locks and traffic counters, so a node that joins again
// starts from a clean state.
func (m *MSF) Stop() {
	m.started = false
	m.engine.Cancel(m.tag(purposeHousekeeping))
	m.engine.Cancel(m.tag(purposeRefresh))
	m.locked.Clear()
	m.resetCellCounters()
	m.cellUtilization = 0
	clear(m.starved)
}

func (m *MSF) scheduleHousekeeping() {
	m.engine.ScheduleAt(m.engine.Now()+m.cfg.HousekeepingCollisionPeriod, dispatcher.OrderStackTasks,
		m.tag(purposeHousekeeping), m.housekeepingCollision)
}

func (m *MSF) scheduleRefresh() {
	m.engine.ScheduleAt(m.engine.Now()+m.cfg.RefreshPeriod, dispatcher.OrderStackTasks,
		m.tag(purposeRefresh), m.refreshSchedulingTables)
}

// IndicationDedicatedTxCellElapsed counts the TX opportunities of the cells to the preferred parent
// and adapts the schedule once a full window has elapsed.
func (m *MSF) IndicationDedicatedTxCellElapsed(cell *schedule.Cell, used bool) {
	logger.AssertTrue(cell.IsDedicated())
	parent := m.routing.PreferredParent()
	if parent == InvalidNodeId || cell.Neighbor != parent {
		return
	}
	// the shared cell does not carry frames while a TX cell to the parent exists
	if !(cell.Options.Has(schedule.OptionShared) && len(m.table().TxCellsTo(parent)) > 0) {
		m.numCellsPassed++
		if used {
			m.numCellsUsed++
		}
	}
	if m.numCellsPassed >= m.cfg.MaxNumCells {
		m.adaptToTraffic(parent)
		m.resetCellCounters()
	}
}

func (m *MSF) resetCellCounters() {
	m.numCellsPassed = 0
	m.numCellsUsed = 0
}

func (m *MSF) adaptToTraffic(neighbor NodeId) {
	utilization := float64(m.numCellsUsed) / float64(m.numCellsPassed)
	if utilization != m.cellUtilization {
		m.log.Log(eventlog.MsfUtilization,
			zap.Int("neighbor", neighbor),
			zap.Int("from", int(m.cellUtilization*100)),
			zap.Int("to", int(utilization*100)))
		m.cellUtilization = utilization
	}

	switch {
	case utilization > m.cfg.LimNumCellsUsedHigh:
		if m.starved[neighbor] >= m.cfg.MaxAddRequestsPerParent {
			m.log.Log(eventlog.MsfForceParent, zap.Int("neighbor", neighbor), zap.Int("starved", m.starved[neighbor]))
			m.starved[neighbor] = 0
			m.routing.ForceParentReselection()
			return
		}
		if m.scheduleFull(neighbor) {
			m.starved[neighbor]++
			m.log.Log(eventlog.MsfScheduleFull, zap.Int("neighbor", neighbor), zap.Int("starved", m.starved[neighbor]))
			return
		}
		m.logRecoverable(neighbor, m.RequestAddingCells(neighbor, schedule.OptionTx, 1))
	case utilization < m.cfg.LimNumCellsUsedLow:
		if len(m.table().TxCellsTo(neighbor)) > 0 {
			m.logRecoverable(neighbor, m.RequestDeletingCells(neighbor, schedule.OptionTx, 1))
		}
	}
}

// scheduleFull reports whether either end of the link to neighbor holds the maximum of dedicated cells.
func (m *MSF) scheduleFull(neighbor NodeId) bool {
	if len(m.table().DedicatedCellsTo(neighbor)) >= m.cfg.MaxDedicatedCellsPerParent {
		return true
	}
	peer := m.topology.Peer(neighbor)
	return peer != nil && len(peer.Schedule().DedicatedCellsTo(m.id())) >= m.cfg.MaxDedicatedCellsPerParent
}

func (m *MSF) logRecoverable(neighbor NodeId, err error) {
	if err == nil {
		return
	}
	logger.AssertTrue(schedule.IsRecoverable(err), "node %d: %v", m.id(), err)
	m.log.Log(eventlog.MsfNoCandidates, zap.Int("neighbor", neighbor), zap.Error(err))
}

func (m *MSF) housekeepingCollision() {
	if parent := m.routing.PreferredParent(); parent != InvalidNodeId {
		m.relocateCollidingCells(parent)
	}
	m.scheduleHousekeeping()
}

// relocateCollidingCells moves the TX cells to parent whose PDR lags the best cell by more than the
// threshold. Only cells with enough transmissions are compared.
func (m *MSF) relocateCollidingCells(parent NodeId) {
	var sampled []*schedule.Cell
	highest := 0.0
	for _, c := range m.table().TxCellsTo(parent) {
		if c.NumTx > m.cfg.MinNumTx {
			sampled = append(sampled, c)
			highest = max(highest, c.PDR())
		}
	}

	var relocation []schedule.CellRef
	for _, c := range sampled {
		if highest-c.PDR() > m.cfg.RelocatePdrThreshold {
			relocation = append(relocation, c.Ref())
		}
	}
	if len(relocation) == 0 {
		return
	}
	m.log.Log(eventlog.MsfRelocate, zap.Int("neighbor", parent), zap.Any("cells", relocation))
	m.logRecoverable(parent, m.RequestRelocatingCells(parent, schedule.OptionTx, relocation))
}

// refreshSchedulingTables releases the cells still held to former parents once no DATA frame is queued
// to them anymore.
func (m *MSF) refreshSchedulingTables() {
	parent := m.routing.PreferredParent()
	for _, old := range m.routing.OldParents() {
		if old == InvalidNodeId || old == parent {
			continue
		}
		cells := m.table().DedicatedCellsTo(old)
		if len(cells) == 0 || m.hasQueuedData(old) {
			continue
		}
		m.releaseCells(old, cells)
	}
	m.scheduleRefresh()
}

// releaseCells deletes cells to a former parent on both ends of the link without negotiation.
func (m *MSF) releaseCells(old NodeId, cells []*schedule.Cell) {
	peer := m.topology.Peer(old)
	released := 0
	for _, c := range cells {
		m.locked.Unlock(c.SlotOffset)
		if !m.mac.DeleteCell(c.SlotOffset, c.ChannelOffset, old, c.Options) {
			continue
		}
		released++
		if peer == nil {
			continue
		}
		if pc := peer.Schedule().Get(c.SlotOffset); pc != nil && pc.Neighbor == m.id() {
			peer.DeleteCell(pc.SlotOffset, pc.ChannelOffset, pc.Neighbor, pc.Options)
		}
	}
	m.log.Log(eventlog.MsfGuardRelease, zap.Int("neighbor", old), zap.Int("numCells", len(cells)),
		zap.Int("released", released))
}

// hasQueuedData reports whether a DATA frame to dst with retries left is queued.
func (m *MSF) hasQueuedData(dst NodeId) bool {
	for _, f := range m.mac.TxQueue() {
		if f.Type == FrameTypeData && f.Dst == dst && f.HasRetriesLeft() {
			return true
		}
	}
	return false
}

// IndicationParentChange installs a shared cell to the new parent and releases the cells to the old
// one according to the parent change policy.
func (m *MSF) IndicationParentChange(oldParent, newParent NodeId) {
	logger.AssertTrue(oldParent != newParent)

	slot := -1
	if newParent != InvalidNodeId {
		slot = m.allocateSharedCell(newParent)
	}
	m.log.Log(eventlog.MsfParentChange,
		zap.Int("oldParent", oldParent),
		zap.Int("newParent", newParent),
		zap.Int("sharedSlot", slot))

	if oldParent == InvalidNodeId {
		return
	}
	if !m.hasQueuedData(oldParent) {
		m.RequestClear(oldParent, nil)
		return
	}
	if m.cfg.ParentChangePolicy == PolicyRedirection && newParent != InvalidNodeId {
		m.mac.RedirectFrames(oldParent, newParent)
		m.RequestClear(oldParent, nil)
		return
	}

	cells := m.table().DedicatedCellsTo(oldParent)
	if len(cells) == 0 {
		return
	}
	guard := cells[m.rand.Intn(len(cells))]
	m.locked.Lock(guard.SlotOffset)
	if len(cells) > 1 {
		ref := guard.Ref()
		m.RequestClear(oldParent, &ref)
	}
}

// allocateSharedCell writes a TX|RX|SHARED cell into this node's schedule and into the parent's,
// bypassing negotiation. It prefers slot id mod slotframe length and returns the slot used, or -1.
func (m *MSF) allocateSharedCell(parent NodeId) int {
	peer := m.topology.Peer(parent)
	if peer == nil {
		logger.Warnf("Node %d: parent %d not found, no shared cell allocated", m.id(), parent)
		return -1
	}

	length := m.table().SlotframeLength()
	var available []int
	for _, s := range schedule.AvailableSlots(length,
		[]*schedule.Table{m.table(), peer.Schedule()},
		[]*schedule.LockedSlots{m.locked, peer.LockedSlots()}) {
		if s != tsch.MinimalCellSlot {
			available = append(available, s)
		}
	}
	if len(available) == 0 {
		m.log.Log(eventlog.MsfScheduleFull, zap.Int("neighbor", parent))
		return -1
	}

	slot := m.id() % length
	if !slices.Contains(available, slot) {
		slot = available[m.rand.Intn(len(available))]
	}
	channel := m.id() % m.mac.Config().NumChannels
	m.mac.AddCell(slot, channel, parent, schedule.OptionsTxRxSh)
	peer.AddCell(slot, channel, m.id(), schedule.OptionsTxRxSh)
	return slot
}

// DetectScheduleInconsistency resets the schedule to peer on both ends.
func (m *MSF) DetectScheduleInconsistency(peer NodeId) {
	m.log.Log(eventlog.MsfInconsistency, zap.Int("neighbor", peer))
	m.RequestClear(peer, nil)
}
