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

package tsch

import (
	"go.uber.org/zap"

	"github.com/openthread/tsch-ns/dispatcher"
	"github.com/openthread/tsch-ns/eventlog"
	"github.com/openthread/tsch-ns/logger"
	"github.com/openthread/tsch-ns/schedule"
	. "github.com/openthread/tsch-ns/types"
)

func (t *Tsch) scheduleNextListeningForEB() {
	logger.AssertFalse(t.isSync)
	t.engine.ScheduleAt(t.engine.Now()+1, dispatcher.OrderStartSlot, t.tag(purposeListeningEB), t.actionListeningForEB)
}

func (t *Tsch) actionListeningForEB() {
	logger.AssertFalse(t.isSync)
	channel := t.rand.Intn(t.cfg.NumChannels)
	t.waitingFor = waitRx
	t.channel = channel
	t.radio.StartRx(channel)
	t.scheduleNextListeningForEB()
}

func (t *Tsch) scheduleNextActiveCell() {
	logger.AssertTrue(t.isSync)
	now := t.engine.Now()
	current := int(now % ASN(t.cfg.SlotframeLength))
	dist, ok := t.table.NextActiveSlotDistance(current)
	if !ok {
		t.engine.Cancel(t.tag(purposeActiveCell))
		return
	}
	t.engine.ScheduleAt(now+ASN(dist), dispatcher.OrderStartSlot, t.tag(purposeActiveCell), t.actionActiveCell)
}

func (t *Tsch) slotOffset() int {
	return int(t.engine.Now() % ASN(t.cfg.SlotframeLength))
}

func (t *Tsch) actionActiveCell() {
	cell := t.table.Get(t.slotOffset())
	logger.AssertNotNil(cell)
	if t.waitingFor != waitNone {
		logger.Warnf("Node %d: previous radio operation was not completed, resetting", t.id)
		t.waitingFor, t.pktToSend = waitNone, nil
	}

	if cell.IsMinimal() {
		t.executeSharedCell(cell)
	} else {
		t.executeDedicatedCell(cell)
	}
	t.scheduleNextActiveCell()
}

func (t *Tsch) executeSharedCell(cell *schedule.Cell) {
	logger.AssertEqual(schedule.OptionsTxRxSh, cell.Options)

	// broadcasts first, then frames without a dedicated or shared way out
	frame := t.firstQueued(func(f *Frame) bool { return f.Type.IsBroadcastType() })
	if frame == nil {
		frame = t.firstQueued(func(f *Frame) bool {
			return len(t.table.TxCellsTo(f.Dst)) == 0 && len(t.table.SharedCellsTo(f.Dst)) == 0
		})
	}
	if frame != nil && t.isRetransmission(frame) && t.backoff.deferRetransmission() {
		frame = nil
	}
	if frame == nil && t.iAmSendingEBs && t.routing != nil && t.routing.ClearToSendEBs() {
		prob := t.cfg.EbProbability / float64(1+len(t.neighborTable))
		if t.rand.Float64() < prob {
			frame = t.createEB()
		}
	}

	if frame != nil {
		t.actionTx(cell, frame)
	} else {
		t.actionRx(cell)
	}
}

func (t *Tsch) firstQueued(match func(*Frame) bool) *Frame {
	for _, f := range t.txQueue {
		if match(f) {
			return f
		}
	}
	return nil
}

func (t *Tsch) executeDedicatedCell(cell *schedule.Cell) {
	var frame *Frame
	for _, f := range t.txQueue {
		if f.Dst == cell.Neighbor {
			frame = f
			break
		}
	}
	// a shared link next to a pure TX cell to the same neighbor, without an RX cell from it, is used
	// for receiving only
	if cell.Options.Has(schedule.OptionShared) &&
		len(t.table.TxCellsTo(cell.Neighbor)) > 0 &&
		len(t.table.RxCellsFrom(cell.Neighbor)) == 0 {
		frame = nil
	}
	if frame != nil && cell.Options.Has(schedule.OptionShared) && t.isRetransmission(frame) &&
		t.backoff.deferRetransmission() {
		frame = nil
	}

	used := false
	switch {
	case frame != nil && cell.Options.Has(schedule.OptionTx):
		used = true
		t.actionTx(cell, frame)
	case cell.Options.Has(schedule.OptionRx):
		t.actionRx(cell)
	}

	if cell.Options.Has(schedule.OptionTx) && t.sf != nil {
		t.sf.IndicationDedicatedTxCellElapsed(cell, used)
	}
}

func (t *Tsch) actionTx(cell *schedule.Cell, frame *Frame) {
	cell.CountTx()
	t.waitingFor = waitTx
	t.pktToSend = frame
	t.channel = cell.ChannelOffset
	t.radio.StartTx(cell.ChannelOffset, frame)
}

func (t *Tsch) actionRx(cell *schedule.Cell) {
	t.waitingFor = waitRx
	t.channel = cell.ChannelOffset
	t.radio.StartRx(cell.ChannelOffset)
}

func (t *Tsch) isRetransmission(f *Frame) bool {
	return f.RetriesLeft < t.cfg.MaxTxRetries
}

// TxDone is called by the radio at the end of a transmission.
func (t *Tsch) TxDone(acked bool) {
	logger.AssertTrue(t.waitingFor == waitTx, "Node %d: TxDone while not transmitting", t.id)
	frame := t.pktToSend
	cell := t.table.Get(t.slotOffset())
	logger.AssertNotNil(cell)
	logger.AssertTrue(cell.Options.Has(schedule.OptionTx))

	t.log.Log(eventlog.TschTxDone,
		zap.Int("slotOffset", cell.SlotOffset),
		zap.Int("channel", t.channel),
		zap.Stringer("frameType", frame.Type),
		zap.Int("dst", frame.Dst),
		zap.Bool("isACKed", acked))

	t.waitingFor, t.pktToSend = waitNone, nil

	if frame.IsBroadcast() {
		logger.AssertFalse(acked)
		// EBs are never queued
		if frame.Type == FrameTypeDIO {
			t.removeFrame(frame)
		}
		return
	}

	if acked {
		cell.CountTxAck()
	}
	t.host.OnTxDone(frame, acked)
	t.backoff.update(t.isRetransmission(frame), cell.Options.Has(schedule.OptionShared), acked)

	if acked {
		if t.clock.Source() == frame.Dst {
			t.asnLastSync = t.engine.Now()
			t.clock.Sync(InvalidNodeId)
			t.resetKeepAliveTimer()
		}
		t.removeFrame(frame)
		return
	}

	frame.RetriesLeft--
	if frame.RetriesLeft < 0 {
		t.removeFrame(frame)
		t.dropFrame(frame, DropReasonMaxRetries)
	}
}

// RxDone is called by the radio at the end of a listen; frame is nil after an idle listen. It returns
// whether the frame is acknowledged.
func (t *Tsch) RxDone(frame *Frame) bool {
	if t.isSync {
		cell := t.table.Get(t.slotOffset())
		logger.AssertTrue(cell != nil && cell.Options.Has(schedule.OptionRx), "Node %d: RxDone outside an RX cell", t.id)
	}
	t.waitingFor = waitNone

	if frame == nil {
		return false
	}
	t.addNeighbor(frame.Src)

	if frame.Dst != t.id && frame.Dst != BroadcastNodeId {
		return false
	}

	t.log.Log(eventlog.TschRxDone,
		zap.Stringer("frameType", frame.Type),
		zap.Int("src", frame.Src),
		zap.Int("dst", frame.Dst))

	if t.isSync && t.clock.Source() == frame.Src {
		t.asnLastSync = t.engine.Now()
		t.clock.Sync(InvalidNodeId)
		t.resetKeepAliveTimer()
	}
	if t.isSync {
		t.table.Get(t.slotOffset()).CountRx()
	}

	if frame.Dst == t.id {
		if frame.Type != FrameTypeKeepAlive {
			t.host.ReceiveFrame(frame)
		}
		return true
	}

	if frame.Type == FrameTypeEB {
		t.receiveEB(frame)
	} else {
		t.host.ReceiveFrame(frame)
	}
	return false
}

func (t *Tsch) addNeighbor(id NodeId) {
	for _, n := range t.neighborTable {
		if n == id {
			return
		}
	}
	t.neighborTable = append(t.neighborTable, id)
}

func (t *Tsch) createEB() *Frame {
	eb := &Frame{
		Type:       FrameTypeEB,
		Src:        t.id,
		Dst:        BroadcastNodeId,
		JoinMetric: t.routing.DagRank() - 1,
	}
	t.log.Log(eventlog.TschEbTx, zap.Int("joinMetric", eb.JoinMetric))
	return eb
}

func (t *Tsch) receiveEB(frame *Frame) {
	t.log.Log(eventlog.TschEbRx, zap.Int("src", frame.Src), zap.Int("joinMetric", frame.JoinMetric))
	if t.isRoot || t.isSync {
		return
	}
	t.clock.Sync(frame.Src)
	t.joinProxy = frame.Src
	t.SetSynchronized(true)
	t.AddMinimalCell()
	t.host.OnSynchronized(frame.Src)
}
