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

// Package tsch is the per-slot TSCH engine of a node: synchronization, active cell dispatch, the
// transmit queue, shared-link backoff, clock drift and keep-alives.
package tsch

import (
	"math/rand"

	"go.uber.org/zap"

	"github.com/openthread/tsch-ns/dispatcher"
	"github.com/openthread/tsch-ns/eventlog"
	"github.com/openthread/tsch-ns/logger"
	"github.com/openthread/tsch-ns/schedule"
	. "github.com/openthread/tsch-ns/types"
)

const (
	purposeActiveCell  = "tsch.active_cell"
	purposeListeningEB = "tsch.listening_eb"
	purposeKeepAlive   = "tsch.keep_alive"

	// MinimalCellSlot and MinimalCellChannel locate the cell shared with every neighbor.
	MinimalCellSlot    = 0
	MinimalCellChannel = 0
)

type waitState int

const (
	waitNone waitState = iota
	waitTx
	waitRx
)

type Tsch struct {
	cfg    *Config
	id     NodeId
	isRoot bool
	engine Engine
	rand   *rand.Rand
	log    *eventlog.Logger
	peers  Peers

	radio   Radio
	sf      SchedulingFunction
	routing Routing
	host    Host

	table         *schedule.Table
	txQueue       []*Frame
	neighborTable []NodeId
	clock         *Clock
	backoff       backoff

	isSync        bool
	joinProxy     NodeId
	asnLastSync   ASN
	iAmSendingEBs bool

	waitingFor waitState
	pktToSend  *Frame
	channel    ChannelId
}

func New(cfg *Config, id NodeId, isRoot bool, engine Engine, r *rand.Rand, log *eventlog.Logger, peers Peers) *Tsch {
	t := &Tsch{
		cfg:       cfg,
		id:        id,
		isRoot:    isRoot,
		engine:    engine,
		rand:      r,
		log:       log,
		peers:     peers,
		table:     schedule.NewTable(cfg.SlotframeLength),
		joinProxy: InvalidNodeId,
	}
	t.clock = newClock(cfg, engine, peers, r, isRoot)
	t.backoff = backoff{t: t, exponent: cfg.MinBackoffExponent}
	return t
}

// Attach connects the collaborators. It must be called before Start.
func (t *Tsch) Attach(radio Radio, sf SchedulingFunction, routing Routing, host Host) {
	t.radio, t.sf, t.routing, t.host = radio, sf, routing, host
}

// Start begins operation: the root is synchronized by definition, every other node listens for EBs.
func (t *Tsch) Start() {
	logger.AssertNotNil(t.radio)
	if t.isRoot {
		t.clock.Sync(InvalidNodeId)
		t.SetSynchronized(true)
		t.AddMinimalCell()
		t.StartSendingEBs()
		return
	}
	t.scheduleNextListeningForEB()
}

func (t *Tsch) Id() NodeId                { return t.id }
func (t *Tsch) IsRoot() bool              { return t.isRoot }
func (t *Tsch) IsSynchronized() bool      { return t.isSync }
func (t *Tsch) JoinProxy() NodeId         { return t.joinProxy }
func (t *Tsch) Clock() *Clock             { return t.clock }
func (t *Tsch) Schedule() *schedule.Table { return t.table }
func (t *Tsch) Neighbors() []NodeId       { return append([]NodeId(nil), t.neighborTable...) }
func (t *Tsch) BackoffExponent() int      { return t.backoff.exponent }
func (t *Tsch) BackoffDelay() int         { return t.backoff.remaining }
func (t *Tsch) Config() *Config           { return t.cfg }

func (t *Tsch) tag(purpose string) dispatcher.Tag {
	return dispatcher.Tag{NodeId: t.id, Purpose: purpose}
}

func (t *Tsch) StartSendingEBs() {
	t.iAmSendingEBs = true
}

// SetSynchronized switches between listening for EBs and active scheduled operation.
func (t *Tsch) SetSynchronized(sync bool) {
	t.isSync = sync
	if sync {
		t.log.Log(eventlog.TschSynced, zap.Int("joinProxy", t.joinProxy))
		t.asnLastSync = t.engine.Now()
		t.startKeepAliveTimer()
		t.engine.Cancel(t.tag(purposeListeningEB))
		t.scheduleNextActiveCell()
		return
	}

	t.log.Log(eventlog.TschDesynced)
	t.DeleteMinimalCell()
	t.joinProxy = InvalidNodeId
	t.asnLastSync = 0
	t.clock.Desync()
	t.stopKeepAliveTimer()
	t.engine.Cancel(t.tag(purposeActiveCell))
	t.waitingFor, t.pktToSend = waitNone, nil
	if t.host != nil {
		t.host.OnDesynchronized()
	}
	t.scheduleNextListeningForEB()
}

func (t *Tsch) AddMinimalCell() {
	t.AddCell(MinimalCellSlot, MinimalCellChannel, InvalidNodeId, schedule.OptionsTxRxSh)
}

func (t *Tsch) DeleteMinimalCell() {
	if c := t.table.Get(MinimalCellSlot); c != nil && c.IsMinimal() {
		t.DeleteCell(MinimalCellSlot, MinimalCellChannel, InvalidNodeId, schedule.OptionsTxRxSh)
	}
}

// AddCell inserts a cell. An occupied slot is a fatal schedule error.
func (t *Tsch) AddCell(slotOffset int, channelOffset ChannelId, neighbor NodeId, options schedule.CellOptions) *schedule.Cell {
	c, err := t.table.Add(slotOffset, channelOffset, neighbor, options)
	if err != nil {
		schedule.Fatal(t.id, "add cell", slotOffset, err)
	}
	t.log.Log(eventlog.TschAddCell,
		zap.Int("slotOffset", slotOffset),
		zap.Int("channelOffset", channelOffset),
		zap.Int("neighbor", neighbor),
		zap.Stringer("cellOptions", options))
	if t.isSync {
		t.scheduleNextActiveCell()
	}
	return c
}

// DeleteCell removes a cell unless the deletion safety check refuses it, and reports whether the cell
// is gone. Deleting a cell that does not exist is a no-op; deleting with mismatching parameters is a
// fatal schedule error.
func (t *Tsch) DeleteCell(slotOffset int, channelOffset ChannelId, neighbor NodeId, options schedule.CellOptions) bool {
	c := t.table.Get(slotOffset)
	if c == nil {
		logger.Debugf("Node %d: delete of empty slot %d ignored", t.id, slotOffset)
		return false
	}
	if c.IsDedicated() && c.Neighbor == neighbor && c.ChannelOffset == channelOffset && c.Options == options {
		if cause := t.deletionRefusal(c); cause != "" {
			t.log.Log(eventlog.TschDeleteRefused,
				zap.Int("slotOffset", slotOffset),
				zap.Int("neighbor", neighbor),
				zap.String("cause", cause))
			return false
		}
	}
	if _, err := t.table.Remove(slotOffset, channelOffset, neighbor, options); err != nil {
		schedule.Fatal(t.id, "delete cell", slotOffset, err)
	}
	t.log.Log(eventlog.TschDeleteCell,
		zap.Int("slotOffset", slotOffset),
		zap.Int("channelOffset", channelOffset),
		zap.Int("neighbor", neighbor),
		zap.Stringer("cellOptions", options))
	if t.isSync {
		t.scheduleNextActiveCell()
	}
	return true
}

// deletionRefusal returns why a dedicated cell must be kept, or "" if it may go.
func (t *Tsch) deletionRefusal(c *schedule.Cell) string {
	nbr := c.Neighbor
	dedicated := len(t.table.DedicatedCellsTo(nbr))
	pending := t.peers.HasPendingFrames(t.id, nbr) || t.peers.HasPendingFrames(nbr, t.id)
	if pending && dedicated <= 1 {
		return "last cell with pending frames"
	}
	if t.peers.IsSlotLockedBy(nbr, c.SlotOffset) {
		return "slot locked by neighbor"
	}
	parentLink := t.peers.PreferredParentOf(nbr) == t.id || (t.routing != nil && t.routing.PreferredParent() == nbr)
	if parentLink && c.Options.Has(schedule.OptionShared) && len(t.table.SharedCellsTo(nbr)) <= 1 {
		return "last shared cell of a preferred parent link"
	}
	return ""
}
