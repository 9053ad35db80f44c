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

// Package rpl is the routing collaborator of a node: a preferred parent picked from a static candidate
// list, the DAG rank learned from DIOs, and forced parent reselection.
package rpl

import (
	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/openthread/tsch-ns/dispatcher"
	"github.com/openthread/tsch-ns/eventlog"
	"github.com/openthread/tsch-ns/logger"
	"github.com/openthread/tsch-ns/tsch"
	. "github.com/openthread/tsch-ns/types"
)

const (
	MinHopRankIncrease = 256
	RootRank           = MinHopRankIncrease
	InfiniteRank       = 0xffff

	purposeDio = "rpl.dio"
)

// DIO is the payload of a DIO frame.
type DIO struct {
	Rank int
}

// Mac is the part of the slot engine the routing layer sends through.
type Mac interface {
	IsSynchronized() bool
	Enqueue(frame *tsch.Frame, priority bool) bool
}

// ParentChangeFunc is notified after every preferred parent change. InvalidNodeId stands for no parent.
type ParentChangeFunc func(oldParent, newParent NodeId)

type Rpl struct {
	cfg      *Config
	id       NodeId
	isRoot   bool
	engine   tsch.Engine
	mac      Mac
	log      *eventlog.Logger
	listener ParentChangeFunc

	candidates []NodeId
	parent     NodeId
	oldParents []NodeId
	ranks      map[NodeId]int
}

func New(cfg *Config, id NodeId, isRoot bool, engine tsch.Engine, mac Mac, log *eventlog.Logger) *Rpl {
	return &Rpl{
		cfg:    cfg,
		id:     id,
		isRoot: isRoot,
		engine: engine,
		mac:    mac,
		log:    log,
		parent: InvalidNodeId,
		ranks:  map[NodeId]int{},
	}
}

func (r *Rpl) SetParentChangeListener(f ParentChangeFunc) {
	r.listener = f
}

// SetCandidates sets the parents to choose from, most preferred first.
func (r *Rpl) SetCandidates(candidates []NodeId) {
	r.candidates = append([]NodeId(nil), candidates...)
}

func (r *Rpl) Candidates() []NodeId {
	return append([]NodeId(nil), r.candidates...)
}

func (r *Rpl) IsRoot() bool {
	return r.isRoot
}

func (r *Rpl) PreferredParent() NodeId {
	return r.parent
}

// OldParents returns the former preferred parents, oldest first, without duplicates.
func (r *Rpl) OldParents() []NodeId {
	return append([]NodeId(nil), r.oldParents...)
}

// DagRank is RootRank at the root and one hop more than the parent elsewhere.
func (r *Rpl) DagRank() int {
	if r.isRoot {
		return RootRank
	}
	if rank, ok := r.ranks[r.parent]; ok && r.parent != InvalidNodeId {
		return min(rank+MinHopRankIncrease, InfiniteRank)
	}
	return InfiniteRank
}

// ClearToSendEBs is true at the root and at nodes whose parent announced its rank.
func (r *Rpl) ClearToSendEBs() bool {
	return r.isRoot || r.DagRank() != InfiniteRank
}

// Start arms the DIO timer of the root. Other nodes start on synchronization.
func (r *Rpl) Start() {
	if r.isRoot {
		r.scheduleDio()
	}
}

func (r *Rpl) Stop() {
	r.engine.Cancel(dispatcher.Tag{NodeId: r.id, Purpose: purposeDio})
}

// OnSynchronized selects the first candidate parent, or the join proxy without candidates.
func (r *Rpl) OnSynchronized(joinProxy NodeId) {
	parent := joinProxy
	if len(r.candidates) > 0 {
		parent = r.candidates[0]
	}
	r.SetPreferredParent(parent)
	r.scheduleDio()
}

func (r *Rpl) OnDesynchronized() {
	r.Stop()
	r.ranks = map[NodeId]int{}
	r.SetPreferredParent(InvalidNodeId)
}

// SetPreferredParent switches to parent and notifies the listener.
func (r *Rpl) SetPreferredParent(parent NodeId) {
	logger.AssertFalse(r.isRoot && parent != InvalidNodeId, "root cannot have a parent")
	if parent == r.parent {
		return
	}
	old := r.parent
	if old != InvalidNodeId && !slices.Contains(r.oldParents, old) {
		r.oldParents = append(r.oldParents, old)
	}
	r.parent = parent
	r.log.Log(eventlog.RplParentChange, zap.Int("oldParent", old), zap.Int("newParent", parent))
	if r.listener != nil {
		r.listener(old, parent)
	}
}

// ForceParentReselection moves to the candidate after the current parent. It is ignored with fewer than
// two candidates.
func (r *Rpl) ForceParentReselection() {
	if r.parent == InvalidNodeId || len(r.candidates) < 2 {
		logger.Debugf("Node %d: no alternative parent, reselection ignored", r.id)
		return
	}
	next := r.candidates[0]
	for i, c := range r.candidates {
		if c == r.parent {
			next = r.candidates[(i+1)%len(r.candidates)]
			break
		}
	}
	r.log.Log(eventlog.RplForcedReselect, zap.Int("oldParent", r.parent), zap.Int("newParent", next))
	r.SetPreferredParent(next)
}

// ReceiveDIO records the rank a neighbor announced.
func (r *Rpl) ReceiveDIO(frame *tsch.Frame) {
	dio, ok := frame.Payload.(*DIO)
	if !ok {
		logger.Warnf("Node %d: DIO from %d without rank", r.id, frame.Src)
		return
	}
	r.ranks[frame.Src] = dio.Rank
}

func (r *Rpl) scheduleDio() {
	if r.cfg.DioPeriod == 0 {
		return
	}
	r.engine.ScheduleAt(r.engine.Now()+r.cfg.DioPeriod, dispatcher.OrderStackTasks,
		dispatcher.Tag{NodeId: r.id, Purpose: purposeDio}, r.sendDio)
}

func (r *Rpl) sendDio() {
	if r.mac.IsSynchronized() && (r.isRoot || r.parent != InvalidNodeId) {
		r.mac.Enqueue(&tsch.Frame{
			Type:    FrameTypeDIO,
			Src:     r.id,
			Dst:     BroadcastNodeId,
			Payload: &DIO{Rank: r.DagRank()},
		}, false)
	}
	r.scheduleDio()
}
