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

// Package sf holds the scheduling functions that keep a node's dedicated cells matched to its traffic.
package sf

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/openthread/tsch-ns/eventlog"
	"github.com/openthread/tsch-ns/schedule"
	"github.com/openthread/tsch-ns/sixp"
	"github.com/openthread/tsch-ns/tsch"
	. "github.com/openthread/tsch-ns/types"
)

// SchedulingFunction is the negotiator of one node.
type SchedulingFunction interface {
	sixp.Handler
	tsch.SchedulingFunction

	Class() Class
	Start()
	Stop()
	IndicationParentChange(oldParent, newParent NodeId)
	DetectScheduleInconsistency(peer NodeId)
	LockedSlots() *schedule.LockedSlots
}

// Mac is the slot engine of the node. *tsch.Tsch implements it.
type Mac interface {
	Id() NodeId
	IsRoot() bool
	Config() *tsch.Config
	Schedule() *schedule.Table
	AddCell(slotOffset int, channelOffset ChannelId, neighbor NodeId, options schedule.CellOptions) *schedule.Cell
	DeleteCell(slotOffset int, channelOffset ChannelId, neighbor NodeId, options schedule.CellOptions) bool
	TxQueue() []*tsch.Frame
	RedirectFrames(from, to NodeId) int
}

type Routing interface {
	PreferredParent() NodeId
	// OldParents lists the former preferred parents, oldest first.
	OldParents() []NodeId
	ForceParentReselection()
}

// Peer is another node as seen by the topology mutation operations.
type Peer interface {
	Schedule() *schedule.Table
	LockedSlots() *schedule.LockedSlots
	AddCell(slotOffset int, channelOffset ChannelId, neighbor NodeId, options schedule.CellOptions) *schedule.Cell
	DeleteCell(slotOffset int, channelOffset ChannelId, neighbor NodeId, options schedule.CellOptions) bool
}

// Topology gives direct access to other nodes. Only the bilateral shared cell allocation on parent
// change, the guard cell release and the schedule size check of the parent use it.
type Topology interface {
	// Peer returns the node with the given id, or nil.
	Peer(id NodeId) Peer
}

type Deps struct {
	Mac       Mac
	Routing   Routing
	Transport sixp.Transport
	Topology  Topology
	Engine    tsch.Engine
	Rand      *rand.Rand
	Log       *eventlog.Logger
}

// New creates the scheduling function selected by cfg.Class.
func New(cfg *Config, deps Deps) (SchedulingFunction, error) {
	switch cfg.Class {
	case ClassMSF, "":
		return NewMSF(cfg, deps), nil
	case ClassNone:
		return NewNone(), nil
	default:
		return nil, errors.Errorf("unknown scheduling function %q", cfg.Class)
	}
}
