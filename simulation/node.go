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

package simulation

import (
	"go.uber.org/zap"

	"github.com/openthread/tsch-ns/app"
	"github.com/openthread/tsch-ns/eventlog"
	"github.com/openthread/tsch-ns/logger"
	"github.com/openthread/tsch-ns/radiomodel"
	"github.com/openthread/tsch-ns/rpl"
	"github.com/openthread/tsch-ns/schedule"
	"github.com/openthread/tsch-ns/sf"
	"github.com/openthread/tsch-ns/tsch"
	. "github.com/openthread/tsch-ns/types"
)

// Node bundles the protocol layers of one mote. It is the tsch.Host of its slot engine and the sf.Peer
// seen by its neighbors.
type Node struct {
	Id    NodeId
	Mac   *tsch.Tsch
	Radio *radiomodel.RadioNode
	Sf    sf.SchedulingFunction
	Rpl   *rpl.Rpl
	App   *app.App

	sim *Simulation
	log *eventlog.Logger
}

func newNode(s *Simulation, nc *NodeConfig, isRoot bool) (*Node, error) {
	id := nc.Id
	r := s.rand.NewNodeRand(id)
	log := eventlog.NewLogger(s.sink, s.d, id)

	n := &Node{Id: id, sim: s, log: log}
	n.Mac = tsch.New(s.cfg.Tsch, id, isRoot, s.d, r, log, s)
	n.Radio = s.medium.AddNode(id, nc.radioConfig())
	n.Radio.Attach(n.Mac)

	n.Rpl = rpl.New(s.cfg.Rpl, id, isRoot, s.d, n.Mac, log)
	n.Rpl.SetCandidates(nc.Parents)

	sched, err := sf.New(s.cfg.Sf, sf.Deps{
		Mac:       n.Mac,
		Routing:   n.Rpl,
		Transport: s.sixp,
		Topology:  s,
		Engine:    s.d,
		Rand:      r,
		Log:       log,
	})
	if err != nil {
		return nil, err
	}
	n.Sf = sched
	n.Rpl.SetParentChangeListener(n.Sf.IndicationParentChange)

	appCfg := *s.cfg.App
	if nc.PacketPeriod != nil {
		appCfg.PacketPeriod = *nc.PacketPeriod
	}
	n.App = app.New(&appCfg, id, isRoot, s.d, n.Mac, n.Rpl, r, log)

	n.Mac.Attach(n.Radio, n.Sf, n.Rpl, n)
	return n, nil
}

func (n *Node) start() {
	n.Mac.Start()
	if n.Mac.IsRoot() {
		n.Rpl.Start()
	}
}

func (n *Node) IsRoot() bool {
	return n.Mac.IsRoot()
}

func (n *Node) OnSynchronized(joinProxy NodeId) {
	n.Rpl.OnSynchronized(joinProxy)
	n.Sf.Start()
	n.App.Start()
}

// OnDesynchronized flushes the queue so that the parent change to nobody clears the old parent link.
func (n *Node) OnDesynchronized() {
	n.App.Stop()
	n.Sf.Stop()
	for _, ft := range []FrameType{FrameTypeDIO, FrameTypeData, FrameTypeSixP, FrameTypeKeepAlive} {
		n.Mac.RemoveFrames(ft, InvalidNodeId)
	}
	n.Rpl.OnDesynchronized()
}

func (n *Node) ReceiveFrame(frame *tsch.Frame) {
	switch frame.Type {
	case FrameTypeDIO:
		n.Rpl.ReceiveDIO(frame)
	case FrameTypeData:
		n.sim.countData(n, frame.Src)
		n.App.ReceiveData(frame)
	default:
		logger.Debugf("Node %d: ignoring %v", n.Id, frame)
	}
}

func (n *Node) OnTxDone(frame *tsch.Frame, acked bool) {
	if !acked && frame.RetriesLeft == 0 {
		logger.Debugf("Node %d: last attempt of %v failed", n.Id, frame)
	}
}

func (n *Node) DropFrame(frame *tsch.Frame, reason tsch.DropReason) {
	logger.Debugf("Node %d: dropped %v (%s)", n.Id, frame, reason)
}

// sf.Peer

func (n *Node) Schedule() *schedule.Table {
	return n.Mac.Schedule()
}

func (n *Node) LockedSlots() *schedule.LockedSlots {
	return n.Sf.LockedSlots()
}

func (n *Node) AddCell(slotOffset int, channelOffset ChannelId, neighbor NodeId, options schedule.CellOptions) *schedule.Cell {
	return n.Mac.AddCell(slotOffset, channelOffset, neighbor, options)
}

func (n *Node) DeleteCell(slotOffset int, channelOffset ChannelId, neighbor NodeId, options schedule.CellOptions) bool {
	return n.Mac.DeleteCell(slotOffset, channelOffset, neighbor, options)
}

// Info returns a display snapshot of the node.
func (n *Node) Info() NodeInfo {
	return NodeInfo{
		Id:              n.Id,
		Root:            n.IsRoot(),
		Synchronized:    n.Mac.IsSynchronized(),
		PreferredParent: n.Rpl.PreferredParent(),
		Rank:            n.Rpl.DagRank(),
		NumCells:        n.Mac.Schedule().Len(),
		NumLocked:       n.Sf.LockedSlots().Len(),
		QueueLen:        len(n.Mac.TxQueue()),
	}
}

func (n *Node) logTopology(op string, fields ...zap.Field) {
	n.log.Log(eventlog.SimulationTopology, append([]zap.Field{zap.String("op", op)}, fields...)...)
}

var (
	_ tsch.Host = (*Node)(nil)
	_ sf.Peer   = (*Node)(nil)
)
