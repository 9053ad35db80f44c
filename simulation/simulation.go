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

// Package simulation is the context of a simulation run: it owns the event dispatcher, the radio medium,
// the negotiation transport and the node registry, and it is the only place where one node may touch
// another node's state.
package simulation

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/openthread/tsch-ns/dispatcher"
	"github.com/openthread/tsch-ns/eventlog"
	"github.com/openthread/tsch-ns/logger"
	"github.com/openthread/tsch-ns/prng"
	"github.com/openthread/tsch-ns/radiomodel"
	"github.com/openthread/tsch-ns/schedule"
	"github.com/openthread/tsch-ns/sf"
	"github.com/openthread/tsch-ns/sixp"
	"github.com/openthread/tsch-ns/tsch"
	. "github.com/openthread/tsch-ns/types"
)

type Simulation struct {
	cfg    *Config
	runId  string
	d      *dispatcher.Dispatcher
	rand   *prng.Generator
	sink   *eventlog.MultiSink
	medium *radiomodel.Medium
	sixp   *sixp.Loopback
	nodes  map[NodeId]*Node
	tally  map[LinkKey]int
}

// NewRunId returns a fresh run identifier.
func NewRunId() string {
	return uuid.NewString()
}

// NewSimulation creates an empty simulation. An empty runId gets a fresh one. Every event record goes to
// each of sinks.
func NewSimulation(cfg *Config, runId string, sinks ...eventlog.Sink) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if runId == "" {
		runId = NewRunId()
	}
	s := &Simulation{
		cfg:   cfg,
		runId: runId,
		d:     dispatcher.NewDispatcher(cfg.Dispatcher),
		rand:  prng.New(cfg.Seed),
		sink:  eventlog.NewMultiSink(sinks...),
		nodes: map[NodeId]*Node{},
		tally: map[LinkKey]int{},
	}

	medium, err := radiomodel.NewMedium(cfg.Radio, s.d, s.rand.NewRadioModelRand(), s.sink)
	if err != nil {
		return nil, err
	}
	s.medium = medium
	s.sixp = sixp.NewLoopback(cfg.Sixp, s.d, s, s.rand.NewSixpRand(), s.sink)

	logger.Infof("simulation %s created, seed %d, scheduling function %s", s.runId, s.rand.RootSeed(), cfg.Sf.Class)
	return s, nil
}

// NewSimulationFromScenario creates a simulation and starts every node of sc.
func NewSimulationFromScenario(cfg *Config, runId string, sc *Scenario, sinks ...eventlog.Sink) (*Simulation, error) {
	s, err := NewSimulation(cfg, runId, sinks...)
	if err != nil {
		return nil, err
	}
	if err := s.LoadScenario(sc); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadScenario adds and starts the nodes of sc, then applies its link overrides.
func (s *Simulation) LoadScenario(sc *Scenario) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	nodes := append([]NodeConfig(nil), sc.Nodes...)
	slices.SortFunc(nodes, func(a, b NodeConfig) bool { return a.Id < b.Id })
	for i := range nodes {
		if _, err := s.AddNode(&nodes[i], nodes[i].Id == sc.Root); err != nil {
			return err
		}
	}
	for _, l := range sc.Links {
		s.medium.SetLinkPdr(l.Src, l.Dst, l.Pdr)
		if l.Symmetric {
			s.medium.SetLinkPdr(l.Dst, l.Src, l.Pdr)
		}
	}
	return nil
}

// AddNode creates and starts a node.
func (s *Simulation) AddNode(nc *NodeConfig, isRoot bool) (*Node, error) {
	if s.nodes[nc.Id] != nil {
		return nil, errors.Wrapf(ErrNodeExists, "node %d", nc.Id)
	}
	if isRoot {
		for _, n := range s.nodes {
			if n.IsRoot() {
				return nil, errors.Errorf("node %d is already the root", n.Id)
			}
		}
	}
	for _, p := range nc.Parents {
		if p == nc.Id {
			return nil, errors.Errorf("node %d cannot be its own parent", nc.Id)
		}
	}

	n, err := newNode(s, nc, isRoot)
	if err != nil {
		return nil, errors.Wrapf(err, "create node %d", nc.Id)
	}
	s.nodes[nc.Id] = n
	n.start()
	logger.Debugf("simulation: added node %d (root=%v, parents=%v)", nc.Id, isRoot, nc.Parents)
	return n, nil
}

func (s *Simulation) RunId() string                      { return s.runId }
func (s *Simulation) Config() *Config                    { return s.cfg }
func (s *Simulation) Dispatcher() *dispatcher.Dispatcher { return s.d }
func (s *Simulation) Medium() *radiomodel.Medium         { return s.medium }
func (s *Simulation) Transport() *sixp.Loopback          { return s.sixp }
func (s *Simulation) Seed() int64                        { return s.rand.RootSeed() }
func (s *Simulation) Asn() ASN                           { return s.d.Now() }

// Node returns the node with the given id, or nil.
func (s *Simulation) Node(id NodeId) *Node {
	return s.nodes[id]
}

// NodeIds returns the ids of all nodes, sorted.
func (s *Simulation) NodeIds() []NodeId {
	ids := make([]NodeId, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *Simulation) mustNode(id NodeId) (*Node, error) {
	n := s.nodes[id]
	if n == nil {
		return nil, errors.Wrapf(ErrNodeNotFound, "node %d", id)
	}
	return n, nil
}

// Go advances the simulation. A fatal schedule error ends the run for good and is returned, now and on
// every later call.
func (s *Simulation) Go(slots uint64) error {
	if err := s.d.Err(); err != nil {
		return errors.Wrap(ErrStopped, err.Error())
	}
	err := s.d.Go(slots)
	if err != nil {
		var fe *schedule.FatalScheduleError
		if errors.As(err, &fe) {
			eventlog.NewLogger(s.sink, s.d, fe.NodeId).Log(eventlog.SimulationFatal,
				zap.String("op", fe.Op),
				zap.Int("slotOffset", fe.SlotOffset),
				zap.Error(fe.Err))
		}
	}
	return err
}

// Close flushes and closes the event sinks.
func (s *Simulation) Close() error {
	return s.sink.Close()
}

// Topology mutations. These are the only operations that write into more than one node.

// SetParent makes parent the preferred parent of node id. Both must exist and id must be synchronized.
func (s *Simulation) SetParent(id, parent NodeId) error {
	n, err := s.mustNode(id)
	if err != nil {
		return err
	}
	if n.IsRoot() {
		return errors.Errorf("node %d is the root", id)
	}
	if parent == id {
		return errors.Errorf("node %d cannot be its own parent", id)
	}
	if _, err := s.mustNode(parent); err != nil {
		return err
	}
	if !n.Mac.IsSynchronized() {
		return errors.Errorf("node %d is not synchronized", id)
	}
	n.logTopology("set_parent", zap.Int("parent", parent))
	n.Rpl.SetPreferredParent(parent)
	return nil
}

// Desync moves a node back to listening for EBs.
func (s *Simulation) Desync(id NodeId) error {
	n, err := s.mustNode(id)
	if err != nil {
		return err
	}
	if n.IsRoot() {
		return errors.Errorf("node %d is the root", id)
	}
	if !n.Mac.IsSynchronized() {
		return errors.Errorf("node %d is not synchronized", id)
	}
	n.logTopology("desync")
	n.Mac.SetSynchronized(false)
	return nil
}

// Tally returns the number of DATA frames counted on a link without dedicated cells.
func (s *Simulation) Tally(key LinkKey) int {
	return s.tally[key]
}

// countData counts a DATA frame that receiver got from sender without sharing a dedicated cell with it.
// A sender that keeps reaching its preferred parent this way switches parent.
func (s *Simulation) countData(receiver *Node, sender NodeId) {
	if len(receiver.Mac.Schedule().DedicatedCellsTo(sender)) > 0 {
		return
	}
	key := LinkKey{Receiver: receiver.Id, Sender: sender}
	s.tally[key]++

	limit := s.cfg.MaxDataPktsThroughSharedCell
	src := s.nodes[sender]
	if limit == 0 || src == nil || src.Rpl.PreferredParent() != receiver.Id || s.tally[key] <= limit {
		return
	}
	src.log.Log(eventlog.SimulationTallyTrip, zap.Int("parent", receiver.Id), zap.Int("count", s.tally[key]))
	delete(s.tally, key)
	src.Rpl.ForceParentReselection()
}

// tsch.Peers

func (s *Simulation) ClockOf(id NodeId) *tsch.Clock {
	if n := s.nodes[id]; n != nil {
		return n.Mac.Clock()
	}
	return nil
}

func (s *Simulation) PreferredParentOf(id NodeId) NodeId {
	if n := s.nodes[id]; n != nil {
		return n.Rpl.PreferredParent()
	}
	return InvalidNodeId
}

func (s *Simulation) HasPendingFrames(from, to NodeId) bool {
	if n := s.nodes[from]; n != nil {
		return n.Mac.HasPendingFramesTo(to)
	}
	return false
}

func (s *Simulation) IsSlotLockedBy(id NodeId, slotOffset int) bool {
	if n := s.nodes[id]; n != nil {
		return n.Sf.LockedSlots().Contains(slotOffset)
	}
	return false
}

// sf.Topology

func (s *Simulation) Peer(id NodeId) sf.Peer {
	if n := s.nodes[id]; n != nil {
		return n
	}
	return nil
}

// sixp.Network

func (s *Simulation) Handler(id NodeId) sixp.Handler {
	if n := s.nodes[id]; n != nil {
		return n.Sf
	}
	return nil
}

func (s *Simulation) IsSynchronized(id NodeId) bool {
	n := s.nodes[id]
	return n != nil && n.Mac.IsSynchronized()
}

func (s *Simulation) Reachable(src, dst NodeId) bool {
	return s.medium.Reachable(src, dst)
}

var (
	_ tsch.Peers   = (*Simulation)(nil)
	_ sf.Topology  = (*Simulation)(nil)
	_ sixp.Network = (*Simulation)(nil)
)
