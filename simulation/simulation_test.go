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
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openthread/tsch-ns/eventlog"
	"github.com/openthread/tsch-ns/schedule"
	"github.com/openthread/tsch-ns/sf"
	. "github.com/openthread/tsch-ns/types"
)

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Seed = 1
	cfg.App.PacketPeriod = 300
	return cfg
}

func newTestSimulation(t *testing.T, cfg *Config, sc *Scenario) (*Simulation, *eventlog.MemorySink) {
	events := eventlog.NewMemorySink()
	s, err := NewSimulationFromScenario(cfg, "test-run", sc, events)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, events
}

func (s *Simulation) allSynchronized() bool {
	for _, n := range s.nodes {
		if !n.Mac.IsSynchronized() {
			return false
		}
	}
	return true
}

// runUntilJoined advances in steps until every node is synchronized, or fails after maxSlots.
func runUntilJoined(t *testing.T, s *Simulation, maxSlots uint64) {
	for s.Asn() < maxSlots && !s.allSynchronized() {
		require.NoError(t, s.Go(1000))
	}
	require.True(t, s.allSynchronized(), "network did not form within %d slots", maxSlots)
}

func TestLinearNetworkFormsAndDelivers(t *testing.T) {
	s, events := newTestSimulation(t, testConfig(), LinearScenario(3, 40))
	assert.Equal(t, "test-run", s.RunId())
	assert.Equal(t, []NodeId{1, 2, 3}, s.NodeIds())
	assert.True(t, s.Node(1).Mac.IsSynchronized())

	runUntilJoined(t, s, 200000)
	assert.Equal(t, 1, s.Node(2).Rpl.PreferredParent())
	assert.Equal(t, 2, s.Node(3).Rpl.PreferredParent())
	// the shared cell to the parent is written on both sides
	assert.NotEmpty(t, s.Node(3).Mac.Schedule().SharedCellsTo(2))
	assert.NotEmpty(t, s.Node(2).Mac.Schedule().SharedCellsTo(3))

	require.NoError(t, s.Go(30000))
	assert.NoError(t, s.Dispatcher().Err())
	assert.Greater(t, s.Node(1).App.Stats().NumReceived, 0)
	assert.NotEmpty(t, events.OfType(eventlog.AppRx))
	assert.NotEmpty(t, events.OfType(eventlog.TschSynced))

	for _, id := range s.NodeIds() {
		occupied := map[int]bool{}
		for _, c := range s.Node(id).Mac.Schedule().Cells() {
			assert.False(t, occupied[c.SlotOffset])
			occupied[c.SlotOffset] = true
		}
	}
}

func TestSameSeedSameRun(t *testing.T) {
	run := func() (ASN, int) {
		s, events := newTestSimulation(t, testConfig(), LinearScenario(3, 40))
		require.NoError(t, s.Go(20000))
		return s.Asn(), len(events.Records)
	}
	asn1, n1 := run()
	asn2, n2 := run()
	assert.Equal(t, asn1, asn2)
	assert.Equal(t, n1, n2)
}

func TestAddNodeErrors(t *testing.T) {
	s, _ := newTestSimulation(t, testConfig(), LinearScenario(2, 40))

	_, err := s.AddNode(&NodeConfig{Id: 2}, false)
	assert.True(t, errors.Is(err, ErrNodeExists))

	_, err = s.AddNode(&NodeConfig{Id: 5}, true)
	assert.Error(t, err)

	_, err = s.AddNode(&NodeConfig{Id: 6, Parents: []NodeId{6}}, false)
	assert.Error(t, err)

	n, err := s.AddNode(&NodeConfig{Id: 7, Parents: []NodeId{1}}, false)
	require.NoError(t, err)
	assert.False(t, n.Mac.IsSynchronized())
	assert.Equal(t, n, s.Node(7))
	assert.Nil(t, s.Peer(42))
	assert.Nil(t, s.Handler(42))
}

func TestSetParentAndDesync(t *testing.T) {
	s, events := newTestSimulation(t, testConfig(), LinearScenario(3, 40))
	runUntilJoined(t, s, 200000)

	require.NoError(t, s.SetParent(3, 1))
	assert.Equal(t, 1, s.Node(3).Rpl.PreferredParent())
	assert.Contains(t, s.Node(3).Rpl.OldParents(), 2)
	assert.NotEmpty(t, s.Node(3).Mac.Schedule().SharedCellsTo(1))
	assert.Len(t, events.OfType(eventlog.SimulationTopology), 1)

	assert.Error(t, s.SetParent(1, 2), "root has no parent")
	assert.Error(t, s.SetParent(3, 3))
	assert.True(t, errors.Is(s.SetParent(3, 9), ErrNodeNotFound))
	assert.True(t, errors.Is(s.SetParent(9, 1), ErrNodeNotFound))

	require.NoError(t, s.Desync(3))
	assert.False(t, s.Node(3).Mac.IsSynchronized())
	assert.Equal(t, InvalidNodeId, s.Node(3).Rpl.PreferredParent())
	assert.Empty(t, s.Node(3).Mac.TxQueue())
	assert.Error(t, s.Desync(3), "already unsynchronized")
	assert.Error(t, s.Desync(1), "root")
	assert.Error(t, s.SetParent(3, 2), "unsynchronized")

	runUntilJoined(t, s, s.Asn()+200000)
	assert.NoError(t, s.Dispatcher().Err())
}

func TestTallyForcesParentReselection(t *testing.T) {
	cfg := testConfig()
	cfg.Sf.Class = sf.ClassNone
	cfg.MaxDataPktsThroughSharedCell = 3
	s, events := newTestSimulation(t, cfg, LinearScenario(3, 40))

	child, parent := s.Node(3), s.Node(2)
	child.Rpl.SetPreferredParent(2)
	key := LinkKey{Receiver: 2, Sender: 3}

	for i := 0; i < 3; i++ {
		s.countData(parent, 3)
	}
	assert.Equal(t, 3, s.Tally(key))
	assert.Equal(t, 2, child.Rpl.PreferredParent())

	s.countData(parent, 3)
	assert.Equal(t, 0, s.Tally(key))
	assert.Equal(t, 1, child.Rpl.PreferredParent())
	assert.Len(t, events.OfType(eventlog.SimulationTallyTrip), 1)

	// frames from a node that is not a child are only counted
	for i := 0; i < 5; i++ {
		s.countData(s.Node(1), 2)
	}
	assert.Equal(t, 5, s.Tally(LinkKey{Receiver: 1, Sender: 2}))
}

func TestTallyIgnoresDedicatedLinks(t *testing.T) {
	cfg := testConfig()
	cfg.Sf.Class = sf.ClassNone
	s, _ := newTestSimulation(t, cfg, LinearScenario(2, 40))
	s.Node(1).Mac.AddCell(5, 1, 2, schedule.OptionRx)

	s.countData(s.Node(1), 2)
	assert.Equal(t, 0, s.Tally(LinkKey{Receiver: 1, Sender: 2}))
}

func TestNodeInfo(t *testing.T) {
	s, _ := newTestSimulation(t, testConfig(), LinearScenario(2, 40))
	info := s.Node(1).Info()
	assert.Equal(t, NodeInfo{Id: 1, Root: true, Synchronized: true, Rank: 256, NumCells: 1}, info)
}
