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

package app

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openthread/tsch-ns/dispatcher"
	"github.com/openthread/tsch-ns/eventlog"
	"github.com/openthread/tsch-ns/tsch"
	. "github.com/openthread/tsch-ns/types"
)

type fakeMac struct {
	frames []*tsch.Frame
}

func (m *fakeMac) Enqueue(frame *tsch.Frame, priority bool) bool {
	m.frames = append(m.frames, frame)
	return true
}

type fakeRouting NodeId

func (r fakeRouting) PreferredParent() NodeId { return NodeId(r) }

func newTestApp(id NodeId, isRoot bool, parent NodeId, cfg *Config) (*App, *dispatcher.Dispatcher, *fakeMac, *eventlog.MemorySink) {
	d := dispatcher.NewDispatcher(nil)
	mac := &fakeMac{}
	events := eventlog.NewMemorySink()
	a := New(cfg, id, isRoot, d, mac, fakeRouting(parent), rand.New(rand.NewSource(int64(id))),
		eventlog.NewLogger(events, d, id))
	return a, d, mac, events
}

func TestPeriodicPacketsToParent(t *testing.T) {
	a, d, mac, events := newTestApp(3, false, 2, &Config{PacketPeriod: 100, Jitter: 0.25})
	a.Start()
	require.NoError(t, d.RunUntil(1000))

	n := len(mac.frames)
	assert.GreaterOrEqual(t, n, 8)
	assert.LessOrEqual(t, n, 13)
	for i, f := range mac.frames {
		assert.Equal(t, FrameTypeData, f.Type)
		assert.Equal(t, NodeId(2), f.Dst)
		pkt := f.Payload.(*Packet)
		assert.Equal(t, NodeId(3), pkt.Origin)
		assert.Equal(t, i+1, pkt.Seq)
		assert.Equal(t, 0, pkt.Hops)
	}
	assert.Equal(t, n, a.Stats().NumGenerated)
	assert.Len(t, events.OfType(eventlog.AppTx), n)

	a.Stop()
	require.NoError(t, d.RunUntil(2000))
	assert.Len(t, mac.frames, n)
}

func TestRootAndDisabledAppsStayQuiet(t *testing.T) {
	root, d, mac, _ := newTestApp(1, true, InvalidNodeId, DefaultConfig())
	root.Start()
	other, _, _, _ := newTestApp(2, false, 1, &Config{})
	other.Start()
	require.NoError(t, d.RunUntil(5000))
	assert.Empty(t, mac.frames)
	assert.Equal(t, 0, d.Pending())
}

func TestNoParentNoPacket(t *testing.T) {
	a, d, mac, _ := newTestApp(3, false, InvalidNodeId, &Config{PacketPeriod: 10})
	a.Start()
	require.NoError(t, d.RunUntil(35))
	assert.Empty(t, mac.frames)
	assert.Equal(t, 3, a.Stats().NumNoRoute)
}

func TestForwardAndDeliver(t *testing.T) {
	relay, _, mac, _ := newTestApp(2, false, 1, DefaultConfig())
	in := &Packet{Origin: 3, Seq: 7, Hops: 0}
	relay.ReceiveData(&tsch.Frame{Type: FrameTypeData, Src: 3, Dst: 2, Payload: in})
	require.Len(t, mac.frames, 1)
	fwd := mac.frames[0]
	assert.Equal(t, NodeId(1), fwd.Dst)
	assert.Equal(t, NodeId(2), fwd.Src)
	assert.Equal(t, &Packet{Origin: 3, Seq: 7, Hops: 1}, fwd.Payload)
	assert.Equal(t, 0, in.Hops)
	assert.Equal(t, 1, relay.Stats().NumForwarded)

	root, _, rootMac, events := newTestApp(1, true, InvalidNodeId, DefaultConfig())
	root.ReceiveData(fwd)
	assert.Empty(t, rootMac.frames)
	assert.Equal(t, 1, root.Stats().NumReceived)
	rx := events.OfType(eventlog.AppRx)
	require.Len(t, rx, 1)
	hops, ok := rx[0].Field("hops")
	require.True(t, ok)
	assert.Equal(t, int64(2), hops.Integer)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, (&Config{PacketPeriod: 10, Jitter: 1}).Validate())
}
