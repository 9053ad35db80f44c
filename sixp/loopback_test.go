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

package sixp

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openthread/tsch-ns/dispatcher"
	"github.com/openthread/tsch-ns/eventlog"
	"github.com/openthread/tsch-ns/schedule"
	. "github.com/openthread/tsch-ns/types"
)

type requestOutcome struct {
	id    TransactionId
	event CallbackEvent
	resp  *Response
	asn   ASN
}

type responseOutcome struct {
	id    TransactionId
	event CallbackEvent
}

type fakeHandler struct {
	d           *dispatcher.Dispatcher
	silent      bool
	received    []*Request
	reqOutcomes []requestOutcome
	rspOutcomes []responseOutcome
}

func (h *fakeHandler) RecvRequest(req *Request) *Response {
	h.received = append(h.received, req)
	if h.silent {
		return nil
	}
	return &Response{ReturnCode: RcSuccess, CellList: req.CellList[:1]}
}

func (h *fakeHandler) OnRequestOutcome(id TransactionId, event CallbackEvent, resp *Response) {
	h.reqOutcomes = append(h.reqOutcomes, requestOutcome{id, event, resp, h.d.Now()})
}

func (h *fakeHandler) OnResponseOutcome(id TransactionId, event CallbackEvent) {
	h.rspOutcomes = append(h.rspOutcomes, responseOutcome{id, event})
}

type fakeNetwork struct {
	handlers    map[NodeId]*fakeHandler
	unsynced    map[NodeId]bool
	unreachable map[[2]NodeId]bool
}

func (n *fakeNetwork) Handler(id NodeId) Handler {
	if h, ok := n.handlers[id]; ok {
		return h
	}
	return nil
}

func (n *fakeNetwork) IsSynchronized(id NodeId) bool  { return !n.unsynced[id] }
func (n *fakeNetwork) Reachable(src, dst NodeId) bool { return !n.unreachable[[2]NodeId{src, dst}] }

type loopbackTest struct {
	lb     *Loopback
	d      *dispatcher.Dispatcher
	net    *fakeNetwork
	events *eventlog.MemorySink
	h1, h2 *fakeHandler
}

func newLoopbackTest(cfg *Config) *loopbackTest {
	d := dispatcher.NewDispatcher(nil)
	lt := &loopbackTest{
		d:      d,
		events: eventlog.NewMemorySink(),
		h1:     &fakeHandler{d: d},
		h2:     &fakeHandler{d: d},
	}
	lt.net = &fakeNetwork{
		handlers:    map[NodeId]*fakeHandler{1: lt.h1, 2: lt.h2},
		unsynced:    map[NodeId]bool{},
		unreachable: map[[2]NodeId]bool{},
	}
	lt.lb = NewLoopback(cfg, d, lt.net, rand.New(rand.NewSource(1)), lt.events)
	return lt
}

func testConfig() *Config {
	return &Config{Latency: 2, Timeout: 10}
}

func addRequest(src, dst NodeId) *Request {
	return &Request{
		Src:         src,
		Dst:         dst,
		Command:     CmdAdd,
		CellOptions: schedule.OptionTx,
		NumCells:    1,
		CellList:    []schedule.CellRef{{SlotOffset: 7, ChannelOffset: 3}, {SlotOffset: 9, ChannelOffset: 1}},
	}
}

func TestRequestResponseAck(t *testing.T) {
	lt := newLoopbackTest(testConfig())
	id := lt.lb.SendRequest(addRequest(1, 2))
	assert.Equal(t, TransactionId(1), id)
	assert.True(t, lt.lb.InFlight(2, 1))

	require.NoError(t, lt.d.RunUntil(1))
	assert.Empty(t, lt.h2.received)
	require.NoError(t, lt.d.RunUntil(2))
	require.Len(t, lt.h2.received, 1)
	assert.Equal(t, id, lt.h2.received[0].TransactionId)

	require.NoError(t, lt.d.RunUntil(4))
	require.Len(t, lt.h1.reqOutcomes, 1)
	out := lt.h1.reqOutcomes[0]
	assert.Equal(t, EventPacketReceived, out.event)
	assert.Equal(t, ASN(4), out.asn)
	assert.Equal(t, RcSuccess, out.resp.ReturnCode)
	assert.Equal(t, NodeId(2), out.resp.Src)
	assert.Equal(t, []schedule.CellRef{{SlotOffset: 7, ChannelOffset: 3}}, out.resp.CellList)
	assert.Equal(t, []responseOutcome{{id, EventMacAckReceived}}, lt.h2.rspOutcomes)
	assert.False(t, lt.lb.InFlight(1, 2))

	require.NoError(t, lt.d.RunUntil(20))
	assert.Len(t, lt.h1.reqOutcomes, 1, "no timeout after a response")
	assert.Len(t, lt.events.OfType(eventlog.SixpTxRequest), 1)
	assert.Len(t, lt.events.OfType(eventlog.SixpTxResponse), 1)
}

func TestBusyPair(t *testing.T) {
	lt := newLoopbackTest(testConfig())
	first := lt.lb.SendRequest(addRequest(1, 2))
	second := lt.lb.SendRequest(addRequest(1, 2))
	reverse := lt.lb.SendRequest(addRequest(2, 1))
	require.NoError(t, lt.d.RunUntil(2))

	require.Len(t, lt.h1.reqOutcomes, 1)
	assert.Equal(t, second, lt.h1.reqOutcomes[0].id)
	assert.Equal(t, RcErrBusy, lt.h1.reqOutcomes[0].resp.ReturnCode)
	require.Len(t, lt.h2.reqOutcomes, 1)
	assert.Equal(t, reverse, lt.h2.reqOutcomes[0].id)
	assert.Equal(t, RcErrBusy, lt.h2.reqOutcomes[0].resp.ReturnCode)
	assert.Len(t, lt.h2.received, 1)

	require.NoError(t, lt.d.RunUntil(4))
	assert.Equal(t, first, lt.h1.reqOutcomes[1].id)
	assert.Equal(t, 2, lt.lb.Stats().NumBusy)
}

func TestTimeoutWhenPeerUnreachable(t *testing.T) {
	lt := newLoopbackTest(testConfig())
	lt.net.unreachable[[2]NodeId{1, 2}] = true
	id := lt.lb.SendRequest(addRequest(1, 2))
	require.NoError(t, lt.d.RunUntil(9))
	assert.Empty(t, lt.h1.reqOutcomes)
	assert.True(t, lt.lb.InFlight(1, 2))

	require.NoError(t, lt.d.RunUntil(10))
	assert.Equal(t, []requestOutcome{{id, EventTimeout, nil, 10}}, lt.h1.reqOutcomes)
	assert.Empty(t, lt.h2.received)
	assert.False(t, lt.lb.InFlight(1, 2))
}

func TestTimeoutWhenPeerUnsynchronized(t *testing.T) {
	lt := newLoopbackTest(testConfig())
	lt.net.unsynced[2] = true
	lt.lb.SendRequest(addRequest(1, 2))
	require.NoError(t, lt.d.RunUntil(10))
	require.Len(t, lt.h1.reqOutcomes, 1)
	assert.Equal(t, EventTimeout, lt.h1.reqOutcomes[0].event)
	assert.Empty(t, lt.h2.received)
}

func TestTimeoutWhenPeerStaysSilent(t *testing.T) {
	lt := newLoopbackTest(testConfig())
	lt.h2.silent = true
	lt.lb.SendRequest(addRequest(1, 2))
	require.NoError(t, lt.d.RunUntil(10))
	assert.Len(t, lt.h2.received, 1)
	require.Len(t, lt.h1.reqOutcomes, 1)
	assert.Equal(t, EventTimeout, lt.h1.reqOutcomes[0].event)
	assert.Empty(t, lt.h2.rspOutcomes)
	assert.Equal(t, 1, lt.lb.Stats().NumTimeouts)
}

func TestLostResponse(t *testing.T) {
	lt := newLoopbackTest(testConfig())
	lt.net.unreachable[[2]NodeId{2, 1}] = true
	id := lt.lb.SendRequest(addRequest(1, 2))
	require.NoError(t, lt.d.RunUntil(4))
	assert.Len(t, lt.h2.received, 1)
	assert.Equal(t, []requestOutcome{{id, EventTimeout, nil, 4}}, lt.h1.reqOutcomes)
	assert.Equal(t, []responseOutcome{{id, EventTimeout}}, lt.h2.rspOutcomes)
}

func TestLostAckOfResponse(t *testing.T) {
	cfg := testConfig()
	cfg.AckLossProbability = 1.0
	lt := newLoopbackTest(cfg)
	id := lt.lb.SendRequest(addRequest(1, 2))
	require.NoError(t, lt.d.RunUntil(4))
	require.Len(t, lt.h1.reqOutcomes, 1)
	assert.Equal(t, EventPacketReceived, lt.h1.reqOutcomes[0].event)
	assert.Equal(t, []responseOutcome{{id, EventTimeout}}, lt.h2.rspOutcomes)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, (&Config{Latency: 0, Timeout: 10}).Validate())
	assert.Error(t, (&Config{Latency: 5, Timeout: 10}).Validate())
	assert.Error(t, (&Config{Latency: 1, Timeout: 10, LossProbability: 1.5}).Validate())
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "RELOCATE", CmdRelocate.String())
	assert.Equal(t, "ERR_BUSY", RcErrBusy.String())
	assert.Equal(t, "MAC_ACK_RECEIVED", EventMacAckReceived.String())
	assert.Equal(t, "Command(9)", Command(9).String())
}
