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
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/openthread/tsch-ns/dispatcher"
	"github.com/openthread/tsch-ns/eventlog"
	"github.com/openthread/tsch-ns/logger"
	. "github.com/openthread/tsch-ns/types"
)

// Engine is the event clock the transport schedules deliveries on.
type Engine interface {
	Now() ASN
	ScheduleAt(asn ASN, order dispatcher.IntraSlotOrder, tag dispatcher.Tag, cb func())
}

// Network resolves the endpoints of the loopback transport.
type Network interface {
	// Handler returns the negotiation handler of a node, or nil if the node does not exist.
	Handler(id NodeId) Handler
	IsSynchronized(id NodeId) bool
	Reachable(src, dst NodeId) bool
}

type pairKey struct {
	a, b NodeId
}

func newPairKey(x, y NodeId) pairKey {
	if x > y {
		x, y = y, x
	}
	return pairKey{x, y}
}

type LoopbackStats struct {
	NumRequests  int
	NumResponses int
	NumBusy      int
	NumTimeouts  int
}

// Loopback delivers negotiation messages directly between the handlers of two nodes after a fixed
// latency, outside of the TSCH schedule. A pair of nodes has at most one transaction in flight.
type Loopback struct {
	cfg      *Config
	engine   Engine
	net      Network
	rand     *rand.Rand
	sink     eventlog.Sink
	nextId   TransactionId
	inflight map[pairKey]TransactionId
	stats    LoopbackStats
}

func NewLoopback(cfg *Config, engine Engine, net Network, r *rand.Rand, sink eventlog.Sink) *Loopback {
	return &Loopback{
		cfg:      cfg,
		engine:   engine,
		net:      net,
		rand:     r,
		sink:     sink,
		inflight: map[pairKey]TransactionId{},
	}
}

func (lb *Loopback) Stats() LoopbackStats {
	return lb.stats
}

// InFlight reports whether a transaction between a and b is pending.
func (lb *Loopback) InFlight(a, b NodeId) bool {
	_, ok := lb.inflight[newPairKey(a, b)]
	return ok
}

func (lb *Loopback) log(id NodeId, t eventlog.EventType, fields ...zap.Field) {
	eventlog.NewLogger(lb.sink, lb.engine, id).Log(t, fields...)
}

func (lb *Loopback) at(delay uint64, owner NodeId, id TransactionId, step string, cb func()) {
	tag := dispatcher.Tag{NodeId: owner, Purpose: fmt.Sprintf("sixp.%d.%s", id, step)}
	lb.engine.ScheduleAt(lb.engine.Now()+delay, dispatcher.OrderStackTasks, tag, cb)
}

// SendRequest starts a transaction and returns its id. Every outcome is delivered later, never from
// within this call.
func (lb *Loopback) SendRequest(req *Request) TransactionId {
	logger.AssertTrue(req.Src != req.Dst)
	lb.nextId++
	id := lb.nextId
	req.TransactionId = id
	lb.stats.NumRequests++
	lb.log(req.Src, eventlog.SixpTxRequest,
		zap.Uint64("txn", uint64(id)),
		zap.Int("dst", req.Dst),
		zap.Stringer("command", req.Command),
		zap.Stringer("cellOptions", req.CellOptions),
		zap.Int("numCells", req.NumCells))

	initiator := lb.net.Handler(req.Src)
	logger.AssertNotNil(initiator, "sixp request from unknown node %d", req.Src)

	pair := newPairKey(req.Src, req.Dst)
	if _, busy := lb.inflight[pair]; busy {
		lb.stats.NumBusy++
		resp := &Response{TransactionId: id, Src: req.Dst, Dst: req.Src, ReturnCode: RcErrBusy}
		lb.at(lb.cfg.Latency, req.Src, id, "busy", func() {
			lb.completeRequest(req.Src, initiator, id, EventPacketReceived, resp)
		})
		return id
	}
	lb.inflight[pair] = id

	lb.at(lb.cfg.Latency, req.Src, id, "request", func() {
		lb.deliverRequest(req, initiator)
	})
	return id
}

func (lb *Loopback) lost(src, dst NodeId) bool {
	if !lb.net.Reachable(src, dst) || !lb.net.IsSynchronized(dst) {
		return true
	}
	return lb.cfg.LossProbability > 0 && lb.rand.Float64() < lb.cfg.LossProbability
}

func (lb *Loopback) deliverRequest(req *Request, initiator Handler) {
	id := req.TransactionId
	// the timeout runs from the moment the request was sent
	remaining := lb.cfg.Timeout - lb.cfg.Latency
	responder := lb.net.Handler(req.Dst)
	if responder == nil || lb.lost(req.Src, req.Dst) {
		lb.at(remaining, req.Src, id, "timeout", func() {
			lb.finish(req)
			lb.completeRequest(req.Src, initiator, id, EventTimeout, nil)
		})
		return
	}

	lb.log(req.Dst, eventlog.SixpRxRequest,
		zap.Uint64("txn", uint64(id)),
		zap.Int("src", req.Src),
		zap.Stringer("command", req.Command))
	resp := responder.RecvRequest(req)
	if resp == nil {
		lb.at(remaining, req.Src, id, "timeout", func() {
			lb.finish(req)
			lb.completeRequest(req.Src, initiator, id, EventTimeout, nil)
		})
		return
	}
	resp.TransactionId, resp.Src, resp.Dst = id, req.Dst, req.Src
	lb.stats.NumResponses++
	lb.log(req.Dst, eventlog.SixpTxResponse,
		zap.Uint64("txn", uint64(id)),
		zap.Int("dst", req.Src),
		zap.Stringer("returnCode", resp.ReturnCode),
		zap.Int("numCells", len(resp.CellList)))

	lb.at(lb.cfg.Latency, req.Src, id, "response", func() {
		lb.finish(req)
		if lb.lost(req.Dst, req.Src) {
			lb.completeRequest(req.Src, initiator, id, EventTimeout, nil)
			lb.completeResponse(req.Dst, responder, id, EventTimeout)
			return
		}
		lb.completeRequest(req.Src, initiator, id, EventPacketReceived, resp)
		if lb.cfg.AckLossProbability > 0 && lb.rand.Float64() < lb.cfg.AckLossProbability {
			lb.completeResponse(req.Dst, responder, id, EventTimeout)
		} else {
			lb.completeResponse(req.Dst, responder, id, EventMacAckReceived)
		}
	})
}

func (lb *Loopback) finish(req *Request) {
	pair := newPairKey(req.Src, req.Dst)
	if lb.inflight[pair] == req.TransactionId {
		delete(lb.inflight, pair)
	}
}

func (lb *Loopback) logOutcome(node NodeId, id TransactionId, event CallbackEvent) {
	if event == EventTimeout {
		lb.stats.NumTimeouts++
	}
	lb.log(node, eventlog.SixpOutcome, zap.Uint64("txn", uint64(id)), zap.Stringer("event", event))
}

func (lb *Loopback) completeRequest(node NodeId, h Handler, id TransactionId, event CallbackEvent, resp *Response) {
	lb.logOutcome(node, id, event)
	h.OnRequestOutcome(id, event, resp)
}

func (lb *Loopback) completeResponse(node NodeId, h Handler, id TransactionId, event CallbackEvent) {
	lb.logOutcome(node, id, event)
	h.OnResponseOutcome(id, event)
}
