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

// Package app generates the periodic upstream DATA traffic of the nodes and forwards it hop by hop to
// the root.
package app

import (
	"math/rand"

	"go.uber.org/zap"

	"github.com/openthread/tsch-ns/dispatcher"
	"github.com/openthread/tsch-ns/eventlog"
	"github.com/openthread/tsch-ns/logger"
	"github.com/openthread/tsch-ns/prng"
	"github.com/openthread/tsch-ns/tsch"
	. "github.com/openthread/tsch-ns/types"
)

const purposeSend = "app.send"

// Packet is the payload of a DATA frame.
type Packet struct {
	Origin     NodeId
	Seq        int
	Hops       int
	CreatedAsn ASN
}

type Mac interface {
	Enqueue(frame *tsch.Frame, priority bool) bool
}

type Routing interface {
	PreferredParent() NodeId
}

type Stats struct {
	NumGenerated int
	NumForwarded int
	NumReceived  int
	// NumNoRoute counts packets that could not leave because the node had no parent.
	NumNoRoute int
}

type App struct {
	cfg     *Config
	id      NodeId
	isRoot  bool
	engine  tsch.Engine
	mac     Mac
	routing Routing
	rand    *rand.Rand
	log     *eventlog.Logger

	seq   int
	stats Stats
}

func New(cfg *Config, id NodeId, isRoot bool, engine tsch.Engine, mac Mac, routing Routing, r *rand.Rand,
	log *eventlog.Logger) *App {
	return &App{
		cfg:     cfg,
		id:      id,
		isRoot:  isRoot,
		engine:  engine,
		mac:     mac,
		routing: routing,
		rand:    r,
		log:     log,
	}
}

func (a *App) Stats() Stats {
	return a.stats
}

func (a *App) tag() dispatcher.Tag {
	return dispatcher.Tag{NodeId: a.id, Purpose: purposeSend}
}

// Start arms the packet timer of a non-root node.
func (a *App) Start() {
	if a.isRoot || a.cfg.PacketPeriod == 0 {
		return
	}
	a.scheduleNext()
}

func (a *App) Stop() {
	a.engine.Cancel(a.tag())
}

func (a *App) scheduleNext() {
	period := float64(a.cfg.PacketPeriod)
	delay := uint64(prng.Uniform(a.rand, period*(1-a.cfg.Jitter), period*(1+a.cfg.Jitter)))
	if delay == 0 {
		delay = 1
	}
	a.engine.ScheduleAt(a.engine.Now()+delay, dispatcher.OrderStackTasks, a.tag(), a.sendPacket)
}

func (a *App) sendPacket() {
	a.seq++
	pkt := &Packet{Origin: a.id, Seq: a.seq, CreatedAsn: a.engine.Now()}
	if a.send(pkt) {
		a.stats.NumGenerated++
		a.log.Log(eventlog.AppTx, zap.Int("seq", pkt.Seq), zap.Int("dst", a.routing.PreferredParent()))
	}
	a.scheduleNext()
}

func (a *App) send(pkt *Packet) bool {
	parent := a.routing.PreferredParent()
	if parent == InvalidNodeId {
		a.stats.NumNoRoute++
		return false
	}
	return a.mac.Enqueue(&tsch.Frame{
		Type:    FrameTypeData,
		Src:     a.id,
		Dst:     parent,
		Payload: pkt,
	}, false)
}

// ReceiveData consumes a DATA frame at the root and forwards a copy to the parent elsewhere.
func (a *App) ReceiveData(frame *tsch.Frame) {
	pkt, ok := frame.Payload.(*Packet)
	if !ok {
		logger.Warnf("Node %d: DATA from %d without packet", a.id, frame.Src)
		return
	}
	hops := pkt.Hops + 1
	if a.isRoot {
		a.stats.NumReceived++
		a.log.Log(eventlog.AppRx,
			zap.Int("origin", pkt.Origin),
			zap.Int("seq", pkt.Seq),
			zap.Int("hops", hops),
			zap.Uint64("latency", a.engine.Now()-pkt.CreatedAsn))
		return
	}
	fwd := *pkt
	fwd.Hops = hops
	if a.send(&fwd) {
		a.stats.NumForwarded++
	}
}
