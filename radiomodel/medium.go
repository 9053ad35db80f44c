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

package radiomodel

import (
	"math/rand"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/openthread/tsch-ns/dispatcher"
	"github.com/openthread/tsch-ns/eventlog"
	"github.com/openthread/tsch-ns/logger"
	"github.com/openthread/tsch-ns/tsch"
	. "github.com/openthread/tsch-ns/types"
)

const purposePropagate = "radio.propagate"

type linkKey struct {
	Src, Dst NodeId
}

type transmission struct {
	src     *RadioNode
	channel ChannelId
	frame   *tsch.Frame
	acked   bool
}

// Medium collects the radio operations started in a slot and resolves them at OrderPropagate of the
// same slot.
type Medium struct {
	cfg     *Config
	engine  tsch.Engine
	rand    *rand.Rand
	sink    eventlog.Sink
	model   LinkModel
	nodes   map[NodeId]*RadioNode
	linkPdr map[linkKey]float64

	pendingTx []*transmission
	pendingRx []*RadioNode
}

func NewMedium(cfg *Config, engine tsch.Engine, r *rand.Rand, sink eventlog.Sink) (*Medium, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	model, err := NewLinkModel(cfg)
	if err != nil {
		return nil, err
	}
	return &Medium{
		cfg:     cfg,
		engine:  engine,
		rand:    r,
		sink:    sink,
		model:   model,
		nodes:   map[NodeId]*RadioNode{},
		linkPdr: map[linkKey]float64{},
	}, nil
}

func (m *Medium) Model() LinkModel {
	return m.model
}

// AddNode attaches a new radio to the medium.
func (m *Medium) AddNode(id NodeId, cfg *RadioNodeConfig) *RadioNode {
	logger.AssertNil(m.nodes[id], "radio node %d already exists", id)
	radioRange := cfg.RadioRange
	if radioRange <= 0 {
		radioRange = m.cfg.RadioRange
	}
	rn := &RadioNode{
		Id:           id,
		RadioRange:   radioRange,
		RadioChannel: -1,
		X:            cfg.X,
		Y:            cfg.Y,
		Z:            cfg.Z,
		medium:       m,
		log:          eventlog.NewLogger(m.sink, m.engine, id),
	}
	m.nodes[id] = rn
	return rn
}

func (m *Medium) GetNode(id NodeId) *RadioNode {
	return m.nodes[id]
}

// SetLinkPdr overrides the PDR of the directed link src->dst computed by the link model.
func (m *Medium) SetLinkPdr(src, dst NodeId, pdr float64) {
	logger.AssertTrue(pdr >= 0 && pdr <= 1, "PDR out of range: %v", pdr)
	m.linkPdr[linkKey{src, dst}] = pdr
}

// Pdr returns the delivery ratio of the directed link src->dst.
func (m *Medium) Pdr(src, dst NodeId) float64 {
	if pdr, ok := m.linkPdr[linkKey{src, dst}]; ok {
		return pdr
	}
	s, d := m.nodes[src], m.nodes[dst]
	if s == nil || d == nil {
		return 0.0
	}
	return m.model.Pdr(s, d)
}

// Reachable reports whether a frame from src can be heard by dst at all.
func (m *Medium) Reachable(src, dst NodeId) bool {
	return m.Pdr(src, dst) > 0
}

func (m *Medium) startTx(rn *RadioNode, frame *tsch.Frame) {
	m.pendingTx = append(m.pendingTx, &transmission{src: rn, channel: rn.RadioChannel, frame: frame})
	m.schedulePropagation()
}

func (m *Medium) startRx(rn *RadioNode) {
	m.pendingRx = append(m.pendingRx, rn)
	m.schedulePropagation()
}

func (m *Medium) schedulePropagation() {
	tag := dispatcher.Tag{NodeId: InvalidNodeId, Purpose: purposePropagate}
	m.engine.ScheduleAt(m.engine.Now(), dispatcher.OrderPropagate, tag, m.propagate)
}

// propagate delivers every transmission of the slot. A listener hearing more than one transmitter on
// its channel receives nothing. Transmitters learn the outcome after every listener is served.
func (m *Medium) propagate() {
	txs, rxs := m.pendingTx, m.pendingRx
	m.pendingTx, m.pendingRx = nil, nil
	slices.SortStableFunc(rxs, func(a, b *RadioNode) bool { return a.Id < b.Id })

	for _, rx := range rxs {
		var heard []*transmission
		for _, tx := range txs {
			if tx.channel == rx.RadioChannel && m.Reachable(tx.src.Id, rx.Id) {
				heard = append(heard, tx)
			}
		}
		rx.RadioState = RadioOff

		switch len(heard) {
		case 0:
			rx.listener.RxDone(nil)
		case 1:
			tx := heard[0]
			if m.rand.Float64() >= m.Pdr(tx.src.Id, rx.Id) {
				rx.listener.RxDone(nil)
				continue
			}
			rx.stats.NumRx++
			frame := *tx.frame
			if rx.listener.RxDone(&frame) && tx.frame.Dst == rx.Id {
				// the ACK crosses the reverse link
				tx.acked = m.rand.Float64() < m.Pdr(rx.Id, tx.src.Id)
			}
		default:
			rx.stats.NumCollisions++
			rx.log.Log(eventlog.RadioCollision,
				zap.Int("channel", rx.RadioChannel),
				zap.Int("numTx", len(heard)))
			rx.listener.RxDone(nil)
		}
	}

	for _, tx := range txs {
		tx.src.RadioState = RadioOff
		tx.src.listener.TxDone(tx.acked)
	}
}
