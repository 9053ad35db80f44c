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

// Package metrics turns the simulation event stream into prometheus counters.
package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap/zapcore"

	"github.com/openthread/tsch-ns/eventlog"
)

const namespace = "tschns"

// Collector is an eventlog.Sink that counts events per type and keeps a few derived series.
type Collector struct {
	events     *prometheus.CounterVec
	drops      *prometheus.CounterVec
	txDone     *prometheus.CounterVec
	sixp       *prometheus.CounterVec
	appLatency prometheus.Histogram
	asn        prometheus.Gauge

	mu sync.Mutex
}

// NewCollector registers the simulation metrics on reg, the default registerer when reg is nil.
// Collectors already registered by an earlier run are reused.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Simulation events by type",
		}, []string{"type"}),
		drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_drops_total",
			Help:      "Frames dropped by the slot engine, by reason",
		}, []string{"reason"}),
		txDone: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_total",
			Help:      "Frame transmissions by frame type and acknowledgment",
		}, []string{"frame_type", "acked"}),
		sixp: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sixp_outcomes_total",
			Help:      "Negotiation transaction outcomes seen by either party",
		}, []string{"event"}),
		appLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "app_latency_slots",
			Help:      "Slots between generation of a packet and its delivery at the root",
			Buckets:   prometheus.ExponentialBuckets(10, 2, 12),
		}),
		asn: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "asn",
			Help:      "Absolute slot number of the last event",
		}),
	}

	var err error
	if c.events, err = register(reg, c.events); err != nil {
		return nil, err
	}
	if c.drops, err = register(reg, c.drops); err != nil {
		return nil, err
	}
	if c.txDone, err = register(reg, c.txDone); err != nil {
		return nil, err
	}
	if c.sixp, err = register(reg, c.sixp); err != nil {
		return nil, err
	}
	if c.appLatency, err = register(reg, c.appLatency); err != nil {
		return nil, err
	}
	if c.asn, err = register(reg, c.asn); err != nil {
		return nil, err
	}
	return c, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (c *Collector) Log(rec *eventlog.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events.WithLabelValues(string(rec.Type)).Inc()
	c.asn.Set(float64(rec.Asn))

	switch rec.Type {
	case eventlog.TschDrop:
		c.drops.WithLabelValues(fieldString(rec, "reason")).Inc()
	case eventlog.TschTxDone:
		c.txDone.WithLabelValues(fieldString(rec, "frameType"), fieldString(rec, "isACKed")).Inc()
	case eventlog.SixpOutcome:
		c.sixp.WithLabelValues(fieldString(rec, "event")).Inc()
	case eventlog.AppRx:
		if f, ok := rec.Field("latency"); ok {
			c.appLatency.Observe(float64(f.Integer))
		}
	}
}

func (c *Collector) Close() error {
	return nil
}

// fieldString renders a record field as a label value.
func fieldString(rec *eventlog.Record, key string) string {
	f, ok := rec.Field(key)
	if !ok {
		return ""
	}
	switch f.Type {
	case zapcore.StringType:
		return f.String
	case zapcore.StringerType:
		return f.Interface.(fmt.Stringer).String()
	case zapcore.BoolType:
		return fmt.Sprint(f.Integer == 1)
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Uint64Type:
		return fmt.Sprint(f.Integer)
	default:
		enc := zapcore.NewMapObjectEncoder()
		f.AddTo(enc)
		return fmt.Sprint(enc.Fields[key])
	}
}

var _ eventlog.Sink = (*Collector)(nil)
