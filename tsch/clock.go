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

package tsch

import (
	"math/rand"

	"github.com/openthread/tsch-ns/logger"
	"github.com/openthread/tsch-ns/prng"
	. "github.com/openthread/tsch-ns/types"
)

// Clock models the offset of a node's clock against its synchronization source, in seconds.
type Clock struct {
	cfg    *Config
	engine Engine
	peers  Peers
	rand   *rand.Rand
	isRoot bool

	source           NodeId
	offsetOnSync     float64
	accumulatedError float64
	lastAccess       ASN
	errorRate        float64
}

func newClock(cfg *Config, engine Engine, peers Peers, r *rand.Rand, isRoot bool) *Clock {
	// both sides may drift by MaxDriftPpm, so the drift against the source is up to twice that
	maxRate := 2 * cfg.MaxDriftPpm * 1e-6
	c := &Clock{
		cfg:       cfg,
		engine:    engine,
		peers:     peers,
		rand:      r,
		isRoot:    isRoot,
		errorRate: prng.Uniform(r, -maxRate, maxRate),
	}
	c.Desync()
	return c
}

// Source returns the synchronization source, or InvalidNodeId.
func (c *Clock) Source() NodeId {
	return c.source
}

func (c *Clock) ErrorRate() float64 {
	return c.errorRate
}

func (c *Clock) Desync() {
	c.source = InvalidNodeId
	c.offsetOnSync = 0
	c.accumulatedError = 0
	c.lastAccess = c.engine.Now()
}

// Sync re-derives the offset against source. InvalidNodeId resynchronizes to the current source.
func (c *Clock) Sync(source NodeId) {
	if c.isRoot {
		c.offsetOnSync = 0
	} else {
		if source == InvalidNodeId {
			logger.AssertTrue(c.source != InvalidNodeId, "clock resync without a source")
		} else {
			c.source = source
		}
		// off by up to one clock tick, plus whatever the source is off from its own source
		jitter := c.rand.Float64() / c.cfg.ClockFrequency
		srcDrift := 0.0
		if srcClock := c.peers.ClockOf(c.source); srcClock != nil {
			srcDrift = srcClock.Drift()
		}
		c.offsetOnSync = jitter + srcDrift
	}
	c.accumulatedError = 0
	c.lastAccess = c.engine.Now()
}

// Drift returns the current offset from the source. The root never drifts.
func (c *Clock) Drift() float64 {
	now := c.engine.Now()
	if !c.isRoot {
		logger.AssertTrue(c.lastAccess <= now)
		elapsed := float64(now-c.lastAccess) * c.cfg.SlotDuration
		c.accumulatedError += elapsed * c.errorRate
	}
	c.lastAccess = now
	return c.offsetOnSync + c.accumulatedError
}
