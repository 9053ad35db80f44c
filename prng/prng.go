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

// Package prng derives every random generator of a simulation run from one root seed, so that a run
// with a fixed seed is reproducible.
package prng

import (
	"math/rand"
	"time"

	. "github.com/openthread/tsch-ns/types"
)

// Generator hands out independent *rand.Rand streams derived from a root seed.
type Generator struct {
	rootSeed int64
	nodeSeed *rand.Rand
	radio    *rand.Rand
	sixp     *rand.Rand
	misc     *rand.Rand
}

// New creates a Generator with a fixed root seed (rootSeed != 0) or a time-based root seed (rootSeed == 0).
func New(rootSeed int64) *Generator {
	if rootSeed == 0 {
		rootSeed = time.Now().UnixNano()
	}
	root := rand.New(rand.NewSource(rootSeed))
	return &Generator{
		rootSeed: rootSeed,
		nodeSeed: rand.New(rand.NewSource(root.Int63())),
		radio:    rand.New(rand.NewSource(root.Int63())),
		sixp:     rand.New(rand.NewSource(root.Int63())),
		misc:     rand.New(rand.NewSource(root.Int63())),
	}
}

// RootSeed returns the effective root seed.
func (g *Generator) RootSeed() int64 {
	return g.rootSeed
}

// NewNodeRand returns the generator owned by a newly created node. The stream depends on the node id
// and the root seed only, not on the order in which nodes are created.
func (g *Generator) NewNodeRand(id NodeId) *rand.Rand {
	return rand.New(rand.NewSource(g.rootSeed*7919 + int64(id)*104729))
}

// NewRadioModelRand returns the generator of the radio medium.
func (g *Generator) NewRadioModelRand() *rand.Rand {
	return rand.New(rand.NewSource(g.radio.Int63()))
}

// NewSixpRand returns the generator of the negotiation transport.
func (g *Generator) NewSixpRand() *rand.Rand {
	return rand.New(rand.NewSource(g.sixp.Int63()))
}

// NewUnitRandom generates a new random unit [0, 1) float.
func (g *Generator) NewUnitRandom() float64 {
	return g.misc.Float64()
}

// Sample returns k elements of population chosen uniformly without replacement, using a partial
// Fisher-Yates shuffle on a copy. If k >= len(population) a shuffled copy of all elements is returned.
func Sample[T any](r *rand.Rand, population []T, k int) []T {
	pool := make([]T, len(population))
	copy(pool, population)
	if k > len(pool) {
		k = len(pool)
	}
	if k < 0 {
		k = 0
	}
	for i := 0; i < k; i++ {
		j := i + r.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}

// Uniform returns a float uniformly drawn from [lo, hi).
func Uniform(r *rand.Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*r.Float64()
}
