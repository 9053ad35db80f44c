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

package prng

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSampleWithoutReplacement(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	population := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	for i := 0; i < 100; i++ {
		s := Sample(r, population, 4)
		assert.Len(t, s, 4)
		seen := map[int]bool{}
		for _, v := range s {
			assert.False(t, seen[v])
			assert.Contains(t, population, v)
			seen[v] = true
		}
	}
	// population is not modified
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, population)
}

func TestSampleAll(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	s := Sample(r, []int{3, 1, 2}, 10)
	sort.Ints(s)
	assert.Equal(t, []int{1, 2, 3}, s)
	assert.Empty(t, Sample(r, []int{1, 2}, 0))
	assert.Empty(t, Sample(r, []int{}, 3))
}

func TestNodeRandIsReproducible(t *testing.T) {
	g1 := New(42)
	g2 := New(42)
	_ = g2.NewRadioModelRand() // creation order does not matter
	assert.Equal(t, g1.NewNodeRand(3).Int63(), g2.NewNodeRand(3).Int63())
	assert.NotEqual(t, g1.NewNodeRand(3).Int63(), g1.NewNodeRand(4).Int63())
	assert.Equal(t, int64(42), g1.RootSeed())
}

func TestUniform(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 100; i++ {
		v := Uniform(r, -2, 2)
		assert.True(t, v >= -2 && v < 2)
	}
}
