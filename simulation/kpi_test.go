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
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeCounters(t *testing.T) {
	n1 := make(NodeCounters)
	n1["test1.key"] = 42
	n1["test3.key"] = 987

	n2 := make(NodeCounters)
	n2["test1.key"] = 42
	n2["test2.key"] = 121

	n2.Add(n1)

	assert.Equal(t, uint64(42), n1["test1.key"])
	_, n1HasTest2Key := n1["test2.key"]
	assert.False(t, n1HasTest2Key)
	assert.Equal(t, uint64(987), n1["test3.key"])

	assert.Equal(t, uint64(84), n2["test1.key"])
	assert.Equal(t, uint64(121), n2["test2.key"])
	assert.Equal(t, uint64(987), n2["test3.key"])
}

func TestCountersDiff(t *testing.T) {
	diff := getCountersDiff(NodeCounters{"a": 10, "b": 3, "c": 5}, NodeCounters{"a": 4, "b": 7})
	assert.Equal(t, NodeCounters{"a": 6, "b": 3, "c": 5}, diff)
}

func TestKpiOfRunningNetwork(t *testing.T) {
	s, _ := newTestSimulation(t, testConfig(), LinearScenario(3, 40))
	runUntilJoined(t, s, 200000)

	km := NewKpiManager(s)
	km.Start()
	require.True(t, km.IsRunning())
	start := s.Asn()
	require.NoError(t, s.Go(20000))
	km.Stop()
	assert.False(t, km.IsRunning())

	kpi := km.Kpi()
	assert.Equal(t, "ok", kpi.Status)
	assert.Equal(t, "test-run", kpi.RunId)
	assert.Equal(t, start, kpi.Asn.Start)
	assert.Equal(t, uint64(20000), kpi.Asn.Duration)
	assert.InDelta(t, 200.0, kpi.TimeSec.PeriodSec, 1e-9)
	assert.Len(t, kpi.Counters, 3)
	assert.Greater(t, kpi.Delivery.Generated, uint64(0))
	assert.LessOrEqual(t, kpi.Delivery.Ratio, 1.0)
	assert.Equal(t, kpi.Delivery.Received, kpi.Counters[1]["app.received"])
	for _, pct := range kpi.Mac.NoAckPercentage {
		assert.True(t, pct >= 0 && pct <= 100)
	}

	fn := filepath.Join(t.TempDir(), "kpi.json")
	require.NoError(t, km.SaveFile(fn))
	raw, err := os.ReadFile(fn)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded, "delivery")
	assert.Contains(t, decoded, "created")
}
