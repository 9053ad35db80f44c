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

package eventlog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	. "github.com/openthread/tsch-ns/types"
)

type fixedClock ASN

func (c fixedClock) Now() ASN { return ASN(c) }

func TestLoggerStampsAsnAndNode(t *testing.T) {
	mem := NewMemorySink()
	l := NewLogger(mem, fixedClock(42), 7)
	l.Log(TschAddCell, zap.Int("slotOffset", 3))

	require.Len(t, mem.Records, 1)
	rec := mem.Records[0]
	assert.Equal(t, ASN(42), rec.Asn)
	assert.Equal(t, 7, rec.NodeId)
	assert.Equal(t, TschAddCell, rec.Type)
	f, ok := rec.Field("slotOffset")
	assert.True(t, ok)
	assert.Equal(t, int64(3), f.Integer)
	_, ok = rec.Field("missing")
	assert.False(t, ok)
}

func TestMultiSink(t *testing.T) {
	a, b := NewMemorySink(), NewMemorySink()
	ms := NewMultiSink(a)
	ms.AddSink(b, NewNopSink())
	ms.Log(&Record{Type: AppTx})
	assert.Len(t, a.Records, 1)
	assert.Len(t, b.Records, 1)
	assert.Nil(t, ms.Close())
	assert.Len(t, a.OfType(AppTx), 1)
	assert.Empty(t, a.OfType(AppRx))
}

func TestZapSinkFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	zs := NewZapSinkWithCore("run-1", core)
	zs.Log(&Record{Asn: 5, NodeId: 2, Type: TschDrop, Fields: []zap.Field{zap.String("reason", "TxQueueFull")}})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, string(TschDrop), entry.Message)
	ctx := entry.ContextMap()
	assert.Equal(t, "run-1", ctx["_run_id"])
	assert.Equal(t, uint64(5), ctx["_asn"])
	assert.Equal(t, int64(2), ctx["_mote_id"])
	assert.Equal(t, "TxQueueFull", ctx["reason"])
}

func TestZapSinkWritesJsonLines(t *testing.T) {
	path := t.TempDir() + "/events.jsonl"
	zs, err := NewZapSink("run-2", path)
	require.Nil(t, err)
	zs.Log(&Record{Asn: 1, NodeId: 1, Type: TschSynced})
	require.Nil(t, zs.Close())

	data := readFile(t, path)
	var obj map[string]interface{}
	require.Nil(t, json.Unmarshal(data, &obj))
	assert.Equal(t, "tsch.synced", obj["_type"])
	assert.Equal(t, "run-2", obj["_run_id"])
}
