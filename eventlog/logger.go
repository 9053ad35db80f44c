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
	"go.uber.org/zap"

	. "github.com/openthread/tsch-ns/types"
)

// Clock is the time source stamped into every record.
type Clock interface {
	Now() ASN
}

// Logger logs records on behalf of one node.
type Logger struct {
	sink  Sink
	clock Clock
	id    NodeId
}

func NewLogger(sink Sink, clock Clock, id NodeId) *Logger {
	if sink == nil {
		sink = NewNopSink()
	}
	return &Logger{sink: sink, clock: clock, id: id}
}

func (l *Logger) Log(t EventType, fields ...zap.Field) {
	l.sink.Log(&Record{
		Asn:    l.clock.Now(),
		NodeId: l.id,
		Type:   t,
		Fields: fields,
	})
}

// Sink returns the underlying sink.
func (l *Logger) Sink() Sink {
	return l.sink
}
