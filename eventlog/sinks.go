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

type nopSink struct{}

// NewNopSink creates a Sink that discards every record.
func NewNopSink() Sink {
	return nopSink{}
}

func (nopSink) Log(*Record) {}

func (nopSink) Close() error { return nil }

// MultiSink fans records out to several sinks, in order.
type MultiSink struct {
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (ms *MultiSink) AddSink(sinks ...Sink) {
	ms.sinks = append(ms.sinks, sinks...)
}

func (ms *MultiSink) Log(rec *Record) {
	for _, s := range ms.sinks {
		s.Log(rec)
	}
}

func (ms *MultiSink) Close() error {
	var firstErr error
	for _, s := range ms.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// MemorySink keeps every record in memory.
type MemorySink struct {
	Records []*Record
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (ms *MemorySink) Log(rec *Record) {
	ms.Records = append(ms.Records, rec)
}

func (ms *MemorySink) Close() error { return nil }

// OfType returns the records of the given type, in logging order.
func (ms *MemorySink) OfType(t EventType) []*Record {
	var res []*Record
	for _, r := range ms.Records {
		if r.Type == t {
			res = append(res, r)
		}
	}
	return res
}
