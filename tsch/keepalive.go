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
	"github.com/openthread/tsch-ns/dispatcher"
	"github.com/openthread/tsch-ns/eventlog"
	. "github.com/openthread/tsch-ns/types"
)

func (t *Tsch) startKeepAliveTimer() {
	if t.cfg.KeepAliveInterval == 0 || t.isRoot {
		return
	}
	t.engine.ScheduleAt(t.engine.Now()+t.cfg.KeepAliveInterval, dispatcher.OrderStackTasks,
		t.tag(purposeKeepAlive), t.sendKeepAlive)
}

func (t *Tsch) stopKeepAliveTimer() {
	t.engine.Cancel(t.tag(purposeKeepAlive))
}

func (t *Tsch) resetKeepAliveTimer() {
	t.stopKeepAliveTimer()
	t.startKeepAliveTimer()
}

// sendKeepAlive queues a keep-alive to the clock source. The next one is armed when an ACK or a frame
// from the source arrives, or right away if the keep-alive was dropped.
func (t *Tsch) sendKeepAlive() {
	if !t.isSync || t.clock.Source() == InvalidNodeId {
		return
	}
	t.log.Log(eventlog.TschKeepAlive)
	queued := t.Enqueue(&Frame{
		Type: FrameTypeKeepAlive,
		Src:  t.id,
		Dst:  t.clock.Source(),
	}, false)
	if !queued {
		t.startKeepAliveTimer()
	}
}

// AsnLastSync returns the ASN of the last (re)synchronization.
func (t *Tsch) AsnLastSync() ASN {
	return t.asnLastSync
}
