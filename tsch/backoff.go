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
	"go.uber.org/zap"

	"github.com/openthread/tsch-ns/eventlog"
)

// backoff is the shared-link retransmission backoff (IEEE 802.15.4-2015, 6.2.5.3).
type backoff struct {
	t         *Tsch
	exponent  int
	remaining int
}

func (b *backoff) decideDelay() {
	b.remaining = b.t.rand.Intn(1 << uint(b.exponent))
}

func (b *backoff) reset() {
	old := b.exponent
	b.exponent = b.t.cfg.MinBackoffExponent
	b.logUpdate(old)
	b.decideDelay()
}

func (b *backoff) increase() {
	old := b.exponent
	b.exponent++
	if b.exponent > b.t.cfg.MaxBackoffExponent {
		b.exponent = b.t.cfg.MaxBackoffExponent
	}
	b.logUpdate(old)
	b.decideDelay()
}

func (b *backoff) logUpdate(old int) {
	b.t.log.Log(eventlog.TschBackoffUpdate, zap.Int("old_be", old), zap.Int("new_be", b.exponent))
}

// update applies the outcome of a unicast transmission.
func (b *backoff) update(isRetransmission, isSharedLink, isTxSuccess bool) {
	if isSharedLink {
		if isTxSuccess || !isRetransmission {
			b.reset()
		} else {
			b.increase()
		}
		return
	}
	// dedicated link: a success with an empty queue resets, anything else leaves the window alone
	if isTxSuccess && len(b.t.txQueue) == 0 {
		b.reset()
	}
}

// deferRetransmission reports whether a retransmission must wait on this shared link, consuming one slot of delay.
func (b *backoff) deferRetransmission() bool {
	if b.remaining > 0 {
		b.remaining--
		return true
	}
	return false
}
