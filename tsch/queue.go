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
	"github.com/openthread/tsch-ns/logger"
	. "github.com/openthread/tsch-ns/types"
)

// Enqueue appends a frame to the transmit queue, or inserts it at the head if priority is set.
// It reports false if the frame was dropped.
func (t *Tsch) Enqueue(frame *Frame, priority bool) bool {
	logger.AssertTrue(frame.Type != FrameTypeEB, "EBs are never queued")

	if !priority && len(t.txQueue) >= t.cfg.TxQueueSize {
		t.dropFrame(frame, DropReasonTxQueueFull)
		return false
	}
	if len(t.table.TxCells()) == 0 && len(t.table.SharedCells()) == 0 {
		t.dropFrame(frame, DropReasonNoTxCells)
		return false
	}

	frame.RetriesLeft = t.cfg.MaxTxRetries
	if priority {
		t.txQueue = append([]*Frame{frame}, t.txQueue...)
	} else {
		t.txQueue = append(t.txQueue, frame)
	}
	return true
}

// TxQueue returns a copy of the transmit queue.
func (t *Tsch) TxQueue() []*Frame {
	return append([]*Frame(nil), t.txQueue...)
}

func (t *Tsch) removeFrame(frame *Frame) {
	for i, f := range t.txQueue {
		if f == frame {
			t.txQueue = append(t.txQueue[:i], t.txQueue[i+1:]...)
			return
		}
	}
}

// RemoveFrames removes the queued frames of a type, optionally only those to dst (InvalidNodeId: any).
func (t *Tsch) RemoveFrames(frameType FrameType, dst NodeId) int {
	kept := t.txQueue[:0]
	removed := 0
	for _, f := range t.txQueue {
		if f.Type == frameType && (dst == InvalidNodeId || f.Dst == dst) {
			removed++
			continue
		}
		kept = append(kept, f)
	}
	t.txQueue = kept
	return removed
}

// HasPendingFramesTo reports whether a unicast frame to dst with retries left is queued.
func (t *Tsch) HasPendingFramesTo(dst NodeId) bool {
	for _, f := range t.txQueue {
		if f.Dst == dst && f.HasRetriesLeft() {
			return true
		}
	}
	return false
}

// RedirectFrames rewrites the destination of the DATA frames queued to from that still have retries
// left, and returns how many changed.
func (t *Tsch) RedirectFrames(from, to NodeId) int {
	n := 0
	for _, f := range t.txQueue {
		if f.Type == FrameTypeData && f.Dst == from && f.HasRetriesLeft() {
			f.Dst = to
			n++
		}
	}
	if n > 0 {
		t.log.Log(eventlog.TschRedirect, zap.Int("from", from), zap.Int("to", to), zap.Int("numFrames", n))
	}
	return n
}

func (t *Tsch) dropFrame(frame *Frame, reason DropReason) {
	t.log.Log(eventlog.TschDrop,
		zap.Stringer("frameType", frame.Type),
		zap.Int("dst", frame.Dst),
		zap.String("reason", string(reason)))
	if t.host != nil {
		t.host.DropFrame(frame, reason)
	}
}
