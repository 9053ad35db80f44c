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
	"github.com/openthread/tsch-ns/schedule"
	. "github.com/openthread/tsch-ns/types"
)

// Engine is the discrete-event clock the slot engine runs on.
type Engine interface {
	Now() ASN
	ScheduleAt(asn ASN, order dispatcher.IntraSlotOrder, tag dispatcher.Tag, cb func())
	Cancel(tag dispatcher.Tag) bool
}

// Radio transmits and listens within the current slot. The radio reports the outcome through
// Tsch.TxDone and Tsch.RxDone in the same slot.
type Radio interface {
	StartTx(channel ChannelId, frame *Frame)
	StartRx(channel ChannelId)
}

// SchedulingFunction receives dedicated TX cell usage reports.
type SchedulingFunction interface {
	IndicationDedicatedTxCellElapsed(cell *schedule.Cell, used bool)
}

// Routing is the part of the routing layer the slot engine consults.
type Routing interface {
	PreferredParent() NodeId
	DagRank() int
	// ClearToSendEBs reports whether the node is joined well enough to announce the network.
	ClearToSendEBs() bool
}

// Host is the node the slot engine belongs to: it receives frames and state changes.
type Host interface {
	OnSynchronized(joinProxy NodeId)
	OnDesynchronized()
	ReceiveFrame(frame *Frame)
	OnTxDone(frame *Frame, acked bool)
	DropFrame(frame *Frame, reason DropReason)
}

// Peers gives read access to other nodes' state. It is consulted by the deletion safety check and by
// clock synchronization only.
type Peers interface {
	ClockOf(id NodeId) *Clock
	PreferredParentOf(id NodeId) NodeId
	// HasPendingFrames reports whether node from has a queued unicast frame to node to with retries left.
	HasPendingFrames(from, to NodeId) bool
	IsSlotLockedBy(id NodeId, slotOffset int) bool
}
