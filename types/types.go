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

package types

import (
	"fmt"
)

// NodeId identifies a simulated mote. Node ids start at 1.
type NodeId = int

// ChannelId is a channel offset within the hopping sequence.
type ChannelId = int

// ASN is the absolute slot number, the simulation's only unit of time.
type ASN = uint64

const (
	MaxNodeId       NodeId = 0xffff
	InvalidNodeId   NodeId = 0
	BroadcastNodeId NodeId = -1
)

// FrameType is the link-layer frame type of a queued or received frame.
type FrameType byte

const (
	FrameTypeEB FrameType = iota
	FrameTypeDIO
	FrameTypeData
	FrameTypeSixP
	FrameTypeKeepAlive
)

func (t FrameType) String() string {
	switch t {
	case FrameTypeEB:
		return "EB"
	case FrameTypeDIO:
		return "DIO"
	case FrameTypeData:
		return "DATA"
	case FrameTypeSixP:
		return "6P"
	case FrameTypeKeepAlive:
		return "KEEP_ALIVE"
	default:
		panic(fmt.Sprintf("invalid frame type: %d", t))
	}
}

// IsBroadcastType returns true for frame types that are only ever sent to BroadcastNodeId.
func (t FrameType) IsBroadcastType() bool {
	return t == FrameTypeEB || t == FrameTypeDIO
}

// NodeIdString formats a possibly-absent neighbor.
func NodeIdString(id NodeId) string {
	switch id {
	case InvalidNodeId:
		return "any"
	case BroadcastNodeId:
		return "broadcast"
	default:
		return fmt.Sprintf("%d", id)
	}
}
