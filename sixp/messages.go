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

// Package sixp carries the cell negotiation messages exchanged between neighbors (ADD, DELETE,
// RELOCATE, CLEAR) and an in-simulation transport that delivers them.
package sixp

import (
	"fmt"

	"github.com/openthread/tsch-ns/schedule"
	. "github.com/openthread/tsch-ns/types"
)

type Command int

const (
	CmdAdd Command = iota + 1
	CmdDelete
	CmdRelocate
	CmdClear
)

func (c Command) String() string {
	switch c {
	case CmdAdd:
		return "ADD"
	case CmdDelete:
		return "DELETE"
	case CmdRelocate:
		return "RELOCATE"
	case CmdClear:
		return "CLEAR"
	default:
		return fmt.Sprintf("Command(%d)", int(c))
	}
}

type ReturnCode int

const (
	RcSuccess ReturnCode = iota
	RcErr
	RcErrBusy
	RcErrSeqNum
)

func (rc ReturnCode) String() string {
	switch rc {
	case RcSuccess:
		return "SUCCESS"
	case RcErr:
		return "ERR"
	case RcErrBusy:
		return "ERR_BUSY"
	case RcErrSeqNum:
		return "ERR_SEQNUM"
	default:
		return fmt.Sprintf("ReturnCode(%d)", int(rc))
	}
}

// CallbackEvent is the outcome reported to either side of a transaction.
type CallbackEvent int

const (
	// EventPacketReceived: the initiator received the response.
	EventPacketReceived CallbackEvent = iota
	// EventMacAckReceived: the response sent by the responder was acknowledged.
	EventMacAckReceived
	EventTimeout
)

func (e CallbackEvent) String() string {
	switch e {
	case EventPacketReceived:
		return "PACKET_RECEIVED"
	case EventMacAckReceived:
		return "MAC_ACK_RECEIVED"
	case EventTimeout:
		return "TIMEOUT"
	default:
		return fmt.Sprintf("CallbackEvent(%d)", int(e))
	}
}

// TransactionId identifies a transaction for both of its sides. It is assigned by the transport.
type TransactionId uint64

type Request struct {
	TransactionId TransactionId
	Src, Dst      NodeId
	Command       Command
	CellOptions   schedule.CellOptions
	NumCells      int
	// CellList holds the candidate cells of ADD and RELOCATE, and the cells to remove for DELETE.
	CellList []schedule.CellRef
	// RelocationCellList holds the cells to move away from, RELOCATE only.
	RelocationCellList []schedule.CellRef
}

func (r *Request) String() string {
	return fmt.Sprintf("#%d %d->%d %v %v num=%d cells=%v", r.TransactionId, r.Src, r.Dst, r.Command,
		r.CellOptions, r.NumCells, r.CellList)
}

type Response struct {
	TransactionId TransactionId
	Src, Dst      NodeId
	ReturnCode    ReturnCode
	CellList      []schedule.CellRef
}

func (r *Response) String() string {
	return fmt.Sprintf("#%d %d->%d %v cells=%v", r.TransactionId, r.Src, r.Dst, r.ReturnCode, r.CellList)
}

// Handler is the scheduling function side of a node.
type Handler interface {
	// RecvRequest handles a request from a neighbor and returns the response, or nil to stay silent.
	RecvRequest(req *Request) *Response
	// OnRequestOutcome completes a transaction this node initiated. resp is nil unless event is
	// EventPacketReceived.
	OnRequestOutcome(id TransactionId, event CallbackEvent, resp *Response)
	// OnResponseOutcome reports whether a response sent by this node was acknowledged.
	OnResponseOutcome(id TransactionId, event CallbackEvent)
}

// Transport sends requests on behalf of an initiator.
type Transport interface {
	SendRequest(req *Request) TransactionId
}
