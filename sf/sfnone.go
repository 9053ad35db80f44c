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

package sf

import (
	"github.com/openthread/tsch-ns/schedule"
	"github.com/openthread/tsch-ns/sixp"
	. "github.com/openthread/tsch-ns/types"
)

// None never negotiates. Requests sent to it go unanswered and time out at the initiator.
type None struct {
	locked *schedule.LockedSlots
}

func NewNone() *None {
	return &None{locked: schedule.NewLockedSlots()}
}

func (n *None) Class() Class                                          { return ClassNone }
func (n *None) Start()                                                {}
func (n *None) Stop()                                                 {}
func (n *None) IndicationDedicatedTxCellElapsed(*schedule.Cell, bool) {}
func (n *None) IndicationParentChange(NodeId, NodeId)                 {}
func (n *None) DetectScheduleInconsistency(NodeId)                    {}
func (n *None) LockedSlots() *schedule.LockedSlots                    { return n.locked }

func (n *None) RecvRequest(*sixp.Request) *sixp.Response {
	return nil
}

func (n *None) OnRequestOutcome(sixp.TransactionId, sixp.CallbackEvent, *sixp.Response) {}
func (n *None) OnResponseOutcome(sixp.TransactionId, sixp.CallbackEvent)                {}
