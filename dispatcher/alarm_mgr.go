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

package dispatcher

import (
	"container/heap"

	"github.com/openthread/tsch-ns/logger"
	. "github.com/openthread/tsch-ns/types"
)

// Tag names a pending callback. At most one callback per tag is pending.
type Tag struct {
	NodeId  NodeId
	Purpose string
}

// IntraSlotOrder orders the callbacks that fire at the same ASN.
type IntraSlotOrder int

const (
	OrderStartSlot  IntraSlotOrder = 0
	OrderPropagate  IntraSlotOrder = 1
	OrderStackTasks IntraSlotOrder = 2
	OrderAdminTasks IntraSlotOrder = 3
)

type alarmEvent struct {
	Tag      Tag
	Asn      ASN
	Order    IntraSlotOrder
	Callback func()

	seq   uint64
	index int
}

type alarmQueue []*alarmEvent

func (aq alarmQueue) Len() int {
	return len(aq)
}

// Less orders by ASN, then intra-slot order, then node id, then insertion order.
func (aq alarmQueue) Less(i, j int) bool {
	a, b := aq[i], aq[j]
	if a.Asn != b.Asn {
		return a.Asn < b.Asn
	}
	if a.Order != b.Order {
		return a.Order < b.Order
	}
	if a.Tag.NodeId != b.Tag.NodeId {
		return a.Tag.NodeId < b.Tag.NodeId
	}
	return a.seq < b.seq
}

func (aq alarmQueue) Swap(i, j int) {
	a, b := aq[i], aq[j]
	if a.index != i && b.index != j {
		logger.Panicf("wrong index")
	}

	aq[i], aq[j] = b, a
	aq[i].index, aq[j].index = i, j
}

func (aq *alarmQueue) Push(x interface{}) {
	e := x.(*alarmEvent)
	*aq = append(*aq, e)
	e.index = len(*aq) - 1
}

func (aq *alarmQueue) Pop() (elem interface{}) {
	eqlen := len(*aq)
	elem = (*aq)[eqlen-1]
	*aq = (*aq)[:eqlen-1]
	return
}

type alarmMgr struct {
	q      alarmQueue
	events map[Tag]*alarmEvent
	seq    uint64
}

func newAlarmMgr() *alarmMgr {
	mgr := &alarmMgr{
		q:      alarmQueue{},
		events: map[Tag]*alarmEvent{},
	}

	heap.Init(&mgr.q)
	return mgr
}

// Set registers the callback for tag, replacing a pending one.
func (am *alarmMgr) Set(tag Tag, asn ASN, order IntraSlotOrder, cb func()) {
	am.seq++
	if e, ok := am.events[tag]; ok {
		e.Asn, e.Order, e.Callback, e.seq = asn, order, cb, am.seq
		heap.Fix(&am.q, e.index)
		return
	}
	e := &alarmEvent{
		Tag:      tag,
		Asn:      asn,
		Order:    order,
		Callback: cb,
		seq:      am.seq,
	}
	heap.Push(&am.q, e)
	am.events[tag] = e
}

func (am *alarmMgr) Remove(tag Tag) bool {
	e, ok := am.events[tag]
	if !ok {
		return false
	}
	heap.Remove(&am.q, e.index)
	delete(am.events, tag)
	return true
}

func (am *alarmMgr) Get(tag Tag) *alarmEvent {
	return am.events[tag]
}

func (am *alarmMgr) NextAlarm() *alarmEvent {
	if len(am.q) == 0 {
		return nil
	}
	return am.q[0]
}

func (am *alarmMgr) NextTimestamp() ASN {
	if len(am.q) == 0 {
		return Ever
	}
	return am.q[0].Asn
}

// PopNext removes and returns the earliest alarm.
func (am *alarmMgr) PopNext() *alarmEvent {
	if len(am.q) == 0 {
		return nil
	}
	e := heap.Pop(&am.q).(*alarmEvent)
	delete(am.events, e.Tag)
	return e
}

func (am *alarmMgr) Len() int {
	return len(am.q)
}

// RemoveNode drops every pending alarm of a node.
func (am *alarmMgr) RemoveNode(id NodeId) int {
	var tags []Tag
	for tag := range am.events {
		if tag.NodeId == id {
			tags = append(tags, tag)
		}
	}
	for _, tag := range tags {
		am.Remove(tag)
	}
	return len(tags)
}
