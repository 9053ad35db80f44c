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

package schedule

import (
	"golang.org/x/exp/slices"
)

// LockedSlots is the set of slot offsets reserved by in-flight negotiations of one node. The set is
// advisory: candidate selection consults it, the Table does not.
type LockedSlots struct {
	slots map[int]struct{}
}

func NewLockedSlots() *LockedSlots {
	return &LockedSlots{slots: map[int]struct{}{}}
}

func (l *LockedSlots) Lock(slotOffset int) {
	l.slots[slotOffset] = struct{}{}
}

func (l *LockedSlots) Unlock(slotOffset int) {
	delete(l.slots, slotOffset)
}

func (l *LockedSlots) Clear() {
	clear(l.slots)
}

func (l *LockedSlots) Contains(slotOffset int) bool {
	_, ok := l.slots[slotOffset]
	return ok
}

func (l *LockedSlots) Len() int {
	return len(l.slots)
}

// Slots returns the locked slot offsets in ascending order.
func (l *LockedSlots) Slots() []int {
	res := make([]int, 0, len(l.slots))
	for s := range l.slots {
		res = append(res, s)
	}
	slices.Sort(res)
	return res
}

// AvailableSlots returns all slot offsets of the slotframe that are neither occupied in any of the
// tables nor locked in any of the lock sets, in ascending order.
func AvailableSlots(slotframeLength int, tables []*Table, locks []*LockedSlots) []int {
	var res []int
	for slot := 0; slot < slotframeLength; slot++ {
		if isSlotFree(slot, tables, locks) {
			res = append(res, slot)
		}
	}
	return res
}

func isSlotFree(slot int, tables []*Table, locks []*LockedSlots) bool {
	for _, t := range tables {
		if t.IsOccupied(slot) {
			return false
		}
	}
	for _, l := range locks {
		if l.Contains(slot) {
			return false
		}
	}
	return true
}
