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
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openthread/tsch-ns/schedule"
	. "github.com/openthread/tsch-ns/types"
)

func TestCallbacksRunInDeterministicOrder(t *testing.T) {
	d := NewDispatcher(nil)
	var order []string
	d.ScheduleAt(5, OrderStackTasks, Tag{3, "a"}, func() { order = append(order, "3a") })
	d.ScheduleAt(5, OrderStartSlot, Tag{7, "a"}, func() { order = append(order, "7a") })
	d.ScheduleAt(5, OrderStartSlot, Tag{2, "a"}, func() { order = append(order, "2a") })
	d.ScheduleAt(4, OrderAdminTasks, Tag{9, "a"}, func() { order = append(order, "9a") })

	require.Nil(t, d.RunUntil(10))
	assert.Equal(t, []string{"9a", "2a", "7a", "3a"}, order)
	assert.Equal(t, ASN(10), d.Now())
	assert.Equal(t, uint64(4), d.Counters.CallbacksRun)
}

func TestRescheduleReplacesTag(t *testing.T) {
	d := NewDispatcher(nil)
	fired := 0
	tag := Tag{1, "timer"}
	d.ScheduleAt(3, OrderStartSlot, tag, func() { fired = 3 })
	d.ScheduleAt(6, OrderStartSlot, tag, func() { fired = 6 })
	assert.Equal(t, 1, d.Pending())
	assert.Equal(t, ASN(6), d.ScheduledAsn(tag))

	require.Nil(t, d.RunUntil(4))
	assert.Equal(t, 0, fired)
	require.Nil(t, d.RunUntil(6))
	assert.Equal(t, 6, fired)
	assert.False(t, d.IsScheduled(tag))
}

func TestCancel(t *testing.T) {
	d := NewDispatcher(nil)
	fired := false
	tag := Tag{1, "timer"}
	d.ScheduleIn(2, OrderStartSlot, tag, func() { fired = true })
	assert.True(t, d.Cancel(tag))
	assert.False(t, d.Cancel(tag))
	require.Nil(t, d.Go(5))
	assert.False(t, fired)
	assert.Equal(t, Ever, d.ScheduledAsn(tag))
}

func TestCancelNode(t *testing.T) {
	d := NewDispatcher(nil)
	d.ScheduleIn(1, OrderStartSlot, Tag{1, "a"}, func() {})
	d.ScheduleIn(1, OrderStartSlot, Tag{1, "b"}, func() {})
	d.ScheduleIn(1, OrderStartSlot, Tag{2, "a"}, func() {})
	d.CancelNode(1)
	assert.Equal(t, 1, d.Pending())
}

func TestPeriodicCallback(t *testing.T) {
	d := NewDispatcher(nil)
	var asns []ASN
	var tick func()
	tick = func() {
		asns = append(asns, d.Now())
		d.ScheduleIn(10, OrderStartSlot, Tag{1, "tick"}, tick)
	}
	d.ScheduleAt(0, OrderStartSlot, Tag{1, "tick"}, tick)
	require.Nil(t, d.RunUntil(35))
	assert.Equal(t, []ASN{0, 10, 20, 30}, asns)
}

func TestFatalScheduleErrorStopsRun(t *testing.T) {
	d := NewDispatcher(nil)
	ran := false
	d.ScheduleAt(2, OrderStartSlot, Tag{4, "bad"}, func() {
		schedule.Fatal(4, "add cell", 9, schedule.ErrScheduleConflict)
	})
	d.ScheduleAt(3, OrderStartSlot, Tag{4, "later"}, func() { ran = true })

	err := d.RunUntil(10)
	require.NotNil(t, err)
	var fe *schedule.FatalScheduleError
	assert.True(t, errors.As(err, &fe))
	assert.Equal(t, 4, fe.NodeId)
	assert.Equal(t, ASN(2), d.Now())
	assert.False(t, ran)

	assert.Equal(t, err, d.RunUntil(20))
}

func TestOtherPanicsPropagate(t *testing.T) {
	d := NewDispatcher(nil)
	d.ScheduleAt(1, OrderStartSlot, Tag{1, "x"}, func() { panic("boom") })
	assert.PanicsWithValue(t, "boom", func() { _ = d.RunUntil(2) })
}

func TestScheduleInPastPanics(t *testing.T) {
	d := NewDispatcher(nil)
	require.Nil(t, d.RunUntil(5))
	assert.Panics(t, func() { d.ScheduleAt(3, OrderStartSlot, Tag{1, "x"}, func() {}) })
}
