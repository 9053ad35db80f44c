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
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/openthread/tsch-ns/types"
)

func TestCellOptions(t *testing.T) {
	assert.Equal(t, "TX|RX|SHARED", OptionsTxRxSh.String())
	assert.Equal(t, OptionRx, OptionTx.Inverted())
	assert.Equal(t, OptionTx, OptionRx.Inverted())
	assert.Equal(t, OptionsTxRxSh, OptionsTxRxSh.Inverted())

	o, ok := ParseCellOptions("tx|rx|shared")
	assert.True(t, ok)
	assert.Equal(t, OptionsTxRxSh, o)
	_, ok = ParseCellOptions("TX|FOO")
	assert.False(t, ok)
}

func TestAddDeleteRoundTrip(t *testing.T) {
	tbl := NewTable(101)
	_, err := tbl.Add(0, 0, InvalidNodeId, OptionsTxRxSh)
	require.Nil(t, err)
	before := tbl.Cells()

	_, err = tbl.Add(17, 3, 5, OptionTx)
	require.Nil(t, err)
	assert.Equal(t, 2, tbl.Len())

	_, err = tbl.Remove(17, 3, 5, OptionTx)
	require.Nil(t, err)
	assert.Equal(t, before, tbl.Cells())
}

func TestAddOccupiedSlotConflicts(t *testing.T) {
	tbl := NewTable(101)
	_, err := tbl.Add(4, 1, 2, OptionTx)
	require.Nil(t, err)
	_, err = tbl.Add(4, 2, 3, OptionRx)
	assert.Equal(t, ErrScheduleConflict, errors.Cause(err))
	assert.Equal(t, 1, tbl.Len())
	assert.Equal(t, 2, tbl.Get(4).Neighbor)
}

func TestAddRejectsInvalidCells(t *testing.T) {
	tbl := NewTable(10)
	_, err := tbl.Add(10, 0, 2, OptionTx)
	assert.Equal(t, ErrScheduleConflict, errors.Cause(err))
	_, err = tbl.Add(1, 0, 2, OptionTx|OptionShared)
	assert.Equal(t, ErrScheduleConflict, errors.Cause(err))
	_, err = tbl.Add(1, 0, 2, OptionsNone)
	assert.Equal(t, ErrScheduleConflict, errors.Cause(err))
}

func TestRemoveMismatchConflicts(t *testing.T) {
	tbl := NewTable(101)
	_, _ = tbl.Add(9, 1, 2, OptionTx)
	_, err := tbl.Remove(9, 1, 2, OptionRx)
	assert.Equal(t, ErrScheduleConflict, errors.Cause(err))
	_, err = tbl.Remove(8, 1, 2, OptionTx)
	assert.Equal(t, ErrScheduleConflict, errors.Cause(err))
	assert.NotNil(t, tbl.Get(9))
}

func TestFilters(t *testing.T) {
	tbl := NewTable(101)
	_, _ = tbl.Add(0, 0, InvalidNodeId, OptionsTxRxSh)
	_, _ = tbl.Add(3, 3, 2, OptionsTxRxSh)
	_, _ = tbl.Add(5, 1, 2, OptionTx)
	_, _ = tbl.Add(7, 1, 2, OptionRx)
	_, _ = tbl.Add(9, 1, 4, OptionTx)

	assert.Len(t, tbl.SharedCells(), 2)
	assert.Len(t, tbl.SharedCellsTo(2), 1)
	assert.Len(t, tbl.TxCells(), 2)
	assert.Len(t, tbl.TxCellsTo(2), 1)
	assert.Len(t, tbl.RxCellsFrom(2), 1)
	assert.Len(t, tbl.DedicatedCellsTo(2), 3)
	assert.Equal(t, []NodeId{2, 4}, tbl.Neighbors())
	assert.True(t, tbl.HasTxCellTo(4))
	assert.False(t, tbl.HasTxCellTo(6))
	assert.Equal(t, []int{0, 3, 5, 7, 9}, tbl.OccupiedSlots())
}

func TestNextActiveSlotDistance(t *testing.T) {
	tbl := NewTable(10)
	_, ok := tbl.NextActiveSlotDistance(0)
	assert.False(t, ok)

	_, _ = tbl.Add(0, 0, InvalidNodeId, OptionsTxRxSh)
	d, ok := tbl.NextActiveSlotDistance(0)
	assert.True(t, ok)
	assert.Equal(t, 10, d)

	_, _ = tbl.Add(4, 0, 2, OptionTx)
	d, _ = tbl.NextActiveSlotDistance(0)
	assert.Equal(t, 4, d)
	d, _ = tbl.NextActiveSlotDistance(6)
	assert.Equal(t, 4, d)
}

func TestCounterHalving(t *testing.T) {
	c := &Cell{}
	for i := 0; i < 255; i++ {
		c.CountTx()
		c.CountTxAck()
	}
	assert.Equal(t, 255, c.NumTx)
	c.CountTx()
	assert.Equal(t, 128, c.NumTx)
	assert.Equal(t, 127, c.NumTxAck)
	assert.InDelta(t, 127.0/128.0, c.PDR(), 1e-9)
	assert.Equal(t, 0.0, (&Cell{}).PDR())
}

func TestLockedSlotsNeverAvailable(t *testing.T) {
	tbl := NewTable(8)
	_, _ = tbl.Add(0, 0, InvalidNodeId, OptionsTxRxSh)
	_, _ = tbl.Add(2, 0, 3, OptionTx)
	locked := NewLockedSlots()
	locked.Lock(5)
	locked.Lock(6)
	other := NewLockedSlots()
	other.Lock(7)

	avail := AvailableSlots(8, []*Table{tbl}, []*LockedSlots{locked, other})
	assert.Equal(t, []int{1, 3, 4}, avail)

	locked.Unlock(5)
	assert.False(t, locked.Contains(5))
	assert.Equal(t, []int{6}, locked.Slots())
}

func TestFatalScheduleError(t *testing.T) {
	defer func() {
		r := recover()
		fe, ok := r.(*FatalScheduleError)
		require.True(t, ok)
		assert.Equal(t, 3, fe.NodeId)
		assert.Equal(t, ErrScheduleConflict, errors.Cause(fe))
		assert.Contains(t, fe.Error(), "node 3: add cell at slot 12")
	}()
	Fatal(3, "add cell", 12, ErrScheduleConflict)
}

func TestIsRecoverable(t *testing.T) {
	assert.True(t, IsRecoverable(errors.Wrap(ErrNoCandidateCells, "add")))
	assert.True(t, IsRecoverable(ErrTableFull))
	assert.False(t, IsRecoverable(ErrScheduleConflict))
}
