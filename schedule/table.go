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

// Package schedule holds the per-node TSCH schedule: cells, the schedule table and the set of slots locked
// by in-flight negotiations.
package schedule

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	. "github.com/openthread/tsch-ns/types"
)

// Table maps slot offsets to cells. At most one cell occupies a slot offset.
type Table struct {
	slotframeLength int
	cells           map[int]*Cell
}

func NewTable(slotframeLength int) *Table {
	return &Table{
		slotframeLength: slotframeLength,
		cells:           map[int]*Cell{},
	}
}

func (t *Table) SlotframeLength() int {
	return t.slotframeLength
}

func (t *Table) Len() int {
	return len(t.cells)
}

// Get returns the cell at slotOffset, or nil.
func (t *Table) Get(slotOffset int) *Cell {
	return t.cells[slotOffset]
}

// Add inserts a new cell with zeroed counters.
func (t *Table) Add(slotOffset int, channelOffset ChannelId, neighbor NodeId, options CellOptions) (*Cell, error) {
	if slotOffset < 0 || slotOffset >= t.slotframeLength {
		return nil, errors.Wrapf(ErrScheduleConflict, "slot offset %d outside slotframe of length %d", slotOffset, t.slotframeLength)
	}
	if options.Has(OptionShared) && options != OptionsTxRxSh {
		return nil, errors.Wrapf(ErrScheduleConflict, "shared cell with options %v", options)
	}
	if options == OptionsNone {
		return nil, errors.Wrap(ErrScheduleConflict, "cell without options")
	}
	if c, ok := t.cells[slotOffset]; ok {
		return nil, errors.Wrapf(ErrScheduleConflict, "slot %d already used by %v cell to %s", slotOffset,
			c.Options, NodeIdString(c.Neighbor))
	}
	c := &Cell{
		SlotOffset:    slotOffset,
		ChannelOffset: channelOffset,
		Neighbor:      neighbor,
		Options:       options,
	}
	t.cells[slotOffset] = c
	return c, nil
}

// Remove deletes the cell at slotOffset. All parameters must match the stored cell.
func (t *Table) Remove(slotOffset int, channelOffset ChannelId, neighbor NodeId, options CellOptions) (*Cell, error) {
	c, ok := t.cells[slotOffset]
	if !ok {
		return nil, errors.Wrapf(ErrScheduleConflict, "no cell at slot %d", slotOffset)
	}
	if c.ChannelOffset != channelOffset || c.Neighbor != neighbor || c.Options != options {
		return nil, errors.Wrapf(ErrScheduleConflict, "cell at slot %d is (ch=%d, nbr=%s, %v), not (ch=%d, nbr=%s, %v)",
			slotOffset, c.ChannelOffset, NodeIdString(c.Neighbor), c.Options,
			channelOffset, NodeIdString(neighbor), options)
	}
	delete(t.cells, slotOffset)
	return c, nil
}

// Cells returns all cells ordered by slot offset.
func (t *Table) Cells() []*Cell {
	return t.filter(func(*Cell) bool { return true })
}

func (t *Table) filter(match func(c *Cell) bool) []*Cell {
	var res []*Cell
	for _, c := range t.cells {
		if match(c) {
			res = append(res, c)
		}
	}
	slices.SortFunc(res, func(a, b *Cell) bool { return a.SlotOffset < b.SlotOffset })
	return res
}

// TxCells returns all dedicated TX-only cells.
func (t *Table) TxCells() []*Cell {
	return t.filter(func(c *Cell) bool { return c.Options == OptionTx })
}

// TxCellsTo returns the TX-only cells to neighbor.
func (t *Table) TxCellsTo(neighbor NodeId) []*Cell {
	return t.filter(func(c *Cell) bool { return c.Options == OptionTx && c.Neighbor == neighbor })
}

// RxCellsFrom returns the RX-only cells from neighbor.
func (t *Table) RxCellsFrom(neighbor NodeId) []*Cell {
	return t.filter(func(c *Cell) bool { return c.Options == OptionRx && c.Neighbor == neighbor })
}

// SharedCells returns every cell with the SHARED option, including the minimal cell.
func (t *Table) SharedCells() []*Cell {
	return t.filter(func(c *Cell) bool { return c.Options == OptionsTxRxSh })
}

// SharedCellsTo returns the SHARED cells dedicated to neighbor.
func (t *Table) SharedCellsTo(neighbor NodeId) []*Cell {
	return t.filter(func(c *Cell) bool { return c.Options == OptionsTxRxSh && c.Neighbor == neighbor })
}

// DedicatedCellsTo returns all cells reserved for neighbor, whatever their options.
func (t *Table) DedicatedCellsTo(neighbor NodeId) []*Cell {
	return t.filter(func(c *Cell) bool { return c.Neighbor == neighbor })
}

// CellsMatching returns cells to neighbor with exactly the given options.
func (t *Table) CellsMatching(neighbor NodeId, options CellOptions) []*Cell {
	return t.filter(func(c *Cell) bool { return c.Options == options && c.Neighbor == neighbor })
}

// HasTxCellTo returns true if a TX cell or a shared cell can carry a frame to neighbor.
func (t *Table) HasTxCellTo(neighbor NodeId) bool {
	for _, c := range t.cells {
		if c.Neighbor == neighbor && c.Options.Has(OptionTx) {
			return true
		}
	}
	return false
}

// Neighbors returns the distinct neighbors that hold dedicated cells, in ascending order.
func (t *Table) Neighbors() []NodeId {
	seen := map[NodeId]struct{}{}
	for _, c := range t.cells {
		if c.IsDedicated() {
			seen[c.Neighbor] = struct{}{}
		}
	}
	res := make([]NodeId, 0, len(seen))
	for id := range seen {
		res = append(res, id)
	}
	slices.Sort(res)
	return res
}

// OccupiedSlots returns the used slot offsets in ascending order.
func (t *Table) OccupiedSlots() []int {
	res := make([]int, 0, len(t.cells))
	for slot := range t.cells {
		res = append(res, slot)
	}
	slices.Sort(res)
	return res
}

func (t *Table) IsOccupied(slotOffset int) bool {
	_, ok := t.cells[slotOffset]
	return ok
}

// NextActiveSlotDistance returns the number of slots from currentSlot to the next occupied slot,
// in 1..slotframeLength. A cell at currentSlot itself is one slotframe away.
func (t *Table) NextActiveSlotDistance(currentSlot int) (int, bool) {
	if len(t.cells) == 0 {
		return 0, false
	}
	best := t.slotframeLength
	for slot := range t.cells {
		d := ((slot-currentSlot)%t.slotframeLength + t.slotframeLength) % t.slotframeLength
		if d == 0 {
			d = t.slotframeLength
		}
		if d < best {
			best = d
		}
	}
	return best, true
}
