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
	"strings"

	. "github.com/openthread/tsch-ns/types"
)

// CellOptions is a subset of {TX, RX, SHARED}.
type CellOptions uint8

const (
	OptionTx CellOptions = 1 << iota
	OptionRx
	OptionShared

	OptionsNone   CellOptions = 0
	OptionsTxRxSh             = OptionTx | OptionRx | OptionShared
)

func (o CellOptions) Has(opt CellOptions) bool {
	return o&opt == opt
}

// Inverted returns the options as seen from the peer: TX and RX swap, SHARED stays.
func (o CellOptions) Inverted() CellOptions {
	inv := o & OptionShared
	if o.Has(OptionTx) {
		inv |= OptionRx
	}
	if o.Has(OptionRx) {
		inv |= OptionTx
	}
	return inv
}

func (o CellOptions) String() string {
	if o == OptionsNone {
		return "NONE"
	}
	var parts []string
	if o.Has(OptionTx) {
		parts = append(parts, "TX")
	}
	if o.Has(OptionRx) {
		parts = append(parts, "RX")
	}
	if o.Has(OptionShared) {
		parts = append(parts, "SHARED")
	}
	return strings.Join(parts, "|")
}

// ParseCellOptions parses the String() form, e.g. "TX|RX|SHARED".
func ParseCellOptions(s string) (CellOptions, bool) {
	var o CellOptions
	for _, p := range strings.Split(strings.ToUpper(s), "|") {
		switch strings.TrimSpace(p) {
		case "TX":
			o |= OptionTx
		case "RX":
			o |= OptionRx
		case "SHARED":
			o |= OptionShared
		default:
			return OptionsNone, false
		}
	}
	return o, true
}

const counterSaturation = 256

// Cell is one scheduled slot of a node. Neighbor == InvalidNodeId means the cell is shared with any neighbor.
type Cell struct {
	SlotOffset    int
	ChannelOffset ChannelId
	Neighbor      NodeId
	Options       CellOptions

	NumTx    int
	NumTxAck int
	NumRx    int
}

// CellRef identifies a cell in a negotiation cell list.
type CellRef struct {
	SlotOffset    int       `yaml:"slot"`
	ChannelOffset ChannelId `yaml:"channel"`
}

func (c *Cell) Ref() CellRef {
	return CellRef{SlotOffset: c.SlotOffset, ChannelOffset: c.ChannelOffset}
}

// IsMinimal returns true for the cell shared with any neighbor.
func (c *Cell) IsMinimal() bool {
	return c.Neighbor == InvalidNodeId
}

// IsDedicated returns true if the cell is reserved for one specific neighbor.
func (c *Cell) IsDedicated() bool {
	return c.Neighbor != InvalidNodeId
}

// CountTx records a transmission attempt. Both TX counters are halved when NumTx reaches 256.
func (c *Cell) CountTx() {
	c.NumTx++
	if c.NumTx >= counterSaturation {
		c.NumTx /= 2
		c.NumTxAck /= 2
	}
}

func (c *Cell) CountTxAck() {
	c.NumTxAck++
}

func (c *Cell) CountRx() {
	c.NumRx++
}

// PDR is the ratio of acknowledged over attempted transmissions, 0 when nothing was sent.
func (c *Cell) PDR() float64 {
	if c.NumTx == 0 {
		return 0
	}
	return float64(c.NumTxAck) / float64(c.NumTx)
}
