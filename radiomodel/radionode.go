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

package radiomodel

import (
	"math"

	"github.com/openthread/tsch-ns/eventlog"
	"github.com/openthread/tsch-ns/logger"
	"github.com/openthread/tsch-ns/tsch"
	. "github.com/openthread/tsch-ns/types"
)

type RadioState int

const (
	RadioOff RadioState = iota
	RadioTx
	RadioRx
)

// Listener receives the outcome of a node's radio operation.
type Listener interface {
	TxDone(acked bool)
	RxDone(frame *tsch.Frame) bool
}

// RadioNode is the radio of a single node attached to the medium. It implements tsch.Radio.
type RadioNode struct {
	Id NodeId

	// RadioRange is the radio range as configured by the simulation for this node.
	RadioRange float64

	// RadioState is the current radio's state, reset to RadioOff when the slot is resolved.
	RadioState RadioState

	// RadioChannel is the channel of the current operation.
	RadioChannel ChannelId

	// Node position in distance units.
	X, Y, Z float64

	medium   *Medium
	listener Listener
	log      *eventlog.Logger
	stats    RadioNodeStats
}

// RadioNodeConfig is the position and range of a node. A zero RadioRange selects the medium default.
type RadioNodeConfig struct {
	X          float64 `yaml:"x"`
	Y          float64 `yaml:"y"`
	Z          float64 `yaml:"z"`
	RadioRange float64 `yaml:"radioRange"`
}

type RadioNodeStats struct {
	NumTx         int
	NumRx         int
	NumCollisions int
}

// Attach sets the listener that receives TxDone/RxDone.
func (rn *RadioNode) Attach(l Listener) {
	rn.listener = l
}

func (rn *RadioNode) StartTx(channel ChannelId, frame *tsch.Frame) {
	logger.AssertTrue(rn.RadioState == RadioOff, "node %d: radio busy", rn.Id)
	rn.RadioState = RadioTx
	rn.RadioChannel = channel
	rn.stats.NumTx++
	rn.medium.startTx(rn, frame)
}

func (rn *RadioNode) StartRx(channel ChannelId) {
	logger.AssertTrue(rn.RadioState == RadioOff, "node %d: radio busy", rn.Id)
	rn.RadioState = RadioRx
	rn.RadioChannel = channel
	rn.medium.startRx(rn)
}

func (rn *RadioNode) SetNodePos(x, y, z float64) {
	rn.X, rn.Y, rn.Z = x, y, z
}

// GetDistanceTo gets the distance to another RadioNode (in grid/pixel units).
func (rn *RadioNode) GetDistanceTo(other *RadioNode) (dist float64) {
	dx := other.X - rn.X
	dy := other.Y - rn.Y
	dz := other.Z - rn.Z
	dist = math.Sqrt(dx*dx + dy*dy + dz*dz)
	return
}

func (rn *RadioNode) Stats() RadioNodeStats {
	return rn.stats
}
