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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openthread/tsch-ns/schedule"
	"github.com/openthread/tsch-ns/sixp"
)

func TestNoneNeverAnswers(t *testing.T) {
	n := NewNone()
	assert.Equal(t, ClassNone, n.Class())
	assert.Nil(t, n.RecvRequest(&sixp.Request{Command: sixp.CmdAdd, NumCells: 1,
		CellList: []schedule.CellRef{{SlotOffset: 3}}}))
	n.IndicationParentChange(1, 2)
	assert.Equal(t, 0, n.LockedSlots().Len())
}

func TestNoneLeavesInitiatorToTimeout(t *testing.T) {
	tn := newTestNet(t, 2, testConfig(), testSixpConfig())
	tn.handlers[1] = NewNone()
	require.NoError(t, tn.nodes[2].msf.RequestAddingCells(1, schedule.OptionTx, 1))
	tn.run(5)
	assert.Empty(t, tn.nodes[2].Schedule().TxCellsTo(1))
	assert.Equal(t, 0, tn.nodes[2].msf.PendingTransactions())
	assert.Equal(t, 1, tn.lb.Stats().NumTimeouts)
}

func TestFactory(t *testing.T) {
	tn := newTestNet(t, 2, testConfig(), testSixpConfig())
	deps := Deps{Mac: tn.nodes[2].mac, Routing: tn.nodes[2].routing, Topology: tn, Engine: tn.d}

	cfg := DefaultConfig()
	s, err := New(cfg, deps)
	require.NoError(t, err)
	assert.IsType(t, &MSF{}, s)

	cfg.Class = ClassNone
	s, err = New(cfg, deps)
	require.NoError(t, err)
	assert.IsType(t, &None{}, s)

	cfg.Class = "sfx"
	_, err = New(cfg, deps)
	assert.Error(t, err)
}

func TestParseClass(t *testing.T) {
	c, err := ParseClass("none")
	require.NoError(t, err)
	assert.Equal(t, ClassNone, c)
	c, err = ParseClass("")
	require.NoError(t, err)
	assert.Equal(t, ClassMSF, c)
	_, err = ParseClass("MSF2")
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.LimNumCellsUsedLow = 0.9
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.ParentChangePolicy = "drop"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.CellListLen = 0
	assert.Error(t, cfg.Validate())
}
