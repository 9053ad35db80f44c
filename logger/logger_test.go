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

package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/openthread/tsch-ns/types"
)

func TestParseLevelString(t *testing.T) {
	lv, err := ParseLevelString("debug")
	assert.Nil(t, err)
	assert.Equal(t, DebugLevel, lv)

	lv, err = ParseLevelString("W")
	assert.Nil(t, err)
	assert.Equal(t, WarnLevel, lv)

	lv, err = ParseLevelString("")
	assert.Nil(t, err)
	assert.Equal(t, DefaultLevel, lv)

	lv, err = ParseLevelString("Crit")
	assert.Nil(t, err)
	assert.Equal(t, ErrorLevel, lv)

	_, err = ParseLevelString("loud")
	assert.NotNil(t, err)
}

func TestLevelStringRoundTrip(t *testing.T) {
	for _, lv := range []Level{TraceLevel, DebugLevel, InfoLevel, NoteLevel, WarnLevel, ErrorLevel, OffLevel} {
		parsed, err := ParseLevelString(GetLevelString(lv))
		assert.Nil(t, err)
		assert.Equal(t, lv, parsed)
	}
}

func TestAssertPanicsOnViolation(t *testing.T) {
	assert.Panics(t, func() { AssertTrue(false, "must be true") })
	assert.NotPanics(t, func() { AssertEqual(1, 1) })
}

func TestSetLevel(t *testing.T) {
	old := GetLevel()
	defer SetLevel(old)
	SetLevel(WarnLevel)
	assert.Equal(t, WarnLevel, GetLevel())
}

type fixedClock ASN

func (c fixedClock) Now() ASN { return ASN(c) }

func TestOutputFileCarriesAsn(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "diag.log")
	require.NoError(t, SetOutput([]string{fn}))
	defer func() {
		require.NoError(t, SetOutput([]string{"stderr"}))
	}()
	SetClock(fixedClock(4242))
	defer SetClock(nil)

	Warnf("queue of node %d is full", 3)
	Debugf("not written at the default level")
	Sync()

	data, err := os.ReadFile(fn)
	require.NoError(t, err)
	assert.Contains(t, string(data), "queue of node 3 is full")
	assert.Contains(t, string(data), `"asn": 4242`)
	assert.NotContains(t, string(data), "not written")
}

func TestPanicLevelAlwaysPanics(t *testing.T) {
	old := GetLevel()
	defer SetLevel(old)
	SetLevel(OffLevel)
	assert.Panics(t, func() { Panicf("boom") })
	assert.Panics(t, func() { PanicIfError(os.ErrNotExist) })
	assert.NotPanics(t, func() { PanicIfError(nil) })
}
