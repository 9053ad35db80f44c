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
	"fmt"

	"github.com/pkg/errors"

	. "github.com/openthread/tsch-ns/types"
)

var (
	// ErrScheduleConflict means a slot was already occupied on add, or the parameters did not match on delete.
	ErrScheduleConflict = errors.New("schedule conflict")
	// ErrTableFull means the schedule has no room for another cell; the caller abandons this cycle.
	ErrTableFull = errors.New("schedule table full")
	// ErrNoCandidateCells means no free and unlocked slot could be proposed; the caller abandons this cycle.
	ErrNoCandidateCells = errors.New("no available candidate cells")
)

// FatalScheduleError is an invariant violation that ends the simulation run. It is raised with
// Fatal and recovered by the dispatcher, which stops and returns it.
type FatalScheduleError struct {
	NodeId     NodeId
	Op         string
	SlotOffset int
	Err        error
}

func (e *FatalScheduleError) Error() string {
	return fmt.Sprintf("node %d: %s at slot %d: %v", e.NodeId, e.Op, e.SlotOffset, e.Err)
}

func (e *FatalScheduleError) Unwrap() error {
	return e.Err
}

// Cause supports errors.Cause from github.com/pkg/errors.
func (e *FatalScheduleError) Cause() error {
	return e.Err
}

// Fatal aborts the current simulation callback with a FatalScheduleError.
func Fatal(nodeid NodeId, op string, slotOffset int, err error) {
	panic(&FatalScheduleError{NodeId: nodeid, Op: op, SlotOffset: slotOffset, Err: err})
}

// IsRecoverable returns true for errors that only abandon the current adaptation or housekeeping cycle.
func IsRecoverable(err error) bool {
	cause := errors.Cause(err)
	return cause == ErrTableFull || cause == ErrNoCandidateCells
}
