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

// Package dispatcher is the discrete-event engine of the simulator. Time advances in absolute slot
// numbers; all callbacks run on the caller's goroutine.
package dispatcher

import (
	"math"

	"github.com/pkg/errors"

	"github.com/openthread/tsch-ns/logger"
	"github.com/openthread/tsch-ns/schedule"
	. "github.com/openthread/tsch-ns/types"
)

const (
	Ever ASN = math.MaxUint64 / 2
)

type Counters struct {
	// Event counters
	CallbacksRun       uint64
	CallbacksScheduled uint64
	CallbacksCanceled  uint64
}

type Dispatcher struct {
	cfg      *Config
	alarms   *alarmMgr
	curAsn   ASN
	running  bool
	stopped  bool
	fatalErr error
	Counters Counters
}

func NewDispatcher(cfg *Config) *Dispatcher {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Dispatcher{
		cfg:    cfg,
		alarms: newAlarmMgr(),
	}
}

// Now returns the current ASN.
func (d *Dispatcher) Now() ASN {
	return d.curAsn
}

// ScheduleAt registers cb to run at asn. Re-scheduling a pending tag replaces it.
func (d *Dispatcher) ScheduleAt(asn ASN, order IntraSlotOrder, tag Tag, cb func()) {
	logger.AssertTruef(asn >= d.curAsn, "%v: cannot schedule at ASN %d in the past (now %d)", tag, asn, d.curAsn)
	d.Counters.CallbacksScheduled++
	d.alarms.Set(tag, asn, order, cb)
}

// ScheduleIn registers cb to run delay slots from now.
func (d *Dispatcher) ScheduleIn(delay uint64, order IntraSlotOrder, tag Tag, cb func()) {
	d.ScheduleAt(d.curAsn+delay, order, tag, cb)
}

// Cancel removes the pending callback of tag and reports whether one existed.
func (d *Dispatcher) Cancel(tag Tag) bool {
	if d.alarms.Remove(tag) {
		d.Counters.CallbacksCanceled++
		return true
	}
	return false
}

// IsScheduled reports whether tag has a pending callback.
func (d *Dispatcher) IsScheduled(tag Tag) bool {
	return d.alarms.Get(tag) != nil
}

// ScheduledAsn returns the ASN of the pending callback of tag, or Ever.
func (d *Dispatcher) ScheduledAsn(tag Tag) ASN {
	if e := d.alarms.Get(tag); e != nil {
		return e.Asn
	}
	return Ever
}

// CancelNode removes every pending callback of a node.
func (d *Dispatcher) CancelNode(id NodeId) {
	n := d.alarms.RemoveNode(id)
	d.Counters.CallbacksCanceled += uint64(n)
}

// Pending returns the number of pending callbacks.
func (d *Dispatcher) Pending() int {
	return d.alarms.Len()
}

// NextAsn returns the ASN of the earliest pending callback, or Ever.
func (d *Dispatcher) NextAsn() ASN {
	return d.alarms.NextTimestamp()
}

// Stop makes a running RunUntil return after the current callback.
func (d *Dispatcher) Stop() {
	d.stopped = true
}

// Err returns the fatal error that ended the run, if any.
func (d *Dispatcher) Err() error {
	return d.fatalErr
}

// RunUntil runs every callback due at or before asn, in order, then sets the current ASN to asn.
// A FatalScheduleError raised by a callback ends the run; RunUntil returns it and refuses to run again.
func (d *Dispatcher) RunUntil(asn ASN) (err error) {
	if d.fatalErr != nil {
		return d.fatalErr
	}
	logger.AssertFalse(d.running, "dispatcher is already running")
	d.running = true
	d.stopped = false
	defer func() {
		d.running = false
		if r := recover(); r != nil {
			fe, ok := r.(*schedule.FatalScheduleError)
			if !ok {
				panic(r)
			}
			logger.Errorf("simulation stopped at ASN %d: %v", d.curAsn, fe)
			d.fatalErr = errors.WithStack(fe)
			err = d.fatalErr
		}
	}()

	for !d.stopped && d.alarms.NextTimestamp() <= asn {
		d.processNextEvent()
	}
	if !d.stopped && asn > d.curAsn {
		d.curAsn = asn
	}
	return nil
}

// Go advances the simulation by the given number of slots.
func (d *Dispatcher) Go(slots uint64) error {
	return d.RunUntil(d.curAsn + slots)
}

func (d *Dispatcher) processNextEvent() {
	e := d.alarms.PopNext()
	logger.AssertTrue(e.Asn >= d.curAsn)
	d.curAsn = e.Asn
	if d.cfg.Watch {
		logger.Tracef("ASN %d Node %d <<< %s", e.Asn, e.Tag.NodeId, e.Tag.Purpose)
	}
	d.Counters.CallbacksRun++
	e.Callback()
}
