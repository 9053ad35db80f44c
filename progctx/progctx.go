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

// Package progctx manages the lifetime of the tsch-ns process: cancellation, background routines and
// cleanup hooks.
package progctx

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"github.com/pkg/errors"

	"github.com/openthread/tsch-ns/logger"
)

// ProgCtx is the context of the program during its lifetime.
type ProgCtx struct {
	context.Context
	wg           sync.WaitGroup
	cancel       context.CancelCauseFunc
	stopSignals  context.CancelFunc
	routinesLock sync.Mutex
	routines     map[string]int
	deferLock    sync.Mutex
	deferred     []func()
	cancelled    bool
}

// New creates a new ProgCtx from the parent context.
func New(parent context.Context) *ProgCtx {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancelCause(parent)
	return &ProgCtx{
		Context:     ctx,
		cancel:      cancel,
		stopSignals: func() {},
		routines:    map[string]int{},
	}
}

// NewWithSignals creates a ProgCtx that is cancelled when one of the signals arrives.
func NewWithSignals(parent context.Context, signals ...os.Signal) *ProgCtx {
	if parent == nil {
		parent = context.Background()
	}
	sigCtx, stop := signal.NotifyContext(parent, signals...)
	ctx := New(sigCtx)
	ctx.stopSignals = stop
	go func() {
		<-sigCtx.Done()
		ctx.Cancel("signal")
	}()
	return ctx
}

// Cancel cancels the program context with a reason, which is either an error or a printable value.
// Only the first call has an effect; it runs the deferred functions in reverse order.
func (ctx *ProgCtx) Cancel(reason interface{}) {
	ctx.deferLock.Lock()
	if ctx.cancelled {
		ctx.deferLock.Unlock()
		return
	}
	ctx.cancelled = true
	deferred := ctx.deferred
	ctx.deferred = nil
	ctx.deferLock.Unlock()

	var cause error
	if e, ok := reason.(error); ok {
		cause = e
		logger.Warnf("program exit: %+v", e)
	} else {
		cause = errors.Errorf("%v", reason)
		logger.Infof("program exit: %v", reason)
	}
	ctx.cancel(cause)
	ctx.stopSignals()

	for i := len(deferred) - 1; i >= 0; i-- {
		deferred[i]()
	}
}

// Cause returns the reason passed to the first Cancel call, or nil while the context is live.
func (ctx *ProgCtx) Cause() error {
	return context.Cause(ctx.Context)
}

// Defer registers f to run when the context is cancelled.
func (ctx *ProgCtx) Defer(f func()) {
	ctx.deferLock.Lock()
	defer ctx.deferLock.Unlock()
	if ctx.cancelled {
		logger.Panicf("cannot defer after the program context is done")
	}
	ctx.deferred = append(ctx.deferred, f)
}

// WaitAdd registers delta goroutines under a name.
func (ctx *ProgCtx) WaitAdd(name string, delta int) {
	ctx.routinesLock.Lock()
	ctx.routines[name] += delta
	ctx.routinesLock.Unlock()

	ctx.wg.Add(delta)
}

// WaitDone marks one goroutine of name as finished.
func (ctx *ProgCtx) WaitDone(name string) {
	ctx.routinesLock.Lock()
	defer ctx.routinesLock.Unlock()

	if ctx.routines[name] <= 0 {
		logger.Panicf("routine %s is not running, should not call WaitDone", name)
	}
	ctx.routines[name]--
	ctx.wg.Done()
}

// WaitCount returns the number of goroutines still running.
func (ctx *ProgCtx) WaitCount() int {
	ctx.routinesLock.Lock()
	defer ctx.routinesLock.Unlock()

	total := 0
	for _, c := range ctx.routines {
		total += c
	}
	return total
}

// Wait blocks until every registered goroutine is done.
func (ctx *ProgCtx) Wait() {
	ctx.routinesLock.Lock()
	logger.Debugf("waiting for routines: %v", ctx.routines)
	ctx.routinesLock.Unlock()

	ctx.wg.Wait()
}
