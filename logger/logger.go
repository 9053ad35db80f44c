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

// Package logger is the diagnostic log of the simulator. Simulation events that are meant for offline
// analysis go through package eventlog instead.
package logger

import (
	"fmt"
	"os"
	"sync"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	. "github.com/openthread/tsch-ns/types"
)

// Level is the diagnostic log level. Higher values are more verbose.
type Level int8

const (
	TraceLevel   Level = 6
	DebugLevel   Level = 5
	InfoLevel    Level = 4
	NoteLevel    Level = 3
	WarnLevel    Level = 2
	ErrorLevel   Level = 1
	PanicLevel   Level = 0
	FatalLevel   Level = -1
	OffLevel     Level = -2
	MinLevel           = OffLevel
	DefaultLevel       = InfoLevel
)

// StdoutCallback is notified after anything was written to the terminal, so that an interactive
// prompt can redraw itself.
type StdoutCallback interface {
	OnStdout()
}

// Clock supplies the simulated time that is stamped on every line.
type Clock interface {
	Now() ASN
}

var (
	mu              sync.Mutex
	outputPaths     = []string{"stderr"}
	zaplogger       *zap.Logger
	currentLevel    = DefaultLevel
	isLogToTerminal bool
	cbStdout        StdoutCallback
	clock           Clock
)

func init() {
	if o, err := os.Stdout.Stat(); err == nil && (o.Mode()&os.ModeCharDevice) == os.ModeCharDevice {
		isLogToTerminal = true
	}
	if err := build(outputPaths); err != nil {
		panic(err)
	}
}

func zapLevel(level Level) zapcore.Level {
	switch {
	case level >= DebugLevel:
		return zapcore.DebugLevel
	case level >= NoteLevel:
		return zapcore.InfoLevel
	case level == WarnLevel:
		return zapcore.WarnLevel
	case level == ErrorLevel:
		return zapcore.ErrorLevel
	case level == PanicLevel:
		return zapcore.PanicLevel
	default:
		return zapcore.FatalLevel
	}
}

// build replaces the zap logger with a console logger writing to paths. Level filtering happens in Logf,
// so the zap logger itself accepts everything.
func build(paths []string) error {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.CallerKey = ""
	encCfg.StacktraceKey = ""

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapcore.DebugLevel),
		Encoding:         "console",
		EncoderConfig:    encCfg,
		OutputPaths:      paths,
		ErrorOutputPaths: []string{"stderr"},
	}
	newLogger, err := cfg.Build()
	if err != nil {
		return err
	}
	if zaplogger != nil {
		_ = zaplogger.Sync()
	}
	zaplogger = newLogger
	outputPaths = paths
	return nil
}

// SetLevel sets the log level
func SetLevel(lv Level) {
	currentLevel = lv
}

// GetLevel get the current log level
func GetLevel() Level {
	return currentLevel
}

// SetStdoutCallback sets a callback, that the logger will call when new log content was written to the terminal.
func SetStdoutCallback(cb StdoutCallback) {
	cbStdout = cb
}

// SetClock makes every following line carry the ASN of c. A nil clock removes the stamp.
func SetClock(c Clock) {
	mu.Lock()
	defer mu.Unlock()
	clock = c
}

// SetOutput sets the output paths, e.g. logger.SetOutput([]string{"stderr", "tsch-ns.log"}).
func SetOutput(paths []string) error {
	mu.Lock()
	defer mu.Unlock()
	return build(paths)
}

// Sync flushes buffered output.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	_ = zaplogger.Sync()
}

// Log outputs the log message/object at specified level.
func Log(level Level, msg interface{}) {
	Logf(level, "", []interface{}{msg})
}

// Logf outputs formatted log message at specified level. Panic and Fatal levels are always written.
func Logf(level Level, format string, args []interface{}) {
	if level > currentLevel && level > PanicLevel {
		return
	}
	mu.Lock()
	l, c := zaplogger, clock
	mu.Unlock()

	var fields []zap.Field
	if c != nil {
		fields = append(fields, zap.Uint64("asn", uint64(c.Now())))
	}
	if isLogToTerminal {
		_, _ = fmt.Fprint(os.Stdout, "\033[2K\r") // clear the CLI line
	}
	l.Log(zapLevel(level), getMessage(format, args), fields...)
	if isLogToTerminal && cbStdout != nil {
		cbStdout.OnStdout()
	}
}

// Println prints a message for the user at the current console, to stdout, without log fields.
func Println(msg string) {
	if isLogToTerminal {
		_, _ = fmt.Fprint(os.Stdout, "\033[2K\r")
	}
	_, _ = fmt.Fprint(os.Stdout, msg+"\n")
	if isLogToTerminal && cbStdout != nil {
		cbStdout.OnStdout()
	}
}

// getMessage formats a string efficiently with Sprint, Sprintf, or neither.
func getMessage(template string, fmtArgs []interface{}) string {
	if len(fmtArgs) == 0 {
		return template
	}
	if template != "" {
		return fmt.Sprintf(template, fmtArgs...)
	}
	if len(fmtArgs) == 1 {
		if str, ok := fmtArgs[0].(string); ok {
			return str
		}
	}
	return fmt.Sprint(fmtArgs...)
}

func Tracef(format string, args ...interface{}) { Logf(TraceLevel, format, args) }
func Debugf(format string, args ...interface{}) { Logf(DebugLevel, format, args) }
func Infof(format string, args ...interface{})  { Logf(InfoLevel, format, args) }
func Notef(format string, args ...interface{})  { Logf(NoteLevel, format, args) }
func Warnf(format string, args ...interface{})  { Logf(WarnLevel, format, args) }
func Errorf(format string, args ...interface{}) { Logf(ErrorLevel, format, args) }
func Panicf(format string, args ...interface{}) { Logf(PanicLevel, format, args) }
func Fatalf(format string, args ...interface{}) { Logf(FatalLevel, format, args) }

func PanicIfError(err error, args ...interface{}) {
	if err == nil {
		return
	}
	if len(args) == 0 {
		args = []interface{}{err}
	}
	Log(PanicLevel, fmt.Sprint(args...))
}

func FatalIfError(err error, args ...interface{}) {
	if err == nil {
		return
	}
	if len(args) == 0 {
		args = []interface{}{err}
	}
	Log(FatalLevel, fmt.Sprint(args...))
}

// assertLogger turns a failed testify assertion into a panic, so the Assert* helpers guard invariants
// at run time.
type assertLogger struct{}

func (assertLogger) Errorf(format string, args ...interface{}) {
	Panicf(format, args...)
}

func AssertEqual(expected, actual interface{}, msgAndArgs ...interface{}) bool {
	return assert.Equal(assertLogger{}, expected, actual, msgAndArgs...)
}

func AssertNil(object interface{}, msgAndArgs ...interface{}) bool {
	return assert.Nil(assertLogger{}, object, msgAndArgs...)
}

func AssertNotNil(object interface{}, msgAndArgs ...interface{}) bool {
	return assert.NotNil(assertLogger{}, object, msgAndArgs...)
}

func AssertTrue(value bool, msgAndArgs ...interface{}) bool {
	return assert.True(assertLogger{}, value, msgAndArgs...)
}

func AssertFalse(value bool, msgAndArgs ...interface{}) bool {
	return assert.False(assertLogger{}, value, msgAndArgs...)
}

func AssertTruef(value bool, msg string, args ...interface{}) bool {
	return assert.Truef(assertLogger{}, value, msg, args...)
}
