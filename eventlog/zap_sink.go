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

package eventlog

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapSink writes one JSON object per record, in the style of a JSON-lines simulation log.
type ZapSink struct {
	logger *zap.Logger
	runId  string
}

// NewZapSink creates a sink writing to the given zap output paths (files, "stdout", "stderr").
func NewZapSink(runId string, outputPaths ...string) (*ZapSink, error) {
	encCfg := zapcore.EncoderConfig{
		MessageKey:     "_type",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapcore.InfoLevel),
		Encoding:         "json",
		EncoderConfig:    encCfg,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrapf(err, "create event log %v", outputPaths)
	}
	return newZapSink(runId, l), nil
}

// NewZapSinkWithCore creates a sink over an existing zap core.
func NewZapSinkWithCore(runId string, core zapcore.Core) *ZapSink {
	return newZapSink(runId, zap.New(core))
}

func newZapSink(runId string, l *zap.Logger) *ZapSink {
	return &ZapSink{
		logger: l.With(zap.String("_run_id", runId)),
		runId:  runId,
	}
}

func (zs *ZapSink) Log(rec *Record) {
	fields := make([]zap.Field, 0, len(rec.Fields)+2)
	fields = append(fields, zap.Uint64("_asn", rec.Asn), zap.Int("_mote_id", rec.NodeId))
	fields = append(fields, rec.Fields...)
	zs.logger.Info(string(rec.Type), fields...)
}

// Close flushes buffered records. Sync errors of terminal outputs are ignored.
func (zs *ZapSink) Close() error {
	_ = zs.logger.Sync()
	return nil
}
