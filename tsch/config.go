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

package tsch

import (
	"github.com/pkg/errors"
)

type Config struct {
	SlotframeLength    int     `yaml:"slotframeLength"`
	NumChannels        int     `yaml:"numChannels"`
	MaxTxRetries       int     `yaml:"maxTxRetries"`
	TxQueueSize        int     `yaml:"txQueueSize"`
	MinBackoffExponent int     `yaml:"minBackoffExponent"`
	MaxBackoffExponent int     `yaml:"maxBackoffExponent"`
	EbProbability      float64 `yaml:"ebProbability"`
	KeepAliveInterval  uint64  `yaml:"keepAliveInterval"` // in slots, 0 disables keep-alives
	SlotDuration       float64 `yaml:"slotDuration"`      // in seconds
	ClockFrequency     float64 `yaml:"clockFrequency"`    // in Hz
	MaxDriftPpm        float64 `yaml:"maxDriftPpm"`
}

func DefaultConfig() *Config {
	return &Config{
		SlotframeLength:    101,
		NumChannels:        16,
		MaxTxRetries:       5,
		TxQueueSize:        10,
		MinBackoffExponent: 1,
		MaxBackoffExponent: 7,
		EbProbability:      0.33,
		KeepAliveInterval:  3000,
		SlotDuration:       0.010,
		ClockFrequency:     32768,
		MaxDriftPpm:        30,
	}
}

func (cfg *Config) Validate() error {
	if cfg.SlotframeLength <= 1 {
		return errors.Errorf("slotframe length must be > 1, got %d", cfg.SlotframeLength)
	}
	if cfg.NumChannels <= 0 {
		return errors.Errorf("number of channels must be > 0, got %d", cfg.NumChannels)
	}
	if cfg.MinBackoffExponent < 0 || cfg.MaxBackoffExponent < cfg.MinBackoffExponent {
		return errors.Errorf("invalid backoff exponent range [%d, %d]", cfg.MinBackoffExponent, cfg.MaxBackoffExponent)
	}
	if cfg.TxQueueSize <= 0 {
		return errors.Errorf("tx queue size must be > 0, got %d", cfg.TxQueueSize)
	}
	if cfg.MaxTxRetries < 0 {
		return errors.Errorf("max tx retries must be >= 0, got %d", cfg.MaxTxRetries)
	}
	if cfg.SlotDuration <= 0 || cfg.ClockFrequency <= 0 {
		return errors.New("slot duration and clock frequency must be positive")
	}
	return nil
}
