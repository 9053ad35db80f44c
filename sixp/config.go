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

package sixp

import (
	"github.com/pkg/errors"
)

type Config struct {
	Latency            uint64  `yaml:"latency"` // slots between sending a message and its delivery
	Timeout            uint64  `yaml:"timeout"` // slots after which an unanswered request times out
	LossProbability    float64 `yaml:"lossProbability"`
	AckLossProbability float64 `yaml:"ackLossProbability"`
}

func DefaultConfig() *Config {
	return &Config{
		Latency: 10,
		Timeout: 500,
	}
}

func (cfg *Config) Validate() error {
	if cfg.Latency == 0 {
		return errors.New("sixp latency must be at least one slot")
	}
	if cfg.Timeout <= 2*cfg.Latency {
		return errors.Errorf("sixp timeout %d must exceed a round trip of %d slots", cfg.Timeout, 2*cfg.Latency)
	}
	if cfg.LossProbability < 0 || cfg.LossProbability > 1 || cfg.AckLossProbability < 0 || cfg.AckLossProbability > 1 {
		return errors.New("sixp loss probabilities must be within [0, 1]")
	}
	return nil
}
