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
	"github.com/pkg/errors"
)

const (
	ModelIdeal  = "ideal"
	ModelIndoor = "indoor"
	ModelItu    = "itu"
)

// Config is the radio medium configuration.
type Config struct {
	Model        string  `yaml:"model"`
	RadioRange   float64 `yaml:"radioRange"`   // default radio range in distance units
	MeterPerUnit float64 `yaml:"meterPerUnit"` // meters per distance unit, for the pathloss models
	TxPowerDbm   float64 `yaml:"txPowerDbm"`
	FrameBytes   int     `yaml:"frameBytes"` // frame length assumed by the BER computation
}

func DefaultConfig() *Config {
	return &Config{
		Model:        ModelIdeal,
		RadioRange:   100,
		MeterPerUnit: defaultMeterPerUnit,
		TxPowerDbm:   0,
		FrameBytes:   127,
	}
}

func (cfg *Config) Validate() error {
	switch cfg.Model {
	case ModelIdeal, ModelIndoor, ModelItu:
	default:
		return errors.Errorf("unknown radio model: %q", cfg.Model)
	}
	if cfg.RadioRange <= 0 {
		return errors.Errorf("radioRange must be positive: %v", cfg.RadioRange)
	}
	if cfg.MeterPerUnit <= 0 {
		return errors.Errorf("meterPerUnit must be positive: %v", cfg.MeterPerUnit)
	}
	if cfg.FrameBytes <= 0 || cfg.FrameBytes > 127 {
		return errors.Errorf("frameBytes out of range: %d", cfg.FrameBytes)
	}
	return nil
}
