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

// Package radiomodel is the shared radio medium of the simulation: it resolves, once per slot, which
// listener hears which transmitter, detects collisions and returns link-layer ACKs.
package radiomodel

import (
	"github.com/pkg/errors"
)

// LinkModel computes the packet delivery ratio of a directed link from node positions.
type LinkModel interface {
	Name() string
	Pdr(src, dst *RadioNode) float64
}

// NewLinkModel creates the link model selected by cfg.Model.
func NewLinkModel(cfg *Config) (LinkModel, error) {
	switch cfg.Model {
	case ModelIdeal:
		return &RadioModelIdeal{}, nil
	case ModelIndoor:
		params := newRadioModelParams(cfg)
		setIndoorModelParams3gpp(params)
		return newRadioModelPathloss(ModelIndoor, cfg, params), nil
	case ModelItu:
		params := newRadioModelParams(cfg)
		setIndoorModelParamsItu(params)
		return newRadioModelPathloss(ModelItu, cfg, params), nil
	default:
		return nil, errors.Errorf("unknown radio model: %q", cfg.Model)
	}
}
