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

// RadioModelIdeal delivers every frame within the transmitter's radio range and none beyond it.
type RadioModelIdeal struct{}

func (rm *RadioModelIdeal) Name() string {
	return ModelIdeal
}

func (rm *RadioModelIdeal) Pdr(src, dst *RadioNode) float64 {
	if src != dst && src.GetDistanceTo(dst) <= src.RadioRange {
		return 1.0
	}
	return 0.0
}

// RadioModelPathloss derives the PDR from the SNR at the receiver, using a pathloss model and the
// 802.15.4 O-QPSK bit error rate.
type RadioModelPathloss struct {
	name   string
	params *RadioModelParams
	txDbm  DbValue
	nbits  int
}

func newRadioModelPathloss(name string, cfg *Config, params *RadioModelParams) *RadioModelPathloss {
	return &RadioModelPathloss{
		name:   name,
		params: params,
		txDbm:  cfg.TxPowerDbm,
		nbits:  cfg.FrameBytes * 8,
	}
}

func (rm *RadioModelPathloss) Name() string {
	return rm.name
}

func (rm *RadioModelPathloss) Pdr(src, dst *RadioNode) float64 {
	if src == dst {
		return 0.0
	}
	dist := src.GetDistanceTo(dst)
	if rm.params.IsDiscLimit && dist > src.RadioRange {
		return 0.0
	}
	snr := computeRssi(dist, rm.txDbm, rm.params) - rm.params.NoiseFloorDbm
	if snr < rm.params.SnrMinThresholdDb {
		return 0.0
	}
	return computePacketSuccessRate(snr, rm.nbits)
}
