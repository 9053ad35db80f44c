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

package simulation

import . "github.com/openthread/tsch-ns/types"

type NodeCounters map[string]uint64

// Add adds the counters of other to nc.
func (nc NodeCounters) Add(other NodeCounters) {
	for k, v := range other {
		nc[k] += v
	}
}

type KpiAsn struct {
	Start    ASN    `json:"start"`
	End      ASN    `json:"end"`
	Duration uint64 `json:"duration"`
}

type KpiTimeSec struct {
	StartTimeSec float64 `json:"start"`
	EndTimeSec   float64 `json:"end"`
	PeriodSec    float64 `json:"duration"`
}

type KpiDelivery struct {
	Generated uint64  `json:"generated"`
	Received  uint64  `json:"received"`
	Ratio     float64 `json:"ratio"`
}

type KpiMac struct {
	NoAckPercentage map[NodeId]float64 `json:"noack_percent"`
}

type KpiSixp struct {
	Requests  uint64 `json:"requests"`
	Responses uint64 `json:"responses"`
	Busy      uint64 `json:"busy"`
	Timeouts  uint64 `json:"timeouts"`
}

type Kpi struct {
	FileTime string                  `json:"created"`
	RunId    string                  `json:"run_id"`
	Seed     int64                   `json:"seed"`
	Status   string                  `json:"status"`
	Asn      KpiAsn                  `json:"asn"`
	TimeSec  KpiTimeSec              `json:"time_sec"`
	Delivery KpiDelivery             `json:"delivery"`
	Mac      KpiMac                  `json:"mac"`
	Sixp     KpiSixp                 `json:"sixp"`
	Counters map[NodeId]NodeCounters `json:"counters"`
}
