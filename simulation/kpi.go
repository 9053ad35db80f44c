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

import (
	"encoding/json"
	"math"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/openthread/tsch-ns/logger"
	"github.com/openthread/tsch-ns/sixp"
	. "github.com/openthread/tsch-ns/types"
)

type NodeCountersStore map[NodeId]NodeCounters

// KpiManager measures the key performance indicators of a simulation between Start and Stop.
type KpiManager struct {
	sim           *Simulation
	data          *Kpi
	startAsn      ASN
	startCounters NodeCountersStore
	curCounters   NodeCountersStore
	startSixp     sixp.LoopbackStats
	curSixp       sixp.LoopbackStats
	isRunning     bool
}

func NewKpiManager(sim *Simulation) *KpiManager {
	return &KpiManager{
		sim:  sim,
		data: &Kpi{Status: "ok"},
	}
}

func (km *KpiManager) Start() {
	logger.AssertFalse(km.isRunning)
	km.startAsn = km.sim.Asn()
	km.startCounters = km.retrieveNodeCounters()
	km.startSixp = km.sim.Transport().Stats()
	km.isRunning = true
}

func (km *KpiManager) Stop() {
	if !km.isRunning {
		return
	}
	km.update()
	km.isRunning = false
}

func (km *KpiManager) IsRunning() bool {
	return km.isRunning
}

// Kpi returns the indicators, updated to the current ASN while running.
func (km *KpiManager) Kpi() *Kpi {
	if km.isRunning {
		km.update()
	}
	return km.data
}

// SaveFile writes the indicators as JSON.
func (km *KpiManager) SaveFile(fn string) error {
	data := km.Kpi()
	data.FileTime = time.Now().Format(time.RFC3339)
	js, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return errors.Wrap(err, "encode KPIs")
	}
	if err := os.WriteFile(fn, js, 0644); err != nil {
		return errors.Wrapf(err, "write KPI file %s", fn)
	}
	return nil
}

func (km *KpiManager) update() {
	km.curCounters = km.retrieveNodeCounters()
	km.curSixp = km.sim.Transport().Stats()
	if km.sim.Dispatcher().Err() != nil {
		km.data.Status = "stopped by a fatal schedule error"
	}
	km.calculateKpis()
}

func (km *KpiManager) retrieveNodeCounters() NodeCountersStore {
	store := make(NodeCountersStore, len(km.sim.nodes))
	for _, id := range km.sim.NodeIds() {
		n := km.sim.nodes[id]
		app := n.App.Stats()
		radio := n.Radio.Stats()
		ctr := NodeCounters{
			"app.generated":    uint64(app.NumGenerated),
			"app.forwarded":    uint64(app.NumForwarded),
			"app.received":     uint64(app.NumReceived),
			"app.noroute":      uint64(app.NumNoRoute),
			"radio.tx":         uint64(radio.NumTx),
			"radio.rx":         uint64(radio.NumRx),
			"radio.collisions": uint64(radio.NumCollisions),
		}
		for _, c := range n.Mac.Schedule().Cells() {
			if c.IsDedicated() {
				ctr["mac.txAttempts"] += uint64(c.NumTx)
				ctr["mac.txAcked"] += uint64(c.NumTxAck)
			}
		}
		store[id] = ctr
	}
	return store
}

func getCountersDiff(curCtr NodeCounters, startCtr NodeCounters) NodeCounters {
	ret := NodeCounters{}
	for k, v := range curCtr {
		startVal := startCtr[k]
		if startVal > v {
			// per cell counters vanish with their cell
			startVal = 0
		}
		ret[k] = v - startVal
	}
	return ret
}

func (km *KpiManager) calculateKpis() {
	cfg := km.sim.Config().Tsch
	km.data.RunId = km.sim.RunId()
	km.data.Seed = km.sim.Seed()
	km.data.Asn.Start = km.startAsn
	km.data.Asn.End = km.sim.Asn()
	km.data.Asn.Duration = km.data.Asn.End - km.data.Asn.Start
	km.data.TimeSec.StartTimeSec = float64(km.data.Asn.Start) * cfg.SlotDuration
	km.data.TimeSec.EndTimeSec = float64(km.data.Asn.End) * cfg.SlotDuration
	km.data.TimeSec.PeriodSec = float64(km.data.Asn.Duration) * cfg.SlotDuration

	km.data.Sixp = KpiSixp{
		Requests:  uint64(km.curSixp.NumRequests - km.startSixp.NumRequests),
		Responses: uint64(km.curSixp.NumResponses - km.startSixp.NumResponses),
		Busy:      uint64(km.curSixp.NumBusy - km.startSixp.NumBusy),
		Timeouts:  uint64(km.curSixp.NumTimeouts - km.startSixp.NumTimeouts),
	}

	km.data.Mac.NoAckPercentage = make(map[NodeId]float64)
	km.data.Counters = make(map[NodeId]NodeCounters)
	total := NodeCounters{}
	for nid, ctr := range km.curCounters {
		counters := getCountersDiff(ctr, km.startCounters[nid])
		noAckPercent := 100.0 - 100.0*float64(counters["mac.txAcked"])/float64(counters["mac.txAttempts"])
		if math.IsNaN(noAckPercent) {
			noAckPercent = 0.0
		}
		km.data.Mac.NoAckPercentage[nid] = noAckPercent
		km.data.Counters[nid] = counters
		total.Add(counters)
	}

	km.data.Delivery.Generated = total["app.generated"]
	km.data.Delivery.Received = total["app.received"]
	km.data.Delivery.Ratio = 0
	if total["app.generated"] > 0 {
		km.data.Delivery.Ratio = float64(total["app.received"]) / float64(total["app.generated"])
	}
}
