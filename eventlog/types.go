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

// Package eventlog carries the structured simulation events (one record per event type occurrence)
// that are consumed by offline analysis and by the metrics collector.
package eventlog

import (
	"go.uber.org/zap"

	. "github.com/openthread/tsch-ns/types"
)

type EventType string

const (
	TschSynced          EventType = "tsch.synced"
	TschDesynced        EventType = "tsch.desynced"
	TschAddCell         EventType = "tsch.add_cell"
	TschDeleteCell      EventType = "tsch.delete_cell"
	TschDeleteRefused   EventType = "tsch.delete_cell_refused"
	TschTxDone          EventType = "tsch.txdone"
	TschRxDone          EventType = "tsch.rxdone"
	TschEbTx            EventType = "tsch.eb_tx"
	TschEbRx            EventType = "tsch.eb_rx"
	TschBackoffUpdate   EventType = "tsch.be_updated"
	TschKeepAlive       EventType = "tsch.keep_alive"
	TschRedirect        EventType = "tsch.redirect"
	TschDrop            EventType = "tsch.drop"
	MsfUtilization      EventType = "msf.tx_cell_utilization"
	MsfScheduleFull     EventType = "msf.error_schedule_full"
	MsfNoCandidates     EventType = "msf.error_no_candidate_cells"
	MsfParentChange     EventType = "msf.parent_change"
	MsfRelocate         EventType = "msf.relocate_collision"
	MsfForceParent      EventType = "msf.force_parent_switch"
	MsfGuardRelease     EventType = "msf.guard_cell_release"
	MsfInconsistency    EventType = "msf.schedule_inconsistency"
	SixpTxRequest       EventType = "sixp.tx_request"
	SixpRxRequest       EventType = "sixp.rx_request"
	SixpTxResponse      EventType = "sixp.tx_response"
	SixpOutcome         EventType = "sixp.outcome"
	RplParentChange     EventType = "rpl.parent_change"
	RplForcedReselect   EventType = "rpl.forced_reselection"
	AppTx               EventType = "app.tx"
	AppRx               EventType = "app.rx"
	RadioCollision      EventType = "radio.collision"
	SimulationFatal     EventType = "simulation.fatal"
	SimulationTopology  EventType = "simulation.topology"
	SimulationTallyTrip EventType = "simulation.shared_cell_tally"
)

// Record is one event of one node at one ASN.
type Record struct {
	Asn    ASN
	NodeId NodeId
	Type   EventType
	Fields []zap.Field
}

// Field returns the field with the given key, if present.
func (r *Record) Field(key string) (zap.Field, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return zap.Field{}, false
}

// Sink consumes event records.
type Sink interface {
	Log(rec *Record)
	Close() error
}
