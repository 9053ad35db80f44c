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
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/openthread/tsch-ns/radiomodel"
	. "github.com/openthread/tsch-ns/types"
)

// NodeConfig is one node of a scenario file.
type NodeConfig struct {
	Id         NodeId     `yaml:"id"`
	Position   [3]float64 `yaml:"pos"`
	RadioRange float64    `yaml:"radioRange,omitempty"`
	// Parents lists the candidate parents in order of preference.
	Parents []NodeId `yaml:"parents,flow,omitempty"`
	// PacketPeriod overrides the app packet period of this node.
	PacketPeriod *uint64 `yaml:"packetPeriod,omitempty"`
}

func (nc *NodeConfig) radioConfig() *radiomodel.RadioNodeConfig {
	return &radiomodel.RadioNodeConfig{
		X:          nc.Position[0],
		Y:          nc.Position[1],
		Z:          nc.Position[2],
		RadioRange: nc.RadioRange,
	}
}

// LinkConfig overrides the delivery ratio of a link computed by the radio model.
type LinkConfig struct {
	Src       NodeId  `yaml:"src"`
	Dst       NodeId  `yaml:"dst"`
	Pdr       float64 `yaml:"pdr"`
	Symmetric bool    `yaml:"symmetric,omitempty"`
}

// Scenario is the topology a simulation runs on.
type Scenario struct {
	Root  NodeId       `yaml:"root"`
	Nodes []NodeConfig `yaml:"nodes"`
	Links []LinkConfig `yaml:"links,omitempty"`
}

func ParseScenario(data []byte) (*Scenario, error) {
	sc := &Scenario{}
	if err := yaml.Unmarshal(data, sc); err != nil {
		return nil, errors.Wrap(err, "parse scenario")
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read scenario %s", path)
	}
	return ParseScenario(data)
}

func (sc *Scenario) Validate() error {
	ids := map[NodeId]bool{}
	for _, nc := range sc.Nodes {
		if nc.Id <= 0 || nc.Id > MaxNodeId {
			return errors.Errorf("invalid node id %d", nc.Id)
		}
		if ids[nc.Id] {
			return errors.Errorf("duplicate node id %d", nc.Id)
		}
		ids[nc.Id] = true
	}
	if !ids[sc.Root] {
		return errors.Errorf("root %d is not a scenario node", sc.Root)
	}
	for _, nc := range sc.Nodes {
		if nc.Id == sc.Root && len(nc.Parents) > 0 {
			return errors.Errorf("root %d cannot have parents", nc.Id)
		}
		for _, p := range nc.Parents {
			if !ids[p] || p == nc.Id {
				return errors.Errorf("node %d: invalid parent %d", nc.Id, p)
			}
		}
	}
	for _, l := range sc.Links {
		if !ids[l.Src] || !ids[l.Dst] || l.Src == l.Dst {
			return errors.Errorf("invalid link %d->%d", l.Src, l.Dst)
		}
		if l.Pdr < 0 || l.Pdr > 1 {
			return errors.Errorf("link %d->%d: pdr %v out of range", l.Src, l.Dst, l.Pdr)
		}
	}
	return nil
}

// LinearScenario chains n nodes spacing units apart. Node 1 is the root and every other node prefers its
// predecessor, falling back to the node before it.
func LinearScenario(n int, spacing float64) *Scenario {
	sc := &Scenario{Root: 1}
	for id := 1; id <= n; id++ {
		nc := NodeConfig{Id: id, Position: [3]float64{float64(id-1) * spacing, 0, 0}}
		if id > 1 {
			nc.Parents = append(nc.Parents, id-1)
		}
		if id > 2 {
			nc.Parents = append(nc.Parents, id-2)
		}
		sc.Nodes = append(sc.Nodes, nc)
	}
	return sc
}
