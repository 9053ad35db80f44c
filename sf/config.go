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

package sf

import (
	"github.com/pkg/errors"
)

// Class selects the scheduling function implementation of a node.
type Class string

const (
	ClassMSF  Class = "msf"
	ClassNone Class = "none"
)

func ParseClass(s string) (Class, error) {
	switch Class(s) {
	case ClassMSF, ClassNone:
		return Class(s), nil
	case "":
		return ClassMSF, nil
	default:
		return "", errors.Errorf("unknown scheduling function %q", s)
	}
}

// ParentChangePolicy decides what happens to the cells to the old parent while frames to it are still queued.
type ParentChangePolicy string

const (
	// PolicyGuardCell keeps one locked cell to the old parent until the queue drains.
	PolicyGuardCell ParentChangePolicy = "guardCell"
	// PolicyRedirection sends the queued frames to the new parent and clears every cell to the old one.
	PolicyRedirection ParentChangePolicy = "redirection"
)

type Config struct {
	Class Class `yaml:"class"`

	MaxNumCells                 int                `yaml:"maxNumCells"` // adaptation window, in elapsed TX cells
	LimNumCellsUsedHigh         float64            `yaml:"limNumCellsUsedHigh"`
	LimNumCellsUsedLow          float64            `yaml:"limNumCellsUsedLow"`
	MaxDedicatedCellsPerParent  int                `yaml:"maxDedicatedCellsPerParent"`
	MaxAddRequestsPerParent     int                `yaml:"maxAddRequestsPerParent"`
	HousekeepingCollisionPeriod uint64             `yaml:"housekeepingCollisionPeriod"` // in slots
	RefreshPeriod               uint64             `yaml:"refreshPeriod"`               // in slots
	MinNumTx                    int                `yaml:"minNumTx"`
	RelocatePdrThreshold        float64            `yaml:"relocatePdrThreshold"`
	CellListLen                 int                `yaml:"cellListLen"`
	ParentChangePolicy          ParentChangePolicy `yaml:"parentChangePolicy"`
}

func DefaultConfig() *Config {
	return &Config{
		Class:                       ClassMSF,
		MaxNumCells:                 100,
		LimNumCellsUsedHigh:         0.75,
		LimNumCellsUsedLow:          0.25,
		MaxDedicatedCellsPerParent:  10,
		MaxAddRequestsPerParent:     5,
		HousekeepingCollisionPeriod: 6000,
		RefreshPeriod:               3000,
		MinNumTx:                    10,
		RelocatePdrThreshold:        0.5,
		CellListLen:                 5,
		ParentChangePolicy:          PolicyGuardCell,
	}
}

func (cfg *Config) Validate() error {
	if _, err := ParseClass(string(cfg.Class)); err != nil {
		return err
	}
	if cfg.MaxNumCells <= 0 {
		return errors.Errorf("msf window must be > 0, got %d", cfg.MaxNumCells)
	}
	if cfg.LimNumCellsUsedLow < 0 || cfg.LimNumCellsUsedHigh > 1 || cfg.LimNumCellsUsedLow >= cfg.LimNumCellsUsedHigh {
		return errors.Errorf("invalid utilization thresholds [%v, %v]", cfg.LimNumCellsUsedLow, cfg.LimNumCellsUsedHigh)
	}
	if cfg.CellListLen <= 0 {
		return errors.Errorf("cell list length must be > 0, got %d", cfg.CellListLen)
	}
	if cfg.HousekeepingCollisionPeriod == 0 || cfg.RefreshPeriod == 0 {
		return errors.New("msf housekeeping periods must be > 0")
	}
	switch cfg.ParentChangePolicy {
	case PolicyGuardCell, PolicyRedirection:
	default:
		return errors.Errorf("unknown parent change policy %q", cfg.ParentChangePolicy)
	}
	return nil
}
