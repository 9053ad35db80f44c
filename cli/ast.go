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

package cli

import (
	"github.com/alecthomas/participle"
)

// noinspection GoStructTag
type Command struct {
	Asn      *AsnCmd      `  @@` //nolint
	Desync   *DesyncCmd   `| @@` //nolint
	Exit     *ExitCmd     `| @@` //nolint
	Go       *GoCmd       `| @@` //nolint
	Help     *HelpCmd     `| @@` //nolint
	Kpi      *KpiCmd      `| @@` //nolint
	LogLevel *LogLevelCmd `| @@` //nolint
	Nodes    *NodesCmd    `| @@` //nolint
	Parent   *ParentCmd   `| @@` //nolint
	Queue    *QueueCmd    `| @@` //nolint
	Schedule *ScheduleCmd `| @@` //nolint
}

// noinspection GoStructTag
type NodeSelector struct {
	Id int `@Int` //nolint
}

// noinspection GoStructTag
type AsnCmd struct {
	Cmd struct{} `"asn"` //nolint
}

// noinspection GoStructTag
type DesyncCmd struct {
	Cmd  struct{}     `"desync"` //nolint
	Node NodeSelector `@@`       //nolint
}

// noinspection GoStructTag
type ExitCmd struct {
	Cmd struct{} `"exit"` //nolint
}

// noinspection GoStructTag
type GoCmd struct {
	Cmd   struct{} `"go"`                             //nolint
	Slots int      `@Int`                             //nolint
	Unit  string   `[ @("slots"|"slotframes"|"sf") ]` //nolint
}

// noinspection GoStructTag
type HelpCmd struct {
	Cmd       struct{} `"help"`       //nolint
	HelpTopic string   `[ (@Ident) ]` //nolint
}

// noinspection GoStructTag
type KpiCmd struct {
	Cmd  struct{} `"kpi"`                        //nolint
	Op   string   `[ @("start"|"stop"|"save") ]` //nolint
	File string   `[ @String ]`                  //nolint
}

// noinspection GoStructTag
type LogLevelCmd struct {
	Cmd   struct{} `"log"`      //nolint
	Level string   `[ @Ident ]` //nolint
}

// noinspection GoStructTag
type NodesCmd struct {
	Cmd struct{} `"nodes"` //nolint
}

// noinspection GoStructTag
type ParentCmd struct {
	Cmd    struct{}      `"parent"` //nolint
	Node   NodeSelector  `@@`       //nolint
	Parent *NodeSelector `[ @@ ]`   //nolint
}

// noinspection GoStructTag
type QueueCmd struct {
	Cmd  struct{}     `"queue"` //nolint
	Node NodeSelector `@@`      //nolint
}

// noinspection GoStructTag
type ScheduleCmd struct {
	Cmd  struct{}     `"schedule"` //nolint
	Node NodeSelector `@@`         //nolint
}

var (
	commandParser = participle.MustBuild(&Command{})
)

func parseBytes(b []byte, cmd *Command) error {
	return commandParser.ParseBytes(b, cmd)
}
