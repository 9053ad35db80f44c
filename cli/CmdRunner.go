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

// Package cli implements the interactive TSCH-NS shell. It parses and executes CLI commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/openthread/tsch-ns/logger"
	"github.com/openthread/tsch-ns/progctx"
	"github.com/openthread/tsch-ns/schedule"
	"github.com/openthread/tsch-ns/simulation"
	. "github.com/openthread/tsch-ns/types"
)

const (
	Prompt = "> "

	defaultKpiFile = "tsch-ns_kpi.json"
)

type CommandContext struct {
	context.Context
	*Command
	rt     *CmdRunner
	err    error
	output io.Writer
}

func (cc *CommandContext) outputStr(msg string) {
	_, _ = fmt.Fprint(cc.output, msg)
}

func (cc *CommandContext) outputf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cc.output, format, args...)
}

func (cc *CommandContext) errorf(format string, args ...interface{}) {
	cc.error(errors.Errorf(format, args...))
}

func (cc *CommandContext) error(err error) {
	if err != nil {
		if cc.err != nil { // if previous error, print it now and keep the last.
			cc.outputf("Error: %s\n", cc.err)
		}
		cc.err = err
	}
}

// Err returns the last error that occurred during command execution.
func (cc *CommandContext) Err() error {
	return cc.err
}

// outputItemsAsYaml writes one flow-style YAML line per item.
func (cc *CommandContext) outputItemsAsYaml(items interface{}) {
	var itemsYaml yaml.Node

	err := itemsYaml.Encode(items)
	logger.PanicIfError(err)

	for _, content := range itemsYaml.Content {
		content.Style = yaml.FlowStyle
	}

	data, err := yaml.Marshal(&itemsYaml)
	logger.PanicIfError(err)

	_, err = cc.output.Write(data)
	logger.PanicIfError(err)
}

type CmdRunner struct {
	sim  *simulation.Simulation
	ctx  *progctx.ProgCtx
	kpi  *simulation.KpiManager
	help Help
}

func NewCmdRunner(ctx *progctx.ProgCtx, sim *simulation.Simulation) *CmdRunner {
	return &CmdRunner{
		ctx:  ctx,
		sim:  sim,
		kpi:  simulation.NewKpiManager(sim),
		help: newHelp(),
	}
}

// HandleCommand parses and runs one command line. It returns the context error once the program exits.
func (rt *CmdRunner) HandleCommand(cmdline string, output io.Writer) error {
	if rt.ctx.Err() != nil {
		return rt.ctx.Err()
	}
	cmd := Command{}
	if err := parseBytes([]byte(cmdline), &cmd); err != nil {
		if _, err := fmt.Fprintf(output, "Error: %v\n", err); err != nil {
			return err
		}
	} else {
		rt.execute(&cmd, output)
	}
	return rt.ctx.Err()
}

func (rt *CmdRunner) GetPrompt() string {
	return fmt.Sprintf("[%d]%s", rt.sim.Asn(), Prompt)
}

func (rt *CmdRunner) execute(cmd *Command, output io.Writer) {
	cc := &CommandContext{
		Context: rt.ctx,
		Command: cmd,
		rt:      rt,
		output:  output,
	}

	defer func() {
		if cc.Err() != nil {
			cc.outputf("Error: %v\n", cc.Err())
		} else {
			cc.outputf("Done\n")
		}
	}()

	defer func() {
		rerr := recover()

		if rerr != nil {
			if err, ok := rerr.(error); ok {
				cc.err = errors.Wrapf(err, "panic: %v", err)
			} else {
				cc.err = errors.Errorf("panic: %v", rerr)
			}
		}
	}()

	if cmd.Go != nil {
		rt.executeGo(cc, cmd.Go)
	} else if cmd.Asn != nil {
		cc.outputf("%d\n", rt.sim.Asn())
	} else if cmd.Nodes != nil {
		rt.executeLsNodes(cc)
	} else if cmd.Schedule != nil {
		rt.executeSchedule(cc, cmd.Schedule)
	} else if cmd.Queue != nil {
		rt.executeQueue(cc, cmd.Queue)
	} else if cmd.Parent != nil {
		rt.executeParent(cc, cmd.Parent)
	} else if cmd.Desync != nil {
		cc.error(rt.sim.Desync(cmd.Desync.Node.Id))
	} else if cmd.Kpi != nil {
		rt.executeKpi(cc, cmd.Kpi)
	} else if cmd.LogLevel != nil {
		rt.executeLogLevel(cc, cmd.LogLevel)
	} else if cmd.Help != nil {
		rt.executeHelp(cc, cmd.Help)
	} else if cmd.Exit != nil {
		rt.executeExit(cc)
	} else {
		logger.Panicf("unimplemented command: %#v", cmd)
	}
}

func (rt *CmdRunner) executeGo(cc *CommandContext, cmd *GoCmd) {
	if cmd.Slots <= 0 {
		cc.errorf("invalid number of slots: %d", cmd.Slots)
		return
	}
	slots := uint64(cmd.Slots)
	if cmd.Unit == "slotframes" || cmd.Unit == "sf" {
		slots *= uint64(rt.sim.Config().Tsch.SlotframeLength)
	}
	cc.error(rt.sim.Go(slots))
}

func (rt *CmdRunner) getNode(cc *CommandContext, sel NodeSelector) *simulation.Node {
	node := rt.sim.Node(sel.Id)
	if node == nil {
		cc.errorf("node %d not found", sel.Id)
	}
	return node
}

func (rt *CmdRunner) executeLsNodes(cc *CommandContext) {
	var infos []simulation.NodeInfo
	for _, id := range rt.sim.NodeIds() {
		infos = append(infos, rt.sim.Node(id).Info())
	}
	cc.outputItemsAsYaml(infos)
}

type cellItem struct {
	Slot     int    `yaml:"slot"`
	Channel  int    `yaml:"ch"`
	Neighbor string `yaml:"nbr"`
	Options  string `yaml:"opts"`
	NumTx    int    `yaml:"tx"`
	NumTxAck int    `yaml:"ack"`
	NumRx    int    `yaml:"rx"`
	Locked   bool   `yaml:"locked,omitempty"`
}

func (rt *CmdRunner) executeSchedule(cc *CommandContext, cmd *ScheduleCmd) {
	node := rt.getNode(cc, cmd.Node)
	if node == nil {
		return
	}
	locked := node.LockedSlots()
	var items []cellItem
	for _, c := range node.Schedule().Cells() {
		items = append(items, cellItem{
			Slot:     c.SlotOffset,
			Channel:  c.ChannelOffset,
			Neighbor: NodeIdString(c.Neighbor),
			Options:  c.Options.String(),
			NumTx:    c.NumTx,
			NumTxAck: c.NumTxAck,
			NumRx:    c.NumRx,
			Locked:   locked.Contains(c.SlotOffset),
		})
	}
	cc.outputItemsAsYaml(items)
	if free := lockedWithoutCell(node.Schedule(), locked); len(free) > 0 {
		cc.outputf("locked without cell: %v\n", free)
	}
}

func lockedWithoutCell(table *schedule.Table, locked *schedule.LockedSlots) []int {
	var res []int
	for _, slot := range locked.Slots() {
		if table.Get(slot) == nil {
			res = append(res, slot)
		}
	}
	return res
}

func (rt *CmdRunner) executeQueue(cc *CommandContext, cmd *QueueCmd) {
	node := rt.getNode(cc, cmd.Node)
	if node == nil {
		return
	}
	for i, f := range node.Mac.TxQueue() {
		cc.outputf("%d\t%v\n", i, f)
	}
}

func (rt *CmdRunner) executeParent(cc *CommandContext, cmd *ParentCmd) {
	node := rt.getNode(cc, cmd.Node)
	if node == nil {
		return
	}
	if cmd.Parent == nil {
		if parent := node.Rpl.PreferredParent(); parent == InvalidNodeId {
			cc.outputf("none\n")
		} else {
			cc.outputf("%d\n", parent)
		}
		return
	}
	cc.error(rt.sim.SetParent(cmd.Node.Id, cmd.Parent.Id))
}

func (rt *CmdRunner) executeKpi(cc *CommandContext, cmd *KpiCmd) {
	switch cmd.Op {
	case "start":
		if rt.kpi.IsRunning() {
			cc.errorf("KPI collection already running")
			return
		}
		rt.kpi.Start()
	case "stop":
		rt.kpi.Stop()
	case "save":
		fn := unquote(cmd.File)
		if fn == "" {
			fn = defaultKpiFile
		}
		cc.error(rt.kpi.SaveFile(fn))
	default:
		kpi := rt.kpi.Kpi()
		cc.outputf("status=%s running=%v asn=%d..%d generated=%d received=%d pdr=%.3f\n", kpi.Status,
			rt.kpi.IsRunning(), kpi.Asn.Start, kpi.Asn.End, kpi.Delivery.Generated, kpi.Delivery.Received,
			kpi.Delivery.Ratio)
	}
}

// unquote strips the quotes of a String token if the lexer left them in place.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
	}
	return s
}

func (rt *CmdRunner) executeLogLevel(cc *CommandContext, cmd *LogLevelCmd) {
	if cmd.Level == "" {
		cc.outputf("%v\n", logger.GetLevelString(logger.GetLevel()))
		return
	}
	level, err := logger.ParseLevelString(cmd.Level)
	if err != nil {
		cc.error(err)
		return
	}
	logger.SetLevel(level)
}

func (rt *CmdRunner) executeHelp(cc *CommandContext, cmd *HelpCmd) {
	if len(cmd.HelpTopic) > 0 {
		cc.outputStr(rt.help.outputCommandHelp(cmd.HelpTopic))
	} else {
		cc.outputStr(rt.help.outputGeneralHelp())
	}
}

func (rt *CmdRunner) executeExit(cc *CommandContext) {
	rt.ctx.Cancel("exit")
}
