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

package main

import (
	"context"
	"os"
	"syscall"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/openthread/tsch-ns/cli"
	"github.com/openthread/tsch-ns/eventlog"
	"github.com/openthread/tsch-ns/logger"
	"github.com/openthread/tsch-ns/metrics"
	"github.com/openthread/tsch-ns/progctx"
	"github.com/openthread/tsch-ns/simulation"
)

type mainArgs struct {
	ConfigFile   string
	ScenarioFile string
	Seed         int64
	LogLevel     string
	LogFile      string
	EventFiles   []string
	MetricsAddr  string
	Slots        uint64
	Interactive  bool
	KpiFile      string
	HistoryFile  string
}

var args mainArgs

var rootCmd = &cobra.Command{
	Use:          "tsch-ns",
	Short:        "TSCH network simulator with MSF cell negotiation",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&args.ConfigFile, "config", "c", "", "simulation config file (.yaml or .json)")
	f.StringVarP(&args.ScenarioFile, "scenario", "s", "", "scenario file; default is a 5 node line")
	f.Int64Var(&args.Seed, "seed", 0, "root random seed; 0 picks a time-based seed")
	f.StringVar(&args.LogLevel, "log", "", "log level: trace, debug, info, note, warn, error, off")
	f.StringVar(&args.LogFile, "log-file", "", "also write the diagnostic log to this file")
	f.StringSliceVar(&args.EventFiles, "events", nil, "write the event log as JSON lines to these paths")
	f.StringVar(&args.MetricsAddr, "metrics-addr", "", "serve prometheus metrics on this address, e.g. :9100")
	f.Uint64Var(&args.Slots, "slots", 0, "number of slots to run before the shell starts or the program exits")
	f.BoolVarP(&args.Interactive, "interactive", "i", true, "start the interactive shell")
	f.StringVar(&args.KpiFile, "kpi", "", "measure KPIs over the --slots run and save them to this JSON file")
	f.StringVar(&args.HistoryFile, "history", "", "shell history file")
}

// Execute runs the command line.
func Execute() error { return rootCmd.Execute() }

func loadConfig(cmd *cobra.Command) (*simulation.Config, error) {
	cfg := simulation.DefaultConfig()
	if args.ConfigFile != "" {
		var err error
		if cfg, err = simulation.LoadConfig(args.ConfigFile); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = args.Seed
	}
	if args.LogLevel != "" {
		cfg.LogLevel = args.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, _ := logger.ParseLevelString(cfg.LogLevel)
	logger.SetLevel(level)
	if args.LogFile != "" {
		if err := logger.SetOutput([]string{"stderr", args.LogFile}); err != nil {
			return nil, errors.Wrapf(err, "log file %s", args.LogFile)
		}
	}
	return cfg, nil
}

func loadScenario() (*simulation.Scenario, error) {
	if args.ScenarioFile == "" {
		return simulation.LinearScenario(5, 40), nil
	}
	return simulation.LoadScenario(args.ScenarioFile)
}

func run(cmd *cobra.Command, _ []string) error {
	ctx := progctx.NewWithSignals(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer ctx.Wait()
	defer ctx.Cancel("exit")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	sc, err := loadScenario()
	if err != nil {
		return errors.Wrap(err, "load scenario")
	}

	runId := simulation.NewRunId()
	var sinks []eventlog.Sink
	if len(args.EventFiles) > 0 {
		zs, err := eventlog.NewZapSink(runId, args.EventFiles...)
		if err != nil {
			return err
		}
		sinks = append(sinks, zs)
	}
	if args.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		collector, err := metrics.NewCollector(reg)
		if err != nil {
			return err
		}
		sinks = append(sinks, collector)
		serveMetrics(ctx, reg)
	}

	sim, err := simulation.NewSimulationFromScenario(cfg, runId, sc, sinks...)
	if err != nil {
		return err
	}
	logger.SetClock(sim.Dispatcher())
	defer func() {
		logger.SetClock(nil)
		if err := sim.Close(); err != nil {
			logger.Errorf("simulation close: %v", err)
		}
		logger.Sync()
	}()

	if err := runSlots(ctx, sim); err != nil {
		return err
	}
	if !args.Interactive || ctx.Err() != nil {
		return nil
	}

	logger.SetStdoutCallback(cli.Cli)
	defer logger.SetStdoutCallback(nil)
	ctx.Defer(func() {
		if ctx.Cause() != nil && ctx.Cause().Error() == "signal" {
			cli.Cli.Stop()
		}
	})
	rt := cli.NewCmdRunner(ctx, sim)
	return cli.Cli.Run(rt, &cli.CliOptions{HistoryFile: args.HistoryFile})
}

// runSlots advances the simulation by --slots, one slotframe at a time so that a signal stops it early.
func runSlots(ctx *progctx.ProgCtx, sim *simulation.Simulation) error {
	if args.Slots == 0 {
		return nil
	}
	var kpi *simulation.KpiManager
	if args.KpiFile != "" {
		kpi = simulation.NewKpiManager(sim)
		kpi.Start()
	}

	step := uint64(sim.Config().Tsch.SlotframeLength)
	end := uint64(sim.Asn()) + args.Slots
	for ctx.Err() == nil && uint64(sim.Asn()) < end {
		n := min(step, end-uint64(sim.Asn()))
		if err := sim.Go(n); err != nil {
			return err
		}
	}
	logger.Infof("ran %d slots, ASN %d", args.Slots, sim.Asn())

	if kpi != nil {
		kpi.Stop()
		if err := kpi.SaveFile(args.KpiFile); err != nil {
			return err
		}
		logger.Infof("KPIs saved to %s", args.KpiFile)
	}
	return nil
}

func serveMetrics(ctx *progctx.ProgCtx, gatherer prometheus.Gatherer) {
	ctx.WaitAdd("metrics", 1)
	go func() {
		defer ctx.WaitDone("metrics")
		err := metrics.Serve(ctx, args.MetricsAddr, gatherer)
		if err != nil && !errors.Is(err, context.Canceled) && ctx.Err() == nil {
			logger.Errorf("metrics server stopped: %v", err)
		}
	}()
}
