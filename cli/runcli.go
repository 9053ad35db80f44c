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
	"context"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/pkg/errors"

	"github.com/openthread/tsch-ns/logger"
)

// CliHandler executes one command line and provides the prompt.
type CliHandler interface {
	HandleCommand(cmd string, output io.Writer) error
	GetPrompt() string
}

type CliOptions struct {
	EchoInput   bool
	HistoryFile string
	Stdin       *os.File
	Stdout      *os.File
}

func DefaultCliOptions() *CliOptions {
	return &CliOptions{}
}

// CliInstance is the interactive shell. Only one runs per process.
type CliInstance struct {
	Started  chan struct{}
	Options  *CliOptions
	rl       *readline.Instance
	closed   chan struct{}
	stopping bool
}

var Cli = newCliInstance()

func newCliInstance() *CliInstance {
	return &CliInstance{
		Started: make(chan struct{}),
		closed:  make(chan struct{}),
	}
}

func (cli *CliInstance) withDefaults(options *CliOptions) *CliOptions {
	if options == nil {
		options = DefaultCliOptions()
	}
	if options.Stdin == nil {
		options.Stdin = os.Stdin
	}
	if options.Stdout == nil {
		options.Stdout = os.Stdout
	}
	return options
}

// OnStdout redraws the prompt after log output was written to the terminal.
func (cli *CliInstance) OnStdout() {
	if cli.rl != nil && !cli.stopping {
		cli.rl.Refresh()
	}
}

// Stop interrupts a running shell and waits for Run to return.
func (cli *CliInstance) Stop() {
	<-cli.Started
	cli.stopping = true
	// readline blocks on input; feed it an interrupt and close stdin so Run can close the instance.
	_, _ = cli.Options.Stdin.WriteString("\003\n")
	_ = cli.Options.Stdin.Close()
	<-cli.closed
	logger.Tracef("CLI stopped")
}

// Run reads command lines until EOF, interrupt, or the handler returns an error. An exit through
// context cancellation is not an error.
func (cli *CliInstance) Run(handler CliHandler, options *CliOptions) error {
	defer close(cli.closed)
	defer logger.Debugf("CLI exit")

	options = cli.withDefaults(options)
	cli.Options = options

	for _, f := range []*os.File{options.Stdin, options.Stdout} {
		fd := int(f.Fd())
		if !readline.IsTerminal(fd) {
			continue
		}
		state, err := readline.GetState(fd)
		if err != nil {
			close(cli.Started)
			return errors.Wrap(err, "get terminal state")
		}
		defer func() {
			_ = readline.Restore(fd, state)
		}()
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            handler.GetPrompt(),
		HistoryFile:       options.HistoryFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		Stdin:             options.Stdin,
		Stdout:            options.Stdout,
		FuncFilterInputRune: func(r rune) (rune, bool) {
			return r, r != readline.CharCtrlZ
		},
	})
	if err != nil {
		close(cli.Started)
		return errors.Wrap(err, "start readline")
	}
	defer func() {
		_ = rl.Close()
	}()
	cli.rl = rl
	close(cli.Started)

	for {
		rl.SetPrompt(handler.GetPrompt())
		line, err := rl.Readline()
		switch {
		case len(line) > 0 && line[0] == readline.CharInterrupt:
			return nil
		case errors.Is(err, readline.ErrInterrupt):
			if len(line) == 0 {
				return nil
			}
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return err
		}

		if options.EchoInput {
			if _, err := options.Stdout.WriteString(line + "\n"); err != nil {
				return err
			}
		}

		cmd := strings.TrimSpace(line)
		if len(cmd) == 0 {
			continue
		}
		err = handler.HandleCommand(cmd, rl.Stdout())
		_ = options.Stdout.Sync()
		if errors.Is(err, context.Canceled) {
			return nil
		} else if err != nil {
			return err
		}
	}
}
