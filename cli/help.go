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
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/mitchellh/go-wordwrap"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/term"
)

// Help renders the command reference embedded from README.md.
type Help struct {
	termWidth     uint
	indentWidth   uint
	commands      map[string]string
	commandsShort map[string]string
}

var (
	cmdHeaderPattern  = regexp.MustCompile("^### .+")
	linkTargetPattern = regexp.MustCompile(`\(#[a-z]+\)`)
)

//go:embed README.md
var cliHelpFile string

func newHelp() Help {
	h := Help{
		termWidth:     80,
		indentWidth:   2,
		commands:      make(map[string]string),
		commandsShort: make(map[string]string),
	}
	h.parse(cliHelpFile)
	return h
}

// updateWidth adapts the wrap width to the terminal, if stdout is one.
func (help *Help) updateWidth() {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return
	}
	if width, _, err := term.GetSize(fd); err == nil && width > 20 {
		help.termWidth = uint(width)
	}
}

func (help *Help) outputGeneralHelp() string {
	help.updateWidth()
	cmds := maps.Keys(help.commandsShort)
	slices.Sort(cmds)

	var sb strings.Builder
	for _, c := range cmds {
		sb.WriteString(fmt.Sprintf("%-12s %s\n", c, help.commandsShort[c]))
	}
	sb.WriteString(wordwrap.WrapString("\nFor detailed help per command, use: 'help <command>'\n", help.termWidth))
	return sb.String()
}

func (help *Help) outputCommandHelp(command string) string {
	help.updateWidth()
	explanation, ok := help.commands[command]
	if !ok {
		return fmt.Sprintf("%s\n  (Non-existent command.)\n", command)
	}

	var sb strings.Builder
	w := help.termWidth - help.indentWidth
	for _, line := range strings.Split(wordwrap.WrapString(explanation, w), "\n") {
		if line == command {
			sb.WriteString(line + "\n")
		} else if len(line) > 0 {
			sb.WriteString("  " + line + "\n")
		}
	}
	return sb.String()
}

// parse reads the markdown reference. Each "### <cmd>" header starts a command section; the first
// sentence of a section is its short help.
func (help *Help) parse(md string) {
	activeCmd := ""
	indent := ""
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case len(line) == 0:
			continue
		case line == "```bash":
			line, indent = "Example:", "    "
		case line == "```shell":
			line, indent = "Definition:", "    "
		case line == "```":
			indent = ""
			continue
		case cmdHeaderPattern.MatchString(line):
			activeCmd = strings.TrimSpace(line[strings.Index(line, " ")+1:])
			help.commands[activeCmd] = activeCmd + "\n"
			help.commandsShort[activeCmd] = ""
			continue
		}
		if activeCmd == "" {
			continue
		}

		if indent == "" || strings.HasSuffix(line, ":") {
			help.commands[activeCmd] += markdownUnquote(line) + "\n"
		} else {
			help.commands[activeCmd] += indent + line + "\n"
		}
		if help.commandsShort[activeCmd] == "" && indent == "" {
			short := markdownUnquote(line)
			if idx := strings.Index(short, "."); idx > 0 {
				short = short[:idx+1]
			}
			help.commandsShort[activeCmd] = short
		}
	}
}

func markdownUnquote(md string) string {
	md = strings.ReplaceAll(md, "\\", "")
	md = strings.ReplaceAll(md, "`", "")
	return linkTargetPattern.ReplaceAllString(md, "")
}
