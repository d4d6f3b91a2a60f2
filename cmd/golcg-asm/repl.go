// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/lassandro/golcg/pkg/assembler"
	"github.com/lassandro/golcg/pkg/mc"
	"github.com/lassandro/golcg/pkg/target"
)

const prompt = "\033[32m>\033[0m "
const resultprompt = "\033[31m=\033[0m "

// repl encodes one instruction per line and prints its bytes. Symbolic
// operands encode as zero.
func repl(t *target.Target) error {
	l, err := readline.NewEx(&readline.Config{
		Prompt:            prompt,
		HistoryFile:       ".golcg-history.tmp",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})

	if err != nil {
		return err
	}

	defer l.Close()
	l.CaptureExitSignal()

	printer := mc.NewInstPrinter(t)

	for {
		line, err := l.Readline()

		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				return nil
			}
			continue
		} else if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return err
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		inst, data, errs := assembler.AssembleLine(t, line)

		if len(errs) > 0 {
			for _, err := range errs {
				fmt.Fprintln(l.Stderr(), red(err.Error()))
			}
			continue
		}

		hex := make([]string, len(data))
		for i, b := range data {
			hex[i] = fmt.Sprintf("%02x", b)
		}

		fmt.Fprintf(l.Stdout(), "%s%s\t; %s\n", resultprompt, strings.Join(hex, " "), printer.Print(inst))
	}
}
