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

// Package listing prints assembled objects for people: hex dumps,
// disassembly annotated with labels and relocations, and the source lines
// behind each instruction.
package listing

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/lassandro/golcg/pkg/assembler"
	"github.com/lassandro/golcg/pkg/disasm"
	"github.com/lassandro/golcg/pkg/mc"
	"github.com/lassandro/golcg/pkg/object"
	"github.com/lassandro/golcg/pkg/target"
)

type Listing struct {
	Target *target.Target
	Object *object.File
	Out    io.Writer
	// ANSI colours, only when Out is a terminal.
	Color bool

	Source   io.ReadSeeker
	SymTable *assembler.SymTable
}

func (l *Listing) bold(s string) string {
	if l.Color {
		return "\033[1m" + s + "\033[0m"
	}
	return s
}

func (l *Listing) dim(s string) string {
	if l.Color {
		return "\033[1;30m" + s + "\033[0m"
	}
	return s
}

// PrintMem dumps count bytes of the text section from offset, eight to a
// row.
func (l *Listing) PrintMem(offset, count uint64) {
	text := l.Object.Text

	if offset >= uint64(len(text)) {
		fmt.Fprintf(l.Out, "No data at %#08x\n", offset)
		return
	}

	if end := uint64(len(text)); offset+count > end {
		count = end - offset
	}

	for i := offset; i < offset+count; i++ {
		if i == offset {
			fmt.Fprint(l.Out, l.bold(fmt.Sprintf("[%#08x]", i))+" ")
		} else if (i-offset)%8 == 0 {
			fmt.Fprintln(l.Out)
			fmt.Fprint(l.Out, l.bold(fmt.Sprintf("[%#08x]", i))+" ")
		}

		if text[i] == 0 {
			fmt.Fprint(l.Out, l.dim("00")+" ")
		} else {
			fmt.Fprintf(l.Out, "%02x ", text[i])
		}
	}

	fmt.Fprintln(l.Out)
}

// PrintDisassembly decodes the whole text section. Symbolic operands are
// shown through the relocation that patches them.
func (l *Listing) PrintDisassembly() {
	printer := mc.NewInstPrinter(l.Target)

	for _, line := range disasm.Disassemble(l.Target, l.Object.Text) {
		for _, symbol := range l.Object.SymbolsAt(line.Offset) {
			fmt.Fprintln(l.Out, l.bold(symbol.Name+":"))
		}

		hex := make([]string, len(line.Bytes))
		for i, b := range line.Bytes {
			hex[i] = fmt.Sprintf("%02x", b)
		}

		text := l.dim("<invalid>")
		if line.Err == nil {
			text = printer.Print(line.Inst)
		}

		fmt.Fprintf(
			l.Out, "%8x:\t%-23s\t%s\n", line.Offset, strings.Join(hex, " "), text,
		)

		end := line.Offset + uint64(len(line.Bytes))

		for _, rel := range l.Object.RelocationsIn(line.Offset, end) {
			fmt.Fprintf(l.Out, "\t\t\t\t\t%s\n", l.dim(rel.String()))
		}
	}
}

// PrintSource prints count source lines starting at the instruction at
// offset, marking the lines that produced an instruction.
func (l *Listing) PrintSource(offset uint64, count int) error {
	if l.Source == nil {
		fmt.Fprintln(l.Out, "No source file loaded")
		return nil
	}

	if l.SymTable == nil {
		fmt.Fprintln(l.Out, "No symbol table loaded")
		return nil
	}

	start, exists := l.SymTable.Symbols[offset]

	if !exists {
		fmt.Fprintf(l.Out, "No instruction found at %#08x\n", offset)
		return nil
	}

	addrs := make(map[int64]uint64, len(l.SymTable.Symbols))
	for addr, linebyte := range l.SymTable.Symbols {
		addrs[linebyte] = addr
	}

	if _, err := l.Source.Seek(start, io.SeekStart); err != nil {
		return err
	}

	scanner := bufio.NewScanner(l.Source)
	linebyte := start

	for i := 0; i < count && scanner.Scan(); i++ {
		line := scanner.Text()

		if addr, found := addrs[linebyte]; found {
			if label, ok := l.SymTable.Labels[addr]; ok {
				fmt.Fprintln(l.Out, l.bold(label+":"))
			}
			fmt.Fprint(l.Out, l.bold(fmt.Sprintf("[%#08x]", addr))+" ")
		} else {
			fmt.Fprint(l.Out, l.dim("~~~~~~~~~~")+" ")
		}

		fmt.Fprintln(l.Out, line)

		linebyte += int64(len(line) + 1)
	}

	return scanner.Err()
}
