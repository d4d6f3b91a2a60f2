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

// Package asmprinter lowers machine IR that has been through frame
// elimination and register allocation into mc instructions, and emits
// them either as bytes or as assembly text.
package asmprinter

import (
	"fmt"
	"strings"

	"github.com/lassandro/golcg/pkg/diag"
	"github.com/lassandro/golcg/pkg/expr"
	"github.com/lassandro/golcg/pkg/mc"
	"github.com/lassandro/golcg/pkg/mir"
	"github.com/lassandro/golcg/pkg/target"
)

// Section is the encoded body of one function. Offsets are relative to
// the start of the function. Fixups against symbols outside the function
// are left for the caller.
type Section struct {
	Name   string
	Data   []byte
	Fixups []mc.Fixup
	// Start offset of every block label.
	Labels map[string]uint64
}

type AsmPrinter struct {
	target  *target.Target
	symbols *expr.SymbolTable
	encoder *mc.Encoder
	printer *mc.InstPrinter
}

// New returns a printer that resolves global names through symbols, which
// may be shared with printers running on other goroutines.
func New(t *target.Target, symbols *expr.SymbolTable) *AsmPrinter {
	return &AsmPrinter{
		target:  t,
		symbols: symbols,
		encoder: mc.NewEncoder(t),
		printer: mc.NewInstPrinter(t),
	}
}

func BlockLabel(fn *mir.Function, id mir.BlockID) string {
	return fmt.Sprintf(".LBB%s_%d", fn.Name, id)
}

type function struct {
	fn     *mir.Function
	blocks map[mir.BlockID]*expr.Symbol
}

func (p *AsmPrinter) newFunction(fn *mir.Function) *function {
	f := &function{fn: fn, blocks: make(map[mir.BlockID]*expr.Symbol)}

	for _, bb := range fn.Blocks() {
		f.blocks[bb.ID] = &expr.Symbol{Name: BlockLabel(fn, bb.ID)}
	}

	return f
}

// Lower converts one machine instruction. Anything that should have been
// removed by an earlier pass is an internal error.
func (p *AsmPrinter) lower(f *function, instr *mir.Instr) *mc.Inst {
	desc := p.target.Desc(instr.Opcode)

	if desc.IsPseudo() {
		diag.Internalf("pseudo %s reached the asm printer in %s", desc.Name, f.fn.Name)
	}

	inst := &mc.Inst{Opcode: instr.Opcode, Loc: instr.Loc}

	for _, op := range instr.Operands {
		switch op.Kind() {
		case mir.MO_REG:
			if op.Reg().IsVirtual() {
				diag.Internalf(
					"virtual register %s reached the asm printer in %s",
					p.target.RegisterName(op.Reg()), f.fn.Name,
				)
			}
			inst.AddOperand(mc.RegOperand(op.Reg()))
		case mir.MO_IMM:
			inst.AddOperand(mc.ImmOperand(op.Imm()))
		case mir.MO_BLOCK:
			inst.AddOperand(mc.ExprOperand(expr.NewSymbolRef(f.blocks[op.Block()])))
		case mir.MO_GLOBAL:
			inst.AddOperand(mc.ExprOperand(expr.NewSymbolRef(p.symbols.GetOrCreate(op.Global()))))
		case mir.MO_FRAME_INDEX:
			diag.Internalf("unresolved frame index %d reached the asm printer in %s", op.Index(), f.fn.Name)
		default:
			diag.Internalf("machine operand %s cannot be emitted", op.Kind())
		}
	}

	return inst
}

// Lower converts a whole function in layout order.
func (p *AsmPrinter) Lower(fn *mir.Function) []*mc.Inst {
	f := p.newFunction(fn)

	var insts []*mc.Inst

	for _, bb := range fn.Blocks() {
		for _, instr := range bb.Instrs {
			insts = append(insts, p.lower(f, instr))
		}
	}

	return insts
}

// EmitFunction encodes fn. Branches between its own blocks are resolved
// here; every other fixup is returned in the section.
func (p *AsmPrinter) EmitFunction(fn *mir.Function) (*Section, error) {
	f := p.newFunction(fn)
	section := &Section{Name: fn.Name, Labels: make(map[string]uint64)}

	// Every instruction has a fixed size, so block offsets are known
	// before anything is encoded.
	var offset uint64

	for _, bb := range fn.Blocks() {
		f.blocks[bb.ID].Define(offset)
		section.Labels[f.blocks[bb.ID].Name] = offset

		for _, instr := range bb.Instrs {
			offset += uint64(p.target.Desc(instr.Opcode).Size)
		}
	}

	var local []mc.Fixup

	for _, bb := range fn.Blocks() {
		for _, instr := range bb.Instrs {
			data, fixups, err := p.encoder.Encode(p.lower(f, instr))

			if err != nil {
				return nil, err
			}

			start := uint64(len(section.Data))

			for _, fixup := range fixups {
				fixup.Offset += start

				if p.isLocal(f, fixup) {
					local = append(local, fixup)
				} else {
					section.Fixups = append(section.Fixups, fixup)
				}
			}

			section.Data = append(section.Data, data...)
		}
	}

	for _, fixup := range local {
		symbol, addend, _ := expr.SymbolAndAddend(fixup.Value)
		offset, _ := symbol.Offset()

		value := int64(offset) + addend
		if fixup.PCRel {
			value -= int64(fixup.Offset - target.PAYLOAD_OFFSET/8)
		}

		if err := mc.ApplyFixup(section.Data, fixup, value); err != nil {
			return nil, err
		}
	}

	return section, nil
}

// isLocal reports whether fixup is a branch to a block of f.
func (p *AsmPrinter) isLocal(f *function, fixup mc.Fixup) bool {
	symbol, _, ok := expr.SymbolAndAddend(fixup.Value)

	if !ok || !fixup.PCRel {
		return false
	}

	for _, block := range f.blocks {
		if block == symbol {
			return true
		}
	}

	return false
}

// EmitAssembly prints fn as source the assembler accepts.
func (p *AsmPrinter) EmitAssembly(fn *mir.Function, global bool) string {
	f := p.newFunction(fn)

	var builder strings.Builder

	if global {
		fmt.Fprintf(&builder, "\t.global %s\n", fn.Name)
	}

	fmt.Fprintf(&builder, "%s:\n", fn.Name)

	for _, bb := range fn.Blocks() {
		fmt.Fprintf(&builder, "%s:\n", f.blocks[bb.ID].Name)

		for _, instr := range bb.Instrs {
			fmt.Fprintf(&builder, "\t%s\n", p.printer.Print(p.lower(f, instr)))
		}
	}

	return builder.String()
}
