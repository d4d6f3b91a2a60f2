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

// Package mir is the machine-level IR of one function: an arena of basic
// blocks holding target opcodes whose operands may still be virtual
// registers, frame indices or block references.
package mir

import (
	"fmt"

	"github.com/lassandro/golcg/pkg/diag"
	"github.com/lassandro/golcg/pkg/target"
)

type OperandKind uint

const (
	MO_REG OperandKind = iota
	MO_IMM
	MO_FRAME_INDEX
	MO_BLOCK
	MO_GLOBAL
	MO_COND_CODE
)

func (kind OperandKind) String() string {
	switch kind {
	case MO_REG:
		return "Register"
	case MO_IMM:
		return "Immediate"
	case MO_FRAME_INDEX:
		return "FrameIndex"
	case MO_BLOCK:
		return "Block"
	case MO_GLOBAL:
		return "Global"
	case MO_COND_CODE:
		return "CondCode"
	}

	return "<invalid>"
}

type Operand struct {
	kind   OperandKind
	reg    target.Reg
	imm    int64
	index  int
	block  BlockID
	global string
	cc     target.CondCode
}

func Reg(reg target.Reg) Operand       { return Operand{kind: MO_REG, reg: reg} }
func Imm(imm int64) Operand            { return Operand{kind: MO_IMM, imm: imm} }
func FrameIndex(index int) Operand     { return Operand{kind: MO_FRAME_INDEX, index: index} }
func Block(id BlockID) Operand         { return Operand{kind: MO_BLOCK, block: id} }
func Global(name string) Operand       { return Operand{kind: MO_GLOBAL, global: name} }
func Cond(cc target.CondCode) Operand  { return Operand{kind: MO_COND_CODE, cc: cc} }

func (op Operand) Kind() OperandKind { return op.kind }

func (op Operand) IsReg() bool        { return op.kind == MO_REG }
func (op Operand) IsImm() bool        { return op.kind == MO_IMM }
func (op Operand) IsFrameIndex() bool { return op.kind == MO_FRAME_INDEX }
func (op Operand) IsBlock() bool      { return op.kind == MO_BLOCK }
func (op Operand) IsGlobal() bool     { return op.kind == MO_GLOBAL }
func (op Operand) IsCondCode() bool   { return op.kind == MO_COND_CODE }

func (op Operand) expect(kind OperandKind) {
	if op.kind != kind {
		diag.Internalf("machine operand is %s, accessed as %s", op.kind, kind)
	}
}

func (op Operand) Reg() target.Reg {
	op.expect(MO_REG)
	return op.reg
}

func (op Operand) Imm() int64 {
	op.expect(MO_IMM)
	return op.imm
}

func (op Operand) Index() int {
	op.expect(MO_FRAME_INDEX)
	return op.index
}

func (op Operand) Block() BlockID {
	op.expect(MO_BLOCK)
	return op.block
}

func (op Operand) Global() string {
	op.expect(MO_GLOBAL)
	return op.global
}

func (op Operand) CondCode() target.CondCode {
	op.expect(MO_COND_CODE)
	return op.cc
}

func (op Operand) Format(t *target.Target) string {
	switch op.kind {
	case MO_REG:
		return t.RegisterName(op.reg)
	case MO_IMM:
		return fmt.Sprintf("%d", op.imm)
	case MO_FRAME_INDEX:
		return fmt.Sprintf("%%stack.%d", op.index)
	case MO_BLOCK:
		return fmt.Sprintf("%%bb.%d", op.block)
	case MO_GLOBAL:
		return "@" + op.global
	case MO_COND_CODE:
		return op.cc.String()
	}

	return "<invalid>"
}

type Instr struct {
	Opcode   target.Opcode
	Operands []Operand
	Loc      diag.Cursor
}

func NewInstr(opcode target.Opcode, operands ...Operand) *Instr {
	return &Instr{Opcode: opcode, Operands: operands}
}

func (instr *Instr) Operand(i int) Operand {
	if i >= len(instr.Operands) {
		diag.Internalf(
			"instruction %d has %d operands, wanted operand %d",
			instr.Opcode, len(instr.Operands), i,
		)
	}

	return instr.Operands[i]
}

func (instr *Instr) SetOperand(i int, op Operand) {
	if i >= len(instr.Operands) {
		diag.Internalf("instruction %d has no operand %d", instr.Opcode, i)
	}

	instr.Operands[i] = op
}

func (instr *Instr) Format(t *target.Target) string {
	text := t.Desc(instr.Opcode).Name

	for i, op := range instr.Operands {
		if i == 0 {
			text += " "
		} else {
			text += ", "
		}

		text += op.Format(t)
	}

	return text
}
