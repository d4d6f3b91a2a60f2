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

// Package mc holds matched machine instructions and turns them into bytes.
// An Inst here has a real opcode and fully resolved operands: registers,
// constant immediates, or symbolic expressions left for a fixup.
package mc

import (
	"fmt"

	"github.com/lassandro/golcg/pkg/diag"
	"github.com/lassandro/golcg/pkg/expr"
	"github.com/lassandro/golcg/pkg/target"
)

type OperandKind uint

const (
	OPERAND_INVALID OperandKind = iota
	OPERAND_REG
	OPERAND_IMM
	OPERAND_EXPR
)

type Operand struct {
	kind  OperandKind
	reg   target.Reg
	imm   int64
	value expr.Expr
}

func RegOperand(reg target.Reg) Operand {
	return Operand{kind: OPERAND_REG, reg: reg}
}

func ImmOperand(imm int64) Operand {
	return Operand{kind: OPERAND_IMM, imm: imm}
}

func ExprOperand(value expr.Expr) Operand {
	return Operand{kind: OPERAND_EXPR, value: value}
}

func (op Operand) Kind() OperandKind {
	return op.kind
}

func (op Operand) IsReg() bool  { return op.kind == OPERAND_REG }
func (op Operand) IsImm() bool  { return op.kind == OPERAND_IMM }
func (op Operand) IsExpr() bool { return op.kind == OPERAND_EXPR }

func (op Operand) Reg() target.Reg {
	if op.kind != OPERAND_REG {
		diag.Internalf("mc operand %s is not a register", op)
	}

	return op.reg
}

func (op Operand) Imm() int64 {
	if op.kind != OPERAND_IMM {
		diag.Internalf("mc operand %s is not an immediate", op)
	}

	return op.imm
}

func (op Operand) Expr() expr.Expr {
	if op.kind != OPERAND_EXPR {
		diag.Internalf("mc operand %s is not an expression", op)
	}

	return op.value
}

func (op Operand) String() string {
	switch op.kind {
	case OPERAND_REG:
		return fmt.Sprintf("reg:%d", op.reg)
	case OPERAND_IMM:
		return fmt.Sprintf("imm:%d", op.imm)
	case OPERAND_EXPR:
		return "expr:" + op.value.String()
	}

	return "<invalid>"
}

type Inst struct {
	Opcode   target.Opcode
	Operands []Operand
	Loc      diag.Cursor
}

func NewInst(opcode target.Opcode, operands ...Operand) *Inst {
	return &Inst{Opcode: opcode, Operands: operands}
}

func (inst *Inst) AddOperand(op Operand) {
	inst.Operands = append(inst.Operands, op)
}

func (inst *Inst) Operand(i int) Operand {
	if i >= len(inst.Operands) {
		diag.Internalf(
			"instruction %d has %d operands, wanted operand %d",
			inst.Opcode, len(inst.Operands), i,
		)
	}

	return inst.Operands[i]
}
