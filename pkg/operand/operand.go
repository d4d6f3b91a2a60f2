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

// Package operand models the parsed operands of one assembly instruction.
// An Operand is a closed variant: the kind fixed at construction decides
// which accessor may be called, and calling any other is a broken
// invariant rather than a user error.
package operand

import (
	"fmt"

	"github.com/lassandro/golcg/pkg/diag"
	"github.com/lassandro/golcg/pkg/encoding"
	"github.com/lassandro/golcg/pkg/expr"
	"github.com/lassandro/golcg/pkg/mc"
	"github.com/lassandro/golcg/pkg/target"
)

type Kind uint

const (
	KIND_TOKEN Kind = iota
	KIND_REGISTER
	KIND_IMMEDIATE
	KIND_MEMORY
	KIND_LABEL
	KIND_PREDICATE
)

func (kind Kind) String() string {
	switch kind {
	case KIND_TOKEN:
		return "Token"
	case KIND_REGISTER:
		return "Register"
	case KIND_IMMEDIATE:
		return "Immediate"
	case KIND_MEMORY:
		return "Memory"
	case KIND_LABEL:
		return "Label"
	case KIND_PREDICATE:
		return "Predicate"
	}

	return "<invalid>"
}

// Memory is a base register plus either an index register or a constant
// displacement. Index is NoRegister for the displacement form.
type Memory struct {
	Base  target.Reg
	Index target.Reg
	Disp  int64
}

func (mem Memory) IsIndexed() bool {
	return mem.Index != target.NoRegister
}

type Operand struct {
	kind Kind
	span diag.Span

	token string
	reg   target.Reg
	value expr.Expr
	mem   Memory
}

func NewToken(token string, span diag.Span) *Operand {
	return &Operand{kind: KIND_TOKEN, span: span, token: token}
}

func NewRegister(reg target.Reg, span diag.Span) *Operand {
	return &Operand{kind: KIND_REGISTER, span: span, reg: reg}
}

func NewImmediate(value expr.Expr, span diag.Span) *Operand {
	return &Operand{kind: KIND_IMMEDIATE, span: span, value: value}
}

func NewMemory(base, index target.Reg, disp int64, span diag.Span) *Operand {
	return &Operand{
		kind: KIND_MEMORY,
		span: span,
		mem:  Memory{Base: base, Index: index, Disp: disp},
	}
}

func NewLabel(value expr.Expr, span diag.Span) *Operand {
	return &Operand{kind: KIND_LABEL, span: span, value: value}
}

func NewPredicate(reg target.Reg, span diag.Span) *Operand {
	return &Operand{kind: KIND_PREDICATE, span: span, reg: reg}
}

func (op *Operand) Kind() Kind {
	return op.kind
}

func (op *Operand) Span() diag.Span {
	return op.span
}

func (op *Operand) Start() diag.Cursor {
	return op.span.Start
}

func (op *Operand) IsToken() bool     { return op.kind == KIND_TOKEN }
func (op *Operand) IsRegister() bool  { return op.kind == KIND_REGISTER }
func (op *Operand) IsImmediate() bool { return op.kind == KIND_IMMEDIATE }
func (op *Operand) IsMemory() bool    { return op.kind == KIND_MEMORY }
func (op *Operand) IsLabel() bool     { return op.kind == KIND_LABEL }
func (op *Operand) IsPredicate() bool { return op.kind == KIND_PREDICATE }

func (op *Operand) expect(kind Kind) {
	if op.kind != kind {
		diag.Internalf(
			"operand at %s is %s, accessed as %s", op.span.Start, op.kind, kind,
		)
	}
}

func (op *Operand) AsToken() string {
	op.expect(KIND_TOKEN)
	return op.token
}

func (op *Operand) AsRegister() target.Reg {
	op.expect(KIND_REGISTER)
	return op.reg
}

func (op *Operand) AsImmediate() expr.Expr {
	op.expect(KIND_IMMEDIATE)
	return op.value
}

func (op *Operand) AsMemory() Memory {
	op.expect(KIND_MEMORY)
	return op.mem
}

func (op *Operand) AsLabel() expr.Expr {
	op.expect(KIND_LABEL)
	return op.value
}

func (op *Operand) AsPredicate() target.Reg {
	op.expect(KIND_PREDICATE)
	return op.reg
}

// Encode-time hooks. The matcher binds one of these to every operand
// position of the selected opcode.

func (op *Operand) AddRegOperands(inst *mc.Inst) {
	inst.AddOperand(mc.RegOperand(op.AsRegister()))
}

func (op *Operand) AddPredOperands(inst *mc.Inst) {
	inst.AddOperand(mc.RegOperand(op.AsPredicate()))
}

func (op *Operand) AddImmOperands(inst *mc.Inst) {
	addExpr(inst, op.AsImmediate())
}

func (op *Operand) AddLabelOperands(inst *mc.Inst) {
	// A numeric branch target is an immediate.
	if op.kind == KIND_IMMEDIATE {
		addExpr(inst, op.value)
		return
	}

	addExpr(inst, op.AsLabel())
}

// AddMemoryOperands appends the base register and the displacement
// sign-extended to a bits-wide field. A displacement that does not
// survive the round trip is an *diag.EncodingError.
func (op *Operand) AddMemoryOperands(inst *mc.Inst, bits uint) error {
	mem := op.AsMemory()

	if mem.IsIndexed() {
		diag.Internalf("indexed memory operand at %s bound to a displacement form", op.span.Start)
	}

	if !encoding.FitsSigned(mem.Disp, bits) {
		return &diag.EncodingError{
			Position: op.span.Start,
			Operand:  len(inst.Operands) + 1,
			Value:    mem.Disp,
			Bits:     bits,
		}
	}

	disp := encoding.SignExtend(uint64(mem.Disp), bits)

	inst.AddOperand(mc.RegOperand(mem.Base))
	inst.AddOperand(mc.ImmOperand(disp))

	return nil
}

func (op *Operand) AddMemoryIndexedOperands(inst *mc.Inst) {
	mem := op.AsMemory()

	if !mem.IsIndexed() {
		diag.Internalf("memory operand at %s has no index register", op.span.Start)
	}

	inst.AddOperand(mc.RegOperand(mem.Base))
	inst.AddOperand(mc.RegOperand(mem.Index))
}

func addExpr(inst *mc.Inst, value expr.Expr) {
	if value == nil {
		inst.AddOperand(mc.ImmOperand(0))
	} else if constant, ok := value.Evaluate(); ok {
		inst.AddOperand(mc.ImmOperand(constant))
	} else {
		inst.AddOperand(mc.ExprOperand(value))
	}
}

// Format renders the operand in assembly syntax.
func (op *Operand) Format(t *target.Target) string {
	switch op.kind {
	case KIND_TOKEN:
		return op.token
	case KIND_REGISTER, KIND_PREDICATE:
		return t.RegisterName(op.reg)
	case KIND_IMMEDIATE:
		if value, ok := op.value.Evaluate(); ok {
			return fmt.Sprintf("$%d", value)
		}
		return "$" + op.value.String()
	case KIND_MEMORY:
		switch {
		case op.mem.IsIndexed():
			return fmt.Sprintf(
				"[%s, %s]", t.RegisterName(op.mem.Base), t.RegisterName(op.mem.Index),
			)
		case op.mem.Disp != 0:
			return fmt.Sprintf("[%s, %d]", t.RegisterName(op.mem.Base), op.mem.Disp)
		default:
			return fmt.Sprintf("[%s]", t.RegisterName(op.mem.Base))
		}
	case KIND_LABEL:
		return op.value.String()
	}

	diag.Internalf("operand kind %d has no printer", op.kind)
	return ""
}

// String is the debug form, e.g. <register 3>.
func (op *Operand) String() string {
	switch op.kind {
	case KIND_TOKEN:
		return fmt.Sprintf("'%s'", op.token)
	case KIND_REGISTER:
		return fmt.Sprintf("<register %d>", op.reg)
	case KIND_IMMEDIATE:
		return fmt.Sprintf("<immediate %s>", op.value)
	case KIND_MEMORY:
		return fmt.Sprintf(
			"<memory base:%d index:%d disp:%d>",
			op.mem.Base, op.mem.Index, op.mem.Disp,
		)
	case KIND_LABEL:
		return fmt.Sprintf("<label %s>", op.value)
	case KIND_PREDICATE:
		return fmt.Sprintf("<predicate %d>", op.reg)
	}

	return "<invalid>"
}
