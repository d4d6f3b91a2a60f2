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

package mc

import (
	"fmt"
	"strings"

	"github.com/lassandro/golcg/pkg/diag"
	"github.com/lassandro/golcg/pkg/target"
)

// InstPrinter renders an Inst back into assembly that the parser accepts.
type InstPrinter struct {
	target *target.Target
}

func NewInstPrinter(t *target.Target) *InstPrinter {
	return &InstPrinter{target: t}
}

func (p *InstPrinter) Print(inst *Inst) string {
	desc := p.target.Desc(inst.Opcode)

	var operands []string

	switch desc.Format {
	case target.FMT_PSEUDO:
		for _, op := range inst.Operands {
			operands = append(operands, p.operand(op))
		}
	case target.FMT_NONE:
	case target.FMT_R:
		operands = append(operands, p.reg(inst, 0))
	case target.FMT_RR:
		operands = append(operands, p.reg(inst, 0), p.reg(inst, 1))
	case target.FMT_RRR, target.FMT_PRR:
		operands = append(operands, p.reg(inst, 0), p.reg(inst, 1), p.reg(inst, 2))
	case target.FMT_RI:
		operands = append(operands, p.reg(inst, 0), p.imm(inst, 1, desc))
	case target.FMT_RRI:
		operands = append(operands, p.reg(inst, 0), p.reg(inst, 1), p.imm(inst, 2, desc))
	case target.FMT_RM:
		mem := "[" + p.reg(inst, 1)
		if disp := inst.Operand(2).Imm(); disp != 0 {
			mem += fmt.Sprintf(", %d", disp)
		}
		operands = append(operands, p.reg(inst, 0), mem+"]")
	case target.FMT_RMX:
		operands = append(
			operands,
			p.reg(inst, 0),
			"["+p.reg(inst, 1)+", "+p.reg(inst, 2)+"]",
		)
	case target.FMT_RRB:
		operands = append(operands, p.reg(inst, 0), p.reg(inst, 1), p.imm(inst, 2, desc))
	case target.FMT_B:
		operands = append(operands, p.imm(inst, 0, desc))
	case target.FMT_PB:
		operands = append(operands, p.reg(inst, 0), p.imm(inst, 1, desc))
	default:
		diag.Internalf("opcode %s has no printer", desc.Name)
	}

	if len(operands) == 0 {
		return desc.Name
	}

	return desc.Name + " " + strings.Join(operands, ", ")
}

func (p *InstPrinter) reg(inst *Inst, i int) string {
	return p.target.RegisterName(inst.Operand(i).Reg())
}

// imm prints data immediates with a '$' and branch targets bare.
func (p *InstPrinter) imm(inst *Inst, i int, desc *target.OpcodeDesc) string {
	op := inst.Operand(i)
	prefix := "$"

	if desc.PCRel || desc.Opcode == target.OP_LEA {
		prefix = ""
	}

	if op.IsExpr() {
		return prefix + op.Expr().String()
	}

	return fmt.Sprintf("%s%d", prefix, op.Imm())
}

func (p *InstPrinter) operand(op Operand) string {
	switch op.Kind() {
	case OPERAND_REG:
		return p.target.RegisterName(op.Reg())
	case OPERAND_IMM:
		return fmt.Sprintf("%d", op.Imm())
	case OPERAND_EXPR:
		return op.Expr().String()
	}

	return "<invalid>"
}
