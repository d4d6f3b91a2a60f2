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

package callconv

import (
	"github.com/samber/lo"

	"github.com/lassandro/golcg/pkg/diag"
	"github.com/lassandro/golcg/pkg/mir"
	"github.com/lassandro/golcg/pkg/target"
)

// Value is an argument or return value in virtual registers. Values wider
// than a register are split low word first.
type Value struct {
	VT   target.ValueType
	Regs []target.Reg
}

func valueTypes(values []Value) []target.ValueType {
	return lo.Map(values, func(value Value, _ int) target.ValueType {
		return value.VT
	})
}

// LowerFormalArguments binds the incoming arguments of fn. Register
// arguments are copied out of their live-in register, stack arguments are
// loaded from fixed frame objects. The returned values are in argument
// order.
func LowerFormalArguments(fn *mir.Function, args []target.ValueType) []Value {
	state := NewCCState(CC_DUMMY)
	state.AnalyzeFormalArguments(args)

	entry := fn.Entry()
	values := make([]Value, len(args))

	for _, loc := range state.Locs {
		value := Value{VT: loc.ValVT}

		if loc.IsRegLoc() {
			vreg := fn.Regs.CreateVirtualRegister()
			fn.Regs.AddLiveIn(loc.Reg, vreg)
			entry.LiveIns = append(entry.LiveIns, loc.Reg)

			entry.Append(mir.NewInstr(target.OP_MOV, mir.Reg(vreg), mir.Reg(loc.Reg)))
			value.Regs = []target.Reg{vreg}
		} else {
			index := fn.Frame.CreateFixedObject(loc.Size, int64(loc.Offset))

			for word := uint64(0); word < loc.Size; word += target.PointerSize {
				vreg := fn.Regs.CreateVirtualRegister()

				entry.Append(mir.NewInstr(
					target.OP_LDW,
					mir.Reg(vreg),
					mir.FrameIndex(index),
					mir.Imm(int64(word)),
				))
				value.Regs = append(value.Regs, vreg)
			}
		}

		values[loc.ValNo] = value
	}

	return values
}

// LowerReturn copies the return values into their registers and ends bb
// with a single ret that carries every return register.
func LowerReturn(fn *mir.Function, bb mir.BlockID, values []Value) error {
	state := NewCCState(CC_DUMMY_RET)

	if err := state.AnalyzeReturn(valueTypes(values)); err != nil {
		return err
	}

	block := fn.Block(bb)
	ret := mir.NewInstr(target.OP_RET)

	for _, loc := range state.Locs {
		value := values[loc.ValNo]

		if len(value.Regs) != 1 {
			diag.Internalf("return value %d of %s has %d registers", loc.ValNo, fn.Name, len(value.Regs))
		}

		block.Append(mir.NewInstr(target.OP_MOV, mir.Reg(loc.Reg), mir.Reg(value.Regs[0])))
		ret.Operands = append(ret.Operands, mir.Reg(loc.Reg))
	}

	block.Append(ret)

	return nil
}
