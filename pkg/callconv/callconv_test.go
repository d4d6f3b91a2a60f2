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

package callconv_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/lassandro/golcg/pkg/callconv"
	"github.com/lassandro/golcg/pkg/mir"
	"github.com/lassandro/golcg/pkg/target"
)

type assignCase struct {
	Name  string
	Input []target.ValueType
	Want  []callconv.Location
	Stack uint64
}

func reg(no int, vt, locVT target.ValueType, r target.Reg) callconv.Location {
	return callconv.Location{
		ValNo: no, ValVT: vt, LocVT: locVT, Kind: callconv.LOC_REGISTER, Reg: r,
	}
}

func stack(no int, vt, locVT target.ValueType, offset, size uint64) callconv.Location {
	return callconv.Location{
		ValNo: no, ValVT: vt, LocVT: locVT, Kind: callconv.LOC_STACK, Offset: offset, Size: size,
	}
}

func TestAnalyzeFormalArguments(t *testing.T) {
	i8, i16, i32, i64, ptr := target.VT_I8, target.VT_I16, target.VT_I32, target.VT_I64, target.VT_PTR

	tests := []assignCase{
		{
			Name:  "Empty",
			Input: nil,
			Want:  nil,
		},
		{
			Name:  "Registers",
			Input: []target.ValueType{i32, ptr, i32},
			Want: []callconv.Location{
				reg(0, i32, i32, target.R2),
				reg(1, ptr, ptr, target.R3),
				reg(2, i32, i32, target.R4),
			},
		},
		{
			Name:  "Promotion",
			Input: []target.ValueType{target.VT_I1, i8, i16},
			Want: []callconv.Location{
				reg(0, target.VT_I1, i32, target.R2),
				reg(1, i8, i32, target.R3),
				reg(2, i16, i32, target.R4),
			},
		},
		{
			Name:  "I64 on the stack",
			Input: []target.ValueType{i32, i64, i32},
			Want: []callconv.Location{
				reg(0, i32, i32, target.R2),
				stack(1, i64, i64, 0, 8),
				reg(2, i32, i32, target.R3),
			},
			Stack: 8,
		},
		{
			Name:  "Register exhaustion",
			Input: []target.ValueType{i32, i32, i32, i32, i32, i32, i32, i8},
			Want: []callconv.Location{
				reg(0, i32, i32, target.R2),
				reg(1, i32, i32, target.R3),
				reg(2, i32, i32, target.R4),
				reg(3, i32, i32, target.R5),
				reg(4, i32, i32, target.R6),
				reg(5, i32, i32, target.R7),
				stack(6, i32, i32, 0, 4),
				stack(7, i8, i32, 4, 4),
			},
			Stack: 8,
		},
		{
			Name:  "Stack after i64",
			Input: []target.ValueType{i64, i64, i32},
			Want: []callconv.Location{
				stack(0, i64, i64, 0, 8),
				stack(1, i64, i64, 8, 8),
				reg(2, i32, i32, target.R2),
			},
			Stack: 16,
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			state := callconv.NewCCState(callconv.CC_DUMMY)
			state.AnalyzeFormalArguments(test.Input)

			if !reflect.DeepEqual(state.Locs, test.Want) {
				t.Fatalf("Assignment mismatch\nwant:%v\nhave:%v", test.Want, state.Locs)
			}

			if state.StackSize() != test.Stack {
				t.Fatalf("Stack size mismatch\nwant:%d\nhave:%d", test.Stack, state.StackSize())
			}
		})
	}
}

func TestAssignmentInjective(t *testing.T) {
	vts := []target.ValueType{
		target.VT_I32, target.VT_I64, target.VT_I8, target.VT_PTR, target.VT_I32,
		target.VT_I16, target.VT_I64, target.VT_I32, target.VT_I1, target.VT_I32,
	}

	state := callconv.NewCCState(callconv.CC_DUMMY)
	state.AnalyzeFormalArguments(vts)

	regs := map[target.Reg]int{}
	var end uint64

	for _, loc := range state.Locs {
		if loc.IsRegLoc() {
			if prev, used := regs[loc.Reg]; used {
				t.Fatalf("values %d and %d share register %d", prev, loc.ValNo, loc.Reg)
			}
			regs[loc.Reg] = loc.ValNo
			continue
		}

		if loc.Offset < end {
			t.Fatalf("value %d overlaps the previous stack slot at %d", loc.ValNo, loc.Offset)
		}

		if loc.Offset%4 != 0 {
			t.Fatalf("value %d is misaligned at %d", loc.ValNo, loc.Offset)
		}

		end = loc.Offset + loc.Size
	}

	again := callconv.NewCCState(callconv.CC_DUMMY)
	again.AnalyzeFormalArguments(vts)

	if !reflect.DeepEqual(state.Locs, again.Locs) {
		t.Fatalf("assignment is not deterministic\nwant:%v\nhave:%v", state.Locs, again.Locs)
	}
}

func TestAnalyzeReturn(t *testing.T) {
	state := callconv.NewCCState(callconv.CC_DUMMY_RET)

	if err := state.AnalyzeReturn([]target.ValueType{target.VT_I32, target.VT_I8}); err != nil {
		t.Fatal(err)
	}

	want := []callconv.Location{
		reg(0, target.VT_I32, target.VT_I32, target.R2),
		reg(1, target.VT_I8, target.VT_I32, target.R3),
	}

	if !reflect.DeepEqual(state.Locs, want) {
		t.Fatalf("Assignment mismatch\nwant:%v\nhave:%v", want, state.Locs)
	}

	for _, vts := range [][]target.ValueType{
		{target.VT_I64},
		{target.VT_I32, target.VT_I32, target.VT_I32},
	} {
		err := callconv.NewCCState(callconv.CC_DUMMY_RET).AnalyzeReturn(vts)

		if !errors.Is(err, callconv.ErrStackReturn) {
			t.Fatalf("%v\nwant:%s\nhave:%v", vts, callconv.ErrStackReturn, err)
		}
	}
}

func TestLowerFormalArguments(t *testing.T) {
	fn := mir.NewFunction("f")

	values := callconv.LowerFormalArguments(fn, []target.ValueType{
		target.VT_I32, target.VT_I64, target.VT_PTR,
	})

	if len(values) != 3 {
		t.Fatalf("want:3 values\nhave:%d", len(values))
	}

	if len(values[0].Regs) != 1 || len(values[1].Regs) != 2 || len(values[2].Regs) != 1 {
		t.Fatalf("want:[1 2 1] registers\nhave:%v", values)
	}

	for _, value := range values {
		for _, r := range value.Regs {
			if !r.IsVirtual() {
				t.Fatalf("argument bound to physical register %d", r)
			}
		}
	}

	want := []mir.LiveIn{
		{Phys: target.R2, Virt: values[0].Regs[0]},
		{Phys: target.R3, Virt: values[2].Regs[0]},
	}

	if have := fn.Regs.LiveIns(); !reflect.DeepEqual(have, want) {
		t.Fatalf("Live-in mismatch\nwant:%v\nhave:%v", want, have)
	}

	if have := fn.Entry().LiveIns; !reflect.DeepEqual(have, []target.Reg{target.R2, target.R3}) {
		t.Fatalf("Entry live-in mismatch\nwant:[r2 r3]\nhave:%v", have)
	}

	if len(fn.Frame.Objects) != 1 || !fn.Frame.Objects[0].Fixed || fn.Frame.Objects[0].Size != 8 {
		t.Fatalf("want:one fixed 8-byte object\nhave:%+v", fn.Frame.Objects)
	}

	// mov, ld.w, ld.w, mov
	instrs := fn.Entry().Instrs
	opcodes := []target.Opcode{target.OP_MOV, target.OP_LDW, target.OP_LDW, target.OP_MOV}

	if len(instrs) != len(opcodes) {
		t.Fatalf("want:%d instructions\nhave:%d", len(opcodes), len(instrs))
	}

	for i, instr := range instrs {
		if instr.Opcode != opcodes[i] {
			t.Fatalf("instruction %d\nwant:%d\nhave:%d", i, opcodes[i], instr.Opcode)
		}
	}

	if !instrs[1].Operand(1).IsFrameIndex() || instrs[2].Operand(2).Imm() != 4 {
		t.Fatalf("i64 halves\nwant:[FI, 0] [FI, 4]\nhave:%v %v", instrs[1].Operands, instrs[2].Operands)
	}
}

func TestLowerReturn(t *testing.T) {
	fn := mir.NewFunction("g")
	a := fn.Regs.CreateVirtualRegister()
	b := fn.Regs.CreateVirtualRegister()

	err := callconv.LowerReturn(fn, fn.Entry().ID, []callconv.Value{
		{VT: target.VT_I32, Regs: []target.Reg{a}},
		{VT: target.VT_PTR, Regs: []target.Reg{b}},
	})

	if err != nil {
		t.Fatal(err)
	}

	instrs := fn.Entry().Instrs

	if len(instrs) != 3 {
		t.Fatalf("want:3 instructions\nhave:%d", len(instrs))
	}

	ret := instrs[2]

	if ret.Opcode != target.OP_RET || len(ret.Operands) != 2 {
		t.Fatalf("want:ret with 2 operands\nhave:%d with %d", ret.Opcode, len(ret.Operands))
	}

	if ret.Operand(0).Reg() != target.R2 || ret.Operand(1).Reg() != target.R3 {
		t.Fatalf("want:ret r2, r3\nhave:%v", ret.Operands)
	}

	for _, instr := range instrs {
		if instr.Opcode == target.OP_RET && instr != ret {
			t.Fatal("more than one ret")
		}
	}

	err = callconv.LowerReturn(fn, fn.Entry().ID, []callconv.Value{
		{VT: target.VT_I64, Regs: []target.Reg{a, b}},
	})

	if !errors.Is(err, callconv.ErrStackReturn) {
		t.Fatalf("want:%s\nhave:%v", callconv.ErrStackReturn, err)
	}
}
