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

package driver_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/lassandro/golcg/pkg/diag"
	"github.com/lassandro/golcg/pkg/driver"
	"github.com/lassandro/golcg/pkg/encoding"
	"github.com/lassandro/golcg/pkg/mir"
	"github.com/lassandro/golcg/pkg/object"
	"github.com/lassandro/golcg/pkg/target"
)

func leaf(name string) *mir.Function {
	fn := mir.NewFunction(name)
	fn.Entry().Append(mir.NewInstr(target.OP_RET))
	return fn
}

func caller(name string, callees ...string) *mir.Function {
	fn := mir.NewFunction(name)

	for _, callee := range callees {
		fn.Entry().Append(mir.NewInstr(target.OP_CALL, mir.Global(callee)))
	}

	fn.Entry().Append(mir.NewInstr(target.OP_RET))
	return fn
}

// Loads from a displacement that does not fit the memory field.
func oversized(name string) *mir.Function {
	fn := mir.NewFunction(name)
	fn.Entry().Append(
		mir.NewInstr(target.OP_LDW, mir.Reg(target.R2), mir.Reg(target.R3), mir.Imm(4096)),
		mir.NewInstr(target.OP_RET),
	)
	return fn
}

func TestCompile(t *testing.T) {
	var logs bytes.Buffer

	functions := []driver.Function{
		{MIR: caller("main", "helper", "missing"), Global: true},
		{MIR: oversized("bad")},
		{MIR: leaf("helper")},
	}

	file, errs := driver.Compile(context.Background(), functions, driver.Options{
		Workers: 2,
		Logger:  log.New(&logs, "", 0),
	})

	if len(errs) != 1 {
		t.Fatalf("Error count mismatch\nwant:1\nhave:%d (%v)", len(errs), errs)
	}

	var funcErr *driver.FunctionError
	var encErr *diag.EncodingError

	if !errors.As(errs[0], &funcErr) || funcErr.Function != "bad" {
		t.Fatalf("want:*driver.FunctionError for bad\nhave:%v", errs[0])
	}

	if !errors.As(errs[0], &encErr) || encErr.Value != 4096 {
		t.Fatalf("want:*diag.EncodingError for 4096\nhave:%v", errs[0])
	}

	if !strings.Contains(logs.String(), "bad: dropping function: opcode 'ld.w' operand 2 value 4096") {
		t.Fatalf("Log mismatch\nhave:%s", logs.String())
	}

	// main: call, call, ret; helper: ret
	if size := len(file.Text); size != 32 {
		t.Fatalf("Text size mismatch\nwant:32\nhave:%d", size)
	}

	if payload := encoding.ReadConstant(file.Text, 4); payload != 0x18 {
		t.Fatalf("Call displacement mismatch\nwant:0x18\nhave:%#x", payload)
	}

	want := []object.Relocation{
		{Offset: 0x08, Type: object.R_DUMMY_PC32, Symbol: "missing"},
	}

	if have := file.Relocations(); len(have) != 1 || have[0] != want[0] {
		t.Fatalf("Relocation mismatch\nwant:%v\nhave:%v", want, have)
	}

	main, _ := file.Symbol("main")
	helper, _ := file.Symbol("helper")

	if !main.Defined || !main.Global || main.Offset != 0 {
		t.Fatalf("want:global main at 0\nhave:%+v", main)
	}

	if !helper.Defined || helper.Global || helper.Offset != 0x18 {
		t.Fatalf("want:local helper at 0x18\nhave:%+v", helper)
	}

	if _, ok := file.Symbol("bad"); ok {
		t.Fatal("dropped function left a symbol")
	}
}

func TestCompileDeterministic(t *testing.T) {
	build := func() []driver.Function {
		var functions []driver.Function

		for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
			functions = append(functions, driver.Function{MIR: caller(name, "a", "h"), Global: true})
		}

		return functions
	}

	first, errs := driver.Compile(context.Background(), build(), driver.Options{Workers: 8})
	if len(errs) != 0 {
		t.Fatal(errs[0])
	}

	second, errs := driver.Compile(context.Background(), build(), driver.Options{Workers: 3})
	if len(errs) != 0 {
		t.Fatal(errs[0])
	}

	if !bytes.Equal(first.Text, second.Text) || first.BuildID != second.BuildID {
		t.Fatalf("Output depends on scheduling\nwant:% x\nhave:% x", first.Text, second.Text)
	}

	if len(first.Relocations()) != 0 {
		t.Fatalf("want:no relocations\nhave:%v", first.Relocations())
	}
}

func TestCompileFrame(t *testing.T) {
	fn := mir.NewFunction("spill")
	slot := fn.Frame.CreateStackObject(4, 4)
	vreg := fn.Regs.CreateVirtualRegister()

	fn.Entry().Append(
		mir.NewInstr(target.OP_MOVI, mir.Reg(vreg), mir.Imm(7)),
		mir.NewInstr(target.OP_STW, mir.Reg(vreg), mir.FrameIndex(slot), mir.Imm(0)),
		mir.NewInstr(target.OP_RET),
	)

	// Every virtual register goes to r8.
	regalloc := func(fn *mir.Function) error {
		for _, bb := range fn.Blocks() {
			for _, instr := range bb.Instrs {
				for i, op := range instr.Operands {
					if op.IsReg() && op.Reg().IsVirtual() {
						instr.SetOperand(i, mir.Reg(target.R8))
					}
				}
			}
		}
		return nil
	}

	file, errs := driver.Compile(
		context.Background(),
		[]driver.Function{{MIR: fn}},
		driver.Options{RegAlloc: regalloc},
	)

	if len(errs) != 0 {
		t.Fatal(errs[0])
	}

	// addi sp, sp, -8; movi; st.w r8, [sp, 4]; addi sp, sp, 8; ret
	if size := len(file.Text); size != 5*8 {
		t.Fatalf("Text size mismatch\nwant:40\nhave:%d", size)
	}

	store := encoding.ReadConstant(file.Text[0x10:], 8)
	want := uint64(0x28)<<target.WORD_OPCODE_SHIFT | 8<<target.WORD_A_SHIFT | 4<<target.MEM_DISP_SHIFT | 30

	if store != want {
		t.Fatalf("Store encoding mismatch\nwant:%#016x\nhave:%#016x", want, store)
	}
}

func TestCompileCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, errs := driver.Compile(ctx, []driver.Function{{MIR: leaf("f")}}, driver.Options{})

	if len(errs) != 1 || !errors.Is(errs[0], context.Canceled) {
		t.Fatalf("want:%s\nhave:%v", context.Canceled, errs)
	}
}
