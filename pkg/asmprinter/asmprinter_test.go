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

package asmprinter_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lassandro/golcg/pkg/asmprinter"
	"github.com/lassandro/golcg/pkg/assembler"
	"github.com/lassandro/golcg/pkg/diag"
	"github.com/lassandro/golcg/pkg/encoding"
	"github.com/lassandro/golcg/pkg/expr"
	"github.com/lassandro/golcg/pkg/mc"
	"github.com/lassandro/golcg/pkg/mir"
	"github.com/lassandro/golcg/pkg/target"
)

// count:
//
//	bb.0: movi r2, 0; movi r3, 10
//	bb.1: add r2, r2, 1; blt r2, r3, bb.1
//	bb.2: call report; st.w r2, [sp, -4]; ret r2
func countFunction() *mir.Function {
	fn := mir.NewFunction("count")

	b0 := fn.Entry()
	b1 := fn.Block(fn.NewBlock())
	b2 := fn.Block(fn.NewBlock())

	b0.Append(
		mir.NewInstr(target.OP_MOVI, mir.Reg(target.R2), mir.Imm(0)),
		mir.NewInstr(target.OP_MOVI, mir.Reg(target.R3), mir.Imm(10)),
	)
	b0.AddSucc(b1.ID)

	b1.Append(
		mir.NewInstr(target.OP_ADDI, mir.Reg(target.R2), mir.Reg(target.R2), mir.Imm(1)),
		mir.NewInstr(target.OP_BLT, mir.Reg(target.R2), mir.Reg(target.R3), mir.Block(b1.ID)),
	)
	b1.AddSucc(b1.ID)
	b1.AddSucc(b2.ID)

	b2.Append(
		mir.NewInstr(target.OP_CALL, mir.Global("report")),
		mir.NewInstr(target.OP_STW, mir.Reg(target.R2), mir.Reg(target.SP), mir.Imm(-4)),
		mir.NewInstr(target.OP_RET, mir.Reg(target.R2)),
	)

	return fn
}

func TestEmitFunction(t *testing.T) {
	p := asmprinter.New(target.Default(), expr.NewSymbolTable())

	section, err := p.EmitFunction(countFunction())

	if err != nil {
		t.Fatal(err)
	}

	if size := len(section.Data); size != 7*8 {
		t.Fatalf("Section size mismatch\nwant:%d\nhave:%d", 7*8, size)
	}

	if have := section.Labels[".LBBcount_1"]; have != 0x10 {
		t.Fatalf("Block label mismatch\nwant:0x10\nhave:%#x", have)
	}

	// blt at 0x18 targets bb.1 at 0x10
	branch := encoding.ReadConstant(section.Data[0x18:], 4)

	if branch != 0xFFFFFFF8 {
		t.Fatalf("Branch displacement mismatch\nwant:0xfffffff8\nhave:%#x", branch)
	}

	if len(section.Fixups) != 1 {
		t.Fatalf("want:1 external fixup\nhave:%v", section.Fixups)
	}

	fixup := section.Fixups[0]

	if fixup.Offset != 0x20 || fixup.Kind != mc.FIXUP_DUMMY_PC32 || fixup.Value.String() != "report" {
		t.Fatalf("Fixup mismatch\nwant:fixup_dummy_pc32@32(report)\nhave:%s", fixup)
	}
}

func TestEmitAssemblyMatchesEncoding(t *testing.T) {
	tg := target.Default()
	p := asmprinter.New(tg, expr.NewSymbolTable())

	section, err := p.EmitFunction(countFunction())

	if err != nil {
		t.Fatal(err)
	}

	text := p.EmitAssembly(countFunction(), true)

	file, errs := assembler.AssembleSource(strings.NewReader(text), &assembler.Options{Target: tg})

	if len(errs) != 0 {
		t.Fatalf("%s\n%s", text, errs[0])
	}

	if !bytes.Equal(file.Text, section.Data) {
		t.Fatalf("Encoding mismatch\nwant:% x\nhave:% x\n%s", section.Data, file.Text, text)
	}

	symbol, ok := file.Symbol("count")

	if !ok || !symbol.Global || !symbol.Defined {
		t.Fatalf("want:global count\nhave:%+v", symbol)
	}

	relocations := file.Relocations()

	if len(relocations) != 1 || relocations[0].Symbol != "report" || relocations[0].Offset != 0x20 {
		t.Fatalf("Relocation mismatch\nhave:%v", relocations)
	}
}

func TestEmitAssemblyText(t *testing.T) {
	p := asmprinter.New(target.Default(), expr.NewSymbolTable())

	text := p.EmitAssembly(countFunction(), false)

	for _, want := range []string{
		"count:\n",
		".LBBcount_1:\n",
		"\tadd r2, r2, $1\n",
		"\tblt r2, r3, .LBBcount_1\n",
		"\tst.w r2, [sp, -4]\n",
		"\tcall report\n",
		"\tret\n",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("want:%q\nhave:%s", want, text)
		}
	}

	if strings.Contains(text, ".global") {
		t.Fatalf("unexpected .global in local function\n%s", text)
	}
}

func TestLowerRejects(t *testing.T) {
	tests := []struct {
		Name  string
		Instr *mir.Instr
	}{
		{
			"Virtual register",
			mir.NewInstr(target.OP_MOV, mir.Reg(target.R2), mir.Reg(target.FirstVirtualReg)),
		},
		{
			"Frame index",
			mir.NewInstr(target.OP_LDW, mir.Reg(target.R2), mir.FrameIndex(0), mir.Imm(0)),
		},
		{
			"PHI",
			mir.NewInstr(target.OP_PHI, mir.Reg(target.R2), mir.Reg(target.R3), mir.Block(0)),
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			fn := mir.NewFunction("bad")
			fn.Entry().Append(test.Instr)

			defer func() {
				if _, ok := recover().(*diag.InternalError); !ok {
					t.Fatal("want:*diag.InternalError panic")
				}
			}()

			asmprinter.New(target.Default(), expr.NewSymbolTable()).Lower(fn)
		})
	}
}
