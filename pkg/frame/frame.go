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

// Package frame lays out the stack frame of a function and replaces frame
// indices with a base register and displacement.
package frame

import (
	"errors"

	"github.com/lassandro/golcg/pkg/diag"
	"github.com/lassandro/golcg/pkg/mir"
	"github.com/lassandro/golcg/pkg/target"
)

var (
	ErrLayoutPending     = errors.New("frame: frame indices eliminated before layout")
	ErrAlreadyLaidOut    = errors.New("frame: frame already laid out")
	ErrAlreadyEliminated = errors.New("frame: frame indices already eliminated")
)

func alignTo(value, align uint64) uint64 {
	return (value + align - 1) &^ (align - 1)
}

// Layout places every local object below the incoming stack pointer and
// sets the stack size, rounded to the stack alignment. With a frame
// pointer the first word below the incoming stack pointer holds the
// caller's frame pointer.
func Layout(fn *mir.Function) error {
	frame := &fn.Frame

	if frame.LaidOut {
		return ErrAlreadyLaidOut
	}

	var size uint64

	if frame.HasFP {
		size = target.PointerSize
	}

	for i := range frame.Objects {
		obj := &frame.Objects[i]

		if obj.Fixed {
			continue
		}

		size = alignTo(size+obj.Size, obj.Align)
		obj.Offset = -int64(size)
	}

	frame.StackSize = alignTo(size, target.StackAlignment)
	frame.LaidOut = true

	return nil
}

// Reference returns the base register and displacement of a frame object.
func Reference(fn *mir.Function, index int) (target.Reg, int64) {
	frame := &fn.Frame
	obj := frame.Object(index)

	if frame.HasFP {
		return target.FP, obj.Offset
	}

	return target.SP, obj.Offset + int64(frame.StackSize)
}

// EliminateFrameIndices rewrites every frame index operand into the frame
// register, adding the object offset to the displacement operand that
// follows it. It runs once, after Layout.
func EliminateFrameIndices(fn *mir.Function) error {
	frame := &fn.Frame

	if !frame.LaidOut {
		return ErrLayoutPending
	}

	if frame.Eliminated {
		return ErrAlreadyEliminated
	}

	for _, bb := range fn.Blocks() {
		for _, instr := range bb.Instrs {
			for i, op := range instr.Operands {
				if !op.IsFrameIndex() {
					continue
				}

				if i+1 >= len(instr.Operands) || !instr.Operands[i+1].IsImm() {
					diag.Internalf(
						"frame index in %s is not followed by a displacement", fn.Name,
					)
				}

				reg, offset := Reference(fn, op.Index())

				instr.SetOperand(i, mir.Reg(reg))
				instr.SetOperand(i+1, mir.Imm(instr.Operands[i+1].Imm()+offset))
			}
		}
	}

	frame.Eliminated = true

	return nil
}

// EmitPrologue allocates the frame at the top of the entry block.
func EmitPrologue(fn *mir.Function) {
	frame := &fn.Frame
	entry := fn.Entry()

	var prologue []*mir.Instr

	if frame.HasFP {
		prologue = append(prologue,
			mir.NewInstr(target.OP_STW, mir.Reg(target.FP), mir.Reg(target.SP), mir.Imm(-target.PointerSize)),
			mir.NewInstr(target.OP_MOV, mir.Reg(target.FP), mir.Reg(target.SP)),
		)
	}

	if frame.StackSize > 0 {
		prologue = append(prologue, mir.NewInstr(
			target.OP_ADDI, mir.Reg(target.SP), mir.Reg(target.SP), mir.Imm(-int64(frame.StackSize)),
		))
	}

	entry.Instrs = append(prologue, entry.Instrs...)
}

// EmitEpilogue frees the frame before every ret.
func EmitEpilogue(fn *mir.Function) {
	frame := &fn.Frame

	for _, bb := range fn.Blocks() {
		var instrs []*mir.Instr

		for _, instr := range bb.Instrs {
			if instr.Opcode == target.OP_RET {
				if frame.HasFP {
					instrs = append(instrs,
						mir.NewInstr(target.OP_MOV, mir.Reg(target.SP), mir.Reg(target.FP)),
						mir.NewInstr(target.OP_LDW, mir.Reg(target.FP), mir.Reg(target.SP), mir.Imm(-target.PointerSize)),
					)
				} else if frame.StackSize > 0 {
					instrs = append(instrs, mir.NewInstr(
						target.OP_ADDI, mir.Reg(target.SP), mir.Reg(target.SP), mir.Imm(int64(frame.StackSize)),
					))
				}
			}

			instrs = append(instrs, instr)
		}

		bb.Instrs = instrs
	}
}
