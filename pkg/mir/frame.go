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

package mir

import (
	"github.com/lassandro/golcg/pkg/diag"
	"github.com/lassandro/golcg/pkg/target"
)

type FrameObject struct {
	Size  uint64
	Align uint64
	// Offset from the incoming stack pointer. Valid for fixed objects from
	// creation and for the rest once the frame is laid out.
	Offset int64
	Fixed  bool
}

// FrameInfo is the stack frame of one function. Layout and elimination are
// strictly ordered phases tracked by LaidOut and Eliminated.
type FrameInfo struct {
	Objects   []FrameObject
	StackSize uint64
	HasFP     bool

	LaidOut    bool
	Eliminated bool
}

// CreateStackObject adds a local object whose offset is decided by the
// frame layout.
func (frame *FrameInfo) CreateStackObject(size, align uint64) int {
	if frame.LaidOut {
		diag.Internalf("stack object created after frame layout")
	}

	if align == 0 {
		align = 1
	}

	frame.Objects = append(frame.Objects, FrameObject{Size: size, Align: align})
	return len(frame.Objects) - 1
}

// CreateFixedObject adds an object at a known offset from the incoming
// stack pointer, such as an argument passed on the stack.
func (frame *FrameInfo) CreateFixedObject(size uint64, offset int64) int {
	frame.Objects = append(frame.Objects, FrameObject{
		Size:   size,
		Align:  1,
		Offset: offset,
		Fixed:  true,
	})
	return len(frame.Objects) - 1
}

func (frame *FrameInfo) Object(index int) *FrameObject {
	if index < 0 || index >= len(frame.Objects) {
		diag.Internalf("frame index %d out of range", index)
	}

	return &frame.Objects[index]
}

type LiveIn struct {
	Phys target.Reg
	Virt target.Reg
}

// RegInfo hands out virtual registers and records which physical
// registers carry values into the function.
type RegInfo struct {
	numVirt int
	liveIns []LiveIn
}

func (regs *RegInfo) CreateVirtualRegister() target.Reg {
	reg := target.FirstVirtualReg + target.Reg(regs.numVirt)
	regs.numVirt++
	return reg
}

func (regs *RegInfo) NumVirtualRegisters() int {
	return regs.numVirt
}

func (regs *RegInfo) AddLiveIn(phys, virt target.Reg) {
	regs.liveIns = append(regs.liveIns, LiveIn{Phys: phys, Virt: virt})
}

func (regs *RegInfo) LiveIns() []LiveIn {
	return regs.liveIns
}
