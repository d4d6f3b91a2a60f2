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

package target

import (
	"fmt"
	"strings"
)

type Reg uint16
type RegClass uint

const (
	CLASS_NONE RegClass = iota
	CLASS_GPR
	CLASS_PRED
)

const NoRegister Reg = 0

const (
	R0 Reg = iota + 1
	R1
	R2
	R3
	R4
	R5
	R6
	R7
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
	R16
	R17
	R18
	R19
	R20
	R21
	R22
	R23
	R24
	R25
	R26
	R27
	R28
	R29
	R30
	R31

	P0
	P1
	P2
	P3
	P4
	P5
	P6
	P7

	numRegs
)

const (
	LR = R29
	SP = R30
	FP = R31
)

// Registers at or above FirstVirtualReg are virtual and only exist before
// register allocation.
const FirstVirtualReg Reg = 1 << 15

func (r Reg) IsVirtual() bool {
	return r >= FirstVirtualReg
}

func (r Reg) IsPhysical() bool {
	return r != NoRegister && r < numRegs
}

type RegisterDesc struct {
	Name     string
	Encoding uint8
	Class    RegClass
	Reserved bool
}

func buildRegisters() ([]RegisterDesc, map[string]Reg) {
	registers := make([]RegisterDesc, numRegs)
	names := make(map[string]Reg, numRegs+3)

	for i := 0; i < 32; i++ {
		reg := R0 + Reg(i)
		registers[reg] = RegisterDesc{
			Name:     fmt.Sprintf("r%d", i),
			Encoding: uint8(i),
			Class:    CLASS_GPR,
		}
		names[registers[reg].Name] = reg
	}

	for i := 0; i < 8; i++ {
		reg := P0 + Reg(i)
		registers[reg] = RegisterDesc{
			Name:     fmt.Sprintf("p%d", i),
			Encoding: uint8(i),
			Class:    CLASS_PRED,
		}
		names[registers[reg].Name] = reg
	}

	for _, reg := range []Reg{R0, R1, SP, LR} {
		registers[reg].Reserved = true
	}

	names["lr"] = LR
	names["sp"] = SP
	names["fp"] = FP

	return registers, names
}

// MatchRegisterName looks a register up by its case-insensitive name.
// Unknown names return NoRegister.
func (t *Target) MatchRegisterName(name string) Reg {
	if reg, ok := t.regNames[strings.ToLower(name)]; ok {
		return reg
	}

	return NoRegister
}

func (t *Target) RegisterName(reg Reg) string {
	if reg.IsVirtual() {
		return fmt.Sprintf("%%vreg%d", uint(reg-FirstVirtualReg))
	}

	if !reg.IsPhysical() {
		return "<noreg>"
	}

	switch reg {
	case LR:
		return "lr"
	case SP:
		return "sp"
	}

	return t.registers[reg].Name
}

// RegisterEncoding returns the hardware number of a physical register.
func (t *Target) RegisterEncoding(reg Reg) uint8 {
	if !reg.IsPhysical() {
		panic(fmt.Sprintf("register %d has no encoding", reg))
	}

	return t.registers[reg].Encoding
}

func (t *Target) RegisterClass(reg Reg) RegClass {
	if !reg.IsPhysical() {
		return CLASS_NONE
	}

	return t.registers[reg].Class
}

func (t *Target) IsReserved(reg Reg) bool {
	return reg.IsPhysical() && t.registers[reg].Reserved
}

// RegisterFromEncoding is the inverse of RegisterEncoding for one class.
func (t *Target) RegisterFromEncoding(class RegClass, encoding uint8) Reg {
	switch class {
	case CLASS_GPR:
		if encoding < 32 {
			return R0 + Reg(encoding)
		}
	case CLASS_PRED:
		if encoding < 8 {
			return P0 + Reg(encoding)
		}
	}

	return NoRegister
}
