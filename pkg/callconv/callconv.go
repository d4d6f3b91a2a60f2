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

// Package callconv assigns function arguments and return values to
// registers and stack slots, and lowers function entry and return into
// machine IR.
package callconv

import (
	"errors"
	"fmt"

	"github.com/lassandro/golcg/pkg/target"
)

type Convention uint

const (
	// Incoming arguments
	CC_DUMMY Convention = iota
	// Returned values
	CC_DUMMY_RET
)

func (conv Convention) String() string {
	switch conv {
	case CC_DUMMY:
		return "CC_DUMMY"
	case CC_DUMMY_RET:
		return "CC_DUMMY_RET"
	}

	return "<invalid>"
}

type LocKind uint

const (
	LOC_REGISTER LocKind = iota
	LOC_STACK
)

// Location is where one value lives at the call boundary.
type Location struct {
	ValNo int
	ValVT target.ValueType
	// Type after promotion
	LocVT target.ValueType
	Kind  LocKind

	Reg    target.Reg
	Offset uint64
	Size   uint64
}

func (loc Location) IsRegLoc() bool {
	return loc.Kind == LOC_REGISTER
}

func (loc Location) IsMemLoc() bool {
	return loc.Kind == LOC_STACK
}

func (loc Location) String() string {
	if loc.IsRegLoc() {
		return fmt.Sprintf("#%d %s->%s reg:%d", loc.ValNo, loc.ValVT, loc.LocVT, loc.Reg)
	}

	return fmt.Sprintf(
		"#%d %s->%s stack:[%d,+%d]", loc.ValNo, loc.ValVT, loc.LocVT, loc.Offset, loc.Size,
	)
}

type rules struct {
	promote    map[target.ValueType]target.ValueType
	registers  map[target.ValueType][]target.Reg
	stackAlign uint64
}

var i32 = map[target.ValueType]target.ValueType{
	target.VT_I1:  target.VT_I32,
	target.VT_I8:  target.VT_I32,
	target.VT_I16: target.VT_I32,
}

var conventions = map[Convention]rules{
	CC_DUMMY: {
		promote: i32,
		registers: map[target.ValueType][]target.Reg{
			target.VT_I32: {target.R2, target.R3, target.R4, target.R5, target.R6, target.R7},
			target.VT_PTR: {target.R2, target.R3, target.R4, target.R5, target.R6, target.R7},
		},
		stackAlign: 4,
	},
	CC_DUMMY_RET: {
		promote: i32,
		registers: map[target.ValueType][]target.Reg{
			target.VT_I32: {target.R2, target.R3},
			target.VT_PTR: {target.R2, target.R3},
		},
		stackAlign: 4,
	},
}

var ErrStackReturn = errors.New("return value assigned to the stack")

// CCState accumulates the assignment of one argument or return list.
// Registers and stack bytes are handed out once and never reused.
type CCState struct {
	conv      Convention
	used      map[target.Reg]bool
	stackSize uint64

	Locs []Location
}

func NewCCState(conv Convention) *CCState {
	if _, ok := conventions[conv]; !ok {
		panic(fmt.Sprintf("callconv: unknown convention %d", conv))
	}

	return &CCState{conv: conv, used: make(map[target.Reg]bool)}
}

// StackSize is the number of argument bytes assigned so far.
func (state *CCState) StackSize() uint64 {
	return state.stackSize
}

func (state *CCState) allocateReg(regs []target.Reg) (target.Reg, bool) {
	for _, reg := range regs {
		if !state.used[reg] {
			state.used[reg] = true
			return reg, true
		}
	}

	return target.NoRegister, false
}

func (state *CCState) allocateStack(size, align uint64) uint64 {
	offset := (state.stackSize + align - 1) &^ (align - 1)
	state.stackSize = offset + size
	return offset
}

// assign runs the rule table of the convention over vts in order.
func (state *CCState) assign(vts []target.ValueType) {
	rule := conventions[state.conv]

	for i, vt := range vts {
		locVT := vt

		if promoted, ok := rule.promote[vt]; ok {
			locVT = promoted
		}

		loc := Location{ValNo: i, ValVT: vt, LocVT: locVT}

		if reg, ok := state.allocateReg(rule.registers[locVT]); ok {
			loc.Kind = LOC_REGISTER
			loc.Reg = reg
		} else {
			loc.Kind = LOC_STACK
			loc.Size = uint64(locVT.StoreSize())
			loc.Offset = state.allocateStack(loc.Size, rule.stackAlign)
		}

		state.Locs = append(state.Locs, loc)
	}
}

func (state *CCState) AnalyzeFormalArguments(vts []target.ValueType) {
	state.assign(vts)
}

// AnalyzeReturn assigns return values. Values that cannot go in a register
// are reported with ErrStackReturn.
func (state *CCState) AnalyzeReturn(vts []target.ValueType) error {
	state.assign(vts)

	for _, loc := range state.Locs {
		if !loc.IsRegLoc() {
			return fmt.Errorf("%w: value %d (%s)", ErrStackReturn, loc.ValNo, loc.ValVT)
		}
	}

	return nil
}
