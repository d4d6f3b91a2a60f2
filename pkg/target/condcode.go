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

type CondCode uint

const (
	COND_EQ CondCode = iota
	COND_NE
	COND_LT
	COND_LTU
	COND_GE
	COND_GEU

	numCondCodes
)

var condNames = [numCondCodes]string{
	COND_EQ:  "eq",
	COND_NE:  "ne",
	COND_LT:  "lt",
	COND_LTU: "ltu",
	COND_GE:  "ge",
	COND_GEU: "geu",
}

var branchOpcodes = [numCondCodes]Opcode{
	COND_EQ:  OP_BEQ,
	COND_NE:  OP_BNE,
	COND_LT:  OP_BLT,
	COND_LTU: OP_BLTU,
	COND_GE:  OP_BGE,
	COND_GEU: OP_BGEU,
}

func (cc CondCode) String() string {
	if cc >= numCondCodes {
		return "<invalid>"
	}

	return condNames[cc]
}

func (cc CondCode) Valid() bool {
	return cc < numCondCodes
}

// BranchOpcode returns the conditional branch taken when cc holds.
func BranchOpcode(cc CondCode) Opcode {
	if cc >= numCondCodes || branchOpcodes[cc] == OP_INVALID {
		panic("target: unmapped condition code")
	}

	return branchOpcodes[cc]
}

func CondCodes() []CondCode {
	result := make([]CondCode, 0, numCondCodes)

	for cc := CondCode(0); cc < numCondCodes; cc++ {
		result = append(result, cc)
	}

	return result
}
