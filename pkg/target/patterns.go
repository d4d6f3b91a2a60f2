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

// OperandClass describes what a pattern accepts at one operand position.
type OperandClass uint

const (
	OPERAND_GPR OperandClass = iota
	OPERAND_PRED
	OPERAND_SIMM32
	OPERAND_UIMM5
	OPERAND_MEM
	OPERAND_MEMIDX
	OPERAND_TARGET
)

func (class OperandClass) String() string {
	switch class {
	case OPERAND_GPR:
		return "Register"
	case OPERAND_PRED:
		return "Predicate"
	case OPERAND_SIMM32:
		return "Immediate"
	case OPERAND_UIMM5:
		return "Immediate(0-31)"
	case OPERAND_MEM:
		return "Memory"
	case OPERAND_MEMIDX:
		return "Memory(indexed)"
	case OPERAND_TARGET:
		return "Label"
	}

	return "<invalid>"
}

// Bounds returns the values a constant immediate may take in class. ok is
// false for classes that hold no immediate.
func (class OperandClass) Bounds() (low, high int64, ok bool) {
	switch class {
	case OPERAND_SIMM32, OPERAND_TARGET:
		return -1 << 31, 1<<31 - 1, true
	case OPERAND_UIMM5:
		return 0, 31, true
	}

	return 0, 0, false
}

// Pattern is one row of the matcher table: a mnemonic, the classes of its
// operands in source order, and the opcode they select.
type Pattern struct {
	Mnemonic string
	Operands []OperandClass
	Opcode   Opcode
}

func buildPatterns() map[string][]Pattern {
	gpr, pred := OPERAND_GPR, OPERAND_PRED
	simm, uimm := OPERAND_SIMM32, OPERAND_UIMM5
	mem, memidx, tgt := OPERAND_MEM, OPERAND_MEMIDX, OPERAND_TARGET

	rows := []Pattern{
		{"nop", nil, OP_NOP},
		{"mov", []OperandClass{gpr, gpr}, OP_MOV},
		{"movi", []OperandClass{gpr, simm}, OP_MOVI},
		{"lea", []OperandClass{gpr, tgt}, OP_LEA},

		{"add", []OperandClass{gpr, gpr, gpr}, OP_ADD},
		{"add", []OperandClass{gpr, gpr, simm}, OP_ADDI},
		{"sub", []OperandClass{gpr, gpr, gpr}, OP_SUB},
		{"and", []OperandClass{gpr, gpr, gpr}, OP_AND},
		{"or", []OperandClass{gpr, gpr, gpr}, OP_OR},
		{"xor", []OperandClass{gpr, gpr, gpr}, OP_XOR},
		{"shl", []OperandClass{gpr, gpr, gpr}, OP_SHL},
		{"shl", []OperandClass{gpr, gpr, uimm}, OP_SHLI},
		{"shr", []OperandClass{gpr, gpr, gpr}, OP_SHR},
		{"shr", []OperandClass{gpr, gpr, uimm}, OP_SHRI},
		{"sra", []OperandClass{gpr, gpr, gpr}, OP_SRA},
		{"sra", []OperandClass{gpr, gpr, uimm}, OP_SRAI},
		{"mul", []OperandClass{gpr, gpr, gpr}, OP_MUL},
		{"div", []OperandClass{gpr, gpr, gpr}, OP_DIV},
		{"rem", []OperandClass{gpr, gpr, gpr}, OP_REM},

		{"ld.w", []OperandClass{gpr, mem}, OP_LDW},
		{"ld.w", []OperandClass{gpr, memidx}, OP_LDWX},
		{"ld.h", []OperandClass{gpr, mem}, OP_LDH},
		{"ld.b", []OperandClass{gpr, mem}, OP_LDB},
		{"st.w", []OperandClass{gpr, mem}, OP_STW},
		{"st.w", []OperandClass{gpr, memidx}, OP_STWX},
		{"st.h", []OperandClass{gpr, mem}, OP_STH},
		{"st.b", []OperandClass{gpr, mem}, OP_STB},

		{"beq", []OperandClass{gpr, gpr, tgt}, OP_BEQ},
		{"bne", []OperandClass{gpr, gpr, tgt}, OP_BNE},
		{"blt", []OperandClass{gpr, gpr, tgt}, OP_BLT},
		{"bltu", []OperandClass{gpr, gpr, tgt}, OP_BLTU},
		{"bge", []OperandClass{gpr, gpr, tgt}, OP_BGE},
		{"bgeu", []OperandClass{gpr, gpr, tgt}, OP_BGEU},
		{"jmp", []OperandClass{tgt}, OP_JMP},
		{"call", []OperandClass{tgt}, OP_CALL},
		{"jr", []OperandClass{gpr}, OP_JR},
		{"ret", nil, OP_RET},

		{"pseteq", []OperandClass{pred, gpr, gpr}, OP_PSETEQ},
		{"psetlt", []OperandClass{pred, gpr, gpr}, OP_PSETLT},
		{"brp", []OperandClass{pred, tgt}, OP_BRP},
	}

	table := make(map[string][]Pattern)
	for _, row := range rows {
		table[row.Mnemonic] = append(table[row.Mnemonic], row)
	}

	return table
}

// Patterns returns every row of the matcher table for a lower-case
// mnemonic, in table order.
func (t *Target) Patterns(mnemonic string) []Pattern {
	return t.patterns[mnemonic]
}
