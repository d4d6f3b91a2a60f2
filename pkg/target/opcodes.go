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

type Opcode uint16
type Format uint

const (
	OP_INVALID Opcode = iota

	OP_NOP
	OP_MOV
	OP_MOVI
	OP_LEA

	OP_ADD
	OP_ADDI
	OP_SUB
	OP_AND
	OP_OR
	OP_XOR
	OP_SHL
	OP_SHR
	OP_SRA
	OP_SHLI
	OP_SHRI
	OP_SRAI
	OP_MUL
	OP_DIV
	OP_REM

	OP_LDW
	OP_LDH
	OP_LDB
	OP_LDWX
	OP_STW
	OP_STH
	OP_STB
	OP_STWX

	OP_BEQ
	OP_BNE
	OP_BLT
	OP_BLTU
	OP_BGE
	OP_BGEU
	OP_JMP
	OP_CALL
	OP_JR
	OP_RET

	OP_PSETEQ
	OP_PSETLT
	OP_BRP

	// Pseudo instructions, never encoded
	OP_SELECT_CC
	OP_PHI

	numOpcodes
)

const (
	FMT_PSEUDO Format = iota
	FMT_NONE           // |op|
	FMT_R              // |op|A|
	FMT_RR             // |op|A|B|
	FMT_RRR            // |op|A|B|       |rt|
	FMT_RI             // |op|A| |imm32      |
	FMT_RRI            // |op|A|B|imm32      |
	FMT_RM             // |op|A| |disp12|base|
	FMT_RMX            // |op|A| |index |base|
	FMT_RRB            // |op|A|B|target32   |
	FMT_B              // |op| | |target32   |
	FMT_PB             // |op|P| |target32   |
	FMT_PRR            // |op|P|B|       |rt|
)

// Instruction word: 64 bits, little-endian.
//
//	63      56 55  51 50  46 45     32 31                 0
//	| opcode  |  A   |  B   | unused  |       payload      |
const (
	WORD_OPCODE_SHIFT = 56
	WORD_A_SHIFT      = 51
	WORD_B_SHIFT      = 46
	WORD_REG_MASK     = 0x1F

	// Memory payload: |disp12|base5|
	MEM_DISP_BITS  = 12
	MEM_DISP_SHIFT = 5

	// Byte offset of the payload inside the encoded word.
	PAYLOAD_OFFSET = 0
	PAYLOAD_BITS   = 32
)

type OpcodeDesc struct {
	Opcode   Opcode
	Name     string
	Encoding uint8
	Size     uint
	Format   Format
	Feature  Feature
	PCRel    bool
	Branch   bool
	Return   bool
}

func (desc *OpcodeDesc) IsPseudo() bool {
	return desc.Format == FMT_PSEUDO
}

func (desc *OpcodeDesc) IsTerminator() bool {
	return desc.Branch || desc.Return
}

func buildOpcodes() []OpcodeDesc {
	const size = 8

	descs := []OpcodeDesc{
		{OP_NOP, "nop", 0x00, size, FMT_NONE, 0, false, false, false},
		{OP_MOV, "mov", 0x01, size, FMT_RR, 0, false, false, false},
		{OP_MOVI, "movi", 0x02, size, FMT_RI, 0, false, false, false},
		{OP_LEA, "lea", 0x03, size, FMT_RI, 0, false, false, false},

		{OP_ADD, "add", 0x10, size, FMT_RRR, 0, false, false, false},
		{OP_ADDI, "add", 0x11, size, FMT_RRI, 0, false, false, false},
		{OP_SUB, "sub", 0x12, size, FMT_RRR, 0, false, false, false},
		{OP_AND, "and", 0x13, size, FMT_RRR, 0, false, false, false},
		{OP_OR, "or", 0x14, size, FMT_RRR, 0, false, false, false},
		{OP_XOR, "xor", 0x15, size, FMT_RRR, 0, false, false, false},
		{OP_SHL, "shl", 0x16, size, FMT_RRR, 0, false, false, false},
		{OP_SHR, "shr", 0x17, size, FMT_RRR, 0, false, false, false},
		{OP_SRA, "sra", 0x18, size, FMT_RRR, 0, false, false, false},
		{OP_SHLI, "shl", 0x19, size, FMT_RRI, 0, false, false, false},
		{OP_SHRI, "shr", 0x1A, size, FMT_RRI, 0, false, false, false},
		{OP_SRAI, "sra", 0x1B, size, FMT_RRI, 0, false, false, false},
		{OP_MUL, "mul", 0x1C, size, FMT_RRR, FEATURE_MUL, false, false, false},
		{OP_DIV, "div", 0x1D, size, FMT_RRR, FEATURE_MUL, false, false, false},
		{OP_REM, "rem", 0x1E, size, FMT_RRR, FEATURE_MUL, false, false, false},

		{OP_LDW, "ld.w", 0x20, size, FMT_RM, 0, false, false, false},
		{OP_LDH, "ld.h", 0x21, size, FMT_RM, 0, false, false, false},
		{OP_LDB, "ld.b", 0x22, size, FMT_RM, 0, false, false, false},
		{OP_LDWX, "ld.w", 0x23, size, FMT_RMX, 0, false, false, false},
		{OP_STW, "st.w", 0x28, size, FMT_RM, 0, false, false, false},
		{OP_STH, "st.h", 0x29, size, FMT_RM, 0, false, false, false},
		{OP_STB, "st.b", 0x2A, size, FMT_RM, 0, false, false, false},
		{OP_STWX, "st.w", 0x2B, size, FMT_RMX, 0, false, false, false},

		{OP_BEQ, "beq", 0x30, size, FMT_RRB, 0, true, true, false},
		{OP_BNE, "bne", 0x31, size, FMT_RRB, 0, true, true, false},
		{OP_BLT, "blt", 0x32, size, FMT_RRB, 0, true, true, false},
		{OP_BLTU, "bltu", 0x33, size, FMT_RRB, 0, true, true, false},
		{OP_BGE, "bge", 0x34, size, FMT_RRB, 0, true, true, false},
		{OP_BGEU, "bgeu", 0x35, size, FMT_RRB, 0, true, true, false},
		{OP_JMP, "jmp", 0x38, size, FMT_B, 0, true, true, false},
		{OP_CALL, "call", 0x39, size, FMT_B, 0, true, false, false},
		{OP_JR, "jr", 0x3A, size, FMT_R, 0, false, true, false},
		{OP_RET, "ret", 0x3B, size, FMT_NONE, 0, false, false, true},

		{OP_PSETEQ, "pseteq", 0x40, size, FMT_PRR, FEATURE_PRED, false, false, false},
		{OP_PSETLT, "psetlt", 0x41, size, FMT_PRR, FEATURE_PRED, false, false, false},
		{OP_BRP, "brp", 0x42, size, FMT_PB, FEATURE_PRED, true, true, false},

		{OP_SELECT_CC, "SELECT_CC", 0, 0, FMT_PSEUDO, 0, false, false, false},
		{OP_PHI, "PHI", 0, 0, FMT_PSEUDO, 0, false, false, false},
	}

	table := make([]OpcodeDesc, numOpcodes)
	for _, desc := range descs {
		table[desc.Opcode] = desc
	}

	return table
}

// Desc returns the static descriptor of op. Asking for an opcode the table
// does not know is a programming error.
func (t *Target) Desc(op Opcode) *OpcodeDesc {
	if op == OP_INVALID || op >= numOpcodes {
		panic("target: invalid opcode")
	}

	return &t.opcodes[op]
}

// OpcodeFromEncoding maps the opcode byte of an encoded word back to its
// descriptor.
func (t *Target) OpcodeFromEncoding(encoding uint8) (*OpcodeDesc, bool) {
	desc, ok := t.byEncoding[encoding]
	return desc, ok
}
