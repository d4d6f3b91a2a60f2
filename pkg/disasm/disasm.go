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

// Package disasm decodes instruction words back into mc instructions.
package disasm

import (
	"fmt"

	"github.com/lassandro/golcg/pkg/encoding"
	"github.com/lassandro/golcg/pkg/mc"
	"github.com/lassandro/golcg/pkg/target"
)

// Every opcode byte sits in the last byte of the first 8 bytes of an
// instruction, so that much is read before the descriptor is known.
const peekSize = 8

type DecodeError struct {
	Offset uint64
	Word   uint64
	Reason string
}

func (err *DecodeError) Error() string {
	return fmt.Sprintf("%08x: %s\n\thave:%#016x", err.Offset, err.Reason, err.Word)
}

// DecodeSImm appends raw as a bits-wide signed immediate. It fails when
// raw has bits set above the field.
func DecodeSImm(inst *mc.Inst, raw uint64, bits uint) bool {
	value, ok := encoding.DecodeSImm(raw, bits)

	if ok {
		inst.AddOperand(mc.ImmOperand(value))
	}

	return ok
}

func DecodeUImm(inst *mc.Inst, raw uint64, bits uint) bool {
	value, ok := encoding.DecodeUImm(raw, bits)

	if ok {
		inst.AddOperand(mc.ImmOperand(int64(value)))
	}

	return ok
}

func decodeReg(t *target.Target, inst *mc.Inst, class target.RegClass, encoded uint64) bool {
	reg := t.RegisterFromEncoding(class, uint8(encoded&target.WORD_REG_MASK))

	if reg == target.NoRegister {
		return false
	}

	inst.AddOperand(mc.RegOperand(reg))
	return true
}

// Decode reads the instruction at the start of data and returns it with
// its size.
func Decode(t *target.Target, data []byte, offset uint64) (*mc.Inst, uint, error) {
	if len(data) < peekSize {
		return nil, 0, &DecodeError{Offset: offset, Reason: "truncated instruction"}
	}

	word := encoding.ReadConstant(data, peekSize)
	desc, ok := t.OpcodeFromEncoding(uint8(word >> target.WORD_OPCODE_SHIFT))

	if !ok {
		return nil, 0, &DecodeError{Offset: offset, Word: word, Reason: "unknown opcode"}
	}

	if uint(len(data)) < desc.Size {
		return nil, 0, &DecodeError{Offset: offset, Word: word, Reason: "truncated instruction"}
	}

	inst := &mc.Inst{Opcode: desc.Opcode}

	a := word >> target.WORD_A_SHIFT
	b := word >> target.WORD_B_SHIFT
	payload := encoding.ZeroExtend(word>>target.PAYLOAD_OFFSET, target.PAYLOAD_BITS)

	gpr, pred := target.CLASS_GPR, target.CLASS_PRED
	valid := true

	switch desc.Format {
	case target.FMT_NONE:
	case target.FMT_R:
		valid = decodeReg(t, inst, gpr, a)
	case target.FMT_RR:
		valid = decodeReg(t, inst, gpr, a) && decodeReg(t, inst, gpr, b)
	case target.FMT_RRR:
		valid = decodeReg(t, inst, gpr, a) && decodeReg(t, inst, gpr, b) &&
			decodeReg(t, inst, gpr, payload)
	case target.FMT_RI:
		valid = decodeReg(t, inst, gpr, a) && DecodeSImm(inst, payload, target.PAYLOAD_BITS)
	case target.FMT_RRI, target.FMT_RRB:
		valid = decodeReg(t, inst, gpr, a) && decodeReg(t, inst, gpr, b) &&
			DecodeSImm(inst, payload, target.PAYLOAD_BITS)
	case target.FMT_RM:
		disp := (payload >> target.MEM_DISP_SHIFT) & (1<<target.MEM_DISP_BITS - 1)
		valid = decodeReg(t, inst, gpr, a) && decodeReg(t, inst, gpr, payload) &&
			DecodeSImm(inst, disp, target.MEM_DISP_BITS)
	case target.FMT_RMX:
		valid = decodeReg(t, inst, gpr, a) && decodeReg(t, inst, gpr, payload) &&
			decodeReg(t, inst, gpr, payload>>target.MEM_DISP_SHIFT)
	case target.FMT_B:
		valid = DecodeSImm(inst, payload, target.PAYLOAD_BITS)
	case target.FMT_PB:
		valid = decodeReg(t, inst, pred, a) && DecodeSImm(inst, payload, target.PAYLOAD_BITS)
	case target.FMT_PRR:
		valid = decodeReg(t, inst, pred, a) && decodeReg(t, inst, gpr, b) &&
			decodeReg(t, inst, gpr, payload)
	default:
		valid = false
	}

	if !valid {
		return nil, 0, &DecodeError{Offset: offset, Word: word, Reason: "invalid operand encoding"}
	}

	return inst, desc.Size, nil
}

type Line struct {
	Offset uint64
	Bytes  []byte
	Inst   *mc.Inst
	Err    error
}

// Disassemble decodes data from start to end. An undecodable word is
// reported on its own line and skipped.
func Disassemble(t *target.Target, data []byte) []Line {
	var lines []Line
	var offset uint64

	for offset < uint64(len(data)) {
		inst, size, err := Decode(t, data[offset:], offset)

		if err != nil {
			size = peekSize
			if rest := uint(uint64(len(data)) - offset); rest < size {
				size = rest
			}
		}

		lines = append(lines, Line{
			Offset: offset,
			Bytes:  data[offset : offset+uint64(size)],
			Inst:   inst,
			Err:    err,
		})

		offset += uint64(size)
	}

	return lines
}
