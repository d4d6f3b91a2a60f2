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

package mc

import (
	"github.com/lassandro/golcg/pkg/diag"
	"github.com/lassandro/golcg/pkg/encoding"
	"github.com/lassandro/golcg/pkg/target"
)

// Encoder turns an Inst into its little-endian machine word. It keeps no
// state between calls.
type Encoder struct {
	target *target.Target
}

func NewEncoder(t *target.Target) *Encoder {
	return &Encoder{target: t}
}

type encodeState struct {
	target *target.Target
	inst   *Inst
	desc   *target.OpcodeDesc
	fixups []Fixup
}

// Encode returns the bytes of inst and the fixups for every operand that
// is not a compile-time constant. The word size comes from the opcode
// descriptor.
func (e *Encoder) Encode(inst *Inst) ([]byte, []Fixup, error) {
	desc := e.target.Desc(inst.Opcode)

	if desc.IsPseudo() {
		diag.Internalf("pseudo instruction %s reached the encoder", desc.Name)
	}

	state := encodeState{target: e.target, inst: inst, desc: desc}

	word, err := state.encode()

	if err != nil {
		return nil, nil, err
	}

	buf := make([]byte, 0, desc.Size)
	buf = encoding.EmitConstant(buf, word, desc.Size)

	return buf, state.fixups, nil
}

func (s *encodeState) encode() (uint64, error) {
	word := uint64(s.desc.Encoding) << target.WORD_OPCODE_SHIFT

	var payload uint64
	var err error

	switch s.desc.Format {
	// |op|
	case target.FMT_NONE:
		// Operands of ret are the implicit return registers.

	// |op|A|
	case target.FMT_R:
		word |= s.fieldA(0)

	// |op|A|B|
	case target.FMT_RR:
		word |= s.fieldA(0) | s.fieldB(1)

	// |op|A|B|       |rt|
	case target.FMT_RRR:
		word |= s.fieldA(0) | s.fieldB(1)
		payload = uint64(s.reg(2))

	// |op|A| |imm32      |
	case target.FMT_RI:
		word |= s.fieldA(0)
		payload, err = s.immediate(1)

	// |op|A|B|imm32      |
	case target.FMT_RRI:
		word |= s.fieldA(0) | s.fieldB(1)
		payload, err = s.immediate(2)

	// |op|A| |disp12|base|
	case target.FMT_RM:
		word |= s.fieldA(0)
		payload, err = s.memory(1)

	// |op|A| |index |base|
	case target.FMT_RMX:
		word |= s.fieldA(0)
		payload = uint64(s.reg(2))<<target.MEM_DISP_SHIFT | uint64(s.reg(1))

	// |op|A|B|target32   |
	case target.FMT_RRB:
		word |= s.fieldA(0) | s.fieldB(1)
		payload, err = s.immediate(2)

	// |op| | |target32   |
	case target.FMT_B:
		payload, err = s.immediate(0)

	// |op|P| |target32   |
	case target.FMT_PB:
		word |= s.fieldA(0)
		payload, err = s.immediate(1)

	// |op|P|B|       |rt|
	case target.FMT_PRR:
		word |= s.fieldA(0) | s.fieldB(1)
		payload = uint64(s.reg(2))

	default:
		diag.Internalf("opcode %s has no encoding format", s.desc.Name)
	}

	if err != nil {
		return 0, err
	}

	return word | payload<<target.PAYLOAD_OFFSET, nil
}

func (s *encodeState) reg(i int) uint8 {
	op := s.inst.Operand(i)
	reg := op.Reg()

	if !reg.IsPhysical() {
		diag.Internalf(
			"operand %d of %s is not a physical register: %s",
			i, s.desc.Name, s.target.RegisterName(reg),
		)
	}

	return s.target.RegisterEncoding(reg)
}

func (s *encodeState) fieldA(i int) uint64 {
	return uint64(s.reg(i)&target.WORD_REG_MASK) << target.WORD_A_SHIFT
}

func (s *encodeState) fieldB(i int) uint64 {
	return uint64(s.reg(i)&target.WORD_REG_MASK) << target.WORD_B_SHIFT
}

// immediate resolves a payload operand. Symbolic values encode as zero and
// leave a fixup, PC-relative when the opcode addresses relative to itself.
func (s *encodeState) immediate(i int) (uint64, error) {
	op := s.inst.Operand(i)

	switch op.Kind() {
	case OPERAND_IMM:
		value := op.Imm()

		if !encoding.FitsSigned(value, target.PAYLOAD_BITS) {
			return 0, &diag.EncodingError{
				Position: s.inst.Loc,
				Opcode:   s.desc.Name,
				Operand:  i,
				Value:    value,
				Bits:     target.PAYLOAD_BITS,
			}
		}

		return encoding.ZeroExtend(uint64(value), target.PAYLOAD_BITS), nil

	case OPERAND_EXPR:
		kind := FIXUP_DUMMY_32
		if s.desc.PCRel {
			kind = FIXUP_DUMMY_PC32
		}

		s.fixups = append(s.fixups, Fixup{
			Offset: target.PAYLOAD_OFFSET / 8,
			Value:  op.Expr(),
			Kind:   kind,
			PCRel:  s.desc.PCRel,
			Loc:    s.inst.Loc,
		})

		return 0, nil
	}

	diag.Internalf("operand %d of %s is not an immediate", i, s.desc.Name)
	return 0, nil
}

// memory packs a base register and the displacement that follows it. The
// displacement must fit before it is masked.
func (s *encodeState) memory(i int) (uint64, error) {
	base := s.reg(i)
	disp := s.inst.Operand(i + 1).Imm()

	if !encoding.FitsSigned(disp, target.MEM_DISP_BITS) {
		return 0, &diag.EncodingError{
			Position: s.inst.Loc,
			Opcode:   s.desc.Name,
			Operand:  i + 1,
			Value:    disp,
			Bits:     target.MEM_DISP_BITS,
		}
	}

	mask := uint64(1)<<target.MEM_DISP_BITS - 1

	return (uint64(disp)&mask)<<target.MEM_DISP_SHIFT | uint64(base), nil
}
