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
	"fmt"

	"github.com/lassandro/golcg/pkg/diag"
	"github.com/lassandro/golcg/pkg/encoding"
	"github.com/lassandro/golcg/pkg/expr"
	"github.com/lassandro/golcg/pkg/target"
)

type FixupKind uint

const (
	FIXUP_NONE FixupKind = iota
	// 32-bit absolute value in the instruction payload
	FIXUP_DUMMY_32
	// 32-bit offset from the instruction start in the instruction payload
	FIXUP_DUMMY_PC32
	// .word data
	FIXUP_DATA_32
	// .quad data
	FIXUP_DATA_64
)

type FixupKindInfo struct {
	Name string
	// Bit position of the field inside the fixed-up bytes
	Offset uint
	Size   uint
	PCRel  bool
}

var fixupKindInfos = [...]FixupKindInfo{
	FIXUP_NONE:       {"fixup_none", 0, 0, false},
	FIXUP_DUMMY_32:   {"fixup_dummy_32", target.PAYLOAD_OFFSET, target.PAYLOAD_BITS, false},
	FIXUP_DUMMY_PC32: {"fixup_dummy_pc32", target.PAYLOAD_OFFSET, target.PAYLOAD_BITS, true},
	FIXUP_DATA_32:    {"fixup_data_32", 0, 32, false},
	FIXUP_DATA_64:    {"fixup_data_64", 0, 64, false},
}

func (kind FixupKind) Info() FixupKindInfo {
	if int(kind) >= len(fixupKindInfos) {
		diag.Internalf("unknown fixup kind %d", kind)
	}

	return fixupKindInfos[kind]
}

func (kind FixupKind) String() string {
	return kind.Info().Name
}

// Fixup is a value the encoder could not resolve. Offset is the byte
// offset of the patched field, relative to the start of the instruction
// until the assembler rebases it into the section.
type Fixup struct {
	Offset uint64
	Value  expr.Expr
	Kind   FixupKind
	PCRel  bool
	Loc    diag.Cursor
}

func (fixup Fixup) String() string {
	return fmt.Sprintf(
		"%s@%d(%s, pcrel:%t)", fixup.Kind, fixup.Offset, fixup.Value, fixup.PCRel,
	)
}

// ApplyFixup patches a resolved value into data at the fixup offset.
// PC-relative fixups expect value to already be relative to the start of
// the instruction.
func ApplyFixup(data []byte, fixup Fixup, value int64) error {
	info := fixup.Kind.Info()
	bytes := uint((info.Offset + info.Size + 7) / 8)

	if fixup.Offset+uint64(bytes) > uint64(len(data)) {
		diag.Internalf("fixup %s past end of section", fixup)
	}

	// Absolute 32-bit fields accept both signed and unsigned values.
	fits := encoding.FitsSigned(value, info.Size)
	if !fits && !info.PCRel {
		fits = encoding.FitsUnsigned(value, info.Size)
	}

	if !fits {
		return &diag.EncodingError{
			Position: fixup.Loc,
			Opcode:   info.Name,
			Value:    value,
			Bits:     info.Size,
		}
	}

	field := data[fixup.Offset : fixup.Offset+uint64(bytes)]
	word := encoding.ReadConstant(field, bytes)
	word |= encoding.ZeroExtend(uint64(value), info.Size) << info.Offset
	encoding.EmitConstant(field[:0], word, bytes)

	return nil
}
