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

// Package object holds the relocatable output of the assembler and reads
// and writes it in the DMYO container format.
package object

import (
	"github.com/lassandro/golcg/pkg/diag"
	"github.com/lassandro/golcg/pkg/mc"
)

type RelocType uint32

const (
	R_DUMMY_NONE RelocType = iota
	// S + A, 32-bit, into an instruction payload or a .word
	R_DUMMY_32
	// S + A - P, 32-bit, P being the start of the instruction
	R_DUMMY_PC32
	// S + A, 64-bit .quad
	R_DUMMY_64
)

var relocNames = [...]string{
	R_DUMMY_NONE: "R_DUMMY_NONE",
	R_DUMMY_32:   "R_DUMMY_32",
	R_DUMMY_PC32: "R_DUMMY_PC32",
	R_DUMMY_64:   "R_DUMMY_64",
}

func (rel RelocType) String() string {
	if int(rel) >= len(relocNames) {
		return "<invalid>"
	}

	return relocNames[rel]
}

// RelocTypeFor maps a fixup onto the relocation the linker applies.
func RelocTypeFor(kind mc.FixupKind, pcrel bool) RelocType {
	switch kind {
	case mc.FIXUP_NONE:
		return R_DUMMY_NONE
	case mc.FIXUP_DUMMY_32, mc.FIXUP_DUMMY_PC32:
		if pcrel {
			return R_DUMMY_PC32
		}
		return R_DUMMY_32
	case mc.FIXUP_DATA_32:
		if pcrel {
			diag.Internalf("pc-relative data fixups are not supported")
		}
		return R_DUMMY_32
	case mc.FIXUP_DATA_64:
		if pcrel {
			diag.Internalf("pc-relative data fixups are not supported")
		}
		return R_DUMMY_64
	}

	diag.Internalf("fixup kind %d has no relocation type", kind)
	return R_DUMMY_NONE
}

// Size is the number of bytes the relocation patches.
func (rel RelocType) Size() uint {
	switch rel {
	case R_DUMMY_32, R_DUMMY_PC32:
		return 4
	case R_DUMMY_64:
		return 8
	}

	return 0
}
