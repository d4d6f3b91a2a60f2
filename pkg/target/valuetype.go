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

// ValueType is the machine type of a value crossing a call boundary.
type ValueType uint

const (
	VT_I1 ValueType = iota
	VT_I8
	VT_I16
	VT_I32
	VT_I64
	VT_PTR
)

// Pointers are 32 bits wide: e-m:e-p:32:32-i64:32.
const PointerSize = 4

func (vt ValueType) StoreSize() uint {
	switch vt {
	case VT_I1, VT_I8:
		return 1
	case VT_I16:
		return 2
	case VT_I32, VT_PTR:
		return 4
	case VT_I64:
		return 8
	}

	panic("target: unknown value type")
}

func (vt ValueType) String() string {
	switch vt {
	case VT_I1:
		return "i1"
	case VT_I8:
		return "i8"
	case VT_I16:
		return "i16"
	case VT_I32:
		return "i32"
	case VT_I64:
		return "i64"
	case VT_PTR:
		return "ptr"
	}

	return "<invalid>"
}
