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

package encoding

import (
	"errors"
	"strconv"
	"strings"
)

// Decodes a hexidecimal string in the formats: 0xFFFF, -0xFF
func DecodeHex(s string) (int64, error) {
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	if i := strings.IndexAny(s, "xX"); i != 1 || s[0] != '0' {
		return 0, errors.New("Invalid hex string")
	}

	result, err := strconv.ParseUint(s[2:], 16, 64)

	if err != nil {
		return 0, err
	}

	if negative {
		return -int64(result), nil
	}

	return int64(result), nil
}

// Decodes a base-10 string in the formats: $123, 123, -123
func DecodeInt(s string) (int64, error) {
	if i := strings.Index(s, "$"); i == 0 {
		s = s[1:]
	}

	if strings.ContainsAny(s, "xX") {
		return DecodeHex(s)
	}

	return strconv.ParseInt(s, 10, 64)
}

// Reports whether value survives truncation to a bits-wide two's
// complement field.
func FitsSigned(value int64, bits uint) bool {
	if bits >= 64 {
		return true
	}

	limit := int64(1) << (bits - 1)

	return value >= -limit && value < limit
}

func FitsUnsigned(value int64, bits uint) bool {
	if bits >= 64 {
		return value >= 0
	}

	return value >= 0 && value < int64(1)<<bits
}

func SignExtend(value uint64, bitcount uint) int64 {
	if bitcount >= 64 {
		return int64(value)
	}

	mask := uint64(1)<<bitcount - 1
	value &= mask

	if (value>>(bitcount-1))&0x1 == 1 {
		value |= ^mask
	}

	return int64(value)
}

func ZeroExtend(value uint64, bitcount uint) uint64 {
	if bitcount >= 64 {
		return value
	}

	return value & (uint64(1)<<bitcount - 1)
}

// DecodeSImm reads a bits-wide signed field. Values with bits set above
// the field are rejected.
func DecodeSImm(raw uint64, bits uint) (int64, bool) {
	if bits < 64 && raw&^(uint64(1)<<bits-1) != 0 {
		return 0, false
	}

	return SignExtend(raw, bits), true
}

func DecodeUImm(raw uint64, bits uint) (uint64, bool) {
	if bits < 64 && raw&^(uint64(1)<<bits-1) != 0 {
		return 0, false
	}

	return raw, true
}

// EmitConstant appends the low size bytes of value in little-endian order.
func EmitConstant(buf []byte, value uint64, size uint) []byte {
	for i := uint(0); i != size; i++ {
		buf = append(buf, byte(value&0xFF))
		value >>= 8
	}

	return buf
}

// ReadConstant is the inverse of EmitConstant.
func ReadConstant(buf []byte, size uint) uint64 {
	var value uint64

	for i := int(size) - 1; i >= 0; i-- {
		value <<= 8
		value |= uint64(buf[i])
	}

	return value
}
