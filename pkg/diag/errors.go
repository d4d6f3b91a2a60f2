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

package diag

import (
	"fmt"
	"strings"
)

type MatchKind uint

const (
	MATCH_MNEMONIC_FAIL MatchKind = iota
	MATCH_INVALID_OPERAND
	MATCH_TOO_FEW_OPERANDS
	MATCH_MISSING_FEATURE
)

// TokenError is implemented by every diagnostic that points into the
// assembly source.
type TokenError interface {
	GetPosition() Cursor
}

type UnexpectedCharacterError struct {
	Position Cursor
	Received rune
}

func (err *UnexpectedCharacterError) GetPosition() Cursor {
	return err.Position
}

func (err *UnexpectedCharacterError) Error() string {
	return fmt.Sprintf(
		"%s: Unexpected character %q",
		err.Position,
		err.Received,
	)
}

type InvalidLiteralError struct {
	Position Cursor
	Received string
}

func (err *InvalidLiteralError) GetPosition() Cursor {
	return err.Position
}

func (err *InvalidLiteralError) Error() string {
	return fmt.Sprintf(
		"%s: Invalid numeric literal '%s'",
		err.Position,
		err.Received,
	)
}

// ParseError reports a malformed token sequence. The assembler recovers by
// skipping the rest of the line.
type ParseError struct {
	Position Cursor
	Message  string
}

func (err *ParseError) GetPosition() Cursor {
	return err.Position
}

func (err *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", err.Position, err.Message)
}

type MatchError struct {
	Position Cursor
	Kind     MatchKind
	Mnemonic string
	// Index of the offending operand, counting the mnemonic as operand 0.
	// -1 when the error applies to the whole instruction.
	Index int
	// Feature names the disabled target feature for MATCH_MISSING_FEATURE.
	Feature string
	// Operand classes accepted at Index, and the kind that was found.
	Want []string
	Have string
}

func (err *MatchError) GetPosition() Cursor {
	return err.Position
}

func (err *MatchError) Error() string {
	switch err.Kind {
	case MATCH_MNEMONIC_FAIL:
		return fmt.Sprintf(
			"%s: unrecognized instruction mnemonic '%s'",
			err.Position,
			err.Mnemonic,
		)
	case MATCH_TOO_FEW_OPERANDS:
		return fmt.Sprintf(
			"%s: too few operands for instruction '%s'",
			err.Position,
			err.Mnemonic,
		)
	case MATCH_MISSING_FEATURE:
		return fmt.Sprintf(
			"%s: instruction '%s' requires feature '+%s'",
			err.Position,
			err.Mnemonic,
			err.Feature,
		)
	default:
		if len(err.Want) == 0 {
			return fmt.Sprintf(
				"%s: invalid operand for instruction '%s'",
				err.Position,
				err.Mnemonic,
			)
		}

		return fmt.Sprintf(
			"%s: invalid operand for instruction '%s'\n\twant:%s\n\thave:%s",
			err.Position,
			err.Mnemonic,
			joinAlternatives(err.Want),
			err.Have,
		)
	}
}

func joinAlternatives(items []string) string {
	switch count := len(items); {
	case count == 1:
		return items[0]
	case count == 2:
		return items[0] + " or " + items[1]
	case count > 2:
		return strings.Join(items[:count-1], ", ") + ", or " + items[count-1]
	}

	return ""
}

// EncodingError means a resolved value does not fit the field it is packed
// into. It signals a broken producer rather than bad user input.
type EncodingError struct {
	Position Cursor
	Opcode   string
	Operand  int
	Value    int64
	Bits     uint
}

func (err *EncodingError) GetPosition() Cursor {
	return err.Position
}

func (err *EncodingError) Error() string {
	limit := int64(1) << (err.Bits - 1)

	return fmt.Sprintf(
		"%s: Value exceeds %d-bit field of '%s' operand %d"+
			"\n\twant:[%d, %d]\n\thave:%d",
		err.Position,
		err.Bits,
		err.Opcode,
		err.Operand,
		-limit,
		limit-1,
		err.Value,
	)
}

type RedeclaredLabelError struct {
	Position Cursor
	Received string
}

func (err *RedeclaredLabelError) GetPosition() Cursor {
	return err.Position
}

func (err *RedeclaredLabelError) Error() string {
	return fmt.Sprintf(
		"%s: Redeclaration of label '%s'",
		err.Position,
		err.Received,
	)
}

type OversizedLabelError struct {
	Position Cursor
	Label    string
	Received int64
}

func (err *OversizedLabelError) GetPosition() Cursor {
	return err.Position
}

func (err *OversizedLabelError) Error() string {
	return fmt.Sprintf(
		"%s: Label '%s' exceeds allowed distance\n\thave:%d",
		err.Position,
		err.Label,
		err.Received,
	)
}

// InternalError marks a broken pipeline invariant. It is raised with panic,
// never returned to the user as a diagnostic.
type InternalError struct {
	Message string
}

func (err *InternalError) Error() string {
	return "internal error: " + err.Message
}

// Internalf panics with an *InternalError.
func Internalf(format string, args ...interface{}) {
	panic(&InternalError{fmt.Sprintf(format, args...)})
}
