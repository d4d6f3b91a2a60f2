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

package assembler

import (
	"strings"
	"unicode"

	"github.com/lassandro/golcg/pkg/diag"
)

var punctuation = map[rune]TokenType{
	',': TOKEN_COMMA,
	'[': TOKEN_LBRAC,
	']': TOKEN_RBRAC,
	'+': TOKEN_PLUS,
	'-': TOKEN_MINUS,
	'$': TOKEN_DOLLAR,
	':': TOKEN_COLON,
}

// LexLine splits one source line into tokens. The cursor gives the line
// number and the byte offset of the line start. The token list always ends
// with TOKEN_EOS.
func LexLine(line string, cursor diag.Cursor) ([]Token, []error) {
	var builder strings.Builder
	var errs []error

	var tokens = make([]Token, 0, 8)
	var tokenStart int = 0
	var tokenType TokenType = TOKEN_NONE

	cursor.Size = int64(len(line))

	at := func(column int, size int) diag.Cursor {
		return diag.Cursor{
			Line:     cursor.Line,
			Column:   column,
			Byte:     cursor.LineByte + int64(column-1),
			Size:     int64(size),
			LineByte: cursor.LineByte,
		}
	}

	flush := func() {
		if tokenType != TOKEN_NONE && builder.Len() > 0 {
			tokens = append(tokens, Token{
				Type:     tokenType,
				Position: at(tokenStart, builder.Len()),
				Value:    builder.String(),
			})
		}

		builder.Reset()
		tokenType = TOKEN_NONE
	}

loop:
	for index, char := range line {
		column := index + 1

		switch {
		// Whitespace
		case unicode.IsSpace(char):
			flush()

		// Comments
		case char == ';' || char == '#':
			break loop

		// Single character tokens
		case punctuation[char] != TOKEN_NONE:
			flush()
			tokens = append(tokens, Token{
				Type:     punctuation[char],
				Position: at(column, 1),
				Value:    string(char),
			})

		// Directives, or a dot inside a mnemonic such as ld.w
		case char == '.':
			switch tokenType {
			case TOKEN_NONE:
				tokenType = TOKEN_DIRECTIVE
				tokenStart = column
			case TOKEN_INTEGER:
				errs = append(errs, &diag.UnexpectedCharacterError{
					Position: at(column, 1), Received: char,
				})
			}
			builder.WriteRune(char)

		// Numeric literal, or a digit inside an identifier
		case unicode.IsDigit(char):
			if tokenType == TOKEN_NONE {
				tokenType = TOKEN_INTEGER
				tokenStart = column
			}
			builder.WriteRune(char)

		// Identifier, or the body of a hex literal
		case char == '_' || (unicode.IsLetter(char) && char <= unicode.MaxASCII):
			if tokenType == TOKEN_NONE {
				tokenType = TOKEN_IDENT
				tokenStart = column
			}
			builder.WriteRune(char)

		default:
			flush()
			errs = append(errs, &diag.UnexpectedCharacterError{
				Position: at(column, 1), Received: char,
			})
		}
	}

	flush()

	tokens = append(tokens, Token{
		Type:     TOKEN_EOS,
		Position: at(len(line)+1, 0),
	})

	return tokens, errs
}
