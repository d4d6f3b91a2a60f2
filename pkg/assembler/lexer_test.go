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

package assembler_test

import (
	"reflect"
	"testing"

	"github.com/lassandro/golcg/pkg/assembler"
	"github.com/lassandro/golcg/pkg/diag"
)

func TestLexLine(t *testing.T) {
	tests := []struct {
		Name   string
		Input  string
		Types  []assembler.TokenType
		Values []string
	}{
		{
			Name:  "Memory",
			Input: "loop: ld.w r1, [r2, -4] ; reload",
			Types: []assembler.TokenType{
				assembler.TOKEN_IDENT,
				assembler.TOKEN_COLON,
				assembler.TOKEN_IDENT,
				assembler.TOKEN_IDENT,
				assembler.TOKEN_COMMA,
				assembler.TOKEN_LBRAC,
				assembler.TOKEN_IDENT,
				assembler.TOKEN_COMMA,
				assembler.TOKEN_MINUS,
				assembler.TOKEN_INTEGER,
				assembler.TOKEN_RBRAC,
				assembler.TOKEN_EOS,
			},
			Values: []string{"loop", ":", "ld.w", "r1", ",", "[", "r2", ",", "-", "4", "]", ""},
		},
		{
			Name:  "Directive",
			Input: ".word $0x10",
			Types: []assembler.TokenType{
				assembler.TOKEN_DIRECTIVE,
				assembler.TOKEN_DOLLAR,
				assembler.TOKEN_INTEGER,
				assembler.TOKEN_EOS,
			},
			Values: []string{".word", "$", "0x10", ""},
		},
		{
			Name:  "Local label",
			Input: ".LBBmain_1:\tjmp .LBBmain_0+8",
			Types: []assembler.TokenType{
				assembler.TOKEN_DIRECTIVE,
				assembler.TOKEN_COLON,
				assembler.TOKEN_IDENT,
				assembler.TOKEN_DIRECTIVE,
				assembler.TOKEN_PLUS,
				assembler.TOKEN_INTEGER,
				assembler.TOKEN_EOS,
			},
			Values: []string{".LBBmain_1", ":", "jmp", ".LBBmain_0", "+", "8", ""},
		},
		{
			Name:   "Comment only",
			Input:  "   # nothing here",
			Types:  []assembler.TokenType{assembler.TOKEN_EOS},
			Values: []string{""},
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			tokens, errs := assembler.LexLine(test.Input, diag.Cursor{Line: 1})

			if len(errs) != 0 {
				t.Fatalf("Unexpected errors\nwant:[]\nhave:%v", errs)
			}

			types := make([]assembler.TokenType, 0, len(tokens))
			values := make([]string, 0, len(tokens))

			for _, token := range tokens {
				types = append(types, token.Type)
				values = append(values, token.Value)
			}

			if !reflect.DeepEqual(types, test.Types) {
				t.Fatalf("Token type mismatch\nwant:%v\nhave:%v", test.Types, types)
			}

			if !reflect.DeepEqual(values, test.Values) {
				t.Fatalf("Token value mismatch\nwant:%q\nhave:%q", test.Values, values)
			}
		})
	}
}

func TestLexPosition(t *testing.T) {
	cursor := diag.Cursor{Line: 3, LineByte: 40}

	tokens, _ := assembler.LexLine("  add r1, r2, r3", cursor)

	have := tokens[1].Position
	want := diag.Cursor{Line: 3, Column: 7, Byte: 46, Size: 2, LineByte: 40}

	if have != want {
		t.Fatalf("Token position mismatch\nwant:%+v\nhave:%+v", want, have)
	}
}

func TestLexUnexpectedCharacter(t *testing.T) {
	tokens, errs := assembler.LexLine("add r1, r2 @ r3", diag.Cursor{Line: 1})

	if len(errs) != 1 {
		t.Fatalf("want:1 error\nhave:%d", len(errs))
	}

	err, ok := errs[0].(*diag.UnexpectedCharacterError)

	if !ok {
		t.Fatalf("want:*diag.UnexpectedCharacterError\nhave:%T", errs[0])
	}

	if err.Received != '@' || err.GetPosition().Column != 12 {
		t.Fatalf("want:'@' at 12\nhave:%q at %d", err.Received, err.GetPosition().Column)
	}

	if tokens[len(tokens)-1].Type != assembler.TOKEN_EOS {
		t.Fatalf("token list is not terminated")
	}
}
