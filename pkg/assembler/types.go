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
	"github.com/lassandro/golcg/pkg/diag"
	"github.com/lassandro/golcg/pkg/expr"
	"github.com/lassandro/golcg/pkg/target"
)

type TokenType uint
type DirectiveType uint

func (tokenType TokenType) String() string {
	switch tokenType {
	case TOKEN_IDENT:
		return "Identifier"
	case TOKEN_DIRECTIVE:
		return "Directive"
	case TOKEN_INTEGER:
		return "Integer"
	case TOKEN_COMMA:
		return "','"
	case TOKEN_LBRAC:
		return "'['"
	case TOKEN_RBRAC:
		return "']'"
	case TOKEN_PLUS:
		return "'+'"
	case TOKEN_MINUS:
		return "'-'"
	case TOKEN_DOLLAR:
		return "'$'"
	case TOKEN_COLON:
		return "':'"
	case TOKEN_EOS:
		return "end of statement"
	}

	return "<invalid>"
}

type Token struct {
	Type     TokenType
	Position diag.Cursor
	Value    string
}

// SymTable is the debug side table of an assembled object: source byte
// offset of each instruction and the labels defined at each address.
type SymTable struct {
	Source  string
	Symbols map[uint64]int64
	Labels  map[uint64]string
}

func NewSymTable(source string) *SymTable {
	return &SymTable{
		Source:  source,
		Symbols: make(map[uint64]int64),
		Labels:  make(map[uint64]string),
	}
}

type Options struct {
	Target *target.Target
	// Shared with other translation units when set.
	Symbols *expr.SymbolTable
	// Filled in when set.
	SymTable *SymTable
}
