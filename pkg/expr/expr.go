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

package expr

import (
	"fmt"
)

type BinaryOp uint

const (
	BINARY_ADD BinaryOp = iota
	BINARY_SUB
)

// Expr is an operand value that is either known now or resolved later by
// the object writer.
type Expr interface {
	// Evaluate returns the value of a compile-time constant expression.
	Evaluate() (int64, bool)
	String() string
}

type Constant struct {
	Value int64
}

type SymbolRef struct {
	Symbol *Symbol
}

type Binary struct {
	Op  BinaryOp
	LHS Expr
	RHS Expr
}

func NewConstant(value int64) *Constant {
	return &Constant{value}
}

func NewSymbolRef(symbol *Symbol) *SymbolRef {
	return &SymbolRef{symbol}
}

func (c *Constant) Evaluate() (int64, bool) {
	return c.Value, true
}

func (c *Constant) String() string {
	return fmt.Sprintf("%d", c.Value)
}

func (ref *SymbolRef) Evaluate() (int64, bool) {
	return 0, false
}

func (ref *SymbolRef) String() string {
	return ref.Symbol.Name
}

func (b *Binary) Evaluate() (int64, bool) {
	lhs, ok := b.LHS.Evaluate()
	if !ok {
		return 0, false
	}

	rhs, ok := b.RHS.Evaluate()
	if !ok {
		return 0, false
	}

	if b.Op == BINARY_SUB {
		return lhs - rhs, true
	}

	return lhs + rhs, true
}

func (b *Binary) String() string {
	if b.Op == BINARY_SUB {
		return b.LHS.String() + "-" + b.RHS.String()
	}

	return b.LHS.String() + "+" + b.RHS.String()
}

// SymbolAndAddend splits a relocatable expression into the symbol it
// refers to and a constant addend. Expressions that are constant, or that
// refer to more than one symbol, report ok=false.
func SymbolAndAddend(e Expr) (symbol *Symbol, addend int64, ok bool) {
	switch e := e.(type) {
	case *SymbolRef:
		return e.Symbol, 0, true
	case *Binary:
		symbol, addend, ok = SymbolAndAddend(e.LHS)
		if !ok {
			return nil, 0, false
		}

		value, isConst := e.RHS.Evaluate()
		if !isConst {
			return nil, 0, false
		}

		if e.Op == BINARY_SUB {
			value = -value
		}

		return symbol, addend + value, true
	}

	return nil, 0, false
}
