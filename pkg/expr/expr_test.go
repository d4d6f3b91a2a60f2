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

package expr_test

import (
	"sync"
	"testing"

	"github.com/lassandro/golcg/pkg/expr"
)

func TestGetOrCreate(t *testing.T) {
	table := expr.NewSymbolTable()

	first := table.GetOrCreate("loop")
	second := table.GetOrCreate("loop")

	if first != second {
		t.Fatalf("GetOrCreate returned two handles for one name")
	}

	if have := table.Len(); have != 1 {
		t.Fatalf("want:1\nhave:%d", have)
	}
}

func TestGetOrCreateConcurrent(t *testing.T) {
	const workers = 16

	table := expr.NewSymbolTable()
	results := make([]*expr.Symbol, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = table.GetOrCreate("shared")
		}(i)
	}
	wg.Wait()

	for i, symbol := range results {
		if symbol != results[0] {
			t.Fatalf("worker %d observed a different symbol", i)
		}
	}

	if have := table.Len(); have != 1 {
		t.Fatalf("want:1\nhave:%d", have)
	}
}

func TestDefine(t *testing.T) {
	symbol := expr.NewSymbolTable().GetOrCreate("main")

	if _, defined := symbol.Offset(); defined {
		t.Fatal("fresh symbol is defined")
	}

	if !symbol.Define(16) {
		t.Fatal("first Define failed")
	}

	if symbol.Define(32) {
		t.Fatal("second Define succeeded")
	}

	if offset, _ := symbol.Offset(); offset != 16 {
		t.Fatalf("want:16\nhave:%d", offset)
	}
}

func TestSymbolAndAddend(t *testing.T) {
	table := expr.NewSymbolTable()
	sym := expr.NewSymbolRef(table.GetOrCreate("data"))
	other := expr.NewSymbolRef(table.GetOrCreate("other"))

	tests := []struct {
		Name   string
		Input  expr.Expr
		Addend int64
		Ok     bool
	}{
		{"Symbol", sym, 0, true},
		{"Plus", &expr.Binary{Op: expr.BINARY_ADD, LHS: sym, RHS: expr.NewConstant(8)}, 8, true},
		{"Minus", &expr.Binary{Op: expr.BINARY_SUB, LHS: sym, RHS: expr.NewConstant(4)}, -4, true},
		{"Constant", expr.NewConstant(12), 0, false},
		{"TwoSymbols", &expr.Binary{Op: expr.BINARY_SUB, LHS: sym, RHS: other}, 0, false},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			symbol, addend, ok := expr.SymbolAndAddend(test.Input)

			if ok != test.Ok {
				t.Fatalf("ok\nwant:%v\nhave:%v", test.Ok, ok)
			}

			if !ok {
				return
			}

			if symbol.Name != "data" || addend != test.Addend {
				t.Fatalf(
					"want:data%+d\nhave:%s%+d", test.Addend, symbol.Name, addend,
				)
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	sum := &expr.Binary{
		Op:  expr.BINARY_SUB,
		LHS: expr.NewConstant(10),
		RHS: expr.NewConstant(3),
	}

	if value, ok := sum.Evaluate(); !ok || value != 7 {
		t.Fatalf("want:7\nhave:%d (%v)", value, ok)
	}

	ref := expr.NewSymbolRef(expr.NewSymbolTable().GetOrCreate("x"))

	if _, ok := ref.Evaluate(); ok {
		t.Fatal("symbol reference evaluated to a constant")
	}
}
