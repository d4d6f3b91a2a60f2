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
	"sync"
)

type Binding uint

const (
	BINDING_LOCAL Binding = iota
	BINDING_GLOBAL
)

type Symbol struct {
	Name string

	mu      sync.Mutex
	defined bool
	offset  uint64
	binding Binding
}

// Define places the symbol at offset in the text section. A symbol can be
// defined once; later calls report false.
func (s *Symbol) Define(offset uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.defined {
		return false
	}

	s.defined = true
	s.offset = offset
	return true
}

func (s *Symbol) Offset() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.offset, s.defined
}

func (s *Symbol) SetBinding(binding Binding) {
	s.mu.Lock()
	s.binding = binding
	s.mu.Unlock()
}

func (s *Symbol) Binding() Binding {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.binding
}

// SymbolTable is shared by every function of a module. Lookups take a read
// lock; creation is idempotent so concurrent requests for one name always
// observe the same *Symbol.
type SymbolTable struct {
	mu      sync.RWMutex
	symbols map[string]*Symbol
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{symbols: make(map[string]*Symbol)}
}

func (table *SymbolTable) Lookup(name string) (*Symbol, bool) {
	table.mu.RLock()
	defer table.mu.RUnlock()

	symbol, ok := table.symbols[name]
	return symbol, ok
}

func (table *SymbolTable) GetOrCreate(name string) *Symbol {
	if symbol, ok := table.Lookup(name); ok {
		return symbol
	}

	table.mu.Lock()
	defer table.mu.Unlock()

	if symbol, ok := table.symbols[name]; ok {
		return symbol
	}

	symbol := &Symbol{Name: name}
	table.symbols[name] = symbol
	return symbol
}

func (table *SymbolTable) Len() int {
	table.mu.RLock()
	defer table.mu.RUnlock()

	return len(table.symbols)
}

// Each calls fn for every symbol, in no particular order.
func (table *SymbolTable) Each(fn func(*Symbol)) {
	table.mu.RLock()
	symbols := make([]*Symbol, 0, len(table.symbols))
	for _, symbol := range table.symbols {
		symbols = append(symbols, symbol)
	}
	table.mu.RUnlock()

	for _, symbol := range symbols {
		fn(symbol)
	}
}
