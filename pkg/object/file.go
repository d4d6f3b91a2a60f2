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

package object

import (
	"fmt"

	"github.com/google/btree"
	"github.com/google/uuid"

	"github.com/lassandro/golcg/pkg/expr"
	"github.com/lassandro/golcg/pkg/mc"
)

type Symbol struct {
	Name    string
	Offset  uint64
	Defined bool
	Global  bool
}

type Relocation struct {
	Offset uint64
	Type   RelocType
	Symbol string
	Addend int64
}

func (rel Relocation) String() string {
	if rel.Addend == 0 {
		return fmt.Sprintf("%08x %s %s", rel.Offset, rel.Type, rel.Symbol)
	}

	return fmt.Sprintf(
		"%08x %s %s%+d", rel.Offset, rel.Type, rel.Symbol, rel.Addend,
	)
}

// File is one relocatable object: a text section plus symbols ordered by
// name and relocations ordered by offset.
type File struct {
	BuildID uuid.UUID
	Text    []byte

	symbols     *btree.BTreeG[Symbol]
	relocations *btree.BTreeG[Relocation]
}

func NewFile() *File {
	return &File{
		symbols: btree.NewG[Symbol](8, func(a, b Symbol) bool {
			return a.Name < b.Name
		}),
		relocations: btree.NewG[Relocation](8, func(a, b Relocation) bool {
			return a.Offset < b.Offset
		}),
	}
}

// AddSymbol inserts or replaces the symbol with the same name.
func (f *File) AddSymbol(symbol Symbol) {
	f.symbols.ReplaceOrInsert(symbol)
}

func (f *File) Symbol(name string) (Symbol, bool) {
	return f.symbols.Get(Symbol{Name: name})
}

func (f *File) Symbols() []Symbol {
	result := make([]Symbol, 0, f.symbols.Len())

	f.symbols.Ascend(func(symbol Symbol) bool {
		result = append(result, symbol)
		return true
	})

	return result
}

// SymbolsAt lists the defined symbols placed at offset.
func (f *File) SymbolsAt(offset uint64) []Symbol {
	var result []Symbol

	f.symbols.Ascend(func(symbol Symbol) bool {
		if symbol.Defined && symbol.Offset == offset {
			result = append(result, symbol)
		}
		return true
	})

	return result
}

func (f *File) AddRelocation(rel Relocation) {
	f.relocations.ReplaceOrInsert(rel)
}

func (f *File) Relocations() []Relocation {
	return f.RelocationsIn(0, ^uint64(0))
}

// RelocationsIn returns the relocations with start <= offset < end.
func (f *File) RelocationsIn(start, end uint64) []Relocation {
	var result []Relocation

	f.relocations.AscendGreaterOrEqual(
		Relocation{Offset: start},
		func(rel Relocation) bool {
			if rel.Offset >= end {
				return false
			}
			result = append(result, rel)
			return true
		},
	)

	return result
}

// AddFixup records a fixup that could not be resolved locally. The fixup
// value must be a symbol plus a constant addend.
func (f *File) AddFixup(fixup mc.Fixup) error {
	symbol, addend, ok := expr.SymbolAndAddend(fixup.Value)

	if !ok {
		return fmt.Errorf(
			"%s: expression '%s' is not relocatable", fixup.Loc, fixup.Value,
		)
	}

	f.AddRelocation(Relocation{
		Offset: fixup.Offset,
		Type:   RelocTypeFor(fixup.Kind, fixup.PCRel),
		Symbol: symbol.Name,
		Addend: addend,
	})

	if _, exists := f.Symbol(symbol.Name); !exists {
		f.AddSymbol(Symbol{Name: symbol.Name})
	}

	return nil
}

// ImportSymbols copies every symbol of table into the file.
func (f *File) ImportSymbols(table *expr.SymbolTable) {
	table.Each(func(symbol *expr.Symbol) {
		offset, defined := symbol.Offset()

		f.AddSymbol(Symbol{
			Name:    symbol.Name,
			Offset:  offset,
			Defined: defined,
			Global:  symbol.Binding() == expr.BINDING_GLOBAL,
		})
	})
}

var buildIDSpace = uuid.MustParse("8c0f6a2e-4d0b-4f3c-9a57-3f3b3c1d5e11")

// Seal derives the build id from the section contents, symbols and
// relocations, so identical input always yields identical output.
func (f *File) Seal() {
	data := append([]byte(nil), f.Text...)

	for _, symbol := range f.Symbols() {
		data = append(data, fmt.Sprintf(
			"%s:%d:%t:%t;", symbol.Name, symbol.Offset, symbol.Defined, symbol.Global,
		)...)
	}

	for _, rel := range f.Relocations() {
		data = append(data, rel.String()...)
	}

	f.BuildID = uuid.NewSHA1(buildIDSpace, data)
}
