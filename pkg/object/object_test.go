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

package object_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"reflect"
	"runtime"
	"testing"

	"github.com/lassandro/golcg/pkg/expr"
	"github.com/lassandro/golcg/pkg/mc"
	"github.com/lassandro/golcg/pkg/object"
)

func sampleFile() *object.File {
	f := object.NewFile()
	f.Text = []byte{0, 0, 0, 0, 0, 0, 0, 0x39, 0, 0, 0, 0, 0, 0, 0, 0x3B}

	f.AddSymbol(object.Symbol{Name: "main", Offset: 0, Defined: true, Global: true})
	f.AddSymbol(object.Symbol{Name: ".Lhelper", Offset: 8, Defined: true})
	f.AddSymbol(object.Symbol{Name: "exit"})

	f.AddRelocation(object.Relocation{Offset: 8, Type: object.R_DUMMY_32, Symbol: "main", Addend: -4})
	f.AddRelocation(object.Relocation{Offset: 0, Type: object.R_DUMMY_PC32, Symbol: "exit"})

	f.Seal()

	return f
}

func TestRoundTrip(t *testing.T) {
	f := sampleFile()

	var buf bytes.Buffer

	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}

	if !bytes.HasPrefix(buf.Bytes(), []byte("DMYO")) {
		t.Fatalf("Magic mismatch\nwant:DMYO\nhave:%q", buf.Bytes()[:4])
	}

	have, err := object.Read(&buf)

	if err != nil {
		t.Fatal(err)
	}

	if have.BuildID != f.BuildID {
		t.Fatalf("Build id mismatch\nwant:%s\nhave:%s", f.BuildID, have.BuildID)
	}

	if !bytes.Equal(have.Text, f.Text) {
		t.Fatalf("Text mismatch\nwant:% x\nhave:% x", f.Text, have.Text)
	}

	if !reflect.DeepEqual(have.Symbols(), f.Symbols()) {
		t.Fatalf("Symbol mismatch\nwant:%v\nhave:%v", f.Symbols(), have.Symbols())
	}

	if !reflect.DeepEqual(have.Relocations(), f.Relocations()) {
		t.Fatalf("Relocation mismatch\nwant:%v\nhave:%v", f.Relocations(), have.Relocations())
	}
}

func TestOrdering(t *testing.T) {
	f := sampleFile()

	names := []string{}
	for _, symbol := range f.Symbols() {
		names = append(names, symbol.Name)
	}

	if want := []string{".Lhelper", "exit", "main"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("Symbol order mismatch\nwant:%v\nhave:%v", want, names)
	}

	relocations := f.Relocations()

	if len(relocations) != 2 || relocations[0].Offset != 0 || relocations[1].Offset != 8 {
		t.Fatalf("Relocation order mismatch\nhave:%v", relocations)
	}

	if in := f.RelocationsIn(4, 16); len(in) != 1 || in[0].Symbol != "main" {
		t.Fatalf("RelocationsIn(4, 16)\nwant:[main]\nhave:%v", in)
	}

	if at := f.SymbolsAt(8); len(at) != 1 || at[0].Name != ".Lhelper" {
		t.Fatalf("SymbolsAt(8)\nwant:[.Lhelper]\nhave:%v", at)
	}
}

func TestBuildID(t *testing.T) {
	a, b := sampleFile(), sampleFile()

	if a.BuildID != b.BuildID {
		t.Fatalf("Build id is not deterministic\nwant:%s\nhave:%s", a.BuildID, b.BuildID)
	}

	b.Text[0] = 1
	b.Seal()

	if a.BuildID == b.BuildID {
		t.Fatal("Build id ignores the text section")
	}
}

func TestBadMagic(t *testing.T) {
	data := make([]byte, 64)
	copy(data, "ELF!")

	if _, err := object.Read(bytes.NewReader(data)); !errors.Is(err, object.ErrBadMagic) {
		t.Fatalf("want:%s\nhave:%v", object.ErrBadMagic, err)
	}
}

func TestTruncated(t *testing.T) {
	var buf bytes.Buffer

	if err := sampleFile().Write(&buf); err != nil {
		t.Fatal(err)
	}

	if _, err := object.Read(bytes.NewReader(buf.Bytes()[:buf.Len()-3])); err == nil {
		t.Fatal("want:error\nhave:<nil>")
	}
}

// header writes a valid header followed by the given fields.
func header(fields ...interface{}) []byte {
	var buf bytes.Buffer

	binary.Write(&buf, binary.LittleEndian, object.Magic)
	binary.Write(&buf, binary.LittleEndian, uint16(object.Version))
	binary.Write(&buf, binary.LittleEndian, [16]byte{})

	for _, field := range fields {
		binary.Write(&buf, binary.LittleEndian, field)
	}

	return buf.Bytes()
}

func TestTruncatedSizes(t *testing.T) {
	tests := []struct {
		Name  string
		Input []byte
	}{
		{"Text size", header(uint32(0x40000000), uint32(0))},
		{"Symbol name", header(uint32(0), uint32(1), uint16(0xFFFF), []byte("main"))},
		{"Relocation name", header(uint32(0), uint32(0), uint32(1), uint64(0), uint32(2), int64(0), uint16(0xFFFF))},
	}

	for _, test := range tests {
		var before, after runtime.MemStats

		runtime.GC()
		runtime.ReadMemStats(&before)

		_, err := object.Read(bytes.NewReader(test.Input))

		runtime.ReadMemStats(&after)

		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Fatalf("%s\nwant:%s\nhave:%v", test.Name, io.ErrUnexpectedEOF, err)
		}

		if allocated := after.TotalAlloc - before.TotalAlloc; allocated > 1<<20 {
			t.Fatalf("%s\nwant:at most 1 MiB allocated\nhave:%d bytes", test.Name, allocated)
		}
	}
}

func TestAddFixup(t *testing.T) {
	table := expr.NewSymbolTable()
	ref := expr.NewSymbolRef(table.GetOrCreate("puts"))

	tests := []struct {
		Name  string
		Fixup mc.Fixup
		Want  object.Relocation
	}{
		{
			"Call",
			mc.Fixup{Offset: 0x10, Value: ref, Kind: mc.FIXUP_DUMMY_PC32, PCRel: true},
			object.Relocation{Offset: 0x10, Type: object.R_DUMMY_PC32, Symbol: "puts"},
		},
		{
			"Data addend",
			mc.Fixup{
				Offset: 0x20,
				Value:  &expr.Binary{Op: expr.BINARY_ADD, LHS: ref, RHS: expr.NewConstant(12)},
				Kind:   mc.FIXUP_DATA_64,
			},
			object.Relocation{Offset: 0x20, Type: object.R_DUMMY_64, Symbol: "puts", Addend: 12},
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			f := object.NewFile()

			if err := f.AddFixup(test.Fixup); err != nil {
				t.Fatal(err)
			}

			if have := f.Relocations(); len(have) != 1 || have[0] != test.Want {
				t.Fatalf("want:%s\nhave:%v", test.Want, have)
			}

			if symbol, ok := f.Symbol("puts"); !ok || symbol.Defined {
				t.Fatalf("want:undefined puts\nhave:%+v", symbol)
			}
		})
	}

	if err := object.NewFile().AddFixup(mc.Fixup{Value: expr.NewConstant(4)}); err == nil {
		t.Fatal("constant fixup produced a relocation")
	}
}

func TestRelocTypeFor(t *testing.T) {
	tests := []struct {
		Kind  mc.FixupKind
		PCRel bool
		Want  object.RelocType
	}{
		{mc.FIXUP_NONE, false, object.R_DUMMY_NONE},
		{mc.FIXUP_DUMMY_32, false, object.R_DUMMY_32},
		{mc.FIXUP_DUMMY_PC32, true, object.R_DUMMY_PC32},
		{mc.FIXUP_DATA_32, false, object.R_DUMMY_32},
		{mc.FIXUP_DATA_64, false, object.R_DUMMY_64},
	}

	for _, test := range tests {
		if have := object.RelocTypeFor(test.Kind, test.PCRel); have != test.Want {
			t.Fatalf("%s\nwant:%s\nhave:%s", test.Kind, test.Want, have)
		}
	}

	if object.R_DUMMY_PC32.Size() != 4 || object.R_DUMMY_64.Size() != 8 {
		t.Fatal("relocation sizes")
	}
}
