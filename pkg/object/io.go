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
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Container layout, all integers little-endian:
//
//	header   | magic "DMYO" | version u16 | build id [16]byte |
//	text     | size u32 | bytes |
//	symbols  | count u32 | (name, offset u64, flags u8)* |
//	relocs   | count u32 | (offset u64, type u32, addend i64, name)* |
//
// Names are a u16 length followed by the bytes.
var Magic = [4]byte{'D', 'M', 'Y', 'O'}

const Version = 1

const (
	SYMBOL_DEFINED uint8 = 1 << iota
	SYMBOL_GLOBAL
)

type header struct {
	Magic   [4]byte
	Version uint16
	BuildID [16]byte
}

var ErrBadMagic = errors.New("not a DMYO object file")

type writer struct {
	out *bufio.Writer
	err error
}

func (w *writer) write(data interface{}) {
	if w.err == nil {
		w.err = binary.Write(w.out, binary.LittleEndian, data)
	}
}

func (w *writer) name(name string) {
	if len(name) > 0xFFFF {
		w.err = fmt.Errorf("symbol name too long: %d bytes", len(name))
		return
	}

	w.write(uint16(len(name)))
	w.write([]byte(name))
}

func (f *File) Write(out io.Writer) error {
	w := &writer{out: bufio.NewWriter(out)}

	w.write(header{Magic, Version, f.BuildID})

	w.write(uint32(len(f.Text)))
	w.write(f.Text)

	symbols := f.Symbols()
	w.write(uint32(len(symbols)))

	for _, symbol := range symbols {
		var flags uint8

		if symbol.Defined {
			flags |= SYMBOL_DEFINED
		}

		if symbol.Global {
			flags |= SYMBOL_GLOBAL
		}

		w.name(symbol.Name)
		w.write(symbol.Offset)
		w.write(flags)
	}

	relocations := f.Relocations()
	w.write(uint32(len(relocations)))

	for _, rel := range relocations {
		w.write(rel.Offset)
		w.write(uint32(rel.Type))
		w.write(rel.Addend)
		w.name(rel.Symbol)
	}

	if w.err != nil {
		return w.err
	}

	return w.out.Flush()
}

type reader struct {
	in  *bufio.Reader
	err error
}

func (r *reader) read(data interface{}) {
	if r.err == nil {
		r.err = binary.Read(r.in, binary.LittleEndian, data)
	}
}

// bytes reads size bytes. The buffer grows with the data actually present,
// so a corrupt size fails on the short read instead of allocating it up
// front.
func (r *reader) bytes(size uint64) []byte {
	if r.err != nil {
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(r.in, int64(size)))

	if err == nil && uint64(len(data)) != size {
		err = io.ErrUnexpectedEOF
	}

	r.err = err
	return data
}

func (r *reader) name() string {
	var size uint16
	r.read(&size)

	return string(r.bytes(uint64(size)))
}

func Read(in io.Reader) (*File, error) {
	r := &reader{in: bufio.NewReader(in)}
	f := NewFile()

	var hdr header
	r.read(&hdr)

	if r.err != nil {
		return nil, r.err
	}

	if hdr.Magic != Magic {
		return nil, ErrBadMagic
	}

	if hdr.Version != Version {
		return nil, fmt.Errorf("unsupported object version %d", hdr.Version)
	}

	f.BuildID = hdr.BuildID

	var size uint32
	r.read(&size)

	f.Text = r.bytes(uint64(size))

	var count uint32
	r.read(&count)

	for i := uint32(0); i < count && r.err == nil; i++ {
		var symbol Symbol
		var flags uint8

		symbol.Name = r.name()
		r.read(&symbol.Offset)
		r.read(&flags)

		symbol.Defined = flags&SYMBOL_DEFINED != 0
		symbol.Global = flags&SYMBOL_GLOBAL != 0

		f.AddSymbol(symbol)
	}

	r.read(&count)

	for i := uint32(0); i < count && r.err == nil; i++ {
		var rel Relocation
		var relType uint32

		r.read(&rel.Offset)
		r.read(&relType)
		r.read(&rel.Addend)
		rel.Symbol = r.name()
		rel.Type = RelocType(relType)

		f.AddRelocation(rel)
	}

	if r.err != nil {
		return nil, fmt.Errorf("truncated object file: %w", r.err)
	}

	return f, nil
}
