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

package main

import (
	"bytes"
	"encoding/gob"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/go-units"

	"github.com/lassandro/golcg/pkg/assembler"
	"github.com/lassandro/golcg/pkg/listing"
	"github.com/lassandro/golcg/pkg/object"
	"github.com/lassandro/golcg/pkg/target"
	"github.com/lassandro/golcg/pkg/term"
)

var helpvar bool
var headervar bool
var hexvar bool
var symbolsvar bool
var relocsvar bool
var sourcevar bool
var featuresvar string

const usage = "golcg-objdump [-h] [-x] [-t] [-r] [-source] [-features +a,-b] objfile"

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(&headervar, "h", false, "Prints the object header")
	flag.BoolVar(&hexvar, "x", false, "Prints a hex dump of the text section")
	flag.BoolVar(&symbolsvar, "t", false, "Prints the symbol table")
	flag.BoolVar(&relocsvar, "r", false, "Prints the relocations")
	flag.BoolVar(
		&sourcevar, "source", false,
		"Prints the source lines recorded in the '.dmydb' debug table next "+
			"to the object",
	)
	flag.StringVar(
		&featuresvar, "features", "",
		"Comma separated target features to enable (+name) or disable (-name)",
	)
	flag.Parse()
}

func loadSymTable(objfile string) (*assembler.SymTable, error) {
	filename := strings.TrimSuffix(objfile, filepath.Ext(objfile)) + ".dmydb"

	file, err := os.Open(filename)

	if err != nil {
		return nil, err
	}

	defer file.Close()

	var symtable assembler.SymTable

	if err := gob.NewDecoder(file).Decode(&symtable); err != nil {
		return nil, err
	}

	return &symtable, nil
}

func golcg_objdump() int {
	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	args := flag.Args()

	if len(args) != 1 {
		log.Println(usage)
		return 1
	}

	features, err := target.ParseFeatures(featuresvar)

	if err != nil {
		log.Println(err)
		return 1
	}

	log.SetPrefix(term.Style(term.IsTerminal(os.Stderr), "1", filepath.Base(args[0])+":"))

	file, err := os.Open(args[0])

	if err != nil {
		log.Println(err)
		return 1
	}

	obj, err := object.Read(file)
	file.Close()

	if err != nil {
		log.Println(err)
		return 1
	}

	l := &listing.Listing{
		Target: target.New(features),
		Object: obj,
		Out:    os.Stdout,
		Color:  term.IsTerminal(os.Stdout),
	}

	if headervar {
		fmt.Printf("build id:    %s\n", obj.BuildID)
		fmt.Printf("text:        %s\n", units.HumanSize(float64(len(obj.Text))))
		fmt.Printf("symbols:     %d\n", len(obj.Symbols()))
		fmt.Printf("relocations: %d\n\n", len(obj.Relocations()))
	}

	if symbolsvar {
		for _, symbol := range obj.Symbols() {
			binding, section := "l", "*UND*"

			if symbol.Global {
				binding = "g"
			}

			if symbol.Defined {
				section = ".text"
			}

			fmt.Printf("%08x %s %-6s %s\n", symbol.Offset, binding, section, symbol.Name)
		}
		fmt.Println()
	}

	if relocsvar {
		for _, rel := range obj.Relocations() {
			fmt.Println(rel)
		}
		fmt.Println()
	}

	if hexvar {
		l.PrintMem(0, uint64(len(obj.Text)))
		return 0
	}

	if sourcevar {
		symtable, err := loadSymTable(args[0])

		if err != nil {
			log.Println("Error reading symbol table")
			log.Println(err)
			return 1
		}

		data, err := os.ReadFile(symtable.Source)

		if err != nil {
			log.Println(err)
			return 1
		}

		l.Source = bytes.NewReader(data)
		l.SymTable = symtable

		lines := bytes.Count(data, []byte("\n")) + 1

		if err := l.PrintSource(firstInstruction(symtable), lines); err != nil {
			log.Println(err)
			return 1
		}

		return 0
	}

	l.PrintDisassembly()

	return 0
}

func firstInstruction(symtable *assembler.SymTable) uint64 {
	first := ^uint64(0)

	for addr := range symtable.Symbols {
		if addr < first {
			first = addr
		}
	}

	return first
}

func main() {
	os.Exit(golcg_objdump())
}
