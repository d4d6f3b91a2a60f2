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
	"bufio"
	"encoding/gob"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/go-units"

	"github.com/lassandro/golcg/pkg/assembler"
	"github.com/lassandro/golcg/pkg/diag"
	"github.com/lassandro/golcg/pkg/listing"
	"github.com/lassandro/golcg/pkg/target"
	"github.com/lassandro/golcg/pkg/term"
	"github.com/lassandro/golcg/pkg/watch"
)

var helpvar bool
var debugvar bool
var watchvar bool
var interactivevar bool
var listingvar bool
var outvar string
var featuresvar string

const usage = "golcg-asm [-debug] [-S] [-watch] [-features +a,-b] [-o outfile] filename\n" +
	"golcg-asm -i"

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(
		&debugvar, "debug", false,
		"Specifies whether to generate debugging information as a symbol "+
			"table. The table will use the output filename with extension "+
			"'.dmydb'",
	)
	flag.BoolVar(
		&watchvar, "watch", false,
		"Reassembles the input file every time it changes",
	)
	flag.BoolVar(
		&interactivevar, "i", false,
		"Starts an interactive prompt that encodes one instruction per line",
	)
	flag.BoolVar(
		&listingvar, "S", false,
		"Prints a disassembly listing of the output to stdout",
	)
	flag.StringVar(
		&outvar, "o", "",
		"Specifies a precise name for the output file, "+
			"overriding the default means of determining it",
	)
	flag.StringVar(
		&featuresvar, "features", "",
		"Comma separated target features to enable (+name) or disable (-name)",
	)
	flag.Parse()
}

// printErrors underlines the offending token of every diagnostic when the
// source can be re-read.
func printErrors(errs []error, input io.ReadSeeker) {
	for _, err := range errs {
		tokenErr, ok := err.(diag.TokenError)

		if !ok || input == nil || input == os.Stdin {
			log.Println(err)
			continue
		}

		cursor := tokenErr.GetPosition()

		if _, err := input.Seek(cursor.LineByte, io.SeekStart); err != nil {
			panic(err)
		}

		line, _ := bufio.NewReader(input).ReadString('\n')
		line = strings.TrimRight(line, "\r\n")

		size := int(cursor.Size)
		if size < 1 {
			size = 1
		}

		underlinefmt := fmt.Sprintf(
			"%% %ds%s",
			int(cursor.Byte-cursor.LineByte)+1,
			strings.Repeat("~", size-1),
		)

		log.Printf(
			"%s\n%s\n%s",
			err,
			line,
			red(fmt.Sprintf(underlinefmt, "^")),
		)
	}
}

// assemble reads input, writes the object to outfile and returns whether
// it succeeded.
func assemble(t *target.Target, input io.ReadSeeker, infile string, outfile string) bool {
	var symtarget *assembler.SymTable

	if debugvar {
		source := ""

		if infile != "" {
			var err error
			if source, err = filepath.Abs(infile); err != nil {
				log.Println(err)
				source = ""
			}
		}

		symtarget = assembler.NewSymTable(source)
	}

	file, errs := assembler.AssembleSource(
		input, &assembler.Options{Target: t, SymTable: symtarget},
	)

	if len(errs) > 0 {
		printErrors(errs, input)
		return false
	}

	out, err := os.Create(outfile)

	if err != nil {
		log.Println("Error writing output file")
		log.Println(err)
		return false
	}

	if err := file.Write(out); err != nil {
		out.Close()
		log.Println("Error writing output file")
		log.Println(err)
		return false
	}

	if err := out.Close(); err != nil {
		log.Println(err)
		return false
	}

	if watchvar {
		log.Printf(
			"wrote %s: %s text, %d symbols, %d relocations",
			outfile,
			units.HumanSize(float64(len(file.Text))),
			len(file.Symbols()),
			len(file.Relocations()),
		)
	}

	if listingvar {
		l := listing.Listing{Target: t, Object: file, Out: os.Stdout, Color: term.IsTerminal(os.Stdout)}
		l.PrintDisassembly()
	}

	if debugvar {
		filename := filepath.Join(
			filepath.Dir(outfile),
			strings.TrimSuffix(filepath.Base(outfile), filepath.Ext(outfile))+".dmydb",
		)

		symfile, err := os.Create(filename)

		if err != nil {
			log.Println("Error creating symbol table")
			log.Println(err)
			return false
		}

		defer symfile.Close()

		if err := gob.NewEncoder(symfile).Encode(symtarget); err != nil {
			log.Println("Error writing symbol table")
			log.Println(err)
			return false
		}
	}

	return true
}

func golcg_asm() int {
	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	features, err := target.ParseFeatures(featuresvar)

	if err != nil {
		log.Println(err)
		return 1
	}

	t := target.New(features)

	if interactivevar {
		if err := repl(t); err != nil {
			log.Println(err)
			return 1
		}

		return 0
	}

	args := flag.Args()

	if stat, _ := os.Stdin.Stat(); stat.Mode()&os.ModeCharDevice == 0 && len(args) == 0 {
		log.SetPrefix(bold("<stdin>:"))

		if outvar == "" {
			outvar = "out.o"
		}

		if !assemble(t, os.Stdin, "", outvar) {
			return 1
		}

		return 0
	}

	if len(args) != 1 {
		log.Println(usage)
		return 1
	}

	infile := args[0]
	filename := filepath.Base(infile)

	if stat, err := os.Stat(infile); err != nil {
		log.Println(err)
		return 1
	} else if stat.IsDir() {
		log.Printf("%s is not a valid assembly file", filename)
		return 1
	}

	log.SetPrefix(bold(filename + ":"))

	if outvar == "" {
		outvar = strings.TrimSuffix(filename, filepath.Ext(filename)) + ".o"
	}

	run := func() bool {
		file, err := os.Open(infile)

		if err != nil {
			log.Println(err)
			return false
		}

		defer file.Close()

		return assemble(t, file, infile, outvar)
	}

	if watchvar {
		if err := watch.Run(infile, run, log.Default(), nil); err != nil {
			log.Println(err)
			return 1
		}

		return 0
	}

	if !run() {
		return 1
	}

	return 0
}

func main() {
	os.Exit(golcg_asm())
}
