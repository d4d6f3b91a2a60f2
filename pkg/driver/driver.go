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

// Package driver compiles the machine IR functions of a module into one
// object, running the per-function passes on a bounded pool of
// goroutines.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/lassandro/golcg/pkg/asmprinter"
	"github.com/lassandro/golcg/pkg/diag"
	"github.com/lassandro/golcg/pkg/expand"
	"github.com/lassandro/golcg/pkg/expr"
	"github.com/lassandro/golcg/pkg/frame"
	"github.com/lassandro/golcg/pkg/mc"
	"github.com/lassandro/golcg/pkg/mir"
	"github.com/lassandro/golcg/pkg/object"
	"github.com/lassandro/golcg/pkg/target"
)

// FunctionAlignment is the byte alignment of every function in the text
// section.
const FunctionAlignment = 8

type Function struct {
	MIR    *mir.Function
	Global bool
}

type Options struct {
	Target *target.Target
	// Upper bound on functions compiled at once. Zero means GOMAXPROCS.
	Workers int
	Logger  *log.Logger
	// Assigns physical registers. Runs after pseudo expansion and before
	// frame layout. Functions must already use physical registers when it
	// is nil.
	RegAlloc func(*mir.Function) error
}

// FunctionError wraps the error that dropped one function from the
// object.
type FunctionError struct {
	Function string
	Err      error
}

func (err *FunctionError) Error() string {
	return fmt.Sprintf("%s: %s", err.Function, err.Err)
}

func (err *FunctionError) Unwrap() error {
	return err.Err
}

// CompileFunction runs the per-function pipeline: pseudo expansion, PHI
// elimination, register allocation, frame layout and elimination,
// prologue and epilogue, then encoding.
func CompileFunction(
	t *target.Target,
	symbols *expr.SymbolTable,
	fn *mir.Function,
	regalloc func(*mir.Function) error,
) (*asmprinter.Section, error) {
	expand.ExpandPseudos(fn)
	expand.EliminatePHIs(t, fn)

	if regalloc != nil {
		if err := regalloc(fn); err != nil {
			return nil, err
		}
	}

	if err := frame.Layout(fn); err != nil {
		return nil, err
	}

	if err := frame.EliminateFrameIndices(fn); err != nil {
		return nil, err
	}

	frame.EmitPrologue(fn)
	frame.EmitEpilogue(fn)

	return asmprinter.New(t, symbols).EmitFunction(fn)
}

// Compile builds one object from functions. A function that fails is
// logged and left out; the others are still emitted. Function order in the
// object follows the input order whatever order they finish in.
func Compile(ctx context.Context, functions []Function, options Options) (*object.File, []error) {
	t := options.Target
	if t == nil {
		t = target.Default()
	}

	logger := options.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	workers := options.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	symbols := expr.NewSymbolTable()
	sections := make([]*asmprinter.Section, len(functions))
	failures := make([]error, len(functions))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	for i, function := range functions {
		i, function := i, function

		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			section, err := CompileFunction(t, symbols, function.MIR, options.RegAlloc)

			if err != nil {
				logFailure(logger, function.MIR.Name, err)
				failures[i] = &FunctionError{function.MIR.Name, err}
				return nil
			}

			sections[i] = section
			return nil
		})
	}

	var errs []error

	if err := group.Wait(); err != nil {
		return nil, []error{err}
	}

	for _, err := range failures {
		if err != nil {
			errs = append(errs, err)
		}
	}

	file, linkErrs := link(symbols, functions, sections)

	return file, append(errs, linkErrs...)
}

func logFailure(logger *log.Logger, name string, err error) {
	var encodingErr *diag.EncodingError

	if errors.As(err, &encodingErr) {
		logger.Printf(
			"%s: dropping function: opcode '%s' operand %d value %d does not fit %d bits",
			name, encodingErr.Opcode, encodingErr.Operand, encodingErr.Value, encodingErr.Bits,
		)
		return
	}

	logger.Printf("%s: dropping function: %s", name, err)
}

// link places the sections one after another, defines the function
// symbols and resolves the calls that stay inside the object.
func link(
	symbols *expr.SymbolTable,
	functions []Function,
	sections []*asmprinter.Section,
) (*object.File, []error) {
	var text []byte
	var fixups []mc.Fixup
	var errs []error

	for i, section := range sections {
		if section == nil {
			continue
		}

		for len(text)%FunctionAlignment != 0 {
			text = append(text, 0)
		}

		base := uint64(len(text))
		symbol := symbols.GetOrCreate(section.Name)

		if !symbol.Define(base) {
			errs = append(errs, fmt.Errorf("%s: function defined twice", section.Name))
			continue
		}

		if functions[i].Global {
			symbol.SetBinding(expr.BINDING_GLOBAL)
		}

		for _, fixup := range section.Fixups {
			fixup.Offset += base
			fixups = append(fixups, fixup)
		}

		text = append(text, section.Data...)
	}

	file := object.NewFile()

	for _, fixup := range fixups {
		symbol, addend, ok := expr.SymbolAndAddend(fixup.Value)

		if ok && fixup.PCRel {
			if offset, defined := symbol.Offset(); defined {
				value := int64(offset) + addend - int64(fixup.Offset-target.PAYLOAD_OFFSET/8)

				if err := mc.ApplyFixup(text, fixup, value); err != nil {
					errs = append(errs, err)
				}

				continue
			}
		}

		if err := file.AddFixup(fixup); err != nil {
			errs = append(errs, err)
		}
	}

	file.Text = text
	file.ImportSymbols(symbols)
	file.Seal()

	return file, errs
}
