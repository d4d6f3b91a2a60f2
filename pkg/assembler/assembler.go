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

// Package assembler reads Dummy assembly source and produces a relocatable
// object. Every line is lexed, parsed, matched and encoded on its own, so
// one bad line never stops the rest of the file from being checked.
package assembler

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/lassandro/golcg/pkg/diag"
	"github.com/lassandro/golcg/pkg/encoding"
	"github.com/lassandro/golcg/pkg/expr"
	"github.com/lassandro/golcg/pkg/matcher"
	"github.com/lassandro/golcg/pkg/mc"
	"github.com/lassandro/golcg/pkg/object"
	"github.com/lassandro/golcg/pkg/target"
)

func parseDirective(ident string) DirectiveType {
	if strings.EqualFold(ident, ".text") {
		return DIRECTIVE_TEXT
	} else if strings.EqualFold(ident, ".global") || strings.EqualFold(ident, ".globl") {
		return DIRECTIVE_GLOBAL
	} else if strings.EqualFold(ident, ".word") {
		return DIRECTIVE_WORD
	} else if strings.EqualFold(ident, ".quad") {
		return DIRECTIVE_QUAD
	} else if strings.EqualFold(ident, ".align") {
		return DIRECTIVE_ALIGN
	}

	return DIRECTIVE_INVALID
}

type assembler struct {
	target  *target.Target
	symbols *expr.SymbolTable
	parser  *Parser
	matcher *matcher.Matcher
	encoder *mc.Encoder
	debug   *SymTable

	text   []byte
	fixups []mc.Fixup
	errs   []error
}

// AssembleSource assembles a whole file. The object is returned even when
// errors were found; it then holds every line that assembled cleanly.
func AssembleSource(input io.Reader, options *Options) (*object.File, []error) {
	if options == nil {
		options = &Options{}
	}

	t := options.Target
	if t == nil {
		t = target.Default()
	}

	symbols := options.Symbols
	if symbols == nil {
		symbols = expr.NewSymbolTable()
	}

	a := &assembler{
		target:  t,
		symbols: symbols,
		parser:  NewParser(t, symbols),
		matcher: matcher.New(t),
		encoder: mc.NewEncoder(t),
		debug:   options.SymTable,
	}

	var scanner = bufio.NewScanner(input)
	var cursor = diag.Cursor{Line: 1}

	for scanner.Scan() {
		line := scanner.Text()

		a.assembleLine(line, cursor)

		cursor.Line++
		cursor.Byte += int64(len(line) + 1)
		cursor.LineByte += int64(len(line) + 1)
	}

	if err := scanner.Err(); err != nil {
		a.errs = append(a.errs, err)
	}

	file := object.NewFile()
	a.resolve(file)
	file.Text = a.text
	file.ImportSymbols(symbols)
	file.Seal()

	return file, a.errs
}

// AssembleLine assembles a single instruction with no labels or
// directives, as typed into the interactive prompt.
func AssembleLine(t *target.Target, line string) (*mc.Inst, []byte, []error) {
	tokens, errs := LexLine(line, diag.Cursor{Line: 1})

	if len(errs) > 0 {
		return nil, nil, errs
	}

	a := &assembler{
		target:  t,
		symbols: expr.NewSymbolTable(),
		matcher: matcher.New(t),
		encoder: mc.NewEncoder(t),
	}
	a.parser = NewParser(t, a.symbols)

	inst, data, err := a.assembleInstruction(tokens)

	if err != nil {
		return nil, nil, []error{err}
	}

	return inst, data, nil
}

func (a *assembler) assembleLine(line string, cursor diag.Cursor) {
	tokens, errs := LexLine(line, cursor)

	if len(errs) > 0 {
		a.errs = append(a.errs, errs...)
		return
	}

	// Label definitions
	for len(tokens) >= 2 && tokens[1].Type == TOKEN_COLON &&
		(tokens[0].Type == TOKEN_IDENT || tokens[0].Type == TOKEN_DIRECTIVE) {
		a.defineLabel(&tokens[0])
		tokens = tokens[2:]
	}

	switch tokens[0].Type {
	case TOKEN_EOS:
		return

	case TOKEN_DIRECTIVE:
		if err := a.assembleDirective(tokens); err != nil {
			a.errs = append(a.errs, err)
		}

	case TOKEN_IDENT:
		offset := uint64(len(a.text))

		_, data, err := a.assembleInstruction(tokens)

		if err != nil {
			a.errs = append(a.errs, err)
			return
		}

		if a.debug != nil {
			a.debug.Symbols[offset] = cursor.LineByte
		}

		a.text = append(a.text, data...)

	default:
		a.errs = append(a.errs, &diag.ParseError{
			Position: tokens[0].Position,
			Message:  "unexpected token",
		})
	}
}

func (a *assembler) defineLabel(token *Token) {
	symbol := a.symbols.GetOrCreate(token.Value)
	offset := uint64(len(a.text))

	if !symbol.Define(offset) {
		a.errs = append(a.errs, &diag.RedeclaredLabelError{
			Position: token.Position, Received: token.Value,
		})
		return
	}

	if a.debug != nil {
		a.debug.Labels[offset] = token.Value
	}
}

// assembleInstruction runs one statement through the parser, matcher and
// encoder. Fixups are rebased onto the current end of the text section.
func (a *assembler) assembleInstruction(tokens []Token) (*mc.Inst, []byte, error) {
	operands, err := a.parser.ParseInstruction(tokens)

	if err != nil {
		return nil, nil, err
	}

	inst, err := a.matcher.MatchAndConvert(operands)

	if err != nil {
		return nil, nil, err
	}

	data, fixups, err := a.encoder.Encode(inst)

	if err != nil {
		return nil, nil, err
	}

	offset := uint64(len(a.text))

	for _, fixup := range fixups {
		fixup.Offset += offset
		a.fixups = append(a.fixups, fixup)
	}

	return inst, data, nil
}

func (a *assembler) assembleDirective(tokens []Token) error {
	keyword := &tokens[0]
	operands := tokens[1 : len(tokens)-1]

	switch parseDirective(keyword.Value) {
	case DIRECTIVE_TEXT:
		if len(operands) != 0 {
			return &diag.ParseError{Position: operands[0].Position, Message: "unexpected token"}
		}

	case DIRECTIVE_GLOBAL:
		if len(operands) != 1 || operands[0].Type != TOKEN_IDENT {
			return &diag.ParseError{Position: keyword.Position, Message: "expected symbol name"}
		}

		a.symbols.GetOrCreate(operands[0].Value).SetBinding(expr.BINDING_GLOBAL)

	case DIRECTIVE_WORD:
		return a.emitData(tokens, 4, mc.FIXUP_DATA_32)

	case DIRECTIVE_QUAD:
		return a.emitData(tokens, 8, mc.FIXUP_DATA_64)

	case DIRECTIVE_ALIGN:
		if len(operands) != 1 || operands[0].Type != TOKEN_INTEGER {
			return &diag.ParseError{Position: keyword.Position, Message: "expected alignment"}
		}

		align, err := encoding.DecodeInt(operands[0].Value)

		if err != nil || align <= 0 || align&(align-1) != 0 {
			return &diag.InvalidLiteralError{
				Position: operands[0].Position, Received: operands[0].Value,
			}
		}

		for int64(len(a.text))%align != 0 {
			a.text = append(a.text, 0)
		}

	default:
		return &diag.ParseError{
			Position: keyword.Position,
			Message:  fmt.Sprintf("unknown directive '%s'", keyword.Value),
		}
	}

	return nil
}

// emitData handles .word and .quad: one integer or symbol operand.
func (a *assembler) emitData(tokens []Token, size uint, kind mc.FixupKind) error {
	// Reuse the operand grammar by parsing the directive as an instruction
	// with a single operand.
	stmt := append([]Token{{Type: TOKEN_IDENT, Position: tokens[0].Position, Value: tokens[0].Value}}, tokens[1:]...)

	operands, err := a.parser.ParseInstruction(stmt)

	if err != nil {
		return err
	}

	if len(operands) != 2 || !(operands[1].IsImmediate() || operands[1].IsLabel()) {
		return &diag.ParseError{Position: tokens[0].Position, Message: "expected expression"}
	}

	var value expr.Expr
	if operands[1].IsImmediate() {
		value = operands[1].AsImmediate()
	} else {
		value = operands[1].AsLabel()
	}

	if constant, ok := value.Evaluate(); ok {
		if !encoding.FitsSigned(constant, size*8) && !encoding.FitsUnsigned(constant, size*8) {
			return &diag.EncodingError{
				Position: operands[1].Start(),
				Opcode:   tokens[0].Value,
				Operand:  1,
				Value:    constant,
				Bits:     size * 8,
			}
		}

		a.text = encoding.EmitConstant(a.text, uint64(constant), size)
		return nil
	}

	a.fixups = append(a.fixups, mc.Fixup{
		Offset: uint64(len(a.text)),
		Value:  value,
		Kind:   kind,
		Loc:    operands[1].Start(),
	})
	a.text = encoding.EmitConstant(a.text, 0, size)

	return nil
}

// resolve applies PC-relative fixups whose symbol is defined in this file
// and turns everything else into relocations.
func (a *assembler) resolve(file *object.File) {
	for _, fixup := range a.fixups {
		symbol, addend, ok := expr.SymbolAndAddend(fixup.Value)

		if ok && fixup.PCRel {
			if offset, defined := symbol.Offset(); defined {
				value := int64(offset) + addend - int64(fixup.Offset)

				if err := mc.ApplyFixup(a.text, fixup, value); err != nil {
					a.errs = append(a.errs, &diag.OversizedLabelError{
						Position: fixup.Loc, Label: symbol.Name, Received: value,
					})
				}

				continue
			}
		}

		if err := file.AddFixup(fixup); err != nil {
			a.errs = append(a.errs, err)
		}
	}
}
