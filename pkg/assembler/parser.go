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

package assembler

import (
	"github.com/lassandro/golcg/pkg/diag"
	"github.com/lassandro/golcg/pkg/encoding"
	"github.com/lassandro/golcg/pkg/expr"
	"github.com/lassandro/golcg/pkg/operand"
	"github.com/lassandro/golcg/pkg/target"
)

// Parser turns the tokens of one instruction into operands. It keeps no
// state from one instruction to the next.
type Parser struct {
	target  *target.Target
	symbols *expr.SymbolTable

	tokens []Token
	pos    int
}

func NewParser(t *target.Target, symbols *expr.SymbolTable) *Parser {
	return &Parser{target: t, symbols: symbols}
}

func (p *Parser) peek() *Token {
	return &p.tokens[p.pos]
}

func (p *Parser) next() *Token {
	token := &p.tokens[p.pos]

	if token.Type != TOKEN_EOS {
		p.pos++
	}

	return token
}

func (p *Parser) errorf(token *Token, message string) error {
	return &diag.ParseError{Position: token.Position, Message: message}
}

// ParseInstruction parses "mnemonic (operand (',' operand)*)?". The
// mnemonic becomes a token operand at index 0. tokens must end with
// TOKEN_EOS.
func (p *Parser) ParseInstruction(tokens []Token) ([]*operand.Operand, error) {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != TOKEN_EOS {
		diag.Internalf("token list is not terminated")
	}

	p.tokens = tokens
	p.pos = 0

	mnemonic := p.next()

	if mnemonic.Type != TOKEN_IDENT {
		return nil, p.errorf(mnemonic, "expected instruction mnemonic")
	}

	operands := []*operand.Operand{
		operand.NewToken(mnemonic.Value, diag.Point(mnemonic.Position)),
	}

	if p.peek().Type == TOKEN_EOS {
		return operands, nil
	}

	for {
		op, err := p.parseOperand()

		if err != nil {
			return nil, err
		}

		operands = append(operands, op)

		switch token := p.next(); token.Type {
		case TOKEN_EOS:
			return operands, nil
		case TOKEN_COMMA:
			continue
		default:
			return nil, p.errorf(token, "unexpected token")
		}
	}
}

// parseOperand tries each operand form in priority order. A form that does
// not apply leaves the position untouched.
func (p *Parser) parseOperand() (*operand.Operand, error) {
	if p.peek().Type == TOKEN_LBRAC {
		return p.parseMemory()
	}

	if op := p.tryRegister(); op != nil {
		return op, nil
	}

	if op, err := p.tryImmediate(); op != nil || err != nil {
		return op, err
	}

	if op, err := p.tryLabel(); op != nil || err != nil {
		return op, err
	}

	return nil, p.errorf(p.peek(), "unknown operand")
}

func (p *Parser) matchRegister(token *Token) target.Reg {
	if token.Type != TOKEN_IDENT {
		return target.NoRegister
	}

	return p.target.MatchRegisterName(token.Value)
}

func (p *Parser) tryRegister() *operand.Operand {
	token := p.peek()
	reg := p.matchRegister(token)

	if reg == target.NoRegister {
		return nil
	}

	p.next()
	span := diag.Point(token.Position)

	if p.target.RegisterClass(reg) == target.CLASS_PRED {
		return operand.NewPredicate(reg, span)
	}

	return operand.NewRegister(reg, span)
}

// parseInteger reads INTEGER or '-' INTEGER.
func (p *Parser) parseInteger() (int64, *Token, error) {
	start := p.peek()
	negative := false

	if start.Type == TOKEN_MINUS {
		negative = true
		p.next()
	}

	token := p.next()

	if token.Type != TOKEN_INTEGER {
		return 0, start, p.errorf(token, "expected integer")
	}

	value, err := encoding.DecodeInt(token.Value)

	if err != nil {
		return 0, start, &diag.InvalidLiteralError{
			Position: token.Position, Received: token.Value,
		}
	}

	if negative {
		value = -value
	}

	return value, token, nil
}

func (p *Parser) tryImmediate() (*operand.Operand, error) {
	start := p.peek()

	switch start.Type {
	case TOKEN_DOLLAR:
		p.next()

		// $symbol
		if token := p.peek(); token.Type == TOKEN_IDENT {
			p.next()
			symbol := p.symbols.GetOrCreate(token.Value)

			return operand.NewImmediate(
				expr.NewSymbolRef(symbol),
				diag.SpanOf(start.Position, token.Position),
			), nil
		}

		value, end, err := p.parseInteger()

		if err != nil {
			return nil, err
		}

		return operand.NewImmediate(
			expr.NewConstant(value), diag.SpanOf(start.Position, end.Position),
		), nil

	case TOKEN_INTEGER, TOKEN_MINUS:
		value, end, err := p.parseInteger()

		if err != nil {
			return nil, err
		}

		return operand.NewImmediate(
			expr.NewConstant(value), diag.SpanOf(start.Position, end.Position),
		), nil
	}

	return nil, nil
}

// tryLabel reads a symbol reference with an optional constant addend.
// Local labels such as .LBB0_1 lex as directives and are accepted here.
func (p *Parser) tryLabel() (*operand.Operand, error) {
	start := p.peek()

	if start.Type != TOKEN_IDENT && start.Type != TOKEN_DIRECTIVE {
		return nil, nil
	}

	p.next()

	var value expr.Expr = expr.NewSymbolRef(p.symbols.GetOrCreate(start.Value))
	end := start

	if op := p.peek().Type; op == TOKEN_PLUS || op == TOKEN_MINUS {
		p.next()

		token := p.next()

		if token.Type != TOKEN_INTEGER {
			return nil, p.errorf(token, "expected integer")
		}

		addend, err := encoding.DecodeInt(token.Value)

		if err != nil {
			return nil, &diag.InvalidLiteralError{
				Position: token.Position, Received: token.Value,
			}
		}

		binary := &expr.Binary{Op: expr.BINARY_ADD, LHS: value, RHS: expr.NewConstant(addend)}
		if op == TOKEN_MINUS {
			binary.Op = expr.BINARY_SUB
		}

		value = binary
		end = token
	}

	return operand.NewLabel(value, diag.SpanOf(start.Position, end.Position)), nil
}

// parseMemory reads '[' reg (',' (reg | imm))? ']'.
func (p *Parser) parseMemory() (*operand.Operand, error) {
	start := p.next()

	base := p.matchRegister(p.peek())

	if base == target.NoRegister || p.target.RegisterClass(base) != target.CLASS_GPR {
		return nil, p.errorf(p.peek(), "expected register")
	}

	p.next()

	index := target.NoRegister
	var disp int64

	if p.peek().Type == TOKEN_COMMA {
		p.next()

		if reg := p.matchRegister(p.peek()); reg != target.NoRegister {
			if p.target.RegisterClass(reg) != target.CLASS_GPR {
				return nil, p.errorf(p.peek(), "expected register")
			}

			p.next()
			index = reg
		} else {
			if p.peek().Type == TOKEN_DOLLAR {
				p.next()
			}

			switch p.peek().Type {
			case TOKEN_INTEGER, TOKEN_MINUS:
				value, _, err := p.parseInteger()

				if err != nil {
					return nil, err
				}

				disp = value
			default:
				return nil, p.errorf(p.peek(), "expected register")
			}
		}
	}

	end := p.next()

	if end.Type != TOKEN_RBRAC {
		return nil, p.errorf(end, "expected ']'")
	}

	return operand.NewMemory(
		base, index, disp, diag.SpanOf(start.Position, end.Position),
	), nil
}
