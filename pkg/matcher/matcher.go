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

// Package matcher selects the opcode denoted by a mnemonic and a parsed
// operand sequence, and converts a successful match into an mc.Inst.
package matcher

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/lassandro/golcg/pkg/diag"
	"github.com/lassandro/golcg/pkg/encoding"
	"github.com/lassandro/golcg/pkg/mc"
	"github.com/lassandro/golcg/pkg/operand"
	"github.com/lassandro/golcg/pkg/target"
)

type Result uint

// Results in priority order: a better result always replaces a worse one
// while the patterns of a mnemonic are tried.
const (
	MATCH_SUCCESS Result = iota
	MATCH_MISSING_FEATURE
	MATCH_MNEMONIC_FAIL
	MATCH_INVALID_OPERAND
)

func (result Result) String() string {
	switch result {
	case MATCH_SUCCESS:
		return "Success"
	case MATCH_MISSING_FEATURE:
		return "MissingFeature"
	case MATCH_MNEMONIC_FAIL:
		return "MnemonicFail"
	case MATCH_INVALID_OPERAND:
		return "InvalidOperand"
	}

	return "<invalid>"
}

type Match struct {
	Result  Result
	Pattern *target.Pattern
	// Index of the failing operand, the mnemonic being operand 0. An index
	// equal to the number of operands means operands are missing.
	ErrorIndex int
	Feature    target.Feature
}

type Matcher struct {
	target *target.Target
}

func New(t *target.Target) *Matcher {
	return &Matcher{target: t}
}

// Match tries every pattern of the mnemonic in operands[0].
func (m *Matcher) Match(operands []*operand.Operand) Match {
	if len(operands) == 0 || !operands[0].IsToken() {
		diag.Internalf("operand list does not start with a mnemonic")
	}

	patterns := m.target.Patterns(strings.ToLower(operands[0].AsToken()))

	if len(patterns) == 0 {
		return Match{Result: MATCH_MNEMONIC_FAIL, ErrorIndex: -1}
	}

	best := Match{Result: MATCH_INVALID_OPERAND, ErrorIndex: -1}

	for i := range patterns {
		pattern := &patterns[i]

		if index := mismatch(pattern, operands); index >= 0 {
			if best.Result == MATCH_INVALID_OPERAND && index > best.ErrorIndex {
				best.ErrorIndex = index
			}

			continue
		}

		desc := m.target.Desc(pattern.Opcode)

		if !m.target.Features().Has(desc.Feature) {
			if best.Result != MATCH_MISSING_FEATURE {
				best = Match{
					Result:     MATCH_MISSING_FEATURE,
					Pattern:    pattern,
					ErrorIndex: -1,
					Feature:    desc.Feature,
				}
			}

			continue
		}

		return Match{Result: MATCH_SUCCESS, Pattern: pattern, ErrorIndex: -1}
	}

	return best
}

// mismatch returns the index of the first operand the pattern rejects, or
// -1 when every operand is accepted.
func mismatch(pattern *target.Pattern, operands []*operand.Operand) int {
	for i, class := range pattern.Operands {
		index := i + 1

		if index >= len(operands) {
			return len(operands)
		}

		if !Accepts(class, operands[index]) {
			return index
		}
	}

	if len(operands) > len(pattern.Operands)+1 {
		return len(pattern.Operands) + 1
	}

	return -1
}

// Accepts checks both the kind and the range of one operand.
func Accepts(class target.OperandClass, op *operand.Operand) bool {
	switch class {
	case target.OPERAND_GPR:
		return op.IsRegister()
	case target.OPERAND_PRED:
		return op.IsPredicate()
	case target.OPERAND_SIMM32:
		if !op.IsImmediate() {
			return false
		}
		value, ok := op.AsImmediate().Evaluate()
		return !ok || encoding.FitsSigned(value, 32)
	case target.OPERAND_UIMM5:
		if !op.IsImmediate() {
			return false
		}
		value, ok := op.AsImmediate().Evaluate()
		return ok && encoding.FitsUnsigned(value, 5)
	case target.OPERAND_MEM:
		return op.IsMemory() && !op.AsMemory().IsIndexed()
	case target.OPERAND_MEMIDX:
		return op.IsMemory() && op.AsMemory().IsIndexed()
	case target.OPERAND_TARGET:
		if op.IsLabel() {
			return true
		}
		if !op.IsImmediate() {
			return false
		}
		value, ok := op.AsImmediate().Evaluate()
		return !ok || encoding.FitsSigned(value, 32)
	}

	diag.Internalf("operand class %d has no predicate", class)
	return false
}

type addHook func(op *operand.Operand, inst *mc.Inst) error

// Encode-time hooks per operand class. The hook list of an opcode is fixed
// by its pattern and never depends on operand values.
var addHooks = map[target.OperandClass]addHook{
	target.OPERAND_GPR: func(op *operand.Operand, inst *mc.Inst) error {
		op.AddRegOperands(inst)
		return nil
	},
	target.OPERAND_PRED: func(op *operand.Operand, inst *mc.Inst) error {
		op.AddPredOperands(inst)
		return nil
	},
	target.OPERAND_SIMM32: func(op *operand.Operand, inst *mc.Inst) error {
		op.AddImmOperands(inst)
		return nil
	},
	target.OPERAND_UIMM5: func(op *operand.Operand, inst *mc.Inst) error {
		op.AddImmOperands(inst)
		return nil
	},
	target.OPERAND_MEM: func(op *operand.Operand, inst *mc.Inst) error {
		return op.AddMemoryOperands(inst, target.MEM_DISP_BITS)
	},
	target.OPERAND_MEMIDX: func(op *operand.Operand, inst *mc.Inst) error {
		op.AddMemoryIndexedOperands(inst)
		return nil
	},
	target.OPERAND_TARGET: func(op *operand.Operand, inst *mc.Inst) error {
		op.AddLabelOperands(inst)
		return nil
	},
}

// Convert runs the add-hooks of a successful match.
func (m *Matcher) Convert(match Match, operands []*operand.Operand) (*mc.Inst, error) {
	if match.Result != MATCH_SUCCESS {
		diag.Internalf("converting a failed match: %s", match.Result)
	}

	inst := &mc.Inst{Opcode: match.Pattern.Opcode, Loc: operands[0].Start()}

	for i, class := range match.Pattern.Operands {
		op := operands[i+1]

		if err := addHooks[class](op, inst); err != nil {
			var encodingErr *diag.EncodingError

			if errors.As(err, &encodingErr) {
				encodingErr.Opcode = m.target.Desc(inst.Opcode).Name
				encodingErr.Operand = i + 1
			}

			return nil, err
		}
	}

	return inst, nil
}

// MatchAndConvert matches operands and builds the instruction, turning a
// failed match into a *diag.MatchError.
func (m *Matcher) MatchAndConvert(operands []*operand.Operand) (*mc.Inst, error) {
	match := m.Match(operands)

	if match.Result == MATCH_SUCCESS {
		return m.Convert(match, operands)
	}

	return nil, m.Diagnose(match, operands)
}

func (m *Matcher) Diagnose(match Match, operands []*operand.Operand) error {
	mnemonic := operands[0].AsToken()

	err := &diag.MatchError{
		Position: operands[0].Start(),
		Mnemonic: mnemonic,
		Index:    match.ErrorIndex,
	}

	switch match.Result {
	case MATCH_MNEMONIC_FAIL:
		err.Kind = diag.MATCH_MNEMONIC_FAIL

	case MATCH_MISSING_FEATURE:
		err.Kind = diag.MATCH_MISSING_FEATURE
		err.Feature = target.FeatureName(match.Feature)

	case MATCH_INVALID_OPERAND:
		if match.ErrorIndex >= len(operands) {
			err.Kind = diag.MATCH_TOO_FEW_OPERANDS
			break
		}

		err.Kind = diag.MATCH_INVALID_OPERAND

		if match.ErrorIndex > 0 {
			op := operands[match.ErrorIndex]
			err.Position = op.Start()
			err.Have = op.Kind().String()
			err.Want = m.expected(strings.ToLower(mnemonic), match.ErrorIndex)

			if value, ok := constant(op); ok {
				if want, outOfRange := m.expectedRanges(strings.ToLower(mnemonic), match.ErrorIndex, op); outOfRange {
					err.Have = fmt.Sprintf("Immediate %d", value)
					err.Want = want
				}
			}
		}

	default:
		diag.Internalf("no diagnostic for a successful match")
	}

	return err
}

func constant(op *operand.Operand) (int64, bool) {
	if !op.IsImmediate() {
		return 0, false
	}

	return op.AsImmediate().Evaluate()
}

// expectedRanges spells out the accepted range of every immediate class at
// index. outOfRange is set when op is an immediate that some class takes by
// kind and none takes by value.
func (m *Matcher) expectedRanges(mnemonic string, index int, op *operand.Operand) (want []string, outOfRange bool) {
	for _, pattern := range m.target.Patterns(mnemonic) {
		if index-1 >= len(pattern.Operands) {
			continue
		}

		class := pattern.Operands[index-1]
		low, high, ok := class.Bounds()

		if !ok {
			want = append(want, class.String())
			continue
		}

		if Accepts(class, op) {
			return nil, false
		}

		outOfRange = true
		want = append(want, fmt.Sprintf("Immediate in [%d, %d]", low, high))
	}

	return lo.Uniq(want), outOfRange
}

// expected lists the operand classes the mnemonic accepts at index.
func (m *Matcher) expected(mnemonic string, index int) []string {
	classes := lo.FilterMap(
		m.target.Patterns(mnemonic),
		func(pattern target.Pattern, _ int) (string, bool) {
			if index-1 >= len(pattern.Operands) {
				return "", false
			}
			return pattern.Operands[index-1].String(), true
		},
	)

	return lo.Uniq(classes)
}
