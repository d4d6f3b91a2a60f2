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
	"strings"

	"github.com/samber/lo"

	"github.com/lassandro/golcg/pkg/operand"
	"github.com/lassandro/golcg/pkg/target"
)

// PrintOperands renders a parsed instruction back into source form. The
// result parses to the same operands.
func PrintOperands(t *target.Target, operands []*operand.Operand) string {
	if len(operands) == 0 {
		return ""
	}

	text := operands[0].Format(t)

	if len(operands) == 1 {
		return text
	}

	rest := lo.Map(operands[1:], func(op *operand.Operand, _ int) string {
		return op.Format(t)
	})

	return text + " " + strings.Join(rest, ", ")
}
