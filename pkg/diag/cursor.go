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

package diag

import (
	"fmt"
)

type Cursor struct {
	Line     int
	Column   int
	Byte     int64
	Size     int64
	LineByte int64
}

// Span covers the first and last character of an operand.
type Span struct {
	Start Cursor
	End   Cursor
}

func (c Cursor) String() string {
	return fmt.Sprintf("%02d:%02d", c.Line, c.Column)
}

func (c Cursor) IsZero() bool {
	return c.Line == 0 && c.Column == 0
}

func SpanOf(start Cursor, end Cursor) Span {
	return Span{Start: start, End: end}
}

// Point returns a span that starts and ends on c.
func Point(c Cursor) Span {
	return Span{Start: c, End: c}
}
