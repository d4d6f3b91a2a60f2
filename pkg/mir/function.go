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

package mir

import (
	"fmt"
	"strings"

	"github.com/lassandro/golcg/pkg/diag"
	"github.com/lassandro/golcg/pkg/target"
)

// BlockID indexes the block arena of a Function. IDs stay valid for the
// lifetime of the function; blocks are never moved or reused.
type BlockID int

type BasicBlock struct {
	ID     BlockID
	Instrs []*Instr
	Succs  []BlockID
	// Physical registers live on entry.
	LiveIns []target.Reg
}

func (bb *BasicBlock) Append(instrs ...*Instr) {
	bb.Instrs = append(bb.Instrs, instrs...)
}

func (bb *BasicBlock) AddSucc(id BlockID) {
	for _, succ := range bb.Succs {
		if succ == id {
			return
		}
	}

	bb.Succs = append(bb.Succs, id)
}

func (bb *BasicBlock) IsSucc(id BlockID) bool {
	for _, succ := range bb.Succs {
		if succ == id {
			return true
		}
	}

	return false
}

type Function struct {
	Name  string
	Frame FrameInfo
	Regs  RegInfo

	blocks []*BasicBlock
	layout []BlockID
}

func NewFunction(name string) *Function {
	fn := &Function{Name: name}
	fn.NewBlock()
	return fn
}

// NewBlock appends a block to the arena and to the end of the layout.
func (fn *Function) NewBlock() BlockID {
	id := fn.createBlock()
	fn.layout = append(fn.layout, id)
	return id
}

// NewBlockAfter creates a block placed right after after in the layout.
func (fn *Function) NewBlockAfter(after BlockID) BlockID {
	id := fn.createBlock()

	for i, existing := range fn.layout {
		if existing == after {
			fn.layout = append(fn.layout[:i+1], append([]BlockID{id}, fn.layout[i+1:]...)...)
			return id
		}
	}

	diag.Internalf("block %d is not in the layout of %s", after, fn.Name)
	return id
}

func (fn *Function) createBlock() BlockID {
	id := BlockID(len(fn.blocks))
	fn.blocks = append(fn.blocks, &BasicBlock{ID: id})
	return id
}

func (fn *Function) Block(id BlockID) *BasicBlock {
	if id < 0 || int(id) >= len(fn.blocks) {
		diag.Internalf("block %d out of range in %s", id, fn.Name)
	}

	return fn.blocks[id]
}

func (fn *Function) Entry() *BasicBlock {
	return fn.blocks[fn.layout[0]]
}

func (fn *Function) NumBlocks() int {
	return len(fn.layout)
}

// Blocks returns the blocks in layout order.
func (fn *Function) Blocks() []*BasicBlock {
	result := make([]*BasicBlock, 0, len(fn.layout))

	for _, id := range fn.layout {
		result = append(result, fn.blocks[id])
	}

	return result
}

// Next returns the block laid out after id, which is where control goes
// when id falls through.
func (fn *Function) Next(id BlockID) (BlockID, bool) {
	for i, existing := range fn.layout {
		if existing == id && i+1 < len(fn.layout) {
			return fn.layout[i+1], true
		}
	}

	return 0, false
}

func (fn *Function) Format(t *target.Target) string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "%s:\n", fn.Name)

	for _, bb := range fn.Blocks() {
		fmt.Fprintf(&builder, "bb.%d:", bb.ID)

		if len(bb.Succs) > 0 {
			builder.WriteString(" ; succs:")
			for _, succ := range bb.Succs {
				fmt.Fprintf(&builder, " bb.%d", succ)
			}
		}

		builder.WriteString("\n")

		for _, instr := range bb.Instrs {
			fmt.Fprintf(&builder, "\t%s\n", instr.Format(t))
		}
	}

	return builder.String()
}
