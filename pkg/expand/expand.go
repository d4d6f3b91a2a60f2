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

// Package expand rewrites pseudo instructions into real control flow.
package expand

import (
	"github.com/lassandro/golcg/pkg/diag"
	"github.com/lassandro/golcg/pkg/mir"
	"github.com/lassandro/golcg/pkg/target"
)

// Operand positions of SELECT_CC dst, lhs, rhs, t, f, cc.
const (
	SELECT_DST = iota
	SELECT_LHS
	SELECT_RHS
	SELECT_TRUE
	SELECT_FALSE
	SELECT_CC
	numSelectOperands
)

// Diamond names the blocks produced by one select expansion.
type Diamond struct {
	Head    mir.BlockID
	IfFalse mir.BlockID
	Sink    mir.BlockID
}

// ExpandSelect rewrites the SELECT_CC at position index of block bb:
//
//	bb:      ...; b<cc> lhs, rhs, sink
//	ifFalse: (falls through)
//	sink:    dst = PHI [t, bb], [f, ifFalse]; rest of bb
//
// sink takes over the successors of bb.
func ExpandSelect(fn *mir.Function, bb mir.BlockID, index int) Diamond {
	head := fn.Block(bb)

	if index < 0 || index >= len(head.Instrs) {
		diag.Internalf("no instruction %d in block %d", index, bb)
	}

	sel := head.Instrs[index]

	if sel.Opcode != target.OP_SELECT_CC || len(sel.Operands) != numSelectOperands {
		diag.Internalf("instruction %d of block %d is not a select", index, bb)
	}

	branch := target.BranchOpcode(sel.Operand(SELECT_CC).CondCode())

	sinkID := fn.NewBlockAfter(bb)
	ifFalseID := fn.NewBlockAfter(bb)

	sink := fn.Block(sinkID)
	ifFalse := fn.Block(ifFalseID)

	sink.Append(mir.NewInstr(
		target.OP_PHI,
		sel.Operand(SELECT_DST),
		sel.Operand(SELECT_TRUE), mir.Block(bb),
		sel.Operand(SELECT_FALSE), mir.Block(ifFalseID),
	))
	sink.Append(head.Instrs[index+1:]...)
	sink.Succs = head.Succs

	for _, succ := range sink.Succs {
		replacePHIBlock(fn.Block(succ), bb, sinkID)
	}

	head.Instrs = append(head.Instrs[:index:index], mir.NewInstr(
		branch,
		sel.Operand(SELECT_LHS),
		sel.Operand(SELECT_RHS),
		mir.Block(sinkID),
	))
	head.Succs = []mir.BlockID{ifFalseID, sinkID}

	ifFalse.Succs = []mir.BlockID{sinkID}

	return Diamond{Head: bb, IfFalse: ifFalseID, Sink: sinkID}
}

// replacePHIBlock retargets the incoming edges of the PHIs heading bb.
func replacePHIBlock(bb *mir.BasicBlock, from, to mir.BlockID) {
	for _, instr := range bb.Instrs {
		if instr.Opcode != target.OP_PHI {
			return
		}

		for i := 2; i < len(instr.Operands); i += 2 {
			if instr.Operands[i].Block() == from {
				instr.SetOperand(i, mir.Block(to))
			}
		}
	}
}

// ExpandPseudos expands every select of fn and returns how many it found.
func ExpandPseudos(fn *mir.Function) int {
	count := 0

	for {
		bb, index, found := findSelect(fn)

		if !found {
			return count
		}

		ExpandSelect(fn, bb, index)
		count++
	}
}

func findSelect(fn *mir.Function) (mir.BlockID, int, bool) {
	for _, bb := range fn.Blocks() {
		for i, instr := range bb.Instrs {
			if instr.Opcode == target.OP_SELECT_CC {
				return bb.ID, i, true
			}
		}
	}

	return 0, 0, false
}

// EliminatePHIs replaces each PHI with copies at the end of its incoming
// blocks, ahead of their terminators. An incoming edge from a block with
// several successors is split first, so a copy only runs on its own edge
// and never clobbers a register the branch or another path still reads.
func EliminatePHIs(t *target.Target, fn *mir.Function) {
	for _, bb := range fn.Blocks() {
		splitPHIEdges(fn, bb)

		for len(bb.Instrs) > 0 && bb.Instrs[0].Opcode == target.OP_PHI {
			phi := bb.Instrs[0]
			dst := phi.Operand(0)

			for i := 1; i+1 < len(phi.Operands); i += 2 {
				pred := fn.Block(phi.Operand(i + 1).Block())
				insertBeforeTerminator(t, pred, copyInstr(dst, phi.Operand(i)))
			}

			bb.Instrs = bb.Instrs[1:]
		}
	}
}

// splitPHIEdges gives every critical incoming edge of bb's PHIs a block of
// its own.
func splitPHIEdges(fn *mir.Function, bb *mir.BasicBlock) {
	split := make(map[mir.BlockID]mir.BlockID)

	for _, instr := range bb.Instrs {
		if instr.Opcode != target.OP_PHI {
			break
		}

		for i := 2; i < len(instr.Operands); i += 2 {
			pred := instr.Operand(i).Block()
			edge, done := split[pred]

			if !done {
				if len(fn.Block(pred).Succs) < 2 {
					continue
				}

				edge = splitEdge(fn, pred, bb.ID)
				split[pred] = edge
			}

			instr.SetOperand(i, mir.Block(edge))
		}
	}
}

// splitEdge inserts a block on the edge from -> to. A fallthrough edge
// gets the block right after from; a branch edge is retargeted to a block
// at the end of the layout that jumps on to to.
func splitEdge(fn *mir.Function, from, to mir.BlockID) mir.BlockID {
	pred := fn.Block(from)
	branched := false

	for _, instr := range pred.Instrs {
		for _, op := range instr.Operands {
			if op.IsBlock() && op.Block() == to {
				branched = true
			}
		}
	}

	var edge mir.BlockID

	if branched {
		blocks := fn.Blocks()

		if last := blocks[len(blocks)-1]; fallsThrough(last) {
			diag.Internalf("block %d of %s falls off the end of the function", last.ID, fn.Name)
		}

		edge = fn.NewBlock()
		fn.Block(edge).Append(mir.NewInstr(target.OP_JMP, mir.Block(to)))

		for _, instr := range pred.Instrs {
			for i, op := range instr.Operands {
				if op.IsBlock() && op.Block() == to {
					instr.SetOperand(i, mir.Block(edge))
				}
			}
		}
	} else {
		if next, ok := fn.Next(from); !ok || next != to {
			diag.Internalf("block %d of %s neither branches nor falls through to %d", from, fn.Name, to)
		}

		edge = fn.NewBlockAfter(from)
	}

	for i, succ := range pred.Succs {
		if succ == to {
			pred.Succs[i] = edge
		}
	}

	fn.Block(edge).Succs = []mir.BlockID{to}

	return edge
}

func fallsThrough(bb *mir.BasicBlock) bool {
	if len(bb.Instrs) == 0 {
		return true
	}

	switch bb.Instrs[len(bb.Instrs)-1].Opcode {
	case target.OP_JMP, target.OP_JR, target.OP_RET:
		return false
	}

	return true
}

func copyInstr(dst, src mir.Operand) *mir.Instr {
	if src.IsImm() {
		return mir.NewInstr(target.OP_MOVI, dst, src)
	}

	return mir.NewInstr(target.OP_MOV, dst, src)
}

func insertBeforeTerminator(t *target.Target, bb *mir.BasicBlock, instr *mir.Instr) {
	at := len(bb.Instrs)

	for i, existing := range bb.Instrs {
		if t.Desc(existing.Opcode).IsTerminator() {
			at = i
			break
		}
	}

	bb.Instrs = append(bb.Instrs[:at:at], append([]*mir.Instr{instr}, bb.Instrs[at:]...)...)
}
