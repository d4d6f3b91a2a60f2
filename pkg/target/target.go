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

// Package target holds the static description of the machine: registers,
// opcode descriptors, the matcher table and condition codes. A Target is
// immutable once built and is passed explicitly to the parser, matcher and
// encoder.
package target

type Target struct {
	registers  []RegisterDesc
	regNames   map[string]Reg
	opcodes    []OpcodeDesc
	byEncoding map[uint8]*OpcodeDesc
	patterns   map[string][]Pattern
	features   FeatureSet
}

func New(features FeatureSet) *Target {
	t := &Target{features: features}

	t.registers, t.regNames = buildRegisters()
	t.opcodes = buildOpcodes()
	t.patterns = buildPatterns()

	t.byEncoding = make(map[uint8]*OpcodeDesc)
	for i := range t.opcodes {
		desc := &t.opcodes[i]

		if desc.Opcode == OP_INVALID || desc.IsPseudo() {
			continue
		}

		t.byEncoding[desc.Encoding] = desc
	}

	return t
}

func Default() *Target {
	return New(FeatureSet(DefaultFeatures))
}

func (t *Target) Features() FeatureSet {
	return t.features
}

// FrameRegister is the base register of frame references: the frame
// pointer when the function keeps one, the stack pointer otherwise.
func (t *Target) FrameRegister(hasFP bool) Reg {
	if hasFP {
		return FP
	}

	return SP
}

// Stack grows downward and stays 8-byte aligned.
const StackAlignment = 8

const StackGrowsDown = true
