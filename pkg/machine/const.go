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

package machine

const (
	OP_ADD  Opcode = 1
	OP_MUL  Opcode = 2
	OP_IN   Opcode = 3
	OP_OUT  Opcode = 4
	OP_JT   Opcode = 5
	OP_JF   Opcode = 6
	OP_LT   Opcode = 7
	OP_EQ   Opcode = 8
	OP_ARB  Opcode = 9
	OP_HALT Opcode = 99
)

const (
	MODE_POSITION  Mode = 0
	MODE_IMMEDIATE Mode = 1
	MODE_RELATIVE  Mode = 2
)

const (
	// Largest parameter count of any opcode
	MAX_PARAMS = 3

	// Growth stops at this many cells unless configured otherwise
	DEFAULT_MEMORY_LIMIT int64 = 1 << 24
)

var opcodeNames = map[Opcode]string{
	OP_ADD:  "ADD",
	OP_MUL:  "MUL",
	OP_IN:   "IN",
	OP_OUT:  "OUT",
	OP_JT:   "JT",
	OP_JF:   "JF",
	OP_LT:   "LT",
	OP_EQ:   "EQ",
	OP_ARB:  "ARB",
	OP_HALT: "HALT",
}

// Parameter layout per opcode, in slot order
var opcodeParams = map[Opcode][]Kind{
	OP_ADD:  {ReadParam, ReadParam, WriteParam},
	OP_MUL:  {ReadParam, ReadParam, WriteParam},
	OP_IN:   {WriteParam},
	OP_OUT:  {ReadParam},
	OP_JT:   {ReadParam, ReadParam},
	OP_JF:   {ReadParam, ReadParam},
	OP_LT:   {ReadParam, ReadParam, WriteParam},
	OP_EQ:   {ReadParam, ReadParam, WriteParam},
	OP_ARB:  {ReadParam},
	OP_HALT: {},
}
