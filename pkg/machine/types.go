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

import (
	"fmt"
	"strings"
)

// Opcode is the operation selected by the two low decimal digits of an
// instruction word.
type Opcode int64

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}

	return fmt.Sprintf("OP(%d)", int64(op))
}

// Params returns the parameter layout of op, or nil if op is not defined.
func (op Opcode) Params() []Kind {
	return opcodeParams[op]
}

// Valid reports whether op is one of the defined opcodes.
func (op Opcode) Valid() bool {
	_, ok := opcodeParams[op]
	return ok
}

// LookupOpcode finds an opcode by its mnemonic, ignoring case.
func LookupOpcode(name string) (Opcode, bool) {
	for op, opname := range opcodeNames {
		if strings.EqualFold(opname, name) {
			return op, true
		}
	}

	return 0, false
}

// Mode is the addressing mode of a single parameter.
type Mode uint8

func (m Mode) String() string {
	switch m {
	case MODE_POSITION:
		return "position"
	case MODE_IMMEDIATE:
		return "immediate"
	case MODE_RELATIVE:
		return "relative"
	}

	return fmt.Sprintf("mode(%d)", uint8(m))
}

// Kind tells whether a parameter slot is read from or written to.
type Kind uint8

const (
	ReadParam Kind = iota
	WriteParam
)

// Instruction is a decoded instruction word. It is rebuilt from memory on
// every step and never cached.
type Instruction struct {
	Word   int64
	Opcode Opcode
	Modes  [MAX_PARAMS]Mode
	Kinds  []Kind
}

// Arity returns the number of parameters following the instruction word.
func (in Instruction) Arity() int {
	return len(in.Kinds)
}

// Size returns the number of cells the instruction occupies.
func (in Instruction) Size() int64 {
	return int64(len(in.Kinds)) + 1
}

// Status is the reason the machine handed control back to its caller.
type Status uint8

const (
	Runnable Status = iota
	AwaitingInput
	ProducedOutput
	Halted
	Faulted
)

func (s Status) String() string {
	switch s {
	case Runnable:
		return "runnable"
	case AwaitingInput:
		return "awaiting input"
	case ProducedOutput:
		return "produced output"
	case Halted:
		return "halted"
	case Faulted:
		return "faulted"
	}

	return fmt.Sprintf("status(%d)", uint8(s))
}

// InputPolicy selects what happens when IN executes with an empty input
// queue.
type InputPolicy uint8

const (
	// Suspend with AwaitingInput and retry the same instruction on resume
	SuspendOnEmpty InputPolicy = iota

	// Stop the machine with ErrInputStarved
	FaultOnEmpty
)

type MachineState struct {
	Program  int64 // instruction pointer
	Relative int64 // relative base
	Memory   Memory
	Input    []int64
	Output   []int64
	Status   Status
	Steps    uint64
}

type MachineDebugger interface {
	Step(mc *Machine)
	Read(addr int64, mc *Machine)
	Write(addr int64, mc *Machine)
}

type Machine struct {
	State    MachineState
	Debugger MachineDebugger

	image  []int64
	size   int64
	strict bool
	policy InputPolicy
	seed   []int64
	err    error
}

// Option configures a Machine at construction time.
type Option func(mc *Machine) error
