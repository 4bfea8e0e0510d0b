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
	"io"

	"github.com/pkg/errors"

	"github.com/lassandro/intcode/pkg/encoding"
)

// MemorySize pads memory with zeros up to size cells. Images longer than size
// are left as they are.
func MemorySize(size int64) Option {
	return func(mc *Machine) error {
		if size < 0 {
			return errors.Errorf("negative memory size %d", size)
		}
		mc.size = size
		return nil
	}
}

// Growth enables or disables growing memory on writes past its end. The
// default is enabled.
func Growth(enabled bool) Option {
	return func(mc *Machine) error {
		mc.State.Memory.Grow = enabled
		return nil
	}
}

// MemoryLimit caps the number of cells growth may allocate.
func MemoryLimit(cells int64) Option {
	return func(mc *Machine) error {
		if cells <= 0 {
			return errors.Errorf("memory limit must be positive, got %d", cells)
		}
		mc.State.Memory.Limit = cells
		return nil
	}
}

// Strict makes unknown opcodes an ErrDecode instead of a HALT.
func Strict(strict bool) Option {
	return func(mc *Machine) error {
		mc.strict = strict
		return nil
	}
}

// Policy sets the empty input queue behavior.
func Policy(policy InputPolicy) Option {
	return func(mc *Machine) error {
		switch policy {
		case SuspendOnEmpty, FaultOnEmpty:
			mc.policy = policy
			return nil
		}
		return errors.Errorf("unknown input policy %d", policy)
	}
}

// Input seeds the input queue. Seeded values are restored by Reset.
func Input(values ...int64) Option {
	return func(mc *Machine) error {
		mc.seed = append(mc.seed, values...)
		return nil
	}
}

// New creates a machine running a copy of program.
func New(program []int64, opts ...Option) (*Machine, error) {
	mc := &Machine{
		image: append([]int64(nil), program...),
	}

	mc.State.Memory.Grow = true
	mc.State.Memory.Limit = DEFAULT_MEMORY_LIMIT

	for _, opt := range opts {
		if err := opt(mc); err != nil {
			return nil, err
		}
	}

	mc.Reset()
	return mc, nil
}

// Load parses a comma separated program image from reader and creates a
// machine running it.
func Load(reader io.Reader, opts ...Option) (*Machine, error) {
	program, err := encoding.ReadProgram(reader)

	if err != nil {
		return nil, err
	}

	return New(program, opts...)
}

// Reset restores the program image, clears both queues (re-seeding input) and
// rewinds the machine to its initial state.
func (mc *Machine) Reset() {
	size := int64(len(mc.image))

	if mc.size > size {
		size = mc.size
	}

	cells := make([]int64, size)
	copy(cells, mc.image)

	mc.State.Memory.Cells = cells
	mc.State.Program = 0
	mc.State.Relative = 0
	mc.State.Input = append([]int64(nil), mc.seed...)
	mc.State.Output = nil
	mc.State.Status = Runnable
	mc.State.Steps = 0
	mc.err = nil
}

// Clone returns an independent copy of the machine. The debugger is not
// carried over.
func (mc *Machine) Clone() *Machine {
	result := *mc
	result.Debugger = nil
	result.State.Memory = mc.State.Memory.clone()
	result.State.Input = append([]int64(nil), mc.State.Input...)
	result.State.Output = append([]int64(nil), mc.State.Output...)
	return &result
}

func (mc *Machine) IP() int64 {
	return mc.State.Program
}

func (mc *Machine) RelativeBase() int64 {
	return mc.State.Relative
}

func (mc *Machine) Status() Status {
	return mc.State.Status
}

// Err returns the error that faulted the machine, if any.
func (mc *Machine) Err() error {
	return mc.err
}

func (mc *Machine) MemoryLen() int64 {
	return mc.State.Memory.Len()
}

// Steps returns the number of instructions executed since the last Reset.
func (mc *Machine) Steps() uint64 {
	return mc.State.Steps
}

// PushInput appends values to the back of the input queue.
func (mc *Machine) PushInput(values ...int64) {
	mc.State.Input = append(mc.State.Input, values...)
}

// PushString appends the bytes of s to the input queue, one cell per byte.
func (mc *Machine) PushString(s string) {
	mc.PushInput(encoding.ASCII(s)...)
}

func (mc *Machine) PendingInput() int {
	return len(mc.State.Input)
}

func (mc *Machine) PendingOutput() int {
	return len(mc.State.Output)
}

// PopOutput removes and returns the oldest output value.
func (mc *Machine) PopOutput() (int64, bool) {
	if len(mc.State.Output) == 0 {
		return 0, false
	}

	value := mc.State.Output[0]
	mc.State.Output = mc.State.Output[1:]
	return value, true
}

// DrainOutput removes and returns every pending output value in order.
func (mc *Machine) DrainOutput() []int64 {
	result := mc.State.Output
	mc.State.Output = nil
	return result
}

// Peek reads a memory cell without going through the instruction set.
func (mc *Machine) Peek(addr int64) (int64, error) {
	return mc.State.Memory.Load(addr)
}

// Poke writes a memory cell without going through the instruction set, e.g.
// to patch a flag into the image before the first Run.
func (mc *Machine) Poke(addr int64, value int64) error {
	return mc.State.Memory.Store(addr, value)
}

func (mc *Machine) read(addr int64) (int64, error) {
	value, err := mc.State.Memory.Load(addr)

	if err == nil && mc.Debugger != nil {
		mc.Debugger.Read(addr, mc)
	}

	return value, err
}

func (mc *Machine) write(addr int64, value int64) error {
	if err := mc.State.Memory.Store(addr, value); err != nil {
		return err
	}

	if mc.Debugger != nil {
		mc.Debugger.Write(addr, mc)
	}

	return nil
}

// Run executes instructions until the machine needs input, has produced an
// output value, halts or faults. Calling Run again resumes where it stopped.
func (mc *Machine) Run() (Status, error) {
	for {
		status, err := mc.Step()

		if err != nil || status != Runnable {
			return status, err
		}
	}
}

// Step executes a single instruction. It reports Runnable when the
// instruction did not suspend the machine.
//
// A fatal error leaves the machine Faulted; every later call returns the same
// error until Reset.
func (mc *Machine) Step() (Status, error) {
	if mc.err != nil {
		return Faulted, mc.err
	}

	if mc.State.Status == Halted {
		return Halted, nil
	}

	status, err := mc.step()

	if err != nil {
		mc.err = errors.Wrapf(err, "ip %d", mc.State.Program)
		mc.State.Status = Faulted
		return Faulted, mc.err
	}

	mc.State.Status = status

	if mc.Debugger != nil {
		mc.Debugger.Step(mc)
	}

	return status, nil
}

func (mc *Machine) step() (Status, error) {
	ip := mc.State.Program

	if ip < 0 {
		return Faulted, errors.Wrap(ErrAddress, "negative instruction pointer")
	}

	if ip >= mc.State.Memory.Len() {
		return Halted, nil
	}

	in, err := Decode(mc.State.Memory.Cells[ip], mc.strict)

	if err != nil {
		return Faulted, err
	}

	params, err := mc.resolve(ip, in)

	if err != nil {
		return Faulted, errors.Wrapf(err, "%s", in.Opcode)
	}

	status, err := mc.execute(in, params)

	if err != nil {
		return Faulted, errors.Wrapf(err, "%s", in.Opcode)
	}

	return status, nil
}

// operands checks that the resolved parameters fit the opcode being executed.
func operands(in Instruction, params []int64, count int) error {
	if len(params) != count || in.Arity() != count {
		return errors.Wrapf(
			ErrArity, "want %d operands, decoded %d", count, len(params),
		)
	}

	return nil
}

func (mc *Machine) execute(in Instruction, params []int64) (Status, error) {
	switch in.Opcode {
	// ADD  |a    |b    |dst  | dst = a + b
	// MUL  |a    |b    |dst  | dst = a * b
	// LT   |a    |b    |dst  | dst = a < b
	// EQ   |a    |b    |dst  | dst = a == b
	// ---- [ R    R     W    ]
	case OP_ADD, OP_MUL, OP_LT, OP_EQ:
		if err := operands(in, params, 3); err != nil {
			return Faulted, err
		}

		a, b, dst := params[0], params[1], params[2]

		var result int64

		switch in.Opcode {
		case OP_ADD:
			result = a + b
		case OP_MUL:
			result = a * b
		case OP_LT:
			if a < b {
				result = 1
			}
		case OP_EQ:
			if a == b {
				result = 1
			}
		}

		if err := mc.write(dst, result); err != nil {
			return Faulted, err
		}

		mc.State.Program += 4

	// IN   |dst  | dst = next input, suspend when there is none
	// ---- [ W    ]
	case OP_IN:
		if err := operands(in, params, 1); err != nil {
			return Faulted, err
		}

		if len(mc.State.Input) == 0 {
			if mc.policy == FaultOnEmpty {
				return Faulted, ErrInputStarved
			}

			return AwaitingInput, nil
		}

		if err := mc.write(params[0], mc.State.Input[0]); err != nil {
			return Faulted, err
		}

		mc.State.Input = mc.State.Input[1:]
		mc.State.Program += 2

	// OUT  |a    | output a, always suspend
	// ---- [ R    ]
	case OP_OUT:
		if err := operands(in, params, 1); err != nil {
			return Faulted, err
		}

		mc.State.Output = append(mc.State.Output, params[0])
		mc.State.Program += 2
		mc.State.Steps++
		return ProducedOutput, nil

	// JT   |a    |b    | jump to b if a != 0
	// JF   |a    |b    | jump to b if a == 0
	// ---- [ R    R    ]
	case OP_JT, OP_JF:
		if err := operands(in, params, 2); err != nil {
			return Faulted, err
		}

		if (params[0] != 0) == (in.Opcode == OP_JT) {
			mc.State.Program = params[1]
		} else {
			mc.State.Program += 3
		}

	// ARB  |a    | relative base += a
	// ---- [ R    ]
	case OP_ARB:
		if err := operands(in, params, 1); err != nil {
			return Faulted, err
		}

		base, err := checkedAdd(mc.State.Relative, params[0])

		if err != nil {
			return Faulted, errors.Wrap(err, "relative base")
		}

		mc.State.Relative = base
		mc.State.Program += 2

	// HALT | stop, the instruction pointer stays on the HALT
	// ---- [ ]
	case OP_HALT:
		if err := operands(in, params, 0); err != nil {
			return Faulted, err
		}

		mc.State.Steps++
		return Halted, nil

	default:
		return Faulted, errors.Wrapf(ErrDecode, "no handler for %s", in.Opcode)
	}

	mc.State.Steps++
	return Runnable, nil
}
