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

package machine_test

import (
	"errors"
	"math"
	"testing"

	"github.com/lassandro/intcode/pkg/machine"
)

var quine = []int64{
	109, 1, 204, -1, 1001, 100, 1, 100, 1008, 100, 16, 101, 1006, 101, 0, 99,
}

// Outputs 999 below 8, 1000 for 8 and 1001 above 8
var compare8 = []int64{
	3, 21, 1008, 21, 8, 20, 1005, 20, 22, 107, 8, 21, 20, 1006, 20, 31, 1106,
	0, 36, 98, 0, 0, 1002, 21, 125, 20, 4, 20, 1105, 1, 46, 104, 999, 1105, 1,
	46, 1101, 1000, 1, 20, 4, 20, 1105, 1, 46, 98, 99,
}

type testCase struct {
	Name    string
	Image   []int64
	Options []machine.Option
	Input   []int64
	Output  []int64
	Memory  map[int64]int64
	Program int64
	Status  machine.Status
	Error   error
}

// Runs until the machine stops for anything other than output
func runMachine(mc *machine.Machine) (machine.Status, error) {
	for {
		status, err := mc.Run()

		if err != nil || status != machine.ProducedOutput {
			return status, err
		}
	}
}

func equal(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func testMachine(t *testing.T, test *testCase) {
	opts := append([]machine.Option{machine.Input(test.Input...)}, test.Options...)
	mc, err := machine.New(test.Image, opts...)

	if err != nil {
		t.Fatalf("Unexpected error creating machine: %v", err)
	}

	status, err := runMachine(mc)

	if test.Error != nil {
		if !errors.Is(err, test.Error) {
			t.Errorf("Error mismatch\nwant:%v (test.Error)\nhave:%v", test.Error, err)
		}
	} else if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}

	if status != test.Status {
		t.Errorf("Status mismatch\nwant:%s (test.Status)\nhave:%s", test.Status, status)
	}

	if mc.IP() != test.Program {
		t.Errorf("Program mismatch\nwant:%d (test.Program)\nhave:%d", test.Program, mc.IP())
	}

	if have := mc.DrainOutput(); !equal(have, test.Output) {
		t.Errorf("Output mismatch\nwant:%v (test.Output)\nhave:%v", test.Output, have)
	}

	for addr, want := range test.Memory {
		have, err := mc.Peek(addr)

		if err != nil {
			t.Errorf("Unexpected error reading [%d]: %v", addr, err)
		} else if have != want {
			t.Errorf("Memory mismatch\nwant:%d (test.Memory[%d])\nhave:%d", want, addr, have)
		}
	}
}

func TestArithmetic(t *testing.T) {
	tests := []testCase{
		{
			Name:    "AddMul",
			Image:   []int64{1, 9, 10, 3, 2, 3, 11, 0, 99, 30, 40, 50},
			Memory:  map[int64]int64{0: 3500, 3: 70},
			Program: 8,
			Status:  machine.Halted,
		},
		{
			Name:    "ImmediateMul",
			Image:   []int64{1002, 4, 3, 4, 33},
			Memory:  map[int64]int64{4: 99},
			Program: 4,
			Status:  machine.Halted,
		},
		{
			Name:    "NegativeImmediate",
			Image:   []int64{1101, 100, -1, 4, 0},
			Memory:  map[int64]int64{4: 99},
			Program: 4,
			Status:  machine.Halted,
		},
		{
			Name:    "Square",
			Image:   []int64{2, 4, 4, 5, 99, 0},
			Memory:  map[int64]int64{5: 9801},
			Program: 4,
			Status:  machine.Halted,
		},
		{
			Name:    "LargeMul",
			Image:   []int64{1102, 1125899906842624, 1, 7, 4, 7, 99, 0},
			Output:  []int64{1125899906842624},
			Program: 6,
			Status:  machine.Halted,
		},
		{
			Name:    "SixteenDigits",
			Image:   []int64{1102, 34915192, 34915192, 7, 4, 7, 99, 0},
			Output:  []int64{1219070632396864},
			Program: 6,
			Status:  machine.Halted,
		},
		{
			Name:    "LargeOutput",
			Image:   []int64{104, 1125899906842624, 99},
			Output:  []int64{1125899906842624},
			Program: 2,
			Status:  machine.Halted,
		},
		{
			Name:    "RunPastEnd",
			Image:   []int64{1101, 1, 1, 0},
			Memory:  map[int64]int64{0: 2},
			Program: 4,
			Status:  machine.Halted,
		},
	}

	for i := range tests {
		t.Run(tests[i].Name, func(t *testing.T) { testMachine(t, &tests[i]) })
	}
}

func TestComparison(t *testing.T) {
	tests := []testCase{
		{
			Name:    "EqualImmediate",
			Image:   []int64{1108, 7, 7, 5, 99, -1},
			Memory:  map[int64]int64{5: 1},
			Program: 4,
			Status:  machine.Halted,
		},
		{
			Name:    "NotEqualImmediate",
			Image:   []int64{1108, 7, 8, 5, 99, -1},
			Memory:  map[int64]int64{5: 0},
			Program: 4,
			Status:  machine.Halted,
		},
		{
			Name:    "LessImmediate",
			Image:   []int64{1107, 3, 4, 5, 99, -1},
			Memory:  map[int64]int64{5: 1},
			Program: 4,
			Status:  machine.Halted,
		},
		{
			Name:    "NotLessImmediate",
			Image:   []int64{1107, 4, 3, 5, 99, -1},
			Memory:  map[int64]int64{5: 0},
			Program: 4,
			Status:  machine.Halted,
		},
		{
			Name:    "NotLessEqual",
			Image:   []int64{1107, 4, 4, 5, 99, -1},
			Memory:  map[int64]int64{5: 0},
			Program: 4,
			Status:  machine.Halted,
		},
		{
			Name:    "EqualPosition",
			Image:   []int64{3, 9, 8, 9, 10, 9, 4, 9, 99, -1, 8},
			Input:   []int64{8},
			Output:  []int64{1},
			Program: 8,
			Status:  machine.Halted,
		},
		{
			Name:    "NotEqualPosition",
			Image:   []int64{3, 9, 8, 9, 10, 9, 4, 9, 99, -1, 8},
			Input:   []int64{7},
			Output:  []int64{0},
			Program: 8,
			Status:  machine.Halted,
		},
		{
			Name:    "LessPosition",
			Image:   []int64{3, 9, 7, 9, 10, 9, 4, 9, 99, -1, 8},
			Input:   []int64{5},
			Output:  []int64{1},
			Program: 8,
			Status:  machine.Halted,
		},
		{
			Name:    "EqualInputImmediate",
			Image:   []int64{3, 3, 1108, -1, 8, 3, 4, 3, 99},
			Input:   []int64{8},
			Output:  []int64{1},
			Program: 8,
			Status:  machine.Halted,
		},
		{
			Name:    "LessInputImmediate",
			Image:   []int64{3, 3, 1107, -1, 8, 3, 4, 3, 99},
			Input:   []int64{9},
			Output:  []int64{0},
			Program: 8,
			Status:  machine.Halted,
		},
		{
			Name:    "CompareBelow",
			Image:   compare8,
			Input:   []int64{7},
			Output:  []int64{999},
			Program: 46,
			Status:  machine.Halted,
		},
		{
			Name:    "CompareEqual",
			Image:   compare8,
			Input:   []int64{8},
			Output:  []int64{1000},
			Program: 46,
			Status:  machine.Halted,
		},
		{
			Name:    "CompareAbove",
			Image:   compare8,
			Input:   []int64{9},
			Output:  []int64{1001},
			Program: 46,
			Status:  machine.Halted,
		},
	}

	for i := range tests {
		t.Run(tests[i].Name, func(t *testing.T) { testMachine(t, &tests[i]) })
	}
}

func TestJump(t *testing.T) {
	tests := []testCase{
		{
			Name:    "TrueFallsThroughOnZero",
			Image:   []int64{1105, 0, 7, 104, 1, 99, 0, 104, 2, 99},
			Output:  []int64{1},
			Program: 5,
			Status:  machine.Halted,
		},
		{
			Name:    "TrueJumps",
			Image:   []int64{1105, 1, 7, 104, 1, 99, 0, 104, 2, 99},
			Output:  []int64{2},
			Program: 9,
			Status:  machine.Halted,
		},
		{
			// Any nonzero value is true, negative ones included
			Name:    "TrueJumpsOnNegative",
			Image:   []int64{1105, -1, 7, 104, 1, 99, 0, 104, 2, 99},
			Output:  []int64{2},
			Program: 9,
			Status:  machine.Halted,
		},
		{
			Name:    "FalseJumpsOnZero",
			Image:   []int64{1106, 0, 7, 104, 1, 99, 0, 104, 2, 99},
			Output:  []int64{2},
			Program: 9,
			Status:  machine.Halted,
		},
		{
			Name:    "FalseFallsThrough",
			Image:   []int64{1106, 5, 7, 104, 1, 99, 0, 104, 2, 99},
			Output:  []int64{1},
			Program: 5,
			Status:  machine.Halted,
		},
		{
			Name: "PositionZero",
			Image: []int64{
				3, 12, 6, 12, 15, 1, 13, 14, 13, 4, 13, 99, -1, 0, 1, 9,
			},
			Input:   []int64{0},
			Output:  []int64{0},
			Program: 11,
			Status:  machine.Halted,
		},
		{
			Name: "PositionNonZero",
			Image: []int64{
				3, 12, 6, 12, 15, 1, 13, 14, 13, 4, 13, 99, -1, 0, 1, 9,
			},
			Input:   []int64{3},
			Output:  []int64{1},
			Program: 11,
			Status:  machine.Halted,
		},
		{
			Name:    "ImmediateZero",
			Image:   []int64{3, 3, 1105, -1, 9, 1101, 0, 0, 12, 4, 12, 99, 1},
			Input:   []int64{0},
			Output:  []int64{0},
			Program: 11,
			Status:  machine.Halted,
		},
		{
			Name:    "ImmediateNonZero",
			Image:   []int64{3, 3, 1105, -1, 9, 1101, 0, 0, 12, 4, 12, 99, 1},
			Input:   []int64{-4},
			Output:  []int64{1},
			Program: 11,
			Status:  machine.Halted,
		},
	}

	for i := range tests {
		t.Run(tests[i].Name, func(t *testing.T) { testMachine(t, &tests[i]) })
	}
}

func TestRelative(t *testing.T) {
	tests := []testCase{
		{
			Name:    "Quine",
			Image:   quine,
			Output:  quine,
			Memory:  map[int64]int64{100: 16, 101: 1},
			Program: 15,
			Status:  machine.Halted,
		},
		{
			Name:    "RelativeWrite",
			Image:   []int64{109, 10, 21101, 3, 4, 0, 204, 0, 99},
			Output:  []int64{7},
			Memory:  map[int64]int64{10: 7},
			Program: 8,
			Status:  machine.Halted,
		},
		{
			Name:    "RelativeInput",
			Image:   []int64{109, 5, 203, 2, 204, 2, 99},
			Input:   []int64{42},
			Output:  []int64{42},
			Memory:  map[int64]int64{7: 42},
			Program: 6,
			Status:  machine.Halted,
		},
		{
			Name:    "AdjustFromMemory",
			Image:   []int64{9, 6, 204, 1, 99, 0, 3},
			Output:  []int64{99},
			Program: 4,
			Status:  machine.Halted,
		},
	}

	for i := range tests {
		t.Run(tests[i].Name, func(t *testing.T) { testMachine(t, &tests[i]) })
	}
}

func TestFaults(t *testing.T) {
	tests := []testCase{
		{
			Name:    "InvalidMode",
			Image:   []int64{301, 0, 0, 0, 99},
			Program: 0,
			Status:  machine.Faulted,
			Error:   machine.ErrDecode,
		},
		{
			// Immediate mode on a write slot addresses like position mode
			Name:    "ImmediateWrite",
			Image:   []int64{11101, 1, 1, 5, 99, 0},
			Memory:  map[int64]int64{5: 2},
			Program: 4,
			Status:  machine.Halted,
		},
		{
			Name:    "NegativeWordLenient",
			Image:   []int64{-1, 99},
			Program: 0,
			Status:  machine.Halted,
		},
		{
			Name:    "NegativeWordStrict",
			Image:   []int64{-1, 99},
			Options: []machine.Option{machine.Strict(true)},
			Status:  machine.Faulted,
			Error:   machine.ErrDecode,
		},
		{
			Name:    "UnknownOpcodeLenient",
			Image:   []int64{104, 1, 42, 104, 2, 99},
			Output:  []int64{1},
			Program: 2,
			Status:  machine.Halted,
		},
		{
			Name:    "UnknownOpcodeStrict",
			Image:   []int64{104, 1, 42, 104, 2, 99},
			Options: []machine.Option{machine.Strict(true)},
			Output:  []int64{1},
			Program: 2,
			Status:  machine.Faulted,
			Error:   machine.ErrDecode,
		},
		{
			Name:   "NegativeRead",
			Image:  []int64{4, -5, 99},
			Status: machine.Faulted,
			Error:  machine.ErrAddress,
		},
		{
			Name:   "NegativeRelativeRead",
			Image:  []int64{204, -1, 99},
			Status: machine.Faulted,
			Error:  machine.ErrAddress,
		},
		{
			Name:   "NegativeWrite",
			Image:  []int64{1101, 1, 1, -2, 99},
			Status: machine.Faulted,
			Error:  machine.ErrAddress,
		},
		{
			Name:    "NegativeRelativeBase",
			Image:   []int64{109, 3, 109, -4, 99},
			Program: 2,
			Status:  machine.Faulted,
			Error:   machine.ErrAddress,
		},
		{
			Name:    "RelativeOverflow",
			Image:   []int64{109, math.MaxInt64, 209, 1, 99},
			Program: 2,
			Status:  machine.Faulted,
			Error:   machine.ErrAddress,
		},
		{
			Name:    "NegativeJump",
			Image:   []int64{1105, 1, -3},
			Program: -3,
			Status:  machine.Faulted,
			Error:   machine.ErrAddress,
		},
		{
			Name:    "FixedMemoryWrite",
			Image:   []int64{1101, 1, 1, 10, 99},
			Options: []machine.Option{machine.Growth(false)},
			Status:  machine.Faulted,
			Error:   machine.ErrAddress,
		},
		{
			Name:    "FixedMemoryRead",
			Image:   []int64{4, 50, 99},
			Options: []machine.Option{machine.Growth(false)},
			Status:  machine.Faulted,
			Error:   machine.ErrAddress,
		},
		{
			Name:    "PaddedMemoryWrite",
			Image:   []int64{1101, 1, 1, 10, 99},
			Options: []machine.Option{machine.Growth(false), machine.MemorySize(16)},
			Memory:  map[int64]int64{10: 2},
			Program: 4,
			Status:  machine.Halted,
		},
		{
			Name:    "MemoryLimit",
			Image:   []int64{1101, 1, 1, 10, 99},
			Options: []machine.Option{machine.MemoryLimit(8)},
			Status:  machine.Faulted,
			Error:   machine.ErrAddress,
		},
		{
			Name:    "InputStarved",
			Image:   []int64{3, 0, 99},
			Options: []machine.Option{machine.Policy(machine.FaultOnEmpty)},
			Status:  machine.Faulted,
			Error:   machine.ErrInputStarved,
		},
		{
			Name:   "AwaitingInput",
			Image:  []int64{3, 0, 99},
			Status: machine.AwaitingInput,
		},
	}

	for i := range tests {
		t.Run(tests[i].Name, func(t *testing.T) { testMachine(t, &tests[i]) })
	}
}
