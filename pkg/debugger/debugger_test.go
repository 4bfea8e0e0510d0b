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

package debugger_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lassandro/intcode/pkg/assembler"
	"github.com/lassandro/intcode/pkg/debugger"
	"github.com/lassandro/intcode/pkg/machine"
)

func newMachine(t *testing.T, program ...int64) *machine.Machine {
	t.Helper()

	mc, err := machine.New(program)

	if err != nil {
		t.Fatal(err)
	}

	return mc
}

func TestDisassemble(t *testing.T) {
	tests := []struct {
		Program []int64
		Addr    int64
		Text    string
		Next    int64
	}{
		{[]int64{1, 9, 10, 3}, 0, "ADD [9], [10], [3]", 4},
		{[]int64{1002, 4, 3, 4}, 0, "MUL [4], #3, [4]", 4},
		{[]int64{0, 203, -2}, 1, "IN [rb-2]", 3},
		{[]int64{204, 5}, 0, "OUT [rb+5]", 2},
		{[]int64{1105, 1, 7}, 0, "JT #1, #7", 3},
		{[]int64{6, 1, 7}, 0, "JF [1], [7]", 3},
		{[]int64{21107, 1, 2, 3}, 0, "LT #1, #2, [rb+3]", 4},
		{[]int64{1008, 1, 2, 3}, 0, "EQ [1], #2, [3]", 4},
		{[]int64{109, -1}, 0, "ARB #-1", 2},
		{[]int64{99}, 0, "HALT", 1},
		{[]int64{42}, 0, "HALT (42)", 1},
		{[]int64{301, 0, 0, 0}, 0, ".DATA 301", 1},
		{[]int64{-7}, 0, "HALT (-7)", 1},
	}

	for _, test := range tests {
		mc := newMachine(t, test.Program...)
		text, next := debugger.Disassemble(mc, test.Addr)

		if text != test.Text || next != test.Next {
			t.Errorf(
				"Disassembly mismatch for %v\nwant:%q %d\nhave:%q %d",
				test.Program, test.Text, test.Next, text, next,
			)
		}
	}
}

func TestBreakpoints(t *testing.T) {
	var dbg debugger.Debugger

	if !dbg.AddBreakpoint(4) || !dbg.AddBreakpoint(8) {
		t.Fatal("Expected breakpoints to be added")
	}

	if dbg.AddBreakpoint(4) {
		t.Error("Duplicate breakpoint added")
	}

	var hits []int64

	dbg.HandleBreak = func(dbg *debugger.Debugger, mc *machine.Machine) {
		hits = append(hits, mc.IP())
	}

	mc := newMachine(t, 1101, 1, 1, 20, 1101, 2, 2, 21, 1101, 3, 3, 22, 99)
	mc.Debugger = &dbg

	for status := machine.Runnable; status == machine.Runnable; {
		status, _ = mc.Run()
	}

	if len(hits) != 2 || hits[0] != 4 || hits[1] != 8 {
		t.Errorf("Breakpoint hits mismatch\nwant:[4 8]\nhave:%v", hits)
	}

	if err := dbg.RemoveBreakpoint(0); err != nil {
		t.Fatal(err)
	}

	if len(dbg.Breakpoints) != 1 || dbg.Breakpoints[0].Addr != 8 {
		t.Errorf("Breakpoints mismatch after remove: %v", dbg.Breakpoints)
	}

	if err := dbg.RemoveBreakpoint(3); err == nil {
		t.Error("Expected error removing missing breakpoint")
	}
}

func TestBreakFlag(t *testing.T) {
	var dbg debugger.Debugger
	steps := 0

	dbg.Break.Store(true)
	dbg.HandleBreak = func(dbg *debugger.Debugger, mc *machine.Machine) {
		steps++
	}

	mc := newMachine(t, 1101, 1, 1, 20, 1101, 2, 2, 21, 99)
	mc.Debugger = &dbg
	mc.Run()

	if steps != 3 {
		t.Errorf("Single step count mismatch\nwant:3\nhave:%d", steps)
	}
}

func TestBreakFromGoroutine(t *testing.T) {
	var dbg debugger.Debugger
	stopped := false

	dbg.HandleBreak = func(dbg *debugger.Debugger, mc *machine.Machine) {
		stopped = true
	}

	mc := newMachine(t, 1105, 1, 0)
	mc.Debugger = &dbg

	go dbg.Break.Store(true)

	for !stopped {
		if _, err := mc.Step(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestWatchpoints(t *testing.T) {
	var dbg debugger.Debugger
	var reads, writes []int64

	dbg.AddWatchpoint(20, debugger.WriteWatch)
	dbg.AddWatchpoint(21, debugger.ReadWatch)
	dbg.AddWatchpoint(22, debugger.ReadWriteWatch)

	if dbg.AddWatchpoint(22, debugger.ReadWriteWatch) {
		t.Error("Duplicate watchpoint added")
	}

	dbg.HandleRead = func(addr int64, dbg *debugger.Debugger, mc *machine.Machine) {
		reads = append(reads, addr)
	}

	dbg.HandleWrite = func(addr int64, dbg *debugger.Debugger, mc *machine.Machine) {
		writes = append(writes, addr)
	}

	// [20] = [21] + [22], then [22] = [20] + [21]
	mc := newMachine(t, 1, 21, 22, 20, 1, 20, 21, 22, 99)
	mc.Debugger = &dbg
	mc.Run()

	if want := []int64{21, 22, 21}; len(reads) != len(want) || reads[0] != 21 || reads[1] != 22 || reads[2] != 21 {
		t.Errorf("Read watch mismatch\nwant:%v\nhave:%v", want, reads)
	}

	if want := []int64{20, 22}; len(writes) != len(want) || writes[0] != 20 || writes[1] != 22 {
		t.Errorf("Write watch mismatch\nwant:%v\nhave:%v", want, writes)
	}

	if err := dbg.RemoveWatchpoint(0); err != nil || len(dbg.Watchpoints) != 2 {
		t.Errorf("Remove watchpoint failed: %v %v", err, dbg.Watchpoints)
	}

	if err := dbg.RemoveWatchpoint(-1); err == nil {
		t.Error("Expected error removing missing watchpoint")
	}
}

func TestPrint(t *testing.T) {
	var dbg debugger.Debugger
	var buffer bytes.Buffer

	mc := newMachine(t, 1002, 4, 3, 4, 33, 0, 7)
	dbg.AddBreakpoint(4)

	dbg.PrintCode(&buffer, mc, 0, 2)
	code := buffer.String()

	if !strings.Contains(code, "MUL [4], #3, [4]") || !strings.Contains(code, "HALT (33)") {
		t.Errorf("Unexpected code listing:\n%s", code)
	}

	if !strings.HasPrefix(code, ">") {
		t.Errorf("Expected current instruction marker:\n%s", code)
	}

	if lines := strings.Split(strings.TrimSpace(code), "\n"); len(lines) != 2 || !strings.HasPrefix(lines[1], "*") {
		t.Errorf("Expected breakpoint marker on second line:\n%s", code)
	}

	buffer.Reset()
	dbg.PrintMem(&buffer, mc, 4, 3)

	if mem := buffer.String(); !strings.Contains(mem, "33 ") || !strings.Contains(mem, "7 ") {
		t.Errorf("Unexpected memory dump:\n%s", mem)
	}

	buffer.Reset()
	dbg.PrintState(&buffer, mc)

	if state := buffer.String(); !strings.Contains(state, "runnable") {
		t.Errorf("Unexpected state dump:\n%s", state)
	}
}

func TestSymbols(t *testing.T) {
	const source = "start IN [rb+0]\n" +
		"      OUT #1\n" +
		"end   HALT\n"

	symtable := assembler.NewSymTable("")
	program, errs := assembler.Assemble(strings.NewReader(source), symtable)

	if len(errs) > 0 {
		t.Fatal(errs[0])
	}

	dbg := debugger.Debugger{
		Source:   strings.NewReader(source),
		SymTable: symtable,
	}

	mc := newMachine(t, program...)

	tests := []struct {
		Arg  string
		Addr int64
	}{
		{"start", 0},
		{"end", 4},
		{"0x2", 2},
		{"#3", 3},
	}

	for _, test := range tests {
		if addr, err := dbg.Resolve(test.Arg); err != nil || addr != test.Addr {
			t.Errorf("Resolve(%q)\nwant:%d\nhave:%d %v", test.Arg, test.Addr, addr, err)
		}
	}

	if _, err := dbg.Resolve("nope"); err == nil {
		t.Error("Expected error resolving unknown label")
	}

	var buffer bytes.Buffer
	dbg.PrintSource(&buffer, 2, 2)

	if src := buffer.String(); !strings.Contains(src, "[0002]\033[0m       OUT #1") ||
		!strings.Contains(src, "[0004]\033[0m end   HALT") ||
		strings.Contains(src, "IN") {
		t.Errorf("Unexpected source listing:\n%s", src)
	}

	buffer.Reset()
	dbg.PrintSource(&buffer, 1, 1)

	if src := buffer.String(); !strings.Contains(src, "No instruction found") {
		t.Errorf("Unexpected source listing:\n%s", src)
	}

	buffer.Reset()
	dbg.PrintCode(&buffer, mc, 0, 3)

	if code := buffer.String(); !strings.Contains(code, "start:") || !strings.Contains(code, "end:") {
		t.Errorf("Expected labels in code listing:\n%s", code)
	}
}

func TestDisassembleRoundTrip(t *testing.T) {
	programs := [][]int64{
		{109, 1, 204, -1, 1001, 100, 1, 100, 1008, 100, 16, 101, 1006, 101, 0, 99},
		{3, 9, 8, 9, 10, 9, 4, 9, 99},
		{21101, -3, 7, 0, 2205, 1, 2, 1107, 5, 4, 12, 99},
	}

	for _, program := range programs {
		mc := newMachine(t, program...)
		lines := make([]string, 0, len(program))

		for addr := int64(0); addr < mc.MemoryLen(); {
			var text string
			text, addr = debugger.Disassemble(mc, addr)
			lines = append(lines, text)
		}

		source := strings.Join(lines, "\n")
		have, errs := assembler.Assemble(strings.NewReader(source), nil)

		if len(errs) > 0 {
			t.Fatalf("%v\n%s", errs, source)
		}

		if len(have) != len(program) {
			t.Fatalf("Round trip mismatch\nwant:%v\nhave:%v", program, have)
		}

		for i := range program {
			if have[i] != program[i] {
				t.Fatalf("Round trip mismatch\nwant:%v\nhave:%v", program, have)
			}
		}
	}
}
