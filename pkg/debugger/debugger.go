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

package debugger

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/lassandro/intcode/pkg/encoding"
	"github.com/lassandro/intcode/pkg/machine"
)

func (dbg *Debugger) Step(mc *machine.Machine) {
	if dbg.HandleBreak == nil {
		return
	}

	if dbg.Break.Load() {
		dbg.HandleBreak(dbg, mc)
		return
	}

	for _, breakpoint := range dbg.Breakpoints {
		if mc.State.Program == breakpoint.Addr {
			dbg.HandleBreak(dbg, mc)
			break
		}
	}
}

func (dbg *Debugger) Read(addr int64, mc *machine.Machine) {
	if dbg.HandleRead == nil {
		return
	}

	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Type == WriteWatch {
			continue
		}

		if addr == watchpoint.Addr {
			dbg.HandleRead(addr, dbg, mc)
			break
		}
	}
}

func (dbg *Debugger) Write(addr int64, mc *machine.Machine) {
	if dbg.HandleWrite == nil {
		return
	}

	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Type == ReadWatch {
			continue
		}

		if addr == watchpoint.Addr {
			dbg.HandleWrite(addr, dbg, mc)
			break
		}
	}
}

// Resolve turns a label from the symbol table or a number into an address.
func (dbg *Debugger) Resolve(arg string) (int64, error) {
	if dbg.SymTable != nil {
		if addr, ok := dbg.SymTable.Address(arg); ok {
			return addr, nil
		}
	}

	return encoding.DecodeNumber(arg)
}

// AddBreakpoint reports false if a breakpoint already exists at addr.
func (dbg *Debugger) AddBreakpoint(addr int64) bool {
	for _, breakpoint := range dbg.Breakpoints {
		if breakpoint.Addr == addr {
			return false
		}
	}

	dbg.Breakpoints = append(dbg.Breakpoints, Breakpoint{addr})
	return true
}

func (dbg *Debugger) RemoveBreakpoint(i int) error {
	if i < 0 || i >= len(dbg.Breakpoints) {
		return errors.Errorf("invalid breakpoint number %d", i)
	}

	dbg.Breakpoints[i] = dbg.Breakpoints[len(dbg.Breakpoints)-1]
	dbg.Breakpoints = dbg.Breakpoints[:len(dbg.Breakpoints)-1]
	return nil
}

// AddWatchpoint reports false if the same watchpoint already exists.
func (dbg *Debugger) AddWatchpoint(addr int64, wtype WatchpointType) bool {
	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Addr == addr && watchpoint.Type == wtype {
			return false
		}
	}

	dbg.Watchpoints = append(dbg.Watchpoints, Watchpoint{addr, wtype})
	return true
}

func (dbg *Debugger) RemoveWatchpoint(i int) error {
	if i < 0 || i >= len(dbg.Watchpoints) {
		return errors.Errorf("invalid watchpoint number %d", i)
	}

	dbg.Watchpoints[i] = dbg.Watchpoints[len(dbg.Watchpoints)-1]
	dbg.Watchpoints = dbg.Watchpoints[:len(dbg.Watchpoints)-1]
	return nil
}

// Disassemble renders the instruction at addr and returns the address of the
// one after it. Cells that do not decode are shown as data.
//
// Operands are written as [n] for position mode, #n for immediate mode and
// [rb+n] for relative mode.
func Disassemble(mc *machine.Machine, addr int64) (string, int64) {
	word, err := mc.Peek(addr)

	if err != nil {
		return "??", addr + 1
	}

	in, err := machine.Decode(word, true)

	if err != nil {
		if lenient, lerr := machine.Decode(word, false); lerr == nil {
			// Unknown opcode, executes as a HALT unless strict
			return fmt.Sprintf("HALT (%d)", lenient.Word), addr + 1
		}

		return fmt.Sprintf(".DATA %d", word), addr + 1
	}

	var builder strings.Builder
	builder.WriteString(in.Opcode.String())

	for i := 0; i < in.Arity(); i++ {
		raw, _ := mc.Peek(addr + 1 + int64(i))

		if i == 0 {
			builder.WriteByte(' ')
		} else {
			builder.WriteString(", ")
		}

		switch in.Modes[i] {
		case machine.MODE_POSITION:
			fmt.Fprintf(&builder, "[%d]", raw)
		case machine.MODE_IMMEDIATE:
			fmt.Fprintf(&builder, "#%d", raw)
		case machine.MODE_RELATIVE:
			fmt.Fprintf(&builder, "[rb%+d]", raw)
		}
	}

	return builder.String(), addr + in.Size()
}

func (dbg *Debugger) PrintCode(w io.Writer, mc *machine.Machine, addr, count int64) {
	for i := int64(0); i < count; i++ {
		if addr >= mc.MemoryLen() {
			break
		}

		text, next := Disassemble(mc, addr)
		marker := " "

		if addr == mc.State.Program {
			marker = ">"
		}

		for _, breakpoint := range dbg.Breakpoints {
			if breakpoint.Addr == addr {
				marker = "*"
				break
			}
		}

		if dbg.SymTable != nil {
			if label, ok := dbg.SymTable.Labels[addr]; ok {
				fmt.Fprintf(w, "\033[1;30m%s:\033[0m\n", label)
			}
		}

		fmt.Fprintf(w, "%s\033[1m[%04d]\033[0m %s\n", marker, addr, text)
		addr = next
	}
}

// PrintSource prints count lines of assembly source starting at the line
// that produced addr. Lines that did not produce any cells are shown
// without an address.
func (dbg *Debugger) PrintSource(w io.Writer, addr int64, count int64) {
	if dbg.Source == nil {
		fmt.Fprintln(w, "No source file loaded")
		return
	}

	if dbg.SymTable == nil {
		fmt.Fprintln(w, "No symbol table loaded")
		return
	}

	offset, exists := dbg.SymTable.Symbols[addr]

	if !exists {
		fmt.Fprintf(w, "No instruction found at %04d\n", addr)
		return
	}

	lines := make(map[int64]int64, len(dbg.SymTable.Symbols))

	for lineaddr, linebyte := range dbg.SymTable.Symbols {
		lines[linebyte] = lineaddr
	}

	if _, err := dbg.Source.Seek(offset, io.SeekStart); err != nil {
		fmt.Fprintln(w, err)
		return
	}

	scanner := bufio.NewScanner(dbg.Source)
	scanner.Split(bufio.ScanLines)

	for i := int64(0); i < count; i++ {
		if !scanner.Scan() {
			break
		}

		line := scanner.Text()

		if lineaddr, ok := lines[offset]; ok {
			fmt.Fprintf(w, "\033[1m[%04d]\033[0m ", lineaddr)
		} else {
			fmt.Fprint(w, "\033[1;30m~~~~~~\033[0m ")
		}

		fmt.Fprintln(w, line)

		offset += int64(len(line) + 1)
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintln(w, err)
	}
}

func (dbg *Debugger) PrintMem(w io.Writer, mc *machine.Machine, addr, count int64) {
	for i := addr; i < addr+count; i++ {
		if i == addr {
			fmt.Fprintf(w, "\033[1m[%04d]\033[0m ", i)
		} else if (i-addr)%8 == 0 {
			fmt.Fprintln(w)
			fmt.Fprintf(w, "\033[1m[%04d]\033[0m ", i)
		}

		result, err := mc.Peek(i)

		if err != nil {
			fmt.Fprint(w, "\033[1;31m??\033[0m ")
		} else if result == 0 {
			fmt.Fprintf(w, "\033[1;30m%d\033[0m ", result)
		} else {
			fmt.Fprintf(w, "%d ", result)
		}
	}

	fmt.Fprintln(w)
}

func (dbg *Debugger) PrintState(w io.Writer, mc *machine.Machine) {
	fmt.Fprintf(
		w,
		"\033[1mIP:\033[0m %d\t\033[1mRB:\033[0m %d\t\033[1mSTATUS:\033[0m %s\n",
		mc.IP(), mc.RelativeBase(), mc.Status(),
	)

	fmt.Fprintf(
		w,
		"\033[1mIN:\033[0m %v\t\033[1mOUT:\033[0m %v\t\033[1mSTEPS:\033[0m %d\n",
		mc.State.Input, mc.State.Output, mc.Steps(),
	)
}
