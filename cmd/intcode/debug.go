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

package main

import (
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/lassandro/intcode/pkg/assembler"
	"github.com/lassandro/intcode/pkg/debugger"
	"github.com/lassandro/intcode/pkg/encoding"
	"github.com/lassandro/intcode/pkg/machine"
)

var lastcmd []string

func debugBreak(dbg *debugger.Debugger, args []string) {
	const usage = "break [add|list|remove|clear]"

	if len(args) == 0 {
		args = append(args, "l")
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "a", "add":
		const usage = "break add [addr|label]"

		if len(args) != 1 {
			log.Println(usage)
			return
		}

		addr, err := dbg.Resolve(args[0])

		if err != nil {
			log.Println(err)
			return
		}

		if dbg.AddBreakpoint(addr) {
			fmt.Printf("Breakpoint added [%04d]\n", addr)
		}

	case "l", "ls", "list":
		const usage = "break list"

		if len(args) != 0 {
			log.Println(usage)
			return
		}

		var fmtstring string
		{
			digits := math.Floor(math.Log10(float64(len(dbg.Breakpoints) + 1)))
			fmtstring = fmt.Sprintf("#%%0%dd: [%%04d]\n", int64(digits)+1)
		}

		for i, breakpoint := range dbg.Breakpoints {
			fmt.Printf(fmtstring, i, breakpoint.Addr)
		}

	case "r", "rm", "remove":
		const usage = "break remove [#]"

		if len(args) != 1 {
			log.Println(usage)
			return
		}

		i, err := strconv.Atoi(args[0])

		if err != nil {
			log.Println(err)
			return
		}

		if err := dbg.RemoveBreakpoint(i); err != nil {
			log.Println(err)
			return
		}

		fmt.Printf("Breakpoint removed [%d]\n", i)

	case "clear":
		dbg.Breakpoints = make([]debugger.Breakpoint, 0)
		fmt.Println("Breakpoints reset")

	default:
		log.Printf("break: '%s' is not a valid command\n", cmd)
		log.Println(usage)
	}
}

func debugWatch(dbg *debugger.Debugger, args []string) {
	const usage = "watch [add|list|rm|clear]"

	if len(args) == 0 {
		log.Println(usage)
		return
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "a", "add":
		const usage = "watch add [addr|label] [read|write|readwrite]"

		if len(args) != 2 {
			log.Println(usage)
			return
		}

		addr, err := dbg.Resolve(args[0])

		if err != nil {
			log.Println(err)
			return
		}

		var wtype debugger.WatchpointType

		switch args[1] {
		case "r", "read":
			wtype = debugger.ReadWatch
		case "w", "write":
			wtype = debugger.WriteWatch
		case "rw", "rwrite", "readwrite":
			wtype = debugger.ReadWriteWatch
		default:
			log.Println(usage)
			return
		}

		if dbg.AddWatchpoint(addr, wtype) {
			fmt.Printf("Watchpoint added [%04d] (%s)\n", addr, wtype)
		}

	case "l", "ls", "list":
		const usage = "watch list"

		if len(args) != 0 {
			log.Println(usage)
			return
		}

		var fmtstring string
		{
			digits := math.Floor(math.Log10(float64(len(dbg.Watchpoints) + 1)))
			fmtstring = fmt.Sprintf("#%%0%dd: [%%04d] %%s\n", int64(digits)+1)
		}

		for i, watchpoint := range dbg.Watchpoints {
			fmt.Printf(fmtstring, i, watchpoint.Addr, watchpoint.Type)
		}

	case "r", "rm", "remove":
		const usage = "watch rm [#]"

		if len(args) != 1 {
			log.Println(usage)
			return
		}

		i, err := strconv.Atoi(args[0])

		if err != nil {
			log.Println(err)
			return
		}

		if err := dbg.RemoveWatchpoint(i); err != nil {
			log.Println(err)
			return
		}

		fmt.Printf("Watchpoint removed [%d]\n", i)

	case "clear":
		dbg.Watchpoints = make([]debugger.Watchpoint, 0)
		fmt.Println("Watchpoints reset")

	default:
		log.Printf("watch: '%s' is not a valid command\n", cmd)
	}
}

func debugReg(dbg *debugger.Debugger, mc *machine.Machine, args []string) {
	const usage = "register [IP|RB] [value]"

	if len(args) > 0 {
		if len(args) != 2 {
			log.Println(usage)
			return
		}

		value, err := encoding.DecodeNumber(args[1])

		if err != nil {
			log.Println(err)
			return
		}

		args[0] = strings.ToUpper(args[0])

		switch args[0] {
		case "IP":
			mc.State.Program = value
		case "RB":
			if value < 0 {
				log.Println("Relative base cannot be negative")
				return
			}
			mc.State.Relative = value
		default:
			log.Println("Invalid register")
			return
		}

		fmt.Printf("\033[1m%s:\033[0m %d\n", args[0], value)
	} else {
		dbg.PrintState(os.Stdout, mc)
	}
}

// Parses the optional [addr] [count] arguments shared by code, memory and
// source. A lone #n argument is a count starting at the current instruction.
func debugRange(dbg *debugger.Debugger, mc *machine.Machine, args []string, size int64) (int64, int64, bool) {
	addr := mc.IP()

	if len(args) > 0 {
		value, err := dbg.Resolve(args[0])

		if err != nil {
			log.Println(err)
			return 0, 0, false
		}

		if len(args) == 1 && strings.HasPrefix(args[0], "#") {
			size = value
		} else {
			addr = value
		}
	}

	if len(args) > 1 {
		value, err := encoding.DecodeNumber(args[1])

		if err != nil {
			log.Println(err)
			return 0, 0, false
		}

		size = value
	}

	return addr, size, true
}

func debugCode(dbg *debugger.Debugger, mc *machine.Machine, args []string) {
	const usage = "code [addr|label|#count] [count]"

	if len(args) > 2 {
		log.Println(usage)
		return
	}

	if addr, size, ok := debugRange(dbg, mc, args, 8); ok {
		dbg.PrintCode(os.Stdout, mc, addr, size)
	}
}

func debugMemory(dbg *debugger.Debugger, mc *machine.Machine, args []string) {
	const usage = "memory [addr|label|#count] [count]"

	if len(args) > 2 {
		log.Println(usage)
		return
	}

	if addr, size, ok := debugRange(dbg, mc, args, 1); ok {
		dbg.PrintMem(os.Stdout, mc, addr, size)
	}
}

func debugSource(dbg *debugger.Debugger, mc *machine.Machine, args []string) {
	const usage = "source [addr|label|#count] [count]"

	if len(args) > 2 {
		log.Println(usage)
		return
	}

	if addr, size, ok := debugRange(dbg, mc, args, 3); ok {
		dbg.PrintSource(os.Stdout, addr, size)
	}
}

func debugLabels(dbg *debugger.Debugger, args []string) {
	const usage = "labels"

	if len(args) > 0 {
		fmt.Println(usage)
		return
	}

	if dbg.SymTable == nil {
		fmt.Println("No symbol table loaded")
		return
	}

	keys := make([]int64, 0, len(dbg.SymTable.Labels))
	for addr := range dbg.SymTable.Labels {
		keys = append(keys, addr)
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, addr := range keys {
		fmt.Printf(
			"\033[1m[%04d]\033[0m %s\n", addr, dbg.SymTable.Labels[addr],
		)
	}
}

func debugJump(dbg *debugger.Debugger, mc *machine.Machine, args []string) {
	const usage = "jump [addr|label]"

	if len(args) != 1 {
		fmt.Println(usage)
		return
	}

	addr, err := dbg.Resolve(args[0])

	if err != nil {
		log.Println(err)
		return
	}

	mc.State.Program = addr

	if mc.State.Status == machine.Halted {
		mc.State.Status = machine.Runnable
	}

	fmt.Printf("\033[1mIP:\033[0m %d\n", addr)
}

func debugSet(dbg *debugger.Debugger, mc *machine.Machine, args []string) {
	const usage = "set [addr|label] [value]"

	if len(args) != 2 {
		log.Println(usage)
		return
	}

	addr, err := dbg.Resolve(args[0])

	if err != nil {
		log.Println(err)
		return
	}

	value, err := encoding.DecodeNumber(args[1])

	if err != nil {
		log.Println(err)
		return
	}

	if err := mc.Poke(addr, value); err != nil {
		log.Println(err)
		return
	}

	dbg.PrintMem(os.Stdout, mc, addr, 1)
}

func debugInput(mc *machine.Machine, args []string) {
	const usage = "input [value...|\"text\"]"

	if len(args) == 0 {
		fmt.Printf("\033[1mIN:\033[0m %v\n", mc.State.Input)
		return
	}

	joined := strings.Join(args, " ")

	if strings.HasPrefix(joined, "\"") {
		text, err := strconv.Unquote(joined)

		if err != nil {
			log.Println(usage)
			return
		}

		mc.PushString(text)
	} else {
		values, err := encoding.DecodeList(joined)

		if err != nil {
			log.Println(err)
			return
		}

		mc.PushInput(values...)
	}

	fmt.Printf("\033[1mIN:\033[0m %v\n", mc.State.Input)
}

func debugOutput(mc *machine.Machine) {
	values := mc.DrainOutput()
	fmt.Printf("\033[1mOUT:\033[0m %v\n", values)

	if text := encoding.Text(values); len(values) > 0 {
		fmt.Print(text)

		if !strings.HasSuffix(text, "\n") {
			fmt.Println()
		}
	}
}

func debugREPL(dbg *debugger.Debugger, mc *machine.Machine) {
	if rawterm {
		exitRawTerm()
		defer enterRawTerm()
	}

	for {
		fmt.Print("\033[1;30m(dbg)\033[0m ")

		line, err := stdin.ReadString('\n')

		if err != nil && len(line) == 0 {
			fmt.Println()
			shouldexit = true
			return
		}

		args := strings.Fields(line)

		if len(args) == 0 {
			if len(lastcmd) == 0 {
				continue
			}
			args = lastcmd
		} else {
			lastcmd = make([]string, len(args))
			copy(lastcmd, args)
		}

		cmd := args[0]
		args = args[1:]

		switch cmd {
		case "b", "bp", "break", "breakpoint":
			debugBreak(dbg, args)

		case "w", "wp", "watch", "watchpoint":
			debugWatch(dbg, args)

		case "r", "reg", "register", "registers", "state":
			debugReg(dbg, mc, args)

		case "d", "dis", "code":
			debugCode(dbg, mc, args)

		case "s", "src", "source":
			debugSource(dbg, mc, args)

		case "l", "labels":
			debugLabels(dbg, args)

		case "j", "jmp", "jump":
			debugJump(dbg, mc, args)

		case "m", "mem", "memory":
			debugMemory(dbg, mc, args)

		case "set":
			debugSet(dbg, mc, args)

		case "i", "in", "input":
			debugInput(mc, args)

		case "o", "out", "output":
			debugOutput(mc)

		case "c", "continue":
			dbg.Break.Store(false)
			return

		case "n", "next":
			dbg.Break.Store(true)
			return

		case "q", "quit", "exit":
			shouldexit = true
			return

		case "clear":
			fmt.Print("\033[H\033[2J")

		case "reset":
			mc.Reset()
			fmt.Println("Machine reset")

		default:
			fmt.Printf("error: '%s' is not a valid command\n", cmd)
		}
	}
}

// Loads the symbol table written next to an assembled program along with the
// source file it names. Programs that were not assembled have neither.
func loadSymbols(dbg *debugger.Debugger, program string) *os.File {
	filename := strings.TrimSuffix(program, filepath.Ext(program)) +
		assembler.SYMTABLE_EXT

	file, err := os.Open(filename)

	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		log.Println("Error loading symbol file")
		log.Println(err)
		return nil
	}

	symtable, err := assembler.ReadSymTable(file)
	file.Close()

	if err != nil {
		log.Println("Error loading symbol file")
		log.Println(err)
		return nil
	}

	dbg.SymTable = symtable

	if symtable.Source == "" {
		return nil
	}

	source, err := os.Open(symtable.Source)

	if err != nil {
		log.Println("Error loading source file")
		log.Println(err)
		return nil
	}

	dbg.Source = source
	return source
}

func handleBreak(dbg *debugger.Debugger, mc *machine.Machine) {
	if !dbg.Break.Load() {
		fmt.Println()
		fmt.Println("Program stopped")
	}

	dbg.PrintCode(os.Stdout, mc, mc.IP(), 1)
	debugREPL(dbg, mc)
}

func handleRead(addr int64, dbg *debugger.Debugger, mc *machine.Machine) {
	fmt.Println()
	fmt.Println("Program stopped on read")
	dbg.PrintMem(os.Stdout, mc, addr, 1)
	debugREPL(dbg, mc)
}

func handleWrite(addr int64, dbg *debugger.Debugger, mc *machine.Machine) {
	fmt.Println()
	fmt.Println("Program stopped on write")
	dbg.PrintMem(os.Stdout, mc, addr, 1)
	debugREPL(dbg, mc)
}
