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
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/lassandro/intcode/pkg/config"
	"github.com/lassandro/intcode/pkg/debugger"
	"github.com/lassandro/intcode/pkg/encoding"
	"github.com/lassandro/intcode/pkg/machine"
	"github.com/lassandro/intcode/pkg/trace"
)

var helpvar bool
var debugvar bool
var asciivar bool
var interactivevar bool
var strictvar bool
var faultvar bool
var growvar bool
var configvar string
var inputvar string
var logvar string
var memvar int64
var maxstepsvar int64
var verbosevar int
var pokevar pokeList

var shouldexit bool
var rawterm bool
var stdin = bufio.NewReader(os.Stdin)

// Collects repeated -poke addr=value flags.
type pokeList []config.Poke

func (list *pokeList) String() string {
	parts := make([]string, len(*list))

	for i, poke := range *list {
		parts[i] = fmt.Sprintf("%d=%d", poke.Addr, poke.Value)
	}

	return strings.Join(parts, ",")
}

func (list *pokeList) Set(value string) error {
	for _, field := range strings.Split(value, ",") {
		addrstr, valuestr, ok := strings.Cut(strings.TrimSpace(field), "=")

		if !ok {
			return errors.Errorf("poke '%s' is not of the form addr=value", field)
		}

		addr, err := encoding.DecodeNumber(strings.TrimSpace(addrstr))

		if err != nil {
			return err
		}

		if addr < 0 {
			return errors.Errorf("poke address %d is negative", addr)
		}

		cell, err := encoding.DecodeNumber(strings.TrimSpace(valuestr))

		if err != nil {
			return err
		}

		*list = append(*list, config.Poke{Addr: addr, Value: cell})
	}

	return nil
}

const usage = "intcode [-config file] [-input list] [-ascii] [-interactive] " +
	"[-poke addr=value] [-max-steps n] [-debug] filename"

func init() {
	exe, _ := os.Executable()
	log.SetFlags(0)
	log.SetPrefix(fmt.Sprintf("%s: ", filepath.Base(exe)))
	log.SetOutput(os.Stderr)
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(&debugvar, "debug", false, "Runs the machine in a debug CLI")
	flag.BoolVar(
		&asciivar, "ascii", false,
		"Reads input lines as ASCII text and prints ASCII output as characters",
	)
	flag.BoolVar(
		&interactivevar, "interactive", false,
		"Puts the terminal in raw mode and feeds keys to the program one at a "+
			"time. Implies -ascii",
	)
	flag.BoolVar(
		&strictvar, "strict", false,
		"Stops on unknown opcodes instead of treating them as HALT",
	)
	flag.BoolVar(
		&faultvar, "fault-on-empty", false,
		"Stops with an error when the program reads from an empty input "+
			"queue instead of prompting for more",
	)
	flag.BoolVar(
		&growvar, "grow", true,
		"Grows memory when the program writes past its end",
	)
	flag.StringVar(
		&configvar, "config", "",
		"Config file to use. By default intcode.toml is searched for in the "+
			"program's directory and its parents",
	)
	flag.StringVar(
		&inputvar, "input", "", "Comma separated values queued as input",
	)
	flag.StringVar(&logvar, "log", "", "Writes log messages to a file")
	flag.Int64Var(
		&memvar, "mem", 0,
		"Pads memory with zeros to this many cells (8000 matches the "+
			"historic fixed size)",
	)
	flag.Int64Var(
		&maxstepsvar, "max-steps", 0,
		"Stops after this many instructions, 0 for no limit",
	)
	flag.IntVar(
		&verbosevar, "verbose", 0,
		"Log verbosity: 1 logs suspensions, 2 traces every instruction",
	)
	flag.Var(&pokevar, "poke", "Sets a memory cell before running, as addr=value. Repeatable")
}

// Loads the config named by -config, or the nearest intcode.toml, then lets
// flags given on the command line override it.
func loadConfig(program string) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if configvar != "" {
		cfg, err = config.Load(configvar)
	} else {
		cfg, err = config.FindAndLoad(filepath.Dir(program))
	}

	if err != nil {
		return nil, err
	}

	if cfg == nil {
		cfg = config.Default()
	}

	var inputerr error

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			// Joins the seeded input so a reset queues it again
			values, err := encoding.DecodeList(inputvar)

			if err != nil {
				inputerr = errors.Wrap(err, "-input")
				return
			}

			cfg.Run.Input = append(cfg.Run.Input, values...)
		case "ascii":
			cfg.Run.ASCII = asciivar
		case "strict":
			cfg.Machine.Strict = strictvar
		case "fault-on-empty":
			if faultvar {
				cfg.Machine.InputPolicy = config.POLICY_FAULT
			} else {
				cfg.Machine.InputPolicy = config.POLICY_SUSPEND
			}
		case "grow":
			cfg.Machine.Growth = growvar
		case "mem":
			cfg.Machine.MemorySize = memvar
		case "max-steps":
			cfg.Run.MaxSteps = maxstepsvar
		case "poke":
			cfg.Run.Poke = append(cfg.Run.Poke, pokevar...)
		}
	})

	if inputerr != nil {
		return nil, inputerr
	}

	if interactivevar {
		cfg.Run.ASCII = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func writeOutput(writer *bufio.Writer, value int64, ascii bool) {
	if ascii && encoding.IsASCII(value) {
		writer.WriteByte(byte(value))
		return
	}

	fmt.Fprintln(writer, value)
}

// Reads the next batch of input. In ASCII mode that is a line of text, or a
// single key when interactive; otherwise a line of integers.
func readInput(reader *bufio.Reader, echo io.Writer, ascii, interactive bool) ([]int64, error) {
	if interactive {
		key, err := reader.ReadByte()

		if err != nil {
			return nil, err
		}

		if key == '\r' {
			key = '\n'
		}

		fmt.Fprintf(echo, "%c", key)
		return []int64{int64(key)}, nil
	}

	for {
		line, err := reader.ReadString('\n')

		if err != nil && (err != io.EOF || len(line) == 0) {
			return nil, err
		}

		if ascii {
			line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
			return encoding.ASCII(line + "\n"), nil
		}

		values, perr := encoding.DecodeList(line)

		if perr != nil {
			log.Println(perr)
		} else if len(values) > 0 {
			return values, nil
		}

		if err == io.EOF {
			return nil, err
		}
	}
}

// Runs the machine to completion, reading input from reader when it blocks and
// writing its output to out.
func execute(mc *machine.Machine, cfg *config.Config, reader *bufio.Reader, out io.Writer) int {
	writer := bufio.NewWriter(out)
	defer writer.Flush()

	for !shouldexit {
		if cfg.Run.MaxSteps > 0 && int64(mc.Steps()) >= cfg.Run.MaxSteps {
			writer.Flush()
			log.Printf(
				"stopped after %d steps at ip %d", mc.Steps(), mc.IP(),
			)
			return 1
		}

		status, err := mc.Step()

		if err != nil {
			writer.Flush()
			log.Println(err)
			return 1
		}

		switch status {
		case machine.ProducedOutput:
			for _, value := range mc.DrainOutput() {
				writeOutput(writer, value, cfg.Run.ASCII)
			}

			if interactivevar {
				writer.Flush()
			}

		case machine.AwaitingInput:
			writer.Flush()

			values, err := readInput(reader, out, cfg.Run.ASCII, rawterm)

			if err == io.EOF {
				log.Printf("input exhausted at ip %d", mc.IP())
				return 1
			} else if err != nil {
				log.Println(err)
				return 1
			}

			mc.PushInput(values...)

		case machine.Halted:
			return 0
		}
	}

	return 0
}

func intcode() int {
	flag.Parse()

	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	args := flag.Args()

	if len(args) != 1 {
		log.Println(usage)
		return 1
	}

	var logpath *string

	if logvar != "" {
		logpath = &logvar
	}

	commonlog.Configure(verbosevar, logpath)

	cfg, err := loadConfig(args[0])

	if err != nil {
		log.Println(err)
		return 1
	}

	opts, err := cfg.Options()

	if err != nil {
		log.Println(err)
		return 1
	}

	file, err := os.Open(args[0])

	if err != nil {
		log.Println(err)
		return 1
	}

	mc, err := machine.Load(file, opts...)
	file.Close()

	if err != nil {
		log.Printf("%s: %v", args[0], err)
		return 1
	}

	if err := cfg.Apply(mc); err != nil {
		log.Println(err)
		return 1
	}

	var dbg *debugger.Debugger

	if debugvar {
		dbg = &debugger.Debugger{
			HandleBreak: handleBreak,
			HandleRead:  handleRead,
			HandleWrite: handleWrite,
		}
		mc.Debugger = dbg

		if source := loadSymbols(dbg, args[0]); source != nil {
			defer source.Close()
		}

		c := make(chan os.Signal, 1)
		defer close(c)

		signal.Notify(c, os.Interrupt)
		defer signal.Stop(c)

		go func() {
			for range c {
				fmt.Println()
				dbg.Break.Store(true)
			}
		}()
	}

	if verbosevar > 0 {
		trace.Attach(mc, "intcode")
	}

	if interactivevar {
		if err := enterRawTerm(); err != nil {
			log.Println(err)
		} else {
			rawterm = true
			defer exitRawTerm()
		}
	}

	if debugvar {
		debugREPL(dbg, mc)
	}

	return execute(mc, cfg, stdin, os.Stdout)
}

func main() {
	os.Exit(intcode())
}
