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
	"path/filepath"
	"strings"

	"github.com/lassandro/intcode/pkg/assembler"
	"github.com/lassandro/intcode/pkg/encoding"
)

var helpvar bool
var debugvar bool
var outvar string

const usage = "intcode-asm [-debug] [-out outfile] filename"

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(
		&debugvar, "debug", false,
		"Specifies whether to generate debugging information as a symbol "+
			"table. The table will use the output filename with extension "+
			"'"+assembler.SYMTABLE_EXT+"'",
	)
	flag.StringVar(
		&outvar, "out", "",
		"Specifies a precise name for the output file, "+
			"overriding the default means of determining it",
	)
}

// Prints each error, underlining the offending token when the source can be
// re-read.
func printErrors(errs []error, input io.ReadSeeker) {
	for _, err := range errs {
		tokenErr, ok := err.(assembler.TokenError)

		if !ok || input == nil {
			log.Println(err)
			continue
		}

		cursor := tokenErr.GetPosition()

		if _, serr := input.Seek(cursor.LineByte, io.SeekStart); serr != nil {
			log.Println(err)
			continue
		}

		line, _ := bufio.NewReader(input).ReadString('\n')
		line = strings.TrimSuffix(line, "\n")

		size := int(cursor.Size)

		if size < 1 {
			size = 1
		}

		underlinefmt := fmt.Sprintf(
			"%% %ds%s",
			int(cursor.Byte-cursor.LineByte)+1,
			strings.Repeat("~", size-1),
		)

		log.Printf(
			"%s\n%s\n\033[31m%s\033[0m",
			err,
			line,
			fmt.Sprintf(underlinefmt, "^"),
		)
	}
}

func intcode_asm() int {
	flag.Parse()

	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	args := flag.Args()

	var infile string
	var input io.Reader
	var seeker io.ReadSeeker

	if stat, err := os.Stdin.Stat(); err == nil && len(args) == 0 &&
		stat.Mode()&os.ModeCharDevice == 0 {
		input = os.Stdin
		log.SetPrefix("\033[1m<stdin>:\033[0m")

		if outvar == "" {
			outvar = "out.ic"
		}
	} else {
		if len(args) != 1 {
			log.Println(usage)
			return 1
		}

		file, err := os.Open(args[0])

		if err != nil {
			log.Println(err)
			return 1
		}

		defer file.Close()

		filename := filepath.Base(file.Name())

		if stat, err := file.Stat(); err != nil {
			log.Println(err)
			return 1
		} else if stat.IsDir() {
			log.Printf("%s is not a valid Intcode assembly file", filename)
			return 1
		}

		input = file
		seeker = file
		infile = file.Name()
		log.SetPrefix(fmt.Sprintf("\033[1m%s:\033[0m", filename))

		if outvar == "" {
			outvar = strings.TrimSuffix(
				infile, filepath.Ext(infile),
			) + ".ic"
		}
	}

	var symtable *assembler.SymTable = nil

	if debugvar {
		source := ""

		if infile != "" {
			var err error
			if source, err = filepath.Abs(infile); err != nil {
				log.Println(err)
				source = ""
			}
		}

		symtable = assembler.NewSymTable(source)
	}

	result, errs := assembler.Assemble(input, symtable)

	if len(errs) > 0 {
		printErrors(errs, seeker)
		return 1
	}

	{
		file, err := os.Create(outvar)

		if err != nil {
			log.Println("Error writing output file")
			log.Println(err)
			return 1
		}

		if err := encoding.WriteProgram(file, result); err != nil {
			file.Close()
			log.Println("Error writing output file")
			log.Println(err)
			return 1
		}

		if err := file.Close(); err != nil {
			log.Println("Error writing output file")
			log.Println(err)
			return 1
		}
	}

	if debugvar {
		filename := strings.TrimSuffix(outvar, filepath.Ext(outvar)) +
			assembler.SYMTABLE_EXT

		file, err := os.Create(filename)

		if err != nil {
			log.Println("Error creating symbol table")
			log.Println(err)
			return 1
		}

		if err := assembler.WriteSymTable(file, symtable); err != nil {
			file.Close()
			log.Println("Error writing symbol table")
			log.Println(err)
			return 1
		}

		file.Close()
	}

	return 0
}

func main() {
	os.Exit(intcode_asm())
}
