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

package assembler

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/lassandro/intcode/pkg/encoding"
	"github.com/lassandro/intcode/pkg/machine"
)

type labelRef struct {
	Label    string
	Offset   int64
	Addr     int64
	Position Cursor
}

type operand struct {
	Mode   machine.Mode
	Value  int64
	Label  string
	Source *Token
}

type assembly struct {
	result   []int64
	program  int64
	size     int64
	labels   map[string]int64
	refs     []labelRef
	errs     []error
	symtable *SymTable
}

func parseDirective(ident string) DirectiveType {
	if strings.EqualFold(ident, ".ORIG") {
		return DIRECTIVE_ORIG
	} else if strings.EqualFold(ident, ".DATA") {
		return DIRECTIVE_DATA
	} else if strings.EqualFold(ident, ".BLKW") {
		return DIRECTIVE_BLKW
	} else if strings.EqualFold(ident, ".ASCII") {
		return DIRECTIVE_ASCII
	} else if strings.EqualFold(ident, ".STRINGZ") {
		return DIRECTIVE_STRINGZ
	} else if strings.EqualFold(ident, ".END") {
		return DIRECTIVE_END
	}

	return DIRECTIVE_INVALID
}

func parseLiteral(token *Token) (int64, error) {
	result, err := encoding.DecodeNumber(token.Value)

	if err != nil {
		return 0, &InvalidLiteralError{token.Position}
	}

	return result, nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}

	for i, char := range s {
		if char > unicode.MaxASCII {
			return false
		}

		if char == '_' || unicode.IsLetter(char) {
			continue
		}

		if i > 0 && unicode.IsDigit(char) {
			continue
		}

		return false
	}

	return true
}

// Hex literals may be written without a leading zero (x2A), which the
// tokenizer cannot tell apart from an identifier until the token ends.
func isHexLiteral(s string) bool {
	if len(s) < 2 || (s[0] != 'x' && s[0] != 'X') {
		return false
	}

	for _, char := range s[1:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", char) {
			return false
		}
	}

	return true
}

// Parses an operand into its addressing mode and value. Address operands
// take the forms [n], [label], [label+n] and [rb+n].
func parseOperand(token *Token) (operand, error) {
	result := operand{Source: token}

	switch token.Type {
	case TOKEN_LITERAL:
		value, err := parseLiteral(token)

		if err != nil {
			return result, err
		}

		result.Mode = machine.MODE_IMMEDIATE
		result.Value = value

	case TOKEN_IDENT:
		result.Mode = machine.MODE_IMMEDIATE
		result.Label = token.Value

	case TOKEN_ADDRESS:
		inner := token.Value

		if !strings.HasPrefix(inner, "[") || !strings.HasSuffix(inner, "]") {
			return result, &InvalidAddressError{token.Position}
		}

		inner = inner[1 : len(inner)-1]

		if value, err := encoding.DecodeNumber(inner); err == nil {
			result.Mode = machine.MODE_POSITION
			result.Value = value
			return result, nil
		}

		base := inner
		offset := int64(0)

		if i := strings.IndexAny(inner, "+-"); i > 0 {
			value, err := encoding.DecodeNumber(inner[i:])

			if err != nil {
				return result, &InvalidAddressError{token.Position}
			}

			base = inner[:i]
			offset = value
		}

		if strings.EqualFold(base, REGISTER_RB) {
			result.Mode = machine.MODE_RELATIVE
			result.Value = offset
		} else if isIdent(base) {
			result.Mode = machine.MODE_POSITION
			result.Label = base
			result.Value = offset
		} else {
			return result, &InvalidAddressError{token.Position}
		}

	default:
		return result, &InvalidOperandError{
			token.Position,
			[]TokenType{TOKEN_LITERAL, TOKEN_IDENT, TOKEN_ADDRESS},
			token.Type,
		}
	}

	return result, nil
}

// Splits a single source line into tokens. Everything after a ';' outside
// of a string is a comment.
func tokenize(line string, cursor Cursor) (tokens []Token, errs []error) {
	var builder strings.Builder
	var tokenType TokenType = TOKEN_NONE
	var tokenStart int = 0
	var escape bool = false

	flush := func() {
		if builder.Len() > 0 {
			var token Token
			token.Position = Cursor{
				Line:     cursor.Line,
				Column:   tokenStart,
				Byte:     cursor.LineByte + int64(tokenStart-1),
				Size:     int64(builder.Len()),
				LineByte: cursor.LineByte,
			}
			token.Type = tokenType
			token.Value = builder.String()

			if token.Type == TOKEN_IDENT && isHexLiteral(token.Value) {
				token.Type = TOKEN_LITERAL
			}

			tokens = append(tokens, token)
			builder.Reset()
		}

		tokenType = TOKEN_NONE
	}

scan:
	for column, char := range line {
		cursor.Column = column + 1

		if char > unicode.MaxASCII {
			errs = append(errs, &OversizedCharacterError{cursor})
		}

		// String Literal
		if tokenType == TOKEN_STRING {
			builder.WriteRune(char)

			if escape {
				escape = false
			} else if char == '\\' {
				escape = true
			} else if char == '"' {
				flush()
			}

			continue
		}

		if tokenType == TOKEN_NONE {
			tokenStart = cursor.Column
		}

		switch {
		// Whitespace, allowed inside an address as in [rb + 2]
		case unicode.IsSpace(char):
			if tokenType != TOKEN_ADDRESS {
				flush()
			}

			continue

		// Comments
		case char == ';':
			if tokenType == TOKEN_ADDRESS {
				errs = append(errs, &InvalidAddressError{cursor})
			}

			flush()
			break scan

		// Operand Separator
		case char == ',':
			if tokenType == TOKEN_ADDRESS {
				errs = append(errs, &UnexpectedCharacterError{cursor, char})
			}

			flush()
			continue

		case char == '"':
			if tokenType == TOKEN_NONE {
				tokenType = TOKEN_STRING
			} else {
				errs = append(errs, &UnexpectedCharacterError{cursor, char})
			}

		// Address (i.e. [42], [label], [rb-1])
		case char == '[':
			if tokenType == TOKEN_NONE {
				tokenType = TOKEN_ADDRESS
			} else {
				errs = append(errs, &UnexpectedCharacterError{cursor, char})
			}

		case char == ']':
			if tokenType == TOKEN_ADDRESS {
				builder.WriteRune(char)
				flush()
				continue
			}

			errs = append(errs, &UnexpectedCharacterError{cursor, char})

		// Assembler Directives
		case char == '.':
			if tokenType == TOKEN_NONE {
				tokenType = TOKEN_DIRECTIVE
			} else {
				errs = append(errs, &UnexpectedCharacterError{cursor, char})
			}

		// Base 10 Literal (i.e. #42)
		case char == '#':
			if tokenType == TOKEN_NONE {
				tokenType = TOKEN_LITERAL
			} else if tokenType != TOKEN_ADDRESS {
				errs = append(errs, &UnexpectedCharacterError{cursor, char})
			}

		// Numeric Sign
		case char == '-':
			if tokenType == TOKEN_NONE {
				tokenType = TOKEN_LITERAL
			} else if tokenType != TOKEN_LITERAL && tokenType != TOKEN_ADDRESS {
				errs = append(errs, &UnexpectedCharacterError{cursor, char})
			}

		// Address Offset
		case char == '+':
			if tokenType != TOKEN_ADDRESS {
				errs = append(errs, &UnexpectedCharacterError{cursor, char})
			}

		// Numeric Literal
		case unicode.IsDigit(char):
			if tokenType == TOKEN_NONE {
				tokenType = TOKEN_LITERAL
			}

		// Identifier
		case char == '_' || unicode.IsLetter(char):
			if tokenType == TOKEN_NONE {
				tokenType = TOKEN_IDENT
			}

		default:
			errs = append(errs, &UnexpectedCharacterError{cursor, char})
		}

		builder.WriteRune(char)
	}

	switch tokenType {
	case TOKEN_STRING:
		errs = append(errs, &InvalidStringError{cursor})
	case TOKEN_ADDRESS:
		errs = append(errs, &InvalidAddressError{cursor})
	}

	flush()
	return
}

func (asm *assembly) emit(value int64) bool {
	if asm.program >= machine.DEFAULT_MEMORY_LIMIT {
		asm.errs = append(
			asm.errs, &OversizedBinaryError{machine.DEFAULT_MEMORY_LIMIT},
		)

		return false
	}

	for int64(len(asm.result)) <= asm.program {
		asm.result = append(asm.result, 0)
	}

	asm.result[asm.program] = value
	asm.program++

	if asm.program > asm.size {
		asm.size = asm.program
	}

	return true
}

// Emits the operand's value, deferring label lookups until every label is
// known.
func (asm *assembly) emitOperand(arg operand) bool {
	if arg.Label != "" {
		asm.refs = append(
			asm.refs,
			labelRef{arg.Label, arg.Value, asm.program, arg.Source.Position},
		)

		return asm.emit(0)
	}

	return asm.emit(arg.Value)
}

func (asm *assembly) instruction(op machine.Opcode, keyword *Token, operands []Token) bool {
	kinds := op.Params()

	if count := len(operands); count != len(kinds) {
		asm.errs = append(
			asm.errs,
			&InvalidNumArgumentsError{keyword.Position, len(kinds), count},
		)

		return true
	}

	args := make([]operand, len(kinds))
	word := int64(op)
	scale := int64(100)

	for i, kind := range kinds {
		arg, err := parseOperand(&operands[i])

		if err != nil {
			asm.errs = append(asm.errs, err)
		} else if kind == machine.WriteParam && arg.Mode == machine.MODE_IMMEDIATE {
			asm.errs = append(
				asm.errs,
				&InvalidOperandError{
					operands[i].Position,
					[]TokenType{TOKEN_ADDRESS},
					operands[i].Type,
				},
			)
		}

		args[i] = arg
		word += int64(arg.Mode) * scale
		scale *= 10
	}

	if !asm.emit(word) {
		return false
	}

	for _, arg := range args {
		if !asm.emitOperand(arg) {
			return false
		}
	}

	return true
}

// Returns false once no further lines should be assembled.
func (asm *assembly) directive(directive DirectiveType, keyword *Token, operands []Token) bool {
	switch directive {
	// .END
	case DIRECTIVE_END:
		if count := len(operands); count != 0 {
			asm.errs = append(
				asm.errs,
				&InvalidNumArgumentsError{keyword.Position, 0, count},
			)
		}

		return false

	// .DATA #, label, ...
	case DIRECTIVE_DATA:
		if len(operands) == 0 {
			asm.errs = append(
				asm.errs, &InvalidNumArgumentsError{keyword.Position, 1, 0},
			)

			break
		}

		for i := range operands {
			var arg operand

			switch operands[i].Type {
			case TOKEN_LITERAL:
				value, err := parseLiteral(&operands[i])

				if err != nil {
					asm.errs = append(asm.errs, err)
				}

				arg = operand{Value: value, Source: &operands[i]}

			case TOKEN_IDENT:
				arg = operand{Label: operands[i].Value, Source: &operands[i]}

			default:
				asm.errs = append(
					asm.errs,
					&InvalidOperandError{
						operands[i].Position,
						[]TokenType{TOKEN_LITERAL, TOKEN_IDENT},
						operands[i].Type,
					},
				)
			}

			if !asm.emitOperand(arg) {
				return false
			}
		}

	// .BLKW #
	// .ORIG #
	case DIRECTIVE_BLKW, DIRECTIVE_ORIG:
		if count := len(operands); count != 1 {
			asm.errs = append(
				asm.errs, &InvalidNumArgumentsError{keyword.Position, 1, count},
			)

			break
		}

		if operands[0].Type != TOKEN_LITERAL {
			asm.errs = append(
				asm.errs,
				&InvalidOperandError{
					operands[0].Position,
					[]TokenType{TOKEN_LITERAL},
					operands[0].Type,
				},
			)

			break
		}

		literal, err := parseLiteral(&operands[0])

		if err != nil {
			asm.errs = append(asm.errs, err)
			break
		}

		if literal < 0 {
			asm.errs = append(asm.errs, &InvalidLiteralError{operands[0].Position})
			break
		}

		if directive == DIRECTIVE_ORIG {
			asm.program = literal
		} else {
			asm.program += literal
		}

		if asm.program > machine.DEFAULT_MEMORY_LIMIT {
			asm.errs = append(
				asm.errs, &OversizedBinaryError{machine.DEFAULT_MEMORY_LIMIT},
			)

			return false
		}

		if directive == DIRECTIVE_BLKW && asm.program > asm.size {
			asm.size = asm.program
		}

	// .ASCII "..."
	// .STRINGZ "..."
	case DIRECTIVE_ASCII, DIRECTIVE_STRINGZ:
		if count := len(operands); count != 1 {
			asm.errs = append(
				asm.errs, &InvalidNumArgumentsError{keyword.Position, 1, count},
			)

			break
		}

		if operands[0].Type != TOKEN_STRING {
			asm.errs = append(
				asm.errs,
				&InvalidOperandError{
					operands[0].Position,
					[]TokenType{TOKEN_STRING},
					operands[0].Type,
				},
			)

			break
		}

		s, err := strconv.Unquote(operands[0].Value)

		if err != nil {
			asm.errs = append(asm.errs, &InvalidStringError{operands[0].Position})
			break
		}

		for _, value := range encoding.ASCII(s) {
			if !asm.emit(value) {
				return false
			}
		}

		if directive == DIRECTIVE_STRINGZ && !asm.emit(0) {
			return false
		}
	}

	return true
}

// Assembles one tokenized line. Returns false once assembly should stop.
func (asm *assembly) line(tokens []Token, cursor Cursor) bool {
	var label *Token = nil
	var keyword *Token = nil
	var operands []Token

	if len(tokens) > 0 && tokens[0].Type == TOKEN_IDENT {
		if _, ok := machine.LookupOpcode(tokens[0].Value); !ok {
			label = &tokens[0]
			tokens = tokens[1:]
		}
	}

	if label != nil {
		if strings.EqualFold(label.Value, REGISTER_RB) {
			asm.errs = append(
				asm.errs, &UnknownIdentifierError{label.Position, label.Value},
			)
		} else if _, exists := asm.labels[label.Value]; !exists {
			asm.labels[label.Value] = asm.program
		} else {
			asm.errs = append(
				asm.errs, &RedeclaredLabelError{label.Position, label.Value},
			)
		}

		// No need to assemble label-only statements
		if len(tokens) == 0 {
			return true
		}
	}

	keyword = &tokens[0]
	operands = tokens[1:]
	start := asm.program

	var more bool

	if op, ok := machine.LookupOpcode(keyword.Value); ok && keyword.Type == TOKEN_IDENT {
		more = asm.instruction(op, keyword, operands)
	} else if directive := parseDirective(keyword.Value); directive != DIRECTIVE_INVALID && keyword.Type == TOKEN_DIRECTIVE {
		more = asm.directive(directive, keyword, operands)
	} else {
		asm.errs = append(
			asm.errs,
			&UnknownIdentifierError{keyword.Position, keyword.Value},
		)

		return true
	}

	if asm.symtable != nil && asm.program > start {
		asm.symtable.Symbols[start] = cursor.LineByte
	}

	return more
}

// Assemble reads Intcode assembly and returns the program image. Errors are
// collected over the whole source rather than stopping at the first one, and
// the image is only meaningful when none were returned. When symtable is not
// nil it receives the source offset of every line and the address of every
// label.
//
// Instructions take the mnemonics ADD, MUL, IN, OUT, JT, JF, LT, EQ, ARB and
// HALT with operands written as #n or a label for immediate mode, [n] or
// [label] for position mode and [rb+n] for relative mode.
func Assemble(input io.Reader, symtable *SymTable) (result []int64, errs []error) {
	var scanner = bufio.NewScanner(input)
	var cursor = Cursor{Line: 1, Column: 0, Size: 0, Byte: 0}

	asm := assembly{
		result:   make([]int64, 0, 64),
		labels:   make(map[string]int64),
		symtable: symtable,
	}

	// Process:
	// - Tokenize line
	// - Assemble line
	for scanner.Scan() {
		line := scanner.Text()
		cursor.Size = int64(len(line))
		cursor.Byte = cursor.LineByte

		tokens, lineErrs := tokenize(line, cursor)

		if len(lineErrs) > 0 {
			// Pass any potential assembler errors if we already had
			// tokenizer errors
			asm.errs = append(asm.errs, lineErrs...)
		} else if len(tokens) > 0 && !asm.line(tokens, cursor) {
			break
		}

		cursor.Line++
		cursor.LineByte += int64(len(line) + 1)
	}

	if err := scanner.Err(); err != nil {
		asm.errs = append(asm.errs, err)
	}

	// Labels
	// - Validate and resolve label references
	// - Add labels to symbol table
	for _, ref := range asm.refs {
		addr, exists := asm.labels[ref.Label]

		if !exists {
			asm.errs = append(
				asm.errs, &UnknownLabelError{ref.Position, ref.Label},
			)

			continue
		}

		asm.result[ref.Addr] = addr + ref.Offset
	}

	if symtable != nil {
		for label, addr := range asm.labels {
			symtable.Labels[addr] = label
		}
	}

	for int64(len(asm.result)) < asm.size {
		asm.result = append(asm.result, 0)
	}

	return asm.result[:asm.size], asm.errs
}
