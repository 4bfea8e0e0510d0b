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
	"github.com/pkg/errors"
)

// Decode splits an instruction word into its opcode and parameter modes.
//
// The two low decimal digits select the opcode. The digits above them give one
// mode per parameter, lowest digit first; digits beyond the opcode's arity are
// ignored and missing digits mean position mode. An unknown opcode, or a
// negative word, decodes as HALT unless strict is set, in which case it is an
// ErrDecode.
func Decode(word int64, strict bool) (Instruction, error) {
	var in Instruction

	in.Word = word

	// A negative word has no opcode digits; it decodes like an unknown opcode
	if word < 0 {
		if strict {
			return in, errors.Wrapf(ErrDecode, "negative instruction word %d", word)
		}

		in.Opcode = OP_HALT
		in.Kinds = opcodeParams[OP_HALT]
		return in, nil
	}

	in.Opcode = Opcode(word % 100)

	kinds, known := opcodeParams[in.Opcode]

	if !known {
		if strict {
			return in, errors.Wrapf(
				ErrDecode, "unknown opcode %02d in word %d", word%100, word,
			)
		}

		in.Opcode = OP_HALT
		kinds = opcodeParams[OP_HALT]
	}

	in.Kinds = kinds

	modes := word / 100

	for i := range in.Kinds {
		switch digit := Mode(modes % 10); digit {
		case MODE_POSITION, MODE_IMMEDIATE, MODE_RELATIVE:
			in.Modes[i] = digit
		default:
			return in, errors.Wrapf(
				ErrDecode, "invalid mode %d for parameter %d of word %d",
				uint8(digit), i+1, word,
			)
		}

		modes /= 10
	}

	return in, nil
}

// resolve turns the raw parameters of the instruction at ip into values for
// read slots and addresses for write slots.
func (mc *Machine) resolve(ip int64, in Instruction) ([]int64, error) {
	params := make([]int64, 0, MAX_PARAMS)

	for i, kind := range in.Kinds {
		raw, err := mc.State.Memory.Load(ip + 1 + int64(i))

		if err != nil {
			return nil, errors.Wrapf(err, "parameter %d", i+1)
		}

		switch kind {
		case ReadParam:
			var value int64

			switch in.Modes[i] {
			case MODE_POSITION:
				value, err = mc.read(raw)
			case MODE_IMMEDIATE:
				value = raw
			case MODE_RELATIVE:
				var addr int64

				if addr, err = checkedAdd(mc.State.Relative, raw); err == nil {
					value, err = mc.read(addr)
				}
			}

			if err != nil {
				return nil, errors.Wrapf(err, "parameter %d", i+1)
			}

			params = append(params, value)

		case WriteParam:
			// Immediate writes never appear in valid programs and are
			// treated like position mode
			addr := raw

			if in.Modes[i] == MODE_RELATIVE {
				if addr, err = checkedAdd(mc.State.Relative, raw); err != nil {
					return nil, errors.Wrapf(err, "parameter %d", i+1)
				}
			}

			params = append(params, addr)
		}
	}

	return params, nil
}
