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

var (
	// The instruction word has a malformed parameter mode, is negative, or
	// names an unknown opcode while running strict.
	ErrDecode = errors.New("decode error")

	// An address computation overflowed, went negative, or fell outside
	// memory that cannot grow.
	ErrAddress = errors.New("address error")

	// The decoded parameter list does not fit the executing opcode.
	ErrArity = errors.New("arity error")

	// IN found an empty queue on a machine configured with FaultOnEmpty.
	ErrInputStarved = errors.New("input starved")
)

// checkedAdd adds two addresses and fails instead of wrapping. Results below
// zero are rejected too, since no address is negative.
func checkedAdd(base, offset int64) (int64, error) {
	sum := base + offset

	if (offset > 0 && sum < base) || (offset < 0 && sum > base) {
		return 0, errors.Wrapf(ErrAddress, "%d%+d overflows", base, offset)
	}

	if sum < 0 {
		return 0, errors.Wrapf(ErrAddress, "%d%+d is negative", base, offset)
	}

	return sum, nil
}
