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

// Memory is the machine's cell array. Cells past the end read as zero and
// are allocated on first write when Grow is set, up to Limit cells.
type Memory struct {
	Cells []int64
	Grow  bool
	Limit int64
}

func (mem *Memory) Len() int64 {
	return int64(len(mem.Cells))
}

func (mem *Memory) Load(addr int64) (int64, error) {
	if addr < 0 {
		return 0, errors.Wrapf(ErrAddress, "read from negative address %d", addr)
	}

	if addr < mem.Len() {
		return mem.Cells[addr], nil
	}

	if !mem.Grow || addr >= mem.Limit {
		return 0, errors.Wrapf(
			ErrAddress, "read from %d outside memory of %d cells", addr, mem.Len(),
		)
	}

	return 0, nil
}

func (mem *Memory) Store(addr int64, value int64) error {
	if addr < 0 {
		return errors.Wrapf(ErrAddress, "write to negative address %d", addr)
	}

	if addr >= mem.Len() {
		if !mem.Grow || addr >= mem.Limit {
			return errors.Wrapf(
				ErrAddress, "write to %d outside memory of %d cells",
				addr, mem.Len(),
			)
		}

		mem.grow(addr)
	}

	mem.Cells[addr] = value
	return nil
}

// grow extends memory so that addr is in range, doubling where the limit
// allows it.
func (mem *Memory) grow(addr int64) {
	size := mem.Len() * 2

	if size <= addr {
		size = addr + 1
	}

	if size > mem.Limit {
		size = mem.Limit
	}

	cells := make([]int64, size)
	copy(cells, mem.Cells)
	mem.Cells = cells
}

func (mem *Memory) clone() Memory {
	result := *mem
	result.Cells = make([]int64, len(mem.Cells))
	copy(result.Cells, mem.Cells)
	return result
}
