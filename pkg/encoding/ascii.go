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

package encoding

import (
	"strconv"
	"strings"
)

// Largest value printed as a character by Text
const MAX_ASCII = 0x7F

// Converts s to input values, one per byte
func ASCII(s string) []int64 {
	result := make([]int64, len(s))

	for i := 0; i < len(s); i++ {
		result[i] = int64(s[i])
	}

	return result
}

func IsASCII(value int64) bool {
	return value >= 0 && value <= MAX_ASCII
}

// Renders output values as text. Values outside the ASCII range, usually a
// program's final numeric answer, are written in decimal on a line of their
// own.
func Text(values []int64) string {
	var builder strings.Builder

	for _, value := range values {
		if IsASCII(value) {
			builder.WriteByte(byte(value))
			continue
		}

		if builder.Len() > 0 && !strings.HasSuffix(builder.String(), "\n") {
			builder.WriteByte('\n')
		}

		builder.WriteString(strconv.FormatInt(value, 10))
		builder.WriteByte('\n')
	}

	return builder.String()
}
