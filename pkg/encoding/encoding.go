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
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var ErrSyntax = errors.New("syntax error")

// Reads a program image: base-10 integers separated by commas. Line breaks
// are removed before splitting, so a value may be wrapped across lines.
func ReadProgram(reader io.Reader) ([]int64, error) {
	data, err := io.ReadAll(reader)

	if err != nil {
		return nil, errors.Wrap(err, "reading program")
	}

	return DecodeProgram(string(data))
}

// Decodes a program image from text, see ReadProgram.
func DecodeProgram(s string) ([]int64, error) {
	s = strings.NewReplacer("\r", "", "\n", "").Replace(s)
	s = strings.TrimSpace(s)

	if len(s) == 0 {
		return nil, errors.Wrap(ErrSyntax, "empty program")
	}

	fields := strings.Split(s, ",")
	result := make([]int64, len(fields))

	for i, field := range fields {
		value, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)

		if err != nil {
			return nil, errors.Wrapf(
				ErrSyntax, "value %d (%q): %v", i, field, err,
			)
		}

		result[i] = value
	}

	return result, nil
}

// Writes a program image in the format read by ReadProgram.
func WriteProgram(writer io.Writer, program []int64) error {
	buffer := bufio.NewWriter(writer)

	for i, value := range program {
		if i > 0 {
			buffer.WriteByte(',')
		}

		buffer.WriteString(strconv.FormatInt(value, 10))
	}

	buffer.WriteByte('\n')
	return buffer.Flush()
}

// Encodes a program image as text without a trailing newline.
func EncodeProgram(program []int64) string {
	var builder strings.Builder

	for i, value := range program {
		if i > 0 {
			builder.WriteByte(',')
		}

		builder.WriteString(strconv.FormatInt(value, 10))
	}

	return builder.String()
}

// Decodes a hexidecimal string in the formats: 0x7B, x7B
func DecodeHex(s string) (int64, error) {
	if i := strings.IndexAny(s, "xX"); i == 0 {
		s = "0" + s
	} else if i == -1 || i != 1 {
		return 0, errors.Wrapf(ErrSyntax, "invalid hex string %q", s)
	}

	result, err := strconv.ParseInt(s, 0, 64)

	if err != nil {
		return 0, errors.Wrapf(ErrSyntax, "%v", err)
	}

	return result, nil
}

// Decodes a base-10 string in the formats: #123, 123, -123
func DecodeInt(s string) (int64, error) {
	if i := strings.Index(s, "#"); i == 0 {
		s = s[1:]
	}

	result, err := strconv.ParseInt(s, 10, 64)

	if err != nil {
		return 0, errors.Wrapf(ErrSyntax, "%v", err)
	}

	return result, nil
}

// Decodes either a hexidecimal or a base-10 string
func DecodeNumber(s string) (int64, error) {
	if strings.ContainsAny(s, "xX") {
		return DecodeHex(s)
	}

	return DecodeInt(s)
}

// Decodes a list of integers separated by commas and/or whitespace
func DecodeList(s string) ([]int64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})

	result := make([]int64, 0, len(fields))

	for _, field := range fields {
		value, err := DecodeNumber(field)

		if err != nil {
			return nil, err
		}

		result = append(result, value)
	}

	return result, nil
}
