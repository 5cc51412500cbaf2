/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrNoInput is returned when the input ends before a valid answer is read.
var ErrNoInput = errors.New("no input")

// Reader asks questions on out and reads answers line by line from in.
type Reader struct {
	in  *bufio.Scanner
	out io.Writer
}

func NewReader(in io.Reader, out io.Writer) *Reader {
	return &Reader{in: bufio.NewScanner(in), out: out}
}

// ReadInt asks until the answer is an integer in [min, max].
func (r *Reader) ReadInt(label string, min, max int) (int, error) {
	return r.readInt(label, min, max, nil)
}

// ReadIntDefault is ReadInt where an empty answer picks def.
func (r *Reader) ReadIntDefault(label string, def, min, max int) (int, error) {
	return r.readInt(label, min, max, &def)
}

func (r *Reader) readInt(label string, min, max int, def *int) (int, error) {
	for {
		if def != nil {
			fmt.Fprintf(r.out, "%s (%d-%d) [%d]: ", label, min, max, *def)
		} else {
			fmt.Fprintf(r.out, "%s (%d-%d): ", label, min, max)
		}
		line, err := r.readLine()
		if err != nil {
			return 0, err
		}
		if line == "" && def != nil {
			line = strconv.Itoa(*def)
		}
		n, err := strconv.Atoi(line)
		if err != nil {
			fmt.Fprintln(r.out, "Please enter a whole number.")
			continue
		}
		if n < min || n > max {
			fmt.Fprintf(r.out, "Please enter a number between %d and %d.\n", min, max)
			continue
		}
		return n, nil
	}
}

// WaitForEnter blocks until a line is read or the input ends.
func (r *Reader) WaitForEnter() {
	fmt.Fprint(r.out, "Press Enter to continue...")
	_, _ = r.readLine()
	fmt.Fprintln(r.out)
}

func (r *Reader) readLine() (string, error) {
	if !r.in.Scan() {
		if err := r.in.Err(); err != nil {
			return "", err
		}
		return "", ErrNoInput
	}
	return strings.TrimSpace(r.in.Text()), nil
}
