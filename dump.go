package main

import (
	"io"
	"strconv"
	"strings"

	"github.com/nf/nbf/bf"
)

// dumpTape writes the first k cells of the tape, where k is the number of
// '>' instructions in the program.
func dumpTape(w io.Writer, m *bf.Machine) error {
	n := min(m.Prog.Count(bf.Right), bf.TapeSize)
	var b strings.Builder
	b.WriteString("Array: [")
	for i, v := range m.Tape[:n] {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Itoa(int(v)))
	}
	b.WriteString("]\n")
	_, err := io.WriteString(w, b.String())
	return err
}
