// Package console implements the line-oriented device behind the ',' and '.'
// instructions.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
)

// MaxInput is the largest value accepted by In.
const MaxInput = 127

// ErrInputClosed is returned by In when the input stream ends.
var ErrInputClosed = errors.New("input closed")

// Console reads cell values one per line from In and writes cell values as
// single bytes to Out. Prompts and complaints about bad input go to Prompt,
// never to Out.
type Console struct {
	in     *bufio.Reader
	out    io.Writer
	prompt io.Writer

	// Interactive enables the "> " prompt before each read.
	Interactive bool
	// Rejected counts input lines that were refused.
	Rejected int
}

// New returns a Console reading from in and writing to out, with prompts
// written to prompt. The prompt is shown only if in is a terminal.
func New(in io.Reader, out, prompt io.Writer) *Console {
	if prompt == nil {
		prompt = io.Discard
	}
	return &Console{
		in:          bufio.NewReader(in),
		out:         out,
		prompt:      prompt,
		Interactive: isTerminal(in),
	}
}

// Stdio returns a Console on the process's standard streams.
func Stdio() *Console { return New(os.Stdin, os.Stdout, os.Stderr) }

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// In reads lines until one holds an integer in [0, MaxInput] and returns it.
// It returns ErrInputClosed if the stream ends first.
func (c *Console) In() (byte, error) {
	for {
		if c.Interactive {
			io.WriteString(c.prompt, "> ")
		}
		line, err := c.in.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return 0, ErrInputClosed
			}
			return 0, fmt.Errorf("reading input: %w", err)
		}
		if v, ok := parse(line); ok {
			return v, nil
		}
		c.Rejected++
		fmt.Fprintf(c.prompt, "Input must be an integer between 0 and %d.\n", MaxInput)
	}
}

func parse(line string) (byte, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || v < 0 || v > MaxInput {
		return 0, false
	}
	return byte(v), true
}

// Out writes b immediately.
func (c *Console) Out(b byte) error {
	_, err := c.out.Write([]byte{b})
	return err
}
