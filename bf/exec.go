// Package bf provides an interpreter, called Machine, for programs written
// in the eight-instruction tape language.
package bf

import (
	"context"
	"errors"
	"fmt"
)

// TapeSize is the number of cells on the tape.
const TapeSize = 30000

// Machine executes a Program against a fixed tape of byte cells.
// Cells are 8 bits wide and wrap on overflow in both directions.
type Machine struct {
	Tape  [TapeSize]byte
	DP    int // data pointer, kept within [0, TapeSize)
	IP    int // instruction pointer
	Prog  *Program
	Jumps *JumpMap
	Dev   Device
}

// Device provides the input and output streams used by ',' and '.'.
type Device interface {
	// In blocks until a cell value is available.
	In() (byte, error)
	Out(b byte) error
}

// New returns a Machine ready to run prog with all cells zeroed.
// It returns the bracket errors from Resolve if prog is malformed,
// so a Machine is never built for a program that cannot run.
func New(prog *Program, dev Device) (*Machine, error) {
	j, err := Resolve(prog.Ops)
	if err != nil {
		return nil, err
	}
	return &Machine{Prog: prog, Jumps: j, Dev: dev}, nil
}

// ErrDone is returned by Exec when the instruction pointer is past the end
// of the program.
var ErrDone = errors.New("done")

// Exec executes the instruction at m.IP. It returns ErrDone if there is no
// instruction left to execute, and otherwise only returns a non-nil error if
// the Device fails.
func (m *Machine) Exec() error {
	if m.Done() {
		return ErrDone
	}
	op := m.Prog.Ops[m.IP]
	switch op {
	case Inc:
		m.Tape[m.DP]++
	case Dec:
		m.Tape[m.DP]--
	case Right:
		if m.DP < TapeSize-1 {
			m.DP++
		}
	case Left:
		if m.DP > 0 {
			m.DP--
		}
	case Out:
		if err := m.Dev.Out(m.Tape[m.DP]); err != nil {
			return IOError{Op: op, Pos: m.IP, Err: err}
		}
	case In:
		b, err := m.Dev.In()
		if err != nil {
			return IOError{Op: op, Pos: m.IP, Err: err}
		}
		m.Tape[m.DP] = b
	case Open:
		if m.Tape[m.DP] == 0 {
			m.IP = m.Jumps.Forward(m.IP)
		}
	case Close:
		if m.Tape[m.DP] != 0 {
			m.IP = m.Jumps.Inverse(m.IP)
		}
	default:
		panic(fmt.Errorf("internal error: %v not implemented", op))
	}
	// A taken jump lands on the partner bracket; the increment moves past it.
	m.IP++
	return nil
}

// Run executes instructions until the program ends, the Device fails,
// or ctx is cancelled. It returns nil when the program ends.
func (m *Machine) Run(ctx context.Context) error {
	done := ctx.Done()
	for {
		if done != nil {
			select {
			case <-done:
				return ctx.Err()
			default:
			}
		}
		if err := m.Exec(); err != nil {
			if err == ErrDone {
				return nil
			}
			return err
		}
	}
}

// Done reports whether the instruction pointer is past the end of the
// program.
func (m *Machine) Done() bool { return m.IP >= len(m.Prog.Ops) }

// Op returns the instruction at m.IP and reports whether there is one.
func (m *Machine) Op() (Op, bool) {
	if m.Done() {
		return 0, false
	}
	return m.Prog.Ops[m.IP], true
}

// Cell returns the value of the current cell.
func (m *Machine) Cell() byte { return m.Tape[m.DP] }

// Reset zeroes the tape and both cursors.
func (m *Machine) Reset() {
	m.Tape = [TapeSize]byte{}
	m.DP, m.IP = 0, 0
}

// IOError is returned by Exec when the Device fails during '.' or ','.
type IOError struct {
	Op  Op
	Pos int
	Err error
}

func (e IOError) Error() string {
	return fmt.Sprintf("%v executing %s at instruction %d", e.Err, e.Op, e.Pos)
}

func (e IOError) Unwrap() error { return e.Err }
