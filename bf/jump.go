package bf

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// JumpMap pairs every '[' in a program with its matching ']'.
type JumpMap struct {
	partner []int // -1 for non-bracket positions
}

// Resolve builds the JumpMap for ops. If the brackets are unbalanced it
// returns an error holding an UnmatchedCloseBracket or UnmatchedOpenBracket
// for every offending position, in program order.
func Resolve(ops []Op) (*JumpMap, error) {
	var (
		j     = &JumpMap{partner: make([]int, len(ops))}
		open  []int
		stray []error
		merr  *multierror.Error
	)
	for i, op := range ops {
		j.partner[i] = -1
		switch op {
		case Open:
			open = append(open, i)
		case Close:
			if len(open) == 0 {
				stray = append(stray, UnmatchedCloseBracket{Pos: i})
				continue
			}
			o := open[len(open)-1]
			open = open[:len(open)-1]
			j.partner[o], j.partner[i] = i, o
		}
	}
	for _, err := range stray {
		merr = multierror.Append(merr, err)
	}
	for _, o := range open {
		merr = multierror.Append(merr, UnmatchedOpenBracket{Pos: o})
	}
	if merr != nil {
		merr.ErrorFormat = formatBracketErrors
	}
	if err := merr.ErrorOrNil(); err != nil {
		return nil, err
	}
	return j, nil
}

// Forward returns the position of the ']' matching the '[' at pos.
func (j *JumpMap) Forward(pos int) int { return j.partner[pos] }

// Inverse returns the position of the '[' matching the ']' at pos.
func (j *JumpMap) Inverse(pos int) int { return j.partner[pos] }

// Partner returns the matching bracket for pos,
// and reports whether pos holds a bracket.
func (j *JumpMap) Partner(pos int) (int, bool) {
	if pos < 0 || pos >= len(j.partner) || j.partner[pos] < 0 {
		return 0, false
	}
	return j.partner[pos], true
}

// Len returns the number of bracket pairs.
func (j *JumpMap) Len() (n int) {
	for i, p := range j.partner {
		if p > i {
			n++
		}
	}
	return n
}

// UnmatchedCloseBracket is reported for a ']' with no preceding '['.
type UnmatchedCloseBracket struct {
	Pos int
}

func (e UnmatchedCloseBracket) Error() string {
	return fmt.Sprintf("unmatched ']' at instruction %d", e.Pos)
}

// UnmatchedOpenBracket is reported for a '[' that is never closed.
type UnmatchedOpenBracket struct {
	Pos int
}

func (e UnmatchedOpenBracket) Error() string {
	return fmt.Sprintf("unmatched '[' at instruction %d", e.Pos)
}

// BracketPos returns the instruction position carried by a bracket error.
func BracketPos(err error) (int, bool) {
	switch e := err.(type) {
	case UnmatchedCloseBracket:
		return e.Pos, true
	case UnmatchedOpenBracket:
		return e.Pos, true
	}
	return 0, false
}

// BracketErrors flattens err into its individual bracket errors.
func BracketErrors(err error) []error {
	if merr, ok := err.(*multierror.Error); ok {
		return merr.WrappedErrors()
	}
	if _, ok := BracketPos(err); ok {
		return []error{err}
	}
	return nil
}

func formatBracketErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}
