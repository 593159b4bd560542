package bf

import "strings"

// Op represents one of the eight instructions.
type Op byte

const (
	Inc   Op = iota // +
	Dec             // -
	Right           // >
	Left            // <
	Out             // .
	In              // ,
	Open            // [
	Close           // ]

	numOps
)

var opSymbols = [numOps]byte{
	Inc:   '+',
	Dec:   '-',
	Right: '>',
	Left:  '<',
	Out:   '.',
	In:    ',',
	Open:  '[',
	Close: ']',
}

func (op Op) String() string {
	if op < numOps {
		return string(opSymbols[op])
	}
	return "?"
}

// ParseOp returns the Op for the source symbol c,
// and reports whether c is an instruction at all.
func ParseOp(c byte) (Op, bool) {
	switch c {
	case '+':
		return Inc, true
	case '-':
		return Dec, true
	case '>':
		return Right, true
	case '<':
		return Left, true
	case '.':
		return Out, true
	case ',':
		return In, true
	case '[':
		return Open, true
	case ']':
		return Close, true
	}
	return 0, false
}

// Program is a normalized instruction sequence.
type Program struct {
	Ops     []Op
	Offsets []int // byte offset in the source of each op
}

// Load filters src down to its instructions. Every byte outside the
// instruction alphabet is a comment and is dropped.
func Load(src []byte) *Program {
	p := &Program{}
	for i, c := range src {
		if op, ok := ParseOp(c); ok {
			p.Ops = append(p.Ops, op)
			p.Offsets = append(p.Offsets, i)
		}
	}
	return p
}

// Len returns the number of instructions in p.
func (p *Program) Len() int { return len(p.Ops) }

// Count returns the number of occurrences of op in p.
func (p *Program) Count(op Op) (n int) {
	for _, o := range p.Ops {
		if o == op {
			n++
		}
	}
	return n
}

// Offset returns the source offset of the instruction at pos,
// or -1 if pos is out of range.
func (p *Program) Offset(pos int) int {
	if pos < 0 || pos >= len(p.Offsets) {
		return -1
	}
	return p.Offsets[pos]
}

func (p *Program) String() string {
	var b strings.Builder
	b.Grow(len(p.Ops))
	for _, op := range p.Ops {
		b.WriteByte(opSymbols[op])
	}
	return b.String()
}
