package main

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/nf/nbf/bf"
)

// sourceMap translates instruction positions back to source lines.
type sourceMap struct {
	name  string
	src   []byte
	lines []int // offset of the first byte of each line
}

func newSourceMap(name string, src []byte) *sourceMap {
	s := &sourceMap{name: name, src: src, lines: []int{0}}
	for i, c := range src {
		if c == '\n' {
			s.lines = append(s.lines, i+1)
		}
	}
	return s
}

// lineCol returns the 1-based line and column of offset.
func (s *sourceMap) lineCol(offset int) (line, col int) {
	i := sort.Search(len(s.lines), func(i int) bool { return s.lines[i] > offset })
	return i, offset - s.lines[i-1] + 1
}

// line returns the text of line n, without its newline.
func (s *sourceMap) line(n int) string {
	if n < 1 || n > len(s.lines) {
		return ""
	}
	start := s.lines[n-1]
	end := len(s.src)
	if n < len(s.lines) {
		end = s.lines[n] - 1
	}
	return string(bytes.TrimRight(s.src[start:end], "\r"))
}

// pos returns "name:line:col" for the instruction at ip in p,
// or the empty string if ip has no source position.
func (s *sourceMap) pos(p *bf.Program, ip int) string {
	off := p.Offset(ip)
	if off < 0 || off >= len(s.src) {
		return ""
	}
	line, col := s.lineCol(off)
	return fmt.Sprintf("%s:%d:%d", s.name, line, col)
}
