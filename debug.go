package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/nf/nbf/bf"
)

var debugCommands = []string{
	"break", "cont", "exit", "input", "pause", "restart", "step", "unwatch", "watch",
}

type debugger struct {
	run *Runner

	tape   *tview.TextView
	output *tview.TextView
	log    *tview.TextView
	state  *tview.TextView
	input  *tview.InputField
	cols   *tview.Flex
	rows   *tview.Flex
	app    *tview.Application

	stdin *io.PipeReader
	feed  chan string
	done  chan bool
	once  sync.Once

	mu      sync.Mutex
	src     *sourceMap
	brk     int
	watches []int
}

func newDebugger() *debugger {
	d := &debugger{
		tape: tview.NewTextView().
			SetWrap(false),
		output: tview.NewTextView().
			SetMaxLines(1000),
		log: tview.NewTextView().
			SetMaxLines(1000),
		state: tview.NewTextView().
			SetWrap(false),
		input: tview.NewInputField(),
		cols:  tview.NewFlex(),
		rows: tview.NewFlex().
			SetDirection(tview.FlexRow),
		app:  tview.NewApplication(),
		feed: make(chan string, 16),
		done: make(chan bool),
		brk:  -1,
	}
	pr, pw := io.Pipe()
	d.stdin = pr
	go func() {
		for line := range d.feed {
			if _, err := io.WriteString(pw, line+"\n"); err != nil {
				return
			}
		}
		pw.CloseWithError(io.EOF)
	}()

	d.output.SetChangedFunc(func() { d.app.Draw() })
	d.log.SetChangedFunc(func() { d.app.Draw() })
	d.tape.SetBackgroundColor(tcell.ColorDarkBlue)
	d.state.SetBackgroundColor(tcell.ColorDarkGrey)
	d.output.SetBorder(true)
	d.output.SetTitle(" output ")
	d.cols.
		AddItem(d.tape, 0, 1, false).
		AddItem(d.output, 0, 2, false)
	d.rows.
		AddItem(d.cols, 0, 3, false).
		AddItem(d.log, 0, 1, false).
		AddItem(d.state, 3, 0, false).
		AddItem(d.input, 1, 0, true)
	d.app.SetRoot(d.rows, true)

	d.input.SetAutocompleteFunc(func(t string) (entries []string) {
		if t == "" || strings.Contains(t, " ") {
			return nil
		}
		for _, c := range debugCommands {
			if strings.HasPrefix(c, t) {
				entries = append(entries, c)
			}
		}
		return
	})
	d.input.SetAutocompletedFunc(func(t string, index, src int) bool {
		if src != tview.AutocompletedNavigate {
			d.input.SetText(t)
		}
		return src == tview.AutocompletedEnter || src == tview.AutocompletedClick
	})
	d.input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		cmd := strings.TrimSpace(d.input.GetText())
		if cmd == "" {
			return
		}
		d.input.SetText("")
		d.command(cmd)
	})
	return d
}

func (d *debugger) command(cmd string) {
	if cmd == "exit" {
		d.app.Stop()
		return
	}
	cmd, arg, hasArg := strings.Cut(cmd, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "i", "input":
		if !hasArg {
			d.logf("input needs a value")
			return
		}
		select {
		case d.feed <- arg:
		default:
			d.logf("input queue full")
		}
		return
	case "b", "break":
		pos := -1
		if hasArg {
			n, err := strconv.Atoi(arg)
			if err != nil || n < 0 {
				d.logf("invalid instruction %q", arg)
				return
			}
			pos = n
		}
		d.mu.Lock()
		d.brk = pos
		d.mu.Unlock()
		d.run.Debug("break", pos)
		if pos < 0 {
			d.logf("cleared break")
		} else {
			d.logf("set break %d", pos)
		}
		return
	case "w", "watch", "unwatch":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 0 || n >= bf.TapeSize {
			d.logf("invalid cell %q", arg)
			return
		}
		d.mu.Lock()
		if cmd == "unwatch" {
			for i, w := range d.watches {
				if w == n {
					d.watches = append(d.watches[:i], d.watches[i+1:]...)
					break
				}
			}
		} else {
			d.watches = append(d.watches, n)
		}
		d.mu.Unlock()
		d.logf("%s cell %d", cmd, n)
		return
	}
	d.run.Debug(cmd, 0)
}

func (d *debugger) logf(format string, args ...any) {
	fmt.Fprintf(d.log, format+"\n", args...)
}

func (d *debugger) setSource(s *sourceMap) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.src = s
}

func (d *debugger) source() *sourceMap {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.src
}

func (d *debugger) Run() error {
	defer close(d.done)
	return d.app.Run()
}

// Stop shuts down the UI and closes the input stream so that a pending ','
// returns.
func (d *debugger) Stop() {
	d.once.Do(func() {
		d.app.Stop()
		d.stdin.CloseWithError(io.EOF)
	})
}

func (d *debugger) StateFunc(m *bf.Machine, k StateKind) {
	select {
	case <-d.done:
		return
	default:
	}
	var (
		tape  = d.tapeContent(m)
		state = stateMsg(d.source(), m, k)
	)
	d.app.QueueUpdateDraw(func() {
		switch k {
		case RunningState:
			d.state.SetTextColor(tcell.ColorBlack)
			d.state.SetBackgroundColor(tcell.ColorDarkGrey)
		case BreakState, InputState:
			d.state.SetTextColor(tcell.ColorYellow)
			d.state.SetBackgroundColor(tcell.ColorDarkBlue)
		case PauseState:
			d.state.SetTextColor(tcell.ColorWhite)
			d.state.SetBackgroundColor(tcell.ColorDarkBlue)
		case DoneState:
			d.state.SetTextColor(tcell.ColorWhite)
			d.state.SetBackgroundColor(tcell.ColorDarkGreen)
		case FailState:
			d.state.SetTextColor(tcell.ColorWhite)
			d.state.SetBackgroundColor(tcell.ColorDarkRed)
		}
		d.tape.SetText(tape)
		d.state.SetText(state)
	})
}

func stateMsg(src *sourceMap, m *bf.Machine, k StateKind) string {
	op := " "
	if o, ok := m.Op(); ok {
		op = o.String()
	}
	var pos, line, caret string
	if src != nil {
		pos = src.pos(m.Prog, m.IP)
		if off := m.Prog.Offset(m.IP); off >= 0 && off < len(src.src) {
			n, col := src.lineCol(off)
			line = src.line(n)
			caret = strings.Repeat(" ", col-1) + "^"
		}
	}
	return fmt.Sprintf("ip %-6d %s %-7s dp %-5d cell %-3d %s\n%s\n%s",
		m.IP, op, "["+k.String()+"]", m.DP, m.Cell(), pos, line, caret)
}

const tapeWindow = 8

func (d *debugger) tapeContent(m *bf.Machine) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b strings.Builder
	if d.brk >= 0 {
		fmt.Fprintf(&b, "break  %d\n\n", d.brk)
	}
	lo := max(0, m.DP-tapeWindow)
	hi := min(bf.TapeSize, m.DP+tapeWindow+1)
	for i := lo; i < hi; i++ {
		mark := "  "
		if i == m.DP {
			mark = "->"
		}
		fmt.Fprintf(&b, "%s %5d %3d %s\n", mark, i, m.Tape[i], printable(m.Tape[i]))
	}
	if len(d.watches) > 0 {
		b.WriteByte('\n')
	}
	for _, w := range d.watches {
		fmt.Fprintf(&b, "watch %5d %3d %s\n", w, m.Tape[w], printable(m.Tape[w]))
	}
	return b.String()
}

func printable(v byte) string {
	if v >= 0x20 && v < 0x7f {
		return string(rune(v))
	}
	return ""
}
