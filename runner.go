package main

import (
	"context"
	"log/slog"

	"github.com/nf/nbf/bf"
)

// StateKind describes why a Runner reported the machine state.
type StateKind int

const (
	RunningState StateKind = iota
	PauseState
	BreakState
	InputState
	DoneState
	FailState
)

func (k StateKind) String() string {
	switch k {
	case RunningState:
		return "run"
	case PauseState:
		return "pause"
	case BreakState:
		return "break"
	case InputState:
		return "input"
	case DoneState:
		return "done"
	case FailState:
		return "fail"
	}
	return "unknown"
}

// StateFunc is called from the Runner's goroutine. It must not retain m.
type StateFunc func(m *bf.Machine, k StateKind)

// reportEvery is how many instructions run between RunningState reports.
const reportEvery = 1 << 16

// Runner drives a Machine, accepting debugger commands between
// instructions. In dev mode a finished or failed program does not end Run;
// the Runner waits for a replacement via Swap.
type Runner struct {
	dev   bool
	state StateFunc
	log   *slog.Logger

	cmds      chan debugCmd
	reset     chan *bf.Machine
	resetDone chan bool
}

type debugCmd struct {
	cmd string
	pos int
}

func NewRunner(devMode bool, state StateFunc, log *slog.Logger) *Runner {
	if state == nil {
		state = func(*bf.Machine, StateKind) {}
	}
	return &Runner{
		dev:       devMode,
		state:     state,
		log:       log,
		cmds:      make(chan debugCmd, 16),
		reset:     make(chan *bf.Machine),
		resetDone: make(chan bool),
	}
}

// Debug queues a debugger command. Commands are
//
//	pause, p       stop before the next instruction
//	cont, c        resume running
//	step, s        execute one instruction and pause
//	break, b       pause when the instruction pointer reaches pos (pos < 0 clears)
//	restart, r     zero the tape and start the program again
func (r *Runner) Debug(cmd string, pos int) {
	select {
	case r.cmds <- debugCmd{cmd, pos}:
	default:
		r.log.Warn("runner busy, dropped command", "cmd", cmd)
	}
}

// Swap replaces the running machine with m. It blocks until the Runner has
// taken m, which happens between instructions, or until ctx is done.
func (r *Runner) Swap(ctx context.Context, m *bf.Machine) error {
	if !r.dev {
		panic("Swap called while not running in dev mode")
	}
	select {
	case r.reset <- m:
	case <-ctx.Done():
		return ctx.Err()
	}
	<-r.resetDone
	return nil
}

type session struct {
	m       *bf.Machine
	brk     int
	paused  bool
	step    bool
	halted  bool // finished or failed, waiting for a Swap
	resumed bool // skip the breakpoint at the current instruction
	steps   int
}

// Run executes m until it finishes, fails, or ctx is done.
// In dev mode it returns only when ctx is done.
func (r *Runner) Run(ctx context.Context, m *bf.Machine) error {
	s := &session{m: m, brk: -1}
	r.state(s.m, RunningState)
	for {
		if err := r.poll(ctx, s, s.paused || s.halted); err != nil {
			return err
		}
		if s.paused || s.halted {
			continue
		}
		if s.m.IP == s.brk && !s.resumed {
			s.paused = true
			r.state(s.m, BreakState)
			continue
		}
		s.resumed = false
		if op, ok := s.m.Op(); ok && op == bf.In {
			r.state(s.m, InputState)
		}
		err := s.m.Exec()
		s.steps++
		switch {
		case err == bf.ErrDone:
			r.state(s.m, DoneState)
			if !r.dev {
				return nil
			}
			r.log.Info("program finished", "steps", s.steps)
			s.halted = true
		case err != nil:
			r.state(s.m, FailState)
			if !r.dev {
				return err
			}
			r.log.Error("program failed", "err", err)
			s.halted = true
		case s.step:
			s.step = false
			s.paused = true
			r.state(s.m, PauseState)
		case s.steps%reportEvery == 0:
			r.state(s.m, RunningState)
		}
	}
}

func (r *Runner) poll(ctx context.Context, s *session, block bool) error {
	if !block {
		select {
		case c := <-r.cmds:
			r.apply(s, c)
		case m := <-r.reset:
			r.swapIn(s, m)
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		return nil
	}
	select {
	case c := <-r.cmds:
		r.apply(s, c)
	case m := <-r.reset:
		r.swapIn(s, m)
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (r *Runner) apply(s *session, c debugCmd) {
	switch c.cmd {
	case "p", "pause":
		if !s.paused {
			s.paused = true
			r.state(s.m, PauseState)
		}
	case "c", "cont":
		if s.paused {
			s.paused, s.resumed = false, true
			r.state(s.m, RunningState)
		}
	case "s", "step":
		if s.paused {
			s.paused, s.resumed, s.step = false, true, true
		}
	case "b", "break":
		s.brk = c.pos
	case "r", "restart":
		s.m.Reset()
		s.halted, s.resumed, s.steps = false, false, 0
		r.log.Info("restart")
		r.state(s.m, RunningState)
	default:
		r.log.Warn("unknown debugger command", "cmd", c.cmd)
	}
}

func (r *Runner) swapIn(s *session, m *bf.Machine) {
	s.m = m
	s.halted, s.resumed, s.steps = false, false, 0
	r.resetDone <- true
	r.state(s.m, RunningState)
}
