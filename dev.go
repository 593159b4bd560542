package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/howeyc/fsnotify"

	"github.com/nf/nbf/bf"
	"github.com/nf/nbf/console"
)

// devMode runs file and re-runs it on a fresh tape each time the file is
// written. A malformed edit is logged and the previous program keeps running.
func devMode(ctx context.Context, cfg config, file string, log *slog.Logger, logFile io.Writer,
	stdin io.Reader, stdout, stderr io.Writer) error {
	file = filepath.Clean(file)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Watch(filepath.Dir(file)); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		in     = stdin
		out    = stdout
		prompt = stderr
		state  StateFunc
		dbg    *debugger
		quit   = make(chan bool)
	)
	if cfg.debug {
		dbg = newDebugger()
		in, out, prompt = dbg.stdin, dbg.output, dbg.output
		if log, err = newLogger(dbg.log, cfg.logLevel, logFile); err != nil {
			return err
		}
		state = dbg.StateFunc
	} else if cfg.dump {
		state = func(m *bf.Machine, k StateKind) {
			if k == DoneState {
				dumpTape(out, m)
			}
		}
	}
	con := console.New(in, out, prompt)
	runner := NewRunner(true, state, log)
	if dbg != nil {
		con.Interactive = true
		dbg.run = runner
		go func() {
			if err := dbg.Run(); err != nil {
				log.Error("debug", "err", err)
			}
			close(quit)
			cancel()
		}()
		defer dbg.Stop()
	}

	machines := make(chan *bf.Machine)
	go func() {
		started := false
		load := time.After(1 * time.Millisecond)
		for {
			select {
			case <-load:
				log.Info("dev: load", "file", filepath.Base(file))
				m, src, err := loadSource(file, con)
				if err != nil {
					log.Error("dev: " + err.Error())
					break
				}
				if dbg != nil {
					dbg.setSource(src)
				}
				if !started {
					log.Info("dev: start")
					select {
					case machines <- m:
					case <-ctx.Done():
						return
					}
					started = true
				} else {
					log.Info("dev: reset")
					if err := runner.Swap(ctx, m); err != nil {
						return
					}
				}
			case ev := <-watcher.Event:
				if filepath.Clean(ev.Name) == file && !ev.IsAttrib() {
					load = time.After(100 * time.Millisecond)
				}
			case err := <-watcher.Error:
				log.Warn("dev: watcher", "err", err)
			case <-ctx.Done():
				return
			}
		}
	}()

	var m *bf.Machine
	select {
	case m = <-machines:
	case <-ctx.Done():
		return ctx.Err()
	}
	err = runner.Run(ctx, m)
	select {
	case <-quit:
		if errors.Is(err, context.Canceled) {
			return nil
		}
	default:
	}
	return err
}
