// Command nbf executes programs for the eight-instruction tape language.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/pprof"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nf/nbf/bf"
	"github.com/nf/nbf/console"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	go func() {
		// A second interrupt kills the process, even if ',' is blocked.
		<-ctx.Done()
		stop()
	}()
	err := newCommand(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "nbf: %s\n", color.RedString("%v", err))
		os.Exit(exitCode(err))
	}
}

type config struct {
	dump       bool
	dev        bool
	debug      bool
	cpuProfile string
	logLevel   string
	logFile    string
	noColor    bool
}

func loadConfig(v *viper.Viper) config {
	return config{
		dump:       v.GetBool("dump"),
		dev:        v.GetBool("dev") || v.GetBool("debug"),
		debug:      v.GetBool("debug"),
		cpuProfile: v.GetString("cpu-profile"),
		logLevel:   v.GetString("log-level"),
		logFile:    v.GetString("log-file"),
		noColor:    v.GetBool("no-color"),
	}
}

func newCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "nbf [flags] <program.bf>",
		Short: "Execute a program on a 30,000 cell tape",
		Long: `nbf executes a program written with the eight instructions + - < > . , [ ].
Every other character in the program file is a comment.

Each ',' reads one line from standard input holding an integer from 0 to 127.
Flags may also be set in the environment, for example NBF_DUMP=true.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(v)
			if cfg.noColor {
				color.NoColor = true
			}
			return execute(cmd.Context(), cfg, args[0], stdin, stdout, stderr)
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.BoolP("dump", "d", false, "show the tape at the end of execution")
	flags.Bool("dev", false, "enable developer mode (re-run the program when its file changes)")
	flags.Bool("debug", false, "enable the debugger (implies --dev)")
	flags.String("cpu-profile", "", "write CPU profile to `file`")
	flags.String("log-level", "warn", "log `level` (debug, info, warn, error)")
	flags.String("log-file", "", "also write JSON logs to `file`")
	flags.Bool("no-color", false, "disable colored diagnostics")

	v.SetEnvPrefix("nbf")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}
	return cmd
}

func execute(ctx context.Context, cfg config, file string, stdin io.Reader, stdout, stderr io.Writer) error {
	var logFile io.Writer
	if cfg.logFile != "" {
		f, err := os.OpenFile(cfg.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		logFile = f
	}
	log, err := newLogger(stderr, cfg.logLevel, logFile)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}

	if cfg.dev {
		return devMode(ctx, cfg, file, log, logFile, stdin, stdout, stderr)
	}

	if prof := cfg.cpuProfile; prof != "" {
		f, err := os.Create(prof)
		if err != nil {
			return fmt.Errorf("creating CPU profile file: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}

	m, _, err := loadSource(file, console.New(stdin, stdout, stderr))
	if err != nil {
		return err
	}
	log.Debug("loaded", "file", file, "instructions", m.Prog.Len(), "loops", m.Jumps.Len())
	if err := m.Run(ctx); err != nil {
		return err
	}
	log.Debug("finished", "dp", m.DP)
	if cfg.dump {
		return dumpTape(stdout, m)
	}
	return nil
}

// loadSource reads and resolves the program in file.
func loadSource(file string, dev bf.Device) (*bf.Machine, *sourceMap, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, nil, SourceError{err}
	}
	sm := newSourceMap(file, src)
	prog := bf.Load(src)
	m, err := bf.New(prog, dev)
	if err != nil {
		return nil, sm, ProgramError{src: sm, prog: prog, err: err}
	}
	return m, sm, nil
}

// SourceError reports a program file that could not be read.
type SourceError struct {
	Err error
}

func (e SourceError) Error() string { return "source unreadable: " + e.Err.Error() }

func (e SourceError) Unwrap() error { return e.Err }

// ProgramError reports the unmatched brackets of a malformed program,
// one per line, each with its source position.
type ProgramError struct {
	src  *sourceMap
	prog *bf.Program
	err  error
}

func (e ProgramError) Error() string {
	var b strings.Builder
	for i, err := range bf.BracketErrors(e.err) {
		if i > 0 {
			b.WriteByte('\n')
		}
		if pos, ok := bf.BracketPos(err); ok {
			if p := e.src.pos(e.prog, pos); p != "" {
				b.WriteString(p)
				b.WriteString(": ")
			}
		}
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e ProgramError) Unwrap() error { return e.err }

func exitCode(err error) int {
	if errors.Is(err, context.Canceled) {
		return 130
	}
	return 1
}
