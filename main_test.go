package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nf/nbf/bf"
)

func runCommand(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newCommand(strings.NewReader(stdin), &out, &errOut)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestHelloWorld(t *testing.T) {
	stdout, _, err := runCommand(t, "", filepath.Join("testdata", "hello.bf"))
	require.NoError(t, err)
	assert.Equal(t, "Hello World!", stdout)
}

func TestHelloWorldDump(t *testing.T) {
	stdout, _, err := runCommand(t, "", "-d", filepath.Join("testdata", "hello.bf"))
	require.NoError(t, err)
	assert.Equal(t,
		"Hello World!Array: [0, 0, 72, 100, 87, 33, 8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0]\n",
		stdout)
}

func TestDumpFromEnv(t *testing.T) {
	t.Setenv("NBF_DUMP", "true")
	stdout, _, err := runCommand(t, "", filepath.Join("testdata", "loop.bf"))
	require.NoError(t, err)
	assert.Equal(t, "Array: []\n", stdout)
}

func TestEcho(t *testing.T) {
	stdout, stderr, err := runCommand(t, "300\nfoo\n65\n", filepath.Join("testdata", "echo.bf"))
	require.NoError(t, err)
	assert.Equal(t, "A", stdout)
	assert.Equal(t, 2, strings.Count(stderr, "Input must be an integer between 0 and 127."))
}

func TestEchoInputClosed(t *testing.T) {
	_, _, err := runCommand(t, "", filepath.Join("testdata", "echo.bf"))
	require.Error(t, err)
	var ioErr bf.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, bf.In, ioErr.Op)
	assert.Equal(t, 1, exitCode(err))
}

func TestUnbalanced(t *testing.T) {
	file := filepath.Join("testdata", "unbalanced.bf")
	stdout, _, err := runCommand(t, "", file)
	require.Error(t, err)
	assert.Empty(t, stdout)
	var ce bf.UnmatchedCloseBracket
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 7, ce.Pos)
	assert.Equal(t, file+":3:2: unmatched ']' at instruction 7", err.Error())
	assert.Equal(t, 1, exitCode(err))
}

func TestUnbalancedOpen(t *testing.T) {
	file := filepath.Join(t.TempDir(), "open.bf")
	require.NoError(t, os.WriteFile(file, []byte("+.\n  [[-]\n"), 0o644))
	stdout, _, err := runCommand(t, "", file)
	require.Error(t, err)
	assert.Empty(t, stdout, "no instruction may run before the brackets are checked")
	var oe bf.UnmatchedOpenBracket
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, 2, oe.Pos)
	assert.Equal(t, file+":2:3: unmatched '[' at instruction 2", err.Error())
}

func TestSourceUnreadable(t *testing.T) {
	_, _, err := runCommand(t, "", filepath.Join(t.TempDir(), "missing.bf"))
	require.Error(t, err)
	var se SourceError
	require.ErrorAs(t, err, &se)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Equal(t, 1, exitCode(err))
}

func TestArgs(t *testing.T) {
	_, _, err := runCommand(t, "")
	require.Error(t, err)
	_, _, err = runCommand(t, "", "a.bf", "b.bf")
	require.Error(t, err)
}

func TestBadLogLevel(t *testing.T) {
	_, _, err := runCommand(t, "", "--log-level", "loud", filepath.Join("testdata", "loop.bf"))
	require.Error(t, err)
}

func TestLogFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "nbf.log")
	_, stderr, err := runCommand(t, "", "--log-level", "debug", "--log-file", logFile,
		filepath.Join("testdata", "loop.bf"))
	require.NoError(t, err)
	assert.Contains(t, stderr, "msg=loaded")
	b, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"loaded"`)
	assert.Contains(t, string(b), `"instructions":5`)
}

func TestCancelled(t *testing.T) {
	file := filepath.Join(t.TempDir(), "forever.bf")
	require.NoError(t, os.WriteFile(file, []byte("+[]"), 0o644))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	cmd := newCommand(strings.NewReader(""), &out, &out)
	cmd.SetArgs([]string{file})
	err := cmd.ExecuteContext(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 130, exitCode(err))
}

func TestDumpTape(t *testing.T) {
	m, err := bf.New(bf.Load([]byte(">+>++>")), nil)
	require.NoError(t, err)
	require.NoError(t, m.Run(context.Background()))
	var b bytes.Buffer
	require.NoError(t, dumpTape(&b, m))
	assert.Equal(t, "Array: [0, 1, 2]\n", b.String())
}

func TestDumpTapeCapped(t *testing.T) {
	m, err := bf.New(bf.Load(bytes.Repeat([]byte(">"), bf.TapeSize+5)), nil)
	require.NoError(t, err)
	var b bytes.Buffer
	require.NoError(t, dumpTape(&b, m))
	assert.Equal(t, bf.TapeSize, strings.Count(b.String(), "0"))
}
