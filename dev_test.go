package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

func printChar(c byte) string {
	return strings.Repeat("+", int(c)) + "."
}

func TestDevModeReload(t *testing.T) {
	file := filepath.Join(t.TempDir(), "prog.bf")
	require.NoError(t, os.WriteFile(file, []byte(printChar('A')), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var out syncBuffer
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	errc := make(chan error, 1)
	go func() {
		errc <- devMode(ctx, config{dev: true, dump: true}, file, log, nil,
			strings.NewReader(""), &out, io.Discard)
	}()

	require.Eventually(t, func() bool {
		return out.String() == "AArray: []\n"
	}, 5*time.Second, 10*time.Millisecond)

	// A malformed edit leaves the previous program in place.
	require.NoError(t, os.WriteFile(file, []byte("["), 0o644))
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, "AArray: []\n", out.String())

	require.NoError(t, os.WriteFile(file, []byte(">"+printChar('B')), 0o644))
	require.Eventually(t, func() bool {
		return out.String() == "AArray: []\nBArray: [0]\n"
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("devMode did not return after cancel")
	}
}
