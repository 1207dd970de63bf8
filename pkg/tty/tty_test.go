//go:build !windows && !integration

package tty

import (
	"os"
	"testing"

	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// swapStdio points the process streams at f for the duration of the test.
func swapStdio(t *testing.T, f *os.File) {
	t.Helper()
	origStdout, origStderr, origStdin := os.Stdout, os.Stderr, os.Stdin
	os.Stdout, os.Stderr, os.Stdin = f, f, f
	t.Cleanup(func() {
		os.Stdout, os.Stderr, os.Stdin = origStdout, origStderr, origStdin
	})
}

func TestTerminalDetectionOnPTY(t *testing.T) {
	ptmx, tts, err := pty.Open()
	if err != nil {
		t.Skipf("cannot open pty: %v", err)
	}
	defer ptmx.Close()
	defer tts.Close()

	swapStdio(t, tts)

	assert.True(t, IsStdoutTerminal())
	assert.True(t, IsStderrTerminal())
	assert.True(t, IsStdinTerminal())
}

func TestTerminalDetectionOnPipe(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	swapStdio(t, w)

	assert.False(t, IsStdoutTerminal())
	assert.False(t, IsStderrTerminal())
	assert.False(t, IsStdinTerminal())
}
