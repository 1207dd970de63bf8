package console

import (
	"fmt"
	"os"

	"github.com/wasm-slim/wasm-slim/pkg/tty"
)

// Cursor and screen control. Every function checks TTY status at call time
// so redirected output never receives ANSI escape sequences.

// ClearScreen clears the terminal and homes the cursor.
func ClearScreen() {
	if !tty.IsStdoutTerminal() {
		return
	}
	fmt.Fprint(os.Stdout, "\x1b[2J\x1b[H")
}

// ClearLine erases the current stderr line and returns the cursor to column 0.
func ClearLine() {
	if !tty.IsStderrTerminal() {
		return
	}
	fmt.Fprint(os.Stderr, "\r\x1b[K")
}

// MoveCursorUp moves the stderr cursor up n lines.
func MoveCursorUp(n int) {
	if n <= 0 || !tty.IsStderrTerminal() {
		return
	}
	fmt.Fprintf(os.Stderr, "\x1b[%dA", n)
}

// MoveCursorDown moves the stderr cursor down n lines.
func MoveCursorDown(n int) {
	if n <= 0 || !tty.IsStderrTerminal() {
		return
	}
	fmt.Fprintf(os.Stderr, "\x1b[%dB", n)
}
