// Package tty reports whether the process is attached to an interactive
// terminal. Interactive affordances (spinners, cursor movement, prompts) are
// gated on these checks so piped and CI output stays plain.
package tty

import (
	"os"

	"golang.org/x/term"
)

// IsStdoutTerminal reports whether stdout is a terminal.
func IsStdoutTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// IsStderrTerminal reports whether stderr is a terminal.
func IsStderrTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// IsStdinTerminal reports whether stdin is a terminal. Used to decide whether
// interactive prompts can run at all.
func IsStdinTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
