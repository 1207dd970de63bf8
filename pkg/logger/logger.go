// Package logger provides namespaced debug logging controlled by the DEBUG
// environment variable.
//
// Loggers are created with a namespace like "workflow:build" and emit to
// stderr only when the namespace matches one of the comma-separated patterns
// in DEBUG. Patterns support a trailing "*" wildcard and a "-" prefix for
// exclusions:
//
//	DEBUG=*                          all namespaces
//	DEBUG=workflow:*                 one namespace tree
//	DEBUG=workflow:*,cli:*           multiple trees
//	DEBUG=*,-workflow:rollback       everything except one logger
//
// Disabled loggers are no-ops, so call sites can log unconditionally.
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Logger emits debug lines for one namespace.
type Logger struct {
	namespace string
	enabled   bool

	mu   sync.Mutex
	last time.Time
}

// New creates a logger for the given namespace. The DEBUG environment
// variable is consulted once, at creation time.
func New(namespace string) *Logger {
	return &Logger{
		namespace: namespace,
		enabled:   matches(namespace, os.Getenv("DEBUG")),
		last:      time.Now(),
	}
}

// Enabled reports whether this logger's namespace is selected by DEBUG.
func (l *Logger) Enabled() bool {
	return l.enabled
}

// Printf logs a formatted message. No-op when the logger is disabled.
func (l *Logger) Printf(format string, args ...any) {
	if !l.enabled {
		return
	}
	l.emit(fmt.Sprintf(format, args...))
}

// Print logs its arguments joined as fmt.Sprint would. No-op when the logger
// is disabled.
func (l *Logger) Print(args ...any) {
	if !l.enabled {
		return
	}
	l.emit(fmt.Sprint(args...))
}

func (l *Logger) emit(msg string) {
	l.mu.Lock()
	now := time.Now()
	elapsed := now.Sub(l.last)
	l.last = now
	l.mu.Unlock()

	fmt.Fprintf(os.Stderr, "%s %s +%s\n", l.namespace, msg, elapsed)
}

// matches implements the debug-style pattern match: namespaces are selected
// when at least one positive pattern matches and no exclusion pattern does.
func matches(namespace, debug string) bool {
	if debug == "" {
		return false
	}

	selected := false
	for _, pattern := range strings.Split(debug, ",") {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		negate := strings.HasPrefix(pattern, "-")
		if negate {
			pattern = pattern[1:]
		}

		if !matchPattern(namespace, pattern) {
			continue
		}
		if negate {
			return false
		}
		selected = true
	}
	return selected
}

func matchPattern(namespace, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(namespace, prefix)
	}
	return namespace == pattern
}
