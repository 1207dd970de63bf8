// Package testutil provides small helpers shared across test files.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

var (
	testRunDirOnce sync.Once
	testRunDir     string
)

// GetTestRunDir returns a process-wide directory for this test run. All
// TempDir results live under it, which keeps stray artifacts from failed
// runs easy to find and delete.
func GetTestRunDir() string {
	testRunDirOnce.Do(func() {
		base := filepath.Join(os.TempDir(), "wasm-slim-test-runs")
		run := filepath.Join(base, fmt.Sprintf("run-%d-%d", os.Getpid(), time.Now().UnixNano()))
		if err := os.MkdirAll(run, 0755); err != nil {
			// Fall back to the system temp dir rather than failing test setup.
			testRunDir = os.TempDir()
			return
		}
		testRunDir = run
	})
	return testRunDir
}

// TempDir creates a temporary directory under the test run directory and
// removes it when the test finishes.
func TempDir(t *testing.T, pattern string) string {
	t.Helper()

	dir, err := os.MkdirTemp(GetTestRunDir(), pattern)
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(dir)
	})
	return dir
}

// StripYAMLCommentHeader removes the leading comment banner from generated
// YAML so tests can compare content without the header. Input consisting of
// nothing but comments is returned unchanged.
func StripYAMLCommentHeader(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		return strings.Join(lines[i:], "\n")
	}
	return content
}
