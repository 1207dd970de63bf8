package pipeline

import (
	"fmt"
	"strings"
)

// ToolMissingError reports a required tool that is absent from PATH or
// cannot answer a version probe.
type ToolMissingError struct {
	Tool string
}

func (e *ToolMissingError) Error() string {
	return fmt.Sprintf("%s is required but not found in PATH", e.Tool)
}

// StageError reports a build stage whose process exited non-zero. Stage is
// the binary name, so callers can tell which step of the pipeline failed.
type StageError struct {
	Stage    string
	ExitCode int
	Stderr   string
}

func (e *StageError) Error() string {
	if line := lastNonEmptyLine(e.Stderr); line != "" {
		return fmt.Sprintf("%s exited with code %d: %s", e.Stage, e.ExitCode, line)
	}
	return fmt.Sprintf("%s exited with code %d", e.Stage, e.ExitCode)
}

// lastNonEmptyLine extracts the closing line of a tool's stderr, which is
// where cargo and the wasm tools put their final error summary.
func lastNonEmptyLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

// ArtifactNotFoundError reports a stage that completed without leaving a
// .wasm file where the pipeline expected one.
type ArtifactNotFoundError struct {
	Dir string
}

func (e *ArtifactNotFoundError) Error() string {
	return fmt.Sprintf("no .wasm file found in %s", e.Dir)
}
