package infra

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
)

// Command describes one external process invocation. A nil Env inherits the
// parent environment; a non-nil Env replaces it entirely.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string
}

// Result carries everything a finished process reported.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// CommandRunner is the process-execution capability. Run returns an error
// only when the process could not be started or was interrupted; a non-zero
// exit status is reported through Result.ExitCode with a nil error, so
// callers always distinguish "tool failed" from "tool never ran".
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
	LookPath(name string) (string, error)
}

// OSRunner implements CommandRunner over os/exec.
type OSRunner struct{}

// NewOSRunner returns the production command runner binding.
func NewOSRunner() *OSRunner {
	return &OSRunner{}
}

func (*OSRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if cmd.Env != nil {
		c.Env = cmd.Env
	} else {
		c.Env = os.Environ()
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	result := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return result, nil
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	default:
		return result, err
	}
}

func (*OSRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
