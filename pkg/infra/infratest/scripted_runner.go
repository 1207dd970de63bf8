package infratest

import (
	"context"
	"os/exec"
	"sync"

	"github.com/wasm-slim/wasm-slim/pkg/infra"
)

// Response describes how the scripted runner answers an invocation of a
// named binary.
type Response struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error

	// OnRun, when set, is called with the full command before the response
	// is returned. Tests use it to produce side effects such as writing an
	// artifact into a fake filesystem.
	OnRun func(cmd infra.Command)
}

// ScriptedRunner implements infra.CommandRunner by replaying canned
// responses keyed by binary name. Every call is recorded.
type ScriptedRunner struct {
	mu        sync.Mutex
	responses map[string]Response
	missing   map[string]bool
	calls     []infra.Command

	// RunFunc, when set, takes over Run entirely. Calls are still recorded.
	RunFunc func(ctx context.Context, cmd infra.Command) (infra.Result, error)
}

// NewScriptedRunner returns a runner that answers every command with a
// successful empty result until scripted otherwise.
func NewScriptedRunner() *ScriptedRunner {
	return &ScriptedRunner{
		responses: make(map[string]Response),
		missing:   make(map[string]bool),
	}
}

// Respond scripts the response for all invocations of the named binary.
func (r *ScriptedRunner) Respond(name string, resp Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[name] = resp
}

// SetMissing makes LookPath fail for the named binary.
func (r *ScriptedRunner) SetMissing(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.missing[name] = true
}

// Calls returns a copy of every command passed to Run, in order.
func (r *ScriptedRunner) Calls() []infra.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]infra.Command(nil), r.calls...)
}

// CallsFor returns the recorded commands whose binary matches name.
func (r *ScriptedRunner) CallsFor(name string) []infra.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []infra.Command
	for _, c := range r.calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

func (r *ScriptedRunner) Run(ctx context.Context, cmd infra.Command) (infra.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	runFunc := r.RunFunc
	resp, scripted := r.responses[cmd.Name]
	r.mu.Unlock()

	if runFunc != nil {
		return runFunc(ctx, cmd)
	}
	if !scripted {
		return infra.Result{}, nil
	}
	if resp.OnRun != nil {
		resp.OnRun(cmd)
	}
	if resp.Err != nil {
		return infra.Result{}, resp.Err
	}
	return infra.Result{
		Stdout:   []byte(resp.Stdout),
		Stderr:   []byte(resp.Stderr),
		ExitCode: resp.ExitCode,
	}, nil
}

func (r *ScriptedRunner) LookPath(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.missing[name] {
		return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
	}
	return "/usr/bin/" + name, nil
}
