//go:build !integration

package workflow

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasm-slim/wasm-slim/pkg/config"
	"github.com/wasm-slim/wasm-slim/pkg/infra"
	"github.com/wasm-slim/wasm-slim/pkg/infra/infratest"
	"github.com/wasm-slim/wasm-slim/pkg/pipeline"
)

// unoptimizedManifest picks up five profile edits plus the wasm-opt
// metadata under the balanced template.
const unoptimizedManifest = `[package]
name = "web"
version = "0.1.0"

[dependencies]
wasm-bindgen = "0.2"
`

// optimizedManifest already matches the balanced template exactly, so a
// run over it reports zero changes.
const optimizedManifest = `[package]
name = "app"
version = "0.1.0"

[dependencies]
wasm-bindgen = "0.2"

[profile.release]
lto = "fat"
codegen-units = 1
opt-level = "s"
strip = true
panic = "abort"

[package.metadata.wasm-pack.profile.release]
wasm-opt = ["-Oz", "--enable-mutable-globals", "--enable-bulk-memory", "--enable-sign-ext", "--enable-nontrapping-float-to-int", "--strip-debug", "--strip-dwarf", "--strip-producers"]
`

type workflowFixture struct {
	fs     *infratest.FakeFileSystem
	runner *infratest.ScriptedRunner
	out    *bytes.Buffer
	wf     *BuildWorkflow
}

func newWorkflowFixture(cfg *config.ConfigFile) *workflowFixture {
	fs := infratest.NewFakeFileSystem()
	runner := infratest.NewScriptedRunner()
	wf := NewBuildWorkflowWithDeps("/proj", cfg, fs, runner)

	out := &bytes.Buffer{}
	wf.SetOutput(out)
	return &workflowFixture{fs: fs, runner: runner, out: out, wf: wf}
}

// scriptBuild makes cargo deposit a 2048-byte artifact and wasm-bindgen a
// final artifact of the given size. The optional tools are absent so the
// bindgen output is what gets measured.
func (f *workflowFixture) scriptBuild(finalSize int) {
	f.runner.Respond("cargo", infratest.Response{OnRun: func(infra.Command) {
		f.fs.Seed("/proj/target/wasm32-unknown-unknown/release/app.wasm", make([]byte, 2048))
	}})
	f.runner.Respond("wasm-bindgen", infratest.Response{OnRun: func(infra.Command) {
		f.fs.Seed("/proj/pkg/app_bg.wasm", make([]byte, finalSize))
	}})
	f.runner.SetMissing("wasm-opt")
	f.runner.SetMissing("wasm-snip")
}

func uint64Ptr(v uint64) *uint64 { return &v }

func TestExecuteTwoManifestsWithinBudget(t *testing.T) {
	cfg := &config.ConfigFile{
		Template:   "balanced",
		SizeBudget: &config.SizeBudget{MaxSizeKB: uint64Ptr(500)},
	}
	f := newWorkflowFixture(cfg)
	f.fs.Seed("/proj/Cargo.toml", []byte(optimizedManifest))
	f.fs.Seed("/proj/crates/web/Cargo.toml", []byte(unoptimizedManifest))
	f.scriptBuild(450 * 1024)

	result, err := f.wf.Execute(context.Background(), ExecuteOptions{CheckBudget: true})
	require.NoError(t, err)

	// Only the unoptimized manifest contributes changes.
	assert.Len(t, result.Changes, 6)
	assert.Equal(t, uint64(450*1024), result.Metrics.AfterBytes)
	require.NotNil(t, result.BudgetPassed)
	assert.True(t, *result.BudgetPassed)
	require.NotNil(t, result.BudgetMaxBytes)
	assert.Equal(t, uint64(500*1024), *result.BudgetMaxBytes)
	assert.Equal(t, StateDone, f.wf.State())

	content, ok := f.fs.Content("/proj/Cargo.toml")
	require.True(t, ok)
	assert.Equal(t, optimizedManifest, string(content), "already optimized manifest must come through untouched")
}

func TestExecuteBuildFailureRollsBackManifest(t *testing.T) {
	f := newWorkflowFixture(nil)
	f.fs.Seed("/proj/Cargo.toml", []byte(unoptimizedManifest))
	f.runner.RunFunc = func(_ context.Context, cmd infra.Command) (infra.Result, error) {
		switch {
		case len(cmd.Args) > 0 && cmd.Args[0] == "--version":
			return infra.Result{}, nil
		case cmd.Name == "cargo":
			f.fs.Seed("/proj/target/wasm32-unknown-unknown/release/app.wasm", make([]byte, 2048))
			return infra.Result{}, nil
		case cmd.Name == "wasm-bindgen":
			return infra.Result{ExitCode: 1, Stderr: []byte("error: failed to parse wasm\n")}, nil
		}
		return infra.Result{}, nil
	}
	collector := pipeline.NewMemoryCollector()
	f.wf.SetCollector(collector)

	_, err := f.wf.Execute(context.Background(), ExecuteOptions{})
	var stageErr *pipeline.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, pipeline.StageWasmBindgen, stageErr.Stage)

	content, ok := f.fs.Content("/proj/Cargo.toml")
	require.True(t, ok)
	assert.Equal(t, unoptimizedManifest, string(content), "manifest must be restored byte for byte")
	assert.Equal(t, StateFailed, f.wf.State())

	var states []string
	for _, event := range collector.Events() {
		if event.Event == EventStateTransition {
			states = append(states, event.Metadata["to"])
		}
	}
	assert.Equal(t, []string{"manifest_optimized", "rolled_back", "failed"}, states)

	backupWritten := false
	for _, path := range f.fs.WriteLog {
		if strings.HasPrefix(path, "/proj/.wasm-slim/backups/") {
			backupWritten = true
		}
	}
	assert.True(t, backupWritten, "the on-disk backup persists after rollback")
}

func TestExecuteDryRunMutatesNothing(t *testing.T) {
	f := newWorkflowFixture(nil)
	f.fs.Seed("/proj/Cargo.toml", []byte(unoptimizedManifest))
	f.fs.Seed("/proj/crates/web/Cargo.toml", []byte(unoptimizedManifest))
	f.scriptBuild(1024)

	result, err := f.wf.Execute(context.Background(), ExecuteOptions{DryRun: true})
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Equal(t, []string{"Cargo.toml", filepath.Join("crates", "web", "Cargo.toml")}, result.DryRunFiles)
	assert.Empty(t, result.Changes)
	assert.Empty(t, f.fs.WriteLog, "a dry run must not write anything")

	content, ok := f.fs.Content("/proj/Cargo.toml")
	require.True(t, ok)
	assert.Equal(t, unoptimizedManifest, string(content))

	// The build itself still runs for real.
	assert.Equal(t, uint64(1024), result.Metrics.AfterBytes)
}

func TestExecuteBudgetExactlyAtLimitPasses(t *testing.T) {
	cfg := &config.ConfigFile{SizeBudget: &config.SizeBudget{MaxSizeKB: uint64Ptr(500)}}
	f := newWorkflowFixture(cfg)
	f.fs.Seed("/proj/Cargo.toml", []byte(optimizedManifest))
	f.scriptBuild(500 * 1024)

	result, err := f.wf.Execute(context.Background(), ExecuteOptions{CheckBudget: true})
	require.NoError(t, err)
	require.NotNil(t, result.BudgetPassed)
	assert.True(t, *result.BudgetPassed)
}

func TestExecuteBudgetOneByteOverFails(t *testing.T) {
	cfg := &config.ConfigFile{SizeBudget: &config.SizeBudget{MaxSizeKB: uint64Ptr(500)}}
	f := newWorkflowFixture(cfg)
	f.fs.Seed("/proj/Cargo.toml", []byte(unoptimizedManifest))
	f.scriptBuild(500*1024 + 1)

	_, err := f.wf.Execute(context.Background(), ExecuteOptions{CheckBudget: true})
	var budgetErr *BudgetExceededError
	require.ErrorAs(t, err, &budgetErr)
	assert.Equal(t, uint64(500*1024+1), budgetErr.ActualBytes)
	assert.Equal(t, uint64(500*1024), budgetErr.MaxBytes)
	assert.Greater(t, budgetErr.PercentOver, 0.0)
	assert.EqualError(t, err, "WASM bundle size (512001 bytes) exceeds maximum (512000 bytes)")
	assert.Equal(t, StateFailed, f.wf.State())

	// The build succeeded, so the optimized manifest stays optimized.
	content, ok := f.fs.Content("/proj/Cargo.toml")
	require.True(t, ok)
	assert.Contains(t, string(content), "[profile.release]")
}

func TestExecuteBudgetSkippedWhenUnconfigured(t *testing.T) {
	f := newWorkflowFixture(nil)
	f.fs.Seed("/proj/Cargo.toml", []byte(optimizedManifest))
	f.scriptBuild(1024)

	result, err := f.wf.Execute(context.Background(), ExecuteOptions{CheckBudget: true})
	require.NoError(t, err)
	assert.Nil(t, result.BudgetPassed)
	assert.Nil(t, result.BudgetMaxBytes)
	assert.Equal(t, StateDone, f.wf.State())
}

func TestExecuteBudgetNotRequested(t *testing.T) {
	cfg := &config.ConfigFile{SizeBudget: &config.SizeBudget{MaxSizeKB: uint64Ptr(1)}}
	f := newWorkflowFixture(cfg)
	f.fs.Seed("/proj/Cargo.toml", []byte(optimizedManifest))
	f.scriptBuild(1024 * 1024)

	result, err := f.wf.Execute(context.Background(), ExecuteOptions{CheckBudget: false})
	require.NoError(t, err)
	assert.Nil(t, result.BudgetPassed)
	assert.Nil(t, result.BudgetMaxBytes)
}

func TestExecuteFailsBeforeMutationWhenToolMissing(t *testing.T) {
	f := newWorkflowFixture(nil)
	f.fs.Seed("/proj/Cargo.toml", []byte(unoptimizedManifest))
	f.runner.SetMissing("cargo")

	_, err := f.wf.Execute(context.Background(), ExecuteOptions{})
	var missing *pipeline.ToolMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "Cargo", missing.Tool)

	content, ok := f.fs.Content("/proj/Cargo.toml")
	require.True(t, ok)
	assert.Equal(t, unoptimizedManifest, string(content))
	assert.Empty(t, f.fs.WriteLog)
	assert.Equal(t, StateFailed, f.wf.State())
}

func TestExecuteRecordsStateTransitions(t *testing.T) {
	f := newWorkflowFixture(nil)
	f.fs.Seed("/proj/Cargo.toml", []byte(unoptimizedManifest))
	f.scriptBuild(1024)
	collector := pipeline.NewMemoryCollector()
	f.wf.SetCollector(collector)

	_, err := f.wf.Execute(context.Background(), ExecuteOptions{})
	require.NoError(t, err)

	var states []string
	for _, event := range collector.Events() {
		if event.Event == EventStateTransition {
			states = append(states, event.Metadata["to"])
		}
	}
	assert.Equal(t, []string{"manifest_optimized", "build_executed", "budget_checked", "done"}, states)
}

func TestExecuteConfiguresBuildStdOnNightly(t *testing.T) {
	f := newWorkflowFixture(nil)
	f.fs.Seed("/proj/Cargo.toml", []byte(optimizedManifest))
	f.scriptBuild(1024)
	f.runner.Respond("rustc", infratest.Response{Stdout: "rustc 1.87.0-nightly (abc1234 2025-03-01)\n"})

	result, err := f.wf.Execute(context.Background(), ExecuteOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Changes)

	content, ok := f.fs.Content("/proj/.cargo/config.toml")
	require.True(t, ok)
	assert.Contains(t, string(content), "[unstable]")
	assert.Contains(t, string(content), "build-std")
}

func TestExecuteDryRunListsBuildStdConfiguration(t *testing.T) {
	f := newWorkflowFixture(nil)
	f.fs.Seed("/proj/Cargo.toml", []byte(optimizedManifest))
	f.scriptBuild(1024)
	f.runner.Respond("rustc", infratest.Response{Stdout: "rustc 1.87.0-nightly (abc1234 2025-03-01)\n"})

	result, err := f.wf.Execute(context.Background(), ExecuteOptions{DryRun: true})
	require.NoError(t, err)
	assert.Contains(t, result.DryRunFiles, "build-std configuration")
	assert.Empty(t, f.fs.WriteLog)
	_, ok := f.fs.Content("/proj/.cargo/config.toml")
	assert.False(t, ok)
}

func TestExecuteBuildFailureRestoresCargoConfig(t *testing.T) {
	const originalConfig = "[build]\njobs = 4\n"

	f := newWorkflowFixture(nil)
	f.fs.Seed("/proj/Cargo.toml", []byte(optimizedManifest))
	f.fs.Seed("/proj/.cargo/config.toml", []byte(originalConfig))
	f.runner.RunFunc = func(_ context.Context, cmd infra.Command) (infra.Result, error) {
		switch {
		case cmd.Name == "rustc":
			return infra.Result{Stdout: []byte("rustc 1.87.0-nightly (abc1234 2025-03-01)\n")}, nil
		case len(cmd.Args) > 0 && cmd.Args[0] == "--version":
			return infra.Result{}, nil
		case cmd.Name == "cargo":
			f.fs.Seed("/proj/target/wasm32-unknown-unknown/release/app.wasm", make([]byte, 2048))
			return infra.Result{}, nil
		case cmd.Name == "wasm-bindgen":
			return infra.Result{ExitCode: 1}, nil
		}
		return infra.Result{}, nil
	}

	_, err := f.wf.Execute(context.Background(), ExecuteOptions{})
	var stageErr *pipeline.StageError
	require.ErrorAs(t, err, &stageErr)

	content, ok := f.fs.Content("/proj/.cargo/config.toml")
	require.True(t, ok)
	assert.Equal(t, originalConfig, string(content), "cargo config must be restored byte for byte")
}

func TestExecuteWarnsOnNonWasmCrate(t *testing.T) {
	f := newWorkflowFixture(nil)
	f.fs.Seed("/proj/Cargo.toml", []byte("[package]\nname = \"tool\"\nversion = \"0.1.0\"\n"))
	f.scriptBuild(1024)

	_, err := f.wf.Execute(context.Background(), ExecuteOptions{})
	require.NoError(t, err)
	assert.Contains(t, f.out.String(), "does not look like a WebAssembly crate")
}

func TestExecuteFallsBackToDefaultTemplate(t *testing.T) {
	f := newWorkflowFixture(&config.ConfigFile{Template: "no-such-template"})
	f.fs.Seed("/proj/Cargo.toml", []byte(unoptimizedManifest))
	f.scriptBuild(1024)

	result, err := f.wf.Execute(context.Background(), ExecuteOptions{})
	require.NoError(t, err)
	assert.Contains(t, result.Changes, `Set opt-level = "s" (size-optimized)`)
}
