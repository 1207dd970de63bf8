//go:build !integration

package pipeline

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasm-slim/wasm-slim/pkg/infra"
	"github.com/wasm-slim/wasm-slim/pkg/infra/infratest"
)

const releaseDir = "/proj/target/wasm32-unknown-unknown/release"

func testToolRunner(fs *infratest.FakeFileSystem, runner *infratest.ScriptedRunner, cfg Config) *ToolRunner {
	r := NewToolRunner("/proj", cfg, fs, runner)
	r.out = io.Discard
	return r
}

func TestCompileBuildsExpectedCommand(t *testing.T) {
	fs := infratest.NewFakeFileSystem()
	fs.Seed(releaseDir+"/app.wasm", make([]byte, 2048))
	runner := infratest.NewScriptedRunner()
	r := testToolRunner(fs, runner, DefaultConfig())

	artifact, err := r.Compile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, releaseDir+"/app.wasm", artifact)

	calls := runner.CallsFor("cargo")
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"build", "--target", "wasm32-unknown-unknown", "--profile", "release"}, calls[0].Args)
	assert.Equal(t, "/proj", calls[0].Dir)
}

func TestCompileHonorsTargetDirOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TargetDir = "/cache/target"
	fs := infratest.NewFakeFileSystem()
	fs.Seed("/cache/target/wasm32-unknown-unknown/release/app.wasm", make([]byte, 100))
	runner := infratest.NewScriptedRunner()
	r := testToolRunner(fs, runner, cfg)

	artifact, err := r.Compile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/cache/target/wasm32-unknown-unknown/release/app.wasm", artifact)

	calls := runner.CallsFor("cargo")
	require.Len(t, calls, 1)
	assert.Equal(t, []string{
		"build", "--target", "wasm32-unknown-unknown", "--profile", "release",
		"--target-dir", "/cache/target",
	}, calls[0].Args)
}

func TestCompileScrubsInstrumentationEnv(t *testing.T) {
	t.Setenv("RUSTFLAGS", "-C instrument-coverage")
	t.Setenv("CARGO_LLVM_COV", "1")
	t.Setenv("LLVM_PROFILE_FILE", "/tmp/default.profraw")
	t.Setenv("GOCOVERDIR", "/tmp/cover")

	fs := infratest.NewFakeFileSystem()
	fs.Seed(releaseDir+"/app.wasm", make([]byte, 100))
	runner := infratest.NewScriptedRunner()
	r := testToolRunner(fs, runner, DefaultConfig())

	_, err := r.Compile(context.Background())
	require.NoError(t, err)

	calls := runner.CallsFor("cargo")
	require.Len(t, calls, 1)
	require.NotNil(t, calls[0].Env)

	env := strings.Join(calls[0].Env, "\n")
	assert.NotContains(t, env, "RUSTFLAGS=")
	assert.NotContains(t, env, "CARGO_LLVM_COV=")
	assert.NotContains(t, env, "LLVM_PROFILE_FILE=")
	assert.NotContains(t, env, "GOCOVERDIR=")
	assert.Contains(t, env, "PATH=")
}

func TestCompileFailureReturnsStageError(t *testing.T) {
	fs := infratest.NewFakeFileSystem()
	runner := infratest.NewScriptedRunner()
	runner.Respond("cargo", infratest.Response{
		ExitCode: 101,
		Stderr:   "error[E0425]: cannot find value `foo`\nerror: could not compile `app`\n",
	})
	r := testToolRunner(fs, runner, DefaultConfig())

	_, err := r.Compile(context.Background())
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageCargo, stageErr.Stage)
	assert.Equal(t, 101, stageErr.ExitCode)
	assert.ErrorContains(t, err, "could not compile")
}

func TestCompileNoArtifactFound(t *testing.T) {
	fs := infratest.NewFakeFileSystem()
	require.NoError(t, fs.MkdirAll(releaseDir, 0755))
	runner := infratest.NewScriptedRunner()
	r := testToolRunner(fs, runner, DefaultConfig())

	_, err := r.Compile(context.Background())
	var notFound *ArtifactNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, releaseDir, notFound.Dir)
}

func TestCompilePicksLexicographicallyFirstArtifact(t *testing.T) {
	fs := infratest.NewFakeFileSystem()
	fs.Seed(releaseDir+"/zz.wasm", make([]byte, 10))
	fs.Seed(releaseDir+"/aa.wasm", make([]byte, 20))
	fs.Seed(releaseDir+"/notes.txt", []byte("not an artifact"))
	runner := infratest.NewScriptedRunner()
	r := testToolRunner(fs, runner, DefaultConfig())
	var out bytes.Buffer
	r.out = &out

	artifact, err := r.Compile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, releaseDir+"/aa.wasm", artifact)
	assert.Contains(t, out.String(), "Multiple .wasm files")
}

func TestGenerateBindingsCommandAndArtifact(t *testing.T) {
	fs := infratest.NewFakeFileSystem()
	runner := infratest.NewScriptedRunner()
	runner.Respond("wasm-bindgen", infratest.Response{OnRun: func(infra.Command) {
		fs.Seed("/proj/pkg/app_bg.wasm", make([]byte, 1200))
	}})
	r := testToolRunner(fs, runner, DefaultConfig())

	bound, err := r.GenerateBindings(context.Background(), releaseDir+"/app.wasm")
	require.NoError(t, err)
	assert.Equal(t, "/proj/pkg/app_bg.wasm", bound)

	calls := runner.CallsFor("wasm-bindgen")
	require.Len(t, calls, 1)
	assert.Equal(t, []string{
		releaseDir + "/app.wasm", "--out-dir", "/proj/pkg", "--target", "web",
	}, calls[0].Args)
}

func TestSizeOptimizeRewritesInPlace(t *testing.T) {
	fs := infratest.NewFakeFileSystem()
	runner := infratest.NewScriptedRunner()
	r := testToolRunner(fs, runner, DefaultConfig())

	require.NoError(t, r.SizeOptimize(context.Background(), "/proj/pkg/app_bg.wasm"))

	calls := runner.CallsFor("wasm-opt")
	require.Len(t, calls, 1)
	assert.Equal(t, []string{
		"-Oz", "/proj/pkg/app_bg.wasm", "-o", "/proj/pkg/app_bg.wasm",
		"--enable-mutable-globals", "--enable-bulk-memory",
		"--enable-sign-ext", "--enable-nontrapping-float-to-int",
	}, calls[0].Args)
}

func TestSnipReplacesArtifactViaTempFile(t *testing.T) {
	fs := infratest.NewFakeFileSystem()
	fs.Seed("/proj/pkg/app_bg.wasm", []byte("original"))
	runner := infratest.NewScriptedRunner()
	runner.Respond("wasm-snip", infratest.Response{OnRun: func(infra.Command) {
		fs.Seed("/proj/pkg/app_bg.wasm.tmp", []byte("snipped"))
	}})
	r := testToolRunner(fs, runner, DefaultConfig())

	require.NoError(t, r.Snip(context.Background(), "/proj/pkg/app_bg.wasm"))

	calls := runner.CallsFor("wasm-snip")
	require.Len(t, calls, 1)
	assert.Equal(t, []string{
		"/proj/pkg/app_bg.wasm", "-o", "/proj/pkg/app_bg.wasm.tmp", "--snip-rust-panicking-code",
	}, calls[0].Args)

	content, ok := fs.Content("/proj/pkg/app_bg.wasm")
	require.True(t, ok)
	assert.Equal(t, []byte("snipped"), content)

	_, ok = fs.Content("/proj/pkg/app_bg.wasm.tmp")
	assert.False(t, ok, "temp file should be removed")
}

func TestSnipFailureKeepsOriginal(t *testing.T) {
	fs := infratest.NewFakeFileSystem()
	fs.Seed("/proj/pkg/app_bg.wasm", []byte("original"))
	runner := infratest.NewScriptedRunner()
	runner.Respond("wasm-snip", infratest.Response{ExitCode: 1, Stderr: "error: invalid wasm\n"})
	r := testToolRunner(fs, runner, DefaultConfig())

	err := r.Snip(context.Background(), "/proj/pkg/app_bg.wasm")
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageWasmSnip, stageErr.Stage)

	content, ok := fs.Content("/proj/pkg/app_bg.wasm")
	require.True(t, ok)
	assert.Equal(t, []byte("original"), content)
}
