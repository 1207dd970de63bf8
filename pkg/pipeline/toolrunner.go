package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/wasm-slim/wasm-slim/pkg/console"
	"github.com/wasm-slim/wasm-slim/pkg/infra"
	"github.com/wasm-slim/wasm-slim/pkg/logger"
)

var runnerLog = logger.New("pipeline:runner")

// Stage names carried by StageError and telemetry. They match the binaries
// they run.
const (
	StageCargo       = "cargo"
	StageWasmBindgen = "wasm-bindgen"
	StageWasmOpt     = "wasm-opt"
	StageWasmSnip    = "wasm-snip"
)

// Instrumentation variables a parent coverage or test run may have
// exported. They leak into the child build and bloat the artifact, so every
// stage spawns without them.
var scrubbedEnvVars = []string{
	"CARGO_INCREMENTAL",
	"RUSTFLAGS",
	"CARGO_ENCODED_RUSTFLAGS",
	"LLVM_PROFILE_FILE",
	"CARGO_LLVM_COV",
	"CARGO_LLVM_COV_TARGET_DIR",
	"GOCOVERDIR",
}

// Wasm feature extensions rustc emits that wasm-opt must be told to accept.
var wasmOptFeatureFlags = []string{
	"--enable-mutable-globals",
	"--enable-bulk-memory",
	"--enable-sign-ext",
	"--enable-nontrapping-float-to-int",
}

// ToolRunner invokes the external build tools with deterministic arguments
// and locates the artifacts they leave behind.
type ToolRunner struct {
	root   string
	config Config
	fs     infra.FileSystem
	runner infra.CommandRunner
	out    io.Writer
}

// NewToolRunner returns a runner for the project at root.
func NewToolRunner(root string, config Config, fs infra.FileSystem, runner infra.CommandRunner) *ToolRunner {
	return &ToolRunner{root: root, config: config, fs: fs, runner: runner, out: os.Stderr}
}

// ArtifactDir is the directory cargo deposits the compiled .wasm into.
func (r *ToolRunner) ArtifactDir() string {
	targetDir := r.config.TargetDir
	if targetDir == "" {
		targetDir = filepath.Join(r.root, "target")
	}
	return filepath.Join(targetDir, string(r.config.Target), r.config.Profile)
}

// Compile runs cargo build for the configured target and returns the path
// of the .wasm artifact it produced.
func (r *ToolRunner) Compile(ctx context.Context) (string, error) {
	args := []string{"build", "--target", string(r.config.Target), "--profile", r.config.Profile}
	if r.config.TargetDir != "" {
		args = append(args, "--target-dir", r.config.TargetDir)
	}
	if err := r.run(ctx, StageCargo, args); err != nil {
		return "", err
	}
	return r.findArtifact(r.ArtifactDir())
}

// GenerateBindings runs wasm-bindgen over the compiled artifact and returns
// the path of the rebound .wasm it wrote.
func (r *ToolRunner) GenerateBindings(ctx context.Context, wasmFile string) (string, error) {
	outDir := filepath.Join(r.root, "pkg")
	args := []string{wasmFile, "--out-dir", outDir, "--target", string(r.config.BindgenTarget)}
	if err := r.run(ctx, StageWasmBindgen, args); err != nil {
		return "", err
	}
	return r.findArtifact(outDir)
}

// SizeOptimize rewrites the artifact in place with wasm-opt.
func (r *ToolRunner) SizeOptimize(ctx context.Context, wasmFile string) error {
	args := make([]string, 0, 4+len(wasmOptFeatureFlags))
	args = append(args, string(r.config.OptLevel), wasmFile, "-o", wasmFile)
	args = append(args, wasmOptFeatureFlags...)
	return r.run(ctx, StageWasmOpt, args)
}

// Snip strips Rust's panic machinery from the artifact. The output goes
// through a sibling temp file that then replaces the original.
func (r *ToolRunner) Snip(ctx context.Context, wasmFile string) error {
	tmpFile := wasmFile + ".tmp"
	if err := r.run(ctx, StageWasmSnip, []string{wasmFile, "-o", tmpFile, "--snip-rust-panicking-code"}); err != nil {
		return err
	}
	if _, err := r.fs.Copy(tmpFile, wasmFile); err != nil {
		return fmt.Errorf("failed to replace %s with snipped output: %w", wasmFile, err)
	}
	if err := r.fs.Remove(tmpFile); err != nil {
		runnerLog.Printf("leaving temp file %s: %v", tmpFile, err)
	}
	return nil
}

func (r *ToolRunner) run(ctx context.Context, stage string, args []string) error {
	runnerLog.Printf("%s %s", stage, strings.Join(args, " "))
	res, err := r.runner.Run(ctx, infra.Command{
		Name: stage,
		Args: args,
		Dir:  r.root,
		Env:  scrubEnv(os.Environ()),
	})
	if err != nil {
		return fmt.Errorf("failed to run %s: %w", stage, err)
	}
	if res.ExitCode != 0 {
		return &StageError{Stage: stage, ExitCode: res.ExitCode, Stderr: string(res.Stderr)}
	}
	return nil
}

// scrubEnv filters instrumentation variables out of a KEY=value environment
// list.
func scrubEnv(environ []string) []string {
	env := make([]string, 0, len(environ))
	for _, kv := range environ {
		name, _, _ := strings.Cut(kv, "=")
		if slices.Contains(scrubbedEnvVars, name) {
			continue
		}
		env = append(env, kv)
	}
	return env
}

// findArtifact returns the .wasm file in dir. Several candidates produce a
// warning and the lexicographically first match.
func (r *ToolRunner) findArtifact(dir string) (string, error) {
	entries, err := r.fs.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read artifact directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".wasm") {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return "", &ArtifactNotFoundError{Dir: dir}
	}

	slices.Sort(names)
	if len(names) > 1 {
		fmt.Fprintln(r.out, console.FormatWarningMessage(fmt.Sprintf("Multiple .wasm files in %s, using %s", dir, names[0])))
	}
	return filepath.Join(dir, names[0]), nil
}
