// Package workflow coordinates the complete build: manifest optimization
// with backups, the external build pipeline, and size budget validation.
// It holds the business logic only; rendering results belongs to the
// caller.
//
// Execute moves through an explicit state machine. A successful run is
// Init, ManifestOptimized, BuildExecuted, BudgetChecked, Done. A build
// failure after manifests were mutated detours through RolledBack before
// ending in Failed, restoring every backed-up file first.
//
// A workflow instance assumes it is the only writer for its project root.
// Concurrent invocations against the same root race on manifest files and
// the backup directory.
package workflow

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/wasm-slim/wasm-slim/pkg/config"
	"github.com/wasm-slim/wasm-slim/pkg/console"
	"github.com/wasm-slim/wasm-slim/pkg/infra"
	"github.com/wasm-slim/wasm-slim/pkg/logger"
	"github.com/wasm-slim/wasm-slim/pkg/optimizer"
	"github.com/wasm-slim/wasm-slim/pkg/pipeline"
)

var buildLog = logger.New("workflow:build")

// ExecuteOptions control a single workflow run.
type ExecuteOptions struct {
	// DryRun previews Phase 1 without mutating any file. The build itself
	// still runs for real, so reported sizes are never fabricated.
	DryRun bool

	// CheckBudget validates the final artifact against the configured
	// size budget after a successful build.
	CheckBudget bool

	// TargetDir overrides cargo's target directory when non-empty.
	TargetDir string
}

// BuildResult is the outcome of one complete workflow run.
type BuildResult struct {
	// Changes describes every applied configuration edit.
	Changes []string

	// DryRunFiles lists what a real run would touch. Only populated on
	// dry runs.
	DryRunFiles []string

	// Metrics holds the artifact size after compilation and after the
	// final stage.
	Metrics pipeline.SizeMetrics

	// BudgetPassed reports the budget check outcome. Nil when no check
	// ran or no limit is configured.
	BudgetPassed *bool

	// BudgetMaxBytes is the configured hard limit. Nil when none is set.
	BudgetMaxBytes *uint64

	// DryRun records whether this was a preview run.
	DryRun bool
}

// BuildWorkflow runs the three build phases against one project root.
type BuildWorkflow struct {
	root      string
	cfg       *config.ConfigFile
	fs        infra.FileSystem
	runner    infra.CommandRunner
	collector pipeline.MetricsCollector
	out       io.Writer
	state     State
}

// NewBuildWorkflow returns a workflow bound to the real filesystem and
// process runner. A nil cfg falls back to the default template.
func NewBuildWorkflow(projectRoot string, cfg *config.ConfigFile) *BuildWorkflow {
	return NewBuildWorkflowWithDeps(projectRoot, cfg, infra.NewOSFileSystem(), infra.NewOSRunner())
}

// NewBuildWorkflowWithDeps is NewBuildWorkflow with injected filesystem
// and process-execution capabilities.
func NewBuildWorkflowWithDeps(projectRoot string, cfg *config.ConfigFile, filesystem infra.FileSystem, runner infra.CommandRunner) *BuildWorkflow {
	if cfg == nil {
		cfg = config.DefaultConfigFile()
	}
	return &BuildWorkflow{
		root:      projectRoot,
		cfg:       cfg,
		fs:        filesystem,
		runner:    runner,
		collector: pipeline.NoopCollector{},
		out:       os.Stderr,
		state:     StateInit,
	}
}

// SetCollector replaces the telemetry collector. The default discards
// everything. The collector is shared with the build pipeline.
func (w *BuildWorkflow) SetCollector(c pipeline.MetricsCollector) {
	w.collector = c
}

// SetOutput redirects warnings and pipeline progress. The default is
// stderr.
func (w *BuildWorkflow) SetOutput(out io.Writer) {
	w.out = out
}

// State returns the workflow's current lifecycle position.
func (w *BuildWorkflow) State() State {
	return w.state
}

// Execute runs the three phases in order: manifest optimization, the
// build pipeline, and budget validation. When the build fails on a real
// run after manifests were mutated, every backed-up file is restored
// before the build error is returned.
func (w *BuildWorkflow) Execute(ctx context.Context, opts ExecuteOptions) (*BuildResult, error) {
	w.state = StateInit
	buildLog.Printf("Executing workflow (dry_run=%v, check_budget=%v)", opts.DryRun, opts.CheckBudget)

	chain := pipeline.NewToolChain(w.runner)
	if err := chain.CheckRequired(ctx); err != nil {
		w.setState(StateFailed)
		return nil, err
	}
	w.warnIfNotWasmCrate()

	tmpl := w.resolveTemplate()

	changes, dryRunFiles, backups, err := w.optimizeManifests(ctx, tmpl, opts.DryRun)
	if err != nil {
		w.failWithRollback(backups, opts.DryRun)
		return nil, err
	}
	w.setState(StateManifestOptimized)

	metrics, err := w.runPipeline(ctx, chain, tmpl, opts)
	if err != nil {
		w.failWithRollback(backups, opts.DryRun)
		return nil, err
	}
	w.setState(StateBuildExecuted)

	var budgetPassed *bool
	var budgetMax *uint64
	if opts.CheckBudget {
		if budgetPassed, budgetMax, err = w.checkBudget(metrics); err != nil {
			w.setState(StateFailed)
			return nil, err
		}
	}
	w.setState(StateBudgetChecked)
	w.setState(StateDone)

	return &BuildResult{
		Changes:        changes,
		DryRunFiles:    dryRunFiles,
		Metrics:        metrics,
		BudgetPassed:   budgetPassed,
		BudgetMaxBytes: budgetMax,
		DryRun:         opts.DryRun,
	}, nil
}

func (w *BuildWorkflow) setState(next State) {
	buildLog.Printf("State: %s -> %s", w.state, next)
	w.collector.RecordEvent(EventStateTransition, map[string]string{"from": string(w.state), "to": string(next)})
	w.state = next
}

// resolveTemplate turns the loaded configuration into a concrete preset.
// An unknown template name falls back to the default rather than failing,
// matching how a missing config file behaves.
func (w *BuildWorkflow) resolveTemplate() config.Template {
	tmpl, err := config.Resolve(w.cfg)
	if err != nil {
		buildLog.Printf("Config did not resolve (%v), using %s template", err, config.DefaultTemplateName)
		fallback, _ := config.TemplateByName(config.DefaultTemplateName)
		return fallback
	}
	return *tmpl
}

func (w *BuildWorkflow) warnIfNotWasmCrate() {
	raw, err := w.fs.ReadFile(filepath.Join(w.root, "Cargo.toml"))
	if err != nil {
		return
	}
	if !optimizer.IsWasmCrate(string(raw)) {
		fmt.Fprintln(w.out, console.FormatWarningMessage("Project does not look like a WebAssembly crate (no wasm-bindgen dependency or wasm-pack metadata)"))
	}
}

// optimizeManifests is Phase 1: edit every Cargo.toml, then configure
// build-std when a nightly toolchain is available. Backups from both
// passes accumulate so a later failure can restore everything.
func (w *BuildWorkflow) optimizeManifests(ctx context.Context, tmpl config.Template, dryRun bool) (changes, dryRunFiles []string, backups []optimizer.BackupRecord, err error) {
	opt := optimizer.NewManifestOptimizerWithFS(w.root, tmpl.Profile, tmpl.WasmOpt, w.fs)
	result, err := opt.Optimize(dryRun)
	backups = result.Backups
	if err != nil {
		return nil, nil, backups, err
	}
	changes = result.Changes
	dryRunFiles = result.DryRunFiles

	stdChanges, stdDryRun, stdBackups, err := w.applyBuildStd(ctx, dryRun)
	backups = append(backups, stdBackups...)
	if err != nil {
		return nil, nil, backups, err
	}
	changes = append(changes, stdChanges...)
	dryRunFiles = append(dryRunFiles, stdDryRun...)
	return changes, dryRunFiles, backups, nil
}

// applyBuildStd configures the standard-library rebuild when the active
// toolchain is nightly and the project has not opted in yet. A failed
// toolchain probe skips the pass; rustc may legitimately be absent.
func (w *BuildWorkflow) applyBuildStd(ctx context.Context, dryRun bool) (changes, dryRunFiles []string, backups []optimizer.BackupRecord, err error) {
	nightly, err := pipeline.NewToolchainDetector(w.runner).IsNightly(ctx)
	if err != nil {
		buildLog.Printf("Toolchain probe failed, skipping build-std: %v", err)
		return nil, nil, nil, nil
	}
	if !nightly {
		return nil, nil, nil, nil
	}

	buildStd := optimizer.NewBuildStdOptimizerWithFS(w.root, w.fs)
	configured, err := buildStd.IsConfigured()
	if err != nil {
		return nil, nil, nil, err
	}
	if configured {
		buildLog.Print("build-std already configured")
		return nil, nil, nil, nil
	}

	if dryRun {
		return nil, []string{"build-std configuration"}, nil, nil
	}

	// The cargo config usually does not exist yet; back it up only when
	// it does, so rollback can restore the pre-run content.
	configPath := buildStd.ConfigPath()
	if raw, readErr := w.fs.ReadFile(configPath); readErr == nil {
		backupPath, backupErr := optimizer.NewBackupManagerWithFS(w.root, w.fs).CreateBackup(configPath)
		if backupErr != nil {
			return nil, nil, nil, &optimizer.ManifestIOError{Path: configPath, Op: "backup", Err: backupErr}
		}
		backups = append(backups, optimizer.BackupRecord{Path: configPath, BackupPath: backupPath, OriginalBytes: raw})
	}

	changes, err = buildStd.Apply(optimizer.MinimalBuildStdConfig(), false)
	if err != nil {
		return nil, nil, backups, err
	}
	return changes, nil, backups, nil
}

// runPipeline is Phase 2. The pipeline configuration starts from the
// size-focused defaults; the template's wasm-opt level and the caller's
// target directory override them, and dead-code snipping is always
// requested.
func (w *BuildWorkflow) runPipeline(ctx context.Context, chain *pipeline.ToolChain, tmpl config.Template, opts ExecuteOptions) (pipeline.SizeMetrics, error) {
	pcfg := pipeline.DefaultConfig()
	pcfg.RunWasmSnip = true
	pcfg.TargetDir = opts.TargetDir
	if flags := tmpl.WasmOpt.Flags; len(flags) > 0 && strings.HasPrefix(flags[0], "-O") {
		pcfg.OptLevel = pipeline.WasmOptLevel(flags[0])
	}

	orch := pipeline.NewBuildOrchestrator(w.root, pcfg, chain, w.fs, w.runner)
	orch.SetCollector(w.collector)
	orch.SetOutput(w.out)
	return orch.Execute(ctx)
}

// failWithRollback restores every backed-up file and moves to the failing
// terminal state. Dry runs never mutate, so there is nothing to restore.
func (w *BuildWorkflow) failWithRollback(backups []optimizer.BackupRecord, dryRun bool) {
	if !dryRun && len(backups) > 0 {
		w.rollback(backups)
		w.setState(StateRolledBack)
	}
	w.setState(StateFailed)
}

// rollback writes each backup's original bytes over the mutated file.
// Restoration is best-effort per file: one failure is reported and the
// loop moves on, so every remaining file still gets its restore attempt.
func (w *BuildWorkflow) rollback(backups []optimizer.BackupRecord) {
	buildLog.Printf("Rolling back %d file(s)", len(backups))
	for _, backup := range backups {
		if err := w.fs.WriteFile(backup.Path, backup.OriginalBytes, 0o644); err != nil {
			buildLog.Printf("Rollback failed for %s: %v", backup.Path, err)
			fmt.Fprintln(w.out, console.FormatWarningMessage(fmt.Sprintf("Failed to restore %s: %v", console.ToRelativePath(backup.Path), err)))
			continue
		}
		buildLog.Printf("Restored %s", backup.Path)
	}
}

// checkBudget is Phase 3. With no configured limit both returns are nil.
// An artifact at or under the limit passes; anything over fails the
// workflow itself.
func (w *BuildWorkflow) checkBudget(metrics pipeline.SizeMetrics) (*bool, *uint64, error) {
	if w.cfg.SizeBudget == nil || w.cfg.SizeBudget.MaxSizeKB == nil {
		buildLog.Print("No size budget configured")
		return nil, nil, nil
	}

	maxBytes := *w.cfg.SizeBudget.MaxSizeKB * 1024
	if metrics.AfterBytes > maxBytes {
		return nil, nil, newBudgetExceededError(metrics.AfterBytes, maxBytes)
	}

	buildLog.Printf("Budget check passed: %d <= %d bytes", metrics.AfterBytes, maxBytes)
	passed := true
	return &passed, &maxBytes, nil
}
