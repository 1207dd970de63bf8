// Package optimizer rewrites Cargo manifests and cargo config files so a
// project compiles to the smallest possible WebAssembly artifact. Edits
// are minimal and idempotent: only settings that differ from the target
// configuration are touched, comments and formatting elsewhere survive,
// and every mutated file is backed up first.
package optimizer

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/sourcegraph/conc/iter"

	"github.com/wasm-slim/wasm-slim/pkg/config"
	"github.com/wasm-slim/wasm-slim/pkg/console"
	"github.com/wasm-slim/wasm-slim/pkg/envutil"
	"github.com/wasm-slim/wasm-slim/pkg/infra"
	"github.com/wasm-slim/wasm-slim/pkg/logger"
)

var manifestLog = logger.New("optimizer:manifest")

// BackupRecord pairs a mutated manifest with its pre-edit bytes and the
// on-disk backup written before the edit. The in-memory bytes drive
// rollback; the backup file is the user's safety net.
type BackupRecord struct {
	Path          string
	BackupPath    string
	OriginalBytes []byte
}

// OptimizeResult aggregates the outcome across every discovered manifest.
type OptimizeResult struct {
	// Changes describes each applied edit.
	Changes []string

	// DryRunFiles lists the manifests a real run would analyze, relative
	// to the project root. Only populated on dry runs.
	DryRunFiles []string

	// Backups records each mutated file, in discovery order.
	Backups []BackupRecord
}

// ManifestOptimizer applies the configured optimization settings to every
// Cargo.toml in a project.
type ManifestOptimizer struct {
	root    string
	editor  *ManifestEditor
	finder  *ManifestFinder
	backups *BackupManager
	fs      infra.FileSystem
}

func NewManifestOptimizer(projectRoot string, profile config.ProfileConfig, wasmOpt config.WasmOptConfig) *ManifestOptimizer {
	return NewManifestOptimizerWithFS(projectRoot, profile, wasmOpt, infra.NewOSFileSystem())
}

func NewManifestOptimizerWithFS(projectRoot string, profile config.ProfileConfig, wasmOpt config.WasmOptConfig, filesystem infra.FileSystem) *ManifestOptimizer {
	return &ManifestOptimizer{
		root:    projectRoot,
		editor:  NewManifestEditor(profile, wasmOpt),
		finder:  NewManifestFinderWithFS(projectRoot, filesystem),
		backups: NewBackupManagerWithFS(projectRoot, filesystem),
		fs:      filesystem,
	}
}

// fileOutcome is the per-manifest result. A mutated file carries its
// backup record even when a later step failed, so callers can still
// restore it.
type fileOutcome struct {
	changes []string
	backup  *BackupRecord
}

// Optimize edits every discovered manifest. A dry run only lists the
// files a real run would analyze and mutates nothing.
//
// Manifests are edited concurrently. When some files fail, the returned
// result still carries the backups of everything already mutated, and
// the error joins each file's failure. Unparseable or structurally odd
// manifests are skipped with a warning rather than failing the run.
func (o *ManifestOptimizer) Optimize(dryRun bool) (*OptimizeResult, error) {
	result := &OptimizeResult{}

	manifests, err := o.finder.FindManifests()
	if err != nil {
		return result, err
	}

	if dryRun {
		for _, manifest := range manifests {
			result.DryRunFiles = append(result.DryRunFiles, o.relativePath(manifest))
		}
		manifestLog.Printf("Dry run: %d manifest(s) would be analyzed", len(result.DryRunFiles))
		return result, nil
	}

	mapper := iter.Mapper[string, *fileOutcome]{
		MaxGoroutines: envutil.GetIntFromEnv("WASM_SLIM_JOBS", runtime.GOMAXPROCS(0), 1, 64, manifestLog),
	}
	outcomes, err := mapper.MapErr(manifests, func(manifest *string) (*fileOutcome, error) {
		return o.optimizeFile(*manifest)
	})
	for _, outcome := range outcomes {
		if outcome == nil {
			continue
		}
		result.Changes = append(result.Changes, outcome.changes...)
		if outcome.backup != nil {
			result.Backups = append(result.Backups, *outcome.backup)
		}
	}
	if err != nil {
		return result, err
	}

	manifestLog.Printf("Optimized %d manifest(s): %d change(s)", len(manifests), len(result.Changes))
	return result, nil
}

func (o *ManifestOptimizer) optimizeFile(manifest string) (*fileOutcome, error) {
	raw, err := o.fs.ReadFile(manifest)
	if err != nil {
		return nil, &ManifestIOError{Path: manifest, Op: "read", Err: err}
	}

	updated, changes, err := o.editor.Apply(string(raw))
	if err != nil {
		fmt.Fprintln(os.Stderr, console.FormatWarningMessage(fmt.Sprintf("Skipping %s: %v", o.relativePath(manifest), err)))
		manifestLog.Printf("Skipping %s: %v", manifest, err)
		return &fileOutcome{}, nil
	}
	if len(changes) == 0 {
		manifestLog.Printf("No changes needed for %s", manifest)
		return &fileOutcome{}, nil
	}

	backupPath, err := o.backups.CreateBackup(manifest)
	if err != nil {
		return nil, &ManifestIOError{Path: manifest, Op: "backup", Err: err}
	}
	record := &BackupRecord{Path: manifest, BackupPath: backupPath, OriginalBytes: raw}

	if err := o.fs.WriteFile(manifest, []byte(updated), 0o644); err != nil {
		// The file may be partially written; hand the backup to the
		// caller so rollback can restore it.
		return &fileOutcome{backup: record}, &ManifestIOError{Path: manifest, Op: "write", Err: err}
	}

	manifestLog.Printf("Applied %d change(s) to %s", len(changes), manifest)
	return &fileOutcome{changes: changes, backup: record}, nil
}

func (o *ManifestOptimizer) relativePath(p string) string {
	if rel, err := filepath.Rel(o.root, p); err == nil {
		return rel
	}
	return p
}
