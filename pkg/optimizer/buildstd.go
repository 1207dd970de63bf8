package optimizer

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/wasm-slim/wasm-slim/pkg/infra"
	"github.com/wasm-slim/wasm-slim/pkg/logger"
)

var buildStdLog = logger.New("optimizer:buildstd")

// BuildStdConfig controls rebuilding the Rust standard library from
// source, which strips unused std code from the final artifact. Requires
// a nightly toolchain.
type BuildStdConfig struct {
	Enabled       bool
	StdComponents []string
	Features      []string

	// Target pins a native triple in [build], used for server side
	// rendering setups that compile for both wasm and the host.
	Target string

	// Rustflags are extra compiler flags written to [build].
	Rustflags []string
}

// DefaultBuildStdConfig returns the standard component set with the
// optimization left disabled.
func DefaultBuildStdConfig() BuildStdConfig {
	return BuildStdConfig{
		StdComponents: []string{"std", "panic_abort", "core", "alloc"},
		Features:      []string{"panic_immediate_abort"},
	}
}

// MinimalBuildStdConfig enables build-std with size-focused defaults.
func MinimalBuildStdConfig() BuildStdConfig {
	cfg := DefaultBuildStdConfig()
	cfg.Enabled = true
	return cfg
}

// SSRBuildStdConfig enables build-std for projects that also compile
// natively for server side rendering, pinning the host target triple and
// the has_std cfg flag.
func SSRBuildStdConfig(target string) BuildStdConfig {
	cfg := DefaultBuildStdConfig()
	cfg.Enabled = true
	cfg.Target = target
	cfg.Rustflags = []string{"--cfg=has_std"}
	return cfg
}

// BuildStdOptimizer maintains the [unstable] and [build] sections of
// .cargo/config.toml. Keys the project already sets are never
// overwritten, whatever their value, so a project's own build-std tuning
// wins over ours.
type BuildStdOptimizer struct {
	configPath string
	fs         infra.FileSystem
}

func NewBuildStdOptimizer(projectRoot string) *BuildStdOptimizer {
	return NewBuildStdOptimizerWithFS(projectRoot, infra.NewOSFileSystem())
}

func NewBuildStdOptimizerWithFS(projectRoot string, filesystem infra.FileSystem) *BuildStdOptimizer {
	return &BuildStdOptimizer{
		configPath: filepath.Join(projectRoot, ".cargo", "config.toml"),
		fs:         filesystem,
	}
}

// ConfigPath returns the .cargo/config.toml location being maintained.
func (o *BuildStdOptimizer) ConfigPath() string {
	return o.configPath
}

// Apply writes the build-std configuration, creating .cargo/config.toml
// when absent. A malformed existing config is an error rather than a
// skip, since silently ignoring it would leave the optimization off with
// no indication why. Returns descriptions of the keys written.
func (o *BuildStdOptimizer) Apply(cfg BuildStdConfig, dryRun bool) ([]string, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	content, err := o.readConfig()
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := toml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", o.configPath, err)
	}

	unstable, err := tableAt(doc, "unstable")
	if err != nil {
		return nil, &SecondaryConfigError{Path: o.configPath, Reason: err.Error()}
	}
	build, err := tableAt(doc, "build")
	if err != nil {
		return nil, &SecondaryConfigError{Path: o.configPath, Reason: err.Error()}
	}

	file := parseTOMLLines(content)
	var changes []string

	var unstableEdits []keyEdit
	if !hasKey(unstable, "build-std") {
		unstableEdits = append(unstableEdits, keyEdit{
			key:    "build-std",
			value:  renderTOMLArray(cfg.StdComponents),
			change: fmt.Sprintf("Set build-std = %s (10-20%% reduction)", renderTOMLArray(cfg.StdComponents)),
		})
	}
	if !hasKey(unstable, "build-std-features") {
		unstableEdits = append(unstableEdits, keyEdit{
			key:    "build-std-features",
			value:  renderTOMLArray(cfg.Features),
			change: fmt.Sprintf("Set build-std-features = %s (smaller panic handler)", renderTOMLArray(cfg.Features)),
		})
	}
	if len(unstableEdits) > 0 {
		start, end := file.ensureTable("unstable")
		for _, edit := range unstableEdits {
			end = file.setKey(start, end, edit.key, edit.value)
			changes = append(changes, edit.change)
		}
	}

	var buildEdits []keyEdit
	if cfg.Target != "" && !hasKey(build, "target") {
		buildEdits = append(buildEdits, keyEdit{
			key:    "target",
			value:  renderTOMLString(cfg.Target),
			change: fmt.Sprintf("Set target = %q (SSR support)", cfg.Target),
		})
	}
	if len(cfg.Rustflags) > 0 && !hasKey(build, "rustflags") {
		buildEdits = append(buildEdits, keyEdit{
			key:    "rustflags",
			value:  renderTOMLArray(cfg.Rustflags),
			change: fmt.Sprintf("Set rustflags = %s (SSR compatibility)", renderTOMLArray(cfg.Rustflags)),
		})
	}
	if len(buildEdits) > 0 {
		start, end := file.ensureTable("build")
		for _, edit := range buildEdits {
			end = file.setKey(start, end, edit.key, edit.value)
			changes = append(changes, edit.change)
		}
	}

	if len(changes) == 0 || dryRun {
		return changes, nil
	}

	if err := o.fs.MkdirAll(filepath.Dir(o.configPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", filepath.Dir(o.configPath), err)
	}
	if err := o.fs.WriteFile(o.configPath, []byte(file.String()), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", o.configPath, err)
	}
	buildStdLog.Printf("Applied %d build-std change(s) to %s", len(changes), o.configPath)
	return changes, nil
}

// IsConfigured reports whether build-std is already set up. A missing
// file or a malformed [unstable] section both read as not configured.
func (o *BuildStdOptimizer) IsConfigured() (bool, error) {
	content, err := o.readConfig()
	if err != nil {
		return false, err
	}
	if content == "" {
		return false, nil
	}

	var doc map[string]any
	if err := toml.Unmarshal([]byte(content), &doc); err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", o.configPath, err)
	}

	unstable, err := tableAt(doc, "unstable")
	if err != nil {
		return false, nil
	}
	return hasKey(unstable, "build-std"), nil
}

func (o *BuildStdOptimizer) readConfig() (string, error) {
	data, err := o.fs.ReadFile(o.configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", o.configPath, err)
	}
	return string(data), nil
}
