// Package pipeline turns a Rust crate into an optimized WebAssembly
// artifact by driving the external build tools: cargo, wasm-bindgen, and
// the optional wasm-opt and wasm-snip passes. Artifact sizes are measured
// after compilation and after the final stage so callers can report the
// real saving.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/wasm-slim/wasm-slim/pkg/console"
	"github.com/wasm-slim/wasm-slim/pkg/infra"
	"github.com/wasm-slim/wasm-slim/pkg/logger"
)

var orchestratorLog = logger.New("pipeline:orchestrator")

// BuildOrchestrator sequences the build stages and measures the artifact
// before and after optimization.
type BuildOrchestrator struct {
	config    Config
	toolchain *ToolChain
	runner    *ToolRunner
	fs        infra.FileSystem
	collector MetricsCollector
	out       io.Writer
}

// NewBuildOrchestrator wires the stages for the project at root.
func NewBuildOrchestrator(root string, config Config, toolchain *ToolChain, fs infra.FileSystem, runner infra.CommandRunner) *BuildOrchestrator {
	return &BuildOrchestrator{
		config:    config,
		toolchain: toolchain,
		runner:    NewToolRunner(root, config, fs, runner),
		fs:        fs,
		collector: NoopCollector{},
		out:       os.Stderr,
	}
}

// SetCollector replaces the telemetry collector. The default discards
// everything.
func (o *BuildOrchestrator) SetCollector(c MetricsCollector) {
	o.collector = c
}

// SetOutput redirects the step and summary messages. The default is stderr.
func (o *BuildOrchestrator) SetOutput(w io.Writer) {
	o.out = w
	o.runner.out = w
}

// Execute verifies the toolchain, then runs compile, bindings, and the
// enabled optional passes. The returned metrics hold the artifact size
// right after compilation and after the last stage that ran.
func (o *BuildOrchestrator) Execute(ctx context.Context) (SizeMetrics, error) {
	fmt.Fprintln(o.out)
	fmt.Fprintln(o.out, console.FormatProgressMessage("Running WASM build pipeline"))

	if err := o.toolchain.CheckRequired(ctx); err != nil {
		return SizeMetrics{}, err
	}

	o.collector.RecordEvent(EventBuildStarted, nil)
	metrics, err := o.runStages(ctx)
	if err != nil {
		orchestratorLog.Printf("build failed: %v", err)
		o.collector.RecordEvent(EventBuildFailed, map[string]string{"error": err.Error()})
		return SizeMetrics{}, err
	}
	o.collector.RecordEvent(EventBuildCompleted, nil)

	WriteSummary(o.out, metrics)
	return metrics, nil
}

func (o *BuildOrchestrator) runStages(ctx context.Context) (SizeMetrics, error) {
	fmt.Fprintln(o.out, console.FormatInfoMessage("Step 1: Building with cargo..."))
	start := time.Now()
	artifact, err := o.runner.Compile(ctx)
	if err != nil {
		return SizeMetrics{}, err
	}
	RecordDuration(o.collector, StageCargo, time.Since(start))

	before, err := o.fileSize(artifact)
	if err != nil {
		return SizeMetrics{}, err
	}
	RecordSize(o.collector, "before", before)
	fmt.Fprintln(o.out, console.FormatSuccessMessage(fmt.Sprintf("Built %s (%s)", console.ToRelativePath(artifact), FormatBytes(before))))

	fmt.Fprintln(o.out, console.FormatInfoMessage("Step 2: Running wasm-bindgen..."))
	start = time.Now()
	bound, err := o.runner.GenerateBindings(ctx, artifact)
	if err != nil {
		return SizeMetrics{}, err
	}
	RecordDuration(o.collector, StageWasmBindgen, time.Since(start))
	fmt.Fprintln(o.out, console.FormatSuccessMessage("wasm-bindgen complete"))

	// Re-measured after every later stage so the final value reflects the
	// last artifact actually produced.
	after, err := o.fileSize(bound)
	if err != nil {
		return SizeMetrics{}, err
	}

	if o.config.RunWasmOpt {
		if o.toolchain.Installed(StageWasmOpt) {
			fmt.Fprintln(o.out, console.FormatInfoMessage(fmt.Sprintf("Step 3: Running wasm-opt %s...", o.config.OptLevel)))
			o.collector.RecordEvent(EventOptimizationStarted, map[string]string{"stage": StageWasmOpt})
			start = time.Now()
			if err := o.runner.SizeOptimize(ctx, bound); err != nil {
				return SizeMetrics{}, err
			}
			RecordDuration(o.collector, StageWasmOpt, time.Since(start))
			if after, err = o.fileSize(bound); err != nil {
				return SizeMetrics{}, err
			}
			o.collector.RecordEvent(EventOptimizationCompleted, map[string]string{"stage": StageWasmOpt})
			fmt.Fprintln(o.out, console.FormatSuccessMessage("wasm-opt complete"))
		} else {
			fmt.Fprintln(o.out, console.FormatInfoMessage("Step 3: Skipping wasm-opt (not installed)"))
		}
	}

	if o.config.RunWasmSnip {
		if o.toolchain.Installed(StageWasmSnip) {
			fmt.Fprintln(o.out, console.FormatInfoMessage("Step 4: Running wasm-snip..."))
			start = time.Now()
			if err := o.runner.Snip(ctx, bound); err != nil {
				return SizeMetrics{}, err
			}
			RecordDuration(o.collector, StageWasmSnip, time.Since(start))
			if after, err = o.fileSize(bound); err != nil {
				return SizeMetrics{}, err
			}
			fmt.Fprintln(o.out, console.FormatSuccessMessage("wasm-snip complete"))
		} else {
			fmt.Fprintln(o.out, console.FormatInfoMessage("Step 4: Skipping wasm-snip (not installed)"))
		}
	}

	RecordSize(o.collector, "after", after)
	return SizeMetrics{BeforeBytes: before, AfterBytes: after, ArtifactPath: bound}, nil
}

func (o *BuildOrchestrator) fileSize(path string) (uint64, error) {
	info, err := o.fs.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return uint64(info.Size()), nil
}
