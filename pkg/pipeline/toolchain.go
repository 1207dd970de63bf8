package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wasm-slim/wasm-slim/pkg/infra"
)

// ToolchainDetector probes the active Rust toolchain.
type ToolchainDetector struct {
	runner infra.CommandRunner
}

// NewToolchainDetector returns a detector over the given runner.
func NewToolchainDetector(runner infra.CommandRunner) *ToolchainDetector {
	return &ToolchainDetector{runner: runner}
}

// IsNightly reports whether rustc identifies itself as a nightly build.
// Rebuilding the standard library needs nightly, so callers gate the
// cargo config optimizations on this.
func (d *ToolchainDetector) IsNightly(ctx context.Context) (bool, error) {
	res, err := d.runner.Run(ctx, infra.Command{Name: "rustc", Args: []string{"--version"}})
	if err != nil {
		return false, fmt.Errorf("failed to run rustc: %w", err)
	}
	if res.ExitCode != 0 {
		return false, errors.New("failed to get version for rustc")
	}
	return strings.Contains(string(res.Stdout), "nightly"), nil
}
