package pipeline

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/wasm-slim/wasm-slim/pkg/infra"
)

// ToolDescriptor describes one external build tool.
type ToolDescriptor struct {
	// Name is the human-readable name shown in status output.
	Name string
	// Binary is the name resolved via PATH, also used as the stage tag.
	Binary string
	// VersionArg is the flag that makes the tool print its version.
	VersionArg string
	// Required marks tools the pipeline cannot run without.
	Required bool
	// MinVersion is a semver lower bound, empty when any version serves.
	MinVersion string
}

// ToolStatus is the result of probing one tool.
type ToolStatus struct {
	Tool      ToolDescriptor
	Installed bool
	// Version is the first line of the tool's version output, empty when
	// the probe failed.
	Version string
	// MeetsMin is true when no minimum is configured or the reported
	// version satisfies it.
	MeetsMin bool
}

// DefaultTools returns the four build tools in pipeline order.
func DefaultTools() []ToolDescriptor {
	return []ToolDescriptor{
		{Name: "Cargo", Binary: StageCargo, VersionArg: "--version", Required: true, MinVersion: "v1.70.0"},
		{Name: "wasm-bindgen-cli", Binary: StageWasmBindgen, VersionArg: "--version", Required: true, MinVersion: "v0.2.84"},
		{Name: "wasm-opt (Binaryen)", Binary: StageWasmOpt, VersionArg: "--version", Required: false, MinVersion: "v110"},
		{Name: "wasm-snip", Binary: StageWasmSnip, VersionArg: "--version", Required: false},
	}
}

// ToolChain detects and verifies the external tools a build needs.
type ToolChain struct {
	runner infra.CommandRunner
	tools  []ToolDescriptor
}

// NewToolChain builds the default chain over the given runner.
func NewToolChain(runner infra.CommandRunner) *ToolChain {
	return &ToolChain{runner: runner, tools: DefaultTools()}
}

// Tools returns the chain's descriptors in pipeline order.
func (tc *ToolChain) Tools() []ToolDescriptor {
	return slices.Clone(tc.tools)
}

// Installed reports whether the named binary resolves on PATH.
func (tc *ToolChain) Installed(binary string) bool {
	_, err := tc.runner.LookPath(binary)
	return err == nil
}

// Version runs the tool's version probe and returns the first output line.
func (tc *ToolChain) Version(ctx context.Context, tool ToolDescriptor) (string, error) {
	res, err := tc.runner.Run(ctx, infra.Command{Name: tool.Binary, Args: []string{tool.VersionArg}})
	if err != nil {
		return "", fmt.Errorf("failed to run %s: %w", tool.Binary, err)
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("failed to get version for %s", tool.Name)
	}
	line, _, _ := strings.Cut(string(res.Stdout), "\n")
	return strings.TrimSpace(line), nil
}

// Check probes one tool and reports its status.
func (tc *ToolChain) Check(ctx context.Context, tool ToolDescriptor) ToolStatus {
	status := ToolStatus{Tool: tool, MeetsMin: tool.MinVersion == ""}
	if !tc.Installed(tool.Binary) {
		return status
	}
	status.Installed = true

	version, err := tc.Version(ctx, tool)
	if err != nil {
		return status
	}
	status.Version = version
	if tool.MinVersion != "" {
		status.MeetsMin = semver.Compare(parseVersion(version), tool.MinVersion) >= 0
	}
	return status
}

// CheckAll probes every tool in the chain.
func (tc *ToolChain) CheckAll(ctx context.Context) []ToolStatus {
	statuses := make([]ToolStatus, 0, len(tc.tools))
	for _, tool := range tc.tools {
		statuses = append(statuses, tc.Check(ctx, tool))
	}
	return statuses
}

// CheckRequired verifies every required tool resolves on PATH and answers
// its version probe. The workflow calls this before any file is touched.
func (tc *ToolChain) CheckRequired(ctx context.Context) error {
	for _, tool := range tc.tools {
		if !tool.Required {
			continue
		}
		if !tc.Installed(tool.Binary) {
			return &ToolMissingError{Tool: tool.Name}
		}
		if _, err := tc.Version(ctx, tool); err != nil {
			return &ToolMissingError{Tool: tool.Name}
		}
	}
	return nil
}

// parseVersion extracts the first dotted number from a version line and
// normalizes it to the v-prefixed form x/mod/semver compares. Tools format
// versions differently: "cargo 1.81.0 (...)", "wasm-bindgen 0.2.93",
// "wasm-opt version 118 (version_118)".
func parseVersion(line string) string {
	for _, field := range strings.Fields(line) {
		field = strings.TrimPrefix(field, "v")
		if field == "" || field[0] < '0' || field[0] > '9' {
			continue
		}
		end := len(field)
		for i := 0; i < len(field); i++ {
			c := field[i]
			if (c < '0' || c > '9') && c != '.' {
				end = i
				break
			}
		}
		if v := "v" + strings.TrimRight(field[:end], "."); semver.IsValid(v) {
			return v
		}
	}
	return ""
}

// InstallHint returns the command that installs the named binary, or "" for
// binaries outside the chain.
func InstallHint(binary string) string {
	switch binary {
	case StageCargo:
		return "curl --proto '=https' --tlsv1.2 -sSf https://sh.rustup.rs | sh"
	case StageWasmBindgen:
		return "cargo install wasm-bindgen-cli"
	case StageWasmOpt:
		return "brew install binaryen (or: apt install binaryen)"
	case StageWasmSnip:
		return "cargo install wasm-snip"
	}
	return ""
}
