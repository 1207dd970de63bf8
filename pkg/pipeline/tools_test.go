//go:build !integration

package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasm-slim/wasm-slim/pkg/infra/infratest"
)

func testToolChain() (*ToolChain, *infratest.ScriptedRunner) {
	runner := infratest.NewScriptedRunner()
	return NewToolChain(runner), runner
}

func TestCheckRequiredAllPresent(t *testing.T) {
	tc, runner := testToolChain()
	runner.Respond("cargo", infratest.Response{Stdout: "cargo 1.81.0 (2dbb1af80 2024-08-20)\n"})
	runner.Respond("wasm-bindgen", infratest.Response{Stdout: "wasm-bindgen 0.2.93\n"})

	require.NoError(t, tc.CheckRequired(context.Background()))
}

func TestCheckRequiredMissingCargo(t *testing.T) {
	tc, runner := testToolChain()
	runner.SetMissing("cargo")

	err := tc.CheckRequired(context.Background())
	var missing *ToolMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "Cargo", missing.Tool)
	assert.EqualError(t, err, "Cargo is required but not found in PATH")
}

func TestCheckRequiredMissingBindgen(t *testing.T) {
	tc, runner := testToolChain()
	runner.SetMissing("wasm-bindgen")

	err := tc.CheckRequired(context.Background())
	var missing *ToolMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "wasm-bindgen-cli", missing.Tool)
}

func TestCheckRequiredToleratesMissingOptionalTools(t *testing.T) {
	tc, runner := testToolChain()
	runner.SetMissing("wasm-opt")
	runner.SetMissing("wasm-snip")

	require.NoError(t, tc.CheckRequired(context.Background()))
}

func TestCheckRequiredBrokenVersionProbe(t *testing.T) {
	tc, runner := testToolChain()
	runner.Respond("cargo", infratest.Response{ExitCode: 1, Stderr: "dyld: missing library\n"})

	err := tc.CheckRequired(context.Background())
	var missing *ToolMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "Cargo", missing.Tool)
}

func TestVersionReturnsFirstLine(t *testing.T) {
	tc, runner := testToolChain()
	runner.Respond("cargo", infratest.Response{Stdout: "cargo 1.81.0 (2dbb1af80 2024-08-20)\nrelease: 1.81.0\n"})

	version, err := tc.Version(context.Background(), tc.tools[0])
	require.NoError(t, err)
	assert.Equal(t, "cargo 1.81.0 (2dbb1af80 2024-08-20)", version)
}

func TestCheckAllReportsEveryTool(t *testing.T) {
	tc, runner := testToolChain()
	runner.Respond("cargo", infratest.Response{Stdout: "cargo 1.81.0 (2dbb1af80 2024-08-20)\n"})
	runner.Respond("wasm-bindgen", infratest.Response{Stdout: "wasm-bindgen 0.2.93\n"})
	runner.Respond("wasm-opt", infratest.Response{Stdout: "wasm-opt version 118 (version_118)\n"})
	runner.SetMissing("wasm-snip")

	statuses := tc.CheckAll(context.Background())
	require.Len(t, statuses, 4)

	assert.True(t, statuses[0].Installed)
	assert.Equal(t, "cargo 1.81.0 (2dbb1af80 2024-08-20)", statuses[0].Version)
	assert.True(t, statuses[0].MeetsMin)

	assert.True(t, statuses[1].Installed)
	assert.True(t, statuses[1].MeetsMin)

	assert.True(t, statuses[2].Installed)
	assert.True(t, statuses[2].MeetsMin)

	assert.False(t, statuses[3].Installed)
	assert.Empty(t, statuses[3].Version)
	assert.True(t, statuses[3].MeetsMin, "wasm-snip has no minimum version")
}

func TestCheckFlagsOutdatedTool(t *testing.T) {
	tc, runner := testToolChain()
	runner.Respond("wasm-opt", infratest.Response{Stdout: "wasm-opt version 90 (version_90)\n"})

	status := tc.Check(context.Background(), tc.tools[2])
	assert.True(t, status.Installed)
	assert.Equal(t, "wasm-opt version 90 (version_90)", status.Version)
	assert.False(t, status.MeetsMin)
}

func TestCheckInstalledButVersionUnknown(t *testing.T) {
	tc, runner := testToolChain()
	runner.Respond("cargo", infratest.Response{ExitCode: 1})

	status := tc.Check(context.Background(), tc.tools[0])
	assert.True(t, status.Installed)
	assert.Empty(t, status.Version)
	assert.False(t, status.MeetsMin)
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		line     string
		expected string
	}{
		{"cargo 1.81.0 (2dbb1af80 2024-08-20)", "v1.81.0"},
		{"wasm-bindgen 0.2.93", "v0.2.93"},
		{"wasm-opt version 118 (version_118)", "v118"},
		{"rustc 1.86.0-nightly (abc1234 2025-01-01)", "v1.86.0"},
		{"no digits here", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, parseVersion(tt.line), "parseVersion(%q)", tt.line)
	}
}

func TestInstallHint(t *testing.T) {
	assert.Contains(t, InstallHint("cargo"), "rustup.rs")
	assert.Equal(t, "cargo install wasm-bindgen-cli", InstallHint("wasm-bindgen"))
	assert.Contains(t, InstallHint("wasm-opt"), "binaryen")
	assert.Equal(t, "cargo install wasm-snip", InstallHint("wasm-snip"))
	assert.Empty(t, InstallHint("sccache"))
}
