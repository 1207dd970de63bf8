//go:build !integration

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasm-slim/wasm-slim/pkg/infra"
	"github.com/wasm-slim/wasm-slim/pkg/infra/infratest"
	"github.com/wasm-slim/wasm-slim/pkg/testutil"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	loader := NewLoader(infratest.NewFakeFileSystem())

	cfg, err := loader.Load("/project")
	require.NoError(t, err)
	assert.Equal(t, "balanced", cfg.Template)
	assert.Nil(t, cfg.SizeBudget)
}

func TestLoadParsesFullConfig(t *testing.T) {
	fakeFS := infratest.NewFakeFileSystem()
	fakeFS.Seed("/project/.wasm-slim.toml", []byte(`
template = "minimal"

[profile]
opt-level = "z"
lto = "fat"
strip = true
codegen-units = 1
panic = "abort"

[wasm-opt]
flags = ["-Oz", "--strip-debug"]

[size-budget]
max-size-kb = 500
warn-threshold-kb = 400
target-size-kb = 300
`))

	cfg, err := NewLoader(fakeFS).Load("/project")
	require.NoError(t, err)

	assert.Equal(t, "minimal", cfg.Template)
	require.NotNil(t, cfg.Profile)
	assert.Equal(t, "z", *cfg.Profile.OptLevel)
	assert.Equal(t, 1, *cfg.Profile.CodegenUnits)
	require.NotNil(t, cfg.WasmOpt)
	assert.Equal(t, []string{"-Oz", "--strip-debug"}, cfg.WasmOpt.Flags)
	require.NotNil(t, cfg.SizeBudget)
	assert.Equal(t, uint64(500), *cfg.SizeBudget.MaxSizeKB)
	assert.Equal(t, uint64(400), *cfg.SizeBudget.WarnThresholdKB)
	assert.Equal(t, uint64(300), *cfg.SizeBudget.TargetSizeKB)
}

func TestLoadInvalidTOMLReturnsParseError(t *testing.T) {
	fakeFS := infratest.NewFakeFileSystem()
	fakeFS.Seed("/project/.wasm-slim.toml", []byte("[invalid toml\nthis is broken"))

	_, err := NewLoader(fakeFS).Load("/project")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse .wasm-slim.toml")
}

func TestLoadMalformedStructureReturnsParseError(t *testing.T) {
	fakeFS := infratest.NewFakeFileSystem()
	fakeFS.Seed("/project/.wasm-slim.toml", []byte(`profile = "not a table"`))

	_, err := NewLoader(fakeFS).Load("/project")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse .wasm-slim.toml")
}

func TestLoadReadFailureReturnsReadError(t *testing.T) {
	fakeFS := infratest.NewFakeFileSystem()
	fakeFS.Seed("/project/.wasm-slim.toml", []byte(`template = "balanced"`))
	fakeFS.FailReads["/project/.wasm-slim.toml"] = errors.New("permission denied")

	_, err := NewLoader(fakeFS).Load("/project")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read .wasm-slim.toml")
}

func TestLoadRejectsInvalidBudgetOrdering(t *testing.T) {
	fakeFS := infratest.NewFakeFileSystem()
	fakeFS.Seed("/project/.wasm-slim.toml", []byte(`
[size-budget]
max-size-kb = 200
warn-threshold-kb = 300
`))

	_, err := NewLoader(fakeFS).Load("/project")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid size budget configuration")
	assert.Contains(t, err.Error(), "Warning threshold (300 KB) cannot exceed max size (200 KB)")
}

func TestLoadCommentOnlyFileReturnsDefault(t *testing.T) {
	fakeFS := infratest.NewFakeFileSystem()
	fakeFS.Seed("/project/.wasm-slim.toml", []byte("   \n\n# just a comment\n"))

	cfg, err := NewLoader(fakeFS).Load("/project")
	require.NoError(t, err)
	assert.Equal(t, "balanced", cfg.Template)
}

func TestLoadEnvironmentOverridesTemplate(t *testing.T) {
	t.Setenv("WASM_SLIM_TEMPLATE", "aggressive")

	fakeFS := infratest.NewFakeFileSystem()
	fakeFS.Seed("/project/.wasm-slim.toml", []byte(`template = "balanced"`))

	cfg, err := NewLoader(fakeFS).Load("/project")
	require.NoError(t, err)
	assert.Equal(t, "aggressive", cfg.Template)
}

func TestLoadEnvironmentSetsBudgetWithoutFile(t *testing.T) {
	t.Setenv("WASM_SLIM_SIZE_BUDGET_MAX_SIZE_KB", "500")

	cfg, err := NewLoader(infratest.NewFakeFileSystem()).Load("/project")
	require.NoError(t, err)
	require.NotNil(t, cfg.SizeBudget)
	require.NotNil(t, cfg.SizeBudget.MaxSizeKB)
	assert.Equal(t, uint64(500), *cfg.SizeBudget.MaxSizeKB)
}

func TestSaveThenLoadPreservesValues(t *testing.T) {
	fakeFS := infratest.NewFakeFileSystem()
	loader := NewLoader(fakeFS)

	cfg := &ConfigFile{
		Template: "minimal",
		Profile: &ProfileSettings{
			OptLevel: strPtr("z"),
			LTO:      strPtr("fat"),
			Strip:    boolPtr(true),
		},
		SizeBudget: &SizeBudget{MaxSizeKB: kb(500)},
	}
	require.NoError(t, loader.Save(cfg, "/project"))

	loaded, err := loader.Load("/project")
	require.NoError(t, err)
	assert.Equal(t, "minimal", loaded.Template)
	require.NotNil(t, loaded.Profile)
	assert.Equal(t, "z", *loaded.Profile.OptLevel)
	require.NotNil(t, loaded.SizeBudget)
	assert.Equal(t, uint64(500), *loaded.SizeBudget.MaxSizeKB)
}

func TestSaveWritesCommentHeader(t *testing.T) {
	fakeFS := infratest.NewFakeFileSystem()
	require.NoError(t, NewLoader(fakeFS).Save(DefaultConfigFile(), "/project"))

	data, ok := fakeFS.Content("/project/.wasm-slim.toml")
	require.True(t, ok)
	assert.Contains(t, string(data), "# wasm-slim configuration")
	assert.Contains(t, string(data), `template = "balanced"`)
}

func TestSaveOmitsEmptySections(t *testing.T) {
	fakeFS := infratest.NewFakeFileSystem()
	require.NoError(t, NewLoader(fakeFS).Save(DefaultConfigFile(), "/project"))

	data, _ := fakeFS.Content("/project/.wasm-slim.toml")
	assert.NotContains(t, string(data), "[profile]")
	assert.NotContains(t, string(data), "[size-budget]")
}

func TestSaveWriteFailure(t *testing.T) {
	fakeFS := infratest.NewFakeFileSystem()
	fakeFS.FailWrites["/project/.wasm-slim.toml"] = errors.New("read-only filesystem")

	err := NewLoader(fakeFS).Save(DefaultConfigFile(), "/project")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write .wasm-slim.toml")
}

func TestExists(t *testing.T) {
	fakeFS := infratest.NewFakeFileSystem()
	loader := NewLoader(fakeFS)

	assert.False(t, loader.Exists("/project"))
	require.NoError(t, loader.Save(DefaultConfigFile(), "/project"))
	assert.True(t, loader.Exists("/project"))
}

func TestLoadAgainstRealFilesystem(t *testing.T) {
	dir := testutil.TempDir(t, "config")
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(`template = "yew"`), 0644))

	cfg, err := NewLoader(infra.NewOSFileSystem()).Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "yew", cfg.Template)
}
