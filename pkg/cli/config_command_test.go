//go:build !integration

package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasm-slim/wasm-slim/pkg/config"
)

func writeConfigFile(t *testing.T, dir, content string) {
	t.Helper()
	path := filepath.Join(dir, config.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestRunConfigValidateMissingFile(t *testing.T) {
	err := runConfigValidate(t.TempDir())

	var notFound *ConfigNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, config.ConfigFileName, notFound.Path)
}

func TestRunConfigValidateGeneratedConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, runInit(dir, "leptos", false, false))

	assert.NoError(t, runConfigValidate(dir))
}

func TestRunConfigValidateMalformedTOML(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "template = [broken\n")

	err := runConfigValidate(dir)

	var invalid *ConfigInvalidError
	require.ErrorAs(t, err, &invalid)
}

func TestRunConfigValidateUnknownTemplate(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "template = \"turbo\"\n")

	err := runConfigValidate(dir)

	var invalid *ConfigInvalidError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, err.Error(), "turbo")
}

func TestRunConfigValidateBudgetOrdering(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `template = "balanced"

[size-budget]
target-size-kb = 600
warn-threshold-kb = 100
`)

	err := runConfigValidate(dir)

	var invalid *ConfigInvalidError
	require.ErrorAs(t, err, &invalid)
}

func TestRunConfigShowDefaults(t *testing.T) {
	assert.NoError(t, runConfigShow(t.TempDir()))
}

func TestRunConfigShowUnknownTemplate(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "template = \"turbo\"\n")

	err := runConfigShow(dir)

	var invalid *ConfigInvalidError
	require.ErrorAs(t, err, &invalid)
}
