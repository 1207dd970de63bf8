//go:build !integration

package cli

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasm-slim/wasm-slim/pkg/cicd"
)

func TestRunCIInitWritesWorkflow(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, runCIInit(dir, "main", false))

	data, err := os.ReadFile(cicd.WorkflowPath(dir))
	require.NoError(t, err)

	content := string(data)
	assert.Contains(t, content, "actions/checkout@v4")
	assert.Contains(t, content, "wasm32-unknown-unknown")
	assert.Contains(t, content, "wasm-slim build --check --json")
}

func TestRunCIInitCustomBranch(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, runCIInit(dir, "trunk", false))

	data, err := os.ReadFile(cicd.WorkflowPath(dir))
	require.NoError(t, err)
	assert.Contains(t, string(data), "trunk")
}

func TestRunCIInitCheckUpToDate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, runCIInit(dir, "main", false))

	assert.NoError(t, runCIInit(dir, "main", true))
}

func TestRunCIInitCheckStale(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, runCIInit(dir, "main", false))

	path := cicd.WorkflowPath(dir)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, append(data, '\n'), 0644))

	err = runCIInit(dir, "main", true)
	var stale *WorkflowStaleError
	require.ErrorAs(t, err, &stale)
}

func TestRunCIInitCheckBranchChange(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, runCIInit(dir, "main", false))

	err := runCIInit(dir, "trunk", true)
	var stale *WorkflowStaleError
	require.ErrorAs(t, err, &stale)
}

func TestRunCIInitCheckMissingWorkflow(t *testing.T) {
	dir := t.TempDir()

	err := runCIInit(dir, "main", true)
	var stale *WorkflowStaleError
	require.ErrorAs(t, err, &stale)
}

func TestRunCIInitOverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, runCIInit(dir, "main", false))
	require.NoError(t, runCIInit(dir, "trunk", false))

	data, err := os.ReadFile(cicd.WorkflowPath(dir))
	require.NoError(t, err)
	assert.Contains(t, string(data), "trunk")
	assert.NoError(t, runCIInit(dir, "trunk", true))
}
