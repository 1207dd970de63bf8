//go:build !integration

package optimizer

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wasm-slim/wasm-slim/pkg/infra/infratest"
)

var backupNamePattern = regexp.MustCompile(`^Cargo\.toml\.\d{8}_\d{6}\.\d{3}\.[0-9a-f]{32}\.backup$`)

func TestCreateBackupWritesCopy(t *testing.T) {
	fs := infratest.NewFakeFileSystem()
	fs.Seed("/proj/Cargo.toml", []byte("[package]\nname = \"app\"\n"))

	manager := NewBackupManagerWithFS("/proj", fs)
	backupPath, err := manager.CreateBackup("/proj/Cargo.toml")
	require.NoError(t, err)

	assert.Equal(t, manager.BackupDir(), filepath.Dir(backupPath))
	assert.True(t, backupNamePattern.MatchString(filepath.Base(backupPath)),
		"unexpected backup name %q", filepath.Base(backupPath))

	copied, ok := fs.Content(backupPath)
	require.True(t, ok, "backup file was not written")
	assert.Equal(t, "[package]\nname = \"app\"\n", string(copied))
}

func TestBackupDirIsUnderProjectRoot(t *testing.T) {
	manager := NewBackupManagerWithFS("/proj", infratest.NewFakeFileSystem())
	assert.Equal(t, filepath.Join("/proj", ".wasm-slim", "backups"), manager.BackupDir())
}

func TestCreateBackupNamesNeverRepeat(t *testing.T) {
	fs := infratest.NewFakeFileSystem()
	fs.Seed("/proj/Cargo.toml", []byte("content"))
	manager := NewBackupManagerWithFS("/proj", fs)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		backupPath, err := manager.CreateBackup("/proj/Cargo.toml")
		require.NoError(t, err)
		assert.False(t, seen[backupPath], "backup name %s reused", backupPath)
		seen[backupPath] = true
	}
}

func TestCreateBackupConcurrentCallersDoNotCollide(t *testing.T) {
	fs := infratest.NewFakeFileSystem()
	fs.Seed("/proj/Cargo.toml", []byte("content"))
	manager := NewBackupManagerWithFS("/proj", fs)

	const workers = 10
	const perWorker = 5

	var mu sync.Mutex
	paths := make(map[string]bool)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				backupPath, err := manager.CreateBackup("/proj/Cargo.toml")
				assert.NoError(t, err)
				mu.Lock()
				paths[backupPath] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, paths, workers*perWorker)
}

func TestCreateBackupSnapshotsContentAtCreationTime(t *testing.T) {
	fs := infratest.NewFakeFileSystem()
	fs.Seed("/proj/Cargo.toml", []byte("first"))
	manager := NewBackupManagerWithFS("/proj", fs)

	firstBackup, err := manager.CreateBackup("/proj/Cargo.toml")
	require.NoError(t, err)

	fs.Seed("/proj/Cargo.toml", []byte("second"))
	secondBackup, err := manager.CreateBackup("/proj/Cargo.toml")
	require.NoError(t, err)

	firstContent, _ := fs.Content(firstBackup)
	secondContent, _ := fs.Content(secondBackup)
	assert.Equal(t, "first", string(firstContent))
	assert.Equal(t, "second", string(secondContent))
}

func TestCreateBackupMissingSource(t *testing.T) {
	manager := NewBackupManagerWithFS("/proj", infratest.NewFakeFileSystem())

	_, err := manager.CreateBackup("/proj/Cargo.toml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to copy")
}

func TestCreateBackupUnreadableSource(t *testing.T) {
	fs := infratest.NewFakeFileSystem()
	fs.Seed("/proj/Cargo.toml", []byte("content"))
	fs.FailReads["/proj/Cargo.toml"] = errors.New("permission denied")
	manager := NewBackupManagerWithFS("/proj", fs)

	_, err := manager.CreateBackup("/proj/Cargo.toml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to copy /proj/Cargo.toml")
}

func TestCreateBackupDirectoryFailure(t *testing.T) {
	fs := infratest.NewFakeFileSystem()
	fs.Seed("/proj/Cargo.toml", []byte("content"))
	fs.FailMkdir[filepath.Join("/proj", ".wasm-slim", "backups")] = fmt.Errorf("read-only filesystem")
	manager := NewBackupManagerWithFS("/proj", fs)

	_, err := manager.CreateBackup("/proj/Cargo.toml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create backup directory")
}

func TestCreateBackupRejectsBareDirectoryPath(t *testing.T) {
	fs := infratest.NewFakeFileSystem()
	manager := NewBackupManagerWithFS("/proj", fs)

	_, err := manager.CreateBackup("/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid source filename")
}

func TestCreateBackupUsesOnlyFinalPathComponent(t *testing.T) {
	fs := infratest.NewFakeFileSystem()
	fs.Seed("/proj/sub/../Cargo.toml", []byte("content"))
	manager := NewBackupManagerWithFS("/proj", fs)

	backupPath, err := manager.CreateBackup("/proj/sub/../Cargo.toml")
	require.NoError(t, err)
	assert.Equal(t, manager.BackupDir(), filepath.Dir(backupPath))
	assert.True(t, backupNamePattern.MatchString(filepath.Base(backupPath)))
}
