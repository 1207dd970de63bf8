package optimizer

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/wasm-slim/wasm-slim/pkg/infra"
	"github.com/wasm-slim/wasm-slim/pkg/logger"
)

var backupLog = logger.New("optimizer:backup")

// backupTimestampLayout renders millisecond precision so rapid successive
// backups of the same file still read in creation order.
const backupTimestampLayout = "20060102_150405.000"

// BackupManager copies files into the project's backup directory before
// they are mutated. Backup filenames carry a timestamp plus a random
// suffix, so concurrent callers, including separate processes, never
// collide. Backups accumulate; nothing rotates or deduplicates them.
type BackupManager struct {
	dir string
	fs  infra.FileSystem
}

// NewBackupManager creates a manager writing under
// <projectRoot>/.wasm-slim/backups.
func NewBackupManager(projectRoot string) *BackupManager {
	return NewBackupManagerWithFS(projectRoot, infra.NewOSFileSystem())
}

// NewBackupManagerWithFS creates a manager bound to a custom filesystem.
func NewBackupManagerWithFS(projectRoot string, fs infra.FileSystem) *BackupManager {
	return &BackupManager{
		dir: filepath.Join(projectRoot, ".wasm-slim", "backups"),
		fs:  fs,
	}
}

// BackupDir returns the directory backups are written to.
func (m *BackupManager) BackupDir() string {
	return m.dir
}

// CreateBackup copies source's bytes verbatim into the backup directory
// under a fresh unique name and returns the backup path. Only the final
// path component of source is used in the backup name, so a source path
// containing ".." cannot place the copy outside the backup directory.
func (m *BackupManager) CreateBackup(source string) (string, error) {
	if err := m.fs.MkdirAll(m.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory %s: %w", m.dir, err)
	}

	base := filepath.Base(source)
	if base == "." || base == string(os.PathSeparator) || base == "" {
		return "", fmt.Errorf("invalid source filename: %s", source)
	}

	name := fmt.Sprintf("%s.%s.%s.backup", base, time.Now().Format(backupTimestampLayout), backupID())
	dest := filepath.Join(m.dir, name)

	if _, err := m.fs.Copy(source, dest); err != nil {
		return "", fmt.Errorf("failed to copy %s: %w", source, err)
	}

	backupLog.Printf("Backed up %s to %s", source, dest)
	return dest, nil
}

// backupID returns 32 hex characters of cryptographic randomness.
func backupID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}
