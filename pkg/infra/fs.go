// Package infra defines the process's two capability boundaries: filesystem
// access and external command execution. Production code binds them to the
// operating system; tests bind in-memory fakes so rollback and subprocess
// failure paths stay deterministic.
package infra

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// FileSystem is the storage capability. Implementations must be safe for
// concurrent use by independent files.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, perm os.FileMode) error
	MkdirAll(path string, perm os.FileMode) error
	Stat(path string) (os.FileInfo, error)
	ReadDir(path string) ([]os.DirEntry, error)
	WalkDir(root string, fn fs.WalkDirFunc) error
	Copy(src, dst string) (int64, error)
	Remove(path string) error
}

// OSFileSystem implements FileSystem over the real filesystem.
type OSFileSystem struct{}

// NewOSFileSystem returns the production filesystem binding.
func NewOSFileSystem() *OSFileSystem {
	return &OSFileSystem{}
}

func (*OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (*OSFileSystem) WriteFile(path string, data []byte, perm os.FileMode) error {
	return os.WriteFile(path, data, perm)
}

func (*OSFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (*OSFileSystem) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

func (*OSFileSystem) ReadDir(path string) ([]os.DirEntry, error) {
	return os.ReadDir(path)
}

func (*OSFileSystem) WalkDir(root string, fn fs.WalkDirFunc) error {
	return filepath.WalkDir(root, fn)
}

// Copy duplicates src's bytes into dst, creating or truncating dst.
func (*OSFileSystem) Copy(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dst, err)
	}

	written, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return written, fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	if err := out.Close(); err != nil {
		return written, fmt.Errorf("failed to close %s: %w", dst, err)
	}
	return written, nil
}

func (*OSFileSystem) Remove(path string) error {
	return os.Remove(path)
}
