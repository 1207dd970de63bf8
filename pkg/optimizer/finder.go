package optimizer

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/wasm-slim/wasm-slim/pkg/infra"
	"github.com/wasm-slim/wasm-slim/pkg/logger"
)

var finderLog = logger.New("optimizer:finder")

// manifestFileName is the build manifest the optimizer edits.
const manifestFileName = "Cargo.toml"

// skippedDirs are never descended into during discovery. Build output and
// vendored trees carry manifests that are not ours to edit.
var skippedDirs = map[string]bool{
	"target":       true,
	"node_modules": true,
	".git":         true,
	".wasm-slim":   true,
	"dist":         true,
	"vendor":       true,
}

// ManifestFinder discovers Cargo.toml files under a project root,
// including workspace members in subdirectories.
type ManifestFinder struct {
	root string
	fs   infra.FileSystem
}

// NewManifestFinder creates a finder rooted at projectRoot.
func NewManifestFinder(projectRoot string) *ManifestFinder {
	return NewManifestFinderWithFS(projectRoot, infra.NewOSFileSystem())
}

// NewManifestFinderWithFS creates a finder bound to a custom filesystem.
func NewManifestFinderWithFS(projectRoot string, fs infra.FileSystem) *ManifestFinder {
	return &ManifestFinder{root: projectRoot, fs: fs}
}

// FindManifests walks the project tree and returns every manifest path in
// lexical walk order.
func (f *ManifestFinder) FindManifests() ([]string, error) {
	var manifests []string

	err := f.fs.WalkDir(f.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if path != f.root && skippedDirs[entry.Name()] {
				finderLog.Printf("Skipping directory %s", path)
				return fs.SkipDir
			}
			return nil
		}
		if entry.Name() == manifestFileName {
			manifests = append(manifests, filepath.Clean(path))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s for manifests: %w", f.root, err)
	}

	finderLog.Printf("Found %d manifest(s) under %s", len(manifests), f.root)
	return manifests, nil
}
