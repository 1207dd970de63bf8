package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/wasm-slim/wasm-slim/pkg/console"
	"github.com/wasm-slim/wasm-slim/pkg/envutil"
	"github.com/wasm-slim/wasm-slim/pkg/infra"
	"github.com/wasm-slim/wasm-slim/pkg/logger"
)

var watchLog = logger.New("cli:watch")

const defaultWatchDebounceMS = 500

// Directories that change during a build or hold no sources. Watching them
// would make every build retrigger itself.
var unwatchedDirs = map[string]bool{
	"target":       true,
	"pkg":          true,
	".git":         true,
	".wasm-slim":   true,
	"node_modules": true,
}

// runWatch builds once, then rebuilds whenever a manifest or Rust source
// changes. Stops cleanly when ctx is cancelled (Ctrl-C).
func runWatch(ctx context.Context, root string, opts *buildOptions) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	defer watcher.Close()

	if err := addWatchTargets(watcher, root); err != nil {
		return err
	}

	debounceMS := envutil.GetIntFromEnv("WASM_SLIM_WATCH_DEBOUNCE_MS", defaultWatchDebounceMS, 50, 10_000, watchLog)
	debounce := time.Duration(debounceMS) * time.Millisecond

	fmt.Fprintln(os.Stderr, console.FormatInfoMessage(fmt.Sprintf("Watching %s for changes (Ctrl-C to stop)", console.ToRelativePath(root))))

	rebuild := func() {
		if err := runBuild(ctx, root, opts); err != nil && ctx.Err() == nil {
			fmt.Fprintln(os.Stderr, RenderError(err))
		}
		// The build itself edits manifests under watch. Discard the events
		// it caused so it does not trigger the next rebuild.
		drainWatchEvents(watcher)
	}
	rebuild()

	timer := time.NewTimer(time.Hour)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr)
			fmt.Fprintln(os.Stderr, console.FormatInfoMessage("Stopping watch mode"))
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) {
				watchIfNewDir(watcher, event.Name)
			}
			if !triggersRebuild(event) {
				continue
			}
			watchLog.Printf("Change detected: %s %s", event.Op, event.Name)
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(os.Stderr, console.FormatWarningMessage(fmt.Sprintf("Watcher error: %v", err)))

		case <-timer.C:
			fmt.Fprintln(os.Stderr)
			fmt.Fprintln(os.Stderr, console.FormatInfoMessage("Change detected, rebuilding..."))
			rebuild()
		}
	}
}

// addWatchTargets watches the project root plus every directory under src/
// and .cargo/. fsnotify watches are not recursive.
func addWatchTargets(watcher *fsnotify.Watcher, root string) error {
	if err := watcher.Add(root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}

	filesystem := infra.NewOSFileSystem()
	for _, sub := range []string{"src", ".cargo"} {
		dir := filepath.Join(root, sub)
		if _, err := filesystem.Stat(dir); err != nil {
			continue
		}
		walkErr := filesystem.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if unwatchedDirs[d.Name()] {
				return fs.SkipDir
			}
			watchLog.Printf("Watching %s", path)
			return watcher.Add(path)
		})
		if walkErr != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, walkErr)
		}
	}
	return nil
}

// watchIfNewDir adds newly created directories so sources added later are
// still picked up.
func watchIfNewDir(watcher *fsnotify.Watcher, path string) {
	if unwatchedDirs[filepath.Base(path)] {
		return
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if err := watcher.Add(path); err != nil {
		watchLog.Printf("Could not watch new directory %s: %v", path, err)
	}
}

// triggersRebuild filters events down to content changes on manifests and
// Rust sources. Everything else, Cargo.lock included, churns during normal
// builds.
func triggersRebuild(event fsnotify.Event) bool {
	relevant := event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) ||
		event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename)
	if !relevant {
		return false
	}

	switch filepath.Ext(event.Name) {
	case ".rs", ".toml":
		return true
	}
	return false
}

func drainWatchEvents(watcher *fsnotify.Watcher) {
	for {
		select {
		case <-watcher.Events:
		case <-watcher.Errors:
		default:
			return
		}
	}
}
