// Package infratest provides in-memory implementations of the infra
// capability interfaces for tests: a fake filesystem with failure injection
// and a scripted command runner.
package infratest

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FakeFileSystem implements infra.FileSystem in memory. Paths are stored
// slash-cleaned; directories exist implicitly for every stored file and
// explicitly via MkdirAll.
type FakeFileSystem struct {
	mu    sync.Mutex
	files map[string][]byte
	dirs  map[string]bool

	// FailReads, FailWrites, and FailMkdir inject per-path errors.
	FailReads  map[string]error
	FailWrites map[string]error
	FailMkdir  map[string]error

	// WriteLog records every successful WriteFile path in order.
	WriteLog []string
}

// NewFakeFileSystem returns an empty fake filesystem.
func NewFakeFileSystem() *FakeFileSystem {
	return &FakeFileSystem{
		files:      make(map[string][]byte),
		dirs:       make(map[string]bool),
		FailReads:  make(map[string]error),
		FailWrites: make(map[string]error),
		FailMkdir:  make(map[string]error),
	}
}

func clean(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}

// Seed stores a file without going through WriteFile bookkeeping.
func (f *FakeFileSystem) Seed(p string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := clean(p)
	f.files[cp] = append([]byte(nil), data...)
	f.addParentDirs(cp)
}

// Content returns the current bytes of a file.
func (f *FakeFileSystem) Content(p string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[clean(p)]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Paths returns all stored file paths, sorted.
func (f *FakeFileSystem) Paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.files))
	for p := range f.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (f *FakeFileSystem) addParentDirs(p string) {
	for dir := path.Dir(p); dir != "." && dir != "/" && dir != ""; dir = path.Dir(dir) {
		f.dirs[dir] = true
	}
	f.dirs["/"] = true
	f.dirs["."] = true
}

func (f *FakeFileSystem) ReadFile(p string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := clean(p)
	if err, ok := f.FailReads[cp]; ok {
		return nil, err
	}
	data, ok := f.files[cp]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: p, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), data...), nil
}

func (f *FakeFileSystem) WriteFile(p string, data []byte, _ os.FileMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := clean(p)
	if err, ok := f.FailWrites[cp]; ok {
		return err
	}
	f.files[cp] = append([]byte(nil), data...)
	f.addParentDirs(cp)
	f.WriteLog = append(f.WriteLog, cp)
	return nil
}

func (f *FakeFileSystem) MkdirAll(p string, _ os.FileMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := clean(p)
	if err, ok := f.FailMkdir[cp]; ok {
		return err
	}
	f.dirs[cp] = true
	f.addParentDirs(cp + "/x")
	return nil
}

func (f *FakeFileSystem) Stat(p string) (os.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := clean(p)
	if data, ok := f.files[cp]; ok {
		return fakeFileInfo{name: path.Base(cp), size: int64(len(data))}, nil
	}
	if f.dirs[cp] {
		return fakeFileInfo{name: path.Base(cp), dir: true}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: p, Err: fs.ErrNotExist}
}

func (f *FakeFileSystem) ReadDir(p string) ([]os.DirEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := clean(p)
	if !f.dirs[cp] {
		return nil, &fs.PathError{Op: "open", Path: p, Err: fs.ErrNotExist}
	}

	entries := make([]os.DirEntry, 0)
	for _, name := range f.childNames(cp) {
		child := path.Join(cp, name)
		if _, ok := f.files[child]; ok {
			entries = append(entries, fakeDirEntry{name: name})
		} else {
			entries = append(entries, fakeDirEntry{name: name, dir: true})
		}
	}
	return entries, nil
}

// WalkDir visits the stored tree in lexical order, honoring fs.SkipDir the
// way filepath.WalkDir does.
func (f *FakeFileSystem) WalkDir(root string, fn fs.WalkDirFunc) error {
	croot := clean(root)

	f.mu.Lock()
	exists := f.dirs[croot]
	_, isFile := f.files[croot]
	f.mu.Unlock()

	if !exists && !isFile {
		return fn(root, nil, &fs.PathError{Op: "lstat", Path: root, Err: fs.ErrNotExist})
	}
	if isFile {
		return fn(root, fakeDirEntry{name: path.Base(croot)}, nil)
	}

	err := f.walk(croot, fn)
	if err == fs.SkipDir || err == fs.SkipAll {
		return nil
	}
	return err
}

func (f *FakeFileSystem) walk(dir string, fn fs.WalkDirFunc) error {
	if err := fn(dir, fakeDirEntry{name: path.Base(dir), dir: true}, nil); err != nil {
		return err
	}

	for _, name := range f.sortedChildren(dir) {
		child := path.Join(dir, name)

		f.mu.Lock()
		_, isFile := f.files[child]
		f.mu.Unlock()

		if isFile {
			if err := fn(child, fakeDirEntry{name: name}, nil); err != nil {
				if err == fs.SkipDir {
					break
				}
				return err
			}
			continue
		}

		err := f.walk(child, fn)
		if err == fs.SkipDir {
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (f *FakeFileSystem) sortedChildren(dir string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.childNames(dir)
}

// childNames assumes f.mu is held.
func (f *FakeFileSystem) childNames(dir string) []string {
	seen := make(map[string]bool)
	prefix := dir + "/"
	if dir == "/" {
		prefix = "/"
	}

	collect := func(p string) {
		if !strings.HasPrefix(p, prefix) || p == dir {
			return
		}
		rest := strings.TrimPrefix(p, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			rest = rest[:i]
		}
		if rest != "" {
			seen[rest] = true
		}
	}
	for p := range f.files {
		collect(p)
	}
	for p := range f.dirs {
		collect(p)
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f *FakeFileSystem) Copy(src, dst string) (int64, error) {
	data, err := f.ReadFile(src)
	if err != nil {
		return 0, err
	}
	if err := f.WriteFile(dst, data, 0644); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func (f *FakeFileSystem) Remove(p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := clean(p)
	if _, ok := f.files[cp]; ok {
		delete(f.files, cp)
		return nil
	}
	if f.dirs[cp] {
		delete(f.dirs, cp)
		return nil
	}
	return &fs.PathError{Op: "remove", Path: p, Err: fs.ErrNotExist}
}

type fakeFileInfo struct {
	name string
	size int64
	dir  bool
}

func (i fakeFileInfo) Name() string { return i.name }
func (i fakeFileInfo) Size() int64  { return i.size }
func (i fakeFileInfo) Mode() os.FileMode {
	if i.dir {
		return os.ModeDir | 0755
	}
	return 0644
}
func (i fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (i fakeFileInfo) IsDir() bool        { return i.dir }
func (i fakeFileInfo) Sys() any           { return nil }

type fakeDirEntry struct {
	name string
	dir  bool
}

func (e fakeDirEntry) Name() string { return e.name }
func (e fakeDirEntry) IsDir() bool  { return e.dir }
func (e fakeDirEntry) Type() os.FileMode {
	if e.dir {
		return os.ModeDir
	}
	return 0
}
func (e fakeDirEntry) Info() (os.FileInfo, error) {
	return fakeFileInfo{name: e.name, dir: e.dir}, nil
}
