package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Crash is a test-only [FS] wrapper that simulates crash consistency: a
// file's content only survives [Crash.SimulateCrash] if it was durably
// synced, and a rename's new directory entry only survives if the
// containing directory was itself synced afterward. This mirrors exactly
// the durability contract [AtomicWriter] relies on (sync temp file, rename,
// sync parent directory) and is what lets tests assert that a dump write
// interrupted before the directory sync leaves no half-installed file
// behind.
//
// Crash operates on a real on-disk working directory, so [File] values it
// returns behave like real files right up until a simulated crash; the
// crash itself rewrites that directory to match the last-known-durable
// snapshot. Crash only tracks direct children of its working directory;
// nested subdirectories are out of scope, matching the flat
// "<path>/<name>.dump" / "<path>/<name>.aol" layout it's exercised against.
type Crash struct {
	mu      sync.Mutex
	workDir string
	durable map[string][]byte
	pending []pendingRename
}

type pendingRename struct {
	newPath, dir string
	data         []byte
	hadDurable   bool
}

// NewCrash creates a Crash rooted at workDir, which must already exist.
// Files already present in workDir are seeded as durable, as if they
// survived a previous, successful run.
func NewCrash(workDir string) (*Crash, error) {
	c := &Crash{workDir: workDir, durable: map[string][]byte{}}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		return nil, fmt.Errorf("fs: new crash: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		path := filepath.Join(workDir, e.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("fs: new crash: seed %q: %w", path, err)
		}

		c.durable[path] = data
	}

	return c, nil
}

func (c *Crash) Open(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	return &crashFile{f: f, c: c, path: path}, nil
}

func (c *Crash) Create(path string) (File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	return &crashFile{f: f, c: c, path: path}, nil
}

func (c *Crash) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return nil, err
	}

	return &crashFile{f: f, c: c, path: path}, nil
}

func (c *Crash) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

func (c *Crash) WriteFile(path string, data []byte, perm os.FileMode) error {
	return os.WriteFile(path, data, perm)
}

func (c *Crash) ReadDir(path string) ([]os.DirEntry, error) { return os.ReadDir(path) }

// MkdirAll is treated as immediately durable: directory creation isn't part
// of the crash scenarios this type exists to test (only file content and
// renames are), so it isn't modeled as reversible.
func (c *Crash) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (c *Crash) Stat(path string) (os.FileInfo, error) { return os.Stat(path) }

func (c *Crash) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}

	if os.IsNotExist(err) {
		return false, nil
	}

	return false, err
}

func (c *Crash) Remove(path string) error {
	err := os.Remove(path)
	if err != nil {
		return err
	}

	c.mu.Lock()
	delete(c.durable, path)
	c.mu.Unlock()

	return nil
}

func (c *Crash) RemoveAll(path string) error {
	err := os.RemoveAll(path)
	if err != nil {
		return err
	}

	c.mu.Lock()

	for p := range c.durable {
		if p == path || strings.HasPrefix(p, path+string(os.PathSeparator)) {
			delete(c.durable, p)
		}
	}

	c.mu.Unlock()

	return nil
}

// Rename performs a real rename immediately (so the working directory
// reflects it right away, same as a real filesystem before the next fsync)
// but does not confirm the new path as durable until the containing
// directory is itself synced via a [File] returned from Open/OpenFile on
// that directory. oldpath's durable entry, if any, is retired immediately:
// once the real rename has happened, the old name is gone for good even if
// a crash strikes before the new name is confirmed durable.
func (c *Crash) Rename(oldpath, newpath string) error {
	err := os.Rename(oldpath, newpath)
	if err != nil {
		return err
	}

	c.mu.Lock()
	data, hadDurable := c.durable[oldpath]
	delete(c.durable, oldpath)
	c.pending = append(c.pending, pendingRename{newPath: newpath, dir: filepath.Dir(newpath), data: data, hadDurable: hadDurable})
	c.mu.Unlock()

	return nil
}

var _ FS = (*Crash)(nil)

// crashFile wraps *os.File, recording the file's content as durable only
// when Sync succeeds, and confirming any pending renames into its
// directory when Sync succeeds on a directory handle.
type crashFile struct {
	f    *os.File
	c    *Crash
	path string
}

func (cf *crashFile) Read(p []byte) (int, error)  { return cf.f.Read(p) }
func (cf *crashFile) Write(p []byte) (int, error) { return cf.f.Write(p) }
func (cf *crashFile) Close() error                { return cf.f.Close() }

func (cf *crashFile) Seek(offset int64, whence int) (int64, error) {
	return cf.f.Seek(offset, whence)
}

func (cf *crashFile) Fd() uintptr                  { return cf.f.Fd() }
func (cf *crashFile) Stat() (os.FileInfo, error)   { return cf.f.Stat() }
func (cf *crashFile) Chmod(mode os.FileMode) error { return cf.f.Chmod(mode) }

func (cf *crashFile) Sync() error {
	err := cf.f.Sync()
	if err != nil {
		return err
	}

	info, err := cf.f.Stat()
	if err != nil {
		return err
	}

	cf.c.mu.Lock()
	defer cf.c.mu.Unlock()

	if info.IsDir() {
		cf.c.confirmPendingRenamesLocked(cf.path)

		return nil
	}

	data, err := os.ReadFile(cf.path)
	if err != nil {
		return err
	}

	cf.c.durable[cf.path] = data

	return nil
}

var _ File = (*crashFile)(nil)

// confirmPendingRenamesLocked moves durable content from a rename's old
// path to its new path for every pending rename into dir, now that dir
// itself has been synced. Callers must hold c.mu.
func (c *Crash) confirmPendingRenamesLocked(dir string) {
	remaining := c.pending[:0]

	for _, p := range c.pending {
		if p.dir != dir {
			remaining = append(remaining, p)

			continue
		}

		if p.hadDurable {
			c.durable[p.newPath] = p.data
		} else {
			delete(c.durable, p.newPath)
		}
	}

	c.pending = remaining
}

// SimulateCrash rewrites the working directory to match the last-known-
// durable snapshot: content never synced (or renamed into a directory that
// was never itself synced) is discarded; synced content is restored
// exactly. Any [File] handles obtained before SimulateCrash must not be
// used afterward.
func (c *Crash) SimulateCrash() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = nil

	entries, err := os.ReadDir(c.workDir)
	if err != nil {
		return fmt.Errorf("fs: simulate crash: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		path := filepath.Join(c.workDir, e.Name())

		data, ok := c.durable[path]
		if !ok {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("fs: simulate crash: remove %q: %w", path, err)
			}

			continue
		}

		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("fs: simulate crash: restore %q: %w", path, err)
		}
	}

	for path, data := range c.durable {
		if filepath.Dir(path) != c.workDir {
			continue // nested dirs aren't modeled; see the type doc comment
		}

		if _, statErr := os.Stat(path); statErr == nil {
			continue
		}

		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("fs: simulate crash: recreate %q: %w", path, err)
		}
	}

	return nil
}
