package fs

import (
	"errors"
	"math/rand/v2"
	"os"
	"sync"
)

// ErrChaosInjected marks a failure manufactured by [Chaos] rather than one
// that came from the underlying filesystem. Use [errors.Is] to detect it.
var ErrChaosInjected = errors.New("fs: chaos-injected failure")

// ChaosConfig controls fault-injection probabilities for [Chaos]. Each rate
// is a float64 in [0,1]; the zero value disables all injection. Rates of
// exactly 0 or 1 are evaluated deterministically (no RNG call), which is
// what makes "always fails"/"never fails" tests reliable.
type ChaosConfig struct {
	OpenFailRate     float64
	WriteFailRate    float64
	SyncFailRate     float64
	RenameFailRate   float64
	ReadFailRate     float64
	MkdirAllFailRate float64
}

// Chaos wraps an [FS] and randomly injects failures according to its
// ChaosConfig, for exercising the error-handling paths of the dump writer
// and AOL writer (temp file cleanup on a failed Sync, a failed Rename
// leaving the previous dump untouched) without needing a real flaky disk.
type Chaos struct {
	fs  FS
	cfg ChaosConfig
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewChaos wraps fs with fault injection according to cfg. The RNG is seeded
// deterministically so repeated runs of the same test behave the same way
// for any rate strictly between 0 and 1.
func NewChaos(fsys FS, cfg ChaosConfig) *Chaos {
	return &Chaos{fs: fsys, cfg: cfg, rnd: rand.New(rand.NewPCG(1, 2))}
}

func (c *Chaos) fail(rate float64) bool {
	if rate <= 0 {
		return false
	}

	if rate >= 1 {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.rnd.Float64() < rate
}

func (c *Chaos) Open(path string) (File, error) {
	if c.fail(c.cfg.OpenFailRate) {
		return nil, &os.PathError{Op: "open", Path: path, Err: ErrChaosInjected}
	}

	f, err := c.fs.Open(path)
	if err != nil {
		return nil, err
	}

	return &chaosFile{f: f, c: c, path: path}, nil
}

func (c *Chaos) Create(path string) (File, error) {
	if c.fail(c.cfg.OpenFailRate) {
		return nil, &os.PathError{Op: "create", Path: path, Err: ErrChaosInjected}
	}

	f, err := c.fs.Create(path)
	if err != nil {
		return nil, err
	}

	return &chaosFile{f: f, c: c, path: path}, nil
}

func (c *Chaos) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	if c.fail(c.cfg.OpenFailRate) {
		return nil, &os.PathError{Op: "openfile", Path: path, Err: ErrChaosInjected}
	}

	f, err := c.fs.OpenFile(path, flag, perm)
	if err != nil {
		return nil, err
	}

	return &chaosFile{f: f, c: c, path: path}, nil
}

func (c *Chaos) ReadFile(path string) ([]byte, error) {
	if c.fail(c.cfg.ReadFailRate) {
		return nil, &os.PathError{Op: "readfile", Path: path, Err: ErrChaosInjected}
	}

	return c.fs.ReadFile(path)
}

func (c *Chaos) WriteFile(path string, data []byte, perm os.FileMode) error {
	if c.fail(c.cfg.WriteFailRate) {
		return &os.PathError{Op: "writefile", Path: path, Err: ErrChaosInjected}
	}

	return c.fs.WriteFile(path, data, perm)
}

func (c *Chaos) ReadDir(path string) ([]os.DirEntry, error) { return c.fs.ReadDir(path) }

func (c *Chaos) MkdirAll(path string, perm os.FileMode) error {
	if c.fail(c.cfg.MkdirAllFailRate) {
		return &os.PathError{Op: "mkdirall", Path: path, Err: ErrChaosInjected}
	}

	return c.fs.MkdirAll(path, perm)
}

func (c *Chaos) Stat(path string) (os.FileInfo, error) { return c.fs.Stat(path) }

func (c *Chaos) Exists(path string) (bool, error) { return c.fs.Exists(path) }

func (c *Chaos) Remove(path string) error { return c.fs.Remove(path) }

func (c *Chaos) RemoveAll(path string) error { return c.fs.RemoveAll(path) }

func (c *Chaos) Rename(oldpath, newpath string) error {
	if c.fail(c.cfg.RenameFailRate) {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: ErrChaosInjected}
	}

	return c.fs.Rename(oldpath, newpath)
}

var _ FS = (*Chaos)(nil)

// chaosFile wraps an open [File], injecting Write/Sync failures per the
// owning Chaos's config.
type chaosFile struct {
	f    File
	c    *Chaos
	path string
}

func (cf *chaosFile) Read(p []byte) (int, error) { return cf.f.Read(p) }

func (cf *chaosFile) Write(p []byte) (int, error) {
	if cf.c.fail(cf.c.cfg.WriteFailRate) {
		return 0, &os.PathError{Op: "write", Path: cf.path, Err: ErrChaosInjected}
	}

	return cf.f.Write(p)
}

func (cf *chaosFile) Close() error { return cf.f.Close() }

func (cf *chaosFile) Seek(offset int64, whence int) (int64, error) {
	return cf.f.Seek(offset, whence)
}

func (cf *chaosFile) Fd() uintptr { return cf.f.Fd() }

func (cf *chaosFile) Stat() (os.FileInfo, error) { return cf.f.Stat() }

func (cf *chaosFile) Sync() error {
	if cf.c.fail(cf.c.cfg.SyncFailRate) {
		return &os.PathError{Op: "sync", Path: cf.path, Err: ErrChaosInjected}
	}

	return cf.f.Sync()
}

func (cf *chaosFile) Chmod(mode os.FileMode) error { return cf.f.Chmod(mode) }

var _ File = (*chaosFile)(nil)
