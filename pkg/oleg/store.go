package oleg

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/calvinalkan/oleg/pkg/fs"
)

// state is the store's lifecycle state. AOL writes are suppressed in
// stateStartup so replay does not re-log itself.
type state int

const (
	stateStartup state = iota
	stateOkay
)

// Store is the embeddable key-value store façade. It wires the in-memory
// index together with the optional AOL and the dump file paths. A Store
// must be created with Open and released with Close or CloseSave.
//
// Store is single-threaded: see the package doc for the concurrency
// contract.
type Store struct {
	opts Options
	fsys fs.FS

	idx      *index
	features Feature
	state    state

	dumpPath string
	aolPath  string
	aol      *aol

	createdAt time.Time

	closed bool
}

// Open creates or opens a store directory. It ensures the directory
// exists, cleans up any dump-tmp file left behind by a crash mid-Save,
// replays the AOL if FeatureAppendOnly is set and a log exists, and
// transitions to the ready state before returning.
func Open(opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("%w: open: path is empty", ErrIO)
	}

	if opts.Name == "" {
		return nil, fmt.Errorf("%w: open: name is empty", ErrIO)
	}

	fsys := opts.fsys
	if fsys == nil {
		fsys = fs.NewReal()
	}

	err := fsys.MkdirAll(opts.Path, 0o755)
	if err != nil {
		return nil, fmt.Errorf("%w: open: create directory: %w", ErrIO, err)
	}

	dumpPath := filepath.Join(opts.Path, opts.Name+".dump")
	aolPath := filepath.Join(opts.Path, opts.Name+".aol")

	err = cleanupStaleDumpTemps(fsys, opts.Path, opts.Name)
	if err != nil {
		return nil, err
	}

	store := &Store{
		opts:      opts,
		fsys:      fsys,
		idx:       newIndex(opts.InitialCapacity, time.Now().Unix()),
		features:  opts.Features,
		state:     stateStartup,
		dumpPath:  dumpPath,
		aolPath:   aolPath,
		createdAt: time.Now(),
	}

	if store.IsEnabled(FeatureAppendOnly) {
		err := store.openAndReplayAOL()
		if err != nil {
			return nil, err
		}
	}

	store.state = stateOkay

	return store, nil
}

// cleanupStaleDumpTemps removes any leftover AtomicWriter temp file for the
// dump ("<name>.dump") left behind by a prior crash mid-Save. The prefix is
// derived from fs.TempFilePrefix so the naming scheme can only ever drift
// in one place.
func cleanupStaleDumpTemps(fsys fs.FS, dir, name string) error {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("%w: open: scan stale temp files: %w", ErrIO, err)
	}

	prefix := fs.TempFilePrefix(name + ".dump")

	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), prefix) {
			continue
		}

		removeErr := fsys.Remove(filepath.Join(dir, e.Name()))
		if removeErr != nil && !os.IsNotExist(removeErr) {
			return fmt.Errorf("%w: open: remove stale temp file %q: %w", ErrIO, e.Name(), removeErr)
		}
	}

	return nil
}

func (s *Store) openAndReplayAOL() error {
	a, err := openAOL(s.fsys, s.aolPath)
	if err != nil {
		return err
	}

	a.policy = s.opts.AOLSync
	s.aol = a

	ops, goodOffset, err := replayAOL(a.file)
	if err != nil {
		_ = a.close()

		return err
	}

	for _, op := range ops {
		if op.isDelete {
			s.idx.delete(op.key)
		} else {
			s.idx.put(op.key, op.value, op.contentType)
		}
	}

	err = finalizeAOLPosition(a.file, goodOffset)
	if err != nil {
		_ = a.close()

		return err
	}

	return nil
}

// Close releases all records and closes the AOL file handle. It returns
// ErrInvariant if the number of records freed does not match the live
// record count — that can only happen from a bug in this package, but the
// reference spec calls for the check, so it stays.
func (s *Store) Close() error {
	if s == nil || s.closed {
		return nil
	}

	s.closed = true

	freed := 0
	s.idx.forEach(func(*record) { freed++ })

	want := s.idx.recordCount
	s.idx.buckets = nil
	s.idx.recordCount = 0

	err := s.aol.close()

	if freed != want {
		invErr := fmt.Errorf("%w: close: freed %d records, want %d", ErrInvariant, freed, want)
		if err != nil {
			return fmt.Errorf("%w; %w", invErr, err)
		}

		return invErr
	}

	return err
}

// CloseSave saves the current state and then closes the store.
func (s *Store) CloseSave() error {
	saveErr := s.Save()
	closeErr := s.Close()

	if saveErr != nil {
		return saveErr
	}

	return closeErr
}

// Put inserts or updates key with value, using DefaultContentType.
func (s *Store) Put(key, value []byte) error {
	return s.PutCT(key, value, nil)
}

// PutCT inserts or updates key with value and an explicit content type. An
// empty content type is replaced with DefaultContentType.
func (s *Store) PutCT(key, value, contentType []byte) error {
	if s.closed {
		return ErrClosed
	}

	s.idx.put(key, value, contentType)

	return s.logMutation(func() error {
		return s.aol.appendPut(truncateKey(key), normalizeContentType(contentType), value)
	})
}

// Get retrieves the value stored for key. The boolean result reports
// whether the key was present.
func (s *Store) Get(key []byte) ([]byte, bool) {
	if s.closed {
		return nil, false
	}

	r := s.idx.get(key)
	if r == nil {
		return nil, false
	}

	return cloneBytes(r.value), true
}

// ContentType retrieves the content type stored for key.
func (s *Store) ContentType(key []byte) ([]byte, error) {
	if s.closed {
		return nil, ErrClosed
	}

	r := s.idx.get(key)
	if r == nil {
		return nil, ErrNotFound
	}

	return cloneBytes(r.contentType), nil
}

// Delete removes key. It reports whether the key was present.
func (s *Store) Delete(key []byte) (bool, error) {
	if s.closed {
		return false, ErrClosed
	}

	removed := s.idx.delete(key)
	if !removed {
		return false, nil
	}

	err := s.logMutation(func() error {
		return s.aol.appendDelete(truncateKey(key))
	})

	return true, err
}

// SetExpire is a stub that preserves the reference spec's signature. It
// does not record anything and always succeeds.
func (s *Store) SetExpire(_ []byte, _ time.Time) error {
	return nil
}

// logMutation appends to the AOL if FeatureAppendOnly is enabled and the
// store is past startup replay — replay must never re-log itself.
func (s *Store) logMutation(appendFn func() error) error {
	if s.state == stateStartup {
		return nil
	}

	if !s.IsEnabled(FeatureAppendOnly) || s.aol == nil {
		return nil
	}

	return appendFn()
}

// Save serializes the current index to the dump file and installs it
// atomically by rename. It does not mutate the index.
func (s *Store) Save() error {
	if s.closed {
		return ErrClosed
	}

	return s.save()
}

// BackgroundSave snapshots the index synchronously and serializes it on a
// separate goroutine, so the caller's goroutine can keep mutating the
// store while the snapshot is written to disk. The returned channel
// receives exactly one value (nil on success) and is then closed.
func (s *Store) BackgroundSave() (<-chan error, error) {
	if s.closed {
		return nil, ErrClosed
	}

	return s.backgroundSave(), nil
}

// Load adds the bindings in a dump file to the store. Existing bindings
// are not cleared first; Load calls Put for every
// decoded record, so call it against a freshly Opened, empty store unless
// overlaying is intended.
func (s *Store) Load(filename string) error {
	if s.closed {
		return ErrClosed
	}

	file, err := s.fsys.Open(filename)
	if err != nil {
		return fmt.Errorf("%w: load: %w", ErrIO, err)
	}

	defer func() { _ = file.Close() }()

	records, err := decodeDump(file)
	if err != nil {
		return err
	}

	for _, r := range records {
		s.idx.put(r.key, r.value, r.contentType)
	}

	return nil
}

// Uptime returns the time elapsed since Open returned this store.
func (s *Store) Uptime() time.Duration {
	return time.Since(s.createdAt)
}

// Len returns the number of live records.
func (s *Store) Len() int {
	return s.idx.recordCount
}

// Enable turns on a feature flag.
func (s *Store) Enable(f Feature) {
	s.features |= f
}

// Disable turns off a feature flag.
func (s *Store) Disable(f Feature) {
	s.features &^= f
}

// IsEnabled reports whether a feature flag is set.
func (s *Store) IsEnabled(f Feature) bool {
	return s.features&f != 0
}
