package oleg

import "github.com/calvinalkan/oleg/pkg/fs"

// Feature is a bit in the store's feature bitset. APPEND_ONLY is the only
// flag defined by the reference spec.
type Feature uint32

const (
	// FeatureAppendOnly enables the AOL: every Put/Delete is appended as a
	// command record, and Open replays the log before serving requests.
	FeatureAppendOnly Feature = 1 << iota
)

// Options configures Open.
type Options struct {
	// Path is the directory the store's files live in. Created with mode
	// 0755 if it does not exist.
	Path string

	// Name is the base name for the store's files: <Path>/<Name>.dump and
	// <Path>/<Name>.aol.
	Name string

	// Features is the initial feature bitset. FeatureAppendOnly is the only
	// flag currently defined.
	Features Feature

	// InitialCapacity is the initial bucket count, rounded up to the next
	// power of two with a floor of DefaultSlotCapacity. Zero selects
	// DefaultSlotCapacity.
	InitialCapacity int

	// AOLSync controls fsync cadence for the append-only log. The zero
	// value is SyncNever(), matching the reference spec's documented
	// default of trusting the OS.
	AOLSync AOLSyncPolicy

	// DumpVersion selects the format Save/BackgroundSave write. Both
	// versions are always readable regardless of this setting. Zero value
	// is DumpV1.
	DumpVersion DumpVersion

	// fsys overrides the filesystem implementation; nil selects
	// fs.NewReal(). Exposed only to tests in this package via
	// withFilesystem.
	fsys fs.FS
}

// withFilesystem returns a copy of opts with an overridden filesystem,
// for use by this package's own tests (fault injection, crash simulation).
// It is unexported: embedders always get the real filesystem.
func (o Options) withFilesystem(fsys fs.FS) Options {
	o.fsys = fsys

	return o
}
