package oleg

import "errors"

// Sentinel errors returned by the store. Wrap with fmt.Errorf("...: %w", err)
// for context; callers should match with errors.Is.
var (
	// ErrIO reports a failure in an open/read/write/rename/remove syscall.
	ErrIO = errors.New("oleg: io error")

	// ErrAlloc reports a failure allocating storage for a record.
	ErrAlloc = errors.New("oleg: allocation error")

	// ErrBadMagic reports a dump file whose header magic does not match "OLEG".
	ErrBadMagic = errors.New("oleg: bad dump magic")

	// ErrBadVersion reports a dump file whose version field is not recognized.
	ErrBadVersion = errors.New("oleg: bad dump version")

	// ErrCorrupt reports a short read or malformed frame in a dump or AOL file.
	ErrCorrupt = errors.New("oleg: corrupt data")

	// ErrNotFound reports that ContentType was called for a key that is not
	// present. Get and Delete do not return this error; they report absence
	// via their boolean result instead.
	ErrNotFound = errors.New("oleg: key not found")

	// ErrInvariant reports that Close observed a freed-record count that did
	// not match the live record count.
	ErrInvariant = errors.New("oleg: invariant violation")

	// ErrClosed reports an operation attempted on a closed store.
	ErrClosed = errors.New("oleg: store is closed")
)
