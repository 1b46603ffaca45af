// Package oleg provides an embeddable in-memory key-value store with
// durability.
//
// It maps bounded-length byte-string keys to opaque byte-string values,
// each tagged with a content type, and persists mutations so a process
// restart can reconstruct the last consistent state. Durability has two
// independent mechanisms that can be used together or separately:
//
//   - an append-only log (AOL) of individual mutations, replayed on Open
//   - point-in-time binary snapshots ("dumps"), installed atomically by
//     rename, either synchronously via Save or off to the side via
//     BackgroundSave
//
// # Basic usage
//
//	store, err := oleg.Open(oleg.Options{
//	    Path:     "/var/lib/myapp",
//	    Name:     "main",
//	    Features: oleg.FeatureAppendOnly,
//	})
//	if err != nil {
//	    // handle it
//	}
//	defer store.Close()
//
//	err = store.Put([]byte("user:42"), []byte(`{"name":"ada"}`))
//	value, ok := store.Get([]byte("user:42"))
//
// # Concurrency
//
// The store is single-threaded: Put, Get, Delete, and friends have no
// suspension points and assume exclusive access. An embedder that needs
// concurrent readers and a single writer must wrap every call in a
// sync.RWMutex. BackgroundSave is the one operation designed to run
// alongside mutations; see its doc comment.
//
// # Error handling
//
// I/O and allocation errors abort the current operation and propagate to
// the caller; the store remains usable afterward. Malformed AOL data
// encountered during replay stops replay at the last good record instead
// of failing Open outright. Open does not read the dump file; Load of a
// malformed or truncated dump returns an error and adds none of its
// records. See the package-level Err* sentinels.
package oleg
