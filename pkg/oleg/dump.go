package oleg

import (
	"bytes"
	"fmt"
	"io"

	"github.com/calvinalkan/oleg/pkg/fs"
)

// dumpSnapshot is a flat, point-in-time copy of every live record, taken
// before serialization starts. Capturing it up front is what lets
// BackgroundSave run on its own goroutine without observing mutations made
// after the snapshot was taken — the Go-idiomatic stand-in for the
// reference implementation's fork-based copy-on-write snapshot.
type dumpSnapshot struct {
	records []snapshotRecord
}

type snapshotRecord struct {
	key         []byte
	value       []byte
	contentType []byte
}

func snapshotIndex(idx *index) dumpSnapshot {
	snap := dumpSnapshot{records: make([]snapshotRecord, 0, idx.recordCount)}

	idx.forEach(func(r *record) {
		snap.records = append(snap.records, snapshotRecord{
			key:         cloneBytes(r.key),
			value:       cloneBytes(r.value),
			contentType: cloneBytes(r.contentType),
		})
	})

	return snap
}

// encodeDump serializes snap to the given dump format version. It never
// mutates the index (it doesn't even see one; it only sees the copy).
func encodeDump(snap dumpSnapshot, version DumpVersion) []byte {
	var buf bytes.Buffer

	buf.Write(encodeDumpHeader(version.tag(), uint64(len(snap.records))))

	for _, r := range snap.records {
		writeDumpKey(&buf, r.key)
		writeUint64(&buf, uint64(len(r.value)))
		buf.Write(r.value)

		if version == DumpV2 {
			writeUint32(&buf, uint32(len(r.contentType)))
			buf.Write(r.contentType)
		}
	}

	return buf.Bytes()
}

func writeDumpKey(buf *bytes.Buffer, key []byte) {
	padded := make([]byte, KeyMax)
	copy(padded, key)
	buf.Write(padded)
}

// save writes the current index to a temp file and atomically installs it
// over the live dump path. It never mutates idx.
func (s *Store) save() error {
	snap := snapshotIndex(s.idx)

	return s.installDump(snap)
}

func (s *Store) installDump(snap dumpSnapshot) error {
	data := encodeDump(snap, s.opts.DumpVersion)

	writer := fs.NewAtomicWriter(s.fsys)

	err := writer.WriteWithDefaults(s.dumpPath, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: save dump: %w", ErrIO, err)
	}

	return nil
}

// backgroundSave snapshots the index synchronously (so the snapshot always
// reflects the state at call time, never a later one) and serializes it on
// a separate goroutine. The returned channel receives exactly one value,
// success or failure, and is then closed — the goroutine-based analogue of
// a child process that always exits exactly once.
func (s *Store) backgroundSave() <-chan error {
	snap := snapshotIndex(s.idx)

	result := make(chan error, 1)

	go func() {
		defer close(result)
		result <- s.installDump(snap)
	}()

	return result
}

// loadedRecord is one record decoded from a dump file, content-type
// defaulted for v1 files per the documented format.
type loadedRecord struct {
	key         []byte
	value       []byte
	contentType []byte
}

// decodeDump validates the header and decodes exactly the number of
// records the header claims. A short read before that many records have
// been decoded is reported as ErrCorrupt.
func decodeDump(r io.Reader) ([]loadedRecord, error) {
	header := make([]byte, dumpHeaderSize)

	_, err := io.ReadFull(r, header)
	if err != nil {
		return nil, fmt.Errorf("%w: read dump header: %w", ErrCorrupt, err)
	}

	if string(header[0:4]) != dumpMagic {
		return nil, ErrBadMagic
	}

	version, recordCount := decodeDumpHeader(header)

	if version != dumpVersion1 && version != dumpVersion2 {
		return nil, ErrBadVersion
	}

	records := make([]loadedRecord, 0, recordCount)

	for i := uint64(0); i < recordCount; i++ {
		rec, err := decodeDumpRecord(r, version)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrCorrupt, i, err)
		}

		records = append(records, rec)
	}

	return records, nil
}

func decodeDumpRecord(r io.Reader, version string) (loadedRecord, error) {
	keyBuf := make([]byte, KeyMax)

	_, err := io.ReadFull(r, keyBuf)
	if err != nil {
		return loadedRecord{}, err
	}

	key := trimTrailingZeros(keyBuf)

	dataSize, err := readUint64(r)
	if err != nil {
		return loadedRecord{}, err
	}

	value := make([]byte, dataSize)

	_, err = io.ReadFull(r, value)
	if err != nil {
		return loadedRecord{}, err
	}

	contentType := []byte(DefaultContentType)

	if version == dumpVersion2 {
		ctSize, err := readUint32(r)
		if err != nil {
			return loadedRecord{}, err
		}

		ct := make([]byte, ctSize)

		_, err = io.ReadFull(r, ct)
		if err != nil {
			return loadedRecord{}, err
		}

		contentType = ct
	}

	return loadedRecord{key: key, value: value, contentType: contentType}, nil
}

// trimTrailingZeros strips the NUL padding a fixed-width key field carries
// on disk. A key that legitimately ends in a NUL byte is indistinguishable
// from padding under this format, matching the reference source.
func trimTrailingZeros(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}

	out := make([]byte, end)
	copy(out, b[:end])

	return out
}
