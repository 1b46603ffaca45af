package oleg

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/calvinalkan/oleg/pkg/fs"
)

// AOLSyncPolicy controls when the AOL writer calls Sync on the underlying
// file. The writer always issues the OS write syscall after every command
// (os.File has no internal buffering to flush); this only controls fsync
// cadence.
type AOLSyncPolicy struct {
	// every is the number of commands between fsyncs. 0 means never fsync
	// (the default: the OS page cache is trusted). 1 means fsync after
	// every command.
	every int
}

// SyncNever trusts the OS to eventually persist writes. This is the
// reference spec's documented default.
func SyncNever() AOLSyncPolicy { return AOLSyncPolicy{every: 0} }

// SyncEveryCommand fsyncs the AOL after every appended command.
func SyncEveryCommand() AOLSyncPolicy { return AOLSyncPolicy{every: 1} }

// SyncInterval fsyncs the AOL every n commands. n must be positive.
func SyncInterval(n int) AOLSyncPolicy {
	if n < 1 {
		n = 1
	}

	return AOLSyncPolicy{every: n}
}

// aol owns the append-only log file handle and the bookkeeping needed to
// apply its sync policy.
type aol struct {
	file          fs.File
	policy        AOLSyncPolicy
	sinceLastSync int
}

func openAOL(fsys fs.FS, path string) (*aol, error) {
	file, err := fsys.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: open aol %q: %w", ErrIO, path, err)
	}

	return &aol{file: file}, nil
}

func (a *aol) close() error {
	if a == nil || a.file == nil {
		return nil
	}

	err := a.file.Close()
	if err != nil {
		return fmt.Errorf("%w: close aol: %w", ErrIO, err)
	}

	return nil
}

// appendPut writes a PUT frame and applies the sync policy.
func (a *aol) appendPut(key, contentType, value []byte) error {
	return a.append(encodeAOLPut(key, contentType, value))
}

// appendDelete writes a DELETE frame and applies the sync policy.
func (a *aol) appendDelete(key []byte) error {
	return a.append(encodeAOLDelete(key))
}

func (a *aol) append(frame []byte) error {
	_, err := a.file.Write(frame)
	if err != nil {
		return fmt.Errorf("%w: append aol frame: %w", ErrIO, err)
	}

	if a.policy.every == 0 {
		return nil
	}

	a.sinceLastSync++
	if a.sinceLastSync < a.policy.every {
		return nil
	}

	a.sinceLastSync = 0

	err = a.file.Sync()
	if err != nil {
		return fmt.Errorf("%w: sync aol: %w", ErrIO, err)
	}

	return nil
}

// replayOp is one decoded AOL frame, passed to the caller-supplied apply
// function during replay.
type replayOp struct {
	isDelete    bool
	key         []byte
	contentType []byte
	value       []byte
}

// replayAOL reads every well-formed frame from the start of the file,
// stopping at EOF or at the first malformed/truncated/CRC-mismatched frame.
// It returns the decoded ops and the byte offset of the end of the last
// good frame, which the caller uses to truncate away any torn tail.
func replayAOL(file fs.File) ([]replayOp, int64, error) {
	_, err := file.Seek(0, io.SeekStart)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: seek aol: %w", ErrIO, err)
	}

	reader := &aolByteReader{r: file}

	var ops []replayOp

	var goodOffset int64

	for {
		op, frameLen, err := decodeAOLFrame(reader)
		if err != nil {
			if err == io.EOF {
				break
			}
			// Malformed or torn frame: stop here, keep what came before.
			break
		}

		ops = append(ops, op)
		goodOffset += frameLen
	}

	return ops, goodOffset, nil
}

// aolByteReader tracks how many bytes have been consumed from the
// underlying reader so decodeAOLFrame can report each frame's length. It
// only needs io.Reader, which keeps it trivially testable against a plain
// bytes.Reader without standing up a full fs.File.
type aolByteReader struct {
	r     io.Reader
	count int64
}

func (br *aolByteReader) readFull(n int) ([]byte, error) {
	buf := make([]byte, n)

	_, err := io.ReadFull(br.r, buf)
	if err != nil {
		return nil, err
	}

	br.count += int64(n)

	return buf, nil
}

// decodeAOLFrame decodes one frame from r, returning the op, the exact
// number of bytes the frame occupied, and an error. io.EOF means a clean
// end of log (nothing read yet for this frame); any other error means a
// torn or corrupt frame, and the caller should stop replay without
// treating it as fatal.
func decodeAOLFrame(br *aolByteReader) (replayOp, int64, error) {
	start := br.count

	cmdBuf, err := br.readFull(1)
	if err != nil {
		return replayOp{}, 0, io.EOF
	}

	hasher := crc32.New(crcTable)
	hasher.Write(cmdBuf)

	var op replayOp

	switch cmdBuf[0] {
	case aolCmdPut:
		key, err := readLenPrefixed32(br, hasher)
		if err != nil {
			return replayOp{}, 0, err
		}

		ct, err := readLenPrefixed32(br, hasher)
		if err != nil {
			return replayOp{}, 0, err
		}

		value, err := readLenPrefixed64(br, hasher)
		if err != nil {
			return replayOp{}, 0, err
		}

		op = replayOp{key: key, contentType: ct, value: value}
	case aolCmdDelete:
		key, err := readLenPrefixed32(br, hasher)
		if err != nil {
			return replayOp{}, 0, err
		}

		op = replayOp{isDelete: true, key: key}
	default:
		return replayOp{}, 0, ErrCorrupt
	}

	crcBuf, err := br.readFull(4)
	if err != nil {
		return replayOp{}, 0, ErrCorrupt
	}

	want := binary.LittleEndian.Uint32(crcBuf)
	if hasher.Sum32() != want {
		return replayOp{}, 0, ErrCorrupt
	}

	return op, br.count - start, nil
}

func readLenPrefixed32(br *aolByteReader, hasher io.Writer) ([]byte, error) {
	lenBuf, err := br.readFull(4)
	if err != nil {
		return nil, ErrCorrupt
	}

	hasher.Write(lenBuf)

	n := binary.LittleEndian.Uint32(lenBuf)

	data, err := br.readFull(int(n))
	if err != nil {
		return nil, ErrCorrupt
	}

	hasher.Write(data)

	return data, nil
}

func readLenPrefixed64(br *aolByteReader, hasher io.Writer) ([]byte, error) {
	lenBuf, err := br.readFull(8)
	if err != nil {
		return nil, ErrCorrupt
	}

	hasher.Write(lenBuf)

	n := binary.LittleEndian.Uint64(lenBuf)

	data, err := br.readFull(int(n))
	if err != nil {
		return nil, ErrCorrupt
	}

	hasher.Write(data)

	return data, nil
}

// truncator is implemented by *os.File (via fs.Real) and lets Open discard
// a torn tail left by a crash mid-append, so dead bytes don't accumulate
// before the next legitimately appended command.
type truncator interface {
	Truncate(size int64) error
}

// finalizeAOLPosition discards any torn tail past goodOffset (when the
// underlying file supports truncation) and seeks to goodOffset so the next
// append continues exactly where the last good frame left off.
func finalizeAOLPosition(file fs.File, goodOffset int64) error {
	if t, ok := file.(truncator); ok {
		err := t.Truncate(goodOffset)
		if err != nil {
			return fmt.Errorf("%w: truncate aol tail: %w", ErrIO, err)
		}
	}

	_, err := file.Seek(goodOffset, io.SeekStart)
	if err != nil {
		return fmt.Errorf("%w: seek aol after replay: %w", ErrIO, err)
	}

	return nil
}
