package oleg

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
)

// Dump file format.
const (
	dumpMagic = "OLEG"

	// dumpVersion1 persists (key, data_size, data) per record; content type
	// is not stored and defaults to DefaultContentType on Load.
	dumpVersion1 = "0001"

	// dumpVersion2 additionally persists (ctype_size, ctype) per record.
	dumpVersion2 = "0002"

	dumpHeaderSize = 4 + 4 + 8 // magic + version + rcrd_cnt
)

// DumpVersion selects which on-disk dump format Save/BackgroundSave write.
// Both versions are always readable by Load regardless of this setting.
type DumpVersion int

const (
	// DumpV1 is the reference format: no content type persisted.
	DumpV1 DumpVersion = iota
	// DumpV2 additionally persists content type.
	DumpV2
)

func (v DumpVersion) tag() string {
	if v == DumpV2 {
		return dumpVersion2
	}

	return dumpVersion1
}

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// encodeDumpHeader writes the 16-byte dump header: 4-byte magic, 4-ASCII-
// digit version, and an 8-byte little-endian record count.
func encodeDumpHeader(version string, recordCount uint64) []byte {
	buf := make([]byte, dumpHeaderSize)
	copy(buf[0:4], dumpMagic)
	copy(buf[4:8], version)
	binary.LittleEndian.PutUint64(buf[8:16], recordCount)

	return buf
}

func decodeDumpHeader(buf []byte) (version string, recordCount uint64) {
	version = string(buf[4:8])
	recordCount = binary.LittleEndian.Uint64(buf[8:16])

	return version, recordCount
}

// AOL frame format.
const (
	aolCmdPut    byte = 'P'
	aolCmdDelete byte = 'D'
)

// encodeAOLPut serializes a PUT frame: cmd, key, content type, value, and a
// trailing CRC32-C covering every byte that precedes it. The CRC is what
// lets the reader detect a torn write and stop cleanly at the last good
// frame instead of misinterpreting partial data as a new command.
func encodeAOLPut(key, contentType, value []byte) []byte {
	size := 1 + 4 + len(key) + 4 + len(contentType) + 8 + len(value) + 4
	buf := make([]byte, 0, size)

	buf = append(buf, aolCmdPut)
	buf = appendUint32Prefixed(buf, key)
	buf = appendUint32Prefixed(buf, contentType)
	buf = appendUint64Prefixed(buf, value)

	crc := crc32.Checksum(buf, crcTable)
	buf = binary.LittleEndian.AppendUint32(buf, crc)

	return buf
}

// encodeAOLDelete serializes a DELETE frame: cmd, key, and a trailing
// CRC32-C.
func encodeAOLDelete(key []byte) []byte {
	size := 1 + 4 + len(key) + 4
	buf := make([]byte, 0, size)

	buf = append(buf, aolCmdDelete)
	buf = appendUint32Prefixed(buf, key)

	crc := crc32.Checksum(buf, crcTable)
	buf = binary.LittleEndian.AppendUint32(buf, crc)

	return buf
}

func appendUint32Prefixed(buf, data []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(data)))
	buf = append(buf, data...)

	return buf
}

func appendUint64Prefixed(buf, data []byte) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(data)))
	buf = append(buf, data...)

	return buf
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}

func readUint32(r io.Reader) (uint32, error) {
	var tmp [4]byte

	_, err := io.ReadFull(r, tmp[:])
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(tmp[:]), nil
}

func readUint64(r io.Reader) (uint64, error) {
	var tmp [8]byte

	_, err := io.ReadFull(r, tmp[:])
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint64(tmp[:]), nil
}
