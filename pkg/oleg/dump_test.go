package oleg

import (
	"bytes"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDump_V1_RoundTrip_DropsContentType(t *testing.T) {
	snap := dumpSnapshot{records: []snapshotRecord{
		{key: []byte("x"), value: []byte("hello"), contentType: []byte("text/plain")},
	}}

	encoded := encodeDump(snap, DumpV1)

	records, err := decodeDump(bytes.NewReader(encoded))
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, []byte("x"), records[0].key)
	assert.Equal(t, []byte("hello"), records[0].value)
	assert.Equal(t, []byte(DefaultContentType), records[0].contentType)
}

func TestDump_V2_RoundTrip_PreservesContentType(t *testing.T) {
	snap := dumpSnapshot{records: []snapshotRecord{
		{key: []byte("x"), value: []byte("hello"), contentType: []byte("text/plain")},
	}}

	encoded := encodeDump(snap, DumpV2)

	records, err := decodeDump(bytes.NewReader(encoded))
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, []byte("text/plain"), records[0].contentType)
}

func TestDump_BadMagic_IsRejected(t *testing.T) {
	snap := dumpSnapshot{}
	encoded := encodeDump(snap, DumpV1)
	encoded[0] = 'X'

	_, err := decodeDump(bytes.NewReader(encoded))
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestDump_BadVersion_IsRejected(t *testing.T) {
	snap := dumpSnapshot{}
	encoded := encodeDump(snap, DumpV1)
	copy(encoded[4:8], "9999")

	_, err := decodeDump(bytes.NewReader(encoded))
	assert.ErrorIs(t, err, ErrBadVersion)
}

func TestDump_ShortRead_IsCorrupt(t *testing.T) {
	snap := dumpSnapshot{records: []snapshotRecord{
		{key: []byte("x"), value: []byte("hello-world"), contentType: []byte("text/plain")},
	}}

	encoded := encodeDump(snap, DumpV1)
	truncated := encoded[:len(encoded)-3]

	_, err := decodeDump(bytes.NewReader(truncated))
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestDump_V2_RoundTrip_PreservesFullSnapshot(t *testing.T) {
	snap := dumpSnapshot{records: []snapshotRecord{
		{key: []byte("alpha"), value: []byte("1"), contentType: []byte("text/plain")},
		{key: []byte("beta"), value: []byte{}, contentType: []byte(DefaultContentType)},
		{key: []byte("gamma"), value: []byte("gamma-value"), contentType: []byte("application/json")},
	}}

	encoded := encodeDump(snap, DumpV2)

	records, err := decodeDump(bytes.NewReader(encoded))
	require.NoError(t, err)

	want := make([]loadedRecord, len(snap.records))
	for i, r := range snap.records {
		want[i] = loadedRecord{key: r.key, value: r.value, contentType: r.contentType}
	}

	byKey := func(a, b loadedRecord) bool { return bytes.Compare(a.key, b.key) < 0 }

	sort.Slice(want, func(i, j int) bool { return byKey(want[i], want[j]) })
	sort.Slice(records, func(i, j int) bool { return byKey(records[i], records[j]) })

	if diff := cmp.Diff(want, records, cmp.AllowUnexported(loadedRecord{}), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("decoded snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestDump_LongKey_IsNotConfusedWithPadding(t *testing.T) {
	key := make([]byte, KeyMax)
	for i := range key {
		key[i] = 'a'
	}

	snap := dumpSnapshot{records: []snapshotRecord{
		{key: key, value: []byte("v"), contentType: []byte(DefaultContentType)},
	}}

	encoded := encodeDump(snap, DumpV1)

	records, err := decodeDump(bytes.NewReader(encoded))
	require.NoError(t, err)
	assert.Equal(t, key, records[0].key)
}
