package oleg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/oleg/pkg/fs"
)

func openTestStore(t *testing.T, opts Options) *Store {
	t.Helper()

	if opts.Path == "" {
		opts.Path = t.TempDir()
	}

	if opts.Name == "" {
		opts.Name = "test"
	}

	store, err := Open(opts)
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestStore_PutThenGet_ReturnsValue(t *testing.T) {
	store := openTestStore(t, Options{})

	require.NoError(t, store.Put([]byte("k"), []byte("v")))

	value, ok := store.Get([]byte("k"))
	require.True(t, ok)
	assert.Equal(t, []byte("v"), value)
}

func TestStore_Get_MissingKey_ReportsAbsence(t *testing.T) {
	store := openTestStore(t, Options{})

	value, ok := store.Get([]byte("missing"))
	assert.False(t, ok)
	assert.Nil(t, value)
}

func TestStore_Put_DefaultsContentType(t *testing.T) {
	store := openTestStore(t, Options{})

	require.NoError(t, store.Put([]byte("k"), []byte("v")))

	ct, err := store.ContentType([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte(DefaultContentType), ct)
}

func TestStore_PutCT_PreservesExplicitContentType(t *testing.T) {
	store := openTestStore(t, Options{})

	require.NoError(t, store.PutCT([]byte("k"), []byte("v"), []byte("text/plain")))

	ct, err := store.ContentType([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("text/plain"), ct)
}

func TestStore_ContentType_MissingKey_ReturnsErrNotFound(t *testing.T) {
	store := openTestStore(t, Options{})

	_, err := store.ContentType([]byte("missing"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Delete_RemovesKey(t *testing.T) {
	store := openTestStore(t, Options{})

	require.NoError(t, store.Put([]byte("k"), []byte("v")))

	removed, err := store.Delete([]byte("k"))
	require.NoError(t, err)
	assert.True(t, removed)

	_, ok := store.Get([]byte("k"))
	assert.False(t, ok)
}

func TestStore_Delete_MissingKey_ReturnsFalseNoError(t *testing.T) {
	store := openTestStore(t, Options{})

	removed, err := store.Delete([]byte("missing"))
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestStore_Overwrite_UpdatesValueNotCount(t *testing.T) {
	store := openTestStore(t, Options{})

	require.NoError(t, store.Put([]byte("k"), []byte("v1")))
	require.NoError(t, store.Put([]byte("k"), []byte("v2")))

	assert.Equal(t, 1, store.Len())

	value, ok := store.Get([]byte("k"))
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), value)
}

func TestStore_Operations_AfterClose_ReturnErrClosed(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(Options{Path: dir, Name: "test"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	assert.ErrorIs(t, store.Put([]byte("k"), []byte("v")), ErrClosed)
	_, getErr := store.ContentType([]byte("k"))
	assert.ErrorIs(t, getErr, ErrClosed)
	_, delErr := store.Delete([]byte("k"))
	assert.ErrorIs(t, delErr, ErrClosed)
	assert.ErrorIs(t, store.Save(), ErrClosed)

	_, bgErr := store.BackgroundSave()
	assert.ErrorIs(t, bgErr, ErrClosed)

	value, ok := store.Get([]byte("k"))
	assert.False(t, ok)
	assert.Nil(t, value)
}

func TestStore_Close_IsIdempotent(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(Options{Path: dir, Name: "test"})
	require.NoError(t, err)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}

func TestStore_SaveThenLoad_RoundTripsBindings(t *testing.T) {
	dir := t.TempDir()

	source, err := Open(Options{Path: dir, Name: "source"})
	require.NoError(t, err)

	require.NoError(t, source.Put([]byte("a"), []byte("1")))
	require.NoError(t, source.PutCT([]byte("b"), []byte("2"), []byte("text/plain")))
	require.NoError(t, source.Save())
	require.NoError(t, source.Close())

	dest, err := Open(Options{Path: dir, Name: "dest"})
	require.NoError(t, err)

	defer func() { _ = dest.Close() }()

	require.NoError(t, dest.Load(filepath.Join(dir, "source.dump")))

	value, ok := dest.Get([]byte("a"))
	require.True(t, ok)
	assert.Equal(t, []byte("1"), value)

	value, ok = dest.Get([]byte("b"))
	require.True(t, ok)
	assert.Equal(t, []byte("2"), value)
}

func TestStore_BackgroundSave_CompletesAndIsLoadable(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(Options{Path: dir, Name: "test"})
	require.NoError(t, err)

	defer func() { _ = store.Close() }()

	require.NoError(t, store.Put([]byte("k"), []byte("v")))

	ch, err := store.BackgroundSave()
	require.NoError(t, err)

	err, ok := <-ch
	require.True(t, ok)
	require.NoError(t, err)

	_, stillOpen := <-ch
	assert.False(t, stillOpen)

	other, err := Open(Options{Path: dir, Name: "other"})
	require.NoError(t, err)

	defer func() { _ = other.Close() }()

	require.NoError(t, other.Load(filepath.Join(dir, "test.dump")))

	value, ok := other.Get([]byte("k"))
	require.True(t, ok)
	assert.Equal(t, []byte("v"), value)
}

func TestStore_AppendOnly_ReplaysAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(Options{Path: dir, Name: "test", Features: FeatureAppendOnly})
	require.NoError(t, err)

	require.NoError(t, store.Put([]byte("a"), []byte("1")))
	require.NoError(t, store.Put([]byte("b"), []byte("2")))
	require.NoError(t, store.PutCT([]byte("b"), []byte("2-updated"), nil))

	removed, err := store.Delete([]byte("a"))
	require.NoError(t, err)
	require.True(t, removed)

	require.NoError(t, store.Close())

	reopened, err := Open(Options{Path: dir, Name: "test", Features: FeatureAppendOnly})
	require.NoError(t, err)

	defer func() { _ = reopened.Close() }()

	_, ok := reopened.Get([]byte("a"))
	assert.False(t, ok)

	value, ok := reopened.Get([]byte("b"))
	require.True(t, ok)
	assert.Equal(t, []byte("2-updated"), value)

	assert.Equal(t, 1, reopened.Len())
}

func TestStore_WithoutAppendOnly_DoesNotPersistAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(Options{Path: dir, Name: "test"})
	require.NoError(t, err)
	require.NoError(t, store.Put([]byte("a"), []byte("1")))
	require.NoError(t, store.Close())

	reopened, err := Open(Options{Path: dir, Name: "test"})
	require.NoError(t, err)

	defer func() { _ = reopened.Close() }()

	_, ok := reopened.Get([]byte("a"))
	assert.False(t, ok)
}

func TestStore_Open_RejectsEmptyPathOrName(t *testing.T) {
	_, err := Open(Options{Path: "", Name: "test"})
	assert.ErrorIs(t, err, ErrIO)

	_, err = Open(Options{Path: t.TempDir(), Name: ""})
	assert.ErrorIs(t, err, ErrIO)
}

func TestStore_FeatureFlags_ToggleIndependently(t *testing.T) {
	store := openTestStore(t, Options{})

	assert.False(t, store.IsEnabled(FeatureAppendOnly))

	store.Enable(FeatureAppendOnly)
	assert.True(t, store.IsEnabled(FeatureAppendOnly))

	store.Disable(FeatureAppendOnly)
	assert.False(t, store.IsEnabled(FeatureAppendOnly))
}

func TestStore_Uptime_IsNonNegative(t *testing.T) {
	store := openTestStore(t, Options{})

	assert.GreaterOrEqual(t, store.Uptime().Nanoseconds(), int64(0))
}

func TestStore_CloseSave_PersistsBeforeClosing(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(Options{Path: dir, Name: "test"})
	require.NoError(t, err)

	require.NoError(t, store.Put([]byte("k"), []byte("v")))
	require.NoError(t, store.CloseSave())

	reopened, err := Open(Options{Path: dir, Name: "other"})
	require.NoError(t, err)

	defer func() { _ = reopened.Close() }()

	require.NoError(t, reopened.Load(filepath.Join(dir, "test.dump")))

	value, ok := reopened.Get([]byte("k"))
	require.True(t, ok)
	assert.Equal(t, []byte("v"), value)
}

// TestStore_Open_RemovesStaleDumpTempFile covers the crash-recovery step: a
// dump-save temp file left behind by a crash between AtomicWriter's write
// and its rename must not linger past the next Open. The leftover file is
// named using fs.TempFilePrefix directly, the same helper
// Store.cleanupStaleDumpTemps calls, so this test would fail loudly if that
// naming scheme ever drifted out from under AtomicWriter without Store's
// cleanup logic following it.
func TestStore_Open_RemovesStaleDumpTempFile(t *testing.T) {
	dir := t.TempDir()

	stalePath := filepath.Join(dir, fs.TempFilePrefix("test.dump")+"7")
	require.NoError(t, os.WriteFile(stalePath, []byte("half-written"), 0o644))

	store, err := Open(Options{Path: dir, Name: "test"})
	require.NoError(t, err)

	defer func() { _ = store.Close() }()

	_, statErr := os.Stat(stalePath)
	assert.True(t, os.IsNotExist(statErr))
}
