package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/stock-scan/internal/config"
	"github.com/ginjaninja78/stock-scan/internal/inventory"
	"github.com/ginjaninja78/stock-scan/internal/session"
)

func sampleState() session.State {
	st := session.Empty()
	st.SessionID = "0b7f"
	st.Headers = []string{"Stock #", "Make", "Condition"}
	st.Columns = inventory.Columns{Identifier: "Stock #", Category: "Make", Status: "Condition"}
	st.Records = []inventory.Record{{"Stock #": "A1", "Make": "Ford", "Condition": "New"}}
	st.ScannedCodes = []string{"a1"}
	st.CategoryFilter = "Ford"
	st.LastScan = "Z9"
	return st
}

func assertSameState(t *testing.T, want, got session.State) {
	t.Helper()
	assert.Equal(t, want.SessionID, got.SessionID)
	assert.Equal(t, want.Headers, got.Headers)
	assert.Equal(t, want.Columns, got.Columns)
	assert.Equal(t, want.Records, got.Records)
	assert.Equal(t, want.ScannedCodes, got.ScannedCodes)
	assert.Equal(t, want.CategoryFilter, got.CategoryFilter)
	assert.Equal(t, want.LastScan, got.LastScan)
}

// =============================================================================
// FILE STORE
// =============================================================================

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "state.json"), "")

	st, err := fs.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, st.IsEmpty())
	assert.Empty(t, st.CategoryFilter)
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := NewFileStore(filepath.Join(t.TempDir(), "nested", "state.json"), config.DefaultNamespace)

	want := sampleState()
	require.NoError(t, fs.Save(ctx, want))

	got, err := NewFileStore(fs.Path(), config.DefaultNamespace).Load(ctx)
	require.NoError(t, err)
	assertSameState(t, want, got)
}

func TestFileStoreCorruptDocumentIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	st, err := NewFileStore(path, "").Load(context.Background())
	assert.ErrorIs(t, err, session.ErrStorageCorrupt)
	assert.True(t, st.IsEmpty())
	assert.Empty(t, st.LastScan)
}

func TestFileStoreCorruptNamespaceIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	doc := `{"stockscan_state_v1": {"records": "oops"}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	st, err := NewFileStore(path, "").Load(context.Background())
	assert.ErrorIs(t, err, session.ErrStorageCorrupt)
	assert.True(t, st.IsEmpty())
}

func TestFileStoreSaveReplacesCorruptDocument(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))

	fs := NewFileStore(path, "")
	require.NoError(t, fs.Save(ctx, sampleState()))

	got, err := fs.Load(ctx)
	require.NoError(t, err)
	assertSameState(t, sampleState(), got)
}

func TestFileStoreNamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")

	a := NewFileStore(path, "a")
	b := NewFileStore(path, "b")
	require.NoError(t, a.Save(ctx, sampleState()))

	other := session.Empty()
	other.LastScan = "B-ONLY"
	require.NoError(t, b.Save(ctx, other))

	gotA, err := a.Load(ctx)
	require.NoError(t, err)
	assertSameState(t, sampleState(), gotA)

	gotB, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "B-ONLY", gotB.LastScan)

	require.NoError(t, b.Clear(ctx))
	gotB, err = b.Load(ctx)
	require.NoError(t, err)
	assert.True(t, gotB.IsEmpty())

	gotA, err = a.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a1", gotA.ScannedCodes[0])
}

// =============================================================================
// SQLITE STORE
// =============================================================================

func openTestSQLite(t *testing.T, namespace string) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "state.db"), namespace)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t, "")

	st, err := s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, st.IsEmpty())

	require.NoError(t, s.Save(ctx, sampleState()))
	updated := sampleState()
	updated.ScannedCodes = append(updated.ScannedCodes, "b2")
	require.NoError(t, s.Save(ctx, updated))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assertSameState(t, updated, got)

	require.NoError(t, s.Clear(ctx))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

func TestSQLiteStoreCorruptPayloadIsEmpty(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t, "")

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO snapshots (namespace, payload) VALUES (?, ?)", config.DefaultNamespace, "{]")
	require.NoError(t, err)

	st, err := s.Load(ctx)
	assert.ErrorIs(t, err, session.ErrStorageCorrupt)
	assert.True(t, st.IsEmpty())
}

func TestNewSelectsBackend(t *testing.T) {
	dir := t.TempDir()

	fileStore, err := New(config.StorageSettings{Backend: config.BackendFile, Path: filepath.Join(dir, "s.json")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, fileStore)
	assert.Equal(t, filepath.Join(dir, "s.json"), fileStore.Path())

	sqliteStore, err := New(config.StorageSettings{Backend: config.BackendSQLite, Path: filepath.Join(dir, "s.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, sqliteStore)
	assert.Equal(t, filepath.Join(dir, "s.db"), sqliteStore.Path())
	sqliteStore.(*SQLiteStore).Close()

	_, err = New(config.StorageSettings{Backend: "mongo"})
	assert.Error(t, err)
}
