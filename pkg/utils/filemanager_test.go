package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestDiscoverTablesNewestFirst(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeFile(t, filepath.Join(dir, "old.csv"), "x", now.Add(-2*time.Hour))
	writeFile(t, filepath.Join(dir, "new.XLSX"), "x", now)
	writeFile(t, filepath.Join(dir, "notes.md"), "x", now)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.csv"), 0755))

	tables, err := DiscoverTables(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "new.XLSX"), filepath.Join(dir, "old.csv")}, tables)

	resolved, err := ResolveTablePath(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "new.XLSX"), resolved)
}

func TestResolveTablePath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "inv.csv")
	writeFile(t, file, "x", time.Now())

	got, err := ResolveTablePath(file)
	require.NoError(t, err)
	assert.Equal(t, file, got)

	_, err = ResolveTablePath(t.TempDir())
	assert.Error(t, err)

	_, err = ResolveTablePath(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestArchiveTableCopiesIntoDatedDir(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "inventory.csv")
	writeFile(t, src, "Stock #,Make,Condition\n", time.Now())

	fm := NewFileManager(filepath.Join(dir, "out"), filepath.Join(dir, "archive"))
	fm.now = func() time.Time { return time.Date(2024, 1, 15, 14, 30, 22, 0, time.UTC) }
	require.NoError(t, fm.EnsureDirectories())

	first, err := fm.ArchiveTable(src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "archive", "2024", "01", "15", "inventory.csv"), first)
	assert.True(t, FileExists(src))

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "Stock #,Make,Condition\n", string(data))

	second, err := fm.ArchiveTable(src)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.True(t, FileExists(second))
}

func TestArchiveTableDisabled(t *testing.T) {
	fm := NewFileManager(t.TempDir(), "")
	path, err := fm.ArchiveTable("whatever.csv")
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestGenerateOutputFileName(t *testing.T) {
	name := GenerateOutputFileName("{session}_{date}", ".csv", map[string]string{"session": "abc/def"})
	assert.True(t, strings.HasPrefix(name, "abc_def_"))
	assert.True(t, strings.HasSuffix(name, ".csv"))
	assert.NotContains(t, name, "{")

	kept := GenerateOutputFileName("export.XLSX", ".xlsx", nil)
	assert.Equal(t, "export.XLSX", kept)

	a := GenerateOutputFileName("{uuid}", "", nil)
	b := GenerateOutputFileName("{uuid}", "", nil)
	assert.NotEqual(t, a, b)
}

func TestCleanOldArchives(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "2023", "old.csv"), "x", time.Now().Add(-48*time.Hour))
	writeFile(t, filepath.Join(dir, "2024", "fresh.csv"), "x", time.Now())

	removed, err := CleanOldArchives(dir, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.False(t, FileExists(filepath.Join(dir, "2023", "old.csv")))
	assert.True(t, FileExists(filepath.Join(dir, "2024", "fresh.csv")))
}
