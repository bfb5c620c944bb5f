// Package testutil provides shared test helpers for collection files and stores.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/jotter/internal/storage"
)

// TempCollection writes content to db.json in a fresh temp dir and returns its path.
func TempCollection(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// FileStore returns a file-backed store seeded with content.
func FileStore(t *testing.T, content string) (*storage.File, string) {
	t.Helper()
	path := TempCollection(t, content)
	store, err := storage.NewFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return store, path
}

// SQLiteStore returns an empty SQLite-backed store that is closed on cleanup.
func SQLiteStore(t *testing.T) *storage.SQLite {
	t.Helper()
	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "jotter-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// ReadFile returns the current content of path.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}
