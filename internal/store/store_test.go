package store

import (
	"path/filepath"
	"testing"
)

// newTestStore opens a fresh on-disk SQLite database per test, mirroring
// what Open does for the real process but scoped to t.TempDir() so tests
// never share state.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return New(db)
}
