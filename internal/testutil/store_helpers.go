package testutil

import (
	"path/filepath"
	"testing"

	"github.com/mailstash/mailstash/internal/flatstore"
	"github.com/mailstash/mailstash/internal/store"
)

// NewTestStore creates a temporary archive database for testing. The
// database is closed and removed when the test completes.
func NewTestStore(t *testing.T) *store.Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})

	if err := st.InitSchema(); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return st
}

// NewTestFlatStore creates a flat store in a temporary directory.
func NewTestFlatStore(t *testing.T) *flatstore.Store {
	t.Helper()

	fs, err := flatstore.Open(filepath.Join(t.TempDir(), "emails"))
	if err != nil {
		t.Fatalf("open flat store: %v", err)
	}
	return fs
}
