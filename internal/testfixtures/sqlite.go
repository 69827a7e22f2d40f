package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/eventboard/internal/persistence/sqlite"
)

// NewSQLiteStore opens a migrated SQLite store backed by a temporary file.
// The store is closed automatically when the test finishes.
func NewSQLiteStore(tb testing.TB) *sqlite.Store {
	tb.Helper()

	dsn := filepath.Join(tb.TempDir(), "eventboard.db")
	store, err := sqlite.Open(context.Background(), dsn)
	if err != nil {
		tb.Fatalf("failed to open store: %v", err)
	}
	tb.Cleanup(func() {
		_ = store.Close()
	})

	if err := store.Migrate(context.Background()); err != nil {
		tb.Fatalf("failed to migrate store: %v", err)
	}
	return store
}
