package db

import (
	"context"
	"testing"
)

// NewTestStore returns a migrated in-memory SQLite store that is closed when
// the test finishes.
func NewTestStore(t testing.TB) Store {
	t.Helper()

	store, err := Open(context.Background(), DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
