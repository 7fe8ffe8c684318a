// Package testutil provides shared fixtures for package tests: in-memory
// databases and controllable fakes for the text-generation client and store.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/budgetbuddy/internal/common"
	"github.com/Veraticus/budgetbuddy/internal/storage"
)

// FixedNow is the clock value used by SetupTestDB.
var FixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// SetupTestDB creates a migrated in-memory database that is closed when the test ends.
func SetupTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:",
		storage.WithClock(func() time.Time { return FixedNow }),
		storage.WithLogger(common.DiscardLogger()))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}
