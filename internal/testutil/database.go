// Package testutil provides shared helpers for package tests, chiefly an
// in-memory database with migrations applied and cleanup registered.
package testutil

import (
	"context"
	"testing"

	"github.com/taxpadi/taxpadi/internal/model"
	"github.com/taxpadi/taxpadi/internal/service"
	"github.com/taxpadi/taxpadi/internal/storage"
)

// TestDB wraps an in-memory store for tests.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
}

// SetupTestDB creates a migrated in-memory SQLite store. Cleanup is
// registered on the test automatically.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// SeedPattern upserts a pattern repeatedly until it reaches the requested
// occurrence and correct counts, then returns the stored row.
func (db *TestDB) SeedPattern(tenantID, patternText, category string, occurrences, correct int) *model.BusinessPattern {
	db.t.Helper()

	ctx := context.Background()
	for i := 0; i < occurrences; i++ {
		confirmed := i < correct
		if err := db.Storage.UpsertPatternOnCorrection(ctx, tenantID, patternText, category, confirmed); err != nil {
			db.t.Fatalf("failed to seed pattern %q: %v", patternText, err)
		}
	}

	stored, err := db.Storage.GetPatternByText(ctx, tenantID, patternText)
	if err != nil {
		db.t.Fatalf("failed to read back pattern %q: %v", patternText, err)
	}
	return stored
}

// SeedFeedback saves a feedback record and returns it with its ID assigned.
func (db *TestDB) SeedFeedback(record *model.FeedbackRecord) *model.FeedbackRecord {
	db.t.Helper()

	if err := db.Storage.SaveFeedback(context.Background(), record); err != nil {
		db.t.Fatalf("failed to seed feedback: %v", err)
	}
	return record
}
