// Package testutil provides shared test fixtures.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/settle/internal/model"
	"github.com/Veraticus/settle/internal/storage"
)

// SetupTestJournal creates a migrated in-memory journal that is closed
// when the test finishes.
func SetupTestJournal(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	journal, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test journal: %v", err)
	}

	if err := journal.Migrate(context.Background()); err != nil {
		_ = journal.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = journal.Close()
	})

	return journal
}

// SeedRuns records runs one hour apart starting at start and returns them.
func SeedRuns(t *testing.T, journal *storage.SQLiteStorage, start time.Time, ids ...string) []model.RunRecord {
	t.Helper()

	runs := make([]model.RunRecord, 0, len(ids))
	for i, id := range ids {
		started := start.Add(time.Duration(i) * time.Hour)
		run := model.RunRecord{
			ID:         id,
			Source:     "csv",
			StartedAt:  started,
			FinishedAt: started.Add(time.Second),
			Created:    1,
			Mutations: []model.MutationRecord{{
				Kind:      model.MutationCreate,
				ImportID:  "YNAB:-1000:" + started.Format(model.DateLayout) + ":1",
				PayeeName: "Seed",
				Amount:    -1000,
				Date:      started,
			}},
		}
		if err := journal.RecordRun(context.Background(), run); err != nil {
			t.Fatalf("failed to seed run %q: %v", id, err)
		}
		runs = append(runs, run)
	}
	return runs
}
