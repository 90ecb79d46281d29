package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/reportctl/internal/models"
	"github.com/desertthunder/reportctl/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.OpenLedger(shared.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newRun(t *testing.T, start, end string) *models.JobRun {
	t.Helper()
	r, err := models.ParseDateRange(start, end)
	if err != nil {
		t.Fatalf("failed to parse range: %v", err)
	}
	return models.NewJobRun(r)
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(ctx, db, "job_runs")
		if err != nil {
			t.Fatalf("failed to get sequence: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	t.Run("Unknown Table", func(t *testing.T) {
		if _, err := NextSequence(ctx, db, "missing"); err == nil {
			t.Error("expected error for missing sequence table")
		}
	})
}

func TestJobRunRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewJobRunRepository(db)
		run := newRun(t, "2024-01-01", "2024-01-31")

		if err := repo.Create(ctx, run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
		if run.Sequence != 1 {
			t.Errorf("expected sequence 1, got %d", run.Sequence)
		}

		got, err := repo.Get(ctx, run.ID)
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Range.String() != "2024-01-01..2024-01-31" {
			t.Errorf("unexpected range %s", got.Range)
		}
		if got.Outcome != models.OutcomeNone {
			t.Errorf("expected pending outcome, got %s", got.Outcome)
		}
		if got.FinishedAt != nil {
			t.Error("expected no finish time")
		}
	})

	t.Run("Create Rejects Invalid Range", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewJobRunRepository(db)

		err := repo.Create(ctx, &models.JobRun{ID: "x"})
		if !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("Finish", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewJobRunRepository(db)
		run := newRun(t, "2024-01-01", "2024-01-31")

		if err := repo.Create(ctx, run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		run.Finish(models.OutcomeComplete, "r1.csv", nil)
		if err := repo.Finish(ctx, run); err != nil {
			t.Fatalf("failed to finish run: %v", err)
		}

		got, err := repo.Get(ctx, run.ID)
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Outcome != models.OutcomeComplete {
			t.Errorf("expected complete, got %s", got.Outcome)
		}
		if got.ReportFile != "r1.csv" {
			t.Errorf("expected r1.csv, got %s", got.ReportFile)
		}
		if got.FinishedAt == nil {
			t.Error("expected finish time to be set")
		}
	})

	t.Run("Finish Records Errors", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewJobRunRepository(db)
		run := newRun(t, "2024-03-01", "2024-03-02")

		if err := repo.Create(ctx, run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		run.Finish(models.OutcomeErrored, "", shared.ErrTransport)
		if err := repo.Finish(ctx, run); err != nil {
			t.Fatalf("failed to finish run: %v", err)
		}

		got, _ := repo.Get(ctx, run.ID)
		if got.Outcome != models.OutcomeErrored || got.Error != shared.ErrTransport.Error() {
			t.Errorf("unexpected run %+v", got)
		}
	})

	t.Run("Finish Unknown Run", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewJobRunRepository(db)
		run := newRun(t, "2024-01-01", "2024-01-31")
		run.Finish(models.OutcomeSuperseded, "", nil)

		if err := repo.Finish(ctx, run); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("Get Missing", func(t *testing.T) {
		db := setupTestDB(t)
		if _, err := NewJobRunRepository(db).Get(ctx, "nope"); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("Recent", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewJobRunRepository(db)

		var ids []string
		for _, start := range []string{"2024-01-01", "2024-02-01", "2024-03-01"} {
			run := newRun(t, start, start)
			if err := repo.Create(ctx, run); err != nil {
				t.Fatalf("failed to create run: %v", err)
			}
			ids = append(ids, run.ID)
		}

		runs, err := repo.Recent(ctx, 2)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(runs))
		}
		if runs[0].ID != ids[2] || runs[1].ID != ids[1] {
			t.Error("expected newest runs first")
		}

		all, err := repo.Recent(ctx, 0)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(all) != 3 {
			t.Errorf("expected 3 runs, got %d", len(all))
		}
	})

	t.Run("Prune", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewJobRunRepository(db)

		old := newRun(t, "2023-01-01", "2023-01-31")
		old.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
		old.Finish(models.OutcomeComplete, "old.csv", nil)

		pending := newRun(t, "2023-02-01", "2023-02-28")
		pending.CreatedAt = old.CreatedAt

		fresh := newRun(t, "2024-01-01", "2024-01-31")
		fresh.Finish(models.OutcomeComplete, "new.csv", nil)

		for _, run := range []*models.JobRun{old, pending, fresh} {
			if err := repo.Create(ctx, run); err != nil {
				t.Fatalf("failed to create run: %v", err)
			}
		}

		n, err := repo.Prune(ctx, time.Now().UTC().Add(-24*time.Hour))
		if err != nil {
			t.Fatalf("failed to prune: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 pruned run, got %d", n)
		}
		if _, err := repo.Get(ctx, old.ID); !errors.Is(err, ErrRunNotFound) {
			t.Error("expected old finished run to be pruned")
		}
		if _, err := repo.Get(ctx, pending.ID); err != nil {
			t.Error("expected unfinished run to be kept")
		}
	})
}

func TestHistoryRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty", func(t *testing.T) {
		db := setupTestDB(t)
		entries, fetchedAt, err := NewHistoryRepository(db).List(ctx)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(entries) != 0 || !fetchedAt.IsZero() {
			t.Errorf("expected empty cache, got %v at %v", entries, fetchedAt)
		}
	})

	t.Run("Replace Keeps Order", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewHistoryRepository(db)

		first := []models.HistoryEntry{{File: "a.csv", SummaryCount: 1, RawCount: 2}}
		if err := repo.Replace(ctx, first); err != nil {
			t.Fatalf("failed to replace: %v", err)
		}

		second := []models.HistoryEntry{
			{File: "c.csv", SummaryCount: 3, RawCount: 30},
			{File: "b.csv", SummaryCount: 2, RawCount: 20},
		}
		if err := repo.Replace(ctx, second); err != nil {
			t.Fatalf("failed to replace: %v", err)
		}

		entries, fetchedAt, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(entries))
		}
		for i := range second {
			if entries[i] != second[i] {
				t.Errorf("entry %d: expected %+v, got %+v", i, second[i], entries[i])
			}
		}
		if fetchedAt.IsZero() {
			t.Error("expected fetch time")
		}
	})
}
