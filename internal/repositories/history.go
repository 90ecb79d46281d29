package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/reportctl/internal/models"
)

// HistoryRepository caches the last history listing so it can be shown without the backend.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a new HistoryRepository with the given database connection
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Replace swaps the cached listing for entries, keeping their order.
func (r *HistoryRepository) Replace(ctx context.Context, entries []models.HistoryEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM history_entries`); err != nil {
		return fmt.Errorf("failed to clear history cache: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO history_entries (position, file, summary_count, raw_count, fetched_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, i, e.File, e.SummaryCount, e.RawCount, now); err != nil {
			return fmt.Errorf("failed to cache history entry %q: %w", e.File, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history cache: %w", err)
	}
	return nil
}

// List returns the cached entries in server order and when they were fetched.
// An empty cache returns a zero time.
func (r *HistoryRepository) List(ctx context.Context) ([]models.HistoryEntry, time.Time, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT file, summary_count, raw_count, fetched_at
		FROM history_entries
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to query history cache: %w", err)
	}
	defer rows.Close()

	var fetchedAt time.Time
	entries := []models.HistoryEntry{}
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.File, &e.SummaryCount, &e.RawCount, &fetchedAt); err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("error iterating history cache: %w", err)
	}
	return entries, fetchedAt, nil
}
