package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/reportctl/internal/models"
	"github.com/desertthunder/reportctl/internal/shared"
)

// ErrRunNotFound is returned when no job run matches the lookup.
var ErrRunNotFound = errors.New("job run not found")

// JobRunRepository persists [models.JobRun] records.
type JobRunRepository struct {
	db *sql.DB
}

// NewJobRunRepository creates a new JobRunRepository with the given database connection
func NewJobRunRepository(db *sql.DB) *JobRunRepository {
	return &JobRunRepository{db: db}
}

// Create inserts run with the next sequence number. An empty ID is filled in.
func (r *JobRunRepository) Create(ctx context.Context, run *models.JobRun) error {
	if run.ID == "" {
		run.ID = shared.GenerateID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(ctx, r.db, "job_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	query := `
		INSERT INTO job_runs (id, sequence, start_date, end_date, outcome, report_file, error, created_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		run.ID,
		sequence,
		run.Range.StartString(),
		run.Range.EndString(),
		run.Outcome.String(),
		run.ReportFile,
		run.Error,
		run.CreatedAt,
		nullTime(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert job run: %w", err)
	}

	run.Sequence = sequence
	return nil
}

// Finish writes the terminal outcome of run.
func (r *JobRunRepository) Finish(ctx context.Context, run *models.JobRun) error {
	query := `
		UPDATE job_runs
		SET outcome = ?, report_file = ?, error = ?, finished_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		run.Outcome.String(),
		run.ReportFile,
		run.Error,
		nullTime(run.FinishedAt),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update job run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.ID)
	}
	return nil
}

// Get retrieves a job run by ID
func (r *JobRunRepository) Get(ctx context.Context, id string) (*models.JobRun, error) {
	query := `
		SELECT id, sequence, start_date, end_date, outcome, report_file, error, created_at, finished_at
		FROM job_runs
		WHERE id = ?
	`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// Recent returns up to limit runs, newest first. A non-positive limit returns all runs.
func (r *JobRunRepository) Recent(ctx context.Context, limit int) ([]*models.JobRun, error) {
	query := `
		SELECT id, sequence, start_date, end_date, outcome, report_file, error, created_at, finished_at
		FROM job_runs
		ORDER BY sequence DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query job runs: %w", err)
	}
	defer rows.Close()

	runs := []*models.JobRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job runs: %w", err)
	}
	return runs, nil
}

// Prune deletes finished runs created before cutoff.
func (r *JobRunRepository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM job_runs WHERE finished_at IS NOT NULL AND created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune job runs: %w", err)
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*models.JobRun, error) {
	var (
		run        models.JobRun
		start, end string
		outcome    string
		finishedAt sql.NullTime
	)

	err := s.Scan(
		&run.ID,
		&run.Sequence,
		&start,
		&end,
		&outcome,
		&run.ReportFile,
		&run.Error,
		&run.CreatedAt,
		&finishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan job run: %w", err)
	}

	if run.Range.Start, err = time.Parse(models.DateLayout, start); err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	if run.Range.End, err = time.Parse(models.DateLayout, end); err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", end, err)
	}

	run.Outcome = models.ParseOutcome(outcome)
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}
	return &run, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
