package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/reportctl/internal/formatter"
	"github.com/desertthunder/reportctl/internal/models"
	"github.com/desertthunder/reportctl/internal/shared"
)

type jobRunJSON struct {
	ID         string     `json:"id"`
	Sequence   int        `json:"sequence"`
	StartDate  string     `json:"startDate"`
	EndDate    string     `json:"endDate"`
	Outcome    string     `json:"outcome"`
	ReportFile string     `json:"reportFile,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

func toJobRunJSON(run *models.JobRun) jobRunJSON {
	return jobRunJSON{
		ID:         run.ID,
		Sequence:   run.Sequence,
		StartDate:  run.Range.StartString(),
		EndDate:    run.Range.EndString(),
		Outcome:    run.Outcome.String(),
		ReportFile: run.ReportFile,
		Error:      run.Error,
		CreatedAt:  run.CreatedAt,
		FinishedAt: run.FinishedAt,
	}
}

// Runs lists the job ledger, newest first.
func (r *Runner) Runs(ctx context.Context, cmd *cli.Command) error {
	repo := r.jobRuns()
	if repo == nil {
		return fmt.Errorf("%w: job ledger unavailable", shared.ErrServiceUnavailable)
	}

	if days := cmd.Int("prune-days"); days > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -int(days))
		n, err := repo.Prune(ctx, cutoff)
		if err != nil {
			return err
		}
		r.logger.Info("pruned job runs", "count", n, "before", cutoff.Format(models.DateLayout))
	}

	runs, err := repo.Recent(ctx, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		out := make([]jobRunJSON, len(runs))
		for i, run := range runs {
			out[i] = toJobRunJSON(run)
		}
		return r.writeJSON(out, true)
	}

	data, err := formatter.RunsToText(runs)
	if err != nil {
		return err
	}
	return r.writeBytes(data)
}
