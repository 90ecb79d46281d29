package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"

	"github.com/desertthunder/reportctl/internal/models"
	"github.com/desertthunder/reportctl/internal/shared"
	"github.com/desertthunder/reportctl/internal/tasks"
)

const progressBarWidth = 24

// Generate submits a report job for --start..--end and prints its progress until it finishes.
//
// Interrupting the command cancels the subscription; the job itself keeps running on the service.
func (r *Runner) Generate(ctx context.Context, cmd *cli.Command) error {
	if r.api == nil {
		return fmt.Errorf("%w: report service not initialized", shared.ErrServiceUnavailable)
	}

	dr, err := models.ParseDateRange(cmd.String("start"), cmd.String("end"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	ctrl := tasks.NewController(r.api, &historyPrinter{ctx: ctx, r: r}, r.logger)
	if runs := r.jobRuns(); runs != nil {
		ctrl.WithLedger(runs)
	}
	ctrl.OnChange = r.progressPrinter(cmd.Bool("quiet"))

	sub, err := ctrl.Submit(ctx, dr)
	if err != nil {
		return err
	}

	outcome, err := ctrl.Watch(ctx, sub)
	view := ctrl.View()

	switch outcome {
	case models.OutcomeComplete:
		if cmd.Bool("open") && view.ReportFile != "" && r.history != nil {
			if err := r.openURL(r.history.DownloadURL(view.ReportFile)); err != nil {
				r.logger.Warn("failed to open report", "file", view.ReportFile, "err", err)
			}
		}
		return nil
	case models.OutcomeErrored:
		return view.Err
	default:
		if err == nil {
			err = context.Canceled
		}
		return fmt.Errorf("report cancelled: %w", err)
	}
}

// progressPrinter writes one line per view change, throttled to the configured interval.
// Lines that re-enable submission are always written.
func (r *Runner) progressPrinter(quiet bool) func(tasks.View) {
	limiter := rate.NewLimiter(rate.Every(r.config.Display.ProgressInterval()), 1)
	var last string

	return func(v tasks.View) {
		if v.Status == last {
			return
		}
		if !v.Enabled && (quiet || !limiter.Allow()) {
			return
		}
		if v.Enabled && errors.Is(v.Err, shared.ErrValidation) {
			return
		}

		last = v.Status
		r.writePlain("%s %s\n", progressBar(v.Percent), v.Status)
	}
}

func progressBar(percent float64) string {
	filled := int(models.ClampPercent(percent) / 100 * progressBarWidth)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", progressBarWidth-filled) + "]"
}
