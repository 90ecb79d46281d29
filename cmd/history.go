package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/reportctl/internal/formatter"
	"github.com/desertthunder/reportctl/internal/models"
	"github.com/desertthunder/reportctl/internal/shared"
)

// historyPrinter reloads and prints the history after a job completes.
type historyPrinter struct {
	ctx context.Context
	r   *Runner
}

func (h *historyPrinter) RefreshHistory() {
	if h.r.history == nil {
		return
	}

	entries, err := h.r.history.List(h.ctx)
	if err != nil {
		h.r.logger.Warn("failed to refresh history", "err", err)
		h.r.writePlain("Failed to load history\n")
		return
	}
	h.r.cacheHistory(h.ctx, entries)

	data, err := formatter.HistoryToText(entries)
	if err != nil {
		h.r.logger.Warn("failed to render history", "err", err)
		h.r.writePlain("Failed to load history\n")
		return
	}
	h.r.writePlain("\nReports:\n")
	h.r.writeBytes(data)
}

func (r *Runner) cacheHistory(ctx context.Context, entries []models.HistoryEntry) {
	cache := r.historyCache()
	if cache == nil {
		return
	}
	if err := cache.Replace(ctx, entries); err != nil {
		r.logger.Warn("failed to cache history", "err", err)
	}
}

// History lists generated reports from the service, or from the local cache with --cached.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	var entries []models.HistoryEntry
	if cmd.Bool("cached") {
		cache := r.historyCache()
		if cache == nil {
			return fmt.Errorf("%w: history cache unavailable", shared.ErrServiceUnavailable)
		}

		var fetchedAt time.Time
		if entries, fetchedAt, err = cache.List(ctx); err != nil {
			return err
		}
		if fetchedAt.IsZero() {
			r.logger.Info("history cache is empty")
		} else {
			r.logger.Info("showing cached history", "fetched_at", fetchedAt.Local().Format(time.DateTime))
		}
	} else {
		if r.history == nil {
			return fmt.Errorf("%w: history service not initialized", shared.ErrServiceUnavailable)
		}
		if entries, err = r.history.List(ctx); err != nil {
			return err
		}
		r.cacheHistory(ctx, entries)
	}

	var link func(string) string
	if r.history != nil {
		link = r.history.DownloadURL
	}

	if out := cmd.String("output"); out != "" {
		path, err := formatter.WriteHistoryExport(format, entries, out, link)
		if err != nil {
			return err
		}
		r.logger.Info("history written", "path", path, "entries", len(entries))
		return r.writePlain("Wrote %s\n", path)
	}

	data, err := formatter.FormatHistory(format, entries, link)
	if err != nil {
		return err
	}
	return r.writeBytes(data)
}

// Download saves a generated report into --dir or the configured download directory.
func (r *Runner) Download(ctx context.Context, cmd *cli.Command) error {
	file := cmd.StringArg("file")
	if file == "" {
		return fmt.Errorf("%w: report file name", shared.ErrMissingArgument)
	}
	if r.history == nil {
		return fmt.Errorf("%w: history service not initialized", shared.ErrServiceUnavailable)
	}

	dir := cmd.String("dir")
	if dir == "" {
		dir = r.config.History.DownloadDir
	}
	if dir == "" {
		dir, _ = os.Getwd()
	}

	path, err := r.history.Download(ctx, file, dir)
	if err != nil {
		return err
	}
	r.logger.Info("report downloaded", "file", file, "path", path)
	return r.writePlain("Saved %s\n", path)
}

// Open opens a report's download link in the default browser.
func (r *Runner) Open(ctx context.Context, cmd *cli.Command) error {
	file := cmd.StringArg("file")
	if file == "" {
		return fmt.Errorf("%w: report file name", shared.ErrMissingArgument)
	}
	if r.history == nil {
		return fmt.Errorf("%w: history service not initialized", shared.ErrServiceUnavailable)
	}

	url := r.history.DownloadURL(file)
	if cmd.Bool("print") {
		return r.writePlain("%s\n", url)
	}

	if err := r.openURL(url); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return r.writePlain("Opened %s\n", url)
}
