package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/reportctl/internal/shared"
	"github.com/desertthunder/reportctl/internal/tasks"
	"github.com/desertthunder/reportctl/internal/ui"
)

// TUI launches the interactive report console.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if r.api == nil {
		return fmt.Errorf("%w: report service not initialized", shared.ErrServiceUnavailable)
	}
	if r.history == nil {
		return fmt.Errorf("%w: history service not initialized", shared.ErrServiceUnavailable)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	ctrl := tasks.NewController(r.api, nil, r.logger)
	if runs := r.jobRuns(); runs != nil {
		ctrl.WithLedger(runs)
	}

	opts := ui.Options{
		Start:       cmd.String("start"),
		End:         cmd.String("end"),
		DownloadDir: r.config.History.DownloadDir,
		Logger:      r.logger,
		OpenURL:     r.openURL,
	}
	if cache := r.historyCache(); cache != nil {
		opts.Cache = cache
	}

	model := ui.NewModel(ctx, ctrl, r.history, opts)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
