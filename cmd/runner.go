package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/reportctl/internal/repositories"
	"github.com/desertthunder/reportctl/internal/services"
	"github.com/desertthunder/reportctl/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	api        services.ReportService
	history    services.HistoryProvider
	httpClient *http.Client
	db         *sql.DB
	logger     *log.Logger
	output     io.Writer
	openURL    func(url string) error
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Services left nil are built from the configuration in [Runner.Configure].
type RunnerOpts struct {
	Config     *shared.Config
	API        services.ReportService
	History    services.HistoryProvider
	HTTPClient *http.Client
	DB         *sql.DB
	Logger     *log.Logger
	Output     io.Writer
	OpenURL    func(url string) error
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.OpenURL == nil {
		opts.OpenURL = shared.OpenBrowser
	}

	return &Runner{
		config:     opts.Config,
		api:        opts.API,
		history:    opts.History,
		httpClient: opts.HTTPClient,
		db:         opts.DB,
		logger:     opts.Logger,
		output:     opts.Output,
		openURL:    opts.OpenURL,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		generateCommand, historyCommand, downloadCommand, openCommand, runsCommand, setupCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Configure loads the configuration file named by --config and builds the services it describes.
//
// A missing file is not an error; the embedded defaults apply.
func (r *Runner) Configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	path := cmd.String("config")
	config, err := shared.LoadConfig(path)
	switch {
	case err == nil:
		r.config = config
		r.logger.Debug("loaded config", "path", path)
	case errors.Is(err, shared.ErrMissingConfig):
		r.logger.Debug("config file not found, using defaults", "path", path)
	default:
		return ctx, err
	}

	if url := cmd.String("base-url"); url != "" {
		r.config.Service.BaseURL = url
		if err := r.config.Validate(); err != nil {
			return ctx, err
		}
	}

	if r.api == nil {
		r.api = services.NewAPIService(r.config.Service.BaseURL, r.httpClient, r.config.Service.Timeout())
	}
	if r.history == nil {
		r.history = services.NewHistoryService(services.HistoryOpts{
			BaseURL:    r.config.Service.BaseURL,
			Timeout:    r.config.Service.Timeout(),
			RetryCount: r.config.History.RetryCount,
		})
	}
	return ctx, nil
}

// Close releases the ledger connection, if one was opened.
func (r *Runner) Close(ctx context.Context, cmd *cli.Command) error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// ledger opens the configured database on first use.
func (r *Runner) ledger() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	db, err := shared.OpenLedger(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	r.db = db
	return db, nil
}

// jobRuns returns the job ledger, or nil with a warning when the database is unavailable.
func (r *Runner) jobRuns() *repositories.JobRunRepository {
	db, err := r.ledger()
	if err != nil {
		r.logger.Warn("job ledger unavailable", "err", err)
		return nil
	}
	return repositories.NewJobRunRepository(db)
}

func (r *Runner) historyCache() *repositories.HistoryRepository {
	db, err := r.ledger()
	if err != nil {
		r.logger.Warn("history cache unavailable", "err", err)
		return nil
	}
	return repositories.NewHistoryRepository(db)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
