// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// generateCommand submits a report job and follows its progress
func generateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "generate",
		Aliases: []string{"gen"},
		Usage:   "Generate a report for a date range and follow its progress",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "start",
				Aliases:  []string{"s"},
				Usage:    "First day of the range (YYYY-MM-DD)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "end",
				Aliases:  []string{"e"},
				Usage:    "Last day of the range (YYYY-MM-DD)",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the finished report in the browser",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Only print the final status",
			},
		},
		Action: r.Generate,
	}
}

// historyCommand lists generated reports
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List generated reports",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, csv, markdown, json",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to a file instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "cached",
				Usage: "Show the last fetched listing without contacting the service",
			},
		},
		Action: r.History,
	}
}

// downloadCommand saves a report to disk
func downloadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "download",
		Usage: "Download a generated report",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "file",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Destination directory (default: history.download_dir)",
			},
		},
		Action: r.Download,
	}
}

// openCommand opens a report's download link in the browser
func openCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "open",
		Usage: "Open a generated report in the browser",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "file",
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "print",
				Usage: "Print the URL instead of opening it",
			},
		},
		Action: r.Open,
	}
}

// runsCommand shows the local job ledger
func runsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Show locally recorded report jobs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to show (0 for all)",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output JSON",
			},
			&cli.IntFlag{
				Name:  "prune-days",
				Usage: "Delete finished runs older than this many days before listing",
			},
		},
		Action: r.Runs,
	}
}

// setupCommand handles setup operations for configuration and the ledger database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write an example configuration file",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the ledger database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// tuiCommand launches the interactive console
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Interactive report console",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "start",
				Usage: "Prefill the start date (YYYY-MM-DD)",
			},
			&cli.StringFlag{
				Name:  "end",
				Usage: "Prefill the end date (YYYY-MM-DD)",
			},
			&cli.StringFlag{
				Name:  "log",
				Usage: "Log file path",
				Value: "./tmp/reportctl-tui.log",
			},
		},
		Action: r.TUI,
	}
}
