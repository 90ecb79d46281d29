package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/reportctl/internal/models"
	"github.com/desertthunder/reportctl/internal/repositories"
	"github.com/desertthunder/reportctl/internal/shared"
	tu "github.com/desertthunder/reportctl/internal/testing"
)

var completeFrames = []string{
	`{"percent":10,"current":1,"total":10,"message":"Collecting"}`,
	`{"percent":100,"current":10,"total":10,"complete":true,"reportFile":"r1.csv"}`,
}

func TestGenerate(t *testing.T) {
	t.Run("follows the job and prints the refreshed history", func(t *testing.T) {
		backend := tu.NewBackend(t)
		backend.Set(func(b *tu.Backend) {
			b.Frames = completeFrames
			b.History = []models.HistoryEntry{{File: "r1.csv", SummaryCount: 2, RawCount: 10}}
		})
		runner, output := newTestRunner(t, backend)

		if err := runApp(runner, "generate", "--start", "2024-01-01", "--end", "2024-01-31"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := output.String()
		for _, want := range []string{"Preparing...", "1/10 (10%) Collecting", "Report ready: r1.csv", "r1.csv (Summary 2 / Raw 10)"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
		if backend.HistoryCalls() != 1 {
			t.Errorf("expected one history refresh, got %d", backend.HistoryCalls())
		}

		runs, err := repositories.NewJobRunRepository(runner.db).Recent(context.Background(), 0)
		if err != nil {
			t.Fatalf("failed to read ledger: %v", err)
		}
		if len(runs) != 1 || runs[0].Outcome != models.OutcomeComplete || runs[0].ReportFile != "r1.csv" {
			t.Errorf("expected one completed run in the ledger, got %+v", runs)
		}
	})

	t.Run("failed history refresh prints the failure line", func(t *testing.T) {
		backend := tu.NewBackend(t)
		backend.Set(func(b *tu.Backend) {
			b.Frames = completeFrames
			b.HistoryCode = http.StatusBadGateway
		})
		runner, output := newTestRunner(t, backend)

		if err := runApp(runner, "generate", "--start", "2024-01-01", "--end", "2024-01-31"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := output.String()
		if !strings.Contains(out, "Report ready: r1.csv") || !strings.Contains(out, "Failed to load history") {
			t.Errorf("expected ready status and history failure line, got:\n%s", out)
		}
		if strings.Contains(out, "Reports:") {
			t.Errorf("expected no history listing, got:\n%s", out)
		}
	})

	t.Run("interrupted stream is an error without refresh", func(t *testing.T) {
		backend := tu.NewBackend(t)
		backend.Set(func(b *tu.Backend) { b.Frames = completeFrames[:1] })
		runner, output := newTestRunner(t, backend)

		err := runApp(runner, "generate", "--start", "2024-01-01", "--end", "2024-01-31")
		if !errors.Is(err, shared.ErrTransport) {
			t.Fatalf("expected ErrTransport, got %v", err)
		}
		if !strings.Contains(output.String(), "Connection interrupted, please retry") {
			t.Errorf("expected interrupted status, got:\n%s", output.String())
		}
		if backend.HistoryCalls() != 0 {
			t.Error("expected no history refresh")
		}
	})

	t.Run("rejected request", func(t *testing.T) {
		backend := tu.NewBackend(t)
		backend.Set(func(b *tu.Backend) { b.GenerateCode = http.StatusInternalServerError })
		runner, output := newTestRunner(t, backend)

		err := runApp(runner, "generate", "--start", "2024-01-01", "--end", "2024-01-31")
		if !errors.Is(err, shared.ErrSubmission) {
			t.Fatalf("expected ErrSubmission, got %v", err)
		}
		if !strings.Contains(output.String(), "Report generation failed") {
			t.Errorf("expected failure status, got:\n%s", output.String())
		}
		if backend.ProgressCalls() != 0 {
			t.Error("expected no progress subscription")
		}
	})

	t.Run("invalid range makes no requests", func(t *testing.T) {
		backend := tu.NewBackend(t)
		runner, _ := newTestRunner(t, backend)

		err := runApp(runner, "generate", "--start", "2024-02-01", "--end", "2024-01-01")
		if !errors.Is(err, shared.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
		if backend.GenerateCalls() != 0 || backend.ProgressCalls() != 0 {
			t.Error("expected no network calls")
		}
	})

	t.Run("open flag opens the finished report", func(t *testing.T) {
		backend := tu.NewBackend(t)
		backend.Set(func(b *tu.Backend) { b.Frames = completeFrames })
		runner, _ := newTestRunner(t, backend)

		var opened string
		runner.openURL = func(url string) error {
			opened = url
			return nil
		}

		if err := runApp(runner, "generate", "-s", "2024-01-01", "-e", "2024-01-31", "--open", "--quiet"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if opened != backend.URL+"/download/r1.csv" {
			t.Errorf("unexpected URL %q", opened)
		}
	})
}

func TestHistory(t *testing.T) {
	entries := []models.HistoryEntry{
		{File: "r2.csv", SummaryCount: 4, RawCount: 80},
		{File: "r1.csv", SummaryCount: 2, RawCount: 10},
	}

	t.Run("prints text by default", func(t *testing.T) {
		backend := tu.NewBackend(t)
		backend.Set(func(b *tu.Backend) { b.History = entries })
		runner, output := newTestRunner(t, backend)

		if err := runApp(runner, "history"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		want := "r2.csv (Summary 4 / Raw 80)\nr1.csv (Summary 2 / Raw 10)\n"
		if output.String() != want {
			t.Errorf("expected %q, got %q", want, output.String())
		}
	})

	t.Run("empty history", func(t *testing.T) {
		backend := tu.NewBackend(t)
		runner, output := newTestRunner(t, backend)

		if err := runApp(runner, "history"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if strings.TrimSpace(output.String()) != "No reports yet" {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("json format", func(t *testing.T) {
		backend := tu.NewBackend(t)
		backend.Set(func(b *tu.Backend) { b.History = entries })
		runner, output := newTestRunner(t, backend)

		if err := runApp(runner, "history", "--format", "json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var got []models.HistoryEntry
		if err := json.Unmarshal(output.Bytes(), &got); err != nil {
			t.Fatalf("expected JSON output: %v", err)
		}
		if len(got) != 2 || got[0] != entries[0] {
			t.Errorf("unexpected entries %+v", got)
		}
	})

	t.Run("cached listing works without the service", func(t *testing.T) {
		backend := tu.NewBackend(t)
		backend.Set(func(b *tu.Backend) { b.History = entries })
		runner, output := newTestRunner(t, backend)

		if err := runApp(runner, "history"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		output.Reset()
		backend.Set(func(b *tu.Backend) { b.HistoryCode = http.StatusInternalServerError })

		if err := runApp(runner, "history", "--cached", "-f", "csv"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "r2.csv,4,80") {
			t.Errorf("expected cached CSV, got:\n%s", output.String())
		}
		if backend.HistoryCalls() != 1 {
			t.Errorf("expected one service call, got %d", backend.HistoryCalls())
		}
	})

	t.Run("service failure", func(t *testing.T) {
		backend := tu.NewBackend(t)
		backend.Set(func(b *tu.Backend) { b.HistoryCode = http.StatusBadGateway })
		runner, _ := newTestRunner(t, backend)

		if err := runApp(runner, "history"); !errors.Is(err, shared.ErrHistory) {
			t.Errorf("expected ErrHistory, got %v", err)
		}
	})

	t.Run("writes to a file", func(t *testing.T) {
		backend := tu.NewBackend(t)
		backend.Set(func(b *tu.Backend) { b.History = entries })
		runner, output := newTestRunner(t, backend)
		path := filepath.Join(t.TempDir(), "history.md")

		if err := runApp(runner, "history", "-f", "md", "-o", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Wrote "+path) {
			t.Errorf("unexpected output %q", output.String())
		}
		if content := tu.MustReadFile(t, path); !strings.Contains(content, "[r2.csv]("+backend.URL+"/download/r2.csv)") {
			t.Errorf("expected linked markdown, got:\n%s", content)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		backend := tu.NewBackend(t)
		runner, _ := newTestRunner(t, backend)

		if err := runApp(runner, "history", "-f", "xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestDownloadAndOpen(t *testing.T) {
	t.Run("download saves into the configured directory", func(t *testing.T) {
		backend := tu.NewBackend(t)
		backend.Set(func(b *tu.Backend) { b.Files["r1.csv"] = "a,b\n" })
		runner, output := newTestRunner(t, backend)

		if err := runApp(runner, "download", "r1.csv"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		path := filepath.Join(runner.config.History.DownloadDir, "r1.csv")
		if tu.MustReadFile(t, path) != "a,b\n" {
			t.Error("unexpected file content")
		}
		if !strings.Contains(output.String(), "Saved "+path) {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("download requires a file", func(t *testing.T) {
		backend := tu.NewBackend(t)
		runner, _ := newTestRunner(t, backend)

		if err := runApp(runner, "download"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("download of a missing report", func(t *testing.T) {
		backend := tu.NewBackend(t)
		runner, _ := newTestRunner(t, backend)

		if err := runApp(runner, "download", "--dir", t.TempDir(), "gone.csv"); !errors.Is(err, shared.ErrReportNotFound) {
			t.Errorf("expected ErrReportNotFound, got %v", err)
		}
	})

	t.Run("open prints the URL", func(t *testing.T) {
		backend := tu.NewBackend(t)
		runner, output := newTestRunner(t, backend)

		if err := runApp(runner, "open", "--print", "r 1.csv"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if strings.TrimSpace(output.String()) != backend.URL+"/download/r%201.csv" {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("open reports browser failures", func(t *testing.T) {
		backend := tu.NewBackend(t)
		runner, _ := newTestRunner(t, backend)

		if err := runApp(runner, "open", "r1.csv"); err == nil || !strings.Contains(err.Error(), "failed to open browser") {
			t.Errorf("expected browser error, got %v", err)
		}
	})
}

func TestRunsAndSetup(t *testing.T) {
	t.Run("runs lists the ledger", func(t *testing.T) {
		backend := tu.NewBackend(t)
		backend.Set(func(b *tu.Backend) { b.Frames = completeFrames })
		runner, output := newTestRunner(t, backend)

		if err := runApp(runner, "generate", "-s", "2024-01-01", "-e", "2024-01-31", "-q"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		output.Reset()

		if err := runApp(runner, "runs"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		for _, want := range []string{"2024-01-01..2024-01-31", "complete", "r1.csv"} {
			if !strings.Contains(output.String(), want) {
				t.Errorf("expected %q in output:\n%s", want, output.String())
			}
		}

		output.Reset()
		if err := runApp(runner, "runs", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		var runs []jobRunJSON
		if err := json.Unmarshal(output.Bytes(), &runs); err != nil {
			t.Fatalf("expected JSON output: %v", err)
		}
		if len(runs) != 1 || runs[0].Outcome != "complete" || runs[0].StartDate != "2024-01-01" {
			t.Errorf("unexpected runs %+v", runs)
		}
	})

	t.Run("setup config writes the example", func(t *testing.T) {
		backend := tu.NewBackend(t)
		runner, _ := newTestRunner(t, backend)
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := runApp(runner, "--config", path, "setup", "config"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := shared.LoadConfig(path); err != nil {
			t.Errorf("expected a loadable config, got %v", err)
		}

		if err := runApp(runner, "--config", path, "setup", "config"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for existing file, got %v", err)
		}

		os.WriteFile(path, []byte("# edited\n"), 0644)
		if err := runApp(runner, "--config", path, "setup", "config", "--force"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if strings.Contains(tu.MustReadFile(t, path), "# edited") {
			t.Error("expected file to be overwritten")
		}
	})

	t.Run("setup database runs migrations", func(t *testing.T) {
		backend := tu.NewBackend(t)
		runner, output := newTestRunner(t, backend)

		if err := runApp(runner, "setup", "database"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "schema version 2") {
			t.Errorf("unexpected output %q", output.String())
		}
	})
}
