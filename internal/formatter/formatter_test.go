package formatter

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/reportctl/internal/models"
	"github.com/desertthunder/reportctl/internal/shared"
	th "github.com/desertthunder/reportctl/internal/testing"
)

var entries = []models.HistoryEntry{
	{File: "award_2024-01.csv", SummaryCount: 12, RawCount: 340},
	{File: "award 2023-12.csv", SummaryCount: 3, RawCount: 9},
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatText},
		{"txt", FormatText},
		{"CSV", FormatCSV},
		{"md", FormatMarkdown},
		{"markdown", FormatMarkdown},
		{" json ", FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}

	t.Run("Unknown", func(t *testing.T) {
		if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestExporters(t *testing.T) {
	t.Run("HistoryToCSV", func(t *testing.T) {
		data, err := HistoryToCSV(entries)
		if err != nil {
			t.Fatalf("HistoryToCSV failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and 2 rows, got %d lines", len(lines))
		}
		if lines[0] != "File,Summary,Raw" {
			t.Errorf("CSV missing headers, got: %s", lines[0])
		}
		if lines[1] != "award_2024-01.csv,12,340" {
			t.Errorf("unexpected first row: %s", lines[1])
		}
	})

	t.Run("HistoryToText", func(t *testing.T) {
		data, err := HistoryToText(entries)
		if err != nil {
			t.Fatalf("HistoryToText failed: %v", err)
		}

		want := "award_2024-01.csv (Summary 12 / Raw 340)\naward 2023-12.csv (Summary 3 / Raw 9)\n"
		if string(data) != want {
			t.Errorf("expected %q, got %q", want, string(data))
		}
	})

	t.Run("HistoryToText Empty", func(t *testing.T) {
		data, _ := HistoryToText(nil)
		if strings.TrimSpace(string(data)) != EmptyHistory {
			t.Errorf("expected empty-state line, got %q", string(data))
		}
	})

	t.Run("HistoryToMarkdown", func(t *testing.T) {
		link := func(file string) string { return "http://host/download/" + file }
		data, err := HistoryToMarkdown(entries, link)
		if err != nil {
			t.Fatalf("HistoryToMarkdown failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "# Report History") {
			t.Error("Markdown missing title")
		}
		if !strings.Contains(output, "**Reports**: 2") {
			t.Error("Markdown missing count")
		}
		if !strings.Contains(output, "1. [award_2024-01.csv](http://host/download/award_2024-01.csv) (Summary 12 / Raw 340)") {
			t.Errorf("Markdown missing linked entry, got: %s", output)
		}
	})

	t.Run("HistoryToMarkdown Without Links", func(t *testing.T) {
		data, _ := HistoryToMarkdown(entries[:1], nil)
		if !strings.Contains(string(data), "1. award_2024-01.csv (Summary 12 / Raw 340)") {
			t.Errorf("unexpected output: %s", data)
		}
	})

	t.Run("HistoryToJSON", func(t *testing.T) {
		data, err := HistoryToJSON(entries)
		if err != nil {
			t.Fatalf("HistoryToJSON failed: %v", err)
		}
		if !strings.Contains(string(data), `"summaryCount": 12`) {
			t.Errorf("JSON missing wire field names, got: %s", data)
		}

		empty, _ := HistoryToJSON(nil)
		if strings.TrimSpace(string(empty)) != "[]" {
			t.Errorf("expected empty array, got %s", empty)
		}
	})

	t.Run("WriteHistoryExport", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out", "history.csv")

		got, err := WriteHistoryExport(FormatCSV, entries, path, nil)
		if err != nil {
			t.Fatalf("WriteHistoryExport failed: %v", err)
		}
		if got != path {
			t.Errorf("expected %s, got %s", path, got)
		}
		if content := th.MustReadFile(t, path); !strings.HasPrefix(content, "File,Summary,Raw") {
			t.Errorf("unexpected file content: %s", content)
		}
	})
}

func TestRunsToText(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		data, _ := RunsToText(nil)
		if !strings.Contains(string(data), "No report jobs recorded") {
			t.Errorf("unexpected output: %s", data)
		}
	})

	t.Run("Table", func(t *testing.T) {
		r, _ := models.ParseDateRange("2024-01-01", "2024-01-31")
		done := models.NewJobRun(r)
		done.Sequence = 2
		done.Finish(models.OutcomeComplete, "r1.csv", nil)
		done.CreatedAt = done.FinishedAt.Add(-90 * time.Second)

		failed := models.NewJobRun(r)
		failed.Sequence = 1
		failed.Finish(models.OutcomeErrored, "", shared.ErrTransport)

		data, err := RunsToText([]*models.JobRun{done, failed})
		if err != nil {
			t.Fatalf("RunsToText failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{"OUTCOME", "2024-01-01..2024-01-31", "complete", "r1.csv", "1m30s", "errored", shared.ErrTransport.Error()} {
			if !strings.Contains(output, want) {
				t.Errorf("expected %q in output:\n%s", want, output)
			}
		}
	})
}
