// package formatter renders report history and job runs as CSV, Markdown, JSON, or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/desertthunder/reportctl/internal/models"
	"github.com/desertthunder/reportctl/internal/shared"
)

// EmptyHistory is shown in place of an empty history list.
const EmptyHistory = "No reports yet"

// Format is an output format for history listings.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat accepts a format name or its file extension (txt, md).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want text, csv, markdown, or json)", shared.ErrInvalidArgument, s)
	}
}

// Ext is the file extension used when writing the format to disk.
func (f Format) Ext() string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatMarkdown:
		return ".md"
	case FormatJSON:
		return ".json"
	default:
		return ".txt"
	}
}

// HistoryToCSV converts history entries to CSV with columns: File, Summary, Raw
func HistoryToCSV(entries []models.HistoryEntry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"File", "Summary", "Raw"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range entries {
		record := []string{e.File, strconv.Itoa(e.SummaryCount), strconv.Itoa(e.RawCount)}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// HistoryToMarkdown renders entries as a Markdown list. When link is non-nil each file links to link(file).
func HistoryToMarkdown(entries []models.HistoryEntry, link func(file string) string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Report History\n\n")
	if len(entries) == 0 {
		buf.WriteString(fmt.Sprintf("_%s_\n", EmptyHistory))
		return buf.Bytes(), nil
	}

	buf.WriteString(fmt.Sprintf("**Reports**: %d\n\n", len(entries)))
	for i, e := range entries {
		name := e.File
		if link != nil {
			name = fmt.Sprintf("[%s](%s)", e.File, link(e.File))
		}
		buf.WriteString(fmt.Sprintf("%d. %s (Summary %d / Raw %d)\n", i+1, name, e.SummaryCount, e.RawCount))
	}

	return buf.Bytes(), nil
}

// HistoryToText renders one entry per line, or [EmptyHistory].
func HistoryToText(entries []models.HistoryEntry) ([]byte, error) {
	if len(entries) == 0 {
		return []byte(EmptyHistory + "\n"), nil
	}

	var buf bytes.Buffer
	for _, e := range entries {
		buf.WriteString(e.String())
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// HistoryToJSON renders entries in the backend's wire shape.
func HistoryToJSON(entries []models.HistoryEntry) ([]byte, error) {
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal history: %w", err)
	}
	return append(data, '\n'), nil
}

// FormatHistory renders entries in format f.
func FormatHistory(f Format, entries []models.HistoryEntry, link func(file string) string) ([]byte, error) {
	switch f {
	case FormatCSV:
		return HistoryToCSV(entries)
	case FormatMarkdown:
		return HistoryToMarkdown(entries, link)
	case FormatJSON:
		return HistoryToJSON(entries)
	default:
		return HistoryToText(entries)
	}
}

// WriteHistoryExport writes entries to path in format f.
//
// Defaults to history{ext} in the working directory.
func WriteHistoryExport(f Format, entries []models.HistoryEntry, path string, link func(file string) string) (string, error) {
	if path == "" {
		path = "history" + f.Ext()
	}

	data, err := FormatHistory(f, entries, link)
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", f, err)
	}

	return path, nil
}

// RunsToText renders job runs as an aligned table.
func RunsToText(runs []*models.JobRun) ([]byte, error) {
	if len(runs) == 0 {
		return []byte("No report jobs recorded\n"), nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tRANGE\tOUTCOME\tREPORT\tSTARTED\tDURATION")
	for _, run := range runs {
		report := run.ReportFile
		if report == "" && run.Error != "" {
			report = run.Error
		}
		if report == "" {
			report = "-"
		}

		duration := "-"
		if run.FinishedAt != nil {
			duration = run.FinishedAt.Sub(run.CreatedAt).Round(time.Second).String()
		}

		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			run.Sequence,
			run.Range,
			run.Outcome,
			report,
			run.CreatedAt.Local().Format("2006-01-02 15:04"),
			duration,
		)
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("failed to render runs: %w", err)
	}
	return buf.Bytes(), nil
}
