// package services defines interfaces for the report backend's HTTP API
package services

import (
	"context"

	"github.com/desertthunder/reportctl/internal/models"
)

// ReportService starts report jobs and exposes their progress stream.
type ReportService interface {
	// Generate submits a job for r. A nil error means the backend accepted it.
	Generate(ctx context.Context, r models.DateRange) error

	// OpenProgress opens the progress stream. The stream lives until ctx is cancelled or it is closed.
	OpenProgress(ctx context.Context) (Stream, error)
}

// Stream is a live progress connection.
type Stream interface {
	// Recv blocks until the next message payload arrives.
	// A clean end of stream is reported as io.EOF.
	Recv() ([]byte, error)

	// Close releases the connection. Closing twice is a no-op.
	Close() error
}

// HistoryProvider lists and retrieves generated reports.
type HistoryProvider interface {
	List(ctx context.Context) ([]models.HistoryEntry, error)
	DownloadURL(file string) string
	Download(ctx context.Context, file, dir string) (string, error)
}
