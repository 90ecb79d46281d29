package tasks

import (
	"fmt"

	"github.com/desertthunder/reportctl/internal/models"
)

const (
	StatusIdle        = "Select a date range and generate a report"
	StatusPreparing   = "Preparing..."
	StatusSubmitting  = "Submitting report request..."
	StatusRejected    = "Report generation failed"
	StatusInterrupted = "Connection interrupted, please retry"
	StatusCancelled   = "Report cancelled"
)

// View is the render state shared by the CLI and the TUI.
type View struct {
	Percent    float64      // Progress bar value in [0, 100]
	Status     string       // Status line
	Bars       []models.Bar // Per-label chart data
	Enabled    bool         // Whether the generate action is available
	ReportFile string       // Set once a report is ready
	Err        error        // Last user-facing error
}

func idleView() View {
	return View{Status: StatusIdle, Enabled: true}
}

func submittingView(prev View) View {
	prev.Enabled = false
	prev.Err = nil
	prev.Status = StatusSubmitting
	return prev
}

func preparingView() View {
	return View{Status: StatusPreparing}
}

func rejectedView(prev View, err error) View {
	prev.Enabled = true
	prev.Status = StatusRejected
	prev.Err = err
	return prev
}

func progressView(prev View, ev models.ProgressEvent) View {
	prev.Percent = ev.Percent
	prev.Status = ev.StatusText()
	prev.Bars = ev.Bars()
	return prev
}

func completeView(prev View, ev models.ProgressEvent) View {
	prev.Enabled = true
	prev.ReportFile = ev.ReportFile
	if ev.ReportFile != "" {
		prev.Status = fmt.Sprintf("Report ready: %s", ev.ReportFile)
	} else {
		prev.Status = "Report ready"
	}
	return prev
}

func interruptedView(prev View, err error) View {
	prev.Enabled = true
	prev.Status = StatusInterrupted
	prev.Err = err
	return prev
}

func cancelledView(prev View) View {
	prev.Enabled = true
	prev.Status = StatusCancelled
	return prev
}
