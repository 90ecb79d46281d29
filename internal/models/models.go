package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/reportctl/internal/shared"
)

// DateLayout is the ISO date format used on the wire and on the command line.
const DateLayout = "2006-01-02"

// DateRange is the inclusive range of days a report covers.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange parses two YYYY-MM-DD strings and validates the result.
func ParseDateRange(start, end string) (DateRange, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" || end == "" {
		return DateRange{}, fmt.Errorf("%w: start and end dates are required", shared.ErrValidation)
	}

	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: start date %q is not YYYY-MM-DD", shared.ErrValidation, start)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: end date %q is not YYYY-MM-DD", shared.ErrValidation, end)
	}

	r := DateRange{Start: s, End: e}
	return r, r.Validate()
}

// Validate reports whether both ends are set and Start is not after End.
func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", shared.ErrValidation)
	}
	if r.Start.After(r.End) {
		return fmt.Errorf("%w: start date %s is after end date %s", shared.ErrValidation, r.StartString(), r.EndString())
	}
	return nil
}

func (r DateRange) StartString() string { return r.Start.Format(DateLayout) }
func (r DateRange) EndString() string   { return r.End.Format(DateLayout) }
func (r DateRange) String() string      { return r.StartString() + ".." + r.EndString() }

// MarshalJSON encodes the range as the generate request body.
func (r DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	}{r.StartString(), r.EndString()})
}

// HistoryEntry is one downloadable report listed by the backend.
type HistoryEntry struct {
	File         string `json:"file"`
	SummaryCount int    `json:"summaryCount"`
	RawCount     int    `json:"rawCount"`
}

// String renders the entry the way the history list shows it.
func (h HistoryEntry) String() string {
	return fmt.Sprintf("%s (Summary %d / Raw %d)", h.File, h.SummaryCount, h.RawCount)
}

// Outcome is the terminal edge a subscription took.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeComplete
	OutcomeErrored
	OutcomeSuperseded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeComplete:
		return "complete"
	case OutcomeErrored:
		return "errored"
	case OutcomeSuperseded:
		return "superseded"
	default:
		return "pending"
	}
}

// ParseOutcome is the inverse of [Outcome.String].
func ParseOutcome(s string) Outcome {
	switch s {
	case "complete":
		return OutcomeComplete
	case "errored":
		return OutcomeErrored
	case "superseded":
		return OutcomeSuperseded
	default:
		return OutcomeNone
	}
}

// JobRun is the local ledger record of one accepted generate request.
type JobRun struct {
	ID         string
	Sequence   int
	Range      DateRange
	Outcome    Outcome
	ReportFile string
	Error      string
	CreatedAt  time.Time
	FinishedAt *time.Time
}

// NewJobRun creates a pending run for r with a fresh id.
func NewJobRun(r DateRange) *JobRun {
	return &JobRun{
		ID:        shared.GenerateID(),
		Range:     r,
		Outcome:   OutcomeNone,
		CreatedAt: time.Now().UTC(),
	}
}

// Finish records the terminal outcome of the run.
func (j *JobRun) Finish(o Outcome, reportFile string, err error) {
	now := time.Now().UTC()
	j.Outcome = o
	j.ReportFile = reportFile
	if err != nil {
		j.Error = err.Error()
	}
	j.FinishedAt = &now
}

// Validate checks the run before it is persisted.
func (j *JobRun) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("%w: job run id is required", shared.ErrInvalidInput)
	}
	return j.Range.Validate()
}
