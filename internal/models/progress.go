package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/desertthunder/reportctl/internal/shared"
)

// ProgressEvent is one update from the progress stream.
type ProgressEvent struct {
	Percent    float64   // Clamped to [0, 100]
	Current    int       // Items processed so far
	Total      int       // Items expected
	Message    string    // Optional status text from the backend
	Labels     []string  // Chart categories, parallel to Counts
	Counts     []float64 // Chart values, parallel to Labels
	Complete   bool      // Terminal event marker
	ReportFile string    // Set on the terminal event
}

// Bar is one (label, count) pair of the event's chart data.
type Bar struct {
	Label string
	Count float64
}

// Bars pairs Labels and Counts up to the shorter of the two.
func (e ProgressEvent) Bars() []Bar {
	n := min(len(e.Labels), len(e.Counts))
	bars := make([]Bar, n)
	for i := range n {
		bars[i] = Bar{Label: e.Labels[i], Count: e.Counts[i]}
	}
	return bars
}

// StatusText is the status line shown for the event.
//
// Without a total it falls back to the bare percentage.
func (e ProgressEvent) StatusText() string {
	pct := FormatPercent(e.Percent)
	var status string
	if e.Total > 0 {
		status = fmt.Sprintf("%d/%d (%s)", e.Current, e.Total, pct)
	} else {
		status = pct
	}
	if e.Message != "" {
		status = fmt.Sprintf("%s %s", status, e.Message)
	}
	return status
}

// FormatPercent renders p without a trailing ".0" for whole numbers.
func FormatPercent(p float64) string {
	return strconv.FormatFloat(math.Round(p*10)/10, 'f', -1, 64) + "%"
}

// ClampPercent maps non-finite values to 0 and clamps to [0, 100].
func ClampPercent(p float64) float64 {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	return math.Max(0, math.Min(100, p))
}

type progressPayload struct {
	Percent    json.RawMessage `json:"percent"`
	Current    *float64        `json:"current"`
	Total      *float64        `json:"total"`
	Message    *string         `json:"message"`
	Labels     []string        `json:"labels"`
	Counts     []float64       `json:"counts"`
	Complete   json.RawMessage `json:"complete"`
	ReportFile string          `json:"reportFile"`
}

// DecodeProgressEvent parses one stream payload.
//
// Errors wrap [shared.ErrMalformedEvent]: the payload is not a JSON object, carries none of percent, current,
// total, message or complete, has a negative or fractional current/total, or a non-boolean complete.
// A missing or non-numeric percent decodes as 0.
func DecodeProgressEvent(data []byte) (ProgressEvent, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ProgressEvent{}, fmt.Errorf("%w: payload is not a JSON object", shared.ErrMalformedEvent)
	}

	var p progressPayload
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return ProgressEvent{}, fmt.Errorf("%w: %v", shared.ErrMalformedEvent, err)
	}

	if p.Percent == nil && p.Current == nil && p.Total == nil && p.Message == nil && p.Complete == nil {
		return ProgressEvent{}, fmt.Errorf("%w: no progress fields present", shared.ErrMalformedEvent)
	}

	current, err := counter("current", p.Current)
	if err != nil {
		return ProgressEvent{}, err
	}
	total, err := counter("total", p.Total)
	if err != nil {
		return ProgressEvent{}, err
	}

	complete := false
	if p.Complete != nil && string(p.Complete) != "null" {
		if err := json.Unmarshal(p.Complete, &complete); err != nil {
			return ProgressEvent{}, fmt.Errorf("%w: complete must be a boolean", shared.ErrMalformedEvent)
		}
	}

	ev := ProgressEvent{
		Percent:  ClampPercent(coercePercent(p.Percent)),
		Current:  current,
		Total:    total,
		Labels:   p.Labels,
		Counts:   p.Counts,
		Complete: complete,
	}
	if p.Message != nil {
		ev.Message = strings.TrimSpace(*p.Message)
	}
	if complete {
		ev.ReportFile = p.ReportFile
	}
	return ev, nil
}

// maxCounter is the largest integer a float64 holds exactly.
const maxCounter = 1 << 53

func counter(name string, v *float64) (int, error) {
	if v == nil {
		return 0, nil
	}
	if *v < 0 || *v != math.Trunc(*v) {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer, got %v", shared.ErrMalformedEvent, name, *v)
	}
	if *v > maxCounter {
		return 0, fmt.Errorf("%w: %s is out of range, got %v", shared.ErrMalformedEvent, name, *v)
	}
	return int(*v), nil
}

// coercePercent accepts a JSON number or numeric string; anything else is 0.
func coercePercent(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"), 64); err == nil {
			return f
		}
	}
	return 0
}
