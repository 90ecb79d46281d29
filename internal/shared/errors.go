package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Job submission and progress errors
	ErrValidation         = fmt.Errorf("invalid date range")
	ErrSubmission         = fmt.Errorf("report generation request failed")
	ErrSubmissionDisabled = fmt.Errorf("a report is already being generated")
	ErrTransport          = fmt.Errorf("progress connection interrupted")
	ErrMalformedEvent     = fmt.Errorf("malformed progress event")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrHistory            = fmt.Errorf("failed to load report history")
	ErrReportNotFound     = fmt.Errorf("report not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
