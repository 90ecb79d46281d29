package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/desertthunder/reportctl/internal/models"
	"github.com/desertthunder/reportctl/internal/shared"
)

// HistoryService reads the backend's list of generated reports.
type HistoryService struct {
	baseURL string
	http    *resty.Client
}

var _ HistoryProvider = (*HistoryService)(nil)

// HistoryOpts configures a [HistoryService].
type HistoryOpts struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	RetryWait  time.Duration
	HTTPClient *http.Client
}

// NewHistoryService creates a history client with retries on 429 and 5xx.
func NewHistoryService(opts HistoryOpts) *HistoryService {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://127.0.0.1:8000"
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = 500 * time.Millisecond
	}

	var client *resty.Client
	if opts.HTTPClient != nil {
		client = resty.NewWithClient(opts.HTTPClient)
	} else {
		client = resty.New()
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	client.
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(4 * opts.RetryWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if r == nil {
				return err != nil
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}

	return &HistoryService{baseURL: baseURL, http: client}
}

// List returns the generated reports in server order.
//
// A body that is valid JSON but not an array (null, an object) is treated as an empty history.
func (h *HistoryService) List(ctx context.Context) ([]models.HistoryEntry, error) {
	resp, err := h.http.R().SetContext(ctx).Get("/history")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrHistory, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: status %d", shared.ErrHistory, resp.StatusCode())
	}

	body := bytes.TrimSpace(resp.Body())
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: response is not JSON", shared.ErrHistory)
	}
	if len(body) == 0 || body[0] != '[' {
		return []models.HistoryEntry{}, nil
	}

	var entries []models.HistoryEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrHistory, err)
	}
	return entries, nil
}

// DownloadURL returns the absolute URL of a report artifact.
func (h *HistoryService) DownloadURL(file string) string {
	return h.baseURL + "/download/" + url.PathEscape(file)
}

// Download saves file into dir and returns the written path.
func (h *HistoryService) Download(ctx context.Context, file, dir string) (string, error) {
	name := filepath.Base(file)
	if file == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return "", fmt.Errorf("%w: invalid report file name %q", shared.ErrInvalidArgument, file)
	}

	resp, err := h.http.R().
		SetContext(ctx).
		SetHeader("Accept", "*/*").
		Get("/download/" + url.PathEscape(file))
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return "", fmt.Errorf("%w: %s", shared.ErrReportNotFound, file)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode())
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	dest := filepath.Join(dir, name)
	if err := os.WriteFile(dest, resp.Body(), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return dest, nil
}
