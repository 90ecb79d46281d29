// API service for the report backend's generate and progress endpoints
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	sse "github.com/tmaxmax/go-sse"

	"github.com/desertthunder/reportctl/internal/models"
	"github.com/desertthunder/reportctl/internal/shared"
)

// APIService makes raw HTTP requests to the report backend.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

var _ ReportService = (*APIService)(nil)

// NewAPIService creates a new API service instance for the report backend.
//
// timeout bounds Generate only; zero means no timeout.
// The client must not set [http.Client.Timeout], which would cut the progress stream.
func NewAPIService(baseURL string, client *http.Client, timeout time.Duration) *APIService {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8000"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		timeout:    timeout,
	}
}

// BaseURL returns the backend URL requests are made against.
func (a *APIService) BaseURL() string { return a.baseURL }

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}, nil
}

// Generate submits a report job. The response body is ignored; progress arrives on the stream.
func (a *APIService) Generate(ctx context.Context, r models.DateRange) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("%w: failed to encode request: %v", shared.ErrAPIRequest, err)
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	resp, err := a.Post(ctx, "/generate", payload)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	if !resp.OK() {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, strings.TrimSpace(string(resp.Body)))
	}
	return nil
}

// OpenProgress issues GET /progress and returns once response headers arrive.
func (a *APIService) OpenProgress(ctx context.Context) (Stream, error) {
	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/progress", nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: failed to create request: %v", shared.ErrTransport, err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", shared.ErrTransport, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: status %d", shared.ErrTransport, resp.StatusCode)
	}

	if mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err != nil || mt != "text/event-stream" {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: unexpected content type %q", shared.ErrTransport, resp.Header.Get("Content-Type"))
	}

	return newProgressStream(resp.Body, cancel), nil
}

// maxEventSize bounds one event on the progress stream. A larger event ends the stream with an error.
const maxEventSize = 1 << 20

// ProgressStream is a [Stream] over an SSE response body.
//
// Only events without a type or with the "message" type are returned, and events with no data are skipped.
type ProgressStream struct {
	body   io.ReadCloser
	cancel context.CancelFunc
	events chan streamEvent
	done   chan struct{}
	once   sync.Once
	err    error
}

type streamEvent struct {
	data []byte
	err  error
}

// NewProgressStream wraps an already-open event stream body.
func NewProgressStream(body io.ReadCloser) *ProgressStream {
	return newProgressStream(body, func() {})
}

func newProgressStream(body io.ReadCloser, cancel context.CancelFunc) *ProgressStream {
	s := &ProgressStream{
		body:   body,
		cancel: cancel,
		events: make(chan streamEvent),
		done:   make(chan struct{}),
	}
	go s.read()
	return s
}

func (s *ProgressStream) read() {
	defer close(s.events)

	for ev, err := range sse.Read(s.body, &sse.ReadConfig{MaxEventSize: maxEventSize}) {
		if err != nil {
			s.forward(streamEvent{err: err})
			return
		}
		if ev.Type != "" && ev.Type != "message" {
			continue
		}
		if ev.Data == "" {
			continue
		}
		if !s.forward(streamEvent{data: []byte(ev.Data)}) {
			return
		}
	}
}

func (s *ProgressStream) forward(ev streamEvent) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

// Recv implements [Stream]. It returns [io.EOF] once the body ends cleanly.
func (s *ProgressStream) Recv() ([]byte, error) {
	select {
	case ev, ok := <-s.events:
		if !ok {
			return nil, io.EOF
		}
		return ev.data, ev.err
	case <-s.done:
		return nil, net.ErrClosed
	}
}

// Close implements [Stream].
func (s *ProgressStream) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.cancel()
		s.err = s.body.Close()
	})
	return s.err
}
