// package testing contains shared testing utilities
package testing

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/reportctl/internal/models"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// Backend is an httptest stand-in for the report service.
//
// /progress writes Frames as SSE messages, then either ends the response (Hang false) or holds it open
// until the client goes away.
type Backend struct {
	*httptest.Server

	mu            sync.Mutex
	GenerateCode  int
	GenerateBody  string
	Frames        []string
	Hang          bool
	ProgressCode  int
	History       any
	HistoryCode   int
	Files         map[string]string
	LastGenerate  map[string]string
	generateCalls atomic.Int32
	progressCalls atomic.Int32
	historyCalls  atomic.Int32
}

// NewBackend starts a Backend that accepts every job and serves an empty history.
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{
		GenerateCode: http.StatusOK,
		ProgressCode: http.StatusOK,
		HistoryCode:  http.StatusOK,
		History:      []models.HistoryEntry{},
		Files:        map[string]string{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /generate", b.generate)
	mux.HandleFunc("GET /progress", b.progress)
	mux.HandleFunc("GET /history", b.history)
	mux.HandleFunc("GET /download/{file}", b.download)

	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Server.Close)
	return b
}

func (b *Backend) GenerateCalls() int { return int(b.generateCalls.Load()) }
func (b *Backend) ProgressCalls() int { return int(b.progressCalls.Load()) }
func (b *Backend) HistoryCalls() int  { return int(b.historyCalls.Load()) }

// Set runs fn with the backend locked so handlers see a consistent configuration.
func (b *Backend) Set(fn func(b *Backend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

func (b *Backend) generate(w http.ResponseWriter, r *http.Request) {
	b.generateCalls.Add(1)
	b.mu.Lock()
	code, body := b.GenerateCode, b.GenerateBody
	var req map[string]string
	_ = json.NewDecoder(r.Body).Decode(&req)
	b.LastGenerate = req
	b.mu.Unlock()

	w.WriteHeader(code)
	fmt.Fprint(w, body)
}

func (b *Backend) progress(w http.ResponseWriter, r *http.Request) {
	b.progressCalls.Add(1)
	b.mu.Lock()
	code, frames, hang := b.ProgressCode, append([]string(nil), b.Frames...), b.Hang
	b.mu.Unlock()

	if code != http.StatusOK {
		w.WriteHeader(code)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	for _, f := range frames {
		for _, line := range strings.Split(f, "\n") {
			fmt.Fprintf(w, "data: %s\n", line)
		}
		fmt.Fprint(w, "\n")
		if flusher != nil {
			flusher.Flush()
		}
	}

	if hang {
		<-r.Context().Done()
	}
}

func (b *Backend) history(w http.ResponseWriter, r *http.Request) {
	b.historyCalls.Add(1)
	b.mu.Lock()
	code, history := b.HistoryCode, b.History
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if raw, ok := history.(string); ok {
		fmt.Fprint(w, raw)
		return
	}
	_ = json.NewEncoder(w).Encode(history)
}

func (b *Backend) download(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	content, ok := b.Files[r.PathValue("file")]
	b.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	fmt.Fprint(w, content)
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
