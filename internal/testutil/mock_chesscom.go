// Package testutil provides testing utilities for the chess.com client.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock chess.com endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockChessCom is a configurable mock chess.com Public API server for testing.
type MockChessCom struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	PathCounts        map[string]int
	LastRequestHeader http.Header
}

// NewMockChessCom creates a new mock chess.com server.
func NewMockChessCom() *MockChessCom {
	mock := &MockChessCom{
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		PathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.PathCounts[r.URL.Path]++
		mock.LastRequestHeader = r.Header.Clone()
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		// Default: empty JSON document
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockChessCom) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockChessCom) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockChessCom) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.PathCounts = make(map[string]int)
	m.LastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockChessCom) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockChessCom) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		if resp.Headers["Content-Type"] == "" {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockChessCom) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetPathCount returns the number of requests made to a specific path.
func (m *MockChessCom) GetPathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PathCounts[path]
}

// ArchivesBody builds an archive-list body from month paths relative to
// the mock server root, e.g. "/player/magnus/games/2024/01".
func (m *MockChessCom) ArchivesBody(paths ...string) string {
	urls := make([]string, len(paths))
	for i, p := range paths {
		urls[i] = fmt.Sprintf("%q", m.server.URL+p)
	}
	return fmt.Sprintf(`{"archives": [%s]}`, strings.Join(urls, ", "))
}

// NewHealthyResponse creates a standard 200 OK JSON response.
func NewHealthyResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"message": "Rate limit exceeded"}`,
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message": "Internal server error"}`,
	}
}

// NewNotFoundResponse creates a 404 Not Found response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"code": 0, "message": "User not found"}`,
	}
}

// NewFlakyHandler creates a handler that fails with failStatus for the
// first failures requests to its path, then serves body with 200 OK.
func NewFlakyHandler(failures int, failStatus int, body string) func(w http.ResponseWriter, r *http.Request) {
	var mu sync.Mutex
	served := 0
	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		served++
		n := served
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if n <= failures {
			w.WriteHeader(failStatus)
			w.Write([]byte(`{"message": "transient failure"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	}
}
