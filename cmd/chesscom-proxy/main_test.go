package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/chess-guru/chesscom-client/internal/testutil"
	"github.com/chess-guru/chesscom-client/pkg/client"
)

// setupProxy builds the proxy router around a mock chess.com server.
func setupProxy(t *testing.T) (*testutil.MockChessCom, *httptest.Server) {
	t.Helper()

	mock := testutil.NewMockChessCom()
	t.Cleanup(mock.Close)

	cfg := client.DefaultConfig("chesscom-proxy-test/1.0.0")
	cfg.BaseURL = mock.URL()
	cfg.Retry = client.RetryConfig{
		MaxAttempts:       2,
		InitialBackoff:    5 * time.Millisecond,
		MaxBackoff:        20 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}

	api, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	proxy := httptest.NewServer(newRouter(api))
	t.Cleanup(proxy.Close)

	return mock, proxy
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Read body failed: %v", err)
	}
	return resp, string(body)
}

func TestHealthEndpoint(t *testing.T) {
	_, proxy := setupProxy(t)

	resp, body := get(t, proxy.URL+"/health")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}
	if body != "OK" {
		t.Errorf("Body = %q, want OK", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, proxy := setupProxy(t)

	resp, body := get(t, proxy.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Error("Expected prometheus runtime metrics in /metrics output")
	}
}

func TestPlayerEndpoint(t *testing.T) {
	mock, proxy := setupProxy(t)

	mock.SetResponse("/player/hikaru", testutil.NewHealthyResponse(
		`{"username": "hikaru", "title": "GM"}`))

	resp, body := get(t, proxy.URL+"/player/hikaru")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Status = %d, want 200 (body %q)", resp.StatusCode, body)
	}

	var profile map[string]any
	if err := json.Unmarshal([]byte(body), &profile); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if profile["username"] != "hikaru" {
		t.Errorf("username = %v, want hikaru", profile["username"])
	}
}

func TestPlayerEndpoint_UpstreamClientErrorPassesThrough(t *testing.T) {
	mock, proxy := setupProxy(t)

	mock.SetResponse("/player/ghost", testutil.NewNotFoundResponse())

	resp, _ := get(t, proxy.URL+"/player/ghost")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Status = %d, want 404 passed through", resp.StatusCode)
	}
}

func TestGamesEndpoint(t *testing.T) {
	mock, proxy := setupProxy(t)

	et := time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC).Unix()
	archivePath := "/player/hikaru/games/2024/06"
	mock.SetResponse("/player/hikaru/games/archives",
		testutil.NewHealthyResponse(mock.ArchivesBody(archivePath)))
	mock.SetResponse(archivePath, testutil.NewHealthyResponse(
		`{"games": [{"end_time": `+strconv.FormatInt(et, 10)+`}]}`))

	resp, body := get(t, proxy.URL+"/player/hikaru/games?from=2024-06-01T00:00:00Z&to=2024-06-30T00:00:00Z")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Status = %d, want 200 (body %q)", resp.StatusCode, body)
	}

	var result struct {
		Username string            `json:"username"`
		Archives []string          `json:"archives"`
		Errors   map[string]string `json:"errors"`
	}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if result.Username != "hikaru" {
		t.Errorf("username = %q, want hikaru", result.Username)
	}
	if len(result.Archives) != 1 {
		t.Errorf("archives = %v, want one entry", result.Archives)
	}
	if len(result.Errors) != 0 {
		t.Errorf("errors = %v, want none", result.Errors)
	}
}

func TestGamesEndpoint_BadTimeParam(t *testing.T) {
	_, proxy := setupProxy(t)

	resp, _ := get(t, proxy.URL+"/player/hikaru/games?from=june-the-first")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", resp.StatusCode)
	}
}

func TestGamesEndpoint_BadConcurrencyParam(t *testing.T) {
	_, proxy := setupProxy(t)

	resp, _ := get(t, proxy.URL+"/player/hikaru/games?concurrency=zero")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", resp.StatusCode)
	}
}
