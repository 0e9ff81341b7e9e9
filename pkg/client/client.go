// Package client provides the core chess.com Public API client with
// retry logic, error classification, and concurrent archive fetching.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the root of the chess.com Public API.
const DefaultBaseURL = "https://api.chess.com/pub"

// DefaultUserAgent identifies the library when the host application does
// not set its own User-Agent. Applications should override it with their
// own identifier and contact address.
const DefaultUserAgent = "chesscom-client/0.1.0"

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chesscom_requests_total",
		Help: "Total chess.com API requests by operation and status",
	}, []string{"operation", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chesscom_request_duration_seconds",
		Help:    "chess.com API request duration in seconds by operation",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"operation"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chesscom_errors_total",
		Help: "Total chess.com API errors by class",
	}, []string{"class"})
)

// Client is the chess.com Public API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root. Defaults to DefaultBaseURL.
	BaseURL string

	// UserAgent header sent with every request.
	// Format: "AppName/Version (contact@example.com)"
	UserAgent string

	// Timeout applied to each individual HTTP request.
	Timeout time.Duration

	// Headers are extra headers merged into the defaults. Keys given here
	// override the defaults, including User-Agent and Accept.
	Headers map[string]string

	// MaxConcurrency caps simultaneous in-flight archive fetches in GetGames.
	MaxConcurrency int

	// Retry controls backoff behavior for transient failures.
	Retry RetryConfig

	// HTTPClient is the underlying HTTP session. It is owned by the caller
	// and never reconfigured by the client. Defaults to a fresh client.
	HTTPClient *http.Client

	// Logger receives diagnostic output. Defaults to a no-op logger; the
	// library never writes anywhere unless the host opts in.
	Logger *zerolog.Logger
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		UserAgent:      userAgent,
		Timeout:        20 * time.Second,
		MaxConcurrency: 10,
		Retry:          DefaultRetryConfig(),
	}
}

// New creates a new chess.com API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", cfg.BaseURL, err)
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.MaxConcurrency < 0 {
		return nil, fmt.Errorf("max_concurrency must be >= 0 (got %d)", cfg.MaxConcurrency)
	}
	if cfg.MaxConcurrency == 0 {
		cfg.MaxConcurrency = 10
	}

	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = DefaultRetryConfig().MaxAttempts
	}
	if cfg.Retry.InitialBackoff <= 0 {
		cfg.Retry.InitialBackoff = DefaultRetryConfig().InitialBackoff
	}
	if cfg.Retry.MaxBackoff <= 0 {
		cfg.Retry.MaxBackoff = DefaultRetryConfig().MaxBackoff
	}
	if cfg.Retry.BackoffMultiplier <= 1 {
		cfg.Retry.BackoffMultiplier = DefaultRetryConfig().BackoffMultiplier
	}

	headers := map[string]string{
		"User-Agent": cfg.UserAgent,
		"Accept":     "application/json",
	}
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "chesscom-client").Logger()
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		headers:    headers,
		config:     cfg,
		logger:     logger,
	}, nil
}

// BaseURL returns the normalized API root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetPlayer fetches public profile information for a chess.com user.
func (c *Client) GetPlayer(ctx context.Context, username string) (map[string]any, error) {
	var out map[string]any
	err := c.get(ctx, "player", c.playerURL(username, ""), &out)
	return out, err
}

// GetPlayerStats fetches a player's current stats.
func (c *Client) GetPlayerStats(ctx context.Context, username string) (map[string]any, error) {
	var out map[string]any
	err := c.get(ctx, "player_stats", c.playerURL(username, "stats"), &out)
	return out, err
}

// GetGamesToMove fetches the daily games where it is the player's turn to
// move at the time of the query.
func (c *Client) GetGamesToMove(ctx context.Context, username string) (map[string]any, error) {
	var out map[string]any
	err := c.get(ctx, "games_to_move", c.playerURL(username, "games/to-move"), &out)
	return out, err
}

// GetTournaments fetches the tournaments a player has participated in.
func (c *Client) GetTournaments(ctx context.Context, username string) (map[string]any, error) {
	var out map[string]any
	err := c.get(ctx, "tournaments", c.playerURL(username, "tournaments"), &out)
	return out, err
}

type archivesResponse struct {
	Archives []string `json:"archives"`
}

// GetArchives fetches the list of monthly game archive URLs for a chess.com
// user. The upstream list is chronological and the order is preserved.
func (c *Client) GetArchives(ctx context.Context, username string) ([]string, error) {
	var out archivesResponse
	if err := c.get(ctx, "archives", c.playerURL(username, "games/archives"), &out); err != nil {
		return nil, err
	}
	return out.Archives, nil
}

// playerURL builds an endpoint URL under /player/<username>.
func (c *Client) playerURL(username, suffix string) string {
	u := c.baseURL + "/player/" + url.PathEscape(username)
	if suffix != "" {
		u += "/" + suffix
	}
	return u
}

// get performs a GET request through the retry policy and decodes the JSON
// response into out.
func (c *Client) get(ctx context.Context, operation, rawURL string, out any) error {
	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	return retryWithBackoff(ctx, c.config.Retry, c.logger, func() error {
		return c.doOnce(ctx, operation, rawURL, out)
	})
}

// doOnce performs a single request attempt. Every failure is wrapped in an
// *APIError carrying its classification so the retry policy can decide
// whether the attempt is worth repeating.
func (c *Client) doOnce(ctx context.Context, operation, rawURL string, out any) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &APIError{ErrorClass: ErrorClassClient, Message: "create request", Err: err}
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	c.logger.Debug().
		Str("operation", operation).
		Str("url", rawURL).
		Msg("Executing chess.com request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues(operation, "network_error").Inc()
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return &APIError{ErrorClass: ErrorClassNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errClass := classifyStatus(resp.StatusCode)
		requestsTotal.WithLabelValues(operation, fmt.Sprintf("%d", resp.StatusCode)).Inc()
		errorsTotal.WithLabelValues(string(errClass)).Inc()

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Warn().
			Str("operation", operation).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("chess.com request error")

		return &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	requestsTotal.WithLabelValues(operation, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassMalformed)).Inc()
		return &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassMalformed,
			Message:    "decode response",
			Err:        err,
		}
	}

	return nil
}
