// Command chesscom-proxy exposes the chess.com client over HTTP, with
// Prometheus metrics and structured logging.
package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chess-guru/chesscom-client/pkg/client"
	"github.com/chess-guru/chesscom-client/pkg/logging"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: getEnv("LOG_PRETTY", "") == "true",
		Output: os.Stderr,
	})

	userAgent := getEnv("USER_AGENT", client.DefaultUserAgent)
	port := getEnv("PORT", "8080")

	cfg := client.DefaultConfig(userAgent)
	cfg.Logger = &logger
	if v := getEnv("MAX_CONCURRENCY", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			logger.Fatal().Str("value", v).Msg("Invalid MAX_CONCURRENCY")
		}
		cfg.MaxConcurrency = n
	}

	api, err := client.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create chess.com client")
	}

	addr := ":" + port
	logger.Info().
		Str("addr", addr).
		Str("user_agent", userAgent).
		Msg("Starting chess.com proxy server")

	if err := http.ListenAndServe(addr, newRouter(api)); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

// newRouter wires the proxy routes around a client.
func newRouter(api *client.Client) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", healthHandler)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/player/{username}", playerHandler(api))
	r.Get("/player/{username}/stats", statsHandler(api))
	r.Get("/player/{username}/archives", archivesHandler(api))
	r.Get("/player/{username}/games", gamesHandler(api))
	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func playerHandler(api *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := api.GetPlayer(r.Context(), chi.URLParam(r, "username"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, profile)
	}
}

func statsHandler(api *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := api.GetPlayerStats(r.Context(), chi.URLParam(r, "username"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, stats)
	}
}

func archivesHandler(api *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		archives, err := api.GetArchives(r.Context(), chi.URLParam(r, "username"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]any{"archives": archives})
	}
}

func gamesHandler(api *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := client.GamesRequest{
			Username: chi.URLParam(r, "username"),
			ParsePGN: r.URL.Query().Get("pgn") == "true",
		}

		var err error
		if req.From, err = parseTimeParam(r, "from"); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.To, err = parseTimeParam(r, "to"); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if v := r.URL.Query().Get("concurrency"); v != "" {
			n, convErr := strconv.Atoi(v)
			if convErr != nil || n <= 0 {
				http.Error(w, "concurrency must be a positive integer", http.StatusBadRequest)
				return
			}
			req.MaxConcurrency = n
		}

		result, err := api.GetGames(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, result)
	}
}

// parseTimeParam reads an optional RFC3339 query parameter.
func parseTimeParam(r *http.Request, name string) (*time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, errors.New(name + " must be RFC3339")
	}
	return &t, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode response", http.StatusInternalServerError)
	}
}

// writeError maps client errors onto proxy responses: upstream 4xx pass
// through, everything else is a bad gateway.
func writeError(w http.ResponseWriter, err error) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		http.Error(w, apiErr.Message, apiErr.StatusCode)
		return
	}
	http.Error(w, err.Error(), http.StatusBadGateway)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
