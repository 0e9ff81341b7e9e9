package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chess-guru/chesscom-client/pkg/archive"
	"github.com/chess-guru/chesscom-client/pkg/pgn"
)

// GamesRequest describes one GetGames invocation.
type GamesRequest struct {
	// Username is the chess.com username. Required.
	Username string

	// From is the optional lower bound on game end time. Bounds in any
	// zone are normalized to UTC.
	From *time.Time

	// To is the optional upper bound on game end time.
	To *time.Time

	// MaxConcurrency overrides the client's archive fetch concurrency cap
	// for this call. Zero uses the client default.
	MaxConcurrency int

	// ParsePGN annotates each kept game with a parsed_pgn document
	// (headers, terminal result, per-move clocks). Parse failures are
	// logged at debug level and leave the game unannotated.
	ParsePGN bool
}

// GamesResult is the aggregate outcome of one GetGames call.
//
// Archives always equals the union of the Months and Errors keys: every
// archive surviving the month filter lands in exactly one of the two maps.
type GamesResult struct {
	Username string `json:"username"`

	// Archives is the month-filtered archive URL list, preserving the
	// chronological order of the upstream archive list.
	Archives []string `json:"archives"`

	// Months maps archive URL to its fetched payload. The payload's
	// "games" sequence is filtered by game end time; all other payload
	// fields pass through unchanged.
	Months map[string]map[string]any `json:"months"`

	// Errors maps archive URL to a description of why its fetch failed.
	Errors map[string]string `json:"errors"`

	// From and To are the normalized UTC bounds used, nil when unbounded.
	From *time.Time `json:"from_ts,omitempty"`
	To   *time.Time `json:"to_ts,omitempty"`
}

// GetGames fetches a user's games from monthly archives, optionally
// filtered by time range.
//
// The archive list is fetched first (fatal on failure), narrowed by a
// conservative month-granularity window test, then each surviving archive
// is fetched concurrently under the concurrency cap, each fetch going
// through the retry policy independently. One archive's failure never
// aborts the batch: it is recorded in the result's Errors map instead.
// Games inside each fetched payload are filtered by end time against the
// same window.
func (c *Client) GetGames(ctx context.Context, req GamesRequest) (*GamesResult, error) {
	if req.Username == "" {
		return nil, fmt.Errorf("username is required")
	}

	win := archive.NewWindow(req.From, req.To)
	if win.From != nil && win.To != nil && win.From.After(*win.To) {
		return nil, fmt.Errorf("from_ts must be <= to_ts")
	}

	maxConcurrency := req.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = c.config.MaxConcurrency
	}

	archives, err := c.GetArchives(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("fetch archive list: %w", err)
	}

	filtered := c.filterArchives(archives, win)

	c.logger.Info().
		Str("username", req.Username).
		Int("archives", len(archives)).
		Int("filtered", len(filtered)).
		Int("max_concurrency", maxConcurrency).
		Msg("Starting archive fetch")

	months := make(map[string]map[string]any, len(filtered))
	failures := make(map[string]string)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	for _, archiveURL := range filtered {
		archiveURL := archiveURL
		g.Go(func() error {
			var payload map[string]any
			if err := c.get(gctx, "month", archiveURL, &payload); err != nil {
				c.logger.Warn().
					Err(err).
					Str("archive", archiveURL).
					Msg("Month fetch failed")
				mu.Lock()
				failures[archiveURL] = err.Error()
				mu.Unlock()
				return nil
			}

			c.filterGames(payload, win, req.ParsePGN)

			mu.Lock()
			months[archiveURL] = payload
			mu.Unlock()
			return nil
		})
	}

	// Workers never return errors; Wait is a join point.
	_ = g.Wait()

	// Host cancellation abandons the batch without a partial result.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("username", req.Username).
		Int("months", len(months)).
		Int("errors", len(failures)).
		Msg("Archive fetch complete")

	return &GamesResult{
		Username: req.Username,
		Archives: filtered,
		Months:   months,
		Errors:   failures,
		From:     win.From,
		To:       win.To,
	}, nil
}

// filterArchives applies the month-granularity window test, preserving the
// upstream order. Archive URLs whose year/month cannot be parsed are kept:
// the month filter may only drop months that provably fall outside the
// window.
func (c *Client) filterArchives(archives []string, win archive.Window) []string {
	if win.IsZero() {
		return archives
	}

	filtered := make([]string, 0, len(archives))
	for _, u := range archives {
		year, month, err := archive.ParseYearMonth(u)
		if err != nil {
			c.logger.Debug().
				Err(err).
				Str("archive", u).
				Msg("Unparseable archive URL kept in window")
			filtered = append(filtered, u)
			continue
		}
		if win.MonthInRange(year, month) {
			filtered = append(filtered, u)
		}
	}
	return filtered
}

// filterGames replaces the payload's "games" sequence with the games whose
// end time falls inside the window, annotating with parsed PGN on request.
// All other payload fields are left untouched.
func (c *Client) filterGames(payload map[string]any, win archive.Window, parsePGN bool) {
	raw, ok := payload["games"].([]any)
	if !ok {
		payload["games"] = []any{}
		return
	}

	kept := make([]any, 0, len(raw))
	for _, item := range raw {
		game, ok := item.(map[string]any)
		if !ok {
			continue
		}

		if !win.IsZero() {
			endTime, ok := gameEndTime(game)
			if !ok {
				continue
			}
			if !win.GameInRange(endTime) {
				continue
			}
		}

		if parsePGN {
			if text, ok := game["pgn"].(string); ok && text != "" {
				parsed, err := pgn.Parse(text)
				if err != nil {
					c.logger.Debug().Err(err).Msg("PGN parse failed for game")
				} else {
					game["parsed_pgn"] = parsed
				}
			}
		}

		kept = append(kept, game)
	}

	payload["games"] = kept
}

// gameEndTime extracts the end_time epoch seconds from a decoded game
// document.
func gameEndTime(game map[string]any) (int64, bool) {
	switch v := game["end_time"].(type) {
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
