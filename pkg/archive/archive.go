// Package archive provides monthly archive references and time window
// filtering for chess.com game archives.
//
// A chess.com archive URL addresses exactly one calendar month of a
// player's games:
//
//	https://api.chess.com/pub/player/<username>/games/<year>/<month>
//
// The upstream archive list is ordered chronologically and this package
// never reorders it.
package archive

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ParseYearMonth extracts the year and month encoded in an archive URL.
// The URL path must end in ".../<year>/<month>", optionally with a
// trailing slash.
func ParseYearMonth(archiveURL string) (year int, month int, err error) {
	u, err := url.Parse(archiveURL)
	if err != nil {
		return 0, 0, fmt.Errorf("parse archive url: %w", err)
	}

	parts := strings.Split(strings.TrimRight(u.Path, "/"), "/")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("archive url %q has no year/month segments", archiveURL)
	}

	year, err = strconv.Atoi(parts[len(parts)-2])
	if err != nil {
		return 0, 0, fmt.Errorf("archive url %q: invalid year: %w", archiveURL, err)
	}

	month, err = strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0, 0, fmt.Errorf("archive url %q: invalid month: %w", archiveURL, err)
	}

	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("archive url %q: month %d out of range", archiveURL, month)
	}

	return year, month, nil
}

// URLFor builds the archive URL for one calendar month of a player's games.
func URLFor(baseURL, username string, year, month int) string {
	return fmt.Sprintf("%s/player/%s/games/%d/%02d",
		strings.TrimRight(baseURL, "/"), url.PathEscape(username), year, month)
}
