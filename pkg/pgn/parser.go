// Package pgn parses chess.com PGN text into headers, the terminal
// result, and per-move SAN with embedded clock annotations.
package pgn

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	headerRe = regexp.MustCompile(`\[(\w+)\s+"([^"]*)"\]`)
	resultRe = regexp.MustCompile(`(1-0|0-1|1/2-1/2|\*)\s*$`)

	// One move with its optional {[%clk ...]} annotation. "N." introduces
	// white's move, "N..." black's, the way chess.com emits movetext.
	moveRe = regexp.MustCompile(`(\d+)(\.{3}|\.)\s*(\S+)(?:\s*\{\s*\[%clk\s+([0-9:.]+)\]\s*\})?`)
)

// Move is a single half-move.
type Move struct {
	SAN   string `json:"move"`
	Clock string `json:"clock,omitempty"`
}

// Round holds the white and black half-moves of one move number.
type Round struct {
	White *Move `json:"white,omitempty"`
	Black *Move `json:"black,omitempty"`
}

// Game is a parsed PGN document.
type Game struct {
	Headers map[string]string `json:"headers"`
	Result  string            `json:"result,omitempty"`
	Rounds  map[int]*Round    `json:"moves"`
}

// Parse splits a PGN document into its header section and movetext and
// parses both. The header and move sections must be separated by a blank
// line.
func Parse(text string) (*Game, error) {
	idx := strings.Index(text, "\n\n")
	if idx < 0 {
		return nil, fmt.Errorf("pgn has no header/movetext separator")
	}

	game := &Game{
		Headers: parseHeaders(text[:idx]),
		Rounds:  map[int]*Round{},
	}

	movetext := strings.TrimSpace(text[idx+2:])

	// Pull the terminal result off the very end
	if m := resultRe.FindStringSubmatchIndex(movetext); m != nil {
		game.Result = movetext[m[2]:m[3]]
		movetext = strings.TrimSpace(movetext[:m[0]])
	}

	for _, m := range moveRe.FindAllStringSubmatch(movetext, -1) {
		number, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}

		round := game.Rounds[number]
		if round == nil {
			round = &Round{}
			game.Rounds[number] = round
		}

		move := &Move{SAN: m[3], Clock: m[4]}
		if m[2] == "..." {
			round.Black = move
		} else {
			round.White = move
		}
	}

	return game, nil
}

// parseHeaders extracts PGN header tags into a map.
func parseHeaders(section string) map[string]string {
	out := map[string]string{}
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "[") {
			continue
		}
		m := headerRe.FindStringSubmatch(line)
		if len(m) == 3 {
			out[m[1]] = m[2]
		}
	}
	return out
}
