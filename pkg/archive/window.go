package archive

import "time"

// Window is an optional time range. A nil bound leaves that side
// unbounded and never excludes anything.
type Window struct {
	From *time.Time
	To   *time.Time
}

// NewWindow builds a normalized window from optional bounds.
func NewWindow(from, to *time.Time) Window {
	return Window{From: from, To: to}.Normalize()
}

// Normalize converts both bounds to UTC. Bounds carrying another zone
// are converted to the same instant in UTC; Go carries no zone-less
// timestamps, so there is nothing else to attach.
func (w Window) Normalize() Window {
	out := Window{}
	if w.From != nil {
		from := w.From.UTC()
		out.From = &from
	}
	if w.To != nil {
		to := w.To.UTC()
		out.To = &to
	}
	return out
}

// IsZero reports whether the window is unbounded on both sides.
func (w Window) IsZero() bool {
	return w.From == nil && w.To == nil
}

// MonthInRange reports whether any part of the given calendar month (UTC)
// overlaps the window. The test is deliberately conservative: a month is
// only excluded when it provably cannot contain an in-window game.
func (w Window) MonthInRange(year, month int) bool {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)

	if w.From != nil && end.Before(*w.From) {
		return false
	}
	if w.To != nil && start.After(*w.To) {
		return false
	}
	return true
}

// GameInRange reports whether a game's end time (unix seconds, UTC) falls
// inside the window. Both bounds are inclusive.
func (w Window) GameInRange(endTime int64) bool {
	t := time.Unix(endTime, 0).UTC()

	if w.From != nil && t.Before(*w.From) {
		return false
	}
	if w.To != nil && t.After(*w.To) {
		return false
	}
	return true
}
