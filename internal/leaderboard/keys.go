package leaderboard

import (
	"fmt"
	"time"
)

// DateKey returns the daily bucket key (YYYY-MM-DD) for t in its own location.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// WeekKey returns the weekly bucket key (YYYY-Www) using ISO week numbering.
// The ISO year is used so keys sort chronologically across year boundaries.
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}
