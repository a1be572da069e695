package domain

import (
	"fmt"
	"strings"
	"time"
)

// StatsWindows holds the local-midnight start of each reporting window.
type StatsWindows struct {
	Today time.Time
	Week  time.Time
	Month time.Time
}

// BlockStats are blocked-call counts per reporting window.
type BlockStats struct {
	Today int `json:"today"`
	Week  int `json:"week"`
	Month int `json:"month"`
}

// WindowsAt computes the reporting windows containing now, in now's location.
// firstDay is the first day of the calendar week.
func WindowsAt(now time.Time, firstDay time.Weekday) StatsWindows {
	y, m, d := now.Date()
	loc := now.Location()
	back := (int(now.Weekday()) - int(firstDay) + 7) % 7
	return StatsWindows{
		Today: time.Date(y, m, d, 0, 0, 0, 0, loc),
		Week:  time.Date(y, m, d-back, 0, 0, 0, 0, loc),
		Month: time.Date(y, m, 1, 0, 0, 0, 0, loc),
	}
}

// ParseWeekday converts an English weekday name ("monday", "Sun", ...) to a time.Weekday.
func ParseWeekday(s string) (time.Weekday, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if len(v) >= 3 {
		for d := time.Sunday; d <= time.Saturday; d++ {
			name := strings.ToLower(d.String())
			if v == name || v == name[:3] {
				return d, nil
			}
		}
	}
	return 0, fmt.Errorf("unsupported weekday: %q", s)
}
