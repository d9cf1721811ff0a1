package updater

import (
	"fmt"
	"strings"
	"time"
)

// Interval is how often auto-update checks run.
type Interval string

const (
	IntervalManual  Interval = "manual"
	IntervalDaily   Interval = "daily"
	IntervalWeekly  Interval = "weekly"
	IntervalMonthly Interval = "monthly"
)

// Intervals lists the accepted interval names.
var Intervals = []Interval{IntervalManual, IntervalDaily, IntervalWeekly, IntervalMonthly}

// ParseInterval validates an interval name.
func ParseInterval(s string) (Interval, error) {
	iv := Interval(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Intervals {
		if iv == known {
			return iv, nil
		}
	}
	return "", fmt.Errorf("invalid interval %q: expected one of manual, daily, weekly, monthly", s)
}

// Duration returns the length of the interval. Manual has none.
func (iv Interval) Duration() (time.Duration, bool) {
	switch iv {
	case IntervalDaily:
		return 24 * time.Hour, true
	case IntervalWeekly:
		return 7 * 24 * time.Hour, true
	case IntervalMonthly:
		return 30 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// Schedule is the auto-update configuration.
type Schedule struct {
	Enabled  bool
	Interval Interval
}

// IsDue reports whether a check should run: the schedule is enabled, the
// interval is not manual, and at least one interval has elapsed since
// lastCheck. A zero lastCheck counts as never checked.
func (s Schedule) IsDue(lastCheck, now time.Time) bool {
	if !s.Enabled {
		return false
	}
	d, ok := s.Interval.Duration()
	if !ok {
		return false
	}
	if lastCheck.IsZero() {
		return true
	}
	return now.Sub(lastCheck) >= d
}

// NextCheck returns when the next check becomes due, or zero if never.
func (s Schedule) NextCheck(lastCheck time.Time) time.Time {
	d, ok := s.Interval.Duration()
	if !s.Enabled || !ok {
		return time.Time{}
	}
	if lastCheck.IsZero() {
		return lastCheck
	}
	return lastCheck.Add(d)
}
