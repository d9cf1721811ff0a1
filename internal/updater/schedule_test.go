package updater

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestScheduleIsDue(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		schedule  Schedule
		lastCheck time.Time
		want      bool
	}{
		{"just checked", Schedule{true, IntervalDaily}, now, false},
		{"daily elapsed", Schedule{true, IntervalDaily}, now.Add(-24 * time.Hour), true},
		{"daily not yet", Schedule{true, IntervalDaily}, now.Add(-23 * time.Hour), false},
		{"weekly elapsed", Schedule{true, IntervalWeekly}, now.Add(-8 * 24 * time.Hour), true},
		{"weekly not yet", Schedule{true, IntervalWeekly}, now.Add(-6 * 24 * time.Hour), false},
		{"monthly elapsed", Schedule{true, IntervalMonthly}, now.Add(-31 * 24 * time.Hour), true},
		{"never checked", Schedule{true, IntervalWeekly}, time.Time{}, true},
		{"manual never due", Schedule{true, IntervalManual}, now.Add(-365 * 24 * time.Hour), false},
		{"disabled never due", Schedule{false, IntervalDaily}, now.Add(-365 * 24 * time.Hour), false},
		{"disabled never checked", Schedule{false, IntervalDaily}, time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.schedule.IsDue(tt.lastCheck, now); got != tt.want {
				t.Errorf("IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseInterval(t *testing.T) {
	for _, s := range []string{"manual", "Daily", " weekly ", "MONTHLY"} {
		if _, err := ParseInterval(s); err != nil {
			t.Errorf("ParseInterval(%q) error: %v", s, err)
		}
	}
	if _, err := ParseInterval("hourly"); err == nil {
		t.Error("expected error for hourly")
	}
}

func TestNextCheck(t *testing.T) {
	last := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	s := Schedule{Enabled: true, Interval: IntervalWeekly}
	if got := s.NextCheck(last); !got.Equal(last.Add(7 * 24 * time.Hour)) {
		t.Errorf("NextCheck = %v", got)
	}
	if got := (Schedule{Enabled: false, Interval: IntervalWeekly}).NextCheck(last); !got.IsZero() {
		t.Errorf("disabled NextCheck = %v, want zero", got)
	}
}

func TestStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "update-state.json")

	st, err := LoadState(path)
	if err != nil {
		t.Fatalf("LoadState on missing file: %v", err)
	}
	if !st.LastCheck.IsZero() {
		t.Error("expected zero LastCheck for missing file")
	}

	now := time.Now().UTC().Truncate(time.Second)
	if err := SaveState(path, &State{LastCheck: now, LastResult: "updated", CLIVersion: "1.2.0"}); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}
	loaded, err := LoadState(path)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if !loaded.LastCheck.Equal(now) || loaded.LastResult != "updated" || loaded.CLIVersion != "1.2.0" {
		t.Errorf("loaded state = %+v", loaded)
	}
}

func TestLoadStateCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "update-state.json")
	os.WriteFile(path, []byte("{not json"), 0644)
	if _, err := LoadState(path); err == nil {
		t.Error("expected parse error")
	}
}
