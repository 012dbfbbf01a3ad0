package timewindow

import (
	"strings"
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func TestParseISO(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"naive assumes utc", "2025-12-31T10:00:00", time.Date(2025, 12, 31, 10, 0, 0, 0, time.UTC), false},
		{"zulu suffix", "2025-12-31T10:00:00Z", time.Date(2025, 12, 31, 10, 0, 0, 0, time.UTC), false},
		{"offset normalized", "2025-12-31T12:30:00+02:30", time.Date(2025, 12, 31, 10, 0, 0, 0, time.UTC), false},
		{"space separator", "2025-12-31 10:00:00", time.Date(2025, 12, 31, 10, 0, 0, 0, time.UTC), false},
		{"fractional seconds", "2025-12-31T10:00:00.250", time.Date(2025, 12, 31, 10, 0, 0, 250000000, time.UTC), false},
		{"minutes only", "2025-12-31T10:00", time.Date(2025, 12, 31, 10, 0, 0, 0, time.UTC), false},
		{"date only", "2025-12-31", time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), false},
		{"garbage", "next tuesday", time.Time{}, true},
		{"empty", "", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseISO(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseISO(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && !got.Equal(tt.want) {
				t.Errorf("ParseISO(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRangeForDate(t *testing.T) {
	w, err := RangeForDate("2025-12-30")
	if err != nil {
		t.Fatalf("RangeForDate() error = %v", err)
	}
	wantStart := time.Date(2025, 12, 30, 0, 0, 0, 0, time.UTC)
	if !w.Start.Equal(wantStart) || !w.End.Equal(wantStart.AddDate(0, 0, 1)) {
		t.Errorf("RangeForDate() = %v, want [%v, +1d)", w, wantStart)
	}

	if _, err := RangeForDate("30/12/2025"); err == nil {
		t.Error("RangeForDate() accepted a non-ISO date")
	}
}

func TestRangeForHour(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantStart time.Time
		wantErr   bool
	}{
		{"hour selector", "2025-12-31T10", time.Date(2025, 12, 31, 10, 0, 0, 0, time.UTC), false},
		{"minutes truncated", "2025-12-31T10:30", time.Date(2025, 12, 31, 10, 0, 0, 0, time.UTC), false},
		{"offset shifted then truncated", "2025-12-31T10:15:00+05:30", time.Date(2025, 12, 31, 4, 0, 0, 0, time.UTC), false},
		{"not a timestamp", "ten o'clock", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := RangeForHour(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("RangeForHour(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if !w.Start.Equal(tt.wantStart) {
				t.Errorf("Start = %v, want %v", w.Start, tt.wantStart)
			}
			if !w.End.Equal(tt.wantStart.Add(time.Hour)) {
				t.Errorf("End = %v, want %v", w.End, tt.wantStart.Add(time.Hour))
			}
		})
	}
}

func TestRangeForWeek(t *testing.T) {
	w, err := RangeForWeek("2025-W52")
	if err != nil {
		t.Fatalf("RangeForWeek() error = %v", err)
	}
	wantStart := time.Date(2025, 12, 22, 0, 0, 0, 0, time.UTC)
	if !w.Start.Equal(wantStart) {
		t.Errorf("Start = %v, want %v (a Monday)", w.Start, wantStart)
	}
	if !w.End.Equal(wantStart.AddDate(0, 0, 7)) {
		t.Errorf("End = %v, want %v", w.End, wantStart.AddDate(0, 0, 7))
	}

	// 2026 has 53 ISO weeks, 2025 does not.
	if _, err := RangeForWeek("2026-W53"); err != nil {
		t.Errorf("RangeForWeek(2026-W53) error = %v", err)
	}
	if _, err := RangeForWeek("2025-W53"); err == nil {
		t.Error("RangeForWeek(2025-W53) accepted a week the year does not have")
	}
	if _, err := RangeForWeek("2025-52"); err == nil {
		t.Error("RangeForWeek() accepted a selector without the W marker")
	}
	if _, err := RangeForWeek("2025-W00"); err == nil {
		t.Error("RangeForWeek() accepted week zero")
	}
}

func TestRangeForMonth(t *testing.T) {
	w, err := RangeForMonth("2025-12")
	if err != nil {
		t.Fatalf("RangeForMonth() error = %v", err)
	}
	if !w.Start.Equal(time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Start = %v, want 2025-12-01", w.Start)
	}
	if !w.End.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("End = %v, want 2026-01-01 (year rollover)", w.End)
	}

	if _, err := RangeForMonth("2025-W52"); err == nil {
		t.Error("RangeForMonth() accepted a week selector")
	}
	if _, err := RangeForMonth("2025-13"); err == nil {
		t.Error("RangeForMonth() accepted month 13")
	}
}

func TestRangeForYear(t *testing.T) {
	w, err := RangeForYear("2025")
	if err != nil {
		t.Fatalf("RangeForYear() error = %v", err)
	}
	if !w.Start.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Start = %v, want 2025-01-01", w.Start)
	}
	if !w.End.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("End = %v, want 2026-01-01", w.End)
	}

	if _, err := RangeForYear("202"); err == nil {
		t.Error("RangeForYear() accepted a three-digit year")
	}
	if _, err := RangeForYear("2025-01"); err == nil {
		t.Error("RangeForYear() accepted a month selector")
	}
}

func TestResolvePrecedence(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	t.Run("date overrides since and until", func(t *testing.T) {
		w, err := Resolve(Selectors{
			Since: "2025-12-31T10:00:00Z",
			Until: "2025-12-31T11:00:00Z",
			Date:  "2025-12-30",
		}, now)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !w.Start.Equal(time.Date(2025, 12, 30, 0, 0, 0, 0, time.UTC)) ||
			!w.End.Equal(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("Resolve() = %v, want the full day 2025-12-30", w)
		}
	})

	t.Run("selector overrides lookback", func(t *testing.T) {
		w, err := Resolve(Selectors{Month: "2025-11", DaysLookback: intPtr(3)}, now)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !w.Start.Equal(time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("Start = %v, want 2025-11-01", w.Start)
		}
	})

	t.Run("lookback overrides since and until", func(t *testing.T) {
		w, err := Resolve(Selectors{
			HoursLookback: intPtr(6),
			Since:         "2020-01-01T00:00:00Z",
		}, now)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !w.Start.Equal(now.Add(-6 * time.Hour)) || !w.End.Equal(now) {
			t.Errorf("Resolve() = %v, want [now-6h, now)", w)
		}
	})
}

func TestResolveAmbiguity(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		sel  Selectors
	}{
		{"two convenience selectors", Selectors{Date: "2025-12-30", Hour: "2025-12-30T10"}},
		{"week and year", Selectors{Week: "2025-W52", Year: "2025"}},
		{"both lookbacks", Selectors{DaysLookback: intPtr(1), HoursLookback: intPtr(12)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Resolve(tt.sel, now); err == nil {
				t.Errorf("Resolve(%+v) succeeded, want ambiguity error", tt.sel)
			}
		})
	}
}

func TestResolveLookbacks(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	w, err := Resolve(Selectors{DaysLookback: intPtr(2)}, now)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !w.Start.Equal(now.Add(-48*time.Hour)) || !w.End.Equal(now) {
		t.Errorf("Resolve(days=2) = %v, want [now-48h, now)", w)
	}

	w, err = Resolve(Selectors{HoursLookback: intPtr(0)}, now)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !w.Start.Equal(now) || !w.End.Equal(now) {
		t.Errorf("Resolve(hours=0) = %v, want the empty window [now, now)", w)
	}

	if _, err := Resolve(Selectors{DaysLookback: intPtr(-1)}, now); err == nil {
		t.Error("Resolve() accepted a negative days_lookback")
	}
	if _, err := Resolve(Selectors{HoursLookback: intPtr(-5)}, now); err == nil {
		t.Error("Resolve() accepted a negative hours_lookback")
	}
}

func TestResolveExplicitBounds(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	t.Run("both bounds", func(t *testing.T) {
		w, err := Resolve(Selectors{
			Since: "2025-12-31T10:00:00Z",
			Until: "2025-12-31T11:00:00Z",
		}, now)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !w.Start.Equal(time.Date(2025, 12, 31, 10, 0, 0, 0, time.UTC)) ||
			!w.End.Equal(time.Date(2025, 12, 31, 11, 0, 0, 0, time.UTC)) {
			t.Errorf("Resolve() = %v", w)
		}
	})

	t.Run("until only leaves the past open", func(t *testing.T) {
		w, err := Resolve(Selectors{Until: "2025-12-31T11:00:00Z"}, now)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !w.Start.IsZero() {
			t.Errorf("Start = %v, want zero (unbounded)", w.Start)
		}
	})

	t.Run("since only ends at now", func(t *testing.T) {
		w, err := Resolve(Selectors{Since: "2026-01-09T00:00:00Z"}, now)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !w.End.Equal(now) {
			t.Errorf("End = %v, want now", w.End)
		}
	})

	t.Run("since equal to until is the empty window", func(t *testing.T) {
		w, err := Resolve(Selectors{
			Since: "2025-12-31T10:00:00Z",
			Until: "2025-12-31T10:00:00Z",
		}, now)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !w.Start.Equal(w.End) {
			t.Errorf("Resolve() = %v, want an empty window", w)
		}
	})

	t.Run("since after until fails", func(t *testing.T) {
		_, err := Resolve(Selectors{
			Since: "2025-12-31T11:00:00Z",
			Until: "2025-12-31T10:00:00Z",
		}, now)
		if err == nil {
			t.Fatal("Resolve() succeeded with since after until")
		}
		if !strings.Contains(err.Error(), "after") {
			t.Errorf("error %q does not name the ordering problem", err)
		}
	})

	t.Run("unparseable since", func(t *testing.T) {
		if _, err := Resolve(Selectors{Since: "yesterday"}, now); err == nil {
			t.Error("Resolve() accepted a non-ISO since")
		}
	})
}

func TestResolveDefault(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	w, err := Resolve(Selectors{}, now)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !w.Start.Equal(now.Add(-24*time.Hour)) || !w.End.Equal(now) {
		t.Errorf("Resolve(empty) = %v, want [now-24h, now)", w)
	}
}

func TestWindowContains(t *testing.T) {
	w := Window{
		Start: time.Date(2025, 12, 30, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"start is inclusive", w.Start, true},
		{"inside", w.Start.Add(12 * time.Hour), true},
		{"end is exclusive", w.End, false},
		{"before", w.Start.Add(-time.Second), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.Contains(tt.t); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}

	open := Window{End: w.End}
	if !open.Contains(time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("zero Start should not constrain the past")
	}
}
