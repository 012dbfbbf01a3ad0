// Package timewindow turns request-level time selectors into a concrete
// half-open UTC interval.
package timewindow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	weekRe  = regexp.MustCompile(`^(\d{4})-W(\d{2})$`)
	monthRe = regexp.MustCompile(`^(\d{4})-(\d{2})$`)
	yearRe  = regexp.MustCompile(`^(\d{4})$`)
)

// isoLayouts accepts the timestamp shapes callers write by hand. Fractions
// are optional within each layout; a missing offset means UTC.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Window is a half-open interval [Start, End) in UTC. A zero Start means
// the window is unbounded in the past.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window. A zero bound does
// not constrain that side.
func (w Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && !t.Before(w.End) {
		return false
	}
	return true
}

func (w Window) String() string {
	start := "-"
	if !w.Start.IsZero() {
		start = w.Start.Format(time.RFC3339)
	}
	end := "-"
	if !w.End.IsZero() {
		end = w.End.Format(time.RFC3339)
	}
	return fmt.Sprintf("[%s, %s)", start, end)
}

// Selectors carries the raw time-window fields of a request. Resolution
// follows a strict precedence: convenience selectors, then lookbacks, then
// explicit bounds, then the 24h default. Setting two selectors of the same
// tier is an error; a higher tier silently wins over lower ones.
type Selectors struct {
	Since string
	Until string

	Date  string
	Hour  string
	Week  string
	Month string
	Year  string

	DaysLookback  *int
	HoursLookback *int
}

// Resolve evaluates the selectors against the given reference instant,
// which is captured once per request. All returned bounds are UTC.
func Resolve(sel Selectors, now time.Time) (Window, error) {
	now = now.UTC()

	var convenience int
	for _, v := range []string{sel.Date, sel.Hour, sel.Week, sel.Month, sel.Year} {
		if v != "" {
			convenience++
		}
	}
	if convenience > 1 {
		return Window{}, fmt.Errorf("only one of date, hour, week, month or year may be set")
	}
	switch {
	case sel.Date != "":
		return RangeForDate(sel.Date)
	case sel.Hour != "":
		return RangeForHour(sel.Hour)
	case sel.Week != "":
		return RangeForWeek(sel.Week)
	case sel.Month != "":
		return RangeForMonth(sel.Month)
	case sel.Year != "":
		return RangeForYear(sel.Year)
	}

	if sel.DaysLookback != nil && sel.HoursLookback != nil {
		return Window{}, fmt.Errorf("only one of days_lookback or hours_lookback may be set")
	}
	if sel.DaysLookback != nil {
		d := *sel.DaysLookback
		if d < 0 {
			return Window{}, fmt.Errorf("days_lookback must be non-negative, got %d", d)
		}
		return Window{Start: now.Add(-time.Duration(d) * 24 * time.Hour), End: now}, nil
	}
	if sel.HoursLookback != nil {
		h := *sel.HoursLookback
		if h < 0 {
			return Window{}, fmt.Errorf("hours_lookback must be non-negative, got %d", h)
		}
		return Window{Start: now.Add(-time.Duration(h) * time.Hour), End: now}, nil
	}

	if sel.Since != "" || sel.Until != "" {
		var w Window
		if sel.Since != "" {
			s, err := ParseISO(sel.Since)
			if err != nil {
				return Window{}, fmt.Errorf("since: %w", err)
			}
			w.Start = s
		}
		if sel.Until != "" {
			u, err := ParseISO(sel.Until)
			if err != nil {
				return Window{}, fmt.Errorf("until: %w", err)
			}
			w.End = u
		} else {
			w.End = now
		}
		if !w.Start.IsZero() && w.Start.After(w.End) {
			return Window{}, fmt.Errorf("since (%s) is after until (%s)",
				w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
		}
		return w, nil
	}

	return Window{Start: now.Add(-24 * time.Hour), End: now}, nil
}

// ParseISO parses an ISO 8601 timestamp. A missing timezone offset means
// UTC; the result is always normalized to UTC.
func ParseISO(s string) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q: expected ISO 8601", s)
}

// RangeForDate returns the UTC day window for a YYYY-MM-DD selector.
func RangeForDate(s string) (Window, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Window{}, fmt.Errorf("date must look like YYYY-MM-DD (e.g., 2025-12-30)")
	}
	start := d.UTC()
	return Window{Start: start, End: start.AddDate(0, 0, 1)}, nil
}

// RangeForHour returns the UTC hour window for a YYYY-MM-DDTHH selector.
// Finer-grained inputs are truncated to the containing hour.
func RangeForHour(s string) (Window, error) {
	base, err := time.Parse("2006-01-02T15", s)
	if err != nil {
		base, err = ParseISO(s)
		if err != nil {
			return Window{}, fmt.Errorf("hour must look like YYYY-MM-DDTHH (e.g., 2025-12-29T10)")
		}
	}
	start := base.UTC().Truncate(time.Hour)
	return Window{Start: start, End: start.Add(time.Hour)}, nil
}

// RangeForWeek returns the UTC window of an ISO 8601 week (Monday start)
// for a YYYY-Www selector.
func RangeForWeek(s string) (Window, error) {
	m := weekRe.FindStringSubmatch(s)
	if m == nil {
		return Window{}, fmt.Errorf("week must look like YYYY-Www (e.g., 2025-W52)")
	}
	year, _ := strconv.Atoi(m[1])
	week, _ := strconv.Atoi(m[2])
	if week < 1 || week > 53 {
		return Window{}, fmt.Errorf("week must be in 01..53, got %02d", week)
	}

	// January 4 always falls in ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	weekday := int(jan4.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	start := jan4.AddDate(0, 0, 1-weekday).AddDate(0, 0, (week-1)*7)
	if gotYear, gotWeek := start.ISOWeek(); gotYear != year || gotWeek != week {
		return Window{}, fmt.Errorf("year %d has no ISO week %02d", year, week)
	}
	return Window{Start: start, End: start.AddDate(0, 0, 7)}, nil
}

// RangeForMonth returns the UTC calendar-month window for a YYYY-MM
// selector.
func RangeForMonth(s string) (Window, error) {
	m := monthRe.FindStringSubmatch(s)
	if m == nil {
		return Window{}, fmt.Errorf("month must look like YYYY-MM (e.g., 2025-12)")
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return Window{}, fmt.Errorf("month must be in 01..12, got %02d", month)
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return Window{Start: start, End: start.AddDate(0, 1, 0)}, nil
}

// RangeForYear returns the UTC calendar-year window for a YYYY selector.
func RangeForYear(s string) (Window, error) {
	m := yearRe.FindStringSubmatch(s)
	if m == nil {
		return Window{}, fmt.Errorf("year must look like YYYY (e.g., 2025)")
	}
	year, _ := strconv.Atoi(m[1])
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return Window{Start: start, End: start.AddDate(1, 0, 0)}, nil
}
