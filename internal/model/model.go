// Package model defines the normalized records produced by the triage
// pipeline: severity levels, parsed log entries and fast-scan hits.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Level is a normalized severity level.
type Level string

const (
	LevelCritical Level = "CRITICAL"
	LevelError    Level = "ERROR"
	LevelWarning  Level = "WARNING"
	LevelInfo     Level = "INFO"
	LevelDebug    Level = "DEBUG"
	LevelUnknown  Level = "UNKNOWN"
)

// Levels lists the real severities in descending order. UNKNOWN is the
// absence of a severity and is excluded; request validation offers this
// list in error messages.
var Levels = []Level{LevelCritical, LevelError, LevelWarning, LevelInfo, LevelDebug}

// ParseLevel resolves a case-insensitive level name to its canonical value.
// Only the canonical names are accepted, UNKNOWN included.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToUpper(strings.TrimSpace(s))); l {
	case LevelCritical, LevelError, LevelWarning, LevelInfo, LevelDebug, LevelUnknown:
		return l, nil
	default:
		names := make([]string, len(Levels))
		for i, lv := range Levels {
			names[i] = string(lv)
		}
		return "", fmt.Errorf("unknown level %q (expected one of %s)", s, strings.Join(names, ", "))
	}
}

// MarshalJSON serializes levels lowercase, e.g. "error".
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(strings.ToLower(string(l)))
}

// UnmarshalJSON accepts any casing of the canonical names.
func (l *Level) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Entry is one normalized log record. Parsers populate Timestamp with a
// UTC instant or leave it nil when the dialect carries none. Meta holds
// dialect-specific extras (syslog pri/facility, access client fields,
// structured key-value leftovers). Raw is filled only on request.
type Entry struct {
	LineNo    int            `json:"line_no"`
	Timestamp *time.Time     `json:"timestamp,omitempty"`
	Level     Level          `json:"level"`
	Message   string         `json:"message"`
	Meta      map[string]any `json:"meta,omitempty"`
	Raw       string         `json:"raw,omitempty"`
}

// Hit is a fast-scan candidate: a line number with the level inferred
// from the byte scan, no full parse performed.
type Hit struct {
	LineNo int    `json:"line_no"`
	Level  Level  `json:"level"`
	Raw    string `json:"raw"`
}

// LevelSet is a severity filter.
type LevelSet map[Level]bool

// NewLevelSet builds a set from canonical levels.
func NewLevelSet(levels ...Level) LevelSet {
	s := make(LevelSet, len(levels))
	for _, l := range levels {
		s[l] = true
	}
	return s
}

// Has reports whether l is in the set. A nil set matches everything.
func (s LevelSet) Has(l Level) bool {
	if s == nil {
		return true
	}
	return s[l]
}

// Slice returns the members in descending severity order, UNKNOWN last.
func (s LevelSet) Slice() []Level {
	out := make([]Level, 0, len(s))
	for _, l := range append(append([]Level{}, Levels...), LevelUnknown) {
		if s[l] {
			out = append(out, l)
		}
	}
	return out
}
