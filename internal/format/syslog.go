package format

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"logtriage/internal/model"
)

var (
	rfc5424Re = regexp.MustCompile(
		`^<(?P<pri>\d{1,3})>(?P<ver>\d)\s+` +
			`(?P<ts>\S+)\s+` +
			`(?P<host>\S+)\s+` +
			`(?P<app>\S+)\s+` +
			`(?P<proc>\S+)\s+` +
			`(?P<msgid>\S+)\s*` +
			`(?P<sd>\[[^\]]*\]|-)?\s*` +
			`(?P<msg>.*)$`)

	rfc3164Re = regexp.MustCompile(
		`^<(?P<pri>\d{1,3})>` +
			`(?P<ts>[A-Z][a-z]{2}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2})\s+` +
			`(?P<host>\S+)\s+` +
			`(?P<tag>[^:]+):\s*` +
			`(?P<msg>.*)$`)
)

// SyslogParser parses RFC5424 and RFC3164 syslog lines, decoding severity
// from the PRI prefix.
type SyslogParser struct{}

func (SyslogParser) Name() Name { return Syslog }

// LevelFromPRI maps a syslog PRI value (facility*8 + severity) to a
// normalized level.
func LevelFromPRI(pri int) model.Level {
	switch sev := pri % 8; {
	case sev <= 2:
		return model.LevelCritical
	case sev == 3:
		return model.LevelError
	case sev == 4:
		return model.LevelWarning
	case sev <= 6:
		return model.LevelInfo
	default:
		return model.LevelDebug
	}
}

func (SyslogParser) Attempt(lineNo int, line string) (model.Entry, bool) {
	if m := rfc5424Re.FindStringSubmatch(line); m != nil {
		pri, _ := strconv.Atoi(m[rfc5424Re.SubexpIndex("pri")])
		host := m[rfc5424Re.SubexpIndex("host")]
		app := m[rfc5424Re.SubexpIndex("app")]
		msg := strings.TrimSpace(m[rfc5424Re.SubexpIndex("msg")])

		var ts *time.Time
		if parsed, ok := parseISOTimestamp(m[rfc5424Re.SubexpIndex("ts")]); ok {
			ts = &parsed
		}
		return syslogEntry(lineNo, line, pri, host, app, msg, ts), true
	}

	if m := rfc3164Re.FindStringSubmatch(line); m != nil {
		pri, _ := strconv.Atoi(m[rfc3164Re.SubexpIndex("pri")])
		host := m[rfc3164Re.SubexpIndex("host")]
		app := strings.TrimSpace(m[rfc3164Re.SubexpIndex("tag")])
		msg := strings.TrimSpace(m[rfc3164Re.SubexpIndex("msg")])

		ts := parseRFC3164Timestamp(m[rfc3164Re.SubexpIndex("ts")], time.Now().UTC())
		return syslogEntry(lineNo, line, pri, host, app, msg, ts), true
	}

	return model.Entry{}, false
}

// parseRFC3164Timestamp parses the year-less RFC3164 timestamp, assuming
// the current year unless that places the instant more than a day in the
// future, in which case the previous year is used.
func parseRFC3164Timestamp(s string, now time.Time) *time.Time {
	parsed, err := time.Parse("Jan _2 15:04:05", s)
	if err != nil {
		return nil
	}
	ts := time.Date(now.Year(), parsed.Month(), parsed.Day(),
		parsed.Hour(), parsed.Minute(), parsed.Second(), 0, time.UTC)
	if ts.After(now.Add(24 * time.Hour)) {
		ts = ts.AddDate(-1, 0, 0)
	}
	return &ts
}

func syslogEntry(lineNo int, line string, pri int, host, app, msg string, ts *time.Time) model.Entry {
	message := host + " " + app
	if msg != "" {
		message += ": " + msg
	}
	return model.Entry{
		LineNo:    lineNo,
		Timestamp: ts,
		Level:     LevelFromPRI(pri),
		Message:   message,
		Raw:       line,
		Meta: map[string]any{
			"syslog": map[string]any{
				"pri":      pri,
				"severity": pri % 8,
				"facility": pri / 8,
				"host":     host,
				"app":      app,
			},
		},
	}
}
