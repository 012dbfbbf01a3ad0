package format

import (
	"errors"
	"strings"
	"time"

	"logtriage/internal/model"
)

// Key aliases shared by the key-value dialects, tried in order.
var (
	timeKeys    = []string{"timestamp", "time", "ts", "@timestamp"}
	levelKeys   = []string{"level", "severity", "lvl", "log_level"}
	messageKeys = []string{"message", "msg", "error", "detail"}
)

var levelAliases = map[string]model.Level{
	"WARN":   model.LevelWarning,
	"ERR":    model.LevelError,
	"FATAL":  model.LevelCritical,
	"CRIT":   model.LevelCritical,
	"SEVERE": model.LevelCritical,
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseISOTimestamp parses an ISO 8601 timestamp. Timestamps without an
// offset are taken as UTC; everything is normalized to UTC.
func parseISOTimestamp(value string) (time.Time, bool) {
	for _, layout := range isoLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// levelFromWord maps a level word through the alias table to a normalized
// level. Unrecognized words resolve to UNKNOWN.
func levelFromWord(value string) model.Level {
	name := strings.ToUpper(strings.TrimSpace(value))
	if name == "" {
		return model.LevelUnknown
	}
	if l, ok := levelAliases[name]; ok {
		return l
	}
	return strictLevel(name)
}

// strictLevel resolves canonical level names only; anything else is UNKNOWN.
func strictLevel(upper string) model.Level {
	switch l := model.Level(upper); l {
	case model.LevelCritical, model.LevelError, model.LevelWarning,
		model.LevelInfo, model.LevelDebug, model.LevelUnknown:
		return l
	default:
		return model.LevelUnknown
	}
}

// extractCommonFields resolves timestamp, level and message from key-value
// fields using the shared alias lists. Field keys are matched
// case-insensitively. A time value that fails to parse or a level word that
// resolves UNKNOWN falls through to the next alias; the message is the
// first non-empty value.
func extractCommonFields(fields map[string]string) (ts *time.Time, level model.Level, message string) {
	lower := make(map[string]string, len(fields))
	for k, v := range fields {
		lower[strings.ToLower(k)] = v
	}

	for _, key := range timeKeys {
		if val, ok := lower[key]; ok {
			if parsed, ok := parseISOTimestamp(val); ok {
				ts = &parsed
				break
			}
		}
	}

	level = model.LevelUnknown
	for _, key := range levelKeys {
		if val, ok := lower[key]; ok {
			if l := levelFromWord(val); l != model.LevelUnknown {
				level = l
				break
			}
		}
	}

	for _, key := range messageKeys {
		if val, ok := lower[key]; ok && val != "" {
			message = val
			break
		}
	}
	return ts, level, message
}

var errUnbalancedQuote = errors.New("unbalanced quote")

// splitQuoted splits a line into whitespace-separated tokens honoring
// single and double quotes, shell style. Inside double quotes a backslash
// escapes `"` and `\`; outside quotes it escapes the next character; inside
// single quotes everything is literal. An unterminated quote is an error.
func splitQuoted(line string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	inToken := false
	var quote byte

	flush := func() {
		if inToken {
			tokens = append(tokens, cur.String())
			cur.Reset()
			inToken = false
		}
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote == '\'':
			if c == '\'' {
				quote = 0
			} else {
				cur.WriteByte(c)
			}
		case quote == '"':
			switch c {
			case '"':
				quote = 0
			case '\\':
				if i+1 < len(line) && (line[i+1] == '"' || line[i+1] == '\\') {
					cur.WriteByte(line[i+1])
					i++
				} else {
					cur.WriteByte(c)
				}
			default:
				cur.WriteByte(c)
			}
		case c == '\'' || c == '"':
			quote = c
			inToken = true
		case c == '\\':
			if i+1 < len(line) {
				cur.WriteByte(line[i+1])
				i++
			}
			inToken = true
		case c == ' ' || c == '\t':
			flush()
		default:
			cur.WriteByte(c)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, errUnbalancedQuote
	}
	flush()
	return tokens, nil
}
