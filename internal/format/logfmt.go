package format

import (
	"strings"

	"logtriage/internal/model"
)

// LogfmtParser parses logfmt key=value lines, honoring quoted values.
type LogfmtParser struct{}

func (LogfmtParser) Name() Name { return Logfmt }

func (LogfmtParser) Attempt(lineNo int, line string) (model.Entry, bool) {
	tokens, err := splitQuoted(line)
	if err != nil {
		return model.Entry{}, false
	}

	fields := make(map[string]string)
	for _, token := range tokens {
		key, value, ok := strings.Cut(token, "=")
		if !ok || key == "" {
			continue
		}
		fields[key] = value
	}
	if len(fields) == 0 {
		return model.Entry{}, false
	}

	ts, level, message := extractCommonFields(fields)
	if message == "" {
		message = strings.TrimSpace(line)
	}

	return model.Entry{
		LineNo:    lineNo,
		Timestamp: ts,
		Level:     level,
		Message:   message,
		Raw:       line,
		Meta:      map[string]any{"logfmt": fields},
	}, true
}
