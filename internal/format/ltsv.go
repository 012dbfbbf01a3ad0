package format

import (
	"strings"

	"logtriage/internal/model"
)

// LTSVParser parses Labeled Tab-Separated Values lines.
type LTSVParser struct{}

func (LTSVParser) Name() Name { return LTSV }

func (LTSVParser) Attempt(lineNo int, line string) (model.Entry, bool) {
	if !strings.Contains(line, "\t") {
		return model.Entry{}, false
	}

	fields := make(map[string]string)
	for _, field := range strings.Split(line, "\t") {
		key, value, ok := strings.Cut(field, ":")
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
		Meta:      map[string]any{"ltsv": fields},
	}, true
}
