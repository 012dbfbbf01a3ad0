package format

import (
	"regexp"
	"strings"
	"time"

	"logtriage/internal/model"
)

var bracketRe = regexp.MustCompile(`^(?P<ts>.+?)\s+\[(?P<level>[A-Za-z]+)\]\s+(?P<msg>.*)$`)

// BracketParser parses '<timestamp> [LEVEL] <message>' lines. The
// timestamp is tried against the configured layouts in order; the level
// word must be a canonical level name, anything else degrades to UNKNOWN.
type BracketParser struct {
	layouts []string
}

// NewBracketParser returns a bracket parser with the default timestamp
// layouts.
func NewBracketParser() BracketParser {
	return BracketParser{layouts: []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05Z",
		"2006/01/02 15:04:05",
		"02-01-2006 15:04:05",
	}}
}

func (BracketParser) Name() Name { return Bracket }

func (p BracketParser) Attempt(lineNo int, line string) (model.Entry, bool) {
	m := bracketRe.FindStringSubmatch(line)
	if m == nil {
		return model.Entry{}, false
	}

	var ts *time.Time
	raw := strings.TrimSpace(m[bracketRe.SubexpIndex("ts")])
	for _, layout := range p.layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			utc := parsed.UTC()
			ts = &utc
			break
		}
	}

	level := strictLevel(strings.ToUpper(m[bracketRe.SubexpIndex("level")]))

	return model.Entry{
		LineNo:    lineNo,
		Timestamp: ts,
		Level:     level,
		Message:   strings.TrimSpace(m[bracketRe.SubexpIndex("msg")]),
		Raw:       line,
	}, true
}
