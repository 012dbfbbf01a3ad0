package format

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"logtriage/internal/model"
)

// jsonlTimeKeys is narrower than the kv set: @timestamp is an
// Elasticsearch convention that structured JSON logs spell "timestamp".
var jsonlTimeKeys = []string{"timestamp", "time", "ts"}

// JSONLParser parses JSON-lines logs, one JSON object per line. Fields are
// resolved through the shared key aliases; the first key literally present
// wins even when its value turns out unusable.
type JSONLParser struct{}

func (JSONLParser) Name() Name { return JSONL }

func (JSONLParser) Attempt(lineNo int, line string) (model.Entry, bool) {
	s := strings.TrimSpace(line)
	if s == "" || !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return model.Entry{}, false
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return model.Entry{}, false
	}

	var ts *time.Time
	if val, ok := firstPresent(obj, jsonlTimeKeys); ok {
		if str, ok := val.(string); ok {
			if parsed, ok := parseISOTimestamp(str); ok {
				ts = &parsed
			}
		}
	}

	level := model.LevelUnknown
	if val, ok := firstPresent(obj, levelKeys); ok {
		if str, ok := val.(string); ok {
			level = strictLevel(strings.ToUpper(str))
		}
	}

	msg := s
	if val, ok := firstPresent(obj, messageKeys); ok && val != nil {
		msg = stringify(val)
	}

	return model.Entry{
		LineNo:    lineNo,
		Timestamp: ts,
		Level:     level,
		Message:   msg,
		Raw:       line,
	}, true
}

// firstPresent returns the value of the first alias present in obj.
func firstPresent(obj map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// JSON numbers decode as float64; render integral values plainly.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprint(t)
	}
}
