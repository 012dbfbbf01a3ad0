package format

import (
	"strconv"
	"strings"
	"time"

	"logtriage/internal/model"
)

const cefPrefix = "CEF:"

// CEFParser parses Common Event Format lines: a pipe-delimited header
// followed by a key=value extension block.
type CEFParser struct{}

func (CEFParser) Name() Name { return CEF }

func levelFromCEFSeverity(value string) model.Level {
	sev, err := strconv.Atoi(value)
	if err != nil {
		return model.LevelUnknown
	}
	switch {
	case sev <= 3:
		return model.LevelInfo
	case sev <= 6:
		return model.LevelWarning
	case sev <= 8:
		return model.LevelError
	default:
		return model.LevelCritical
	}
}

func parseCEFExtension(ext string) map[string]string {
	fields := make(map[string]string)
	for _, token := range strings.Fields(ext) {
		key, value, ok := strings.Cut(token, "=")
		if !ok || key == "" {
			continue
		}
		fields[key] = value
	}
	return fields
}

func (CEFParser) Attempt(lineNo int, line string) (model.Entry, bool) {
	if !strings.HasPrefix(line, cefPrefix) {
		return model.Entry{}, false
	}

	parts := strings.SplitN(line, "|", 8)
	if len(parts) < 7 {
		return model.Entry{}, false
	}

	version := strings.TrimPrefix(parts[0], cefPrefix)
	name := parts[5]
	severityRaw := parts[6]
	extensionRaw := ""
	if len(parts) > 7 {
		extensionRaw = parts[7]
	}

	extension := parseCEFExtension(extensionRaw)
	ts, _, message := extractCommonFields(extension)
	if ts == nil {
		if rt := extension["rt"]; rt != "" && isDigits(rt) {
			ms, _ := strconv.ParseInt(rt, 10, 64)
			parsed := time.UnixMilli(ms).UTC()
			ts = &parsed
		}
	}

	msg := message
	if msg == "" {
		msg = name
	}
	if msg == "" {
		msg = strings.TrimSpace(line)
	}

	return model.Entry{
		LineNo:    lineNo,
		Timestamp: ts,
		Level:     levelFromCEFSeverity(severityRaw),
		Message:   msg,
		Raw:       line,
		Meta: map[string]any{
			"cef": map[string]any{
				"version":        version,
				"device_vendor":  parts[1],
				"device_product": parts[2],
				"device_version": parts[3],
				"signature_id":   parts[4],
				"name":           name,
				"severity":       severityRaw,
				"extension":      extension,
			},
		},
	}, true
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
