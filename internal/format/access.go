package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"logtriage/internal/model"
)

var accessRe = regexp.MustCompile(
	`^(?P<ip>\S+)\s+\S+\s+\S+\s+\[(?P<ts>[^\]]+)\]\s+` +
		`"(?P<req>[^"]+)"\s+` +
		`(?P<status>\d{3})\s+` +
		`(?P<size>\S+)` +
		`(?:\s+"(?P<referer>[^"]*)"\s+"(?P<ua>[^"]*)")?` +
		`.*$`)

// AccessParser parses Apache/Nginx access logs in Common or Combined
// format, mapping the HTTP status class to a severity.
type AccessParser struct{}

func (AccessParser) Name() Name { return Access }

// LevelFromStatus maps an HTTP status code to a normalized level.
func LevelFromStatus(status int) model.Level {
	switch {
	case status >= 500 && status <= 599:
		return model.LevelError
	case status >= 400 && status <= 499:
		return model.LevelWarning
	default:
		return model.LevelInfo
	}
}

func (AccessParser) Attempt(lineNo int, line string) (model.Entry, bool) {
	m := accessRe.FindStringSubmatch(line)
	if m == nil {
		return model.Entry{}, false
	}

	ip := m[accessRe.SubexpIndex("ip")]
	req := m[accessRe.SubexpIndex("req")]
	status, _ := strconv.Atoi(m[accessRe.SubexpIndex("status")])
	sizeRaw := m[accessRe.SubexpIndex("size")]

	var ts *time.Time
	if parsed, err := time.Parse("02/Jan/2006:15:04:05 -0700", m[accessRe.SubexpIndex("ts")]); err == nil {
		utc := parsed.UTC()
		ts = &utc
	}

	// "GET /path HTTP/1.1" -> "GET /path"; anything else is kept whole.
	target := req
	if parts := strings.Split(req, " "); len(parts) == 3 {
		target = parts[0] + " " + parts[1]
	}
	msg := fmt.Sprintf("%s -> %d", target, status)
	if size, err := strconv.Atoi(sizeRaw); sizeRaw != "-" && err == nil {
		msg += fmt.Sprintf(" (%d bytes)", size)
	}

	meta := map[string]any{"ip": ip}
	if referer := m[accessRe.SubexpIndex("referer")]; referer != "" {
		meta["referer"] = referer
	}
	if ua := m[accessRe.SubexpIndex("ua")]; ua != "" {
		meta["ua"] = ua
	}

	return model.Entry{
		LineNo:    lineNo,
		Timestamp: ts,
		Level:     LevelFromStatus(status),
		Message:   msg,
		Raw:       line,
		Meta:      map[string]any{"access": meta},
	}, true
}
