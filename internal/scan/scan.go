// Package scan implements the byte-level severity scans: the pipeline's
// prefilter predicate and the standalone fast scan. Both adapt to the
// detected dialect the same way: access logs go by status class, syslog by
// the PRI prefix, everything else by token matching.
package scan

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"logtriage/internal/format"
	"logtriage/internal/model"
)

var (
	priRe          = regexp.MustCompile(`^<(\d{1,3})>`)
	accessStatusRe = regexp.MustCompile(`^\S+\s+\S+\s+\S+\s+\[[^\]]+\]\s+"[^"]+"\s+(\d{3})\s`)
)

// scanTokens drives the fast scan's token path. Tokens are deliberately
// framed (brackets, spaces, key=value spellings) to keep false positives
// down; matching is against the uppercased line.
var scanTokens = []struct {
	level  model.Level
	tokens []string
}{
	{model.LevelCritical, []string{
		"[CRITICAL]", " CRITICAL ", "[FATAL]", " FATAL ", " SEVERE ", " PANIC ", " EMERG ",
	}},
	{model.LevelError, []string{
		"[ERROR]", " ERROR ", ` "LEVEL":"ERROR"`, " LEVEL=ERROR", " EXCEPTION", " TRACEBACK", " FAILED", " FAILURE",
	}},
	{model.LevelWarning, []string{
		"[WARNING]", " WARNING ", " WARN ", ` "LEVEL":"WARNING"`, " LEVEL=WARNING", " DEPRECATED", " RETRY", " TIMEOUT",
	}},
	{model.LevelInfo, []string{
		"[INFO]", " INFO ", ` "LEVEL":"INFO"`, " LEVEL=INFO",
	}},
	{model.LevelDebug, []string{
		"[DEBUG]", " DEBUG ", ` "LEVEL":"DEBUG"`, " LEVEL=DEBUG", " TRACE ",
	}},
}

// prefilterKeywords is the prefilter's containment table. Unlike the scan
// tokens these are bare words: the prefilter must never skip a line the
// chosen parser would classify at a wanted level, so every spelling a text
// dialect can map to a level (canonical names, kv aliases, loose keywords)
// must be covered by substring.
var prefilterKeywords = map[model.Level][]string{
	model.LevelCritical: {"CRIT", "FATAL", "PANIC", "SEVERE"},
	model.LevelError:    {"ERR", "EXCEPTION", "TRACEBACK", "FAILED"},
	model.LevelWarning:  {"WARN", "TIMEOUT", "RETRY"},
}

// Matcher reports whether a raw line can possibly yield an entry at a
// wanted level. It is a superset hint: false positives are confirmed by
// the dialect parser, false negatives must not happen.
type Matcher func(line string) bool

// Prefilter builds the skip predicate for the given dialect and wanted
// levels, or nil when prefiltering cannot help: the wanted set must be
// non-empty and stay within WARNING/ERROR/CRITICAL, and CEF severities
// are numeric and not token-scannable.
func Prefilter(dialect format.Name, wanted model.LevelSet) Matcher {
	if !elevatedOnly(wanted) {
		return nil
	}

	switch dialect {
	case format.Access:
		return func(line string) bool {
			m := accessStatusRe.FindStringSubmatch(line)
			if m == nil {
				return false
			}
			status, _ := strconv.Atoi(m[1])
			return wanted.Has(format.LevelFromStatus(status))
		}
	case format.Syslog:
		return func(line string) bool {
			m := priRe.FindStringSubmatch(line)
			if m == nil {
				return false
			}
			pri, _ := strconv.Atoi(m[1])
			return wanted.Has(format.LevelFromPRI(pri))
		}
	case format.CEF:
		return nil
	default:
		var keywords []string
		for level := range wanted {
			keywords = append(keywords, prefilterKeywords[level]...)
		}
		return func(line string) bool {
			upper := strings.ToUpper(line)
			for _, kw := range keywords {
				if strings.Contains(upper, kw) {
					return true
				}
			}
			return false
		}
	}
}

func elevatedOnly(wanted model.LevelSet) bool {
	if len(wanted) == 0 {
		return false
	}
	for level := range wanted {
		switch level {
		case model.LevelWarning, model.LevelError, model.LevelCritical:
		default:
			return false
		}
	}
	return true
}

// Scan performs the standalone fast scan: a single pass over r yielding a
// hit for every line whose byte-level severity signal lands in the wanted
// set. No full parsing happens; the reported level is the scan's
// inference (status class, PRI severity or first token match in severity
// order). A nil wanted set matches every level.
func Scan(r io.Reader, dialect format.Name, wanted model.LevelSet) ([]model.Hit, error) {
	var hits []model.Hit

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), format.MaxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		var level model.Level
		switch dialect {
		case format.Access:
			m := accessStatusRe.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			status, _ := strconv.Atoi(m[1])
			level = format.LevelFromStatus(status)
		case format.Syslog:
			m := priRe.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			pri, _ := strconv.Atoi(m[1])
			level = format.LevelFromPRI(pri)
		default:
			var ok bool
			level, ok = tokenLevel(line)
			if !ok {
				continue
			}
		}

		if wanted.Has(level) {
			hits = append(hits, model.Hit{LineNo: lineNo, Level: level, Raw: line})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning line %d: %w", lineNo+1, err)
	}
	return hits, nil
}

// tokenLevel returns the first severity (in CRITICAL..DEBUG order) with a
// token present in the line.
func tokenLevel(line string) (model.Level, bool) {
	upper := strings.ToUpper(line)
	for _, group := range scanTokens {
		for _, token := range group.tokens {
			if strings.Contains(upper, token) {
				return group.level, true
			}
		}
	}
	return model.LevelUnknown, false
}
