package format

import (
	"strings"

	"logtriage/internal/model"
)

// looseKeywords is scanned in severity order; the first level with any
// keyword present in the line wins.
var looseKeywords = []struct {
	level    model.Level
	keywords []string
}{
	{model.LevelCritical, []string{"CRITICAL", "FATAL", "PANIC"}},
	{model.LevelError, []string{"ERROR", "EXCEPTION", "TRACEBACK", "FAILED"}},
	{model.LevelWarning, []string{"WARNING", "WARN", "TIMEOUT", "RETRY"}},
	{model.LevelInfo, []string{"INFO"}},
	{model.LevelDebug, []string{"DEBUG", "TRACE"}},
}

// LooseParser is the fallback dialect: a case-insensitive keyword scan
// anywhere in the line. Lines without any severity keyword are no-match;
// the pipeline degrades those to UNKNOWN entries.
type LooseParser struct{}

func (LooseParser) Name() Name { return Loose }

func (LooseParser) Attempt(lineNo int, line string) (model.Entry, bool) {
	upper := strings.ToUpper(line)
	for _, group := range looseKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(upper, kw) {
				return model.Entry{
					LineNo:  lineNo,
					Level:   group.level,
					Message: strings.TrimSpace(line),
					Raw:     line,
				}, true
			}
		}
	}
	return model.Entry{}, false
}
