// Package format implements the log dialect parsers and the file-level
// format detector. Each parser interprets one raw line as a normalized
// entry or reports no-match; the detector samples a file prefix and picks
// exactly one dialect for the whole file.
package format

import (
	"logtriage/internal/model"
)

// Name identifies a dialect.
type Name string

const (
	Syslog  Name = "syslog"
	Access  Name = "access"
	Bracket Name = "bracket"
	JSONL   Name = "jsonl"
	CEF     Name = "cef"
	Logfmt  Name = "logfmt"
	LTSV    Name = "ltsv"
	Loose   Name = "loose"
)

// Parser attempts to interpret one raw line as a normalized entry.
// Attempt either returns a fully-populated entry or reports no-match;
// timestamp parse failures inside a matching dialect degrade to a nil
// timestamp, never to a rejected line.
type Parser interface {
	Name() Name
	Attempt(lineNo int, line string) (model.Entry, bool)
}

// Chain returns the dialect parsers in fixed priority order. The detector
// tries them in this order and the first qualifying dialect wins; loose is
// the fallback and always last.
func Chain() []Parser {
	return []Parser{
		SyslogParser{},
		AccessParser{},
		NewBracketParser(),
		JSONLParser{},
		CEFParser{},
		LogfmtParser{},
		LTSVParser{},
		LooseParser{},
	}
}

// ByName resolves a dialect name to its parser.
func ByName(name Name) (Parser, bool) {
	for _, p := range Chain() {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// Names lists the dialect names in priority order.
func Names() []Name {
	chain := Chain()
	out := make([]Name, len(chain))
	for i, p := range chain {
		out[i] = p.Name()
	}
	return out
}
