package format

import (
	"bufio"
	"io"
	"strings"
)

const (
	// DefaultSampleLines is the number of lines the detector samples.
	DefaultSampleLines = 120

	// sampleLineCap bounds how much of one sampled line is inspected.
	sampleLineCap = 4096

	// MaxLineBytes bounds a single scanned line anywhere in the pipeline.
	MaxLineBytes = 1 << 20
)

// Detect samples up to sampleLines lines from r and selects the dialect
// for the whole file: the first parser in chain order that successfully
// parses a majority of the non-blank sampled lines. When none qualifies
// the loose fallback is chosen. The decision is made once per file; there
// is no per-line re-sniffing.
func Detect(r io.Reader, sampleLines int) Name {
	if sampleLines <= 0 {
		sampleLines = DefaultSampleLines
	}

	chain := Chain()
	candidates := chain[:len(chain)-1] // loose is the fallback, not a candidate

	counts := make(map[Name]int, len(candidates))
	nonBlank := 0
	seen := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), MaxLineBytes)
	for seen < sampleLines && scanner.Scan() {
		seen++
		line := scanner.Text()
		if len(line) > sampleLineCap {
			line = line[:sampleLineCap]
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		nonBlank++
		for _, p := range candidates {
			if _, ok := p.Attempt(1, line); ok {
				counts[p.Name()]++
			}
		}
	}

	if nonBlank == 0 {
		return Loose
	}
	for _, p := range candidates {
		if counts[p.Name()]*2 > nonBlank {
			return p.Name()
		}
	}
	return Loose
}
