package review

import (
	"fmt"
	"strings"
	"time"

	"logtriage/internal/model"
)

// DefaultChunkMaxChars bounds the text handed to one review call.
const DefaultChunkMaxChars = 4000

// Chunk is a contiguous run of formatted log lines destined for one
// review call, with the original line numbers it covers.
type Chunk struct {
	LineNumbers []int
	Text        string
}

// FormatLine renders one entry for the review prompt: the original line
// number, the timestamp (or "-"), the level and the extracted message.
func FormatLine(e model.Entry) string {
	ts := "-"
	if e.Timestamp != nil {
		ts = e.Timestamp.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("%d %s [%s] %s", e.LineNo, ts, e.Level, e.Message)
}

// BuildChunks partitions entries into chunks bounded by a character
// budget. A chunk never splits a single line: a line longer than the
// budget becomes a chunk of its own.
func BuildChunks(entries []model.Entry, maxChars int) []Chunk {
	if maxChars <= 0 {
		maxChars = DefaultChunkMaxChars
	}

	var chunks []Chunk
	var lines []string
	var nums []int
	size := 0

	flush := func() {
		if len(lines) == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			LineNumbers: nums,
			Text:        strings.Join(lines, "\n"),
		})
		lines = nil
		nums = nil
		size = 0
	}

	for _, e := range entries {
		line := FormatLine(e)
		added := len(line)
		if len(lines) > 0 {
			added++ // joining newline
		}
		if len(lines) > 0 && size+added > maxChars {
			flush()
			added = len(line)
		}
		lines = append(lines, line)
		nums = append(nums, e.LineNo)
		size += added
	}
	flush()

	return chunks
}
