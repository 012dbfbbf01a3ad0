// Package pipeline runs the parallel parse pipeline: a reader streams the
// file into bounded line batches, a worker pool parses and filters them,
// and an ordered aggregator reassembles the results in file order.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	"logtriage/internal/format"
	"logtriage/internal/model"
	"logtriage/internal/scan"
	"logtriage/internal/timewindow"
)

const (
	// DefaultBatchSize is the number of lines handed to a worker at once.
	DefaultBatchSize = 256

	// DefaultQueueDepth bounds the batch queue so the reader cannot
	// outrun the workers on very large files.
	DefaultQueueDepth = 8
)

// Options sizes the pipeline. Zero values pick the defaults.
type Options struct {
	// Workers is the parse worker count. Zero means one worker per
	// available CPU. Gzip sources must use a single worker because the
	// compressed stream cannot be split; callers force that via
	// ForceSerial.
	Workers int

	// ForceSerial pins the pool to one worker regardless of Workers.
	ForceSerial bool

	BatchSize  int
	QueueDepth int
}

func (o Options) normalized() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.ForceSerial {
		o.Workers = 1
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.QueueDepth <= 0 {
		o.QueueDepth = DefaultQueueDepth
	}
	return o
}

// Filters is the per-entry selection applied by workers after parsing.
//
// Levels splits entries into the identified result set and the residue:
// an entry whose level is in Levels is identified, anything else goes to
// the residue when CollectResidue is set and is dropped otherwise. A nil
// Levels set identifies everything.
//
// Prefilter, when non-nil, skips lines before parsing. It is only safe
// when the caller wants elevated severities with no substring filter and
// no residue, so CollectResidue and Prefilter are mutually exclusive.
type Filters struct {
	Window         timewindow.Window
	Levels         model.LevelSet
	Contains       string
	IncludeRaw     bool
	Prefilter      scan.Matcher
	CollectResidue bool
}

// Result is the ordered output of one pipeline run.
type Result struct {
	// Entries holds the identified entries, strictly ascending by line
	// number.
	Entries []model.Entry

	// Residue holds the entries outside the identified severity set, in
	// the same order. Empty unless Filters.CollectResidue was set.
	Residue []model.Entry

	Stats Snapshot
}

// parsedBatch is one worker's output for a batch, tagged with the batch
// sequence index so the aggregator can restore file order.
type parsedBatch struct {
	seq        int
	identified []model.Entry
	residue    []model.Entry
}

// Run parses the stream with the chosen dialect parser and returns the
// filtered entries in file order. The worker pool completes batches out
// of order; a reorder buffer keyed by batch sequence index reassembles
// them, so memory stays bounded by in-flight batches rather than file
// size. On cancellation the reader stops feeding, in-flight work is
// discarded and ctx.Err is returned.
func Run(ctx context.Context, r io.Reader, parser format.Parser, opt Options, f Filters) (*Result, error) {
	opt = opt.normalized()

	stats := &Stats{}
	queue := make(chan batch, opt.QueueDepth)
	results := make(chan parsedBatch, opt.QueueDepth)

	var readErr error
	var readerDone sync.WaitGroup
	readerDone.Add(1)
	go func() {
		defer readerDone.Done()
		readErr = readBatches(ctx, r, opt.BatchSize, queue, stats)
	}()

	var workers sync.WaitGroup
	for i := 0; i < opt.Workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			runWorker(ctx, parser, f, queue, results, stats)
		}()
	}
	go func() {
		workers.Wait()
		close(results)
	}()

	res := &Result{}
	pending := make(map[int]parsedBatch)
	next := 0
	for pb := range results {
		pending[pb.seq] = pb
		for {
			b, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			res.Entries = append(res.Entries, b.identified...)
			res.Residue = append(res.Residue, b.residue...)
			next++
		}
	}
	readerDone.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if readErr != nil {
		return nil, fmt.Errorf("pipeline reader: %w", readErr)
	}
	res.Stats = stats.Snapshot()
	return res, nil
}

// runWorker drains batches from the queue, parsing and filtering each
// line. A line no parser rule matches degrades to an UNKNOWN entry; the
// worker never fails a batch.
func runWorker(ctx context.Context, parser format.Parser, f Filters, queue <-chan batch, results chan<- parsedBatch, stats *Stats) {
	for {
		var b batch
		var ok bool
		select {
		case b, ok = <-queue:
			if !ok {
				return
			}
		case <-ctx.Done():
			return
		}

		pb := parsedBatch{seq: b.seq}
		for i, line := range b.lines {
			lineNo := b.start + i

			if f.Contains != "" && !strings.Contains(line, f.Contains) {
				stats.Dropped.Add(1)
				continue
			}
			if f.Prefilter != nil && !f.Prefilter(line) {
				stats.Skipped.Add(1)
				continue
			}

			entry, matched := parser.Attempt(lineNo, line)
			if matched {
				stats.Parsed.Add(1)
			} else {
				stats.Fallback.Add(1)
				entry = model.Entry{
					LineNo:  lineNo,
					Level:   model.LevelUnknown,
					Message: strings.TrimSpace(line),
					Raw:     line,
				}
			}
			if !f.IncludeRaw {
				entry.Raw = ""
			}

			if entry.Timestamp != nil && !f.Window.Contains(*entry.Timestamp) {
				stats.Dropped.Add(1)
				continue
			}

			if f.Levels.Has(entry.Level) {
				pb.identified = append(pb.identified, entry)
			} else if f.CollectResidue {
				pb.residue = append(pb.residue, entry)
			} else {
				stats.Dropped.Add(1)
			}
		}

		select {
		case results <- pb:
		case <-ctx.Done():
			return
		}
	}
}
