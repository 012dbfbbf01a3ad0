package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"logtriage/internal/format"
)

// File is an opened log source, transparently decompressed when the path
// ends in .gz.
type File struct {
	Path string
	Gzip bool
	Size int64

	f  *os.File
	gz *gzip.Reader
}

// Open validates and opens a log file. The checks run before any reading
// so a bad request never pays parsing cost.
func Open(path string, maxSizeMB int) (*File, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("log file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	if !fileInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", path)
	}

	// Check file permissions
	if fileInfo.Mode().Perm()&0400 == 0 {
		return nil, fmt.Errorf("log file is not readable: %s", path)
	}

	// Check file size
	if maxSizeMB > 0 {
		maxBytes := int64(maxSizeMB) * 1024 * 1024
		if fileInfo.Size() > maxBytes {
			return nil, fmt.Errorf("log file exceeds maximum size of %dMB (size: %.2fMB)",
				maxSizeMB, float64(fileInfo.Size())/1024/1024)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	lf := &File{
		Path: path,
		Size: fileInfo.Size(),
		f:    f,
	}

	if strings.EqualFold(filepath.Ext(path), ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		lf.Gzip = true
		lf.gz = gz
	}
	return lf, nil
}

// Reader returns the decompressed line stream.
func (f *File) Reader() io.Reader {
	if f.gz != nil {
		return f.gz
	}
	return f.f
}

// Close releases the underlying file and, when present, the gzip reader.
func (f *File) Close() error {
	if f.gz != nil {
		if err := f.gz.Close(); err != nil {
			f.f.Close()
			return err
		}
	}
	return f.f.Close()
}

// batch is a contiguous run of raw lines handed to one worker. Lines keep
// their 1-based position: line i of the batch is line start+i of the file.
type batch struct {
	seq   int
	start int
	lines []string
}

// readBatches streams r into fixed-size line batches on the queue. It
// owns the queue and closes it on return. A cancelled context stops the
// feed without error; the context's error is reported by the caller.
func readBatches(ctx context.Context, r io.Reader, batchSize int, queue chan<- batch, stats *Stats) error {
	defer close(queue)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), format.MaxLineBytes)

	seq := 0
	start := 1
	lines := make([]string, 0, batchSize)

	flush := func() bool {
		if len(lines) == 0 {
			return true
		}
		b := batch{seq: seq, start: start, lines: lines}
		select {
		case queue <- b:
		case <-ctx.Done():
			return false
		}
		seq++
		start += len(lines)
		lines = make([]string, 0, batchSize)
		return true
	}

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		stats.LinesRead.Add(1)
		lines = append(lines, scanner.Text())
		if len(lines) >= batchSize {
			if !flush() {
				return nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading line %d: %w", lineNo+1, err)
	}
	flush()
	return nil
}
