package pipeline

import "sync/atomic"

// Stats counts pipeline work across concurrent workers.
type Stats struct {
	LinesRead atomic.Uint64
	Parsed    atomic.Uint64
	Fallback  atomic.Uint64
	Skipped   atomic.Uint64
	Dropped   atomic.Uint64
}

// Snapshot is a plain copy of the counters, safe to serialize and log.
type Snapshot struct {
	LinesRead uint64 `json:"lines_read"`
	Parsed    uint64 `json:"parsed"`
	Fallback  uint64 `json:"fallback"`
	Skipped   uint64 `json:"skipped"`
	Dropped   uint64 `json:"dropped"`
}

// Snapshot copies the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		LinesRead: s.LinesRead.Load(),
		Parsed:    s.Parsed.Load(),
		Fallback:  s.Fallback.Load(),
		Skipped:   s.Skipped.Load(),
		Dropped:   s.Dropped.Load(),
	}
}
