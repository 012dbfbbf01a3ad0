package triage

import (
	"fmt"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"

	"logtriage/internal/format"
)

// detectKey identifies one file state. Size and mtime are part of the
// key so a rotated or rewritten file never reuses a stale decision.
type detectKey struct {
	path    string
	size    int64
	modTime int64
}

// fileKey stats the file and builds its cache key. Stat failures are
// resource errors and abort the request before any pipeline cost.
func fileKey(path string) (detectKey, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return detectKey{}, fmt.Errorf("log file not found: %s", path)
		}
		return detectKey{}, fmt.Errorf("failed to stat log file: %w", err)
	}
	return detectKey{
		path:    path,
		size:    info.Size(),
		modTime: info.ModTime().UnixNano(),
	}, nil
}

// detectCache remembers dialect decisions per file state so repeated
// requests against an unchanged file skip the sampling pass.
type detectCache struct {
	entries *lru.Cache[detectKey, format.Name]
}

func newDetectCache(size int) (*detectCache, error) {
	entries, err := lru.New[detectKey, format.Name](size)
	if err != nil {
		return nil, err
	}
	return &detectCache{entries: entries}, nil
}

func (c *detectCache) get(key detectKey) (format.Name, bool) {
	return c.entries.Get(key)
}

func (c *detectCache) put(key detectKey, name format.Name) {
	c.entries.Add(key, name)
}

func (c *detectCache) len() int {
	return c.entries.Len()
}
