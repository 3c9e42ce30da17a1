package scanner

import (
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/xkilldash9x/jsguard/internal/analysis/static/javascript"
)

// outcome is the file-independent part of an analysis: identical content in the same
// dialect always produces it, only the file label differs.
type outcome struct {
	parsed   bool
	fallback bool
	findings []javascript.Finding
}

// resultCache memoizes outcomes by content hash for the duration of one scan, so
// vendored copies of the same bundle are parsed once.
type resultCache struct {
	mu      sync.Mutex
	entries map[string]outcome
	group   singleflight.Group
}

func newResultCache() *resultCache {
	return &resultCache{entries: make(map[string]outcome)}
}

func cacheKey(dialect javascript.Dialect, content []byte) string {
	return strconv.FormatUint(xxhash.Sum64(content), 16) + "/" + dialect.String()
}

// get returns the outcome for key, computing it at most once across concurrent callers.
// Errors are not cached. The bool reports whether the outcome was produced for another file.
func (c *resultCache) get(key string, compute func() (outcome, error)) (outcome, bool, error) {
	c.mu.Lock()
	if o, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return o, true, nil
	}
	c.mu.Unlock()

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		o, err := compute()
		if err != nil {
			return outcome{}, err
		}
		c.mu.Lock()
		c.entries[key] = o
		c.mu.Unlock()
		return o, nil
	})
	if err != nil {
		return outcome{}, false, err
	}
	return v.(outcome), shared, nil
}

// relabel copies findings and stamps them with path.
func relabel(findings []javascript.Finding, path string) []javascript.Finding {
	out := make([]javascript.Finding, len(findings))
	for i, f := range findings {
		f.File = path
		out[i] = f
	}
	return out
}
