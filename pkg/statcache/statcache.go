package statcache

import (
	"sync"

	"github.com/grovestate/promised/pkg/copyproto"
	"github.com/grovestate/promised/pkg/metrics"
)

// entry is one memoised remote stat, keyed by (server, path).
type entry struct {
	server string
	path   string
	stat   copyproto.FileStat
	failed bool
}

// Cache is a per-promise memo of remote stat results. Construct one
// per promise evaluation with New and discard it once the promise
// converges; do not share a Cache across promises or hold one as a
// field of a long-lived object.
type Cache struct {
	mu      sync.Mutex
	entries []entry
}

// New returns an empty stat cache.
func New() *Cache {
	return &Cache{}
}

// Lookup returns the memoised stat for (server, path), if any. found
// is false on a cache miss; failed is true on a negative hit, meaning
// a previous attempt to stat this path failed and the caller should
// return that failure again without a network round-trip.
func (c *Cache) Lookup(server, path string) (stat copyproto.FileStat, found, failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.entries {
		if e.server == server && e.path == path {
			if e.failed {
				metrics.StatCacheHitsTotal.WithLabelValues("negative_hit").Inc()
				return copyproto.FileStat{}, true, true
			}
			metrics.StatCacheHitsTotal.WithLabelValues("hit").Inc()
			return e.stat, true, false
		}
	}
	metrics.StatCacheHitsTotal.WithLabelValues("miss").Inc()
	return copyproto.FileStat{}, false, false
}

// Put memoises a successful stat result for (server, path). An
// existing entry for the same key is replaced.
func (c *Cache) Put(server, path string, stat copyproto.FileStat) {
	c.put(server, path, stat, false)
}

// PutFailed memoises that stating (server, path) failed, so later
// lookups within this promise get a negative hit instead of
// re-attempting the network round-trip.
func (c *Cache) PutFailed(server, path string) {
	c.put(server, path, copyproto.FileStat{}, true)
}

func (c *Cache) put(server, path string, stat copyproto.FileStat, failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, e := range c.entries {
		if e.server == server && e.path == path {
			c.entries[i] = entry{server: server, path: path, stat: stat, failed: failed}
			return
		}
	}
	c.entries = append(c.entries, entry{server: server, path: path, stat: stat, failed: failed})
}

// Len reports the number of memoised entries, for tests.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
