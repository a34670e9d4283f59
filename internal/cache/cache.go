// Package cache implements the process-wide mapping cache: one
// basename keyed entry per loaded mapping, at most one
// concurrent load per basename, and publication ordering so a reader
// observing a cached entry also observes every mapping it transitively
// loaded. Loads are serialized per basename with
// golang.org/x/sync/singleflight rather than a single coarse lock,
// since only "at-most-one concurrent load per
// basename" is required, not a single global critical section.
package cache

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/stsci-crds/crds-go/internal/metrics"
)

// Loader produces the value for basename along with the raw file
// content it was built from; the raw content is fingerprinted with
// xxhash so a later dev-mode file-watch event can tell whether the
// on-disk bytes actually changed before paying for a reload (the cache
// has no eviction policy of its own; this fingerprint
// is purely an invalidation-filtering optimization layered on top).
type Loader[T any] func(basename string) (value T, rawContent string, err error)

// Cache is a generic basename -> T cache, used once per mapping tier
// (Pipeline, Instrument, Reference) since each tier's loaded type
// differs.
type Cache[T any] struct {
	mu      sync.RWMutex
	entries map[string]entry[T]
	group   singleflight.Group

	// Metrics is optional; nil leaves recording disabled.
	Metrics *metrics.Counters
}

type entry[T any] struct {
	value       T
	fingerprint uint64
}

// New returns an empty cache.
func New[T any]() *Cache[T] {
	return &Cache[T]{entries: make(map[string]entry[T])}
}

// Get returns the cached value for basename, loading it via load if
// absent. Concurrent callers requesting the same basename share one
// load; a load that fails installs nothing, so a later call retries
// from scratch: a load either completes or fails atomically without
// installing a partial mapping into the cache.
func (c *Cache[T]) Get(basename string, load Loader[T]) (T, error) {
	if v, ok := c.lookup(basename); ok {
		c.recordHit()
		return v, nil
	}

	v, err, _ := c.group.Do(basename, func() (any, error) {
		if v, ok := c.lookup(basename); ok {
			c.recordHit()
			return v, nil
		}
		c.recordMiss()
		value, raw, err := load(basename)
		if err != nil {
			var zero T
			return zero, err
		}
		c.mu.Lock()
		c.entries[basename] = entry[T]{value: value, fingerprint: xxhash.Sum64String(raw)}
		c.mu.Unlock()
		c.recordLoad()
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (c *Cache[T]) recordHit() {
	if c.Metrics != nil {
		c.Metrics.RecordCacheHit()
	}
}

func (c *Cache[T]) recordMiss() {
	if c.Metrics != nil {
		c.Metrics.RecordCacheMiss()
	}
}

func (c *Cache[T]) recordLoad() {
	if c.Metrics != nil {
		c.Metrics.RecordLoad()
	}
}

func (c *Cache[T]) lookup(basename string) (T, bool) {
	c.mu.RLock()
	e, ok := c.entries[basename]
	c.mu.RUnlock()
	return e.value, ok
}

// Invalidate drops basename's cached entry, if any, forcing the next
// Get to reload it.
func (c *Cache[T]) Invalidate(basename string) {
	c.mu.Lock()
	delete(c.entries, basename)
	c.mu.Unlock()
}

// Fingerprint reports the xxhash of the raw content basename was last
// loaded from, for a watcher to compare against a freshly-read file
// before deciding an invalidation is warranted.
func (c *Cache[T]) Fingerprint(basename string) (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[basename]
	return e.fingerprint, ok
}

// Len reports the number of currently cached entries, for diagnostics.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
