// Package metrics holds the lightweight load/lookup counters the
// resource model implies but does not itself name: simple atomic
// interlocked counters, mirroring the counter style the process-wide
// cache elsewhere in this codebase uses, rather than a full metrics
// exporter (out of scope; see DESIGN.md).
package metrics

import "sync/atomic"

// Counters tracks cache and lookup activity for one process-wide cache
// instance. The zero value is ready to use.
type Counters struct {
	mappingLoads      int64
	cacheHits         int64
	cacheMisses       int64
	lookups           int64
	lookupErrors      int64
	ambiguousMatches  int64
	checksumFailures  int64
	watchInvalidations int64
}

// RecordLoad increments the count of mapping files actually parsed
// (i.e. cache misses that completed a load), distinct from RecordCacheHit.
func (c *Counters) RecordLoad() { atomic.AddInt64(&c.mappingLoads, 1) }

// RecordCacheHit increments the count of Get calls served from the
// cache without a load.
func (c *Counters) RecordCacheHit() { atomic.AddInt64(&c.cacheHits, 1) }

// RecordCacheMiss increments the count of Get calls that triggered a load.
func (c *Counters) RecordCacheMiss() { atomic.AddInt64(&c.cacheMisses, 1) }

// RecordLookup increments the count of best_references selector
// evaluations attempted, successful or not.
func (c *Counters) RecordLookup() { atomic.AddInt64(&c.lookups, 1) }

// RecordLookupError increments the count of selector evaluations that
// raised any LookupError (UseAfterError, MatchingError, AmbiguousMatchError).
func (c *Counters) RecordLookupError() { atomic.AddInt64(&c.lookupErrors, 1) }

// RecordAmbiguousMatch increments the count of AmbiguousMatchError
// occurrences specifically, since an ambiguous rmap is an authoring
// defect worth tracking separately from an ordinary no-match.
func (c *Counters) RecordAmbiguousMatch() { atomic.AddInt64(&c.ambiguousMatches, 1) }

// RecordChecksumFailure increments the count of ChecksumError occurrences.
func (c *Counters) RecordChecksumFailure() { atomic.AddInt64(&c.checksumFailures, 1) }

// RecordWatchInvalidation increments the count of dev-mode cache entries
// dropped by cache.Watcher in response to a real content change.
func (c *Counters) RecordWatchInvalidation() { atomic.AddInt64(&c.watchInvalidations, 1) }

// Snapshot is a point-in-time copy of every counter, safe to read
// without further synchronization.
type Snapshot struct {
	MappingLoads       int64
	CacheHits          int64
	CacheMisses        int64
	Lookups            int64
	LookupErrors       int64
	AmbiguousMatches   int64
	ChecksumFailures   int64
	WatchInvalidations int64
}

// Snapshot reads every counter atomically and returns the result.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		MappingLoads:       atomic.LoadInt64(&c.mappingLoads),
		CacheHits:          atomic.LoadInt64(&c.cacheHits),
		CacheMisses:        atomic.LoadInt64(&c.cacheMisses),
		Lookups:            atomic.LoadInt64(&c.lookups),
		LookupErrors:       atomic.LoadInt64(&c.lookupErrors),
		AmbiguousMatches:   atomic.LoadInt64(&c.ambiguousMatches),
		ChecksumFailures:   atomic.LoadInt64(&c.checksumFailures),
		WatchInvalidations: atomic.LoadInt64(&c.watchInvalidations),
	}
}
