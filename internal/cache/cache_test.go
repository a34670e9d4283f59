package cache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stsci-crds/crds-go/internal/metrics"
)

func TestCache_LoadsOnceAndCaches(t *testing.T) {
	c := New[string]()
	var loads int64
	load := func(basename string) (string, string, error) {
		atomic.AddInt64(&loads, 1)
		return "value:" + basename, "raw:" + basename, nil
	}

	v, err := c.Get("a.rmap", load)
	require.NoError(t, err)
	assert.Equal(t, "value:a.rmap", v)

	v, err = c.Get("a.rmap", load)
	require.NoError(t, err)
	assert.Equal(t, "value:a.rmap", v)

	assert.Equal(t, int64(1), atomic.LoadInt64(&loads), "second Get must be served from cache")
	assert.Equal(t, 1, c.Len())
}

func TestCache_ConcurrentGetsForSameKeyLoadOnce(t *testing.T) {
	c := New[string]()
	var loads int64
	var wg sync.WaitGroup
	start := make(chan struct{})

	load := func(basename string) (string, string, error) {
		atomic.AddInt64(&loads, 1)
		return "value", "raw", nil
	}

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := c.Get("shared.rmap", load)
			assert.NoError(t, err)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&loads), "at most one concurrent load per basename")
}

func TestCache_FailedLoadInstallsNothing(t *testing.T) {
	c := New[string]()
	attempt := 0
	load := func(basename string) (string, string, error) {
		attempt++
		if attempt == 1 {
			return "", "", fmt.Errorf("boom")
		}
		return "recovered", "raw", nil
	}

	_, err := c.Get("a.rmap", load)
	require.Error(t, err)
	assert.Equal(t, 0, c.Len(), "a failed load must not install a partial entry")

	v, err := c.Get("a.rmap", load)
	require.NoError(t, err)
	assert.Equal(t, "recovered", v, "a later call retries from scratch")
}

func TestCache_Invalidate(t *testing.T) {
	c := New[string]()
	loads := 0
	load := func(basename string) (string, string, error) {
		loads++
		return fmt.Sprintf("v%d", loads), "raw", nil
	}

	v1, err := c.Get("a.rmap", load)
	require.NoError(t, err)
	assert.Equal(t, "v1", v1)

	c.Invalidate("a.rmap")
	assert.Equal(t, 0, c.Len())

	v2, err := c.Get("a.rmap", load)
	require.NoError(t, err)
	assert.Equal(t, "v2", v2)
}

func TestCache_Fingerprint(t *testing.T) {
	c := New[string]()
	load := func(basename string) (string, string, error) {
		return "v", "raw-content", nil
	}
	_, err := c.Get("a.rmap", load)
	require.NoError(t, err)

	fp, ok := c.Fingerprint("a.rmap")
	assert.True(t, ok)
	assert.NotZero(t, fp)

	_, ok = c.Fingerprint("missing.rmap")
	assert.False(t, ok)
}

func TestCache_MetricsRecorded(t *testing.T) {
	c := New[string]()
	c.Metrics = &metrics.Counters{}

	load := func(basename string) (string, string, error) { return "v", "raw", nil }
	_, err := c.Get("a.rmap", load)
	require.NoError(t, err)
	_, err = c.Get("a.rmap", load)
	require.NoError(t, err)

	snap := c.Metrics.Snapshot()
	assert.Equal(t, int64(1), snap.MappingLoads)
	assert.Equal(t, int64(1), snap.CacheMisses)
	assert.Equal(t, int64(1), snap.CacheHits)
}
