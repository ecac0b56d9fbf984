package metrics

import "sync/atomic"

// CacheMetric counts hits and misses for a cache.
type CacheMetric struct {
	name   string
	hits   int64
	misses int64
}

func newCacheMetric(name string) *CacheMetric {
	return &CacheMetric{name: name}
}

// Hit records a cache hit.
func (c *CacheMetric) Hit() {
	if !enabled {
		return
	}
	atomic.AddInt64(&c.hits, 1)
}

// Miss records a cache miss.
func (c *CacheMetric) Miss() {
	if !enabled {
		return
	}
	atomic.AddInt64(&c.misses, 1)
}

// Name returns the metric name.
func (c *CacheMetric) Name() string {
	return c.name
}

// Hits returns the number of recorded hits.
func (c *CacheMetric) Hits() int64 {
	return atomic.LoadInt64(&c.hits)
}

// Misses returns the number of recorded misses.
func (c *CacheMetric) Misses() int64 {
	return atomic.LoadInt64(&c.misses)
}

// HitRate returns hits/(hits+misses), or 0 when nothing was recorded.
func (c *CacheMetric) HitRate() float64 {
	h := c.Hits()
	total := h + c.Misses()
	if total == 0 {
		return 0
	}
	return float64(h) / float64(total)
}

// Reset clears the counters.
func (c *CacheMetric) Reset() {
	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
}

// Global cache metrics.
var (
	DatasetCache  = newCacheMetric("dataset_cache")
	BoundaryCache = newCacheMetric("boundary_cache")
)

// AllCacheMetrics returns all registered cache metrics.
func AllCacheMetrics() []*CacheMetric {
	return []*CacheMetric{DatasetCache, BoundaryCache}
}
