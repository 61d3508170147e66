package providers

import (
	"roverchat/internal/structures"
	"strings"
)

// MetricsCacheProvider counts hits and misses per key namespace,
// the part of the key before the first ':' ("offset:abc" counts under "offset").
type MetricsCacheProvider struct {
	inner   CacheProviderInterface
	metrics MetricsProviderInterface
}

func cacheNamespace(key string) string {
	ns, _, found := strings.Cut(key, ":")
	if !found || ns == "" {
		return "default"
	}
	return ns
}

func (c *MetricsCacheProvider) Get(key string) ([]byte, bool) {
	val, ok := c.inner.Get(key)
	if ok {
		c.metrics.IncCacheHits(cacheNamespace(key))
	} else {
		c.metrics.IncCacheMisses(cacheNamespace(key))
	}
	return val, ok
}

func (c *MetricsCacheProvider) Set(key string, value []byte) {
	c.inner.Set(key, value)
}

func (c *MetricsCacheProvider) Del(key string) {
	c.inner.Del(key)
}

// NewInstrumentedCacheProvider skips instrumentation when the cache is disabled,
// otherwise every lookup would count as a miss.
func NewInstrumentedCacheProvider(conf *structures.Config, logger Logger, metrics MetricsProviderInterface) CacheProviderInterface {
	inner := NewCacheProvider(conf, logger)
	if _, disabled := inner.(*noopCache); disabled {
		return inner
	}
	return &MetricsCacheProvider{
		inner:   inner,
		metrics: metrics,
	}
}
