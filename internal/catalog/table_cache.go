package catalog

import (
	"context"
	"sync/atomic"

	"github.com/jellydator/ttlcache/v3"
)

// TableCache is the per-schema table cache. Implemented with
// jellydator/ttlcache/v3 (grounded on
// other_examples/.../gear6io-ranger schema-cache.go), configured with
// ttlcache.NoTTL so eviction is explicit-only (deregister_table /
// catalog-refresh-on-snapshot-drift, per spec §4.2 and testable
// property 6), while still getting OnEviction hooks for free as cache
// metrics.
type TableCache struct {
	cache   *ttlcache.Cache[string, *CachedTable]
	hits    atomic.Int64
	misses  atomic.Int64
	evicted atomic.Int64
}

func NewTableCache() *TableCache {
	cache := ttlcache.New[string, *CachedTable](
		ttlcache.WithTTL[string, *CachedTable](ttlcache.NoTTL),
	)
	tc := &TableCache{cache: cache}
	cache.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *CachedTable]) {
		tc.evicted.Add(1)
	})
	go cache.Start()
	return tc
}

func tableCacheKey(name string) string { return canonicalKey(name) }

// Get returns the cached entry for name, or (nil, false) on a miss.
func (tc *TableCache) Get(name string) (*CachedTable, bool) {
	item := tc.cache.Get(tableCacheKey(name))
	if item == nil {
		tc.misses.Add(1)
		return nil, false
	}
	tc.hits.Add(1)
	return item.Value(), true
}

// Put populates the cache on first resolution (spec §4.2).
func (tc *TableCache) Put(name string, entry *CachedTable) {
	tc.cache.Set(tableCacheKey(name), entry, ttlcache.NoTTL)
}

// Delete evicts name explicitly (deregister_table).
func (tc *TableCache) Delete(name string) {
	tc.cache.Delete(tableCacheKey(name))
}

func (tc *TableCache) Len() int { return tc.cache.Len() }

func (tc *TableCache) Names() []string {
	names := make([]string, 0, tc.cache.Len())
	for _, item := range tc.cache.Items() {
		names = append(names, item.Value().Table.Ident)
	}
	return names
}

func (tc *TableCache) Stop() { tc.cache.Stop() }

type tableCacheMetrics struct {
	Hits, Misses, Evictions int64
}

func (tc *TableCache) Metrics() tableCacheMetrics {
	return tableCacheMetrics{
		Hits:      tc.hits.Load(),
		Misses:    tc.misses.Load(),
		Evictions: tc.evicted.Load(),
	}
}
