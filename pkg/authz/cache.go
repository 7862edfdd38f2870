package authz

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// CachedLookup wraps a ResourceLookup with a small LRU of recent resolutions.
// It exists for read-heavy callers (feed rendering authorizes many comments
// against the same parent post); the Decider itself never looks a resource up
// twice within one decision. Entries expire after a short TTL so permission
// changes propagate quickly. Negative results are not cached. Concurrent
// misses for the same resource collapse into one backing lookup.
type CachedLookup struct {
	inner ResourceLookup
	cache *lru.Cache[cacheKey, cacheEntry]
	group singleflight.Group
	ttl   time.Duration
	now   func() time.Time
}

type cacheKey struct {
	kind ResourceKind
	id   string
}

type cacheEntry struct {
	info    ResourceInfo
	expires time.Time
}

// NewCachedLookup creates a caching decorator holding up to size entries for
// at most ttl each
func NewCachedLookup(inner ResourceLookup, size int, ttl time.Duration) (*CachedLookup, error) {
	cache, err := lru.New[cacheKey, cacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &CachedLookup{
		inner: inner,
		cache: cache,
		ttl:   ttl,
		now:   time.Now,
	}, nil
}

// LookupResource resolves from cache when fresh, falling through to the
// wrapped lookup otherwise
func (c *CachedLookup) LookupResource(ctx context.Context, kind ResourceKind, id string) (*ResourceInfo, error) {
	key := cacheKey{kind: kind, id: id}
	if entry, ok := c.cache.Get(key); ok {
		if c.now().Before(entry.expires) {
			info := entry.info
			return &info, nil
		}
		c.cache.Remove(key)
	}

	v, err, _ := c.group.Do(string(kind)+"\x00"+id, func() (interface{}, error) {
		info, err := c.inner.LookupResource(ctx, kind, id)
		if err != nil {
			return nil, err
		}
		c.cache.Add(key, cacheEntry{info: *info, expires: c.now().Add(c.ttl)})
		return info, nil
	})
	if err != nil {
		return nil, err
	}

	// Copy so callers sharing a flight cannot mutate each other's result.
	info := *v.(*ResourceInfo)
	return &info, nil
}

// Invalidate drops the cached entry for a resource, for callers that just
// mutated it
func (c *CachedLookup) Invalidate(kind ResourceKind, id string) {
	c.cache.Remove(cacheKey{kind: kind, id: id})
}
