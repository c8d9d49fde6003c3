package multi

import (
	"time"

	"github.com/status-im/apisharp/cache"
	"github.com/status-im/apisharp/models"
)

// Ensure MultiCache implements cache.Cache and cache.LevelAwareCache
var _ cache.Cache = (*MultiCache)(nil)
var _ cache.LevelAwareCache = (*MultiCache)(nil)

// MultiCache layers several stores, fastest first.
// Reads stop at the first level holding the key; writes and deletes fan out to every level.
type MultiCache struct {
	caches            []cache.Cache
	logger            cache.Logger
	enablePropagation bool
}

// Option is a functional option for configuring MultiCache
type Option func(*MultiCache)

// WithLogger sets the logger for MultiCache
func WithLogger(logger cache.Logger) Option {
	return func(mc *MultiCache) {
		mc.logger = logger
	}
}

// NewMultiCache creates a new MultiCache over the given levels
func NewMultiCache(caches []cache.Cache, enablePropagation bool, opts ...Option) *MultiCache {
	mc := &MultiCache{
		caches:            caches,
		logger:            cache.NoopLogger{},
		enablePropagation: enablePropagation,
	}

	for _, opt := range opts {
		opt(mc)
	}

	return mc
}

// Has reports whether any level holds an unexpired entry
func (mc *MultiCache) Has(key string) bool {
	for _, c := range mc.caches {
		if c.Has(key) {
			return true
		}
	}
	return false
}

// Get retrieves value from the first level that has the key
func (mc *MultiCache) Get(key string) (*models.CacheEntry, bool) {
	result := mc.GetWithLevel(key)
	return result.Entry, result.Found
}

// Set stores value in every level
func (mc *MultiCache) Set(key string, val []byte, ttl time.Duration) {
	if len(mc.caches) == 0 {
		mc.logger.Warn("No caches available for set operation", "key", key)
		return
	}

	for _, c := range mc.caches {
		c.Set(key, val, ttl)
	}
}

// Delete removes entry from every level, reporting whether any level held it
func (mc *MultiCache) Delete(key string) bool {
	var deleted bool
	for _, c := range mc.caches {
		if c.Delete(key) {
			deleted = true
		}
	}
	return deleted
}

// Clear empties every level
func (mc *MultiCache) Clear() {
	for _, c := range mc.caches {
		c.Clear()
	}
}

// GetCacheCount returns the number of levels
func (mc *MultiCache) GetCacheCount() int {
	return len(mc.caches)
}

// GetWithLevel retrieves value from cache with level information
func (mc *MultiCache) GetWithLevel(key string) *models.CacheResult {
	if len(mc.caches) == 0 {
		mc.logger.Warn("No caches available for get operation", "key", key)
		return &models.CacheResult{Level: models.CacheLevelMiss}
	}

	for i, c := range mc.caches {
		entry, found := c.Get(key)
		if !found {
			continue
		}

		if i > 0 && mc.enablePropagation {
			mc.propagateToEarlierCaches(key, entry, i)
		}

		return &models.CacheResult{
			Entry: entry,
			Found: true,
			Level: models.CacheLevelFromIndex(i),
		}
	}

	return &models.CacheResult{Level: models.CacheLevelMiss}
}

// propagateToEarlierCaches copies an entry found at a slower level into the faster ones.
// The copy keeps the original expiry instant rather than restarting the ttl.
func (mc *MultiCache) propagateToEarlierCaches(key string, entry *models.CacheEntry, foundAtIndex int) {
	if entry == nil {
		return
	}

	remaining := entry.RemainingTTL(time.Now())
	if remaining <= 0 {
		return
	}

	for i := 0; i < foundAtIndex; i++ {
		mc.caches[i].Set(key, entry.Data, remaining)
	}

	mc.logger.Debug("Propagated cache entry", "key", key, "from_level", models.CacheLevelFromIndex(foundAtIndex), "ttl", remaining)
}
