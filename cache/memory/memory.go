package memory

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/status-im/apisharp/cache"
	"github.com/status-im/apisharp/models"
)

const level = "memory"

// Ensure MemoryCache implements cache.Cache
var _ cache.Cache = (*MemoryCache)(nil)

// MemoryCache keeps entries in a process-local map.
// There is no background sweeper: expired entries are dropped when a read touches them.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*models.CacheEntry
	clock   clock.Clock
	logger  cache.Logger
	metrics cache.MetricsRecorder
}

// Option is a functional option for configuring MemoryCache
type Option func(*MemoryCache)

// WithClock sets the time source used for expiry checks
func WithClock(c clock.Clock) Option {
	return func(mc *MemoryCache) {
		mc.clock = c
	}
}

// WithLogger sets the logger for MemoryCache
func WithLogger(logger cache.Logger) Option {
	return func(mc *MemoryCache) {
		mc.logger = logger
	}
}

// WithMetrics sets the metrics recorder for MemoryCache
func WithMetrics(metrics cache.MetricsRecorder) Option {
	return func(mc *MemoryCache) {
		mc.metrics = metrics
	}
}

// NewMemoryCache creates an empty in-memory cache
func NewMemoryCache(opts ...Option) *MemoryCache {
	mc := &MemoryCache{
		entries: make(map[string]*models.CacheEntry),
		clock:   clock.New(),
		logger:  cache.NoopLogger{},
		metrics: cache.NoopMetrics{},
	}

	for _, opt := range opts {
		opt(mc)
	}

	return mc
}

// Has reports whether an unexpired entry exists, evicting an expired one
func (mc *MemoryCache) Has(key string) bool {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	_, ok := mc.lookup(key)
	return ok
}

// Get returns the entry stored under key while it is still within its ttl
func (mc *MemoryCache) Get(key string) (*models.CacheEntry, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	entry, ok := mc.lookup(key)
	if !ok {
		mc.metrics.RecordCacheMiss(level)
		return nil, false
	}

	mc.metrics.RecordCacheHit(level, entry.Age(mc.clock.Now()))
	mc.metrics.RecordCacheBytesRead(level, len(entry.Data))

	cp := *entry
	return &cp, true
}

// lookup must be called with mu held
func (mc *MemoryCache) lookup(key string) (*models.CacheEntry, bool) {
	entry, ok := mc.entries[key]
	if !ok {
		return nil, false
	}

	if entry.IsExpiredAt(mc.clock.Now()) {
		delete(mc.entries, key)
		mc.metrics.RecordCacheEviction(level)
		return nil, false
	}

	return entry, true
}

// Set stores val for ttl. A non-positive ttl stores nothing.
func (mc *MemoryCache) Set(key string, val []byte, ttl time.Duration) {
	if ttl <= 0 {
		mc.logger.Debug("Skipping memory cache set with non-positive ttl", "key", key, "ttl", ttl)
		return
	}

	entry := models.NewCacheEntry(val, mc.clock.Now(), ttl)

	mc.mu.Lock()
	mc.entries[key] = &entry
	mc.mu.Unlock()

	mc.metrics.RecordCacheSet(level, len(val))
}

// Delete removes the entry and reports whether one was present
func (mc *MemoryCache) Delete(key string) bool {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	_, ok := mc.entries[key]
	delete(mc.entries, key)
	return ok
}

// Clear drops every entry
func (mc *MemoryCache) Clear() {
	mc.mu.Lock()
	mc.entries = make(map[string]*models.CacheEntry)
	mc.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return len(mc.entries)
}
