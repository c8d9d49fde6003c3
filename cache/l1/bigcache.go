package l1

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/dustin/go-humanize"

	"github.com/status-im/apisharp/cache"
	"github.com/status-im/apisharp/models"
	"github.com/status-im/apisharp/scheduler"
)

const level = "l1"

// Ensure BigCache implements cache.Cache
var _ cache.Cache = (*BigCache)(nil)

// BigCache implements L1 cache using BigCache
type BigCache struct {
	cache            *bigcache.BigCache
	logger           cache.Logger
	metrics          cache.MetricsRecorder
	metricsScheduler *scheduler.Scheduler
	metricsInterval  time.Duration
	maxEntrySize     int
}

// Option is a functional option for configuring BigCache
type Option func(*BigCache)

// WithLogger sets the logger for BigCache
func WithLogger(logger cache.Logger) Option {
	return func(bc *BigCache) {
		bc.logger = logger
	}
}

// WithMetrics sets the metrics recorder for BigCache
func WithMetrics(metrics cache.MetricsRecorder) Option {
	return func(bc *BigCache) {
		bc.metrics = metrics
	}
}

// WithMetricsInterval sets how often capacity metrics are collected
func WithMetricsInterval(interval time.Duration) Option {
	return func(bc *BigCache) {
		bc.metricsInterval = interval
	}
}

// NewBigCache creates a new BigCache instance
func NewBigCache(cfg *cache.BigCacheConfig, opts ...Option) (*BigCache, error) {
	cfg.ApplyDefaults()

	config := bigcache.DefaultConfig(cfg.LifeWindow)
	config.HardMaxCacheSize = cfg.Size
	config.Verbose = false
	config.MaxEntrySize = cfg.MaxEntrySize
	config.Shards = cfg.Shards

	c, err := bigcache.New(context.Background(), config)
	if err != nil {
		return nil, err
	}

	bc := &BigCache{
		cache:           c,
		logger:          cache.NoopLogger{},
		metrics:         cache.NoopMetrics{},
		metricsInterval: 30 * time.Second,
		maxEntrySize:    cfg.MaxEntrySize,
	}

	for _, opt := range opts {
		opt(bc)
	}

	bc.startMetricsCollection()

	return bc, nil
}

// Has reports whether an unexpired entry exists
func (bc *BigCache) Has(key string) bool {
	_, ok := bc.load(key)
	return ok
}

// Get retrieves an unexpired entry, evicting it when its ttl has passed
func (bc *BigCache) Get(key string) (*models.CacheEntry, bool) {
	done := bc.metrics.TimeCacheOperation("get", level)
	defer done()

	entry, ok := bc.load(key)
	if !ok {
		bc.metrics.RecordCacheMiss(level)
		return nil, false
	}

	bc.metrics.RecordCacheHit(level, entry.Age(time.Now()))
	bc.metrics.RecordCacheBytesRead(level, len(entry.Data))
	return entry, true
}

func (bc *BigCache) load(key string) (*models.CacheEntry, bool) {
	data, err := bc.cache.Get(key)
	if err != nil {
		if !errors.Is(err, bigcache.ErrEntryNotFound) {
			bc.logger.Warn("L1 cache get failed", "key", key, "error", err)
			bc.metrics.RecordCacheError(level, "upstream")
		}
		return nil, false
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		bc.logger.Warn("Failed to unmarshal L1 cache entry", "key", key, "error", err)
		bc.metrics.RecordCacheError(level, "decode")
		_ = bc.cache.Delete(key)
		return nil, false
	}

	if entry.IsExpired() {
		_ = bc.cache.Delete(key)
		bc.metrics.RecordCacheEviction(level)
		return nil, false
	}

	return &entry, true
}

// Set stores value in cache with TTL
func (bc *BigCache) Set(key string, val []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	done := bc.metrics.TimeCacheOperation("set", level)
	defer done()

	entry := models.NewCacheEntry(val, time.Now(), ttl)

	data, err := json.Marshal(entry)
	if err != nil {
		bc.logger.Error("Failed to marshal cache entry", "key", key, "error", err)
		bc.metrics.RecordCacheError(level, "encode")
		return
	}

	if len(data) > bc.maxEntrySize {
		bc.logger.Warn("Cache entry too large, skipping L1 cache",
			"key", key,
			"size", humanize.Bytes(uint64(len(data))),
			"max_size", humanize.Bytes(uint64(bc.maxEntrySize)))
		bc.metrics.RecordCacheError(level, "entry_too_large")
		return
	}

	err = bc.cache.Set(key, data)
	if err != nil {
		bc.logger.Error("Failed to set cache entry", "key", key, "error", err)
		bc.metrics.RecordCacheError(level, "upstream")
		return
	}

	bc.metrics.RecordCacheSet(level, len(val))
}

// Delete removes entry from cache
func (bc *BigCache) Delete(key string) bool {
	return bc.cache.Delete(key) == nil
}

// Clear drops every entry
func (bc *BigCache) Clear() {
	if err := bc.cache.Reset(); err != nil {
		bc.logger.Error("Failed to reset L1 cache", "error", err)
		bc.metrics.RecordCacheError(level, "upstream")
	}
}

// Close closes the cache
func (bc *BigCache) Close() error {
	bc.stopMetricsCollection()

	return bc.cache.Close()
}

// GetStats returns cache statistics for metrics
func (bc *BigCache) GetStats() (capacity, used int64) {
	stats := bc.cache.Stats()
	capacity = int64(bc.cache.Capacity())
	used = int64(stats.Hits + stats.Misses) // approximation, bigcache exposes no byte usage

	return capacity, used
}

// startMetricsCollection starts periodic metrics collection
func (bc *BigCache) startMetricsCollection() {
	bc.metricsScheduler = scheduler.New(bc.metricsInterval, bc.updateMetrics)
	bc.metricsScheduler.Start()

	bc.updateMetrics()

	bc.logger.Debug("Started L1 cache metrics collection", "interval", bc.metricsInterval)
}

// stopMetricsCollection stops periodic metrics collection
func (bc *BigCache) stopMetricsCollection() {
	if bc.metricsScheduler != nil {
		bc.metricsScheduler.Stop()
		bc.logger.Debug("Stopped L1 cache metrics collection")
	}
}

func (bc *BigCache) updateMetrics() {
	capacity, used := bc.GetStats()

	bc.metrics.UpdateL1CacheCapacity(capacity, used)
	bc.metrics.UpdateCacheKeys(level, int64(bc.cache.Len()))

	bc.logger.Debug("L1 cache stats",
		"capacity", humanize.Bytes(uint64(capacity)),
		"keys", bc.cache.Len())
}
