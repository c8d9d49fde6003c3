package l2

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/status-im/apisharp/cache"
	"github.com/status-im/apisharp/models"
)

const level = "l2"

// Ensure KeyDBCache implements cache.Cache
var _ cache.Cache = (*KeyDBCache)(nil)

// KeyDBCache implements L2 cache using Redis/KeyDB
type KeyDBCache struct {
	client  cache.KeyDbClient
	cfg     *cache.KeyDBConfig
	logger  cache.Logger
	metrics cache.MetricsRecorder
}

// Option is a functional option for configuring KeyDBCache
type Option func(*KeyDBCache)

// WithLogger sets the logger for KeyDBCache
func WithLogger(logger cache.Logger) Option {
	return func(kc *KeyDBCache) {
		kc.logger = logger
	}
}

// WithMetrics sets the metrics recorder for KeyDBCache
func WithMetrics(metrics cache.MetricsRecorder) Option {
	return func(kc *KeyDBCache) {
		kc.metrics = metrics
	}
}

// NewKeyDBCache creates a new KeyDBCache instance with provided client
func NewKeyDBCache(cfg *cache.KeyDBConfig, client cache.KeyDbClient, opts ...Option) *KeyDBCache {
	cfg.ApplyDefaults()

	kc := &KeyDBCache{
		client:  client,
		cfg:     cfg,
		logger:  cache.NoopLogger{},
		metrics: cache.NoopMetrics{},
	}

	for _, opt := range opts {
		opt(kc)
	}

	return kc
}

func (kc *KeyDBCache) key(key string) string {
	return kc.cfg.KeyPrefix + key
}

// Has reports whether an unexpired entry exists
func (kc *KeyDBCache) Has(key string) bool {
	_, ok := kc.load(key)
	return ok
}

// Get retrieves an unexpired entry from KeyDB
func (kc *KeyDBCache) Get(key string) (*models.CacheEntry, bool) {
	done := kc.metrics.TimeCacheOperation("get", level)
	defer done()

	entry, ok := kc.load(key)
	if !ok {
		kc.metrics.RecordCacheMiss(level)
		return nil, false
	}

	kc.metrics.RecordCacheHit(level, entry.Age(time.Now()))
	kc.metrics.RecordCacheBytesRead(level, len(entry.Data))
	return entry, true
}

func (kc *KeyDBCache) load(key string) (*models.CacheEntry, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), kc.cfg.Connection.ReadTimeout)
	defer cancel()

	data, err := kc.client.Get(ctx, kc.key(key)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			kc.logger.Warn("L2 cache get failed", "key", key, "error", err)
			kc.metrics.RecordCacheError(level, "redis")
		}
		return nil, false
	}

	var entry models.CacheEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		kc.logger.Error("Failed to unmarshal L2 cache entry", "key", key, "error", err)
		kc.metrics.RecordCacheError(level, "decode")
		kc.client.Del(context.Background(), kc.key(key))
		return nil, false
	}

	// redis expiry has second granularity on some servers, the entry's own ttl is authoritative
	if entry.IsExpired() {
		kc.client.Del(context.Background(), kc.key(key))
		kc.metrics.RecordCacheEviction(level)
		return nil, false
	}

	return &entry, true
}

// Set stores value in KeyDB with TTL, clamped to the configured maximum
func (kc *KeyDBCache) Set(key string, val []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if ttl > kc.cfg.Cache.MaxTTL {
		ttl = kc.cfg.Cache.MaxTTL
	}

	done := kc.metrics.TimeCacheOperation("set", level)
	defer done()

	ctx, cancel := context.WithTimeout(context.Background(), kc.cfg.Connection.SendTimeout)
	defer cancel()

	data, err := json.Marshal(models.NewCacheEntry(val, time.Now(), ttl))
	if err != nil {
		kc.logger.Error("Failed to marshal L2 cache entry", "key", key, "error", err)
		kc.metrics.RecordCacheError(level, "encode")
		return
	}

	if err := kc.client.Set(ctx, kc.key(key), data, ttl).Err(); err != nil {
		kc.logger.Warn("Failed to set L2 cache entry", "key", key, "error", err)
		kc.metrics.RecordCacheError(level, "redis")
		return
	}

	kc.metrics.RecordCacheSet(level, len(val))
}

// Delete removes entry from KeyDB cache
func (kc *KeyDBCache) Delete(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), kc.cfg.Connection.SendTimeout)
	defer cancel()

	n, err := kc.client.Del(ctx, kc.key(key)).Result()
	if err != nil {
		kc.logger.Warn("Failed to delete L2 cache entry", "key", key, "error", err)
		kc.metrics.RecordCacheError(level, "redis")
		return false
	}
	return n > 0
}

// Clear deletes every key under the configured prefix
func (kc *KeyDBCache) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), kc.cfg.Connection.SendTimeout)
	defer cancel()

	var cursor uint64
	for {
		keys, next, err := kc.client.Scan(ctx, cursor, kc.cfg.KeyPrefix+"*", kc.cfg.Cache.ScanCount).Result()
		if err != nil {
			kc.logger.Warn("Failed to scan L2 cache keys", "prefix", kc.cfg.KeyPrefix, "error", err)
			kc.metrics.RecordCacheError(level, "redis")
			return
		}

		if len(keys) > 0 {
			if err := kc.client.Del(ctx, keys...).Err(); err != nil {
				kc.logger.Warn("Failed to delete L2 cache keys", "count", len(keys), "error", err)
				kc.metrics.RecordCacheError(level, "redis")
				return
			}
		}

		if next == 0 {
			return
		}
		cursor = next
	}
}

// Close closes the KeyDB connection
func (kc *KeyDBCache) Close() error {
	return kc.client.Close()
}
