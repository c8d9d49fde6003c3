package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/status-im/apisharp/models"
)

//go:generate mockgen -package=mock -source=interfaces.go -destination=mock/cache.go

// Cache is the store the request pipeline reads and writes responses through.
// Expired entries are indistinguishable from absent ones and are evicted lazily on read.
// A Set with a non-positive ttl is a no-op.
type Cache interface {
	Has(key string) bool
	Get(key string) (*models.CacheEntry, bool)
	Set(key string, val []byte, ttl time.Duration)
	Delete(key string) bool
	Clear()
}

// LevelAwareCache interface extends Cache with level-aware operations
type LevelAwareCache interface {
	Cache
	GetWithLevel(key string) *models.CacheResult
}

// KeyDbClient defines the interface for KeyDB/Redis client operations
type KeyDbClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// Logger defines the interface for logging operations.
// *slog.Logger satisfies it, as do most structured loggers.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// MetricsRecorder defines the interface for recording cache metrics
type MetricsRecorder interface {
	RecordCacheError(level, kind string)
	UpdateL1CacheCapacity(capacity, used int64)
	UpdateCacheKeys(level string, count int64)
	RecordCacheHit(level string, itemAge time.Duration)
	RecordCacheMiss(level string)
	RecordCacheSet(level string, dataSize int)
	RecordCacheEviction(level string)
	RecordCacheBytesRead(level string, bytesRead int)
	TimeCacheOperation(operation, level string) func()
}

// NoopLogger is a no-operation logger that discards all log messages
type NoopLogger struct{}

func (NoopLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (NoopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (NoopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (NoopLogger) Error(msg string, keysAndValues ...interface{}) {}

// NoopMetrics is a no-operation metrics recorder that discards all metrics
type NoopMetrics struct{}

func (NoopMetrics) RecordCacheError(level, kind string)                {}
func (NoopMetrics) UpdateL1CacheCapacity(capacity, used int64)         {}
func (NoopMetrics) UpdateCacheKeys(level string, count int64)          {}
func (NoopMetrics) RecordCacheHit(level string, itemAge time.Duration) {}
func (NoopMetrics) RecordCacheMiss(level string)                       {}
func (NoopMetrics) RecordCacheSet(level string, dataSize int)          {}
func (NoopMetrics) RecordCacheEviction(level string)                   {}
func (NoopMetrics) RecordCacheBytesRead(level string, bytesRead int)   {}
func (NoopMetrics) TimeCacheOperation(operation, level string) func()  { return func() {} }
