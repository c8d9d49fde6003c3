package bolt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	bolt "go.etcd.io/bbolt"

	"github.com/status-im/apisharp/cache"
	"github.com/status-im/apisharp/models"
)

const level = "bolt"

var errNotFound = errors.New("not found")

// Ensure BoltCache implements cache.Cache
var _ cache.Cache = (*BoltCache)(nil)

// BoltCache persists entries in a single bbolt bucket so they survive restarts
type BoltCache struct {
	db      *bolt.DB
	bucket  []byte
	clock   clock.Clock
	logger  cache.Logger
	metrics cache.MetricsRecorder
}

// Option is a functional option for configuring BoltCache
type Option func(*BoltCache)

// WithClock sets the time source used for expiry checks
func WithClock(c clock.Clock) Option {
	return func(bc *BoltCache) {
		bc.clock = c
	}
}

// WithLogger sets the logger for BoltCache
func WithLogger(logger cache.Logger) Option {
	return func(bc *BoltCache) {
		bc.logger = logger
	}
}

// WithMetrics sets the metrics recorder for BoltCache
func WithMetrics(metrics cache.MetricsRecorder) Option {
	return func(bc *BoltCache) {
		bc.metrics = metrics
	}
}

// Open opens or creates the database file and its bucket
func Open(cfg *cache.BoltConfig, opts ...Option) (*BoltCache, error) {
	cfg.ApplyDefaults()

	db, err := bolt.Open(cfg.Path, 0600, &bolt.Options{
		Timeout: cfg.OpenTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	bc := &BoltCache{
		db:      db,
		bucket:  []byte(cfg.Bucket),
		clock:   clock.New(),
		logger:  cache.NoopLogger{},
		metrics: cache.NoopMetrics{},
	}

	for _, opt := range opts {
		opt(bc)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bc.bucket)
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return bc, nil
}

// Has reports whether an unexpired entry exists
func (bc *BoltCache) Has(key string) bool {
	_, ok := bc.load(key)
	return ok
}

// Get retrieves an unexpired entry, removing it from disk once expired
func (bc *BoltCache) Get(key string) (*models.CacheEntry, bool) {
	done := bc.metrics.TimeCacheOperation("get", level)
	defer done()

	entry, ok := bc.load(key)
	if !ok {
		bc.metrics.RecordCacheMiss(level)
		return nil, false
	}

	bc.metrics.RecordCacheHit(level, entry.Age(bc.clock.Now()))
	bc.metrics.RecordCacheBytesRead(level, len(entry.Data))
	return entry, true
}

func (bc *BoltCache) load(key string) (*models.CacheEntry, bool) {
	var entry models.CacheEntry

	err := bc.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bc.bucket).Get([]byte(key))
		if data == nil {
			return errNotFound
		}
		// data is only valid inside the transaction
		return json.Unmarshal(data, &entry)
	})
	if errors.Is(err, errNotFound) {
		return nil, false
	}
	if err != nil {
		bc.logger.Warn("Failed to read bolt cache entry", "key", key, "error", err)
		bc.metrics.RecordCacheError(level, "decode")
		bc.Delete(key)
		return nil, false
	}

	if entry.IsExpiredAt(bc.clock.Now()) {
		bc.Delete(key)
		bc.metrics.RecordCacheEviction(level)
		return nil, false
	}

	return &entry, true
}

// Set writes value with TTL. A non-positive ttl stores nothing.
func (bc *BoltCache) Set(key string, val []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	done := bc.metrics.TimeCacheOperation("set", level)
	defer done()

	data, err := json.Marshal(models.NewCacheEntry(val, bc.clock.Now(), ttl))
	if err != nil {
		bc.logger.Error("Failed to marshal bolt cache entry", "key", key, "error", err)
		bc.metrics.RecordCacheError(level, "encode")
		return
	}

	err = bc.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bc.bucket).Put([]byte(key), data)
	})
	if err != nil {
		bc.logger.Error("Failed to write bolt cache entry", "key", key, "error", err)
		bc.metrics.RecordCacheError(level, "write")
		return
	}

	bc.metrics.RecordCacheSet(level, len(val))
}

// Delete removes key, reporting whether it was present
func (bc *BoltCache) Delete(key string) bool {
	var existed bool

	err := bc.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bc.bucket)
		existed = b.Get([]byte(key)) != nil
		return b.Delete([]byte(key))
	})
	if err != nil {
		bc.logger.Warn("Failed to delete bolt cache entry", "key", key, "error", err)
		return false
	}
	return existed
}

// Clear drops and recreates the bucket
func (bc *BoltCache) Clear() {
	err := bc.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bc.bucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(bc.bucket)
		return err
	})
	if err != nil {
		bc.logger.Error("Failed to clear bolt cache", "error", err)
		bc.metrics.RecordCacheError(level, "write")
	}
}

// Len counts stored entries, expired ones included
func (bc *BoltCache) Len() int {
	var n int
	_ = bc.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bc.bucket).Stats().KeyN
		return nil
	})
	return n
}

// Close releases the database file lock
func (bc *BoltCache) Close() error {
	return bc.db.Close()
}
