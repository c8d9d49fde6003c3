package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/status-im/apisharp/cache"
)

const (
	DefaultNamespace = "apisharp"
	DefaultSubsystem = "cache"
)

// Ensure CacheMetrics implements cache.MetricsRecorder
var _ cache.MetricsRecorder = (*CacheMetrics)(nil)

// Config defines configuration for cache metrics
type Config struct {
	Namespace string // default: "apisharp"
	Subsystem string // default: "cache"
	// Registerer receives the collectors. Nil means prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

// CacheMetrics holds all cache-related Prometheus metrics
type CacheMetrics struct {
	namespace string
	subsystem string

	// Counter metrics
	Requests     *prometheus.CounterVec
	Hits         *prometheus.CounterVec
	Misses       *prometheus.CounterVec
	Sets         *prometheus.CounterVec
	Evictions    *prometheus.CounterVec
	Errors       *prometheus.CounterVec
	BytesRead    *prometheus.CounterVec
	BytesWritten *prometheus.CounterVec

	// Histogram metrics
	OperationDuration *prometheus.HistogramVec
	ItemAge           *prometheus.HistogramVec

	// Gauge metrics
	Keys     *prometheus.GaugeVec
	Capacity *prometheus.GaugeVec
	Used     *prometheus.GaugeVec
}

// New creates a new CacheMetrics instance with the given configuration
func New(cfg Config) *CacheMetrics {
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = DefaultSubsystem
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.DefaultRegisterer
	}

	factory := promauto.With(cfg.Registerer)

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      name,
			Help:      help,
		}, labels)
	}
	gauge := func(name, help string) *prometheus.GaugeVec {
		return factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      name,
			Help:      help,
		}, []string{"level"})
	}

	m := &CacheMetrics{
		namespace: cfg.Namespace,
		subsystem: cfg.Subsystem,

		Requests:     counter("requests_total", "Total number of cache lookups", "level"),
		Hits:         counter("hits_total", "Total number of cache hits", "level"),
		Misses:       counter("misses_total", "Total number of cache misses", "level"),
		Sets:         counter("sets_total", "Total number of cache set operations", "level"),
		Evictions:    counter("evictions_total", "Total number of expired entries dropped on read", "level"),
		Errors:       counter("errors_total", "Cache errors by kind", "level", "kind"),
		BytesRead:    counter("bytes_read_total", "Bytes read from cache", "level"),
		BytesWritten: counter("bytes_written_total", "Bytes written to cache", "level"),

		Keys:     gauge("keys", "Current number of keys in cache"),
		Capacity: gauge("capacity_bytes", "L1 cache capacity in bytes"), // only "l1"
		Used:     gauge("used_bytes", "L1 cache used space in bytes"),   // only "l1"
	}

	m.OperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "operation_duration_seconds",
			Help:      "Duration of cache operations",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "level"}, // operation: get|set, level: memory|l1|l2|bolt
	)

	m.ItemAge = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "item_age_seconds",
			Help:      "Age of item at hit time",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600, 1800, 3600}, // up to 1 hour
		},
		[]string{"level"},
	)

	return m
}

// RecordCacheHit records a cache hit and the age of the entry served
func (m *CacheMetrics) RecordCacheHit(level string, itemAge time.Duration) {
	m.Requests.WithLabelValues(level).Inc()
	m.Hits.WithLabelValues(level).Inc()

	if itemAge > 0 {
		m.ItemAge.WithLabelValues(level).Observe(itemAge.Seconds())
	}
}

// RecordCacheMiss records a cache miss
func (m *CacheMetrics) RecordCacheMiss(level string) {
	m.Requests.WithLabelValues(level).Inc()
	m.Misses.WithLabelValues(level).Inc()
}

// RecordCacheSet records a cache set operation with size tracking
func (m *CacheMetrics) RecordCacheSet(level string, dataSize int) {
	m.Sets.WithLabelValues(level).Inc()
	if dataSize > 0 {
		m.BytesWritten.WithLabelValues(level).Add(float64(dataSize))
	}
}

// RecordCacheEviction records a cache eviction
func (m *CacheMetrics) RecordCacheEviction(level string) {
	m.Evictions.WithLabelValues(level).Inc()
}

// RecordCacheError records a cache error
func (m *CacheMetrics) RecordCacheError(level, kind string) {
	m.Errors.WithLabelValues(level, kind).Inc()
}

// RecordCacheBytesRead records bytes read from cache
func (m *CacheMetrics) RecordCacheBytesRead(level string, bytesRead int) {
	if bytesRead > 0 {
		m.BytesRead.WithLabelValues(level).Add(float64(bytesRead))
	}
}

// UpdateL1CacheCapacity updates L1 cache capacity metrics
func (m *CacheMetrics) UpdateL1CacheCapacity(capacity, used int64) {
	m.Capacity.WithLabelValues("l1").Set(float64(capacity))
	m.Used.WithLabelValues("l1").Set(float64(used))
}

// UpdateCacheKeys updates the number of keys in cache
func (m *CacheMetrics) UpdateCacheKeys(level string, count int64) {
	m.Keys.WithLabelValues(level).Set(float64(count))
}

// TimeCacheOperation returns a timer function for measuring cache operation duration
func (m *CacheMetrics) TimeCacheOperation(operation, level string) func() {
	timer := prometheus.NewTimer(m.OperationDuration.WithLabelValues(operation, level))
	return func() {
		timer.ObserveDuration()
	}
}
