package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestMetrics() (*CacheMetrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return New(Config{Registerer: reg}), reg
}

func TestNew(t *testing.T) {
	t.Run("creates metrics with custom namespace and subsystem", func(t *testing.T) {
		m := New(Config{
			Namespace:  "custom_proxy",
			Subsystem:  "custom_cache",
			Registerer: prometheus.NewRegistry(),
		})

		if m == nil {
			t.Fatal("expected non-nil metrics")
		}
		if m.namespace != "custom_proxy" {
			t.Errorf("expected namespace 'custom_proxy', got '%s'", m.namespace)
		}
		if m.subsystem != "custom_cache" {
			t.Errorf("expected subsystem 'custom_cache', got '%s'", m.subsystem)
		}
	})

	t.Run("uses defaults when empty", func(t *testing.T) {
		m, _ := newTestMetrics()

		if m.namespace != DefaultNamespace {
			t.Errorf("expected default namespace '%s', got '%s'", DefaultNamespace, m.namespace)
		}
		if m.subsystem != DefaultSubsystem {
			t.Errorf("expected default subsystem '%s', got '%s'", DefaultSubsystem, m.subsystem)
		}
	})

	t.Run("registers on the given registry", func(t *testing.T) {
		m, reg := newTestMetrics()
		m.RecordCacheMiss("memory")

		n, err := testutil.GatherAndCount(reg, "apisharp_cache_misses_total")
		if err != nil {
			t.Fatalf("gather failed: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 series, got %d", n)
		}
	})

	t.Run("separate registries do not collide", func(t *testing.T) {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("unexpected duplicate registration panic: %v", r)
			}
		}()
		newTestMetrics()
		newTestMetrics()
	})
}

func TestRecordCacheHit(t *testing.T) {
	m, _ := newTestMetrics()

	m.RecordCacheHit("l1", 2*time.Second)
	m.RecordCacheHit("l1", 0)

	if got := testutil.ToFloat64(m.Hits.WithLabelValues("l1")); got != 2 {
		t.Errorf("expected 2 hits, got %v", got)
	}
	if got := testutil.ToFloat64(m.Requests.WithLabelValues("l1")); got != 2 {
		t.Errorf("expected 2 requests, got %v", got)
	}
	if got := testutil.CollectAndCount(m.ItemAge); got != 1 {
		t.Errorf("expected one item age series, got %d", got)
	}
}

func TestRecordCacheMiss(t *testing.T) {
	m, _ := newTestMetrics()

	m.RecordCacheMiss("l2")

	if got := testutil.ToFloat64(m.Misses.WithLabelValues("l2")); got != 1 {
		t.Errorf("expected 1 miss, got %v", got)
	}
	if got := testutil.ToFloat64(m.Requests.WithLabelValues("l2")); got != 1 {
		t.Errorf("expected 1 request, got %v", got)
	}
}

func TestRecordCacheSet(t *testing.T) {
	m, _ := newTestMetrics()

	m.RecordCacheSet("bolt", 128)
	m.RecordCacheSet("bolt", 0)

	if got := testutil.ToFloat64(m.Sets.WithLabelValues("bolt")); got != 2 {
		t.Errorf("expected 2 sets, got %v", got)
	}
	if got := testutil.ToFloat64(m.BytesWritten.WithLabelValues("bolt")); got != 128 {
		t.Errorf("expected 128 bytes written, got %v", got)
	}
}

func TestRecordCacheErrorsAndEvictions(t *testing.T) {
	m, _ := newTestMetrics()

	m.RecordCacheError("l2", "redis")
	m.RecordCacheError("l2", "redis")
	m.RecordCacheError("l2", "decode")
	m.RecordCacheEviction("memory")

	if got := testutil.ToFloat64(m.Errors.WithLabelValues("l2", "redis")); got != 2 {
		t.Errorf("expected 2 redis errors, got %v", got)
	}
	if got := testutil.ToFloat64(m.Errors.WithLabelValues("l2", "decode")); got != 1 {
		t.Errorf("expected 1 decode error, got %v", got)
	}
	if got := testutil.ToFloat64(m.Evictions.WithLabelValues("memory")); got != 1 {
		t.Errorf("expected 1 eviction, got %v", got)
	}
}

func TestRecordCacheBytesRead(t *testing.T) {
	m, _ := newTestMetrics()

	m.RecordCacheBytesRead("l1", 64)
	m.RecordCacheBytesRead("l1", 0)

	if got := testutil.ToFloat64(m.BytesRead.WithLabelValues("l1")); got != 64 {
		t.Errorf("expected 64 bytes read, got %v", got)
	}
}

func TestGauges(t *testing.T) {
	m, _ := newTestMetrics()

	m.UpdateL1CacheCapacity(1024, 512)
	m.UpdateCacheKeys("l1", 7)

	if got := testutil.ToFloat64(m.Capacity.WithLabelValues("l1")); got != 1024 {
		t.Errorf("expected capacity 1024, got %v", got)
	}
	if got := testutil.ToFloat64(m.Used.WithLabelValues("l1")); got != 512 {
		t.Errorf("expected used 512, got %v", got)
	}
	if got := testutil.ToFloat64(m.Keys.WithLabelValues("l1")); got != 7 {
		t.Errorf("expected 7 keys, got %v", got)
	}
}

func TestTimeCacheOperation(t *testing.T) {
	m, _ := newTestMetrics()

	done := m.TimeCacheOperation("get", "memory")
	done()

	if got := testutil.CollectAndCount(m.OperationDuration); got != 1 {
		t.Errorf("expected one duration series, got %d", got)
	}
}
