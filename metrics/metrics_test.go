package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNoopMetrics(t *testing.T) {
	m := NewNoopMetrics()

	// These should not panic
	m.RecordRequest("GET", "network")
	m.RecordFailure("GET", "timeout")
	m.RecordRetry("GET")
	m.RecordCacheLookup(true)
	m.ObserveDuration("GET", time.Second)
	m.OnRequest("success")
}

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics("", reg)

	m.RecordRequest("GET", "cache")
	m.RecordRequest("GET", "cache")
	m.RecordRequest("POST", "network")
	m.RecordFailure("GET", "validation")
	m.RecordRetry("GET")
	m.RecordRetry("GET")
	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordCacheLookup(false)
	m.ObserveDuration("GET", 20*time.Millisecond)
	m.OnRequest("timeout")

	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "cache")); got != 2 {
		t.Errorf("expected 2 cached GETs, got %v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("POST", "network")); got != 1 {
		t.Errorf("expected 1 network POST, got %v", got)
	}
	if got := testutil.ToFloat64(m.failures.WithLabelValues("GET", "validation")); got != 1 {
		t.Errorf("expected 1 validation failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.retries.WithLabelValues("GET")); got != 2 {
		t.Errorf("expected 2 retries, got %v", got)
	}
	if got := testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")); got != 2 {
		t.Errorf("expected 2 misses, got %v", got)
	}
	if got := testutil.ToFloat64(m.transport.WithLabelValues("timeout")); got != 1 {
		t.Errorf("expected 1 timeout, got %v", got)
	}

	n, err := testutil.GatherAndCount(reg, "apisharp_request_duration_seconds")
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 duration series, got %d", n)
	}
}

func TestPrometheusMetrics_Namespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics("client", reg)
	m.RecordRetry("GET")

	n, err := testutil.GatherAndCount(reg, "client_request_retries_total")
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 series, got %d", n)
	}
}
