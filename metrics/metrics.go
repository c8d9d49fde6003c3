package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder receives request pipeline events
type Recorder interface {
	// RecordRequest counts a completed request by method and provenance (network, cache, mock)
	RecordRequest(method, from string)
	// RecordFailure counts a request that failed after its retry budget, by error kind
	RecordFailure(method, kind string)
	RecordRetry(method string)
	RecordCacheLookup(hit bool)
	ObserveDuration(method string, d time.Duration)
	// OnRequest counts transport round trips by status, so a Recorder can serve as an httpclient status handler
	OnRequest(status string)
}

type NoopMetrics struct{}

func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordRequest(method, from string) {}

func (n *NoopMetrics) RecordFailure(method, kind string) {}

func (n *NoopMetrics) RecordRetry(method string) {}

func (n *NoopMetrics) RecordCacheLookup(hit bool) {}

func (n *NoopMetrics) ObserveDuration(method string, d time.Duration) {}

func (n *NoopMetrics) OnRequest(status string) {}

type PrometheusMetrics struct {
	requests     *prometheus.CounterVec
	failures     *prometheus.CounterVec
	retries      *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	transport    *prometheus.CounterVec
}

// NewPrometheusMetrics registers the request collectors on reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusMetrics(namespace string, reg prometheus.Registerer) *PrometheusMetrics {
	if namespace == "" {
		namespace = "apisharp"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "The total number of completed requests",
		}, []string{"method", "from"}), // from: "network", "cache", "mock"

		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_failures_total",
			Help:      "The total number of requests that failed after retries",
		}, []string{"method", "kind"}), // kind: "network", "timeout", "validation"

		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_retries_total",
			Help:      "The total number of retry attempts",
		}, []string{"method"}),

		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by result",
		}, []string{"result"}), // result: "hit", "miss"

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Duration of requests including retries",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		transport: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_requests_total",
			Help:      "HTTP round trips by status",
		}, []string{"status"}),
	}
}

func (p *PrometheusMetrics) RecordRequest(method, from string) {
	p.requests.WithLabelValues(method, from).Inc()
}

func (p *PrometheusMetrics) RecordFailure(method, kind string) {
	p.failures.WithLabelValues(method, kind).Inc()
}

func (p *PrometheusMetrics) RecordRetry(method string) {
	p.retries.WithLabelValues(method).Inc()
}

func (p *PrometheusMetrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.cacheLookups.WithLabelValues(result).Inc()
}

func (p *PrometheusMetrics) ObserveDuration(method string, d time.Duration) {
	p.duration.WithLabelValues(method).Observe(d.Seconds())
}

func (p *PrometheusMetrics) OnRequest(status string) {
	p.transport.WithLabelValues(status).Inc()
}
