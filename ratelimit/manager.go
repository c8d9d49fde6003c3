package ratelimit

import (
	"math"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimit is a per-minute allowance with an optional burst
type RateLimit struct {
	RateLimitPerMinute int `yaml:"rate_limit_per_minute" json:"rate_limit_per_minute"`
	Burst              int `yaml:"burst" json:"burst"`
}

// IRateLimiterManager provides a way to get a rate limiter for a specific host
type IRateLimiterManager interface {
	GetLimiter(host string) *rate.Limiter
	SetConfig(config map[string]RateLimit, fallback RateLimit)
}

// RateLimiterManager manages per-host rate limiters
type RateLimiterManager struct {
	mu            sync.RWMutex
	hostToLimiter map[string]*rate.Limiter
	config        map[string]RateLimit
	fallback      RateLimit
}

// NewRateLimiterManager creates a new rate limiter manager.
// Hosts missing from config use fallback; a zero fallback leaves them unlimited.
func NewRateLimiterManager(config map[string]RateLimit, fallback RateLimit) *RateLimiterManager {
	return &RateLimiterManager{
		hostToLimiter: make(map[string]*rate.Limiter),
		config:        normalize(config),
		fallback:      fallback,
	}
}

func normalize(config map[string]RateLimit) map[string]RateLimit {
	out := make(map[string]RateLimit, len(config))
	for host, rl := range config {
		out[strings.ToLower(host)] = rl
	}
	return out
}

// SetConfig applies a new rate limit configuration and drops every existing limiter
func (m *RateLimiterManager) SetConfig(config map[string]RateLimit, fallback RateLimit) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = normalize(config)
	m.fallback = fallback

	for host := range m.hostToLimiter {
		delete(m.hostToLimiter, host)
	}
}

// GetLimiter returns the limiter for host, creating it if missing.
// It returns nil when the host is not limited.
func (m *RateLimiterManager) GetLimiter(host string) *rate.Limiter {
	host = strings.ToLower(host)

	m.mu.RLock()
	if lim, ok := m.hostToLimiter[host]; ok {
		m.mu.RUnlock()
		return lim
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if lim, ok := m.hostToLimiter[host]; ok {
		return lim
	}

	cfg, ok := m.config[host]
	if !ok || cfg.RateLimitPerMinute <= 0 {
		cfg = m.fallback
	}
	if cfg.RateLimitPerMinute <= 0 {
		return nil
	}

	limit := rate.Limit(float64(cfg.RateLimitPerMinute) / 60.0)
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurstForLimit(limit)
	}

	limiter := rate.NewLimiter(limit, burst)
	m.hostToLimiter[host] = limiter
	return limiter
}

// LimiterForRequest keys the limiter by the request's host and port
func (m *RateLimiterManager) LimiterForRequest(req *http.Request) *rate.Limiter {
	if req == nil || req.URL == nil {
		return nil
	}
	return m.GetLimiter(req.URL.Host)
}

func defaultBurstForLimit(limit rate.Limit) int {
	if limit <= 1.0 {
		return 1
	}
	return int(math.Ceil(float64(limit)))
}
