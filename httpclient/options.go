package httpclient

import "time"

// Options configures the net/http transport
type Options struct {
	ConnectionTimeout time.Duration // Timeout for establishing connection
	RequestTimeout    time.Duration // Upper bound for a whole request; a per-request timeout may shorten it
	MaxResponseBytes  int64         // 0 means unlimited
	UserAgent         string
}

// DefaultOptions returns default transport options
func DefaultOptions() Options {
	return Options{
		ConnectionTimeout: 10 * time.Second, // Default 10s connection timeout
		RequestTimeout:    30 * time.Second, // Default 30s total request timeout
		UserAgent:         "apisharp",
	}
}
