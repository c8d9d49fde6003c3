package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/status-im/apisharp"
	"github.com/status-im/apisharp/auth"
	"github.com/status-im/apisharp/cache"
	"github.com/status-im/apisharp/cache/bolt"
	"github.com/status-im/apisharp/cache/l1"
	"github.com/status-im/apisharp/cache/l2"
	"github.com/status-im/apisharp/cache/memory"
	cachemetrics "github.com/status-im/apisharp/cache/metrics"
	"github.com/status-im/apisharp/cache/multi"
	"github.com/status-im/apisharp/cache/noop"
	"github.com/status-im/apisharp/httpclient"
	"github.com/status-im/apisharp/logging"
	"github.com/status-im/apisharp/metrics"
	"github.com/status-im/apisharp/ratelimit"
)

// Stack is a client together with the resources built for it
type Stack struct {
	Client      *apisharp.Client
	Cache       cache.Cache
	Metrics     metrics.Recorder
	RateLimiter *ratelimit.RateLimiterManager
	Logger      *slog.Logger

	closers []io.Closer
}

// Close releases every cache backend the stack opened
func (s *Stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// BuildOption customizes Build
type BuildOption func(*buildOptions)

type buildOptions struct {
	registerer prometheus.Registerer
	logger     *slog.Logger
	transport  httpclient.Transport
}

// WithRegisterer registers metrics on reg instead of prometheus.DefaultRegisterer
func WithRegisterer(reg prometheus.Registerer) BuildOption {
	return func(o *buildOptions) {
		o.registerer = reg
	}
}

// WithLogger replaces the logger derived from the logging section
func WithLogger(logger *slog.Logger) BuildOption {
	return func(o *buildOptions) {
		o.logger = logger
	}
}

// WithTransport replaces the net/http transport described by the http section
func WithTransport(t httpclient.Transport) BuildOption {
	return func(o *buildOptions) {
		o.transport = t
	}
}

// Build validates cfg and wires a client from it
func Build(cfg *Config, opts ...BuildOption) (*Stack, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := &buildOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = newSlogLogger(cfg.Logging)
	}

	s := &Stack{Logger: o.logger}

	var cacheMetrics cache.MetricsRecorder = cache.NoopMetrics{}
	s.Metrics = metrics.NewNoopMetrics()
	if cfg.Metrics.Enabled {
		s.Metrics = metrics.NewPrometheusMetrics(cfg.Metrics.Namespace, o.registerer)
		cacheMetrics = cachemetrics.New(cachemetrics.Config{
			Namespace:  cfg.Metrics.Namespace,
			Registerer: o.registerer,
		})
	}

	store, err := s.buildCache(&cfg.Cache, o.logger, cacheMetrics)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.Cache = store

	transport := o.transport
	if transport == nil {
		s.RateLimiter = ratelimit.NewRateLimiterManager(cfg.RateLimits.Hosts, cfg.RateLimits.Default)
		ht := httpclient.NewHTTPTransport(httpclient.Options{
			ConnectionTimeout: cfg.HTTP.ConnectionTimeout,
			RequestTimeout:    cfg.HTTP.RequestTimeout,
			MaxResponseBytes:  cfg.HTTP.MaxResponseBytes,
			UserAgent:         cfg.HTTP.UserAgent,
		}, s.Metrics, s.RateLimiter.LimiterForRequest)
		ht.Logger = o.logger
		transport = ht
	}

	s.Client = apisharp.New(clientDefaults(cfg),
		apisharp.WithTransport(transport),
		apisharp.WithCache(store),
		apisharp.WithMetrics(s.Metrics),
		apisharp.WithLogger(o.logger),
	)

	return s, nil
}

func (s *Stack) buildCache(cfg *cache.Config, logger *slog.Logger, recorder cache.MetricsRecorder) (cache.Cache, error) {
	switch cfg.Backend {
	case cache.BackendNone:
		return noop.NewNoOpCache(), nil
	case cache.BackendMemory:
		return memory.NewMemoryCache(memory.WithLogger(logger), memory.WithMetrics(recorder)), nil
	case cache.BackendBigCache:
		return s.openBigCache(&cfg.BigCache, logger, recorder)
	case cache.BackendKeyDB:
		return s.openKeyDB(&cfg.KeyDB, logger, recorder)
	case cache.BackendBolt:
		return s.openBolt(&cfg.Bolt, logger, recorder)
	case cache.BackendMulti:
		var levels []cache.Cache
		if cfg.BigCache.Enabled {
			c, err := s.openBigCache(&cfg.BigCache, logger, recorder)
			if err != nil {
				return nil, err
			}
			levels = append(levels, c)
		}
		if cfg.KeyDB.Enabled {
			c, err := s.openKeyDB(&cfg.KeyDB, logger, recorder)
			if err != nil {
				return nil, err
			}
			levels = append(levels, c)
		}
		if cfg.Bolt.Enabled {
			c, err := s.openBolt(&cfg.Bolt, logger, recorder)
			if err != nil {
				return nil, err
			}
			levels = append(levels, c)
		}
		return multi.NewMultiCache(levels, cfg.Multi.EnablePropagation, multi.WithLogger(logger)), nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
}

func (s *Stack) openBigCache(cfg *cache.BigCacheConfig, logger *slog.Logger, recorder cache.MetricsRecorder) (cache.Cache, error) {
	c, err := l1.NewBigCache(cfg, l1.WithLogger(logger), l1.WithMetrics(recorder))
	if err != nil {
		return nil, fmt.Errorf("failed to create bigcache: %w", err)
	}
	s.closers = append(s.closers, c)
	return c, nil
}

func (s *Stack) openKeyDB(cfg *cache.KeyDBConfig, logger *slog.Logger, recorder cache.MetricsRecorder) (cache.Cache, error) {
	client, err := l2.Dial(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to keydb: %w", err)
	}
	c := l2.NewKeyDBCache(cfg, client, l2.WithLogger(logger), l2.WithMetrics(recorder))
	s.closers = append(s.closers, c)
	return c, nil
}

func (s *Stack) openBolt(cfg *cache.BoltConfig, logger *slog.Logger, recorder cache.MetricsRecorder) (cache.Cache, error) {
	c, err := bolt.Open(cfg, bolt.WithLogger(logger), bolt.WithMetrics(recorder))
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt cache: %w", err)
	}
	s.closers = append(s.closers, c)
	return c, nil
}

func clientDefaults(cfg *Config) apisharp.API {
	c := cfg.Client
	api := apisharp.API{
		BaseURL:      c.BaseURL,
		Headers:      c.Headers,
		ResponseType: c.ResponseType,
	}

	if c.EnableCache != nil {
		api.EnableCache = apisharp.Static(*c.EnableCache)
	}
	if c.CacheTime != nil {
		api.CacheTime = apisharp.Static(*c.CacheTime)
	}
	if c.EnableRetry != nil {
		api.EnableRetry = apisharp.Static(*c.EnableRetry)
	}
	if c.RetryTimes != nil {
		api.RetryTimes = apisharp.Static(*c.RetryTimes)
	}
	if c.Timeout != nil {
		api.Timeout = apisharp.Static(*c.Timeout)
	}
	if c.EnableLog != nil {
		api.EnableLog = apisharp.Static(*c.EnableLog)
	}
	if c.WithCredentials != nil {
		api.WithCredentials = apisharp.Static(*c.WithCredentials)
	}

	if cfg.Logging.Backend == "logrus" {
		api.LogFormatter = logging.NewLogrusFormatter(logging.NewLogger(cfg.Logging.Config))
	}

	if cfg.Auth.JWTSecret != "" {
		api.TransformRequest = auth.BearerTransform(&auth.Signer{
			Secret:  cfg.Auth.JWTSecret,
			Issuer:  cfg.Auth.Issuer,
			Subject: cfg.Auth.Subject,
			TTL:     cfg.Auth.TokenTTL,
		})
	}

	return api
}

func newSlogLogger(cfg LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, handlerOpts))
}
