// Package config loads client configuration from yaml files or APISHARP_* environment
// variables and assembles a ready-to-use client from it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/status-im/apisharp/cache"
	"github.com/status-im/apisharp/logging"
	"github.com/status-im/apisharp/ratelimit"
)

// ClientConfig holds the client-wide request defaults. Nil pointers leave the library default in place.
type ClientConfig struct {
	BaseURL         string            `yaml:"base_url"`
	Headers         map[string]string `yaml:"headers"`
	EnableCache     *bool             `yaml:"enable_cache"`
	CacheTime       *time.Duration    `yaml:"cache_time"`
	EnableRetry     *bool             `yaml:"enable_retry"`
	RetryTimes      *int              `yaml:"retry_times"`
	Timeout         *time.Duration    `yaml:"timeout"`
	EnableLog       *bool             `yaml:"enable_log"`
	WithCredentials *bool             `yaml:"with_credentials"`
	ResponseType    string            `yaml:"response_type"`
}

// HTTPConfig configures the net/http transport
type HTTPConfig struct {
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	MaxResponseBytes  int64         `yaml:"max_response_bytes"`
	UserAgent         string        `yaml:"user_agent"`
}

// RateLimitConfig configures per-host limits; hosts not listed use Default
type RateLimitConfig struct {
	Default ratelimit.RateLimit            `yaml:"default"`
	Hosts   map[string]ratelimit.RateLimit `yaml:"hosts"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// LoggingConfig picks the lifecycle log backend: "slog" (default) or "logrus"
type LoggingConfig struct {
	Backend        string `yaml:"backend"`
	logging.Config `yaml:",inline"`
}

// AuthConfig enables bearer tokens signed with JWTSecret
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	Issuer    string        `yaml:"issuer"`
	Subject   string        `yaml:"subject"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type Config struct {
	Client     ClientConfig    `yaml:"client"`
	HTTP       HTTPConfig      `yaml:"http"`
	Cache      cache.Config    `yaml:"cache"`
	RateLimits RateLimitConfig `yaml:"rate_limits"`
	Metrics    MetricsConfig   `yaml:"metrics"`
	Logging    LoggingConfig   `yaml:"logging"`
	Auth       AuthConfig      `yaml:"auth"`
}

// New returns a configuration with every default applied
func New() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

func (c *Config) ApplyDefaults() {
	if c.HTTP.ConnectionTimeout == 0 {
		c.HTTP.ConnectionTimeout = 10 * time.Second
	}
	if c.HTTP.RequestTimeout == 0 {
		c.HTTP.RequestTimeout = 30 * time.Second
	}
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = "apisharp"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "apisharp"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "slog"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	c.Cache.ApplyDefaults()
}

// LoadFromFile reads a yaml configuration and applies defaults
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ApplyDefaults()

	return &cfg, nil
}

// Load reads the file named by APISHARP_CONFIG, or "apisharp.yaml"
func Load() (*Config, error) {
	path := os.Getenv("APISHARP_CONFIG")
	if path == "" {
		path = "apisharp.yaml"
	}
	return LoadFromFile(path)
}

// LoadFromEnv builds a configuration from APISHARP_* environment variables
func LoadFromEnv() (*Config, error) {
	cfg := New()
	var errs []error

	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	boolPtr := func(name string, dst **bool) {
		if v := os.Getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = &b
		}
	}
	durationPtr := func(name string, dst **time.Duration) {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = &d
		}
	}

	str("APISHARP_BASE_URL", &cfg.Client.BaseURL)
	str("APISHARP_RESPONSE_TYPE", &cfg.Client.ResponseType)
	boolPtr("APISHARP_ENABLE_CACHE", &cfg.Client.EnableCache)
	durationPtr("APISHARP_CACHE_TIME", &cfg.Client.CacheTime)
	boolPtr("APISHARP_ENABLE_RETRY", &cfg.Client.EnableRetry)
	durationPtr("APISHARP_TIMEOUT", &cfg.Client.Timeout)
	boolPtr("APISHARP_ENABLE_LOG", &cfg.Client.EnableLog)
	boolPtr("APISHARP_WITH_CREDENTIALS", &cfg.Client.WithCredentials)

	if v := os.Getenv("APISHARP_RETRY_TIMES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("APISHARP_RETRY_TIMES: %w", err))
		} else {
			cfg.Client.RetryTimes = &n
		}
	}

	str("APISHARP_USER_AGENT", &cfg.HTTP.UserAgent)

	str("APISHARP_CACHE_BACKEND", &cfg.Cache.Backend)
	str("APISHARP_KEYDB_URL", &cfg.Cache.KeyDB.URL)
	str("APISHARP_BOLT_PATH", &cfg.Cache.Bolt.Path)

	if v := os.Getenv("APISHARP_METRICS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("APISHARP_METRICS_ENABLED: %w", err))
		} else {
			cfg.Metrics.Enabled = b
		}
	}

	str("APISHARP_LOG_BACKEND", &cfg.Logging.Backend)
	str("APISHARP_LOG_LEVEL", &cfg.Logging.Level)
	str("APISHARP_LOG_FORMAT", &cfg.Logging.Format)

	str("APISHARP_JWT_SECRET", &cfg.Auth.JWTSecret)
	str("APISHARP_JWT_ISSUER", &cfg.Auth.Issuer)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case cache.BackendMemory, cache.BackendBigCache, cache.BackendBolt, cache.BackendNone:
	case cache.BackendKeyDB:
		if c.Cache.KeyDB.URL == "" {
			return fmt.Errorf("keydb backend requires cache.keydb.url")
		}
	case cache.BackendMulti:
		if !c.Cache.BigCache.Enabled && !c.Cache.KeyDB.Enabled && !c.Cache.Bolt.Enabled {
			return fmt.Errorf("multi backend requires at least one enabled level")
		}
		if c.Cache.KeyDB.Enabled && c.Cache.KeyDB.URL == "" {
			return fmt.Errorf("enabled keydb level requires cache.keydb.url")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}

	if c.Client.RetryTimes != nil && *c.Client.RetryTimes < 0 {
		return fmt.Errorf("retry times must be non-negative")
	}
	if c.Client.Timeout != nil && *c.Client.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	if c.Client.CacheTime != nil && *c.Client.CacheTime < 0 {
		return fmt.Errorf("cache time must be non-negative")
	}
	switch c.Client.ResponseType {
	case "", "json", "text", "bytes":
	default:
		return fmt.Errorf("unknown response type %q", c.Client.ResponseType)
	}

	if c.HTTP.ConnectionTimeout < 0 || c.HTTP.RequestTimeout < 0 {
		return fmt.Errorf("http timeouts must be non-negative")
	}

	for host, limit := range c.RateLimits.Hosts {
		if limit.RateLimitPerMinute < 0 || limit.Burst < 0 {
			return fmt.Errorf("rate limit for %s must be non-negative", host)
		}
	}

	switch c.Logging.Backend {
	case "slog", "logrus":
	default:
		return fmt.Errorf("unknown logging backend %q", c.Logging.Backend)
	}

	if c.Auth.TokenTTL < 0 {
		return fmt.Errorf("token ttl must be non-negative")
	}

	return nil
}
