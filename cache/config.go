package cache

import "time"

// Backend names accepted in configuration files
const (
	BackendMemory   = "memory"
	BackendBigCache = "bigcache"
	BackendKeyDB    = "keydb"
	BackendBolt     = "bolt"
	BackendMulti    = "multi"
	BackendNone     = "none"
)

// BigCacheConfig represents BigCache (L1) configuration
type BigCacheConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	Size         int           `yaml:"size" json:"size"` // MB
	MaxEntrySize int           `yaml:"max_entry_size" json:"max_entry_size"`
	Shards       int           `yaml:"shards" json:"shards"` // must be power of 2
	LifeWindow   time.Duration `yaml:"life_window" json:"life_window"`
}

func (c *BigCacheConfig) ApplyDefaults() {
	if c.Size == 0 {
		c.Size = 100
	}
	if c.MaxEntrySize == 0 {
		c.MaxEntrySize = 1048576
	}
	if c.Shards == 0 {
		c.Shards = 256 // power of 2
	}
	// bigcache drops entries older than the life window whatever their own ttl is
	if c.LifeWindow == 0 {
		c.LifeWindow = 10 * time.Minute
	}
}

// KeyDBConfig represents KeyDB (L2) cache configuration
type KeyDBConfig struct {
	Enabled    bool             `yaml:"enabled" json:"enabled"`
	URL        string           `yaml:"url" json:"url"`
	KeyPrefix  string           `yaml:"key_prefix" json:"key_prefix"`
	Connection ConnectionConfig `yaml:"connection" json:"connection"`
	Keepalive  KeepaliveConfig  `yaml:"keepalive" json:"keepalive"`
	Cache      CacheSettings    `yaml:"cache" json:"cache"`
}

func (c *KeyDBConfig) ApplyDefaults() {
	if c.KeyPrefix == "" {
		c.KeyPrefix = "apisharp:"
	}
	if c.Connection.ConnectTimeout == 0 {
		c.Connection.ConnectTimeout = 1000 * time.Millisecond
	}
	if c.Connection.SendTimeout == 0 {
		c.Connection.SendTimeout = 1000 * time.Millisecond
	}
	if c.Connection.ReadTimeout == 0 {
		c.Connection.ReadTimeout = 1000 * time.Millisecond
	}

	if c.Keepalive.PoolSize == 0 {
		c.Keepalive.PoolSize = 10
	}
	if c.Keepalive.MaxIdleTimeout == 0 {
		c.Keepalive.MaxIdleTimeout = 10000 * time.Millisecond
	}

	if c.Cache.MaxTTL == 0 {
		c.Cache.MaxTTL = 86400 * time.Second
	}
	if c.Cache.ScanCount == 0 {
		c.Cache.ScanCount = 100
	}
}

type ConnectionConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
	SendTimeout    time.Duration `yaml:"send_timeout" json:"send_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout" json:"read_timeout"`
}

// KeepaliveConfig represents connection pool settings
type KeepaliveConfig struct {
	PoolSize       int           `yaml:"pool_size" json:"pool_size"` // max connections in pool
	MaxIdleTimeout time.Duration `yaml:"max_idle_timeout" json:"max_idle_timeout"`
}

type CacheSettings struct {
	MaxTTL    time.Duration `yaml:"max_ttl" json:"max_ttl"`
	ScanCount int64         `yaml:"scan_count" json:"scan_count"` // keys per SCAN page on Clear
}

// BoltConfig represents the persisted bbolt store configuration
type BoltConfig struct {
	Enabled     bool          `yaml:"enabled" json:"enabled"`
	Path        string        `yaml:"path" json:"path"`
	Bucket      string        `yaml:"bucket" json:"bucket"`
	OpenTimeout time.Duration `yaml:"open_timeout" json:"open_timeout"`
}

func (c *BoltConfig) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "apisharp-cache.db"
	}
	if c.Bucket == "" {
		c.Bucket = "responses"
	}
	if c.OpenTimeout == 0 {
		c.OpenTimeout = time.Second
	}
}

type MultiCacheConfig struct {
	EnablePropagation bool `yaml:"enable_propagation" json:"enable_propagation"`
}

// Config selects and configures the response store
type Config struct {
	Backend  string           `yaml:"backend" json:"backend"`
	BigCache BigCacheConfig   `yaml:"bigcache" json:"bigcache"`
	KeyDB    KeyDBConfig      `yaml:"keydb" json:"keydb"`
	Bolt     BoltConfig       `yaml:"bolt" json:"bolt"`
	Multi    MultiCacheConfig `yaml:"multi" json:"multi"`
}

func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
	c.BigCache.ApplyDefaults()
	c.KeyDB.ApplyDefaults()
	c.Bolt.ApplyDefaults()
}
