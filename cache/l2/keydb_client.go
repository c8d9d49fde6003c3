package l2

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/status-im/apisharp/cache"
)

// *redis.Client already has the command set the store needs
var _ cache.KeyDbClient = (*redis.Client)(nil)

// Dial connects to the server named by cfg.URL (redis://[:password@]host[:port][/db]).
// Timeouts and pool size from cfg override anything in the URL. The connection is
// checked with one PING bounded by the connect timeout.
func Dial(ctx context.Context, cfg *cache.KeyDBConfig, logger cache.Logger) (*redis.Client, error) {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = cache.NoopLogger{}
	}

	if cfg.URL == "" {
		return nil, fmt.Errorf("keydb url is required")
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse keydb url: %w", err)
	}

	opts.DialTimeout = cfg.Connection.ConnectTimeout
	opts.ReadTimeout = cfg.Connection.ReadTimeout
	opts.WriteTimeout = cfg.Connection.SendTimeout
	opts.PoolSize = cfg.Keepalive.PoolSize
	opts.IdleTimeout = cfg.Keepalive.MaxIdleTimeout

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Connection.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("keydb at %s is unreachable: %w", opts.Addr, err)
	}

	logger.Info("connected to keydb",
		"address", opts.Addr,
		"db", opts.DB,
		"key_prefix", cfg.KeyPrefix)

	return client, nil
}
