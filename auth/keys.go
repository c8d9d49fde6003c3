package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/status-im/apisharp"
)

var ErrNoKeys = errors.New("no api keys available")

// KeyType ranks API keys; pools try types in the order they were given
type KeyType int

// APIKey is a key with its type
type APIKey struct {
	Key   string
	Type  KeyType
	Label string // optional description
}

// KeyProvider supplies the keys of one type
type KeyProvider interface {
	GetKeys(keyType KeyType) []string
}

// StaticKeys is a KeyProvider over a fixed map
type StaticKeys map[KeyType][]string

func (s StaticKeys) GetKeys(keyType KeyType) []string {
	return s[keyType]
}

// KeyPool hands out API keys and parks keys the server rejected for a backoff period
type KeyPool struct {
	provider   KeyProvider
	keyTypes   []KeyType            // ordered by priority
	lastFailed map[string]time.Time // time of the last failure for each key
	backoff    time.Duration
	clock      clock.Clock
	logger     *slog.Logger
	mu         sync.RWMutex
}

type KeyPoolOption func(*KeyPool)

func WithKeyClock(c clock.Clock) KeyPoolOption {
	return func(p *KeyPool) {
		p.clock = c
	}
}

func WithKeyLogger(logger *slog.Logger) KeyPoolOption {
	return func(p *KeyPool) {
		p.logger = logger
	}
}

// NewKeyPool creates a pool; a zero backoff means 5 minutes
func NewKeyPool(provider KeyProvider, keyTypes []KeyType, backoff time.Duration, opts ...KeyPoolOption) *KeyPool {
	if backoff == 0 {
		backoff = 5 * time.Minute
	}
	p := &KeyPool{
		provider:   provider,
		keyTypes:   keyTypes,
		lastFailed: make(map[string]time.Time),
		backoff:    backoff,
		clock:      clock.New(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *KeyPool) inBackoff(key string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if failedAt, ok := p.lastFailed[key]; ok {
		return p.clock.Since(failedAt) < p.backoff
	}
	return false
}

// Available returns usable keys by priority. The only key of a type is
// returned even while backing off.
func (p *KeyPool) Available() []APIKey {
	var keys []APIKey

	for _, keyType := range p.keyTypes {
		candidates := p.provider.GetKeys(keyType)

		if len(candidates) == 1 {
			keys = append(keys, APIKey{Key: candidates[0], Type: keyType})
			continue
		}
		for _, key := range candidates {
			if !p.inBackoff(key) {
				keys = append(keys, APIKey{Key: key, Type: keyType})
			}
		}
	}

	return keys
}

// MarkFailed parks key for the backoff period
func (p *KeyPool) MarkFailed(key string) {
	if key == "" {
		return
	}

	p.mu.Lock()
	p.lastFailed[key] = p.clock.Now()
	p.mu.Unlock()

	p.logger.Warn("api key marked as failed", "backoff", p.backoff)
}

// HeaderTransform sets header to the best available key
func (p *KeyPool) HeaderTransform(header string) func(apisharp.Payload) apisharp.Payload {
	return func(pl apisharp.Payload) apisharp.Payload {
		keys := p.Available()
		if len(keys) == 0 {
			return pl
		}
		if pl.Headers == nil {
			pl.Headers = map[string]string{}
		}
		pl.Headers[header] = keys[0].Key
		return pl
	}
}

// ValidateWith wraps next, parking the key sent in header when the server answers
// 401, 403 or 429. A nil next means apisharp.DefaultValidateResponse.
func (p *KeyPool) ValidateWith(header string, next func(*apisharp.Response) error) func(*apisharp.Response) error {
	if next == nil {
		next = apisharp.DefaultValidateResponse
	}
	return func(resp *apisharp.Response) error {
		switch resp.Status {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
			if resp.API != nil {
				p.MarkFailed(resp.API.Headers[header])
			}
		}
		return next(resp)
	}
}

// RequestWithKeys sends api with each available key in header until one succeeds,
// parking every key whose request failed
func (p *KeyPool) RequestWithKeys(ctx context.Context, c *apisharp.Client, api apisharp.API, header string) (*apisharp.Response, error) {
	keys := p.Available()
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}

	var lastErr error
	for _, key := range keys {
		attempt := api
		attempt.Headers = maps.Clone(api.Headers)
		if attempt.Headers == nil {
			attempt.Headers = map[string]string{}
		}
		attempt.Headers[header] = key.Key

		resp, err := c.Request(ctx, attempt)
		if err == nil {
			return resp, nil
		}

		var reqErr *apisharp.RequestError
		if !errors.As(err, &reqErr) {
			// descriptor errors do not depend on the key
			return nil, err
		}

		p.logger.Debug("request failed with api key", "key_type", key.Type, "error", err)
		p.MarkFailed(key.Key)
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}

	return nil, fmt.Errorf("all api keys failed, last error: %w", lastErr)
}
