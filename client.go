package apisharp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/singleflight"

	"github.com/status-im/apisharp/cache"
	"github.com/status-im/apisharp/cache/memory"
	"github.com/status-im/apisharp/cache/noop"
	"github.com/status-im/apisharp/httpclient"
	"github.com/status-im/apisharp/metrics"
)

// Client sends API descriptors through a transport, adding caching, mocking,
// retries, timeouts and lifecycle logging. It is safe for concurrent use.
type Client struct {
	defaults  API
	transport httpclient.Transport
	cache     cache.Cache
	metrics   metrics.Recorder
	logger    *slog.Logger

	inflight singleflight.Group
}

// Option configures a Client
type Option func(*Client)

// WithTransport replaces the default net/http transport
func WithTransport(t httpclient.Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithCache sets the response store. Nil disables storage.
func WithCache(store cache.Cache) Option {
	return func(c *Client) {
		if store == nil {
			store = noop.NewNoOpCache()
		}
		c.cache = store
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m metrics.Recorder) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger for diagnostics and the default log formatter
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client whose requests inherit defaults
func New(defaults API, opts ...Option) *Client {
	c := &Client{
		defaults: defaults,
		cache:    memory.NewMemoryCache(),
		metrics:  metrics.NewNoopMetrics(),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.metrics == nil {
		c.metrics = metrics.NewNoopMetrics()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.transport == nil {
		// the recorder doubles as the transport status handler
		c.transport = httpclient.NewHTTPTransport(httpclient.DefaultOptions(), c.metrics, nil)
	}

	return c
}

// RequestURL sends a GET-by-default request to url
func (c *Client) RequestURL(ctx context.Context, url string) (*Response, error) {
	return c.Request(ctx, API{URL: url})
}

// Request resolves api and sends it. Descriptor errors are returned before anything is sent;
// every other failure is a *RequestError.
func (c *Client) Request(ctx context.Context, api API) (*Response, error) {
	p, err := c.ProcessAPI(api)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.send(ctx, p)
	c.metrics.ObserveDuration(p.Method, time.Since(start))

	return resp, err
}

// ClearCache drops every stored response
func (c *Client) ClearCache() {
	c.cache.Clear()
}

// Close releases the cache store when it holds resources
func (c *Client) Close() error {
	if closer, ok := c.cache.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// attemptOutcome is what one try produced. resp and invalid are set when the
// response was already validated against this attempt's descriptor.
type attemptOutcome struct {
	raw     *httpclient.Response
	hit     bool
	resp    *Response
	invalid error
}

type attemptResult struct {
	out attemptOutcome
	err error
}

// send runs attempts until one succeeds or the retry budget is spent
func (c *Client) send(ctx context.Context, api *ProcessedAPI) (*Response, error) {
	for {
		c.log(LogRequest, api, api.Body)

		if api.EnableMock {
			c.metrics.RecordRequest(api.Method, string(FromMock))
			return &Response{
				Data:       api.MockData,
				Status:     200,
				StatusText: "OK(mock)",
				Headers:    map[string]string{},
				From:       FromMock,
				API:        api,
			}, nil
		}

		out, reqErr := c.attempt(ctx, api)

		var resp *Response
		if reqErr == nil {
			resp = out.resp
			invalid := out.invalid
			if resp == nil {
				from := FromNetwork
				if out.hit {
					from = FromCache
				}
				resp = newResponse(out.raw, api, from)
				invalid = api.ValidateResponse(resp)
			}
			if invalid != nil {
				reqErr = &RequestError{Kind: KindValidation, API: api, Response: resp, Err: invalid}
			}
		}

		if reqErr != nil {
			if api.EnableCache {
				key := api.CacheKey()
				c.cache.Delete(key)
				// the next attempt must not join the call that just failed
				c.inflight.Forget(key)
			}
			if api.EnableRetry && api.RetryTimes >= 1 && ctx.Err() == nil {
				c.metrics.RecordRetry(api.Method)
				c.logger.Debug("retrying request",
					"request_id", api.RequestID,
					"url", api.BaseURL+api.URL,
					"retries_left", api.RetryTimes-1,
					"error", reqErr)
				api = api.withRetryTimes(api.RetryTimes - 1)
				continue
			}

			c.log(LogResponseError, api, reqErr)
			c.metrics.RecordFailure(api.Method, string(reqErr.Kind))
			return nil, reqErr
		}

		if out.hit {
			c.log(LogResponseCache, api, resp.Data)
		} else {
			c.log(LogResponse, api, resp.Data)
		}
		c.metrics.RecordRequest(api.Method, string(resp.From))

		if api.TransformResponse != nil {
			if transformed := api.TransformResponse(resp); transformed != nil {
				resp = transformed
			}
		}
		return resp, nil
	}
}

// attempt serves one try from the cache or the transport. hit is set for cached
// responses and for callers that joined another caller's in-flight call.
func (c *Client) attempt(ctx context.Context, api *ProcessedAPI) (attemptOutcome, *RequestError) {
	if !api.EnableCache {
		ch := make(chan attemptResult, 1)
		req := api.transportRequest()
		go func() {
			raw, err := c.transport.Do(ctx, req)
			ch <- attemptResult{out: attemptOutcome{raw: raw}, err: err}
		}()
		return c.await(ctx, api, ch)
	}

	key := api.CacheKey()
	if raw, ok := c.lookup(key); ok {
		c.metrics.RecordCacheLookup(true)
		return attemptOutcome{raw: raw, hit: true}, nil
	}

	owner := false
	shared := c.inflight.DoChan(key, func() (any, error) {
		owner = true
		return c.fetchAndStore(ctx, api, key)
	})

	ch := make(chan attemptResult, 1)
	go func() {
		r := <-shared
		out, _ := r.Val.(attemptOutcome)
		ch <- attemptResult{out: out, err: r.Err}
	}()

	out, err := c.await(ctx, api, ch)
	if err != nil {
		return attemptOutcome{}, err
	}

	// owner is written before the shared result is delivered
	if !owner {
		// joiners validate against their own descriptor
		out = attemptOutcome{raw: out.raw, hit: true}
	}
	c.metrics.RecordCacheLookup(out.hit)
	return out, nil
}

// fetchAndStore is the shared body of an in-flight cached call. The key stays claimed
// until the response is stored, so a caller arriving later finds it in the cache.
// The stored response outlives a caller that stopped waiting for it.
func (c *Client) fetchAndStore(ctx context.Context, api *ProcessedAPI, key string) (attemptOutcome, error) {
	if raw, ok := c.lookup(key); ok {
		return attemptOutcome{raw: raw, hit: true}, nil
	}

	// a timed out caller does not cancel the call other callers may be waiting on
	raw, err := c.transport.Do(context.WithoutCancel(ctx), api.transportRequest())
	if err != nil || raw == nil {
		return attemptOutcome{raw: raw}, err
	}

	resp := newResponse(raw, api, FromNetwork)
	invalid := api.ValidateResponse(resp)
	if invalid == nil {
		c.store(api, raw)
	}
	return attemptOutcome{raw: raw, resp: resp, invalid: invalid}, nil
}

// await waits for the transport result, the API timeout or the caller's context, whichever is first
func (c *Client) await(ctx context.Context, api *ProcessedAPI, ch <-chan attemptResult) (attemptOutcome, *RequestError) {
	var timeout <-chan time.Time
	if api.Timeout > 0 {
		timer := time.NewTimer(api.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case res := <-ch:
		if res.err != nil {
			kind := KindNetwork
			if errors.Is(res.err, httpclient.ErrTimeout) {
				kind = KindTimeout
			}
			return attemptOutcome{}, &RequestError{Kind: kind, API: api, Err: res.err}
		}
		if res.out.raw == nil {
			return attemptOutcome{}, &RequestError{Kind: KindNetwork, API: api, Err: errors.New("transport returned no response")}
		}
		c.logger.Debug("transport response",
			"request_id", api.RequestID,
			"status", res.out.raw.Status,
			"size", humanize.Bytes(uint64(len(res.out.raw.Body))),
			"cached", res.out.hit)
		return res.out, nil
	case <-timeout:
		return attemptOutcome{}, &RequestError{Kind: KindTimeout, API: api, Err: fmt.Errorf("no response within %s", api.Timeout)}
	case <-ctx.Done():
		kind := KindNetwork
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			kind = KindTimeout
		}
		return attemptOutcome{}, &RequestError{Kind: kind, API: api, Err: fmt.Errorf("%w: %v", httpclient.ErrAborted, ctx.Err())}
	}
}

func (c *Client) lookup(key string) (*httpclient.Response, bool) {
	entry, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}

	var raw httpclient.Response
	if err := json.Unmarshal(entry.Data, &raw); err != nil {
		c.logger.Warn("dropping unreadable cache entry", "key", key, "error", err)
		c.cache.Delete(key)
		return nil, false
	}
	return &raw, true
}

func (c *Client) store(api *ProcessedAPI, raw *httpclient.Response) {
	if api.CacheTime <= 0 {
		return
	}
	data, err := json.Marshal(raw)
	if err != nil {
		c.logger.Warn("failed to encode response for cache", "key", api.CacheKey(), "error", err)
		return
	}
	c.cache.Set(api.CacheKey(), data, api.CacheTime)
}

// log hands an event to the formatter; a panicking formatter is reported and ignored
func (c *Client) log(t LogType, api *ProcessedAPI, data any) {
	if !api.EnableLog || api.LogFormatter == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("log formatter panicked", "type", string(t), "panic", r)
		}
	}()
	api.LogFormatter.FormatLog(t, api, data)
}
