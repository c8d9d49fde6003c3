package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/status-im/apisharp/format"
)

// Ensure HTTPTransport implements Transport
var _ Transport = (*HTTPTransport)(nil)

// HTTPTransport sends requests through net/http
type HTTPTransport struct {
	// Client is used for requests without credentials
	Client *http.Client
	// CredentialClient shares Client's transport and adds the cookie jar
	CredentialClient *http.Client
	Opts             Options
	StatusHandler    IHttpStatusHandler
	// RateLimiter is an optional callback that returns a rate limiter for the request
	// The callback receives the request and should return a rate limiter or nil
	RateLimiter func(*http.Request) *rate.Limiter
	Logger      *slog.Logger
}

// NewHTTPTransport creates a transport with its own connection pool and cookie jar
func NewHTTPTransport(opts Options, handler IHttpStatusHandler, rateLimiter func(*http.Request) *rate.Limiter) *HTTPTransport {
	rt := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: opts.ConnectionTimeout,
		}).DialContext,
	}

	// cookiejar.New only fails on a broken PublicSuffixList, nil is fine
	jar, _ := cookiejar.New(nil)

	return &HTTPTransport{
		Client: &http.Client{
			Timeout:   opts.RequestTimeout,
			Transport: rt,
		},
		CredentialClient: &http.Client{
			Timeout:   opts.RequestTimeout,
			Transport: rt,
			Jar:       jar,
		},
		Opts:          opts,
		StatusHandler: handler,
		RateLimiter:   rateLimiter,
		Logger:        slog.Default(),
	}
}

// SetStatusHandler sets the status handler for this transport
func (t *HTTPTransport) SetStatusHandler(handler IHttpStatusHandler) {
	t.StatusHandler = handler
}

func (t *HTTPTransport) report(status string) {
	if t.StatusHandler != nil {
		t.StatusHandler.OnRequest(status)
	}
}

// Do executes one HTTP round trip. Non-2xx statuses are returned as responses.
func (t *HTTPTransport) Do(ctx context.Context, r *Request) (*Response, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	req, err := t.newRequest(ctx, r)
	if err != nil {
		t.report("error")
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	requestStart := time.Now()

	// Rate limit before executing the request
	if t.RateLimiter != nil {
		if limiter := t.RateLimiter(req); limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				t.report("rate_limited")
				return nil, classify(ctx, fmt.Errorf("rate limiter wait failed: %w", err))
			}
		}
	}

	client := t.Client
	if r.WithCredentials && t.CredentialClient != nil {
		client = t.CredentialClient
	}

	resp, err := client.Do(req)
	requestDuration := time.Since(requestStart)
	if err != nil {
		err = classify(ctx, err)
		switch {
		case errors.Is(err, ErrTimeout):
			t.report("timeout")
		case errors.Is(err, ErrAborted):
			t.report("aborted")
		default:
			t.report("error")
		}
		t.Logger.Debug("http request failed",
			"method", r.Method,
			"url", r.URL,
			"duration", requestDuration,
			"error", err)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := t.readBody(resp)
	if err != nil {
		t.report("error")
		return nil, classify(ctx, fmt.Errorf("error reading response: %w", err))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		t.report("success")
	} else {
		t.report("http_error")
		t.logStatus(resp, req, requestDuration)
	}

	return &Response{
		Status:     resp.StatusCode,
		StatusText: statusText(resp),
		Headers:    format.Headers(resp.Header),
		Body:       body,
	}, nil
}

func (t *HTTPTransport) newRequest(ctx context.Context, r *Request) (*http.Request, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	headers := make(map[string]string, len(r.Headers))
	for k, v := range r.Headers {
		headers[k] = v
	}

	var body io.Reader
	if method != http.MethodGet && method != http.MethodHead && r.Body != nil {
		encoded, contentType, err := encodeBody(r.Body, header(headers, "Content-Type"))
		if err != nil {
			return nil, err
		}
		body = encoded
		if contentType != "" {
			setHeader(headers, "Content-Type", contentType)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, r.URL, body)
	if err != nil {
		return nil, err
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("User-Agent") == "" && t.Opts.UserAgent != "" {
		req.Header.Set("User-Agent", t.Opts.UserAgent)
	}

	return req, nil
}

func (t *HTTPTransport) readBody(resp *http.Response) ([]byte, error) {
	if t.Opts.MaxResponseBytes > 0 {
		return io.ReadAll(io.LimitReader(resp.Body, t.Opts.MaxResponseBytes))
	}
	return io.ReadAll(resp.Body)
}

func (t *HTTPTransport) logStatus(resp *http.Response, req *http.Request, requestDuration time.Duration) {
	attrs := []any{
		"status", resp.StatusCode,
		"method", req.Method,
		"duration", requestDuration,
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		attrs = append(attrs, "retry_after", resp.Header.Get("Retry-After"))
	}
	// Special handling for 414 Request-URI Too Large to include URL length
	if resp.StatusCode == http.StatusRequestURITooLong {
		attrs = append(attrs, "url_length", len(req.URL.String()))
	}

	t.Logger.Debug("http request returned non-2xx status", attrs...)
}

// encodeBody serializes body according to the request content type.
// Plain strings, byte slices and readers are sent as they are.
func encodeBody(body any, contentType string) (io.Reader, string, error) {
	switch b := body.(type) {
	case io.Reader:
		return b, "", nil
	case []byte:
		return bytes.NewReader(b), "", nil
	case string:
		return strings.NewReader(b), "", nil
	case url.Values:
		return strings.NewReader(b.Encode()), "application/x-www-form-urlencoded", nil
	}

	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))

	switch mediaType {
	case "application/x-www-form-urlencoded":
		fields, ok := body.(map[string]any)
		if !ok {
			return nil, "", fmt.Errorf("form body must be map[string]any, got %T", body)
		}
		return strings.NewReader(format.EncodeQuery(fields)), "", nil
	case "", "application/json":
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode json body: %w", err)
		}
		if mediaType == "" {
			return bytes.NewReader(raw), "application/json", nil
		}
		return bytes.NewReader(raw), "", nil
	default:
		return strings.NewReader(fmt.Sprint(body)), "", nil
	}
}

// classify maps a round-trip failure onto the transport error sentinels
func classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("%w: %v", ErrAborted, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

func statusText(resp *http.Response) string {
	if text, ok := strings.CutPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "); ok && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

// header looks a header up case-insensitively
func header(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func setHeader(headers map[string]string, name, value string) {
	for k := range headers {
		if strings.EqualFold(k, name) {
			delete(headers, k)
		}
	}
	headers[name] = value
}
