package apisharp

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/status-im/apisharp/format"
	"github.com/status-im/apisharp/httpclient"
)

// ProcessedAPI is an API with every field resolved. It is not modified after ProcessAPI returns.
type ProcessedAPI struct {
	// RequestID correlates the log lines of every attempt of one request
	RequestID string

	URL     string
	BaseURL string
	Method  string
	Headers map[string]string
	Query   map[string]any
	Body    any

	Description string

	TransformResponse func(*Response) *Response
	ValidateResponse  func(*Response) error

	EnableCache bool
	CacheTime   time.Duration

	EnableMock bool
	MockData   any

	EnableRetry bool
	RetryTimes  int

	Timeout time.Duration

	EnableLog    bool
	LogFormatter LogFormatter

	ResponseType    string
	WithCredentials bool
}

// CacheKey identifies the request in the cache: method, base URL, URL and the order-independent query
func (p *ProcessedAPI) CacheKey() string {
	return p.Method + " " + p.BaseURL + p.URL + "?" + format.SortedString(p.Query)
}

// FullURL is the request URL; the query is appended only for methods without a body
func (p *ProcessedAPI) FullURL() string {
	if carriesBody(p.Method) {
		return format.FullURL(p.BaseURL, p.URL, nil)
	}
	return format.FullURL(p.BaseURL, p.URL, p.Query)
}

func (p *ProcessedAPI) withRetryTimes(n int) *ProcessedAPI {
	next := *p
	next.Headers = maps.Clone(p.Headers)
	next.Query = maps.Clone(p.Query)
	next.RetryTimes = n
	return &next
}

func (p *ProcessedAPI) transportRequest() *httpclient.Request {
	req := &httpclient.Request{
		URL:             p.FullURL(),
		Method:          p.Method,
		Headers:         maps.Clone(p.Headers),
		Query:           p.Query,
		Timeout:         p.Timeout,
		ResponseType:    p.ResponseType,
		WithCredentials: p.WithCredentials,
	}

	switch {
	case carriesBody(p.Method) && p.Body == nil && p.Query != nil:
		req.Body = p.Query
	case p.Method != http.MethodGet && p.Method != http.MethodHead:
		req.Body = p.Body
	}
	return req
}

func carriesBody(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

// ProcessURL resolves a bare URL against the client defaults
func (c *Client) ProcessURL(url string) (*ProcessedAPI, error) {
	return c.ProcessAPI(API{URL: url})
}

// ProcessAPI merges library defaults, client defaults and api, in that order, and resolves
// every field. Only an empty URL or an unknown method fail; other problems are logged as warnings.
func (c *Client) ProcessAPI(api API) (*ProcessedAPI, error) {
	merged := mergeAPI(defaultAPI(), c.defaults, api)

	if merged.URL == "" {
		return nil, ErrEmptyURL
	}

	method := strings.ToUpper(strings.TrimSpace(merged.Method))
	if _, ok := supportedMethods[method]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, merged.Method)
	}
	merged.Method = method
	merged.BaseURL = strings.TrimSuffix(merged.BaseURL, "/")

	p := &ProcessedAPI{
		RequestID:         uuid.NewString(),
		URL:               merged.URL,
		BaseURL:           merged.BaseURL,
		Method:            merged.Method,
		Description:       merged.Description.resolve(&merged),
		TransformResponse: merged.TransformResponse,
		ValidateResponse:  merged.ValidateResponse,
		EnableCache:       merged.EnableCache.resolve(&merged),
		CacheTime:         merged.CacheTime.resolve(&merged),
		EnableMock:        merged.EnableMock.resolve(&merged),
		MockData:          merged.MockData.resolve(&merged),
		EnableRetry:       merged.EnableRetry.resolve(&merged),
		RetryTimes:        max(0, merged.RetryTimes.resolve(&merged)),
		Timeout:           clampTimeout(merged.Timeout.resolve(&merged)),
		EnableLog:         merged.EnableLog.resolve(&merged),
		LogFormatter:      merged.LogFormatter,
		ResponseType:      merged.ResponseType,
		WithCredentials:   merged.WithCredentials.resolve(&merged),
	}

	if p.LogFormatter == nil {
		p.LogFormatter = NewSlogFormatter(c.logger)
	}
	if p.ValidateResponse == nil {
		p.ValidateResponse = DefaultValidateResponse
	}

	if p.EnableCache && p.Method != http.MethodGet {
		c.logger.Warn("cache is only supported for GET requests, disabling it",
			"method", p.Method,
			"url", p.BaseURL+p.URL)
		p.EnableCache = false
	}
	if p.EnableCache && p.CacheTime <= 0 {
		c.logger.Warn("cache time is not positive, responses will not be stored",
			"cache_time", p.CacheTime,
			"url", p.BaseURL+p.URL)
	}

	payload := Payload{
		Headers: maps.Clone(merged.Headers),
		Query:   maps.Clone(merged.Query),
		Body:    merged.Body,
	}
	if merged.TransformRequest != nil {
		payload = merged.TransformRequest(payload)
	}
	if payload.Headers == nil {
		payload.Headers = map[string]string{}
	}
	p.Headers = payload.Headers
	p.Query = payload.Query
	p.Body = payload.Body

	for _, w := range merged.QueryTypes.Warnings(p.Query) {
		c.logger.Warn("query parameter check failed",
			"url", p.BaseURL+p.URL,
			"field", w.Field,
			"message", w.Message)
	}
	if merged.BodyTypes != nil {
		for _, w := range merged.BodyTypes.Warnings(bodyFields(p.Body)) {
			c.logger.Warn("body field check failed",
				"url", p.BaseURL+p.URL,
				"field", w.Field,
				"message", w.Message)
		}
	}

	return p, nil
}

// clampTimeout rounds up to whole milliseconds; negative values mean no timeout
func clampTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	if rem := d % time.Millisecond; rem != 0 {
		d += time.Millisecond - rem
	}
	return d
}

// bodyFields exposes a request body as named fields for the body checkers.
// Structs are read through their JSON form.
func bodyFields(body any) map[string]any {
	switch b := body.(type) {
	case nil:
		return nil
	case map[string]any:
		return b
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	return fields
}
