package apisharp

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/status-im/apisharp/validate"
)

// Value is an optional descriptor field: unset, a static value, or a value
// computed from the merged descriptor. The zero Value is unset and never
// overrides an earlier layer.
type Value[T any] struct {
	set      bool
	static   T
	computed func(*API) T
}

// Static wraps a fixed value
func Static[T any](v T) Value[T] {
	return Value[T]{set: true, static: v}
}

// Computed wraps a function evaluated once against the merged descriptor
func Computed[T any](fn func(*API) T) Value[T] {
	return Value[T]{set: fn != nil, computed: fn}
}

// IsSet reports whether the value overrides earlier layers
func (v Value[T]) IsSet() bool {
	return v.set
}

func (v Value[T]) or(next Value[T]) Value[T] {
	if next.set {
		return next
	}
	return v
}

func (v Value[T]) resolve(api *API) T {
	if v.computed != nil {
		return v.computed(api)
	}
	return v.static
}

// Payload is the part of a request a TransformRequest may rewrite
type Payload struct {
	Headers map[string]string
	Query   map[string]any
	Body    any
}

// Response types understood by the response decoder
const (
	ResponseTypeJSON  = "json"
	ResponseTypeText  = "text"
	ResponseTypeBytes = "bytes"
)

// API describes one request. Every field is optional except URL; unset fields
// fall back to the client defaults and then the library defaults.
type API struct {
	URL     string
	BaseURL string
	// Method is matched case-insensitively against GET, POST, DELETE, HEAD, OPTIONS, PUT and PATCH
	Method  string
	Headers map[string]string

	Description Value[string]

	// Query is sent in the URL for body-less methods and as the body of POST, PUT and PATCH when Body is nil
	Query map[string]any
	Body  any

	QueryTypes validate.Checkers
	BodyTypes  validate.Checkers

	TransformRequest  func(Payload) Payload
	TransformResponse func(*Response) *Response
	// ValidateResponse returns nil for an acceptable response
	ValidateResponse func(*Response) error

	EnableCache Value[bool]
	CacheTime   Value[time.Duration]

	EnableMock Value[bool]
	MockData   Value[any]

	EnableRetry Value[bool]
	RetryTimes  Value[int]

	Timeout Value[time.Duration]

	EnableLog    Value[bool]
	LogFormatter LogFormatter

	ResponseType    string
	WithCredentials Value[bool]
}

var supportedMethods = map[string]struct{}{
	http.MethodGet:     {},
	http.MethodPost:    {},
	http.MethodDelete:  {},
	http.MethodHead:    {},
	http.MethodOptions: {},
	http.MethodPut:     {},
	http.MethodPatch:   {},
}

// isProduction reads APISHARP_ENV, falling back to GO_ENV
func isProduction() bool {
	env := os.Getenv("APISHARP_ENV")
	if env == "" {
		env = os.Getenv("GO_ENV")
	}
	return strings.EqualFold(env, "production")
}

// DefaultValidateResponse accepts 2xx statuses and reports the status text otherwise
func DefaultValidateResponse(resp *Response) error {
	if resp.Status >= 200 && resp.Status < 300 {
		return nil
	}
	return &statusError{text: resp.StatusText, status: resp.Status}
}

func defaultAPI() API {
	return API{
		Method:           http.MethodGet,
		Headers:          map[string]string{"Content-Type": "application/json"},
		Description:      Static(""),
		ValidateResponse: DefaultValidateResponse,
		EnableCache:      Static(false),
		CacheTime:        Static(5 * time.Minute),
		EnableMock:       Static(false),
		MockData:         Static[any](nil),
		EnableRetry:      Static(false),
		RetryTimes:       Static(1),
		Timeout:          Static(time.Duration(0)),
		EnableLog:        Static(!isProduction()),
		ResponseType:     ResponseTypeJSON,
		WithCredentials:  Static(false),
	}
}

// mergeAPI overlays layers in order; later layers win and unset fields are skipped.
// Headers are unioned.
func mergeAPI(layers ...API) API {
	var out API
	out.Headers = map[string]string{}

	for _, l := range layers {
		if l.URL != "" {
			out.URL = l.URL
		}
		if l.BaseURL != "" {
			out.BaseURL = l.BaseURL
		}
		if l.Method != "" {
			out.Method = l.Method
		}
		for k, v := range l.Headers {
			out.Headers[k] = v
		}
		if l.Query != nil {
			out.Query = l.Query
		}
		if l.Body != nil {
			out.Body = l.Body
		}
		if l.QueryTypes != nil {
			out.QueryTypes = l.QueryTypes
		}
		if l.BodyTypes != nil {
			out.BodyTypes = l.BodyTypes
		}
		if l.TransformRequest != nil {
			out.TransformRequest = l.TransformRequest
		}
		if l.TransformResponse != nil {
			out.TransformResponse = l.TransformResponse
		}
		if l.ValidateResponse != nil {
			out.ValidateResponse = l.ValidateResponse
		}
		if l.LogFormatter != nil {
			out.LogFormatter = l.LogFormatter
		}
		if l.ResponseType != "" {
			out.ResponseType = l.ResponseType
		}

		out.Description = out.Description.or(l.Description)
		out.EnableCache = out.EnableCache.or(l.EnableCache)
		out.CacheTime = out.CacheTime.or(l.CacheTime)
		out.EnableMock = out.EnableMock.or(l.EnableMock)
		out.MockData = out.MockData.or(l.MockData)
		out.EnableRetry = out.EnableRetry.or(l.EnableRetry)
		out.RetryTimes = out.RetryTimes.or(l.RetryTimes)
		out.Timeout = out.Timeout.or(l.Timeout)
		out.EnableLog = out.EnableLog.or(l.EnableLog)
		out.WithCredentials = out.WithCredentials.or(l.WithCredentials)
	}

	return out
}
