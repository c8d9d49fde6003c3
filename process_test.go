package apisharp

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/status-im/apisharp/validate"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

func TestProcessAPI_LibraryDefaults(t *testing.T) {
	t.Setenv("APISHARP_ENV", "")
	t.Setenv("GO_ENV", "")

	c := New(API{}, WithLogger(quietLogger()))

	p, err := c.ProcessURL("/posts")
	require.NoError(t, err)

	assert.Equal(t, "GET", p.Method)
	assert.Equal(t, "/posts", p.URL)
	assert.Equal(t, "", p.BaseURL)
	assert.Equal(t, map[string]string{"Content-Type": "application/json"}, p.Headers)
	assert.False(t, p.EnableCache)
	assert.Equal(t, 5*time.Minute, p.CacheTime)
	assert.False(t, p.EnableMock)
	assert.False(t, p.EnableRetry)
	assert.Equal(t, 1, p.RetryTimes)
	assert.Zero(t, p.Timeout)
	assert.True(t, p.EnableLog)
	assert.Equal(t, ResponseTypeJSON, p.ResponseType)
	assert.NotEmpty(t, p.RequestID)
	assert.NotNil(t, p.LogFormatter)
	assert.NotNil(t, p.ValidateResponse)
}

func TestProcessAPI_LogOffInProduction(t *testing.T) {
	t.Setenv("APISHARP_ENV", "")
	t.Setenv("GO_ENV", "production")

	p, err := New(API{}, WithLogger(quietLogger())).ProcessURL("/x")
	require.NoError(t, err)
	assert.False(t, p.EnableLog)

	t.Setenv("APISHARP_ENV", "development")
	p, err = New(API{}, WithLogger(quietLogger())).ProcessURL("/x")
	require.NoError(t, err)
	assert.True(t, p.EnableLog, "APISHARP_ENV takes precedence over GO_ENV")
}

func TestProcessAPI_MergeOrder(t *testing.T) {
	c := New(API{
		BaseURL:     "https://api.example.com/",
		Headers:     map[string]string{"X-Instance": "1", "X-Shared": "instance"},
		EnableCache: Static(true),
		CacheTime:   Static(time.Minute),
		Description: Static("instance"),
	}, WithLogger(quietLogger()))

	p, err := c.ProcessAPI(API{
		URL:         "/posts",
		Headers:     map[string]string{"X-Shared": "call"},
		Description: Static("call"),
	})
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", p.BaseURL, "trailing slash stripped")
	assert.Equal(t, map[string]string{
		"Content-Type": "application/json",
		"X-Instance":   "1",
		"X-Shared":     "call",
	}, p.Headers)
	assert.True(t, p.EnableCache, "unset per-call value keeps the instance value")
	assert.Equal(t, time.Minute, p.CacheTime)
	assert.Equal(t, "call", p.Description)
}

func TestProcessAPI_ExplicitFalseOverrides(t *testing.T) {
	c := New(API{EnableCache: Static(true)}, WithLogger(quietLogger()))

	p, err := c.ProcessAPI(API{URL: "/x", EnableCache: Static(false)})
	require.NoError(t, err)
	assert.False(t, p.EnableCache)
}

func TestProcessAPI_ComputedValues(t *testing.T) {
	c := New(API{BaseURL: "https://api.example.com"}, WithLogger(quietLogger()))

	p, err := c.ProcessAPI(API{
		URL: "/users",
		Description: Computed(func(a *API) string {
			return a.Method + " " + a.BaseURL + a.URL
		}),
		EnableCache: Computed(func(a *API) bool {
			return a.Query["fresh"] == nil
		}),
		Query: map[string]any{"page": 1},
	})
	require.NoError(t, err)

	assert.Equal(t, "GET https://api.example.com/users", p.Description)
	assert.True(t, p.EnableCache)
}

func TestProcessAPI_Method(t *testing.T) {
	c := New(API{}, WithLogger(quietLogger()))

	p, err := c.ProcessAPI(API{URL: "/x", Method: "patch"})
	require.NoError(t, err)
	assert.Equal(t, "PATCH", p.Method)

	_, err = c.ProcessAPI(API{URL: "/x", Method: "FETCH"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidMethod)
	assert.Contains(t, err.Error(), "FETCH")
}

func TestProcessAPI_EmptyURL(t *testing.T) {
	_, err := New(API{}, WithLogger(quietLogger())).ProcessAPI(API{})
	assert.ErrorIs(t, err, ErrEmptyURL)
}

func TestProcessAPI_CacheOnlyForGet(t *testing.T) {
	logger, buf := bufferLogger()
	c := New(API{}, WithLogger(logger))

	p, err := c.ProcessAPI(API{URL: "/x", Method: "POST", EnableCache: Static(true)})
	require.NoError(t, err)

	assert.False(t, p.EnableCache)
	assert.Contains(t, buf.String(), "cache is only supported for GET requests")
}

func TestProcessAPI_Clamps(t *testing.T) {
	c := New(API{}, WithLogger(quietLogger()))

	tests := []struct {
		name    string
		timeout time.Duration
		want    time.Duration
	}{
		{"zero", 0, 0},
		{"negative", -time.Second, 0},
		{"whole millis", 20 * time.Millisecond, 20 * time.Millisecond},
		{"rounds up", 1500 * time.Microsecond, 2 * time.Millisecond},
		{"sub millisecond", time.Nanosecond, time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := c.ProcessAPI(API{URL: "/x", Timeout: Static(tt.timeout)})
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Timeout)
		})
	}

	p, err := c.ProcessAPI(API{URL: "/x", RetryTimes: Static(-3)})
	require.NoError(t, err)
	assert.Equal(t, 0, p.RetryTimes)
}

func TestProcessAPI_TransformRequest(t *testing.T) {
	c := New(API{}, WithLogger(quietLogger()))

	original := map[string]any{"page": 1}
	p, err := c.ProcessAPI(API{
		URL:   "/x",
		Query: original,
		TransformRequest: func(in Payload) Payload {
			in.Headers["Authorization"] = "Bearer t"
			in.Query["page"] = 2
			in.Body = "replaced"
			return in
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer t", p.Headers["Authorization"])
	assert.Equal(t, 2, p.Query["page"])
	assert.Equal(t, "replaced", p.Body)
	assert.Equal(t, 1, original["page"], "caller's query is not mutated")
}

func TestProcessAPI_ValidatorWarnings(t *testing.T) {
	logger, buf := bufferLogger()
	c := New(API{}, WithLogger(logger))

	type body struct {
		Title string `json:"title"`
	}

	p, err := c.ProcessAPI(API{
		URL:    "/x",
		Method: "POST",
		Query:  map[string]any{"page": "one"},
		QueryTypes: validate.Checkers{
			"page": validate.Kind(reflect.Int),
		},
		Body: body{Title: ""},
		BodyTypes: validate.Checkers{
			"title": validate.Tag("required"),
		},
	})

	require.NoError(t, err, "checker failures are warnings only")
	require.NotNil(t, p)
	assert.Contains(t, buf.String(), "query parameter check failed")
	assert.Contains(t, buf.String(), "field=page")
	assert.Contains(t, buf.String(), "body field check failed")
	assert.Contains(t, buf.String(), "field=title")
}

func TestCacheKey(t *testing.T) {
	c := New(API{BaseURL: "https://api.example.com"}, WithLogger(quietLogger()))

	a, err := c.ProcessAPI(API{URL: "/posts", Query: map[string]any{"a": 1, "b": []any{"y", "x"}}})
	require.NoError(t, err)
	b, err := c.ProcessAPI(API{URL: "/posts", Query: map[string]any{"b": []any{"x", "y"}, "a": 1}})
	require.NoError(t, err)

	assert.Equal(t, a.CacheKey(), b.CacheKey(), "key ignores query order")
	assert.Equal(t, "GET https://api.example.com/posts?{a:1,b:[x,y]}", a.CacheKey())

	other, err := c.ProcessAPI(API{URL: "/posts", Query: map[string]any{"a": 2}})
	require.NoError(t, err)
	assert.NotEqual(t, a.CacheKey(), other.CacheKey())

	noQuery, err := c.ProcessAPI(API{URL: "/posts"})
	require.NoError(t, err)
	assert.Equal(t, "GET https://api.example.com/posts?", noQuery.CacheKey())
}

func TestProcessedAPI_FullURLAndBody(t *testing.T) {
	c := New(API{BaseURL: "https://api.example.com"}, WithLogger(quietLogger()))

	get, err := c.ProcessAPI(API{URL: "/posts", Query: map[string]any{"page": 2}})
	require.NoError(t, err)
	req := get.transportRequest()
	assert.Equal(t, "https://api.example.com/posts?page=2", req.URL)
	assert.Nil(t, req.Body)

	post, err := c.ProcessAPI(API{URL: "/posts", Method: "POST", Query: map[string]any{"title": "x"}})
	require.NoError(t, err)
	req = post.transportRequest()
	assert.Equal(t, "https://api.example.com/posts", req.URL)
	assert.Equal(t, map[string]any{"title": "x"}, req.Body, "query becomes the body of a POST without one")

	abs, err := c.ProcessAPI(API{URL: "https://other.example.com/a"})
	require.NoError(t, err)
	assert.Equal(t, "https://other.example.com/a", abs.FullURL())
}

func TestWithRetryTimes(t *testing.T) {
	c := New(API{}, WithLogger(quietLogger()))
	p, err := c.ProcessAPI(API{URL: "/x", Query: map[string]any{"a": 1}, RetryTimes: Static(3)})
	require.NoError(t, err)

	next := p.withRetryTimes(2)
	next.Headers["X-New"] = "1"
	next.Query["a"] = 2

	assert.Equal(t, 3, p.RetryTimes)
	assert.Equal(t, 2, next.RetryTimes)
	assert.Equal(t, p.RequestID, next.RequestID)
	assert.NotContains(t, p.Headers, "X-New")
	assert.Equal(t, 1, p.Query["a"])
}

func TestDefaultValidateResponse(t *testing.T) {
	assert.NoError(t, DefaultValidateResponse(&Response{Status: 204}))

	err := DefaultValidateResponse(&Response{Status: 404, StatusText: "Not Found"})
	require.Error(t, err)
	assert.Equal(t, "Not Found", err.Error())

	var se interface{ StatusCode() int }
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 404, se.StatusCode())
}
