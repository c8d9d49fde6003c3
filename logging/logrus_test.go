package logging

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/status-im/apisharp"
	"github.com/status-im/apisharp/httpclient"
)

func TestNewLogger(t *testing.T) {
	logger := NewLogger(Config{Level: "debug", Format: "json"})
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	logger = NewLogger(Config{Level: "nonsense"})
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestLogrusFormatter_FormatLog(t *testing.T) {
	logger, hook := test.NewNullLogger()
	f := NewLogrusFormatter(logger)

	api := &apisharp.ProcessedAPI{
		RequestID:   "req-1",
		Method:      "GET",
		BaseURL:     "https://api.example.com",
		URL:         "/posts",
		Description: "list posts",
		Query:       map[string]any{"page": 1},
	}

	f.FormatLog(apisharp.LogRequest, api, nil)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "request", entry.Data["type"])
	assert.Equal(t, "req-1", entry.Data["request_id"])
	assert.Equal(t, "https://api.example.com/posts", entry.Data["url"])
	assert.Equal(t, "list posts", entry.Data["description"])
	assert.Equal(t, map[string]any{"page": 1}, entry.Data["query"])

	f.FormatLog(apisharp.LogResponseCache, api, "cached")
	assert.Equal(t, "response from cache", hook.LastEntry().Message)
	assert.Equal(t, "cached", hook.LastEntry().Data["data"])

	f.FormatLog(apisharp.LogResponseError, api, errors.New("boom"))
	entry = hook.LastEntry()
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.EqualError(t, entry.Data[logrus.ErrorKey].(error), "boom")

	assert.Len(t, hook.AllEntries(), 3)
}

func TestLogrusFormatter_WithClient(t *testing.T) {
	logger, hook := test.NewNullLogger()

	transport := httpclient.TransportFunc(func(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
		return &httpclient.Response{Status: 200, StatusText: "OK", Body: []byte(`{"id":1}`)}, nil
	})
	client := apisharp.New(apisharp.API{
		EnableLog:    apisharp.Static(true),
		LogFormatter: NewLogrusFormatter(logger),
	}, apisharp.WithTransport(transport))

	_, err := client.RequestURL(context.Background(), "/posts/1")
	require.NoError(t, err)

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "request", entries[0].Data["type"])
	assert.Equal(t, "response", entries[1].Data["type"])
	assert.Equal(t, map[string]any{"id": float64(1)}, entries[1].Data["data"])
}
