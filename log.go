package apisharp

import (
	"context"
	"log/slog"
)

// LogType is the lifecycle event being logged
type LogType string

const (
	LogRequest       LogType = "request"
	LogResponse      LogType = "response"
	LogResponseError LogType = "response-error"
	LogResponseCache LogType = "response-cache"
)

// LogFormatter renders request lifecycle events.
// data is the request body for LogRequest, the response data for responses and the error for LogResponseError.
type LogFormatter interface {
	FormatLog(t LogType, api *ProcessedAPI, data any)
}

// LogFunc adapts a function to LogFormatter
type LogFunc func(t LogType, api *ProcessedAPI, data any)

func (f LogFunc) FormatLog(t LogType, api *ProcessedAPI, data any) {
	f(t, api, data)
}

// SlogFormatter writes lifecycle events to a slog logger
type SlogFormatter struct {
	Logger *slog.Logger
}

// NewSlogFormatter returns a formatter writing to logger, or to slog.Default() when nil
func NewSlogFormatter(logger *slog.Logger) *SlogFormatter {
	return &SlogFormatter{Logger: logger}
}

func (f *SlogFormatter) FormatLog(t LogType, api *ProcessedAPI, data any) {
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}

	level := slog.LevelInfo
	if t == LogResponseError {
		level = slog.LevelError
	}

	attrs := []any{
		"type", string(t),
		"request_id", api.RequestID,
		"method", api.Method,
		"url", api.BaseURL + api.URL,
	}
	if api.Description != "" {
		attrs = append(attrs, "description", api.Description)
	}

	switch t {
	case LogRequest:
		if len(api.Query) > 0 {
			attrs = append(attrs, "query", api.Query)
		}
		if api.Body != nil {
			attrs = append(attrs, "body", api.Body)
		}
	case LogResponseError:
		attrs = append(attrs, "error", data)
	default:
		attrs = append(attrs, "data", data)
	}

	logger.Log(context.Background(), level, "apisharp "+string(t), attrs...)
}
