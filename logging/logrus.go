// Package logging adapts request lifecycle logs to logrus.
package logging

import (
	"github.com/sirupsen/logrus"

	"github.com/status-im/apisharp"
)

// Config selects the logrus level and output format
type Config struct {
	Level  string `yaml:"level"`  // debug, info, warn or error; default info
	Format string `yaml:"format"` // "json" or "text"; default text
}

// NewLogger builds a logrus logger from cfg
func NewLogger(cfg Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}

// LogrusFormatter writes request lifecycle events as logrus entries
type LogrusFormatter struct {
	Logger logrus.FieldLogger
}

var _ apisharp.LogFormatter = (*LogrusFormatter)(nil)

// NewLogrusFormatter wraps logger, or logrus.StandardLogger() when nil
func NewLogrusFormatter(logger logrus.FieldLogger) *LogrusFormatter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogrusFormatter{Logger: logger}
}

func (f *LogrusFormatter) FormatLog(t apisharp.LogType, api *apisharp.ProcessedAPI, data any) {
	entry := f.Logger.WithFields(logrus.Fields{
		"type":       string(t),
		"request_id": api.RequestID,
		"method":     api.Method,
		"url":        api.BaseURL + api.URL,
	})
	if api.Description != "" {
		entry = entry.WithField("description", api.Description)
	}

	switch t {
	case apisharp.LogRequest:
		if len(api.Query) > 0 {
			entry = entry.WithField("query", api.Query)
		}
		if api.Body != nil {
			entry = entry.WithField("body", api.Body)
		}
		entry.Info("request")
	case apisharp.LogResponseError:
		if err, ok := data.(error); ok {
			entry = entry.WithError(err)
		} else {
			entry = entry.WithField("error", data)
		}
		entry.Error("response error")
	case apisharp.LogResponseCache:
		entry.WithField("data", data).Info("response from cache")
	default:
		entry.WithField("data", data).Info("response")
	}
}
