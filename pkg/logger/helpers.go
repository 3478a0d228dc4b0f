package logger

import (
	"github.com/rs/zerolog"
)

// LogRequest logs HTTP request information at a level matching the status code
func LogRequest(l Logger, method, url string, statusCode int, durationMs float64) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": durationMs,
	}

	switch {
	case statusCode >= 500:
		l.ErrorWithFields("HTTP request server error", fields)
	case statusCode >= 400:
		l.WarnWithFields("HTTP request client error", fields)
	default:
		l.DebugWithFields("HTTP request completed", fields)
	}
}

// LogRateLimit logs a rate limit backoff
func LogRateLimit(l Logger, url string, attempt int) {
	l.WithFields(map[string]interface{}{
		"url":     url,
		"attempt": attempt,
		"action":  "rate_limited",
	}).Warn("Rate limit reached, backing off")
}

// LogFanclubSummary logs the outcome of one fan club in a batch run
func LogFanclubSummary(l Logger, fanclubID, fanclubName, cursor string, processed int, err error) {
	entry := l.WithFields(map[string]interface{}{
		"fanclub_id":   fanclubID,
		"fanclub_name": fanclubName,
		"cursor":       cursor,
		"processed":    processed,
	})
	if err != nil {
		entry.WithError(err).Error("Fan club stopped")
		return
	}
	entry.Info("Fan club done")
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
