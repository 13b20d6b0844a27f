package types

import (
	"context"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	loggerKey    contextKey = "logger"
	triggerKey   contextKey = "trigger_source"
)

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithLogger stores a Logger in the context.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext retrieves the Logger from the context.
// Returns nil if no logger has been set.
func LoggerFromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return nil
}

// WithTriggerSource records what started the current run (e.g. "http",
// "schedule", "cli") for log correlation.
func WithTriggerSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, triggerKey, source)
}

// GetTriggerSource returns the trigger source, or "unknown".
func GetTriggerSource(ctx context.Context) string {
	if s, ok := ctx.Value(triggerKey).(string); ok && s != "" {
		return s
	}
	return "unknown"
}
