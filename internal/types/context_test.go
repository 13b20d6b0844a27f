package types

import (
	"context"
	"log/slog"
	"testing"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	if got := GetRequestID(ctx); got != "req-123" {
		t.Errorf("GetRequestID() = %q, want %q", got, "req-123")
	}
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID() on empty context = %q, want empty", got)
	}
}

func TestLoggerRoundTrip(t *testing.T) {
	if LoggerFromContext(context.Background()) != nil {
		t.Error("LoggerFromContext() on empty context should be nil")
	}

	logger := NewSlogLogger(slog.Default())
	ctx := WithLogger(context.Background(), logger)
	if LoggerFromContext(ctx) != logger {
		t.Error("LoggerFromContext() should return the stored logger")
	}
}

func TestTriggerSource(t *testing.T) {
	if got := GetTriggerSource(context.Background()); got != "unknown" {
		t.Errorf("GetTriggerSource() = %q, want unknown", got)
	}
	ctx := WithTriggerSource(context.Background(), "schedule")
	if got := GetTriggerSource(ctx); got != "schedule" {
		t.Errorf("GetTriggerSource() = %q, want schedule", got)
	}
}
