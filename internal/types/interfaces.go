package types

import (
	"context"
	"time"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }

// FixedClock is a Clock that always returns the same instant.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return c.T }

// IDGenerator produces identifiers for newly created records.
type IDGenerator func() string

// Logger defines the structured logging interface used throughout the service.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	With(args ...any) Logger
}

// Transport sends a rendered message to one address over one channel.
type Transport interface {
	Send(ctx context.Context, channel ChannelType, address, subject, body string) error
}

// TextGenerator produces a structured completion for a prompt. The schema is a
// JSON Schema document the response must conform to.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, schema map[string]any) ([]byte, error)
}
