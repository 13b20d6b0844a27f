package types

import (
	"io"
	"log/slog"
	"strings"
)

// SlogLogger wraps *slog.Logger to implement the Logger interface.
// slog.Logger has Info, Error and Warn but its With returns *slog.Logger.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger adapts l. A nil logger falls back to slog.Default().
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{logger: l}
}

func (a *SlogLogger) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *SlogLogger) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *SlogLogger) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{logger: a.logger.With(args...)}
}

// NopLogger returns a Logger that discards all output.
func NopLogger() Logger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RedactAddress masks a contact address for logging. Emails keep the first
// character of the local part and the domain; phone numbers keep the last
// two digits.
func RedactAddress(addr string) string {
	if addr == "" {
		return ""
	}
	if at := strings.LastIndex(addr, "@"); at > 0 {
		return addr[:1] + "***" + addr[at:]
	}
	if len(addr) <= 2 {
		return "***"
	}
	return "***" + addr[len(addr)-2:]
}
