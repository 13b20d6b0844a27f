package external

import (
	"context"
	"encoding/json"
	"log/slog"

	"carewatch/internal/types"
)

// StubTransport logs deliveries instead of sending them. Used in local
// environments and when no email provider key is configured.
type StubTransport struct {
	Logger *slog.Logger
}

func (s *StubTransport) Send(ctx context.Context, channel types.ChannelType, address, subject, body string) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "stub transport: message not sent",
		"channel", channel,
		"to", types.RedactAddress(address),
		"subject", subject,
		"body_len", len(body),
	)
	return nil
}

// StubTextGenerator returns a fixed analysis reporting no anomalies.
type StubTextGenerator struct{}

func (StubTextGenerator) Generate(_ context.Context, _ string, _ map[string]any) ([]byte, error) {
	return json.Marshal(map[string]any{
		"anomalies":      []any{},
		"overall_status": "normal",
		"summary":        "Text generation is not configured; no analysis was performed.",
	})
}

var (
	_ types.Transport     = (*StubTransport)(nil)
	_ types.TextGenerator = StubTextGenerator{}
)
