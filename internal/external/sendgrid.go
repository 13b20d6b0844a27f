package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"carewatch/internal/types"
)

const sendGridAPIBase = "https://api.sendgrid.com"

// SendGridClientConfig holds the configuration for creating a SendGridClient.
type SendGridClientConfig struct {
	APIKey      string
	BaseURL     string // defaults to sendGridAPIBase
	FromAddress string
	FromName    string
	Logger      *slog.Logger
}

// SendGridClient delivers plain-text caregiver notifications through the
// SendGrid v3 Mail Send API. Requests go through BaseClient so they share the
// breaker, retry and error mapping of every other upstream call.
type SendGridClient struct {
	base    *BaseClient
	apiKey  string
	baseURL string
	from    sendGridAddress
	logger  *slog.Logger
}

// NewSendGridClient creates a SendGridClient with the production retry policy.
func NewSendGridClient(httpClient *http.Client, cfg SendGridClientConfig) *SendGridClient {
	base := NewBaseClient(
		httpClient,
		"sendgrid",
		RetryPolicy{
			MaxRetries: 2,
			MinWait:    500 * time.Millisecond,
			MaxWait:    5 * time.Second,
		},
		"CareWatch/1.0",
		WithSleepFunc(time.Sleep),
	)
	return NewSendGridClientWithBase(base, cfg)
}

// NewSendGridClientWithBase creates a SendGridClient over a pre-configured
// BaseClient.
func NewSendGridClientWithBase(base *BaseClient, cfg SendGridClientConfig) *SendGridClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = sendGridAPIBase
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SendGridClient{
		base:    base,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		from:    sendGridAddress{Email: cfg.FromAddress, Name: cfg.FromName},
		logger:  logger,
	}
}

// Send implements types.Transport. The channel is forwarded as a custom
// argument so provider-side analytics can tell app notifications apart from
// direct email.
//
// Error mapping:
//   - 429 and 5xx are retried by BaseClient and surface as upstream_rate_limited
//     or upstream_unavailable
//   - any other non-202 status is upstream_email_provider_unavailable
func (s *SendGridClient) Send(ctx context.Context, channel types.ChannelType, address, subject, body string) error {
	payload := sendGridMailPayload{
		Personalizations: []sendGridPersonalization{{To: []sendGridAddress{{Email: address}}}},
		From:             s.from,
		Subject:          subject,
		Content:          []sendGridContent{{Type: "text/plain", Value: body}},
		CustomArgs:       map[string]string{"channel": string(channel)},
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to marshal SendGrid mail payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v3/mail/send", bytes.NewReader(raw))
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create SendGrid request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.base.Do(req)
	if err != nil {
		return wrapSendGridError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusAccepted {
		s.logger.DebugContext(ctx, "sendgrid accepted message",
			"channel", channel,
			"to", types.RedactAddress(address),
			"message_id", resp.Header.Get("X-Message-Id"),
		)
		return nil
	}
	return handleSendGridErrorResponse(resp)
}

type sendGridMailPayload struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendGridContent         `json:"content"`
	CustomArgs       map[string]string         `json:"custom_args,omitempty"`
}

type sendGridPersonalization struct {
	To []sendGridAddress `json:"to"`
}

type sendGridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridErrorResponse struct {
	Errors []struct {
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"errors"`
}

func handleSendGridErrorResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.NewAppError(
			types.ErrCodeUpstreamEmailProvider,
			fmt.Sprintf("SendGrid returned status %d with unreadable body", resp.StatusCode),
			err,
		)
	}

	msg := string(body)
	var sgErr sendGridErrorResponse
	if json.Unmarshal(body, &sgErr) == nil && len(sgErr.Errors) > 0 {
		msg = sgErr.Errors[0].Message
	}

	return types.NewAppErrorWithDetails(
		types.ErrCodeUpstreamEmailProvider,
		fmt.Sprintf("SendGrid error (%d): %s", resp.StatusCode, msg),
		nil,
		map[string]any{"status": resp.StatusCode},
	)
}

func wrapSendGridError(err error) error {
	var ae *types.AppError
	if errors.As(err, &ae) {
		return err
	}
	return types.NewAppError(
		types.ErrCodeUpstreamEmailProvider,
		fmt.Sprintf("SendGrid request failed: %v", err),
		err,
	)
}

var _ types.Transport = (*SendGridClient)(nil)
