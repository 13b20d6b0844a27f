package external

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carewatch/internal/types"
)

func newTestSendGridClient(t *testing.T, serverURL string) *SendGridClient {
	t.Helper()
	base := NewBaseClient(
		&http.Client{Timeout: 5 * time.Second},
		"test-sendgrid",
		RetryPolicy{MaxRetries: 0, MinWait: time.Millisecond, MaxWait: 10 * time.Millisecond},
		"CareWatch-Test/1.0",
		WithSleepFunc(noopSleep),
	)
	return NewSendGridClientWithBase(base, SendGridClientConfig{
		APIKey:      "SG.test_api_key",
		BaseURL:     serverURL,
		FromAddress: "alerts@carewatch.test",
		FromName:    "CareWatch",
	})
}

func TestSendGridSend_Success(t *testing.T) {
	var payload sendGridMailPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer SG.test_api_key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		w.Header().Set("X-Message-Id", "sg_msg_1")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := newTestSendGridClient(t, server.URL)
	err := client.Send(context.Background(), types.ChannelEmail,
		"daughter@example.com", "[HIGH] No contact", "No interaction for 6 hours")
	require.NoError(t, err)

	require.Len(t, payload.Personalizations, 1)
	assert.Equal(t, "daughter@example.com", payload.Personalizations[0].To[0].Email)
	assert.Equal(t, "alerts@carewatch.test", payload.From.Email)
	assert.Equal(t, "CareWatch", payload.From.Name)
	assert.Equal(t, "[HIGH] No contact", payload.Subject)
	require.Len(t, payload.Content, 1)
	assert.Equal(t, "text/plain", payload.Content[0].Type)
	assert.Equal(t, "No interaction for 6 hours", payload.Content[0].Value)
	assert.Equal(t, "email", payload.CustomArgs["channel"])
}

func TestSendGridSend_ClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errors":[{"message":"invalid email","field":"personalizations.0.to"}]}`))
	}))
	defer server.Close()

	client := newTestSendGridClient(t, server.URL)
	err := client.Send(context.Background(), types.ChannelAppNotification, "bad", "s", "b")
	require.Error(t, err)

	var ae *types.AppError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, types.ErrCodeUpstreamEmailProvider, ae.Code)
	assert.Contains(t, ae.Message, "invalid email")
	assert.Equal(t, http.StatusBadRequest, ae.Details["status"])
}

func TestSendGridSend_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestSendGridClient(t, server.URL)
	err := client.Send(context.Background(), types.ChannelEmail, "a@example.com", "s", "b")
	assert.True(t, types.HasCode(err, types.ErrCodeUpstreamUnavailable), "got %v", err)
}

func TestSendGridSend_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := newTestSendGridClient(t, url)
	err := client.Send(context.Background(), types.ChannelEmail, "a@example.com", "s", "b")
	require.Error(t, err)
	var ae *types.AppError
	assert.ErrorAs(t, err, &ae)
}
