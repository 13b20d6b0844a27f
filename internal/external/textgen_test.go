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

func newTestTextGenerator(serverURL string) *OpenAITextGenerator {
	base := NewBaseClient(
		&http.Client{Timeout: 5 * time.Second},
		"test-textgen",
		RetryPolicy{MaxRetries: 0},
		"CareWatch-Test/1.0",
		WithSleepFunc(noopSleep),
	)
	return NewOpenAITextGenerator(base, TextGenConfig{
		APIKey:  "sk-test",
		BaseURL: serverURL + "/v1",
		Model:   "test-model",
	})
}

func TestTextGenerate_Success(t *testing.T) {
	var req map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "test-model",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"overall_status\":\"normal\"}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer server.Close()

	gen := newTestTextGenerator(server.URL)
	schema := map[string]any{"type": "object"}

	out, err := gen.Generate(context.Background(), "metrics here", schema)
	require.NoError(t, err)
	assert.JSONEq(t, `{"overall_status":"normal"}`, string(out))

	assert.Equal(t, "test-model", req["model"])
	format, ok := req["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_schema", format["type"])
	js := format["json_schema"].(map[string]any)
	assert.Equal(t, "behavior_analysis", js["name"])
	assert.Equal(t, true, js["strict"])
	assert.Equal(t, schema, js["schema"])

	messages := req["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "metrics here", messages[1].(map[string]any)["content"])
}

func TestTextGenerate_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","object":"chat.completion","model":"m","choices":[]}`))
	}))
	defer server.Close()

	_, err := newTestTextGenerator(server.URL).Generate(context.Background(), "p", map[string]any{})
	assert.True(t, types.HasCode(err, types.ErrCodeUpstreamTextGen), "got %v", err)
}

func TestTextGenerate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	_, err := newTestTextGenerator(server.URL).Generate(context.Background(), "p", map[string]any{})
	assert.True(t, types.HasCode(err, types.ErrCodeUpstreamTextGen), "got %v", err)
}

func TestTextGenerate_Unavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestTextGenerator(server.URL).Generate(context.Background(), "p", map[string]any{})
	assert.True(t, types.HasCode(err, types.ErrCodeUpstreamTextGen), "got %v", err)
}

func TestStubTextGenerator_ReturnsNormal(t *testing.T) {
	out, err := StubTextGenerator{}.Generate(context.Background(), "p", nil)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(out, &parsed))
	assert.Equal(t, "normal", parsed["overall_status"])
	assert.Empty(t, parsed["anomalies"])
}

func TestStubTransport_NeverFails(t *testing.T) {
	err := (&StubTransport{}).Send(context.Background(), types.ChannelEmail, "a@example.com", "s", "b")
	assert.NoError(t, err)
}
