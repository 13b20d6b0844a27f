package external

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"carewatch/internal/types"
)

const analysisSystemPrompt = "You analyze behavioral metrics of an older adult for their caregivers. " +
	"Respond only with JSON that matches the provided schema."

// TextGenConfig holds the configuration for creating an OpenAITextGenerator.
type TextGenConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *slog.Logger
}

// OpenAITextGenerator implements types.TextGenerator against any
// OpenAI-compatible chat completion endpoint, requesting strict JSON schema
// output.
type OpenAITextGenerator struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAITextGenerator builds a generator whose HTTP traffic goes through
// base. Pass a BaseClient built with the desired timeout.
func NewOpenAITextGenerator(base *BaseClient, cfg TextGenConfig) *OpenAITextGenerator {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	oc.HTTPClient = base

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	return &OpenAITextGenerator{
		client: openai.NewClientWithConfig(oc),
		model:  model,
		logger: logger,
	}
}

// NewOpenAIBaseClient returns a BaseClient tuned for completion calls, which
// are slow and expensive to repeat.
func NewOpenAIBaseClient(timeout time.Duration) *BaseClient {
	return NewBaseClient(
		&http.Client{Timeout: timeout},
		"textgen",
		RetryPolicy{MaxRetries: 1, MinWait: time.Second, MaxWait: 10 * time.Second},
		"CareWatch/1.0",
	)
}

// Generate sends prompt and returns the raw JSON content of the first choice.
func (g *OpenAITextGenerator) Generate(ctx context.Context, prompt string, schema map[string]any) ([]byte, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analysisSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "behavior_analysis",
				Schema: jsonSchema(schema),
				Strict: true,
			},
		},
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, wrapTextGenError(err)
	}

	g.logger.InfoContext(ctx, "text generation completed",
		"model", resp.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, types.NewAppError(types.ErrCodeUpstreamTextGen, "text generation returned no content", nil)
	}
	return []byte(resp.Choices[0].Message.Content), nil
}

// jsonSchema adapts a schema document to the json.Marshaler the client expects.
type jsonSchema map[string]any

func (s jsonSchema) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any(s))
}

func wrapTextGenError(err error) error {
	var ae *types.AppError
	if errors.As(err, &ae) {
		// BaseClient already classified it (breaker open, retries exhausted).
		return types.NewAppError(types.ErrCodeUpstreamTextGen, ae.Message, err)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamTextGen,
			"text generation request rejected: "+apiErr.Message,
			err,
			map[string]any{"status": apiErr.HTTPStatusCode},
		)
	}
	return types.NewAppError(types.ErrCodeUpstreamTextGen, "text generation request failed", err)
}

var _ types.TextGenerator = (*OpenAITextGenerator)(nil)
