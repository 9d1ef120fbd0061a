package evaluator

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/timvw/plan-judge/internal/model"
	"go.opentelemetry.io/otel/attribute"
)

// OpenAIBackend calls an OpenAI-compatible Chat Completions API.
// Works with OpenAI, Azure OpenAI, and any OpenAI-compatible endpoint.
type OpenAIBackend struct {
	client      openai.Client
	model       string
	maxTokens   int64
	temperature float64
}

// OpenAIConfig holds configuration for the OpenAI backend.
type OpenAIConfig struct {
	// BaseURL is the API endpoint.
	BaseURL string
	// APIKey is the API key.
	APIKey string
	// Model is the model name (e.g., "gpt-4o").
	Model string
	// MaxTokens is the maximum number of completion tokens.
	// For reasoning models (o3, gpt-5), this must be large enough
	// to accommodate both reasoning tokens and output content.
	MaxTokens int64
	// Temperature is the sampling temperature. Ignored for reasoning models,
	// which only accept the default.
	Temperature float64
	// ExtraHeaders are additional HTTP headers.
	ExtraHeaders map[string]string
}

// NewOpenAIBackend creates a new OpenAI-compatible backend.
func NewOpenAIBackend(cfg OpenAIConfig) *OpenAIBackend {
	var opts []option.RequestOption

	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	for k, v := range cfg.ExtraHeaders {
		opts = append(opts, option.WithHeader(k, v))
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	return &OpenAIBackend{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}
}

// Provider returns "openai".
func (b *OpenAIBackend) Provider() string {
	return "openai"
}

// Model returns the model name.
func (b *OpenAIBackend) Model() string {
	return b.model
}

// Complete sends the prompt to the Chat Completions API.
func (b *OpenAIBackend) Complete(ctx context.Context, p Prompt) (*Completion, error) {
	ctx, span := startGenAISpan(ctx, "openai", b.model, b.maxTokens, b.temperature, p)
	defer span.End()

	params := openai.ChatCompletionNewParams{
		Model: b.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(p.System),
			openai.UserMessage(p.User),
		},
		MaxCompletionTokens: openai.Int(b.maxTokens),
	}
	if !IsReasoningModel(b.model) {
		params.Temperature = openai.Float(b.temperature)
	}

	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "api_error"))
		return nil, fmt.Errorf("openai API call failed: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		span.SetAttributes(attribute.String("error.type", "empty_response"))
		return nil, fmt.Errorf("openai API returned empty response")
	}

	span.SetAttributes(attribute.String("gen_ai.response.id", resp.ID))
	c := &Completion{
		Text:         resp.Choices[0].Message.Content,
		Model:        resp.Model,
		FinishReason: string(resp.Choices[0].FinishReason),
		Usage: model.TokenUsage{
			InputTokens:          resp.Usage.PromptTokens,
			OutputTokens:         resp.Usage.CompletionTokens,
			CacheReadInputTokens: resp.Usage.PromptTokensDetails.CachedTokens,
		},
	}
	endGenAISpan(span, c)
	return c, nil
}
