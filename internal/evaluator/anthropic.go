package evaluator

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/timvw/plan-judge/internal/model"
	"go.opentelemetry.io/otel/attribute"
)

// AnthropicBackend calls the Anthropic Messages API.
// Works with both direct Anthropic API and Azure AI Foundry.
type AnthropicBackend struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

// AnthropicConfig holds configuration for the Anthropic backend.
type AnthropicConfig struct {
	// BaseURL is the API endpoint (e.g., "https://resource.services.ai.azure.com/anthropic/v1").
	BaseURL string
	// APIKey is the API key.
	APIKey string
	// Model is the model name (e.g., "claude-sonnet-4-5").
	Model string
	// MaxTokens is the maximum number of output tokens.
	MaxTokens int64
	// Temperature is the sampling temperature; low values keep scores stable.
	Temperature float64
	// ExtraHeaders are additional HTTP headers (e.g., "api-key" for Azure).
	ExtraHeaders map[string]string
}

// NewAnthropicBackend creates a new Anthropic backend.
func NewAnthropicBackend(cfg AnthropicConfig) *AnthropicBackend {
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

	return &AnthropicBackend{
		client:      anthropic.NewClient(opts...),
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}
}

// Provider returns "anthropic".
func (b *AnthropicBackend) Provider() string {
	return "anthropic"
}

// Model returns the model name.
func (b *AnthropicBackend) Model() string {
	return b.model
}

// Complete sends the prompt to the Messages API.
func (b *AnthropicBackend) Complete(ctx context.Context, p Prompt) (*Completion, error) {
	ctx, span := startGenAISpan(ctx, "anthropic", b.model, b.maxTokens, b.temperature, p)
	defer span.End()

	resp, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(b.model),
		MaxTokens:   b.maxTokens,
		Temperature: anthropic.Float(b.temperature),
		System: []anthropic.TextBlockParam{
			{Text: p.System},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(p.User),
			),
		},
	})
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "api_error"))
		return nil, fmt.Errorf("anthropic API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		span.SetAttributes(attribute.String("error.type", "empty_response"))
		return nil, fmt.Errorf("anthropic API returned empty response")
	}

	c := &Completion{
		Text:         text.String(),
		Model:        string(resp.Model),
		FinishReason: string(resp.StopReason),
		Usage: model.TokenUsage{
			InputTokens:              resp.Usage.InputTokens,
			OutputTokens:             resp.Usage.OutputTokens,
			CacheReadInputTokens:     resp.Usage.CacheReadInputTokens,
			CacheCreationInputTokens: resp.Usage.CacheCreationInputTokens,
		},
	}
	endGenAISpan(span, c)
	return c, nil
}
