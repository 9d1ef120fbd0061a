package evaluator

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/timvw/plan-judge/internal/model"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/option"
)

// GeminiBackend calls the Google Gemini API.
type GeminiBackend struct {
	client      *genai.Client
	model       string
	maxTokens   int64
	temperature float64
}

// GeminiConfig holds configuration for the Gemini backend.
type GeminiConfig struct {
	// Endpoint overrides the API endpoint; empty uses the public API.
	Endpoint string
	// APIKey is the Google AI Studio API key.
	APIKey string
	// Model is the model name (e.g., "gemini-2.5-pro").
	Model       string
	MaxTokens   int64
	Temperature float64
}

// NewGeminiBackend creates a Gemini client. Call Close when done.
func NewGeminiBackend(ctx context.Context, cfg GeminiConfig) (*GeminiBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	return &GeminiBackend{
		client:      client,
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Provider returns "gemini".
func (b *GeminiBackend) Provider() string {
	return "gemini"
}

// Model returns the model name.
func (b *GeminiBackend) Model() string {
	return b.model
}

// Close releases the underlying gRPC connection.
func (b *GeminiBackend) Close() error {
	return b.client.Close()
}

// Complete sends the prompt to GenerateContent with a JSON response type.
func (b *GeminiBackend) Complete(ctx context.Context, p Prompt) (*Completion, error) {
	ctx, span := startGenAISpan(ctx, "gemini", b.model, b.maxTokens, b.temperature, p)
	defer span.End()

	m := b.client.GenerativeModel(b.model)
	m.SetTemperature(float32(b.temperature))
	m.SetMaxOutputTokens(int32(b.maxTokens))
	m.ResponseMIMEType = "application/json"
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(p.System)}}

	resp, err := m.GenerateContent(ctx, genai.Text(p.User))
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "api_error"))
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}

	text := geminiText(resp)
	if text == "" {
		span.SetAttributes(attribute.String("error.type", "empty_response"))
		return nil, fmt.Errorf("gemini API returned empty response")
	}

	c := &Completion{Text: text, Model: b.model}
	if len(resp.Candidates) > 0 {
		c.FinishReason = resp.Candidates[0].FinishReason.String()
	}
	if u := resp.UsageMetadata; u != nil {
		c.Usage = model.TokenUsage{
			InputTokens:          int64(u.PromptTokenCount),
			OutputTokens:         int64(u.CandidatesTokenCount),
			CacheReadInputTokens: int64(u.CachedContentTokenCount),
		}
	}
	endGenAISpan(span, c)
	return c, nil
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}
