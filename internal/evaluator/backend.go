package evaluator

import (
	"context"
	"encoding/json"

	"github.com/timvw/plan-judge/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Prompt is a rendered system + user message pair.
type Prompt struct {
	System string
	User   string
}

// Completion is the raw text answer of a backend plus its token usage.
type Completion struct {
	Text         string
	Model        string
	FinishReason string
	Usage        model.TokenUsage
}

// Backend sends one prompt to a chat-completion API.
//
//go:generate go run go.uber.org/mock/mockgen -source=backend.go -destination=mock_backend_test.go -package=evaluator
type Backend interface {
	Complete(ctx context.Context, p Prompt) (*Completion, error)
	Provider() string
	Model() string
}

var evalTracer = otel.Tracer("plan-judge/evaluator")

// startGenAISpan starts a generation span following the OTel GenAI semantic
// conventions. Span name: "{operation} {model}".
func startGenAISpan(ctx context.Context, provider, modelName string, maxTokens int64, temperature float64, p Prompt) (context.Context, trace.Span) {
	ctx, span := evalTracer.Start(ctx, "chat "+modelName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gen_ai.operation.name", "chat"),
			attribute.String("gen_ai.provider.name", provider),
			attribute.String("gen_ai.request.model", modelName),
			attribute.Int64("gen_ai.request.max_tokens", maxTokens),
			attribute.Float64("gen_ai.request.temperature", temperature),

			// Langfuse-specific: ensure this shows as a "generation"
			attribute.String("langfuse.observation.type", "generation"),
		),
	)

	inputMessages := []map[string]string{
		{"role": "system", "content": p.System},
		{"role": "user", "content": p.User},
	}
	if inputJSON, err := json.Marshal(inputMessages); err == nil {
		span.SetAttributes(attribute.String("gen_ai.input.messages", string(inputJSON)))
	}
	return ctx, span
}

// endGenAISpan records the response attributes of a successful completion.
func endGenAISpan(span trace.Span, c *Completion) {
	span.SetAttributes(
		attribute.String("gen_ai.response.model", c.Model),
		attribute.Int64("gen_ai.usage.input_tokens", c.Usage.InputTokens),
		attribute.Int64("gen_ai.usage.output_tokens", c.Usage.OutputTokens),
	)
	if c.Usage.CacheReadInputTokens > 0 {
		span.SetAttributes(attribute.Int64("gen_ai.usage.cache_read_input_tokens", c.Usage.CacheReadInputTokens))
	}
	if c.FinishReason != "" {
		span.SetAttributes(attribute.StringSlice("gen_ai.response.finish_reasons", []string{c.FinishReason}))
	}

	outputMessages := []map[string]string{
		{"role": "assistant", "content": c.Text},
	}
	if outputJSON, err := json.Marshal(outputMessages); err == nil {
		span.SetAttributes(attribute.String("gen_ai.output.messages", string(outputJSON)))
	}
}
