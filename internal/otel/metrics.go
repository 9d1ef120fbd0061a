package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "plan-judge"

// Metrics holds all OTEL metric instruments for plan-judge.
// All counters are cumulative (monotonic) and safe for concurrent use.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// LLM token counters (partitioned by provider + model via attributes)
	InputTokens         metric.Int64Counter
	OutputTokens        metric.Int64Counter
	CacheReadTokens     metric.Int64Counter
	CacheCreationTokens metric.Int64Counter

	// Score cache counters
	ScoreCacheHits          metric.Int64Counter
	ScoreCacheMisses        metric.Int64Counter
	ScoreCacheInvalidations metric.Int64Counter

	// Criterion evaluations partitioned by criterion and outcome
	// (scored, invalid_input, backend, timeout).
	Evaluations metric.Int64Counter

	// Runs partitioned by final status, and their wall-clock duration.
	Runs        metric.Int64Counter
	RunDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments. Returns no-op instruments
// when no MeterProvider is registered (safe to call unconditionally).
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	// --- LLM token counters ---

	m.InputTokens, err = meter.Int64Counter("llm.tokens.input",
		metric.WithDescription("Total LLM input tokens consumed"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}

	m.OutputTokens, err = meter.Int64Counter("llm.tokens.output",
		metric.WithDescription("Total LLM output tokens consumed"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}

	m.CacheReadTokens, err = meter.Int64Counter("llm.tokens.cache_read",
		metric.WithDescription("Total input tokens served from provider prompt cache"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}

	m.CacheCreationTokens, err = meter.Int64Counter("llm.tokens.cache_creation",
		metric.WithDescription("Total input tokens used to create provider prompt cache entries"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}

	// --- Score cache counters ---

	m.ScoreCacheHits, err = meter.Int64Counter("score_cache.hits",
		metric.WithDescription("Number of score cache hits (same audit, plan and criterion scored before)"))
	if err != nil {
		return nil, err
	}

	m.ScoreCacheMisses, err = meter.Int64Counter("score_cache.misses",
		metric.WithDescription("Number of score cache misses (new input, TTL expired, or first evaluation)"))
	if err != nil {
		return nil, err
	}

	m.ScoreCacheInvalidations, err = meter.Int64Counter("score_cache.invalidations",
		metric.WithDescription("Number of explicit score cache invalidations"))
	if err != nil {
		return nil, err
	}

	// --- Evaluation counters ---

	m.Evaluations, err = meter.Int64Counter("evaluations.total",
		metric.WithDescription("Total criterion evaluations partitioned by criterion and outcome"))
	if err != nil {
		return nil, err
	}

	m.Runs, err = meter.Int64Counter("runs.total",
		metric.WithDescription("Total evaluation runs partitioned by status (complete, partial, failed)"))
	if err != nil {
		return nil, err
	}

	m.RunDuration, err = meter.Float64Histogram("run.duration",
		metric.WithDescription("Wall-clock duration of evaluation runs"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordTokens records LLM token usage on the metric counters.
func (m *Metrics) RecordTokens(ctx context.Context, provider, model string, input, output, cacheRead, cacheCreation int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("llm.provider", provider),
		attribute.String("llm.model", model),
	)
	m.InputTokens.Add(ctx, input, attrs)
	m.OutputTokens.Add(ctx, output, attrs)
	if cacheRead > 0 {
		m.CacheReadTokens.Add(ctx, cacheRead, attrs)
	}
	if cacheCreation > 0 {
		m.CacheCreationTokens.Add(ctx, cacheCreation, attrs)
	}
}

// RecordCacheHit records a score cache hit.
func (m *Metrics) RecordCacheHit(ctx context.Context) {
	if m == nil {
		return
	}
	m.ScoreCacheHits.Add(ctx, 1)
}

// RecordCacheMiss records a score cache miss.
func (m *Metrics) RecordCacheMiss(ctx context.Context) {
	if m == nil {
		return
	}
	m.ScoreCacheMisses.Add(ctx, 1)
}

// RecordCacheInvalidation records an explicit cache invalidation.
func (m *Metrics) RecordCacheInvalidation(ctx context.Context) {
	if m == nil {
		return
	}
	m.ScoreCacheInvalidations.Add(ctx, 1)
}

// RecordEvaluation records one criterion evaluation and its outcome.
func (m *Metrics) RecordEvaluation(ctx context.Context, criterion, outcome string) {
	if m == nil {
		return
	}
	m.Evaluations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("evaluation.criterion", criterion),
		attribute.String("evaluation.outcome", outcome),
	))
}

// RecordRun records a finished run.
func (m *Metrics) RecordRun(ctx context.Context, status string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("run.status", status))
	m.Runs.Add(ctx, 1, attrs)
	m.RunDuration.Record(ctx, d.Seconds(), attrs)
}
