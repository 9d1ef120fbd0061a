// Package scoring computes weighted composite scores for remediation plans
// and ranks them.
//
// A Scorer fans out one evaluation per criterion. Results land in a slot
// indexed by criterion position, so the composite never depends on the
// order in which evaluations complete. Criterion failures are absorbed:
// the criterion is recorded as unscored with its failure kind and the
// composite becomes partial.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/timvw/plan-judge/internal/evaluator"
	"github.com/timvw/plan-judge/internal/model"
	ppotel "github.com/timvw/plan-judge/internal/otel"
	"github.com/timvw/plan-judge/internal/progress"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

var tracer = otel.Tracer("plan-judge/scoring")

// Scorer runs every criterion for one plan and computes its composite.
type Scorer struct {
	Evaluator evaluator.Evaluator

	// Criteria holds descriptions and rubrics by name. A weighted criterion
	// without an entry is evaluated with its bare name.
	Criteria map[string]model.CriterionSpec

	// AuditID labels the audit in prompts.
	AuditID string

	// Limiter bounds concurrent evaluator calls; it may be shared by several
	// scorers so a whole run stays within one limit. Nil means unbounded.
	Limiter *semaphore.Weighted

	Metrics  *ppotel.Metrics
	Progress *progress.Store
	Logger   *slog.Logger
}

// NewScorer creates a scorer for the given criterion catalog.
func NewScorer(ev evaluator.Evaluator, criteria []model.CriterionSpec) *Scorer {
	catalog := make(map[string]model.CriterionSpec, len(criteria))
	for _, c := range criteria {
		catalog[c.Name] = c
	}
	return &Scorer{
		Evaluator: ev,
		Criteria:  catalog,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Score validates weights, then evaluates plan on every weighted criterion.
// A *ConfigurationError is returned before any evaluator call when the
// weights are invalid; criterion failures never produce an error.
func (s *Scorer) Score(ctx context.Context, plan model.PlanCandidate, auditText string, weights map[string]float64) (*model.CompositeScore, error) {
	if err := ValidateWeights(weights); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "score_plan")
	defer span.End()
	span.SetAttributes(
		attribute.String("plan.id", plan.ID),
		attribute.Int("plan.actions", len(plan.Actions)),
	)

	names := SortedNames(weights)
	for _, name := range names {
		s.track(plan.ID, name, progress.StatePending, "")
	}

	results := make([]model.CriterionResult, len(names))
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			results[i] = s.evaluate(ctx, plan, auditText, s.spec(name, weights[name]))
			return nil
		})
	}
	_ = g.Wait()

	composite := Composite(plan.ID, results)
	span.SetAttributes(
		attribute.Bool("plan.partial", composite.Partial),
		attribute.Int("plan.unscored", composite.UnscoredCount()),
	)
	if composite.Total != nil {
		span.SetAttributes(attribute.Float64("plan.composite", *composite.Total))
	}
	return &composite, nil
}

func (s *Scorer) spec(name string, weight float64) model.CriterionSpec {
	spec, ok := s.Criteria[name]
	if !ok {
		spec = model.CriterionSpec{Name: name}
	}
	spec.Weight = weight
	return spec
}

func (s *Scorer) evaluate(ctx context.Context, plan model.PlanCandidate, auditText string, spec model.CriterionSpec) model.CriterionResult {
	result := model.CriterionResult{Criterion: spec.Name, Weight: spec.Weight}

	ctx, span := tracer.Start(ctx, "evaluate_criterion")
	defer span.End()
	span.SetAttributes(
		attribute.String("plan.id", plan.ID),
		attribute.String("criterion.name", spec.Name),
		attribute.Float64("criterion.weight", spec.Weight),
	)

	if err := s.acquire(ctx); err != nil {
		return s.fail(ctx, span, plan.ID, result, model.FailureTimeout, err)
	}
	defer s.release()

	s.track(plan.ID, spec.Name, progress.StateRunning, "")
	start := time.Now()

	score, err := s.Evaluator.Evaluate(ctx, evaluator.Request{
		AuditID:   s.AuditID,
		AuditText: auditText,
		Plan:      plan,
		Criterion: spec,
	})
	if err != nil {
		return s.fail(ctx, span, plan.ID, result, classify(ctx, err), err)
	}

	result.Score = score
	span.SetAttributes(
		attribute.Float64("criterion.score", score.Value),
		attribute.Bool("criterion.clamped", score.Clamped),
		attribute.String("criterion.source", string(score.Source)),
	)
	s.Metrics.RecordEvaluation(ctx, spec.Name, "scored")
	if score.Source != model.ScoreSourceCache {
		u := score.Usage
		s.Metrics.RecordTokens(ctx, score.Provider, score.Model, u.InputTokens, u.OutputTokens, u.CacheReadInputTokens, u.CacheCreationInputTokens)
	}
	if score.Clamped {
		s.logger().Warn("score clamped to scale", "plan", plan.ID, "criterion", spec.Name, "value", score.Value)
	}
	s.logger().Debug("criterion scored", "plan", plan.ID, "criterion", spec.Name,
		"score", score.Value, "source", score.Source, "duration", time.Since(start))
	s.track(plan.ID, spec.Name, progress.StateScored, fmt.Sprintf("%.1f", score.Value))
	return result
}

func (s *Scorer) fail(ctx context.Context, span trace.Span, planID string, result model.CriterionResult, kind model.FailureKind, err error) model.CriterionResult {
	result.Failure = kind
	result.Error = err.Error()

	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("error.type", string(kind)))
	// The run context may already be done; metrics still need recording.
	s.Metrics.RecordEvaluation(context.WithoutCancel(ctx), result.Criterion, string(kind))
	level := slog.LevelWarn
	if kind != model.FailureTimeout && !evaluator.IsRecoverable(err) {
		// An untyped error means the evaluator broke its contract.
		level = slog.LevelError
	}
	s.logger().Log(ctx, level, "criterion unscored", "plan", planID, "criterion", result.Criterion,
		"failure", kind, "error", err)
	s.track(planID, result.Criterion, progressState(kind), err.Error())
	return result
}

// classify maps an evaluation error to a failure kind. A done context means
// the run deadline fired while the call was pending.
func classify(ctx context.Context, err error) model.FailureKind {
	var invalid *evaluator.InvalidInputError
	switch {
	case errors.As(err, &invalid):
		return model.FailureInvalidInput
	case ctx.Err() != nil, errors.Is(err, context.DeadlineExceeded):
		return model.FailureTimeout
	default:
		return model.FailureBackend
	}
}

func progressState(kind model.FailureKind) string {
	switch kind {
	case model.FailureInvalidInput:
		return progress.StateInvalidInput
	case model.FailureTimeout:
		return progress.StateTimeout
	default:
		return progress.StateBackendError
	}
}

func (s *Scorer) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.Limiter == nil {
		return nil
	}
	return s.Limiter.Acquire(ctx, 1)
}

func (s *Scorer) release() {
	if s.Limiter != nil {
		s.Limiter.Release(1)
	}
}

func (s *Scorer) track(planID, criterion, state, msg string) {
	s.Progress.Upsert(progress.Event{
		Plan:      planID,
		Criterion: criterion,
		State:     state,
		TS:        time.Now(),
		Message:   msg,
	})
}

func (s *Scorer) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s.Logger
}
