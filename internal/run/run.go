// Package run orchestrates one evaluation run: validate the configuration,
// score every plan, rank the composites and synthesize the champion.
//
// A run always yields a RunReport. Structural failures additionally return
// a *StageError naming the stage that detected them; criterion failures are
// absorbed into partial composites and never abort the run.
package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/timvw/plan-judge/internal/champion"
	"github.com/timvw/plan-judge/internal/corpus"
	"github.com/timvw/plan-judge/internal/evaluator"
	"github.com/timvw/plan-judge/internal/model"
	ppotel "github.com/timvw/plan-judge/internal/otel"
	"github.com/timvw/plan-judge/internal/progress"
	"github.com/timvw/plan-judge/internal/scoring"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	StageConfig     = "config"
	StageScore      = "score"
	StageRank       = "rank"
	StageSynthesize = "synthesize"
)

var tracer = otel.Tracer("plan-judge/run")

// StageError is a run-level failure tagged with the stage that detected it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Input is everything a run depends on. Nothing is read from process-wide
// state, so identical inputs give identical reports (modulo run id and
// timing).
type Input struct {
	Corpus   *corpus.Corpus
	Criteria []model.CriterionSpec

	// TopN is the number of ranked plans the champion draws from; must be >= 1.
	TopN         int
	GapThreshold float64

	// Parallel bounds concurrent evaluator calls across the whole run.
	Parallel int
	// Timeout bounds the scoring stage; pending criteria become unscored.
	// Zero disables the timeout.
	Timeout time.Duration
}

// Runner executes runs with one evaluator.
type Runner struct {
	Evaluator evaluator.Evaluator
	Metrics   *ppotel.Metrics
	Progress  *progress.Store
	Logger    *slog.Logger
}

// Run executes the pipeline. The returned report is never nil; on a
// structural failure its status is "failed" and the error is a *StageError.
func (r *Runner) Run(ctx context.Context, in Input) (*model.RunReport, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "evaluation_run")
	defer span.End()

	report := &model.RunReport{
		RunID:     uuid.NewString(),
		Criteria:  in.Criteria,
		StartedAt: start.UTC(),
	}
	if in.Corpus != nil {
		report.AuditID = in.Corpus.Audit.ID
	}
	if r.Evaluator != nil {
		report.Provider = r.Evaluator.Provider()
		report.Model = r.Evaluator.Model()
	}
	span.SetAttributes(attribute.String("run.id", report.RunID), attribute.String("audit.id", report.AuditID))

	log := r.logger().With("run", report.RunID)

	fail := func(stage string, err error) (*model.RunReport, error) {
		report.Status = model.RunFailed
		report.Failure = &model.RunFailure{Stage: stage, Kind: failureKind(err), Message: err.Error()}
		r.finish(ctx, report, start)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("run.failed_stage", stage))
		log.Error("run failed", "stage", stage, "error", err)
		return report, &StageError{Stage: stage, Err: err}
	}

	weights := model.Weights(in.Criteria)
	if err := r.validate(in, weights); err != nil {
		return fail(StageConfig, err)
	}

	plans := in.Corpus.Plans
	log.Info("run started", "audit", report.AuditID, "plans", len(plans), "criteria", len(in.Criteria),
		"provider", report.Provider, "model", report.Model)

	composites, err := r.scoreAll(ctx, in, weights)
	if err != nil {
		return fail(StageScore, err)
	}

	ranked, err := scoring.Rank(composites)
	if err != nil {
		return fail(StageRank, err)
	}
	report.Plans = planReports(ranked, in.Corpus)
	for _, e := range ranked.Entries {
		for _, cr := range e.Composite.Criteria {
			if cr.Scored() {
				report.Usage.Add(cr.Score.Usage)
			}
		}
	}

	synth := &champion.Synthesizer{Criteria: in.Criteria, GapThreshold: in.GapThreshold}
	champ, err := synth.Synthesize(*ranked, plans, in.TopN)
	if err != nil {
		return fail(StageSynthesize, err)
	}
	report.Champion = champ

	report.Status = model.RunComplete
	for _, p := range report.Plans {
		if p.Partial {
			report.Status = model.RunPartial
			break
		}
	}

	r.finish(ctx, report, start)
	span.SetAttributes(attribute.String("run.status", string(report.Status)))
	log.Info("run finished", "status", report.Status, "ranking", ranked.PlanIDs(),
		"evaluations", r.Progress.Counts(), "duration", time.Since(start).Round(time.Millisecond))
	return report, nil
}

// validate checks the configuration before any plan is scored.
func (r *Runner) validate(in Input, weights map[string]float64) error {
	if r.Evaluator == nil {
		return &scoring.ConfigurationError{Check: "evaluator", Message: "no evaluator configured"}
	}
	if in.Corpus == nil {
		return &scoring.ConfigurationError{Check: "corpus", Message: "no corpus loaded"}
	}
	if len(weights) != len(in.Criteria) {
		return &scoring.ConfigurationError{Check: "criteria", Message: "criterion names must be unique"}
	}
	if err := scoring.ValidateWeights(weights); err != nil {
		return err
	}
	if in.TopN < 1 {
		return &scoring.ConfigurationError{Check: "top_n", Message: fmt.Sprintf("top_n is %d, must be at least 1", in.TopN)}
	}
	if in.Parallel < 1 {
		return &scoring.ConfigurationError{Check: "parallel", Message: fmt.Sprintf("parallel is %d, must be at least 1", in.Parallel)}
	}
	return nil
}

// scoreAll scores every plan concurrently. Evaluator calls share one
// limiter; composites are stored by plan index.
func (r *Runner) scoreAll(ctx context.Context, in Input, weights map[string]float64) ([]model.CompositeScore, error) {
	scoreCtx := ctx
	if in.Timeout > 0 {
		var cancel context.CancelFunc
		scoreCtx, cancel = context.WithTimeout(ctx, in.Timeout)
		defer cancel()
	}

	scorer := scoring.NewScorer(r.Evaluator, in.Criteria)
	scorer.AuditID = in.Corpus.Audit.ID
	scorer.Limiter = semaphore.NewWeighted(int64(in.Parallel))
	scorer.Metrics = r.Metrics
	scorer.Progress = r.Progress
	scorer.Logger = r.logger()

	plans := in.Corpus.Plans
	composites := make([]model.CompositeScore, len(plans))
	var g errgroup.Group
	for i, p := range plans {
		g.Go(func() error {
			c, err := scorer.Score(scoreCtx, p, in.Corpus.Audit.Text, weights)
			if err != nil {
				return fmt.Errorf("plan %s: %w", p.ID, err)
			}
			composites[i] = *c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return composites, nil
}

func (r *Runner) finish(ctx context.Context, report *model.RunReport, start time.Time) {
	d := time.Since(start)
	report.DurationMs = d.Milliseconds()
	r.Metrics.RecordRun(ctx, string(report.Status), d)
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r.Logger
}

func planReports(ranked *model.RankedResult, c *corpus.Corpus) []model.PlanReport {
	out := make([]model.PlanReport, len(ranked.Entries))
	for i, e := range ranked.Entries {
		p, _ := c.Plan(e.PlanID)
		out[i] = model.PlanReport{
			Rank:           e.Rank,
			PlanID:         e.PlanID,
			Source:         p.Source,
			CompositeScore: e.Composite.Total,
			Criteria:       e.Composite.Criteria,
			Partial:        e.Composite.Partial,
		}
	}
	return out
}

func failureKind(err error) string {
	var cfg *scoring.ConfigurationError
	var empty *scoring.EmptyInputError
	var insufficient *champion.InsufficientDataError
	switch {
	case errors.As(err, &cfg):
		return "configuration"
	case errors.As(err, &empty):
		return "empty_input"
	case errors.As(err, &insufficient):
		return "insufficient_data"
	default:
		return "internal"
	}
}
