package run

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timvw/plan-judge/internal/champion"
	"github.com/timvw/plan-judge/internal/corpus"
	"github.com/timvw/plan-judge/internal/evaluator"
	"github.com/timvw/plan-judge/internal/model"
	"github.com/timvw/plan-judge/internal/progress"
	"github.com/timvw/plan-judge/internal/scoring"
)

type stubEvaluator struct {
	scores map[string]map[string]float64
	// block makes every call for the named criterion wait for cancellation.
	block string
	calls atomic.Int64
}

func (s *stubEvaluator) Provider() string { return "stub" }
func (s *stubEvaluator) Model() string    { return "stub-1" }

func (s *stubEvaluator) Evaluate(ctx context.Context, req evaluator.Request) (*model.CriterionScore, error) {
	s.calls.Add(1)
	if err := evaluator.Validate(req); err != nil {
		return nil, err
	}
	if req.Criterion.Name == s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	// Cite every action so the champion has something to merge.
	actions := make([]int, len(req.Plan.Actions))
	for i := range actions {
		actions[i] = i
	}
	return &model.CriterionScore{
		Criterion: req.Criterion.Name,
		PlanID:    req.Plan.ID,
		Value:     s.scores[req.Plan.ID][req.Criterion.Name],
		Actions:   actions,
		Source:    model.ScoreSourceLLM,
		Usage:     model.TokenUsage{InputTokens: 10, OutputTokens: 2},
	}, nil
}

func testCorpus(t *testing.T, plans map[string]string) *corpus.Corpus {
	t.Helper()
	c, err := corpus.New("audit", "Images lack alt text 1.1.1 critical", plans)
	require.NoError(t, err)
	return c
}

func twoPlans(t *testing.T) *corpus.Corpus {
	return testCorpus(t, map[string]string{
		"A": "- Add alt text to images\n- Train editors",
		"B": "- Add alt text to images.\n- Run axe in CI",
	})
}

func scores() map[string]map[string]float64 {
	return map[string]map[string]float64{
		"A": {"strategic": 8, "technical": 7, "comprehensive": 6, "longterm": 9},
		"B": {"strategic": 6, "technical": 9, "comprehensive": 8, "longterm": 5},
	}
}

func input(c *corpus.Corpus) Input {
	return Input{
		Corpus:       c,
		Criteria:     model.DefaultCriteria(),
		TopN:         3,
		GapThreshold: champion.DefaultGapThreshold,
		Parallel:     4,
	}
}

func TestRun_Complete(t *testing.T) {
	stub := &stubEvaluator{scores: scores()}
	store := progress.NewStore(nil)
	r := &Runner{Evaluator: stub, Progress: store}

	report, err := r.Run(context.Background(), input(twoPlans(t)))
	require.NoError(t, err)

	assert.Equal(t, model.RunComplete, report.Status)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "audit", report.AuditID)
	assert.Equal(t, "stub", report.Provider)
	assert.Nil(t, report.Failure)

	require.Len(t, report.Plans, 2)
	assert.Equal(t, "A", report.Plans[0].PlanID)
	assert.Equal(t, 1, report.Plans[0].Rank)
	assert.InDelta(t, 7.4, *report.Plans[0].CompositeScore, 1e-9)
	assert.InDelta(t, 7.2, *report.Plans[1].CompositeScore, 1e-9)

	require.NotNil(t, report.Champion)
	assert.Equal(t, []string{"A", "B"}, report.Champion.Considered)
	assert.Empty(t, report.Champion.Gaps)

	assert.Equal(t, int64(8), stub.calls.Load())
	assert.Equal(t, int64(80), report.Usage.InputTokens)
	assert.Equal(t, int64(16), report.Usage.OutputTokens)
	assert.Len(t, store.Snapshot(), 8)
	assert.Equal(t, map[string]int{progress.StateScored: 8}, store.Counts())
	assert.Equal(t, "A", report.Plans[0].Source)
}

func TestRun_ConfigurationFailuresScoreNothing(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Input)
		check string
	}{
		{
			name: "weights do not sum to one",
			edit: func(in *Input) {
				in.Criteria = []model.CriterionSpec{{Name: "a", Weight: 0.5}, {Name: "b", Weight: 0.3}}
			},
			check: "weight_sum",
		},
		{
			name:  "top n below one",
			edit:  func(in *Input) { in.TopN = 0 },
			check: "top_n",
		},
		{
			name:  "parallel below one",
			edit:  func(in *Input) { in.Parallel = 0 },
			check: "parallel",
		},
		{
			name: "duplicate criteria",
			edit: func(in *Input) {
				in.Criteria = []model.CriterionSpec{{Name: "a", Weight: 0.5}, {Name: "a", Weight: 0.5}}
			},
			check: "criteria",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubEvaluator{scores: scores()}
			in := input(twoPlans(t))
			tt.edit(&in)

			report, err := (&Runner{Evaluator: stub}).Run(context.Background(), in)
			require.Error(t, err)

			var stageErr *StageError
			require.ErrorAs(t, err, &stageErr)
			assert.Equal(t, StageConfig, stageErr.Stage)

			var cfgErr *scoring.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.check, cfgErr.Check)

			assert.Equal(t, model.RunFailed, report.Status)
			require.NotNil(t, report.Failure)
			assert.Equal(t, StageConfig, report.Failure.Stage)
			assert.Equal(t, "configuration", report.Failure.Kind)
			assert.Empty(t, report.Plans)
			assert.Zero(t, stub.calls.Load())
		})
	}
}

func TestRun_MissingEvaluator(t *testing.T) {
	report, err := (&Runner{}).Run(context.Background(), input(twoPlans(t)))
	var cfgErr *scoring.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "evaluator", cfgErr.Check)
	assert.Equal(t, model.RunFailed, report.Status)
}

func TestRun_EmptyPlanIsPartial(t *testing.T) {
	stub := &stubEvaluator{scores: scores()}
	c := testCorpus(t, map[string]string{
		"A":     "- Add alt text to images",
		"empty": "  ",
	})

	report, err := (&Runner{Evaluator: stub}).Run(context.Background(), input(c))
	require.NoError(t, err)

	assert.Equal(t, model.RunPartial, report.Status)
	require.Len(t, report.Plans, 2)
	assert.Equal(t, "A", report.Plans[0].PlanID)

	last := report.Plans[1]
	assert.Equal(t, "empty", last.PlanID)
	assert.Nil(t, last.CompositeScore)
	assert.True(t, last.Partial)
	for _, cr := range last.Criteria {
		assert.Equal(t, model.FailureInvalidInput, cr.Failure)
	}
	assert.Equal(t, []string{"A", "empty"}, report.Champion.Considered)
}

func TestRun_TimeoutLeavesCriteriaUnscored(t *testing.T) {
	stub := &stubEvaluator{scores: scores(), block: "longterm"}
	in := input(twoPlans(t))
	in.Timeout = 50 * time.Millisecond

	report, err := (&Runner{Evaluator: stub}).Run(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, model.RunPartial, report.Status)
	for _, p := range report.Plans {
		assert.True(t, p.Partial)
		assert.Equal(t, model.FailureTimeout, p.Criteria["longterm"].Failure)
		assert.True(t, p.Criteria["strategic"].Scored())
	}
	require.NotNil(t, report.Champion)
	require.Len(t, report.Champion.Gaps, 1)
	assert.Equal(t, "longterm", report.Champion.Gaps[0].Category)
}

func TestRun_NothingScoredFailsAtSynthesis(t *testing.T) {
	stub := &stubEvaluator{}
	c := testCorpus(t, map[string]string{"A": "", "B": " "})

	report, err := (&Runner{Evaluator: stub}).Run(context.Background(), input(c))
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageSynthesize, stageErr.Stage)

	var insufficient *champion.InsufficientDataError
	assert.True(t, errors.As(err, &insufficient))

	assert.Equal(t, model.RunFailed, report.Status)
	assert.Equal(t, "insufficient_data", report.Failure.Kind)
	assert.Len(t, report.Plans, 2)
	assert.Nil(t, report.Champion)
}

func TestRun_NoPlansFailsAtRank(t *testing.T) {
	stub := &stubEvaluator{}
	c := testCorpus(t, nil)

	report, err := (&Runner{Evaluator: stub}).Run(context.Background(), input(c))
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageRank, stageErr.Stage)
	assert.Equal(t, "empty_input", report.Failure.Kind)
}

func TestRun_Deterministic(t *testing.T) {
	r := &Runner{Evaluator: &stubEvaluator{scores: scores()}}
	first, err := r.Run(context.Background(), input(twoPlans(t)))
	require.NoError(t, err)
	second, err := r.Run(context.Background(), input(twoPlans(t)))
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Plans, second.Plans)
	assert.Equal(t, first.Champion, second.Champion)
}
