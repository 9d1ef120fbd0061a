package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timvw/plan-judge/internal/model"
)

func sampleReport() *model.RunReport {
	total := 7.4
	gapScore := 4.0
	return &model.RunReport{
		RunID:   "run-1",
		AuditID: "audit",
		Status:  model.RunPartial,
		Criteria: []model.CriterionSpec{
			{Name: "technical", Title: "Technical Specificity", Weight: 0.4},
			{Name: "strategic", Title: "Strategic Prioritization", Weight: 0.6},
		},
		Plans: []model.PlanReport{
			{
				Rank: 1, PlanID: "A", CompositeScore: &total,
				Criteria: map[string]model.CriterionResult{
					"strategic": {Criterion: "strategic", Weight: 0.6, Score: &model.CriterionScore{Value: 8, Rationale: "Fixes\nblockers first"}},
					"technical": {Criterion: "technical", Weight: 0.4, Score: &model.CriterionScore{Value: 4, Clamped: true}},
				},
			},
			{
				Rank: 2, PlanID: "empty", Partial: true,
				Criteria: map[string]model.CriterionResult{
					"strategic": {Criterion: "strategic", Weight: 0.6, Failure: model.FailureInvalidInput, Error: "plan text is empty"},
					"technical": {Criterion: "technical", Weight: 0.4, Failure: model.FailureInvalidInput, Error: "plan text is empty"},
				},
			},
		},
		Champion: &model.ChampionPlan{
			Considered: []string{"A", "empty"},
			Sections: []model.ChampionSection{{
				Category: "strategic", Title: "Strategic Prioritization", Score: 8, Sources: []string{"A"},
				Actions: []model.ChampionAction{{Text: "Add alt text", Categories: []string{"strategic"}, Sources: []string{"A"}}},
			}},
			Gaps: []model.Gap{{Category: "technical", BestScore: &gapScore, Reason: "best score 4.0 is below 5.0"}},
		},
		Provider:   "anthropic",
		Model:      "claude-sonnet-4-5",
		StartedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		DurationMs: 1200,
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatJSON, "json": FormatJSON, "MD": FormatMarkdown, "markdown": FormatMarkdown} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sampleReport()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "partial", decoded["status"])
	plans := decoded["plans"].([]any)
	require.Len(t, plans, 2)
	assert.Nil(t, plans[1].(map[string]any)["composite_score"])
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatMarkdown, sampleReport()))
	md := buf.String()

	assert.Contains(t, md, "# Remediation plan evaluation: audit")
	assert.Contains(t, md, "Status: **partial**")
	// Strategic outweighs technical, so it is the first score column.
	assert.Contains(t, md, "| Rank | Plan | Composite | Strategic Prioritization (60%) | Technical Specificity (40%) |")
	assert.Contains(t, md, "| 1 | A | 7.40 | 8.0 | 4.0* |")
	assert.Contains(t, md, "| 2 | empty (partial) | n/a | invalid_input | invalid_input |")
	assert.Contains(t, md, "- **Strategic Prioritization** 8.0: Fixes blockers first")
	assert.Contains(t, md, "### Strategic Prioritization (8.0, from A)")
	assert.Contains(t, md, "- Add alt text _(A)_")
	assert.Contains(t, md, "- **technical**: best score 4.0 is below 5.0")
}

func TestWriteMarkdown_Failure(t *testing.T) {
	r := &model.RunReport{
		RunID:   "run-2",
		AuditID: "audit",
		Status:  model.RunFailed,
		Failure: &model.RunFailure{Stage: "config", Kind: "configuration", Message: "weights sum to 0.8"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, r))
	assert.Contains(t, buf.String(), "**Run failed** at stage `config` (configuration): weights sum to 0.8")
	assert.NotContains(t, buf.String(), "## Ranking")
}

func TestSummary(t *testing.T) {
	out := Summary(sampleReport(), ThemeByName("light"))
	assert.Contains(t, out, "partial")
	assert.Contains(t, out, "Strategic Prioritization")
	assert.Contains(t, out, "gap: technical")
	assert.Contains(t, out, "invalid_input")
	assert.True(t, strings.Count(out, "\n") > 5)
}
