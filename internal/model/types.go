package model

import (
	"fmt"
	"strings"
	"time"
)

// Severity is the impact level an audit assigns to a finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityUnknown  Severity = "unknown"
)

// AuditFinding is one issue reported by the baseline accessibility audit.
type AuditFinding struct {
	// ID is a stable, sequential identifier (e.g., "F-001").
	ID string `json:"id"`
	// WCAG is the success criterion reference (e.g., "1.4.3"). Empty when
	// the finding does not cite one.
	WCAG string `json:"wcag,omitempty"`
	// Severity is the impact level detected in the finding text.
	Severity Severity `json:"severity"`
	// Description is the normalized finding text.
	Description string `json:"description"`
}

// PlanCandidate is one remediation plan submitted for evaluation.
type PlanCandidate struct {
	// ID is the plan identifier used for ranking and provenance.
	ID string `json:"id"`
	// Source is a human-readable label, usually the originating file name.
	Source string `json:"source"`
	// Actions is the ordered list of proposed remediation actions.
	Actions []string `json:"actions"`
	// Text is the normalized full plan text.
	Text string `json:"-"`
}

// CriterionSpec describes one weighted evaluation dimension.
type CriterionSpec struct {
	// Name is the short key used in weights and reports (e.g., "strategic").
	Name string `json:"name" yaml:"name" validate:"required"`
	// Title is the display name (e.g., "Strategic Prioritization").
	Title string `json:"title" yaml:"title"`
	// Description states what the criterion measures.
	Description string `json:"description" yaml:"description"`
	// Rubric lists the questions an evaluator answers for this criterion.
	Rubric []string `json:"rubric,omitempty" yaml:"rubric"`
	// Weight is the share of the composite in [0,1].
	Weight float64 `json:"weight" yaml:"weight"`
}

// DisplayName returns Title, falling back to Name.
func (c CriterionSpec) DisplayName() string {
	if c.Title != "" {
		return c.Title
	}
	return c.Name
}

// ScoreSource records where a criterion score came from.
type ScoreSource string

const (
	ScoreSourceLLM    ScoreSource = "llm"
	ScoreSourceManual ScoreSource = "manual"
	ScoreSourceCache  ScoreSource = "cache"
)

// CriterionScore is the bounded result of evaluating one plan on one criterion.
type CriterionScore struct {
	Criterion string `json:"criterion"`
	PlanID    string `json:"plan_id"`
	// Value is always within [MinScore, MaxScore].
	Value     float64 `json:"value"`
	Rationale string  `json:"rationale"`
	// Clamped is true when the backend returned a value outside the scale.
	Clamped bool `json:"clamped,omitempty"`
	// Actions are 0-based indices into the plan's actions that the
	// evaluator cited as its treatment of this criterion.
	Actions []int `json:"actions,omitempty"`

	Source   ScoreSource `json:"source"`
	Provider string      `json:"provider,omitempty"`
	Model    string      `json:"model,omitempty"`
	Usage    TokenUsage  `json:"usage,omitempty"`
}

const (
	MinScore = 0.0
	MaxScore = 10.0
)

// FailureKind classifies why a criterion is unscored.
type FailureKind string

const (
	FailureInvalidInput FailureKind = "invalid_input"
	FailureBackend      FailureKind = "backend"
	FailureTimeout      FailureKind = "timeout"
)

// CriterionResult is one entry of a composite: the requested criterion and
// either its score or the reason it could not be scored.
type CriterionResult struct {
	Criterion string          `json:"criterion"`
	Weight    float64         `json:"weight"`
	Score     *CriterionScore `json:"score,omitempty"`
	Failure   FailureKind     `json:"failure,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Scored reports whether the criterion produced a score.
func (r CriterionResult) Scored() bool {
	return r.Score != nil
}

// CompositeScore aggregates all criterion results for one plan.
type CompositeScore struct {
	PlanID string `json:"plan_id"`
	// Criteria has an entry for every requested criterion name.
	Criteria map[string]CriterionResult `json:"criteria"`
	// Total is the weighted composite in [0,10]; nil when nothing scored.
	Total   *float64 `json:"total"`
	Partial bool     `json:"partial"`
}

// UnscoredCount returns the number of criteria that failed to score.
func (c CompositeScore) UnscoredCount() int {
	n := 0
	for _, r := range c.Criteria {
		if !r.Scored() {
			n++
		}
	}
	return n
}

// RankedEntry is one position of a ranking.
type RankedEntry struct {
	Rank      int            `json:"rank"`
	PlanID    string         `json:"plan_id"`
	Composite CompositeScore `json:"composite"`
}

// RankedResult is a total order over composites, best first.
type RankedResult struct {
	Entries []RankedEntry `json:"entries"`
}

// PlanIDs returns the plan identifiers in rank order.
func (r RankedResult) PlanIDs() []string {
	ids := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		ids[i] = e.PlanID
	}
	return ids
}

// ChampionAction is one synthesized action with its provenance.
type ChampionAction struct {
	Text string `json:"text"`
	// Categories lists every section citing the action, highest weight first.
	Categories []string `json:"categories"`
	Sources    []string `json:"sources"`
}

// ChampionSection is the winning treatment of one category.
type ChampionSection struct {
	Category string           `json:"category"`
	Title    string           `json:"title"`
	Score    float64          `json:"score"`
	Sources  []string         `json:"sources"`
	Merged   bool             `json:"merged,omitempty"`
	Actions  []ChampionAction `json:"actions"`
	// Rationale carries the winning evaluators' rationales, one per source.
	Rationale []string `json:"rationale,omitempty"`
}

// Gap is a category that no considered plan treats well enough.
type Gap struct {
	Category  string   `json:"category"`
	BestScore *float64 `json:"best_score"`
	Reason    string   `json:"reason"`
}

// ChampionPlan is the synthesized best-of-breed recommendation.
type ChampionPlan struct {
	Considered []string          `json:"considered"`
	Sections   []ChampionSection `json:"sections"`
	// Actions is the flattened, de-duplicated action list in section order.
	Actions []ChampionAction `json:"actions"`
	Gaps    []Gap            `json:"gaps,omitempty"`
}

// TokenUsage tracks LLM token consumption for a single evaluation.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`

	// CacheReadInputTokens is the number of input tokens read from the
	// provider's prompt cache.
	CacheReadInputTokens int64 `json:"cache_read_input_tokens,omitempty"`
	// CacheCreationInputTokens is the number of input tokens used to
	// create a new cache entry (Anthropic only).
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens,omitempty"`
}

// Add accumulates u into t.
func (t *TokenUsage) Add(u TokenUsage) {
	t.InputTokens += u.InputTokens
	t.OutputTokens += u.OutputTokens
	t.CacheReadInputTokens += u.CacheReadInputTokens
	t.CacheCreationInputTokens += u.CacheCreationInputTokens
}

// RunStatus distinguishes fully scored, partially scored and failed runs.
type RunStatus string

const (
	RunComplete RunStatus = "complete"
	RunPartial  RunStatus = "partial"
	RunFailed   RunStatus = "failed"
)

// PlanReport is one ranked plan in the run report.
type PlanReport struct {
	Rank           int                        `json:"rank"`
	PlanID         string                     `json:"plan_id"`
	Source         string                     `json:"source,omitempty"`
	CompositeScore *float64                   `json:"composite_score"`
	Criteria       map[string]CriterionResult `json:"criteria"`
	Partial        bool                       `json:"partial"`
}

// RunFailure describes a structural failure and the stage that detected it.
type RunFailure struct {
	Stage   string `json:"stage"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// RunReport is the sole output contract of an evaluation run.
type RunReport struct {
	RunID    string          `json:"run_id"`
	AuditID  string          `json:"audit_id"`
	Status   RunStatus       `json:"status"`
	Criteria []CriterionSpec `json:"criteria"`
	Plans    []PlanReport    `json:"plans"`
	Champion *ChampionPlan   `json:"champion,omitempty"`
	Failure  *RunFailure     `json:"failure,omitempty"`

	Provider   string     `json:"provider"`
	Model      string     `json:"model"`
	Usage      TokenUsage `json:"usage"`
	StartedAt  time.Time  `json:"started_at"`
	DurationMs int64      `json:"duration_ms"`
}

// BuildDocumentHeader returns a metadata header prepended to a plan before
// it is shown to an evaluator. Returns an empty string for a zero plan.
func BuildDocumentHeader(plan PlanCandidate) string {
	if plan.ID == "" && plan.Source == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString("[Plan Info]\n")
	b.WriteString(fmt.Sprintf("Plan: %s\n", plan.ID))
	if plan.Source != "" {
		b.WriteString(fmt.Sprintf("Source: %s\n", plan.Source))
	}
	if len(plan.Actions) > 0 {
		b.WriteString("Numbered actions:\n")
		for i, a := range plan.Actions {
			b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, a))
		}
	} else {
		b.WriteString("Numbered actions: (none detected)\n")
	}
	b.WriteString("\n[Plan Content]\n")
	return b.String()
}
