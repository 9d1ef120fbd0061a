package evaluator

import (
	"context"
	"strings"

	"github.com/timvw/plan-judge/internal/model"
)

// LLMEvaluator scores criteria by prompting a chat-completion backend.
type LLMEvaluator struct {
	backend Backend
}

// NewLLMEvaluator wraps a backend.
func NewLLMEvaluator(b Backend) *LLMEvaluator {
	return &LLMEvaluator{backend: b}
}

// Provider returns the backend's provider name.
func (e *LLMEvaluator) Provider() string {
	return e.backend.Provider()
}

// Model returns the backend's model name.
func (e *LLMEvaluator) Model() string {
	return e.backend.Model()
}

// Evaluate renders the criterion prompt, calls the backend and parses the
// answer. Out-of-scale scores are clamped and flagged in the rationale.
func (e *LLMEvaluator) Evaluate(ctx context.Context, req Request) (*model.CriterionScore, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	prompt, err := BuildPrompt(req)
	if err != nil {
		return nil, &BackendError{Provider: e.Provider(), Err: err}
	}

	completion, err := e.backend.Complete(ctx, prompt)
	if err != nil {
		return nil, &BackendError{Provider: e.Provider(), Err: err}
	}

	parsed, err := ParseResponse(completion.Text)
	if err != nil {
		return nil, &BackendError{Provider: e.Provider(), Err: err}
	}

	modelName := completion.Model
	if modelName == "" {
		modelName = e.Model()
	}
	return newScore(req, parsed, model.ScoreSourceLLM, e.Provider(), modelName, completion.Usage), nil
}

func newScore(req Request, p *ParsedScore, source model.ScoreSource, provider, modelName string, usage model.TokenUsage) *model.CriterionScore {
	return &model.CriterionScore{
		Criterion: req.Criterion.Name,
		PlanID:    req.Plan.ID,
		Value:     p.Value,
		Rationale: p.Rationale,
		Clamped:   p.Clamped,
		Actions:   citedActions(p.Actions, len(req.Plan.Actions)),
		Source:    source,
		Provider:  provider,
		Model:     modelName,
		Usage:     usage,
	}
}

// IsReasoningModel reports whether the model only accepts the default
// temperature (OpenAI o-series and gpt-5).
func IsReasoningModel(name string) bool {
	name = strings.ToLower(name)
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
