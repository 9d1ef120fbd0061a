// Package evaluator turns (audit, plan, criterion) into a bounded criterion score.
//
// Go code builds the prompt and parses the answer; the judgment itself is
// made by whatever backs the Evaluator: an LLM API (Anthropic, OpenAI,
// Gemini) or a human pasting answers from an external LLM session into a
// response directory. Every implementation shares the same contract, so the
// scorer never knows which one it is talking to.
//
// Evaluation failures are typed: *InvalidInputError for empty documents and
// *BackendError when no parseable score could be produced. Callers treat both
// as "criterion unscored", never as fatal.
package evaluator

import (
	"context"
	"strings"

	"github.com/timvw/plan-judge/internal/model"
)

// Request is a single criterion evaluation of one plan against the audit.
type Request struct {
	AuditID   string
	AuditText string
	Plan      model.PlanCandidate
	Criterion model.CriterionSpec
}

// Evaluator scores one plan on one criterion.
type Evaluator interface {
	// Evaluate returns a score clamped to [0,10] or a typed error.
	Evaluate(ctx context.Context, req Request) (*model.CriterionScore, error)

	// Provider returns the provider name (e.g., "anthropic", "manual").
	Provider() string

	// Model returns the model name used for evaluation.
	Model() string
}

// Validate checks the request before any backend work. Empty or
// whitespace-only documents signal an extraction failure upstream.
func Validate(req Request) error {
	if strings.TrimSpace(req.Criterion.Name) == "" {
		return &InvalidInputError{Field: "criterion", Reason: "criterion name is empty"}
	}
	if strings.TrimSpace(req.AuditText) == "" {
		return &InvalidInputError{Field: "audit", Reason: "audit text is empty"}
	}
	if strings.TrimSpace(req.Plan.Text) == "" {
		return &InvalidInputError{Field: "plan", Reason: "plan " + req.Plan.ID + " text is empty"}
	}
	return nil
}
