package evaluator

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/timvw/plan-judge/internal/model"
)

// SystemPrompt is the system prompt sent with every criterion evaluation.
//
//go:embed prompts/system.md
var SystemPrompt string

//go:embed prompts/criterion.md
var criterionTemplateText string

//go:embed prompts/comparison.md
var comparisonTemplateText string

var templateFuncs = template.FuncMap{
	"percent": func(w float64) string {
		return fmt.Sprintf("%.0f%%", w*100)
	},
}

var (
	criterionTemplate  = template.Must(template.New("criterion").Funcs(templateFuncs).Parse(criterionTemplateText))
	comparisonTemplate = template.Must(template.New("comparison").Funcs(templateFuncs).Parse(comparisonTemplateText))
)

type criterionData struct {
	Criterion  model.CriterionSpec
	AuditID    string
	Audit      string
	PlanHeader string
	Plan       string
}

// BuildPrompt renders the prompt for one criterion evaluation.
func BuildPrompt(req Request) (Prompt, error) {
	var b strings.Builder
	err := criterionTemplate.Execute(&b, criterionData{
		Criterion:  req.Criterion,
		AuditID:    req.AuditID,
		Audit:      req.AuditText,
		PlanHeader: model.BuildDocumentHeader(req.Plan),
		Plan:       req.Plan.Text,
	})
	if err != nil {
		return Prompt{}, fmt.Errorf("render criterion prompt: %w", err)
	}
	return Prompt{System: SystemPrompt, User: b.String()}, nil
}

type comparisonData struct {
	Audit    string
	Criteria []model.CriterionSpec
	Plans    []model.PlanCandidate
}

// BuildComparisonPrompt renders a single prompt covering every plan and
// criterion, for pasting into an external LLM session.
func BuildComparisonPrompt(auditText string, criteria []model.CriterionSpec, plans []model.PlanCandidate) (string, error) {
	var b strings.Builder
	err := comparisonTemplate.Execute(&b, comparisonData{
		Audit:    auditText,
		Criteria: criteria,
		Plans:    plans,
	})
	if err != nil {
		return "", fmt.Errorf("render comparison prompt: %w", err)
	}
	return b.String(), nil
}
