// Package corpus holds the normalized text of one audit report and the
// candidate remediation plans evaluated against it.
//
// The corpus is the boundary between extraction and judgment: extraction
// produces plain text per document, the corpus normalizes it and derives the
// structure the evaluators need (audit findings, numbered plan actions).
// An empty document is kept as-is; downstream evaluators reject it as
// invalid input, which marks its criteria unscored instead of dropping the plan.
package corpus

import (
	"fmt"
	"sort"

	"github.com/timvw/plan-judge/internal/model"
)

// Document is one extracted, normalized text.
type Document struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Text   string `json:"-"`
}

// Empty reports whether extraction produced no usable text.
func (d Document) Empty() bool {
	return d.Text == ""
}

// Corpus is the read-only input to an evaluation run.
type Corpus struct {
	Audit    Document             `json:"audit"`
	Findings []model.AuditFinding `json:"findings"`
	Plans    []model.PlanCandidate `json:"plans"`
}

// New builds a corpus from already-extracted text. plans maps plan
// identifier to raw text; plans are ordered by identifier so that every run
// over the same input sees the same order.
func New(auditID, auditText string, plans map[string]string) (*Corpus, error) {
	if auditID == "" {
		return nil, fmt.Errorf("audit id is required")
	}

	audit := Document{ID: auditID, Source: auditID, Text: Normalize(auditText)}
	c := &Corpus{
		Audit:    audit,
		Findings: ParseFindings(audit.Text),
	}

	ids := make([]string, 0, len(plans))
	for id := range plans {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if id == "" {
			return nil, fmt.Errorf("plan id is required")
		}
		c.Plans = append(c.Plans, NewPlan(id, id, plans[id]))
	}
	return c, nil
}

// NewPlan normalizes raw plan text and extracts its ordered actions.
func NewPlan(id, source, raw string) model.PlanCandidate {
	text := Normalize(raw)
	return model.PlanCandidate{
		ID:      id,
		Source:  source,
		Actions: ParseActions(text),
		Text:    text,
	}
}

// Plan returns the plan with the given identifier.
func (c *Corpus) Plan(id string) (model.PlanCandidate, bool) {
	for _, p := range c.Plans {
		if p.ID == id {
			return p, true
		}
	}
	return model.PlanCandidate{}, false
}
