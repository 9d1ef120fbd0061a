// Package report renders a RunReport as JSON, Markdown or a terminal
// summary.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/timvw/plan-judge/internal/model"
)

// Format selects the report rendering.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts "json", "markdown" and "md".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown report format %q (supported: json, markdown)", s)
	}
}

// Write renders r in the given format.
func Write(w io.Writer, f Format, r *model.RunReport) error {
	switch f {
	case FormatMarkdown:
		return WriteMarkdown(w, r)
	default:
		return WriteJSON(w, r)
	}
}

// WriteJSON writes r as indented JSON.
func WriteJSON(w io.Writer, r *model.RunReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteMarkdown writes a human-readable report: ranking table, per-criterion
// rationale, champion plan and gaps.
func WriteMarkdown(w io.Writer, r *model.RunReport) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Remediation plan evaluation: %s\n\n", r.AuditID)
	fmt.Fprintf(&b, "- Run: `%s`\n", r.RunID)
	fmt.Fprintf(&b, "- Status: **%s**\n", r.Status)
	if r.Provider != "" {
		fmt.Fprintf(&b, "- Evaluator: %s / %s\n", r.Provider, r.Model)
	}
	fmt.Fprintf(&b, "- Started: %s (%d ms)\n", r.StartedAt.Format("2006-01-02 15:04:05 MST"), r.DurationMs)
	if r.Usage.InputTokens > 0 || r.Usage.OutputTokens > 0 {
		fmt.Fprintf(&b, "- Tokens: %d in / %d out\n", r.Usage.InputTokens, r.Usage.OutputTokens)
	}
	b.WriteString("\n")

	if r.Failure != nil {
		fmt.Fprintf(&b, "> **Run failed** at stage `%s` (%s): %s\n\n", r.Failure.Stage, r.Failure.Kind, r.Failure.Message)
	}

	criteria := orderedCriteria(r.Criteria)
	if len(r.Plans) > 0 {
		writeRanking(&b, r.Plans, criteria)
		writeDetails(&b, r.Plans, criteria)
	}
	if r.Champion != nil {
		writeChampion(&b, r.Champion)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeRanking(b *strings.Builder, plans []model.PlanReport, criteria []model.CriterionSpec) {
	b.WriteString("## Ranking\n\n| Rank | Plan | Composite |")
	for _, c := range criteria {
		fmt.Fprintf(b, " %s (%s) |", c.DisplayName(), percent(c.Weight))
	}
	b.WriteString("\n|---:|---|---:|")
	for range criteria {
		b.WriteString("---:|")
	}
	b.WriteString("\n")

	for _, p := range plans {
		id := p.PlanID
		if p.Partial {
			id += " (partial)"
		}
		fmt.Fprintf(b, "| %d | %s | %s |", p.Rank, id, formatTotal(p.CompositeScore))
		for _, c := range criteria {
			fmt.Fprintf(b, " %s |", formatResult(p.Criteria[c.Name]))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func writeDetails(b *strings.Builder, plans []model.PlanReport, criteria []model.CriterionSpec) {
	b.WriteString("## Rationale\n")
	for _, p := range plans {
		fmt.Fprintf(b, "\n### %d. %s\n\n", p.Rank, p.PlanID)
		for _, c := range criteria {
			res, ok := p.Criteria[c.Name]
			if !ok {
				continue
			}
			if res.Scored() {
				fmt.Fprintf(b, "- **%s** %.1f: %s\n", c.DisplayName(), res.Score.Value, oneLine(res.Score.Rationale))
				continue
			}
			fmt.Fprintf(b, "- **%s** unscored (%s): %s\n", c.DisplayName(), res.Failure, oneLine(res.Error))
		}
	}
	b.WriteString("\n")
}

func writeChampion(b *strings.Builder, champ *model.ChampionPlan) {
	b.WriteString("## Champion plan\n\n")
	fmt.Fprintf(b, "Synthesized from: %s\n", strings.Join(champ.Considered, ", "))

	for _, sec := range champ.Sections {
		fmt.Fprintf(b, "\n### %s (%.1f, from %s", sec.Title, sec.Score, strings.Join(sec.Sources, " + "))
		if sec.Merged {
			b.WriteString(", merged")
		}
		b.WriteString(")\n\n")
		for _, rationale := range sec.Rationale {
			fmt.Fprintf(b, "> %s\n", oneLine(rationale))
		}
		if len(sec.Rationale) > 0 {
			b.WriteString("\n")
		}
		if len(sec.Actions) == 0 {
			b.WriteString("_No actions cited._\n")
		}
		for _, a := range sec.Actions {
			fmt.Fprintf(b, "- %s _(%s)_\n", a.Text, strings.Join(a.Sources, ", "))
		}
	}

	if len(champ.Gaps) > 0 {
		b.WriteString("\n### Gaps\n\n")
		for _, g := range champ.Gaps {
			fmt.Fprintf(b, "- **%s**: %s\n", g.Category, g.Reason)
		}
	}
}

// orderedCriteria sorts by weight descending, then name.
func orderedCriteria(specs []model.CriterionSpec) []model.CriterionSpec {
	out := make([]model.CriterionSpec, len(specs))
	copy(out, specs)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func formatTotal(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}

func formatResult(r model.CriterionResult) string {
	if r.Scored() {
		if r.Score.Clamped {
			return fmt.Sprintf("%.1f*", r.Score.Value)
		}
		return fmt.Sprintf("%.1f", r.Score.Value)
	}
	if r.Failure != "" {
		return string(r.Failure)
	}
	return "-"
}

func percent(w float64) string {
	return fmt.Sprintf("%.0f%%", w*100)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
