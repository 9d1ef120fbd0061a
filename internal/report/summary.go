package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/timvw/plan-judge/internal/model"
)

// Summary renders a compact terminal view of r: status line, ranking table,
// champion sources and gaps.
func Summary(r *model.RunReport, t Theme) string {
	st := newStyles(t)
	var b strings.Builder

	b.WriteString(st.title.Render("plan-judge"))
	b.WriteString(st.dim.Render(fmt.Sprintf("  %s  %s", r.AuditID, r.RunID)))
	b.WriteString("\n")
	b.WriteString(statusLine(r, st))
	b.WriteString("\n")

	if r.Failure != nil {
		b.WriteString(st.err.Render(fmt.Sprintf("%s stage: %s", r.Failure.Stage, r.Failure.Message)))
		b.WriteString("\n")
	}

	criteria := orderedCriteria(r.Criteria)
	if len(r.Plans) > 0 {
		b.WriteString(rankingTable(r.Plans, criteria, st))
		b.WriteString("\n")
	}

	if c := r.Champion; c != nil {
		b.WriteString(st.header.Render("Champion"))
		b.WriteString("\n")
		for _, sec := range c.Sections {
			line := fmt.Sprintf("  %-28s %4.1f  %s", sec.Title, sec.Score, strings.Join(sec.Sources, " + "))
			b.WriteString(st.text.Render(line))
			b.WriteString(st.dim.Render(fmt.Sprintf("  (%d actions)", len(sec.Actions))))
			b.WriteString("\n")
		}
		for _, g := range c.Gaps {
			b.WriteString(st.warn.Render(fmt.Sprintf("  gap: %s: %s", g.Category, g.Reason)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func statusLine(r *model.RunReport, st styles) string {
	var status string
	switch r.Status {
	case model.RunComplete:
		status = st.ok.Render("✓ complete")
	case model.RunPartial:
		status = st.warn.Render("⚠ partial")
	default:
		status = st.err.Render("✗ " + string(r.Status))
	}
	info := fmt.Sprintf("  %d plans  %d ms", len(r.Plans), r.DurationMs)
	if r.Usage.InputTokens > 0 || r.Usage.OutputTokens > 0 {
		info += fmt.Sprintf("  tokens: %d in / %d out", r.Usage.InputTokens, r.Usage.OutputTokens)
	}
	return status + st.dim.Render(info)
}

func rankingTable(plans []model.PlanReport, criteria []model.CriterionSpec, st styles) string {
	headers := []string{"#", "Plan", "Total"}
	for _, c := range criteria {
		headers = append(headers, c.Name)
	}

	rows := make([][]string, len(plans))
	for i, p := range plans {
		row := []string{fmt.Sprint(p.Rank), p.PlanID, formatTotal(p.CompositeScore)}
		for _, c := range criteria {
			row = append(row, formatResult(p.Criteria[c.Name]))
		}
		rows[i] = row
	}

	cell := lipgloss.NewStyle().Padding(0, 1)
	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(st.border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return cell.Inherit(st.header)
			case row == 0:
				return cell.Inherit(st.leading)
			case col == 1:
				return cell.Inherit(st.plan)
			case col >= 3 && !plans[row].Criteria[criteria[col-3].Name].Scored():
				return cell.Inherit(st.err)
			default:
				return cell.Inherit(st.text)
			}
		})
	return tbl.String()
}
