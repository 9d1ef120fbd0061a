package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timvw/plan-judge/internal/model"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "whitespace only", input: " \t\n\r\n  ", want: ""},
		{name: "collapses spaces", input: "Fix   the\tcontrast ", want: "Fix the contrast"},
		{name: "crlf and blank runs", input: "a\r\n\r\n\r\n\r\nb", want: "a\n\nb"},
		{name: "drops zero width and form feed", input: "alt\u200btext\fhere", want: "alttext here"},
		{name: "nfkc folds ligatures", input: "\ufb01x", want: "fix"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestParseFindings(t *testing.T) {
	audit := `Accessibility Audit

1. Critical: images lack alternative text (WCAG 1.1.1)
2. Color contrast below 4.5:1 on buttons, 1.4.3, serious
- Focus order is illogical in checkout (2.4.3) minor
Summary without reference.
2. Color contrast below 4.5:1 on buttons, 1.4.3, serious`

	findings := ParseFindings(Normalize(audit))
	require.Len(t, findings, 3)

	assert.Equal(t, "F-001", findings[0].ID)
	assert.Equal(t, "1.1.1", findings[0].WCAG)
	assert.Equal(t, model.SeverityCritical, findings[0].Severity)
	assert.Equal(t, "Critical: images lack alternative text (WCAG 1.1.1)", findings[0].Description)

	assert.Equal(t, "1.4.3", findings[1].WCAG)
	assert.Equal(t, model.SeverityHigh, findings[1].Severity)

	assert.Equal(t, "2.4.3", findings[2].WCAG)
	assert.Equal(t, model.SeverityLow, findings[2].Severity)
}

func TestParseActions_ListItems(t *testing.T) {
	plan := `# Remediation plan

## Phase 1
1. Add alt text to all product images
   using the CMS media library.
2) Raise button contrast to 4.5:1
- Fix focus order in checkout
Step 4: Add skip links

Closing notes are not actions.`

	got := ParseActions(Normalize(plan))
	assert.Equal(t, []string{
		"Add alt text to all product images using the CMS media library.",
		"Raise button contrast to 4.5:1",
		"Fix focus order in checkout",
		"Add skip links",
	}, got)
}

func TestParseActions_ParagraphFallback(t *testing.T) {
	plan := "# Plan\nFix contrast first.\n\nThen add captions to videos.\n\nTimeline:"
	got := ParseActions(Normalize(plan))
	assert.Equal(t, []string{"Fix contrast first.", "Then add captions to videos."}, got)
}

func TestParseActions_Empty(t *testing.T) {
	assert.Nil(t, ParseActions(""))
}

func TestNew_OrdersPlansAndKeepsEmpty(t *testing.T) {
	c, err := New("audit", "Contrast issue 1.4.3", map[string]string{
		"plan-b": "- Fix contrast",
		"plan-a": "   ",
	})
	require.NoError(t, err)
	require.Len(t, c.Plans, 2)
	assert.Equal(t, "plan-a", c.Plans[0].ID)
	assert.Equal(t, "", c.Plans[0].Text)
	assert.Equal(t, []string{"Fix contrast"}, c.Plans[1].Actions)
	assert.Len(t, c.Findings, 1)

	p, ok := c.Plan("plan-b")
	require.True(t, ok)
	assert.Equal(t, "plan-b", p.ID)
}

func TestNew_RequiresAuditID(t *testing.T) {
	_, err := New("", "text", nil)
	require.Error(t, err)
}

func TestPlanID(t *testing.T) {
	assert.Equal(t, "gemini-2-5-pro-a11y-plan", PlanID("Gemini 2.5 Pro - a11y plan.md"))
	assert.Equal(t, "plan", PlanID("---.txt"))
}

func TestExtractHTML(t *testing.T) {
	html := `<html><head><style>p{}</style></head><body>
<nav>skip me</nav>
<h1>Plan</h1>
<p>Intro text.</p>
<ul><li>Add <b>alt</b> text</li><li><p>Fix focus</p></li></ul>
<script>alert(1)</script>
</body></html>`
	got, err := ExtractHTML(strings.NewReader(html))
	require.NoError(t, err)
	norm := Normalize(got)
	assert.Contains(t, norm, "Plan")
	assert.Contains(t, norm, "- Add alt text")
	assert.Contains(t, norm, "Fix focus")
	assert.NotContains(t, norm, "alert(1)")
	assert.NotContains(t, norm, "skip me")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	plans := filepath.Join(dir, "plans")
	require.NoError(t, os.Mkdir(plans, 0o755))

	auditPath := filepath.Join(dir, "audit.txt")
	require.NoError(t, os.WriteFile(auditPath, []byte("Missing captions 1.2.2 high"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(plans, "Plan A.md"), []byte("- Add captions"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(plans, "plan_a.txt"), []byte("- Caption all videos"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(plans, "plan.pdf"), []byte("%PDF"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(plans, "empty.txt"), nil, 0o644))

	c, warnings, err := Load(auditPath, plans)
	require.NoError(t, err)
	assert.Equal(t, "audit", c.Audit.ID)
	require.Len(t, c.Findings, 1)

	// The truncated PDF is kept with empty text and reported as a warning.
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Error(), "plan plan:")

	ids := make([]string, len(c.Plans))
	for i, p := range c.Plans {
		ids[i] = p.ID
	}
	assert.Equal(t, []string{"plan-a", "empty", "plan", "plan-a-2"}, ids)
	assert.Equal(t, "", c.Plans[1].Text)
	assert.Equal(t, "", c.Plans[2].Text)
}

func TestLoad_NoPlans(t *testing.T) {
	dir := t.TempDir()
	auditPath := filepath.Join(dir, "audit.txt")
	require.NoError(t, os.WriteFile(auditPath, []byte("audit"), 0o644))

	_, _, err := Load(auditPath, dir)
	require.Error(t, err)
}

func TestExtractFile_Unsupported(t *testing.T) {
	_, err := ExtractFile("report.docx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}
