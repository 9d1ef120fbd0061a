package corpus

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/timvw/plan-judge/internal/model"
)

var (
	// wcagRef matches a WCAG success criterion number such as 1.4.3 or 2.4.11.
	wcagRef = regexp.MustCompile(`\b([1-4])\.(\d{1,2})\.(\d{1,2})\b`)

	// listItem matches bullet and numbered list markers at line start:
	// "- ", "* ", "• ", "1. ", "1) ", "Step 3: ", "Task 2 - ".
	listItem = regexp.MustCompile(`^(?:[-*•▪◦‣]\s+|\(?\d{1,3}[.)]\s+|(?i:step|task|action)\s+\d{1,3}\s*[:.\-–]\s*)`)

	// heading matches markdown headings and short "Title:" lines.
	heading = regexp.MustCompile(`^(?:#{1,6}\s+.*|[^.!?]{1,60}:)$`)
)

// severityWords maps keywords found in finding text to a severity, checked
// in order so the strongest match wins.
var severityWords = []struct {
	words    []string
	severity model.Severity
}{
	{[]string{"critical", "blocker"}, model.SeverityCritical},
	{[]string{"high", "serious", "major"}, model.SeverityHigh},
	{[]string{"medium", "moderate"}, model.SeverityMedium},
	{[]string{"low", "minor"}, model.SeverityLow},
}

// ParseFindings extracts audit findings from normalized audit text. Every
// line citing a WCAG success criterion becomes one finding; repeated lines
// are reported once.
func ParseFindings(text string) []model.AuditFinding {
	var findings []model.AuditFinding
	seen := make(map[string]bool)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(listItem.ReplaceAllString(strings.TrimSpace(line), ""))
		if line == "" || seen[line] {
			continue
		}
		m := wcagRef.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		seen[line] = true
		findings = append(findings, model.AuditFinding{
			ID:          fmt.Sprintf("F-%03d", len(findings)+1),
			WCAG:        m[0],
			Severity:    detectSeverity(line),
			Description: line,
		})
	}
	return findings
}

func detectSeverity(line string) model.Severity {
	lower := strings.ToLower(line)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	})
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	for _, sw := range severityWords {
		for _, w := range sw.words {
			if set[w] {
				return sw.severity
			}
		}
	}
	return model.SeverityUnknown
}

// ParseActions extracts the ordered remediation actions from normalized plan
// text. List items are actions; a non-list line directly following an item
// continues it. Plans without any list fall back to one action per
// paragraph, skipping headings.
func ParseActions(text string) []string {
	if text == "" {
		return nil
	}

	var actions []string
	inItem := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			inItem = false
		case listItem.MatchString(line):
			item := strings.TrimSpace(listItem.ReplaceAllString(line, ""))
			if item == "" {
				inItem = false
				continue
			}
			actions = append(actions, item)
			inItem = true
		case inItem && !heading.MatchString(line):
			actions[len(actions)-1] += " " + line
		default:
			inItem = false
		}
	}
	if len(actions) > 0 {
		return actions
	}

	for _, para := range strings.Split(text, "\n\n") {
		var body []string
		for _, line := range strings.Split(para, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || heading.MatchString(line) {
				continue
			}
			body = append(body, line)
		}
		if len(body) > 0 {
			actions = append(actions, strings.Join(body, " "))
		}
	}
	return actions
}
