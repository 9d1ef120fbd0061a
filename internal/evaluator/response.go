package evaluator

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/timvw/plan-judge/internal/model"
	"github.com/xeipuuv/gojsonschema"
)

// responseSchema is the contract every scoring answer must satisfy. The
// score range is checked after parsing so out-of-scale values can be
// clamped instead of rejected.
const responseSchema = `{
  "type": "object",
  "required": ["score", "rationale"],
  "properties": {
    "score": {"type": ["number", "string"]},
    "rationale": {"type": "string"},
    "actions": {"type": "array", "items": {"type": "integer"}}
  }
}`

var responseLoader = gojsonschema.NewStringLoader(responseSchema)

// ParsedScore is a validated answer before it is attached to a request.
type ParsedScore struct {
	Value     float64
	Clamped   bool
	Rationale string
	// Actions are 1-based action numbers as cited in the answer.
	Actions []int
}

type scoreResponse struct {
	Score     json.RawMessage `json:"score"`
	Rationale string          `json:"rationale"`
	Actions   []float64       `json:"actions"`
}

// ParseResponse extracts a score from raw model output. The output may wrap
// the JSON object in markdown fences or surrounding prose.
func ParseResponse(raw string) (*ParsedScore, error) {
	text := extractJSONObject(stripMarkdownFences(raw))
	if text == "" {
		return nil, fmt.Errorf("no JSON object in response: %q", truncate(raw, 200))
	}

	result, err := gojsonschema.Validate(responseLoader, gojsonschema.NewStringLoader(text))
	if err != nil {
		return nil, fmt.Errorf("failed to parse response as JSON: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("response does not match schema: %s", strings.Join(msgs, "; "))
	}

	var resp scoreResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	value, written, err := parseScoreValue(resp.Score)
	if err != nil {
		return nil, err
	}

	clamped, wasClamped := Clamp(value)
	rationale := strings.TrimSpace(resp.Rationale)
	if wasClamped {
		rationale = strings.TrimSpace(fmt.Sprintf("%s [score %s clamped to %g]", rationale, written, clamped))
	}

	return &ParsedScore{
		Value:     clamped,
		Clamped:   wasClamped,
		Rationale: rationale,
		Actions:   actionNumbers(resp.Actions),
	}, nil
}

// parseScoreValue accepts a JSON number or a numeric string such as "7.5"
// or "7.5/10". It also returns the score as written. Numbers beyond float64
// range parse to ±Inf, which Clamp bounds; NaN and literal infinities are
// rejected.
func parseScoreValue(raw json.RawMessage) (float64, string, error) {
	var text string
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		text = num.String()
	} else {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, "", fmt.Errorf("score is not numeric: %s", raw)
		}
		text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "/10"))
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, "", fmt.Errorf("score is not numeric: %q", text)
	}
	if math.IsNaN(v) || (math.IsInf(v, 0) && err == nil) {
		return 0, "", fmt.Errorf("score is not a finite number: %q", text)
	}
	return v, text, nil
}

// Clamp bounds v to the scoring scale and reports whether it had to.
func Clamp(v float64) (float64, bool) {
	switch {
	case v < model.MinScore:
		return model.MinScore, true
	case v > model.MaxScore:
		return model.MaxScore, true
	}
	return v, false
}

// actionNumbers converts schema-validated integers (which may be encoded as
// 3.0) to ints.
func actionNumbers(nums []float64) []int {
	if len(nums) == 0 {
		return nil
	}
	out := make([]int, len(nums))
	for i, n := range nums {
		out[i] = int(n)
	}
	return out
}

// citedActions converts 1-based action numbers to 0-based indices into a
// plan with n actions. Out-of-range and repeated numbers are dropped.
func citedActions(numbers []int, n int) []int {
	var out []int
	seen := make(map[int]bool, len(numbers))
	for _, num := range numbers {
		idx := num - 1
		if idx < 0 || idx >= n || seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, idx)
	}
	return out
}

// stripMarkdownFences removes a surrounding ```json ... ``` block.
func stripMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimLeft(s, "abcdefghijklmnopqrstuvwxyz")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// extractJSONObject returns the outermost {...} span of s, or "" if there
// is none.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
