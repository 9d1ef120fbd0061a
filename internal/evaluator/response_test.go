package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		value     float64
		clamped   bool
		actions   []int
		rationale string
	}{
		{
			name:      "plain object",
			raw:       `{"score": 7.5, "rationale": "Good sequencing.", "actions": [1, 3]}`,
			value:     7.5,
			actions:   []int{1, 3},
			rationale: "Good sequencing.",
		},
		{
			name:      "fenced with prose",
			raw:       "Here is my evaluation:\n```json\n{\"score\": 6, \"rationale\": \"Gaps.\"}\n```",
			value:     6,
			rationale: "Gaps.",
		},
		{
			name:      "prose around object",
			raw:       "Score follows. {\"score\": \"8/10\", \"rationale\": \"Solid.\"} Thanks!",
			value:     8,
			rationale: "Solid.",
		},
		{
			name:      "integer encoded as float",
			raw:       `{"score": 5, "rationale": "x", "actions": [2.0]}`,
			value:     5,
			actions:   []int{2},
			rationale: "x",
		},
		{
			name:      "above scale is clamped",
			raw:       `{"score": 11, "rationale": "Excellent."}`,
			value:     10,
			clamped:   true,
			rationale: "Excellent. [score 11 clamped to 10]",
		},
		{
			name:      "below scale is clamped",
			raw:       `{"score": -2, "rationale": ""}`,
			value:     0,
			clamped:   true,
			rationale: "[score -2 clamped to 0]",
		},
		{
			name:      "beyond float range is clamped",
			raw:       `{"score": 1e400, "rationale": "Off the chart."}`,
			value:     10,
			clamped:   true,
			rationale: "Off the chart. [score 1e400 clamped to 10]",
		},
		{
			name:      "negative beyond float range is clamped",
			raw:       `{"score": "-1e400", "rationale": "x"}`,
			value:     0,
			clamped:   true,
			rationale: "x [score -1e400 clamped to 0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResponse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.value, got.Value)
			assert.Equal(t, tt.clamped, got.Clamped)
			assert.Equal(t, tt.actions, got.Actions)
			assert.Equal(t, tt.rationale, got.Rationale)
		})
	}
}

func TestParseResponse_Errors(t *testing.T) {
	for name, raw := range map[string]string{
		"no json":           "I would rate this plan highly.",
		"missing score":     `{"rationale": "no number"}`,
		"missing rationale": `{"score": 4}`,
		"non numeric":       `{"score": "high", "rationale": "x"}`,
		"nan string":        `{"score": "NaN", "rationale": "x"}`,
		"infinity string":   `{"score": "Infinity", "rationale": "x"}`,
		"wrong type":        `{"score": true, "rationale": "x"}`,
		"bad actions":       `{"score": 4, "rationale": "x", "actions": ["one"]}`,
		"broken json":       `{"score": 4, "rationale": }`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseResponse(raw)
			require.Error(t, err)
		})
	}
}

func TestClamp(t *testing.T) {
	v, c := Clamp(4.2)
	assert.Equal(t, 4.2, v)
	assert.False(t, c)

	v, c = Clamp(10)
	assert.Equal(t, 10.0, v)
	assert.False(t, c)

	v, c = Clamp(10.01)
	assert.Equal(t, 10.0, v)
	assert.True(t, c)
}

func TestCitedActions(t *testing.T) {
	assert.Equal(t, []int{2, 0}, citedActions([]int{3, 1, 3, 0, 9}, 3))
	assert.Nil(t, citedActions(nil, 3))
	assert.Nil(t, citedActions([]int{1}, 0))
}
