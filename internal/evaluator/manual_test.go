package evaluator

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timvw/plan-judge/internal/model"
)

func TestManualEvaluator_WritesPromptAndAwaitsResponse(t *testing.T) {
	dir := t.TempDir()
	m := NewManualEvaluator(dir, "")
	req := testRequest()

	_, err := m.Evaluate(context.Background(), req)
	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.ErrorIs(t, err, ErrAwaitingResponse)

	prompt, err := os.ReadFile(m.PromptPath("plan-a", "technical"))
	require.NoError(t, err)
	assert.Contains(t, string(prompt), "# System")
	assert.Contains(t, string(prompt), "Raise button contrast")
}

func TestManualEvaluator_ReadsResponse(t *testing.T) {
	promptDir := t.TempDir()
	responseDir := t.TempDir()
	m := NewManualEvaluator(promptDir, responseDir)

	require.NoError(t, os.WriteFile(m.ResponsePath("plan-a", "technical"),
		[]byte("```json\n{\"score\": 6.5, \"rationale\": \"Partial.\", \"actions\": [2]}\n```"), 0o644))

	got, err := m.Evaluate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, 6.5, got.Value)
	assert.Equal(t, []int{1}, got.Actions)
	assert.Equal(t, model.ScoreSourceManual, got.Source)
	assert.Equal(t, "manual", got.Provider)
}

func TestManualEvaluator_MalformedResponse(t *testing.T) {
	dir := t.TempDir()
	m := NewManualEvaluator(dir, dir)
	require.NoError(t, os.WriteFile(m.ResponsePath("plan-a", "technical"), []byte("seven"), 0o644))

	_, err := m.Evaluate(context.Background(), testRequest())
	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.NotErrorIs(t, err, ErrAwaitingResponse)
}
