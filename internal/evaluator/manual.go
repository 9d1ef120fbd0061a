package evaluator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/timvw/plan-judge/internal/model"
)

// ManualEvaluator is the human-in-the-loop backend. For every request it
// writes the rendered prompt to PromptDir and reads the answer a human
// pasted into ResponseDir. A missing answer is a *BackendError wrapping
// ErrAwaitingResponse, so a first run produces all prompts and a second run
// scores whatever has been answered.
type ManualEvaluator struct {
	PromptDir   string
	ResponseDir string
}

// NewManualEvaluator creates a manual evaluator. responseDir defaults to
// promptDir.
func NewManualEvaluator(promptDir, responseDir string) *ManualEvaluator {
	if responseDir == "" {
		responseDir = promptDir
	}
	return &ManualEvaluator{PromptDir: promptDir, ResponseDir: responseDir}
}

// Provider returns "manual".
func (m *ManualEvaluator) Provider() string {
	return "manual"
}

// Model returns "manual".
func (m *ManualEvaluator) Model() string {
	return "manual"
}

// PromptPath returns where the prompt for (plan, criterion) is written.
func (m *ManualEvaluator) PromptPath(planID, criterion string) string {
	return filepath.Join(m.PromptDir, fmt.Sprintf("%s.%s.prompt.md", planID, criterion))
}

// ResponsePath returns where the answer for (plan, criterion) is expected.
func (m *ManualEvaluator) ResponsePath(planID, criterion string) string {
	return filepath.Join(m.ResponseDir, fmt.Sprintf("%s.%s.json", planID, criterion))
}

// Evaluate writes the prompt and parses the pasted answer if present.
func (m *ManualEvaluator) Evaluate(ctx context.Context, req Request) (*model.CriterionScore, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &BackendError{Provider: m.Provider(), Err: err}
	}

	prompt, err := BuildPrompt(req)
	if err != nil {
		return nil, &BackendError{Provider: m.Provider(), Err: err}
	}

	promptPath := m.PromptPath(req.Plan.ID, req.Criterion.Name)
	if err := os.MkdirAll(m.PromptDir, 0o755); err != nil {
		return nil, &BackendError{Provider: m.Provider(), Err: fmt.Errorf("create prompt dir: %w", err)}
	}
	content := "# System\n\n" + prompt.System + "\n# User\n\n" + prompt.User
	if err := os.WriteFile(promptPath, []byte(content), 0o644); err != nil {
		return nil, &BackendError{Provider: m.Provider(), Err: fmt.Errorf("write prompt: %w", err)}
	}

	responsePath := m.ResponsePath(req.Plan.ID, req.Criterion.Name)
	data, err := os.ReadFile(responsePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &BackendError{
			Provider: m.Provider(),
			Err:      fmt.Errorf("%w: paste the answer to %s into %s", ErrAwaitingResponse, promptPath, responsePath),
		}
	}
	if err != nil {
		return nil, &BackendError{Provider: m.Provider(), Err: fmt.Errorf("read response: %w", err)}
	}

	parsed, err := ParseResponse(string(data))
	if err != nil {
		return nil, &BackendError{Provider: m.Provider(), Err: fmt.Errorf("%s: %w", responsePath, err)}
	}
	return newScore(req, parsed, model.ScoreSourceManual, m.Provider(), m.Model(), model.TokenUsage{}), nil
}
