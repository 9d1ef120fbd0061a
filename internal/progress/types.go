// Package progress tracks the state of every (plan, criterion) evaluation
// of a run so that callers can report live progress and final counts.
package progress

import (
	"fmt"
	"strings"
	"time"
)

const (
	StatePending      = "pending"
	StateRunning      = "running"
	StateScored       = "scored"
	StateInvalidInput = "invalid_input"
	StateBackendError = "backend_error"
	StateTimeout      = "timeout"
)

// Event is the latest known state of one criterion evaluation.
type Event struct {
	Plan      string    `json:"plan"`
	Criterion string    `json:"criterion"`
	State     string    `json:"state"`
	TS        time.Time `json:"ts"`
	Message   string    `json:"message,omitempty"`
}

// Key identifies the evaluation the event belongs to.
func (e Event) Key() string {
	return e.Plan + "/" + e.Criterion
}

func (e Event) Validate() error {
	if strings.TrimSpace(e.Plan) == "" {
		return fmt.Errorf("plan is required")
	}
	if strings.TrimSpace(e.Criterion) == "" {
		return fmt.Errorf("criterion is required")
	}
	if !isValidState(e.State) {
		return fmt.Errorf("invalid state %q", e.State)
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	return nil
}

// IsFinal reports whether no further transition is expected.
func IsFinal(state string) bool {
	switch state {
	case StateScored, StateInvalidInput, StateBackendError, StateTimeout:
		return true
	default:
		return false
	}
}

// IsUnscored reports whether the state ends without a score.
func IsUnscored(state string) bool {
	return IsFinal(state) && state != StateScored
}

func isValidState(state string) bool {
	switch state {
	case StatePending, StateRunning, StateScored, StateInvalidInput, StateBackendError, StateTimeout:
		return true
	default:
		return false
	}
}
