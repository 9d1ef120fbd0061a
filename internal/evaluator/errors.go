package evaluator

import (
	"errors"
	"fmt"
)

// ErrAwaitingResponse is returned by the manual evaluator when the prompt has
// been generated but no answer has been pasted into the response directory.
var ErrAwaitingResponse = errors.New("awaiting manual response")

// InvalidInputError reports an empty or malformed document.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input (%s): %s", e.Field, e.Reason)
}

// BackendError reports that the scoring mechanism could not produce a
// parseable numeric result.
type BackendError struct {
	Provider string
	Err      error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend: %v", e.Provider, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// IsRecoverable reports whether err only affects a single criterion.
func IsRecoverable(err error) bool {
	var invalid *InvalidInputError
	var backend *BackendError
	return errors.As(err, &invalid) || errors.As(err, &backend)
}
