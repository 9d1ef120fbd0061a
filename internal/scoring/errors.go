package scoring

import "fmt"

// ConfigurationError reports an invalid run configuration. It is returned
// before any evaluation work starts.
type ConfigurationError struct {
	// Check names the validation that failed, e.g. "weight_sum".
	Check   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error (%s): %s", e.Check, e.Message)
}

// EmptyInputError reports that a stage received nothing to work on.
type EmptyInputError struct {
	What string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("empty input: no %s", e.What)
}
