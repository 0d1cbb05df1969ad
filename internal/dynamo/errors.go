package dynamo

import "errors"

var (
	// ErrInvalidState indicates a state vector with invalid dimensions or values.
	ErrInvalidState = errors.New("dynamo: invalid state (bad dimension or non-finite value)")

	// ErrUnstable indicates the integration diverged.
	ErrUnstable = errors.New("dynamo: integration unstable (state diverged)")
)

// IntegrationError wraps an error with the step at which it occurred.
type IntegrationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *IntegrationError) Error() string {
	return e.Wrapped.Error()
}

func (e *IntegrationError) Unwrap() error {
	return e.Wrapped
}
