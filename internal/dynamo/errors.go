package dynamo

import "errors"

// Domain errors for simulation operations.
var (
	// ErrInvalidState indicates a state vector with invalid dimensions or values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrStepTooSmall indicates the adaptive timestep shrank below the minimum.
	ErrStepTooSmall = errors.New("dynamo: adaptive timestep below minimum")

	// ErrDimensionMismatch indicates mismatched state/system dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrEmptyGrid indicates a sample grid with fewer than two points.
	ErrEmptyGrid = errors.New("dynamo: sample grid needs at least two points")
)

// IntegrationError wraps an error with the grid position it occurred at.
type IntegrationError struct {
	Index   int
	Time    float64
	Wrapped error
}

func (e *IntegrationError) Error() string {
	return e.Wrapped.Error()
}

func (e *IntegrationError) Unwrap() error {
	return e.Wrapped
}
