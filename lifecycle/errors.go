package lifecycle

import "errors"

var (
	// ErrInvalidTransition is returned when an operation is requested from
	// a state that does not permit it.
	ErrInvalidTransition = errors.New("lifecycle: invalid state transition")

	// ErrStartupValidation is returned when startup preconditions fail.
	ErrStartupValidation = errors.New("lifecycle: startup validation failed")
)
