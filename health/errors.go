package health

import "errors"

var (
	// ErrProbeNotFound indicates the requested probe is not registered.
	ErrProbeNotFound = errors.New("health: probe not found")

	// ErrCheckTimeout indicates a probe check exceeded its deadline.
	ErrCheckTimeout = errors.New("health: check timed out")
)
