package health

import (
	"context"
	"time"
)

// Status represents the health status of a service probe.
type Status int

const (
	// StatusHealthy indicates the probe is passing.
	StatusHealthy Status = iota
	// StatusDegraded indicates the probe is failing but below the error threshold.
	StatusDegraded
	// StatusUnhealthy indicates the probe has failed repeatedly.
	StatusUnhealthy
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the status as its string form.
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Result is the outcome of a single probe check.
type Result struct {
	// Healthy reports whether the probed subsystem is functioning.
	Healthy bool

	// Err carries the failure when Healthy is false, if one is available.
	Err error
}

// Probe is a named, independently pluggable health check.
//
// Contract:
// - Concurrency: Check may be called concurrently with other probes.
// - Context: Check should observe cancellation and return promptly.
type Probe interface {
	// Name returns the probe's registry key.
	Name() string

	// Check performs the health check.
	Check(ctx context.Context) Result

	// Critical reports whether a failing check blocks server startup.
	Critical() bool
}

// ProbeFunc adapts an ordinary function to the Probe interface.
type ProbeFunc struct {
	name     string
	critical bool
	fn       func(context.Context) Result
}

// NewProbeFunc creates a new ProbeFunc.
func NewProbeFunc(name string, critical bool, fn func(context.Context) Result) *ProbeFunc {
	return &ProbeFunc{name: name, critical: critical, fn: fn}
}

// Name returns the probe's registry key.
func (f *ProbeFunc) Name() string { return f.name }

// Check performs the health check.
func (f *ProbeFunc) Check(ctx context.Context) Result { return f.fn(ctx) }

// Critical reports whether the probe is critical.
func (f *ProbeFunc) Critical() bool { return f.critical }

// ServiceHealth is the per-probe health record maintained by the Registry.
// One record exists per registered probe; it is created on registration,
// updated on every check and removed only when the probe is unregistered.
type ServiceHealth struct {
	// Name is the probe's registry key.
	Name string

	// Status is the probe's current status.
	Status Status

	// LastCheck is when the probe last ran.
	LastCheck time.Time

	// ErrorCount counts consecutive failed checks. Reset to zero only by
	// a healthy result, never by the passage of time.
	ErrorCount int

	// ResponseTime is the duration of the last check, capped at the
	// check timeout when the probe timed out.
	ResponseTime time.Duration

	// Critical mirrors the probe's critical flag.
	Critical bool
}

var _ Probe = (*ProbeFunc)(nil)
