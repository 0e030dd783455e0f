// Package boundary contains internal errors so they never crash the
// process.
//
// Every handled error is logged at a level derived from its severity, rate
// limited per operation key under a fixed window, reported asynchronously,
// fanned out to subscribers and dispatched to the first matching recovery
// strategy. When no strategy succeeds the aggregate failure is returned to
// the caller, which logs the escalation; no further automated action is
// taken.
package boundary
