// Package resilience provides the bounded-execution primitives the
// supervisor is built on: deadline racing for probe checks and shutdown
// handlers, and retry with backoff for restart attempts.
//
// Operations receive a context carrying the deadline; a cooperative
// operation observes cancellation and aborts, a non-cooperative one keeps
// running in the background with its result discarded.
package resilience
