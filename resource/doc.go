// Package resource monitors the process's own resource consumption.
//
// A Monitor samples memory and CPU on a fixed interval into bounded
// histories, evaluates the latest samples and manually tracked file-handle
// and connection counters against mutable thresholds, and applies a
// memory-growth heuristic over recent heap samples. It also owns the
// registered cleanup tasks run during shutdown.
package resource
