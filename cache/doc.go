// Package cache provides the in-memory result cache used by the backend's
// feature providers, with a Flush escape hatch for the error boundary's
// cache-invalidation and memory-cleanup recovery strategies.
package cache
