package boundary

import (
	"errors"
	"strings"
)

// Kind classifies an error by origin. Errors created inside the backend
// carry their kind explicitly via Error; errors arriving from sources that
// cannot be typed are classified by message as a fallback.
type Kind int

const (
	// KindUnknown is an unclassified failure.
	KindUnknown Kind = iota
	// KindParser is a parsing or validation failure.
	KindParser
	// KindService is a failure of an internal service or feature provider.
	KindService
	// KindMemory is a resource-exhaustion failure (memory/heap).
	KindMemory
	// KindConnection is a connection or network failure.
	KindConnection
	// KindCache is stale or corrupt cached state.
	KindCache
	// KindTimeout is an operation deadline failure.
	KindTimeout
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindParser:
		return "parser"
	case KindService:
		return "service"
	case KindMemory:
		return "memory"
	case KindConnection:
		return "connection"
	case KindCache:
		return "cache"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is a kind-tagged error. Producers wrap failures at their point of
// origin so the boundary can dispatch on structure instead of message text.
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// Op names the failing operation.
	Op string

	// Err is the underlying error.
	Err error
}

// E wraps err with a kind and operation name.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.String() + " error"
	}
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Classify determines an error's kind. A structured Error anywhere in the
// chain wins; otherwise the message is matched by substring, the adapter
// for errors from sources that cannot be typed.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "cache") || strings.Contains(msg, "stale"):
		return KindCache
	case strings.Contains(msg, "memory") || strings.Contains(msg, "heap"):
		return KindMemory
	case strings.Contains(msg, "connection") || strings.Contains(msg, "network") ||
		strings.Contains(msg, "econnreset") || strings.Contains(msg, "broken pipe"):
		return KindConnection
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out") ||
		strings.Contains(msg, "deadline exceeded"):
		return KindTimeout
	case strings.Contains(msg, "parse") || strings.Contains(msg, "syntax"):
		return KindParser
	case strings.Contains(msg, "service"):
		return KindService
	default:
		return KindUnknown
	}
}
