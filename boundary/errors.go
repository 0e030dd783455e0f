package boundary

import "errors"

var (
	// ErrNoStrategy indicates no registered strategy applied to the error.
	ErrNoStrategy = errors.New("boundary: no recovery strategy applies")

	// ErrRecoveryFailed indicates every matching strategy's action failed.
	ErrRecoveryFailed = errors.New("boundary: recovery failed")
)
