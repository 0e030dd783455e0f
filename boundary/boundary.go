package boundary

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonwraymond/serverops/observe"
)

// Severity grades an error's impact.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ErrorContext describes the circumstances of a handled error. It is
// created fresh per Handle call and not retained afterwards.
type ErrorContext struct {
	// Operation is the rate-limiting key, e.g. "completion" or "tick".
	Operation string

	// Severity grades the error's impact.
	Severity Severity

	// Timestamp is when the error occurred. Zero means now.
	Timestamp time.Time

	// DocumentURI optionally names the document being processed.
	DocumentURI string

	// UserID optionally identifies the requesting user.
	UserID string
}

// RecoveryStrategy is a predicate-plus-action pair that may repair a class
// of error. Strategies are stateless; they share no mutable state with each
// other.
type RecoveryStrategy interface {
	// CanRecover reports whether this strategy applies to the error.
	CanRecover(err error, ectx ErrorContext) bool

	// Recover attempts the repair.
	Recover(ctx context.Context, err error, ectx ErrorContext) error

	// Description names the strategy for logs.
	Description() string
}

// Reporter receives an asynchronous, isolated report of each handled error.
// A panicking reporter never affects the Handle caller.
type Reporter func(ctx context.Context, err error, ectx ErrorContext)

// Config configures the error boundary.
type Config struct {
	// MaxErrorRate is the number of errors allowed per operation key
	// within one window before further recovery is suppressed.
	// Default: 10
	MaxErrorRate int

	// Window is the fixed rate-limiting window. Default: 60 seconds
	Window time.Duration

	// Logger receives boundary logs. Default: no-op.
	Logger observe.Logger

	// Metrics receives handled-error telemetry. Default: no-op.
	Metrics observe.Metrics

	// Reporter, when set, is invoked asynchronously for each handled error.
	Reporter Reporter

	// Strategies is the ordered recovery catalog. See Defaults.
	Strategies []RecoveryStrategy
}

// Boundary contains errors: it logs them, rate limits per operation,
// dispatches recovery strategies and notifies subscribers. Recoverable
// errors never propagate past it.
type Boundary struct {
	config  Config
	logger  observe.Logger
	metrics observe.Metrics
	limiter *windowLimiter

	mu          sync.Mutex
	strategies  []RecoveryStrategy
	subscribers []func(err error, ectx ErrorContext)
}

// New creates a new error boundary.
func New(config Config) *Boundary {
	if config.MaxErrorRate <= 0 {
		config.MaxErrorRate = 10
	}
	if config.Window <= 0 {
		config.Window = 60 * time.Second
	}

	logger := config.Logger
	if logger == nil {
		logger = observe.NopLogger()
	} else {
		logger = logger.WithComponent("boundary")
	}
	metrics := config.Metrics
	if metrics == nil {
		metrics = observe.NopMetrics()
	}

	return &Boundary{
		config:     config,
		logger:     logger,
		metrics:    metrics,
		limiter:    newWindowLimiter(config.MaxErrorRate, config.Window),
		strategies: append([]RecoveryStrategy(nil), config.Strategies...),
	}
}

// AddRecoveryStrategy appends a strategy to the catalog.
func (b *Boundary) AddRecoveryStrategy(s RecoveryStrategy) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.strategies = append(b.strategies, s)
}

// OnError registers a subscriber notified for every handled error. A
// panicking subscriber never prevents the others from being notified.
func (b *Boundary) OnError(fn func(err error, ectx ErrorContext)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, fn)
}

// Handle processes an error: severity-leveled logging, per-operation rate
// limiting, asynchronous reporting, subscriber notification and recovery
// dispatch. It returns nil when the error was contained (recovered or rate
// limited) and the aggregate recovery failure when no strategy succeeded,
// in which case the caller decides how to escalate.
func (b *Boundary) Handle(ctx context.Context, err error, ectx ErrorContext) error {
	if err == nil {
		return nil
	}
	if ectx.Timestamp.IsZero() {
		ectx.Timestamp = time.Now()
	}

	b.logError(ctx, err, ectx)

	if !b.limiter.allow(ectx.Operation, ectx.Timestamp) {
		b.logger.Warn(ctx, "error rate limit exceeded, suppressing recovery",
			observe.Field{Key: "operation", Value: ectx.Operation},
			observe.Field{Key: "window", Value: b.config.Window.String()},
		)
		b.metrics.RecordHandledError(ctx, ectx.Operation, ectx.Severity.String(), false)
		return nil
	}

	b.report(ctx, err, ectx)
	b.notify(err, ectx)

	recoverErr := b.Recover(ctx, err, ectx)
	b.metrics.RecordHandledError(ctx, ectx.Operation, ectx.Severity.String(), recoverErr == nil)
	return recoverErr
}

// CanRecover reports whether any registered strategy applies to the error.
func (b *Boundary) CanRecover(err error, ectx ErrorContext) bool {
	b.mu.Lock()
	strategies := b.strategies
	b.mu.Unlock()

	for _, s := range strategies {
		if s.CanRecover(err, ectx) {
			return true
		}
	}
	return false
}

// Recover dispatches the error to strategies in registration order. The
// first matching strategy runs; when its action fails the next matching
// strategy is tried. When no strategy succeeds, an aggregate error wrapping
// every attempted failure is returned.
func (b *Boundary) Recover(ctx context.Context, err error, ectx ErrorContext) error {
	b.mu.Lock()
	strategies := append([]RecoveryStrategy(nil), b.strategies...)
	b.mu.Unlock()

	var attempts []error
	matched := false

	for _, s := range strategies {
		if !s.CanRecover(err, ectx) {
			continue
		}
		matched = true

		b.logger.Debug(ctx, "attempting recovery",
			observe.Field{Key: "strategy", Value: s.Description()},
			observe.Field{Key: "operation", Value: ectx.Operation},
		)

		if recoverErr := b.runStrategy(ctx, s, err, ectx); recoverErr != nil {
			attempts = append(attempts, fmt.Errorf("%s: %w", s.Description(), recoverErr))
			continue
		}

		b.logger.Info(ctx, "recovered from error",
			observe.Field{Key: "strategy", Value: s.Description()},
			observe.Field{Key: "operation", Value: ectx.Operation},
		)
		return nil
	}

	if !matched {
		return fmt.Errorf("%w: %s", ErrNoStrategy, ectx.Operation)
	}
	return fmt.Errorf("%w: %w", ErrRecoveryFailed, errors.Join(attempts...))
}

// runStrategy runs one recovery action, converting a panic into an error so
// dispatch can continue with the next matching strategy.
func (b *Boundary) runStrategy(ctx context.Context, s RecoveryStrategy, err error, ectx ErrorContext) (out error) {
	defer func() {
		if v := recover(); v != nil {
			out = fmt.Errorf("strategy panicked: %v", v)
		}
	}()
	return s.Recover(ctx, err, ectx)
}

// report fires the asynchronous error report. Its failure never reaches the
// caller.
func (b *Boundary) report(ctx context.Context, err error, ectx ErrorContext) {
	if b.config.Reporter == nil {
		return
	}

	reportCtx := context.WithoutCancel(ctx)
	go func() {
		defer func() {
			if v := recover(); v != nil {
				b.logger.Warn(reportCtx, "error reporter panicked",
					observe.Field{Key: "panic", Value: fmt.Sprint(v)},
				)
			}
		}()
		b.config.Reporter(reportCtx, err, ectx)
	}()
}

// notify fans the error out to subscribers, isolating each one.
func (b *Boundary) notify(err error, ectx ErrorContext) {
	b.mu.Lock()
	subscribers := append(([]func(error, ErrorContext))(nil), b.subscribers...)
	b.mu.Unlock()

	for _, fn := range subscribers {
		func() {
			defer func() {
				_ = recover()
			}()
			fn(err, ectx)
		}()
	}
}

func (b *Boundary) logError(ctx context.Context, err error, ectx ErrorContext) {
	fields := []observe.Field{
		{Key: "operation", Value: ectx.Operation},
		{Key: "severity", Value: ectx.Severity.String()},
		{Key: "kind", Value: Classify(err).String()},
		{Key: "error", Value: err.Error()},
	}
	if ectx.DocumentURI != "" {
		fields = append(fields, observe.Field{Key: "document", Value: ectx.DocumentURI})
	}
	if ectx.UserID != "" {
		fields = append(fields, observe.Field{Key: "user", Value: ectx.UserID})
	}

	switch ectx.Severity {
	case SeverityLow:
		b.logger.Debug(ctx, "handling error", fields...)
	case SeverityMedium:
		b.logger.Warn(ctx, "handling error", fields...)
	default:
		b.logger.Error(ctx, "handling error", fields...)
	}
}
