package boundary

import (
	"context"
	"runtime"

	"github.com/jonwraymond/serverops/cache"
)

// StrategyFunc adapts a predicate and an action to the RecoveryStrategy
// interface.
type StrategyFunc struct {
	description string
	canRecover  func(err error, ectx ErrorContext) bool
	action      func(ctx context.Context, err error, ectx ErrorContext) error
}

// NewStrategy creates a RecoveryStrategy from a predicate and an action.
func NewStrategy(description string, canRecover func(error, ErrorContext) bool, action func(context.Context, error, ErrorContext) error) *StrategyFunc {
	return &StrategyFunc{
		description: description,
		canRecover:  canRecover,
		action:      action,
	}
}

// CanRecover reports whether this strategy applies to the error.
func (s *StrategyFunc) CanRecover(err error, ectx ErrorContext) bool {
	return s.canRecover(err, ectx)
}

// Recover attempts the repair.
func (s *StrategyFunc) Recover(ctx context.Context, err error, ectx ErrorContext) error {
	return s.action(ctx, err, ectx)
}

// Description names the strategy for logs.
func (s *StrategyFunc) Description() string {
	return s.description
}

// DefaultStrategyDeps carries the collaborators the default recovery
// catalog acts on. Nil members disable the strategies that need them,
// except the memory-cleanup GC pass which always applies.
type DefaultStrategyDeps struct {
	// Cache is flushed by the cache-invalidation and memory-cleanup
	// strategies.
	Cache cache.Cache

	// RestartService restarts the degraded internal service.
	RestartService func(ctx context.Context) error

	// ResetConnections tears down and re-establishes client connections.
	ResetConnections func(ctx context.Context) error
}

// Defaults builds the default recovery catalog in its canonical order:
// cache-invalidation, service-restart, memory-cleanup, connection-reset.
func Defaults(deps DefaultStrategyDeps) []RecoveryStrategy {
	var strategies []RecoveryStrategy

	if deps.Cache != nil {
		strategies = append(strategies, NewStrategy(
			"cache-invalidation",
			func(err error, _ ErrorContext) bool {
				return Classify(err) == KindCache
			},
			func(ctx context.Context, _ error, _ ErrorContext) error {
				return deps.Cache.Flush(ctx)
			},
		))
	}

	if deps.RestartService != nil {
		strategies = append(strategies, NewStrategy(
			"service-restart",
			func(err error, ectx ErrorContext) bool {
				kind := Classify(err)
				return kind == KindService || kind == KindTimeout || ectx.Severity >= SeverityHigh
			},
			func(ctx context.Context, _ error, _ ErrorContext) error {
				return deps.RestartService(ctx)
			},
		))
	}

	strategies = append(strategies, NewStrategy(
		"memory-cleanup",
		func(err error, _ ErrorContext) bool {
			return Classify(err) == KindMemory
		},
		func(ctx context.Context, _ error, _ ErrorContext) error {
			if deps.Cache != nil {
				if err := deps.Cache.Flush(ctx); err != nil {
					return err
				}
			}
			runtime.GC()
			return nil
		},
	))

	if deps.ResetConnections != nil {
		strategies = append(strategies, NewStrategy(
			"connection-reset",
			func(err error, _ ErrorContext) bool {
				return Classify(err) == KindConnection
			},
			func(ctx context.Context, _ error, _ ErrorContext) error {
				return deps.ResetConnections(ctx)
			},
		))
	}

	return strategies
}

var _ RecoveryStrategy = (*StrategyFunc)(nil)
