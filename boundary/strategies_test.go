package boundary

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/serverops/cache"
)

func TestDefaults_CacheInvalidation(t *testing.T) {
	c := cache.NewMemoryCache()
	ctx := context.Background()
	_ = c.Set(ctx, "doc:a", []byte("x"), time.Minute)

	b := New(Config{Strategies: Defaults(DefaultStrategyDeps{Cache: c})})

	err := b.Recover(ctx, errors.New("stale cache entry for doc:a"), ErrorContext{Operation: "completion"})
	if err != nil {
		t.Fatalf("Recover() error = %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("cache Len() = %d after invalidation, want 0", c.Len())
	}
}

func TestDefaults_ServiceRestart(t *testing.T) {
	restarts := 0
	deps := DefaultStrategyDeps{
		RestartService: func(ctx context.Context) error {
			restarts++
			return nil
		},
	}
	b := New(Config{Strategies: Defaults(deps)})
	ctx := context.Background()

	// Matched by kind.
	if err := b.Recover(ctx, errors.New("symbol service unavailable"), ErrorContext{}); err != nil {
		t.Errorf("Recover(service error) = %v", err)
	}
	// Matched by severity alone.
	if err := b.Recover(ctx, errors.New("inexplicable"), ErrorContext{Severity: SeverityHigh}); err != nil {
		t.Errorf("Recover(high severity) = %v", err)
	}

	if restarts != 2 {
		t.Errorf("restarts = %d, want 2", restarts)
	}
}

func TestDefaults_MemoryCleanup(t *testing.T) {
	c := cache.NewMemoryCache()
	ctx := context.Background()
	_ = c.Set(ctx, "k", []byte("v"), time.Minute)

	b := New(Config{Strategies: Defaults(DefaultStrategyDeps{Cache: c})})

	err := b.Recover(ctx, E(KindMemory, "index", errors.New("allocation failed")), ErrorContext{})
	if err != nil {
		t.Fatalf("Recover() error = %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("cache Len() = %d after memory cleanup, want 0", c.Len())
	}
}

func TestDefaults_MemoryCleanupWithoutCache(t *testing.T) {
	// The GC pass applies even with no cache wired.
	b := New(Config{Strategies: Defaults(DefaultStrategyDeps{})})

	err := b.Recover(context.Background(), errors.New("heap exhausted"), ErrorContext{})
	if err != nil {
		t.Errorf("Recover() error = %v, want nil", err)
	}
}

func TestDefaults_ConnectionReset(t *testing.T) {
	resets := 0
	deps := DefaultStrategyDeps{
		ResetConnections: func(ctx context.Context) error {
			resets++
			return nil
		},
	}
	b := New(Config{Strategies: Defaults(deps)})

	err := b.Recover(context.Background(), errors.New("network connection dropped"), ErrorContext{})
	if err != nil {
		t.Errorf("Recover() error = %v", err)
	}
	if resets != 1 {
		t.Errorf("resets = %d, want 1", resets)
	}
}

func TestDefaults_UnknownErrorFindsNoStrategy(t *testing.T) {
	b := New(Config{Strategies: Defaults(DefaultStrategyDeps{})})

	err := b.Recover(context.Background(), errors.New("inexplicable"), ErrorContext{Severity: SeverityLow})
	if !errors.Is(err, ErrNoStrategy) {
		t.Errorf("Recover() error = %v, want ErrNoStrategy", err)
	}
}
