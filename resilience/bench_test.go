package resilience

import (
	"context"
	"testing"
	"time"
)

// BenchmarkRetry_Execute_Success measures the no-retry happy path.
func BenchmarkRetry_Execute_Success(b *testing.B) {
	r := NewRetry(RetryConfig{MaxAttempts: 3})
	ctx := context.Background()
	op := func(ctx context.Context) error { return nil }

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.Execute(ctx, op)
	}
}

// BenchmarkRetry_DelayFor measures backoff computation.
func BenchmarkRetry_DelayFor(b *testing.B) {
	r := NewRetry(RetryConfig{
		InitialDelay: 10 * time.Millisecond,
		Strategy:     BackoffExponential,
		Jitter:       true,
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.delayFor(i%10 + 1)
	}
}

// BenchmarkTimeout_Execute_Success measures the per-call overhead of the
// timeout race when the operation returns immediately.
func BenchmarkTimeout_Execute_Success(b *testing.B) {
	to := NewTimeout(TimeoutConfig{Timeout: time.Second})
	ctx := context.Background()
	op := func(ctx context.Context) error { return nil }

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = to.Execute(ctx, op)
	}
}

// BenchmarkExecuteWithTimeout measures the convenience wrapper.
func BenchmarkExecuteWithTimeout(b *testing.B) {
	ctx := context.Background()
	op := func(ctx context.Context) error { return nil }

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ExecuteWithTimeout(ctx, time.Second, op)
	}
}
