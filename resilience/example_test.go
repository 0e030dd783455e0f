package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/serverops/resilience"
)

func ExampleRetry_Execute() {
	r := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		Strategy:     resilience.BackoffConstant,
		Jitter:       false,
	})

	attempts := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	fmt.Println("err:", err)
	fmt.Println("attempts:", attempts)
	// Output:
	// err: <nil>
	// attempts: 3
}

func ExampleRetry_Execute_permanentError() {
	permanent := errors.New("permanent")
	r := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		RetryIf: func(err error) bool {
			return !errors.Is(err, permanent)
		},
	})

	attempts := 0
	_ = r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return permanent
	})

	fmt.Println("attempts:", attempts)
	// Output:
	// attempts: 1
}

func ExampleTimeout_Execute() {
	to := resilience.NewTimeout(resilience.TimeoutConfig{Timeout: 20 * time.Millisecond})

	err := to.Execute(context.Background(), func(ctx context.Context) error {
		<-ctx.Done() // cooperative: give up when the deadline hits
		return ctx.Err()
	})

	fmt.Println("timed out:", errors.Is(err, resilience.ErrTimeout))
	// Output:
	// timed out: true
}

func ExampleExecuteWithTimeout() {
	err := resilience.ExecuteWithTimeout(context.Background(), time.Second,
		func(ctx context.Context) error {
			return nil
		})

	fmt.Println("err:", err)
	// Output:
	// err: <nil>
}
