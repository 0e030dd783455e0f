package boundary_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/serverops/boundary"
)

func ExampleBoundary_Handle() {
	b := boundary.New(boundary.Config{
		Strategies: []boundary.RecoveryStrategy{
			boundary.NewStrategy("reconnect",
				func(err error, ectx boundary.ErrorContext) bool {
					return boundary.Classify(err) == boundary.KindConnection
				},
				func(ctx context.Context, err error, ectx boundary.ErrorContext) error {
					fmt.Println("reconnecting")
					return nil
				}),
		},
	})

	err := b.Handle(context.Background(),
		boundary.E(boundary.KindConnection, "poll", errors.New("connection reset")),
		boundary.ErrorContext{Operation: "poll", Severity: boundary.SeverityMedium})
	fmt.Println("recovered:", err == nil)
	// Output:
	// reconnecting
	// recovered: true
}

func ExampleClassify() {
	// Untyped errors fall back to message matching.
	fmt.Println(boundary.Classify(errors.New("connection refused by peer")))
	fmt.Println(boundary.Classify(errors.New("stale cache entry")))

	// A structured error anywhere in the chain wins.
	fmt.Println(boundary.Classify(boundary.E(boundary.KindTimeout, "fetch", nil)))
	// Output:
	// connection
	// cache
	// timeout
}

func ExampleE() {
	err := boundary.E(boundary.KindParser, "parse", errors.New("unexpected token"))

	fmt.Println(err)
	fmt.Println("kind:", boundary.Classify(err))
	// Output:
	// parse: unexpected token
	// kind: parser
}

func ExampleBoundary_OnError() {
	b := boundary.New(boundary.Config{})

	b.OnError(func(err error, ectx boundary.ErrorContext) {
		fmt.Printf("seen: %s (%s)\n", err, ectx.Severity)
	})

	_ = b.Handle(context.Background(), errors.New("backend unavailable"),
		boundary.ErrorContext{Operation: "query", Severity: boundary.SeverityLow})
	// Output:
	// seen: backend unavailable (low)
}
