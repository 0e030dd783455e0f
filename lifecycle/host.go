package lifecycle

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonwraymond/serverops/boundary"
	"github.com/jonwraymond/serverops/observe"
)

// Host abstracts the process environment so Run can be exercised without
// delivering real signals or terminating the test binary.
type Host interface {
	// Notify relays the given signals to ch.
	Notify(ch chan<- os.Signal, signals ...os.Signal)

	// Stop cancels signal relaying to ch.
	Stop(ch chan<- os.Signal)

	// Exit terminates the process with the given code.
	Exit(code int)
}

// OSHost is the production Host backed by os/signal and os.Exit.
type OSHost struct{}

func (OSHost) Notify(ch chan<- os.Signal, signals ...os.Signal) {
	signal.Notify(ch, signals...)
}

func (OSHost) Stop(ch chan<- os.Signal) {
	signal.Stop(ch)
}

func (OSHost) Exit(code int) {
	os.Exit(code)
}

var _ Host = OSHost{}

// Run starts the server and blocks until an interrupt or termination signal
// arrives or ctx is cancelled, then performs an orderly shutdown. The
// process exits with code 0 after an orderly shutdown and code 1 when
// startup fails.
func (c *Controller) Run(ctx context.Context, host Host) {
	if host == nil {
		host = OSHost{}
	}

	if err := c.Start(ctx); err != nil {
		c.logger.Error(ctx, "startup failed",
			observe.Field{Key: "error", Value: err.Error()},
		)
		host.Exit(1)
		return
	}

	sigCh := make(chan os.Signal, 1)
	host.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer host.Stop(sigCh)

	select {
	case sig := <-sigCh:
		c.logger.Info(ctx, "signal received",
			observe.Field{Key: "signal", Value: sig.String()},
		)
	case <-ctx.Done():
	}

	// Shutdown proceeds on a fresh context so a cancelled ctx cannot cut
	// the handlers' deadline short.
	if err := c.Stop(context.WithoutCancel(ctx)); err != nil {
		c.logger.Error(ctx, "shutdown failed",
			observe.Field{Key: "error", Value: err.Error()},
		)
		host.Exit(1)
		return
	}
	host.Exit(0)
}

// HandlePanic routes an uncaught panic through the error boundary, attempts
// an orderly shutdown, then forces the process to exit after the configured
// grace period.
func (c *Controller) HandlePanic(ctx context.Context, host Host, v any) {
	if host == nil {
		host = OSHost{}
	}

	err := fmt.Errorf("uncaught panic: %v", v)
	c.handleFailure(ctx, err, boundary.ErrorContext{
		Operation: "process",
		Severity:  boundary.SeverityCritical,
	})

	_ = c.Stop(ctx)
	time.Sleep(c.config.PanicGracePeriod)
	host.Exit(1)
}
