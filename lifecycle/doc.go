// Package lifecycle manages the server's lifecycle state machine.
//
// The Controller owns the transitions between stopped, starting, running,
// degraded, shutting down and error states, and orchestrates the
// collaborators that keep a running server healthy: the resource monitor,
// the health probe registry and the error boundary.
//
// # Starting and Stopping
//
// Start validates preconditions (memory within limits, no critical probe
// unhealthy) and brings the server to running:
//
//	ctrl := lifecycle.NewController(lifecycle.Config{
//	    TickInterval: 30 * time.Second,
//	})
//	if err := ctrl.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Stop performs an orderly shutdown: registered shutdown handlers run
// concurrently, each raced against a deadline, and a handler that misses
// the deadline is abandoned rather than allowed to wedge the process.
// Stopping an already stopped server is a no-op.
//
// # The Tick
//
// While running, the controller periodically samples resource usage and
// checks every health probe. Resource pressure moves the server between
// running and degraded, one transition per tick.
//
// # Process Integration
//
// Run wires the controller to process signals and blocks until shutdown:
//
//	ctrl.Run(ctx, nil) // nil selects the real OS host
//
// The Host interface abstracts signal delivery and process exit so Run can
// be tested without terminating the test binary.
//
// # HTTP Endpoints
//
// RegisterHandlers exposes a liveness endpoint and a JSON health snapshot,
// optionally protected by a bearer token:
//
//	verifier := lifecycle.NewTokenVerifier(lifecycle.VerifierConfig{Key: key})
//	lifecycle.RegisterHandlers(mux, ctrl, verifier)
package lifecycle
