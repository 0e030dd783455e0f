package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/serverops/boundary"
	"github.com/jonwraymond/serverops/health"
	"github.com/jonwraymond/serverops/observe"
	"github.com/jonwraymond/serverops/resilience"
	"github.com/jonwraymond/serverops/resource"
)

// Config configures the lifecycle controller.
type Config struct {
	// TickInterval is the period of the recurring health check.
	// Default: 30 seconds
	TickInterval time.Duration

	// ShutdownTimeout is the deadline each shutdown handler is raced
	// against. Default: 5 seconds
	ShutdownTimeout time.Duration

	// RestartPause is the pause between stop and start during Restart.
	// Default: 1 second
	RestartPause time.Duration

	// RestartAttempts bounds the start attempts during Restart.
	// Default: 1 (no retry)
	RestartAttempts int

	// PanicGracePeriod is how long the forced-exit path waits after
	// routing a panic through the boundary. Default: 1 second
	PanicGracePeriod time.Duration

	// Observer supplies logging, metrics and tracing. Default: no-op.
	Observer observe.Observer

	// Monitor is the resource monitor. Default: a fresh monitor with
	// default thresholds.
	Monitor *resource.Monitor

	// Checker is the health probe registry. Default: a fresh registry
	// with the default probe set.
	Checker *health.Registry

	// Boundary is the error boundary. Default: a boundary with the
	// default recovery catalog and no collaborators.
	Boundary *boundary.Boundary
}

// shutdownHandler is a registered pre-exit callback.
type shutdownHandler struct {
	name string
	fn   func(ctx context.Context) error
}

// Controller owns the server's lifecycle state machine. It orchestrates
// start, stop and restart, runs the periodic health-check tick and routes
// uncaught failures into the error boundary.
type Controller struct {
	config   Config
	logger   observe.Logger
	metrics  observe.Metrics
	tracer   observe.Tracer
	monitor  *resource.Monitor
	checker  *health.Registry
	boundary *boundary.Boundary

	mu        sync.Mutex
	state     State
	startedAt time.Time
	tickStop  chan struct{}
	handlers  []shutdownHandler
	stateSubs []func(from, to State)
}

// NewController creates a lifecycle controller. All collaborators are held
// as fields of the constructed instance, never as process-wide globals, so
// independent controllers can coexist.
func NewController(config Config) *Controller {
	if config.TickInterval <= 0 {
		config.TickInterval = 30 * time.Second
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 5 * time.Second
	}
	if config.RestartPause <= 0 {
		config.RestartPause = time.Second
	}
	if config.RestartAttempts <= 0 {
		config.RestartAttempts = 1
	}
	if config.PanicGracePeriod <= 0 {
		config.PanicGracePeriod = time.Second
	}

	obs := config.Observer
	if obs == nil {
		obs = observe.NewNopObserver()
	}
	logger := obs.Logger().WithComponent("lifecycle")

	metrics, err := observe.NewMetrics(obs.Meter())
	if err != nil {
		metrics = observe.NopMetrics()
	}

	monitor := config.Monitor
	if monitor == nil {
		monitor = resource.NewMonitor(resource.MonitorConfig{Logger: obs.Logger()})
	}
	checker := config.Checker
	if checker == nil {
		checker = health.NewRegistry(health.RegistryConfig{
			Logger:  obs.Logger(),
			Metrics: metrics,
		})
	}
	bnd := config.Boundary
	if bnd == nil {
		bnd = boundary.New(boundary.Config{
			Logger:     obs.Logger(),
			Metrics:    metrics,
			Strategies: boundary.Defaults(boundary.DefaultStrategyDeps{}),
		})
	}

	return &Controller{
		config:   config,
		logger:   logger,
		metrics:  metrics,
		tracer:   observe.NewTracer(obs.Tracer()),
		monitor:  monitor,
		checker:  checker,
		boundary: bnd,
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Uptime returns how long the server has been up since the last Start.
func (c *Controller) Uptime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.startedAt.IsZero() {
		return 0
	}
	return time.Since(c.startedAt)
}

// Boundary returns the error boundary so collaborators can route failures
// into it.
func (c *Controller) Boundary() *boundary.Boundary {
	return c.boundary
}

// OnStateChange registers a subscriber notified on every state transition.
// Subscribers run synchronously while the controller's lock is held and must
// not call back into the controller. A panicking subscriber never prevents
// the others from being notified.
func (c *Controller) OnStateChange(fn func(from, to State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateSubs = append(c.stateSubs, fn)
}

// OnError registers a subscriber on the error boundary.
func (c *Controller) OnError(fn func(err error, ectx boundary.ErrorContext)) {
	c.boundary.OnError(fn)
}

// RegisterShutdownHandler registers a callback run during Stop. Handlers
// run concurrently, each raced against ShutdownTimeout; a loser or failure
// is logged and ignored.
func (c *Controller) RegisterShutdownHandler(name string, fn func(ctx context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, shutdownHandler{name: name, fn: fn})
}

// Start validates startup preconditions and brings the server to running.
// It is legal only from the stopped and error states.
func (c *Controller) Start(ctx context.Context) error {
	ctx, span := c.tracer.StartSpan(ctx, "server.start")
	err := c.start(ctx)
	c.tracer.EndSpan(span, err)
	return err
}

func (c *Controller) start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateStopped && c.state != StateErrored {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, state)
	}
	c.transitionLocked(ctx, StateStarting)
	c.startedAt = time.Now()
	c.mu.Unlock()

	c.logger.Info(ctx, "server starting")

	c.monitor.Start()
	c.checker.Initialize(ctx)

	if err := c.validateStartup(ctx); err != nil {
		c.fail(ctx, err)
		return err
	}

	c.mu.Lock()
	c.tickStop = make(chan struct{})
	stopCh := c.tickStop
	c.transitionLocked(ctx, StateRunning)
	c.mu.Unlock()

	go c.tickLoop(stopCh)

	c.logger.Info(ctx, "server started",
		observe.Field{Key: "tick_interval", Value: c.config.TickInterval.String()},
	)
	return nil
}

// validateStartup checks that memory is within limits and that no critical
// probe is unhealthy after the warm check pass.
func (c *Controller) validateStartup(ctx context.Context) error {
	status := c.monitor.CheckLimits()
	if !status.MemoryOK {
		return fmt.Errorf("%w: memory over threshold", ErrStartupValidation)
	}

	if unhealthy := c.checker.CriticalUnhealthy(); len(unhealthy) > 0 {
		return fmt.Errorf("%w: critical probes unhealthy: %v", ErrStartupValidation, unhealthy)
	}
	return nil
}

// Stop brings the server to stopped through an orderly shutdown. Calling
// Stop on an already stopped server is a no-op; shutdown handlers are never
// invoked a second time. Stop while startup validation is still in progress
// returns ErrInvalidTransition.
func (c *Controller) Stop(ctx context.Context) error {
	ctx, span := c.tracer.StartSpan(ctx, "server.stop")
	err := c.stop(ctx)
	c.tracer.EndSpan(span, err)
	return err
}

func (c *Controller) stop(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateStopped || c.state == StateShuttingDown {
		c.mu.Unlock()
		return nil
	}
	if c.state == StateStarting {
		c.mu.Unlock()
		return fmt.Errorf("%w: stop from %s", ErrInvalidTransition, StateStarting)
	}
	c.transitionLocked(ctx, StateShuttingDown)
	if c.tickStop != nil {
		close(c.tickStop)
		c.tickStop = nil
	}
	handlers := make([]shutdownHandler, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	c.logger.Info(ctx, "server shutting down",
		observe.Field{Key: "handlers", Value: len(handlers)},
	)

	c.runShutdownHandlers(ctx, handlers)
	c.monitor.Cleanup(ctx)

	c.mu.Lock()
	c.transitionLocked(ctx, StateStopped)
	c.mu.Unlock()

	c.logger.Info(ctx, "server stopped")
	return nil
}

// runShutdownHandlers runs every handler concurrently, each raced against
// ShutdownTimeout. A handler that loses the race keeps running in the
// background with its result discarded; a failing or panicking handler is
// logged and ignored.
func (c *Controller) runShutdownHandlers(ctx context.Context, handlers []shutdownHandler) {
	var g errgroup.Group
	for _, h := range handlers {
		g.Go(func() error {
			err := resilience.ExecuteWithTimeout(ctx, c.config.ShutdownTimeout, func(ctx context.Context) (out error) {
				defer func() {
					if v := recover(); v != nil {
						out = fmt.Errorf("handler panicked: %v", v)
					}
				}()
				return h.fn(ctx)
			})
			if err != nil {
				c.logger.Warn(ctx, "shutdown handler did not complete",
					observe.Field{Key: "handler", Value: h.name},
					observe.Field{Key: "error", Value: err.Error()},
				)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Restart performs stop, a short pause, then start. Any failure moves the
// controller to the error state and is returned to the caller.
func (c *Controller) Restart(ctx context.Context) error {
	c.logger.Info(ctx, "server restarting")

	if err := c.Stop(ctx); err != nil {
		c.fail(ctx, err)
		return fmt.Errorf("restart: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.config.RestartPause):
	}

	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  c.config.RestartAttempts,
		InitialDelay: c.config.RestartPause,
		Strategy:     resilience.BackoffConstant,
		Jitter:       false,
	})
	if err := retry.Execute(ctx, c.Start); err != nil {
		c.fail(ctx, err)
		return fmt.Errorf("restart: %w", err)
	}
	return nil
}

// tickLoop drives the periodic health check until stopped.
func (c *Controller) tickLoop(stopCh chan struct{}) {
	ticker := time.NewTicker(c.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			c.performHealthCheck(context.Background())
		}
	}
}

// performHealthCheck is one tick: read resource limits, flip between
// running and degraded accordingly, then check every probe. At most one
// state transition happens per tick. A panic inside the tick is routed
// through the error boundary instead of crashing the loop.
func (c *Controller) performHealthCheck(ctx context.Context) {
	defer func() {
		if v := recover(); v != nil {
			c.handleFailure(ctx, boundary.E(boundary.KindService, "tick", fmt.Errorf("panic: %v", v)), boundary.ErrorContext{
				Operation: "tick",
				Severity:  boundary.SeverityHigh,
			})
		}
	}()

	ctx, span := c.tracer.StartSpan(ctx, "server.tick")
	start := time.Now()

	status := c.monitor.CheckLimits()

	c.mu.Lock()
	switch {
	case !status.OK() && c.state == StateRunning:
		c.transitionLocked(ctx, StateDegraded)
		c.mu.Unlock()
		c.logger.Warn(ctx, "server degraded",
			observe.Field{Key: "warnings", Value: status.Warnings},
		)
	case status.OK() && c.state == StateDegraded:
		c.transitionLocked(ctx, StateRunning)
		c.mu.Unlock()
		c.logger.Info(ctx, "server recovered from degraded state")
	default:
		c.mu.Unlock()
	}

	c.checker.CheckAll(ctx)

	for _, w := range status.Warnings {
		c.logger.Warn(ctx, "resource warning", observe.Field{Key: "warning", Value: w})
	}

	c.metrics.RecordTick(ctx, time.Since(start), c.State().String())
	c.tracer.EndSpan(span, nil)
}

// HandleError routes a failure through the error boundary. When no
// recovery strategy succeeds the escalation is logged; no further
// automated action is taken.
func (c *Controller) HandleError(ctx context.Context, err error, ectx boundary.ErrorContext) {
	c.handleFailure(ctx, err, ectx)
}

func (c *Controller) handleFailure(ctx context.Context, err error, ectx boundary.ErrorContext) {
	if handleErr := c.boundary.Handle(ctx, err, ectx); handleErr != nil {
		c.logger.Error(ctx, "error escalated: no recovery strategy succeeded",
			observe.Field{Key: "operation", Value: ectx.Operation},
			observe.Field{Key: "error", Value: err.Error()},
			observe.Field{Key: "recovery_error", Value: handleErr.Error()},
		)
	}
}

// fail moves the controller to the error state.
func (c *Controller) fail(ctx context.Context, err error) {
	c.logger.Error(ctx, "server entering error state",
		observe.Field{Key: "error", Value: err.Error()},
	)

	c.mu.Lock()
	c.transitionLocked(ctx, StateErrored)
	if c.tickStop != nil {
		close(c.tickStop)
		c.tickStop = nil
	}
	c.mu.Unlock()
}

// transitionLocked applies a state change. Callers hold c.mu. Subscribers
// run synchronously on the transitioning goroutine, each isolated from the
// others' panics.
func (c *Controller) transitionLocked(ctx context.Context, to State) {
	from := c.state
	if from == to {
		return
	}
	if !canTransition(from, to) {
		c.logger.Error(ctx, "illegal state transition requested",
			observe.Field{Key: "from", Value: from.String()},
			observe.Field{Key: "to", Value: to.String()},
		)
		return
	}

	c.state = to
	c.metrics.RecordStateChange(ctx, from.String(), to.String())
	c.logger.Debug(ctx, "state transition",
		observe.Field{Key: "from", Value: from.String()},
		observe.Field{Key: "to", Value: to.String()},
	)

	for _, fn := range c.stateSubs {
		func() {
			defer func() { _ = recover() }()
			fn(from, to)
		}()
	}
}
