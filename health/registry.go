package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/serverops/observe"
)

// RegistryConfig configures the probe registry.
type RegistryConfig struct {
	// CheckTimeout is the deadline for a single probe check.
	// Default: 5 seconds
	CheckTimeout time.Duration

	// MaxErrorCount is the consecutive-failure count at which a probe's
	// status becomes unhealthy rather than degraded.
	// Default: 5
	MaxErrorCount int

	// Logger receives probe failure logs. Default: a no-op logger.
	Logger observe.Logger

	// Metrics receives per-probe check telemetry. Default: no-op.
	Metrics observe.Metrics

	// Defaults configures the probe set registered by Initialize.
	Defaults DefaultProbesConfig
}

// Registry holds named health probes and their per-probe health records.
type Registry struct {
	config RegistryConfig

	mu      sync.RWMutex
	probes  map[string]Probe
	order   []string // registration order
	records map[string]*ServiceHealth
}

// NewRegistry creates a new probe registry.
func NewRegistry(config RegistryConfig) *Registry {
	if config.CheckTimeout <= 0 {
		config.CheckTimeout = 5 * time.Second
	}
	if config.MaxErrorCount <= 0 {
		config.MaxErrorCount = 5
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	} else {
		config.Logger = config.Logger.WithComponent("health")
	}
	if config.Metrics == nil {
		config.Metrics = observe.NopMetrics()
	}

	return &Registry{
		config:  config,
		probes:  make(map[string]Probe),
		order:   make([]string, 0),
		records: make(map[string]*ServiceHealth),
	}
}

// Register adds a probe and creates its health record.
func (r *Registry) Register(probe Probe) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := probe.Name()
	if _, exists := r.probes[name]; !exists {
		r.order = append(r.order, name)
	}
	r.probes[name] = probe
	r.records[name] = &ServiceHealth{
		Name:     name,
		Status:   StatusHealthy,
		Critical: probe.Critical(),
	}
}

// Unregister removes a probe and its health record.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.probes, name)
	delete(r.records, name)

	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// ProbeNames returns the names of all registered probes in registration order.
func (r *Registry) ProbeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Initialize registers the default probe set and performs one warm check
// pass so health data is populated before the controller reports running.
func (r *Registry) Initialize(ctx context.Context) {
	for _, probe := range defaultProbes(r.config.Defaults) {
		r.mu.RLock()
		_, exists := r.probes[probe.Name()]
		r.mu.RUnlock()
		if !exists {
			r.Register(probe)
		}
	}

	r.CheckAll(ctx)
}

// probeOutcome carries a probe result across the timeout race.
type probeOutcome struct {
	result   Result
	panicked bool
	panicVal any
}

// CheckProbe runs the named probe raced against CheckTimeout and updates its
// health record. Returns ErrProbeNotFound for an unknown name.
func (r *Registry) CheckProbe(ctx context.Context, name string) (ServiceHealth, error) {
	r.mu.RLock()
	probe, ok := r.probes[name]
	r.mu.RUnlock()

	if !ok {
		return ServiceHealth{}, ErrProbeNotFound
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.config.CheckTimeout)
	defer cancel()

	outcomeCh := make(chan probeOutcome, 1)
	go func() {
		defer func() {
			if v := recover(); v != nil {
				outcomeCh <- probeOutcome{panicked: true, panicVal: v}
			}
		}()
		outcomeCh <- probeOutcome{result: probe.Check(ctx)}
	}()

	var record ServiceHealth
	select {
	case outcome := <-outcomeCh:
		elapsed := time.Since(start)
		if outcome.panicked {
			r.config.Logger.Error(ctx, "health probe panicked",
				observe.Field{Key: "probe", Value: name},
				observe.Field{Key: "panic", Value: fmt.Sprint(outcome.panicVal)},
			)
			record = r.pinUnhealthy(name)
		} else {
			record = r.applyResult(name, outcome.result, elapsed)
		}
	case <-ctx.Done():
		// The probe lost the race. It may still be running; its result
		// is discarded when it eventually arrives.
		r.config.Logger.Warn(context.WithoutCancel(ctx), "health probe timed out",
			observe.Field{Key: "probe", Value: name},
			observe.Field{Key: "error", Value: ErrCheckTimeout.Error()},
			observe.Field{Key: "timeout", Value: r.config.CheckTimeout.String()},
		)
		record = r.applyFailure(name, r.config.CheckTimeout)
	}

	r.config.Metrics.RecordProbe(context.WithoutCancel(ctx), name, record.Status.String(), record.ResponseTime)
	return record, nil
}

// CheckAll runs every registered probe concurrently. A failing or panicking
// probe never aborts the batch; exactly one record per probe is returned.
func (r *Registry) CheckAll(ctx context.Context) map[string]ServiceHealth {
	r.mu.RLock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	r.mu.RUnlock()

	var g errgroup.Group
	for _, name := range names {
		g.Go(func() error {
			// CheckProbe contains the probe's own failures; the only
			// error here is an unregistered name racing Unregister.
			_, _ = r.CheckProbe(ctx, name)
			return nil
		})
	}
	_ = g.Wait()

	return r.Snapshot()
}

// Snapshot returns a copy of every health record.
func (r *Registry) Snapshot() map[string]ServiceHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]ServiceHealth, len(r.records))
	for name, rec := range r.records {
		out[name] = *rec
	}
	return out
}

// Record returns the health record for a single probe.
func (r *Registry) Record(name string) (ServiceHealth, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[name]
	if !ok {
		return ServiceHealth{}, false
	}
	return *rec, true
}

// CriticalUnhealthy returns the names of critical probes whose status is
// unhealthy. Used by the controller's startup validation.
func (r *Registry) CriticalUnhealthy() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for _, name := range r.order {
		rec := r.records[name]
		if rec != nil && rec.Critical && rec.Status == StatusUnhealthy {
			names = append(names, name)
		}
	}
	return names
}

// OverallStatus computes the aggregate status across all records.
// Unhealthy dominates degraded, which dominates healthy.
func (r *Registry) OverallStatus() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := StatusHealthy
	for _, rec := range r.records {
		switch rec.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

// applyResult folds a completed check into the probe's record.
// A healthy result resets the error count; a failed result increments it
// and the status escalates to unhealthy once the count reaches the limit.
func (r *Registry) applyResult(name string, result Result, elapsed time.Duration) ServiceHealth {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[name]
	if !ok {
		return ServiceHealth{}
	}

	rec.LastCheck = time.Now()
	rec.ResponseTime = elapsed

	switch {
	case result.Healthy:
		rec.ErrorCount = 0
		rec.Status = StatusHealthy
	case result.Err != nil:
		rec.ErrorCount++
		rec.Status = r.statusForCountLocked(rec.ErrorCount)
	default:
		// Unhealthy result without an error does not advance the
		// sticky count; status follows the running count.
		rec.Status = r.statusForCountLocked(rec.ErrorCount)
		if rec.Status == StatusHealthy {
			rec.Status = StatusDegraded
		}
	}

	return *rec
}

// applyFailure records a timed-out check.
func (r *Registry) applyFailure(name string, elapsed time.Duration) ServiceHealth {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[name]
	if !ok {
		return ServiceHealth{}
	}

	rec.LastCheck = time.Now()
	rec.ResponseTime = elapsed
	rec.ErrorCount++
	rec.Status = r.statusForCountLocked(rec.ErrorCount)
	return *rec
}

// pinUnhealthy synthesizes the record for a probe whose check escaped its
// own error handling: the error count is pinned at the limit and the
// response time at the check timeout.
func (r *Registry) pinUnhealthy(name string) ServiceHealth {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[name]
	if !ok {
		return ServiceHealth{}
	}

	rec.LastCheck = time.Now()
	rec.ResponseTime = r.config.CheckTimeout
	rec.ErrorCount = r.config.MaxErrorCount
	rec.Status = StatusUnhealthy
	return *rec
}

func (r *Registry) statusForCountLocked(count int) Status {
	switch {
	case count == 0:
		return StatusHealthy
	case count >= r.config.MaxErrorCount:
		return StatusUnhealthy
	default:
		return StatusDegraded
	}
}
