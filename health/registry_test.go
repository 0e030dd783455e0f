package health

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/serverops/observe"
)

func newTestRegistry(cfg RegistryConfig) *Registry {
	if cfg.CheckTimeout == 0 {
		cfg.CheckTimeout = 100 * time.Millisecond
	}
	return NewRegistry(cfg)
}

func healthyProbe(name string) Probe {
	return NewProbeFunc(name, false, func(ctx context.Context) Result {
		return Result{Healthy: true}
	})
}

func failingProbe(name string, err error) Probe {
	return NewProbeFunc(name, false, func(ctx context.Context) Result {
		return Result{Err: err}
	})
}

func TestRegistry_RegisterUnregister(t *testing.T) {
	r := newTestRegistry(RegistryConfig{})

	r.Register(healthyProbe("a"))
	r.Register(healthyProbe("b"))

	names := r.ProbeNames()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("ProbeNames() = %v, want [a b]", names)
	}

	if _, ok := r.Record("a"); !ok {
		t.Error("Record(a) missing after Register")
	}

	r.Unregister("a")
	if _, ok := r.Record("a"); ok {
		t.Error("Record(a) present after Unregister")
	}
	if len(r.ProbeNames()) != 1 {
		t.Errorf("ProbeNames() = %v, want [b]", r.ProbeNames())
	}
}

func TestRegistry_CheckProbe_NotFound(t *testing.T) {
	r := newTestRegistry(RegistryConfig{})

	_, err := r.CheckProbe(context.Background(), "absent")
	if !errors.Is(err, ErrProbeNotFound) {
		t.Errorf("CheckProbe() error = %v, want ErrProbeNotFound", err)
	}
}

func TestRegistry_CheckProbe_HealthyResetsErrorCount(t *testing.T) {
	r := newTestRegistry(RegistryConfig{})
	ctx := context.Background()

	fail := true
	r.Register(NewProbeFunc("flaky", false, func(ctx context.Context) Result {
		if fail {
			return Result{Err: errors.New("down")}
		}
		return Result{Healthy: true}
	}))

	for i := 0; i < 3; i++ {
		if _, err := r.CheckProbe(ctx, "flaky"); err != nil {
			t.Fatalf("CheckProbe() error = %v", err)
		}
	}

	rec, _ := r.Record("flaky")
	if rec.ErrorCount != 3 {
		t.Errorf("ErrorCount = %d, want 3", rec.ErrorCount)
	}
	if rec.Status != StatusDegraded {
		t.Errorf("Status = %v, want degraded", rec.Status)
	}

	fail = false
	if _, err := r.CheckProbe(ctx, "flaky"); err != nil {
		t.Fatalf("CheckProbe() error = %v", err)
	}
	rec, _ = r.Record("flaky")
	if rec.ErrorCount != 0 {
		t.Errorf("ErrorCount = %d after healthy check, want 0", rec.ErrorCount)
	}
	if rec.Status != StatusHealthy {
		t.Errorf("Status = %v, want healthy", rec.Status)
	}
}

func TestRegistry_CheckProbe_EscalatesToUnhealthy(t *testing.T) {
	r := newTestRegistry(RegistryConfig{MaxErrorCount: 3})
	ctx := context.Background()

	r.Register(failingProbe("down", errors.New("down")))

	for i := 0; i < 2; i++ {
		_, _ = r.CheckProbe(ctx, "down")
	}
	rec, _ := r.Record("down")
	if rec.Status != StatusDegraded {
		t.Errorf("Status after 2 failures = %v, want degraded", rec.Status)
	}

	_, _ = r.CheckProbe(ctx, "down")
	rec, _ = r.Record("down")
	if rec.Status != StatusUnhealthy {
		t.Errorf("Status after 3 failures = %v, want unhealthy", rec.Status)
	}
}

func TestRegistry_CheckProbe_TimeoutFidelity(t *testing.T) {
	timeout := 50 * time.Millisecond
	r := newTestRegistry(RegistryConfig{CheckTimeout: timeout})
	ctx := context.Background()

	block := make(chan struct{})
	defer close(block)
	r.Register(NewProbeFunc("stuck", false, func(ctx context.Context) Result {
		<-block // never resolves on its own
		return Result{Healthy: true}
	}))

	start := time.Now()
	rec, err := r.CheckProbe(ctx, "stuck")
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("CheckProbe() error = %v", err)
	}
	if elapsed < timeout {
		t.Errorf("returned after %v, before the %v timeout", elapsed, timeout)
	}
	if elapsed > timeout+time.Second {
		t.Errorf("returned after %v, far beyond the %v timeout", elapsed, timeout)
	}
	if rec.Status != StatusDegraded {
		t.Errorf("Status = %v, want degraded after first timeout", rec.Status)
	}
	if rec.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", rec.ErrorCount)
	}
	if rec.ResponseTime != timeout {
		t.Errorf("ResponseTime = %v, want capped at %v", rec.ResponseTime, timeout)
	}
}

func TestRegistry_CheckProbe_TimeoutCarriesSentinel(t *testing.T) {
	var buf bytes.Buffer
	r := NewRegistry(RegistryConfig{
		CheckTimeout: 20 * time.Millisecond,
		Logger:       observe.NewLoggerWithWriter("warn", &buf),
	})

	block := make(chan struct{})
	defer close(block)
	r.Register(NewProbeFunc("stuck", false, func(ctx context.Context) Result {
		<-block
		return Result{Healthy: true}
	}))

	if _, err := r.CheckProbe(context.Background(), "stuck"); err != nil {
		t.Fatalf("CheckProbe() error = %v", err)
	}
	if !strings.Contains(buf.String(), ErrCheckTimeout.Error()) {
		t.Errorf("timeout log %q does not carry %q", buf.String(), ErrCheckTimeout.Error())
	}
}

func TestRegistry_CheckAll_PanickingProbePinned(t *testing.T) {
	r := newTestRegistry(RegistryConfig{MaxErrorCount: 5})
	ctx := context.Background()

	r.Register(healthyProbe("ok-1"))
	r.Register(NewProbeFunc("boom", false, func(ctx context.Context) Result {
		panic("probe exploded")
	}))
	r.Register(healthyProbe("ok-2"))

	records := r.CheckAll(ctx)

	if len(records) != 3 {
		t.Fatalf("CheckAll() returned %d records, want 3", len(records))
	}

	boom := records["boom"]
	if boom.Status != StatusUnhealthy {
		t.Errorf("boom Status = %v, want unhealthy", boom.Status)
	}
	if boom.ErrorCount != 5 {
		t.Errorf("boom ErrorCount = %d, want pinned at 5", boom.ErrorCount)
	}
	if boom.ResponseTime != r.config.CheckTimeout {
		t.Errorf("boom ResponseTime = %v, want %v", boom.ResponseTime, r.config.CheckTimeout)
	}

	for _, name := range []string{"ok-1", "ok-2"} {
		if records[name].Status != StatusHealthy {
			t.Errorf("%s Status = %v, want healthy", name, records[name].Status)
		}
	}
}

func TestRegistry_OverallStatus(t *testing.T) {
	r := newTestRegistry(RegistryConfig{MaxErrorCount: 1})
	ctx := context.Background()

	r.Register(healthyProbe("ok"))
	r.CheckAll(ctx)
	if got := r.OverallStatus(); got != StatusHealthy {
		t.Errorf("OverallStatus() = %v, want healthy", got)
	}

	r.Register(failingProbe("bad", errors.New("down")))
	r.CheckAll(ctx)
	if got := r.OverallStatus(); got != StatusUnhealthy {
		t.Errorf("OverallStatus() = %v, want unhealthy", got)
	}
}

func TestRegistry_CriticalUnhealthy(t *testing.T) {
	r := newTestRegistry(RegistryConfig{MaxErrorCount: 1})
	ctx := context.Background()

	r.Register(NewProbeFunc("core", true, func(ctx context.Context) Result {
		return Result{Err: errors.New("down")}
	}))
	r.Register(failingProbe("aux", errors.New("down")))

	r.CheckAll(ctx)

	names := r.CriticalUnhealthy()
	if len(names) != 1 || names[0] != "core" {
		t.Errorf("CriticalUnhealthy() = %v, want [core]", names)
	}
}

func TestRegistry_Initialize_RegistersDefaultsAndWarms(t *testing.T) {
	r := newTestRegistry(RegistryConfig{})

	r.Initialize(context.Background())

	for _, name := range []string{ProbeParser, ProbeMemory, ProbeConnections, ProbeFilesystem} {
		rec, ok := r.Record(name)
		if !ok {
			t.Errorf("default probe %q not registered", name)
			continue
		}
		if rec.LastCheck.IsZero() {
			t.Errorf("probe %q not warmed by Initialize", name)
		}
	}
}

func TestRegistry_Initialize_KeepsExistingProbe(t *testing.T) {
	r := newTestRegistry(RegistryConfig{})

	custom := NewProbeFunc(ProbeParser, true, func(ctx context.Context) Result {
		return Result{Healthy: true}
	})
	r.Register(custom)
	r.Initialize(context.Background())

	names := 0
	for _, n := range r.ProbeNames() {
		if n == ProbeParser {
			names++
		}
	}
	if names != 1 {
		t.Errorf("parser probe registered %d times, want 1", names)
	}
}
