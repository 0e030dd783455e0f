package config

import (
	"context"
	"testing"
	"time"

	"github.com/jonwraymond/serverops/boundary"
	"github.com/jonwraymond/serverops/health"
	"github.com/jonwraymond/serverops/lifecycle"
	"github.com/jonwraymond/serverops/observe"
	"github.com/jonwraymond/serverops/resource"
)

func TestBuildSections(t *testing.T) {
	t.Setenv("SERVEROPS_TEST_KEY", "hunter2")

	cfg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	oc := cfg.ObserveConfig()
	if oc.ServiceName != "serverops" {
		t.Errorf("ObserveConfig().ServiceName = %q, want 'serverops'", oc.ServiceName)
	}
	if !oc.Logging.Enabled || oc.Logging.Level != "debug" {
		t.Errorf("ObserveConfig().Logging = %+v, want enabled at debug", oc.Logging)
	}

	rc := cfg.ResourceConfig(observe.NopLogger())
	if rc.SampleInterval != 5*time.Second {
		t.Errorf("ResourceConfig().SampleInterval = %v, want 5s", rc.SampleInterval)
	}
	if rc.Thresholds.MaxMemoryBytes != 1073741824 {
		t.Errorf("ResourceConfig().Thresholds.MaxMemoryBytes = %d, want 1073741824", rc.Thresholds.MaxMemoryBytes)
	}
	if rc.Thresholds.MaxConnections != 250 {
		t.Errorf("ResourceConfig().Thresholds.MaxConnections = %d, want 250", rc.Thresholds.MaxConnections)
	}

	hc := cfg.RegistryConfig(observe.NopLogger(), observe.NopMetrics())
	if hc.CheckTimeout != 2*time.Second {
		t.Errorf("RegistryConfig().CheckTimeout = %v, want 2s", hc.CheckTimeout)
	}
	if hc.MaxErrorCount != 3 {
		t.Errorf("RegistryConfig().MaxErrorCount = %d, want 3", hc.MaxErrorCount)
	}
	if hc.Defaults.ScratchDir != "/tmp/serverops" {
		t.Errorf("RegistryConfig().Defaults.ScratchDir = %q, want '/tmp/serverops'", hc.Defaults.ScratchDir)
	}

	bc := cfg.BoundaryConfig(observe.NopLogger(), observe.NopMetrics())
	if bc.MaxErrorRate != 20 {
		t.Errorf("BoundaryConfig().MaxErrorRate = %d, want 20", bc.MaxErrorRate)
	}
	if bc.Window != 30*time.Second {
		t.Errorf("BoundaryConfig().Window = %v, want 30s", bc.Window)
	}

	cc := cfg.ControllerConfig()
	if cc.TickInterval != 15*time.Second {
		t.Errorf("ControllerConfig().TickInterval = %v, want 15s", cc.TickInterval)
	}
	if cc.RestartAttempts != 3 {
		t.Errorf("ControllerConfig().RestartAttempts = %d, want 3", cc.RestartAttempts)
	}
}

// TestBuildController wires a full controller from parsed configuration the
// way a consuming server would.
func TestBuildController(t *testing.T) {
	t.Setenv("SERVEROPS_TEST_KEY", "hunter2")

	cfg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	cfg.Health.ScratchDir = t.TempDir()

	obs := observe.NewNopObserver()
	metrics, err := observe.NewMetrics(obs.Meter())
	if err != nil {
		t.Fatalf("NewMetrics() error: %v", err)
	}

	bcfg := cfg.BoundaryConfig(obs.Logger(), metrics)
	bcfg.Strategies = boundary.Defaults(boundary.DefaultStrategyDeps{})

	ccfg := cfg.ControllerConfig()
	ccfg.Observer = obs
	ccfg.Monitor = resource.NewMonitor(cfg.ResourceConfig(obs.Logger()))
	ccfg.Checker = health.NewRegistry(cfg.RegistryConfig(obs.Logger(), metrics))
	ccfg.Boundary = boundary.New(bcfg)

	c := lifecycle.NewController(ccfg)
	ctx := context.Background()

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if got := c.State(); got != lifecycle.StateRunning {
		t.Errorf("State() = %v, want %v", got, lifecycle.StateRunning)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if got := c.State(); got != lifecycle.StateStopped {
		t.Errorf("State() = %v, want %v", got, lifecycle.StateStopped)
	}
}
