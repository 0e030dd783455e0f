package config

import (
	"github.com/jonwraymond/serverops/boundary"
	"github.com/jonwraymond/serverops/health"
	"github.com/jonwraymond/serverops/lifecycle"
	"github.com/jonwraymond/serverops/observe"
	"github.com/jonwraymond/serverops/resource"
)

// ObserveConfig maps the observability section onto observe.Config.
func (c *Config) ObserveConfig() observe.Config {
	return observe.Config{
		ServiceName: c.Observability.ServiceName,
		Version:     c.Observability.Version,
		Tracing: observe.TracingConfig{
			Enabled:   c.Observability.Tracing.Enabled,
			Exporter:  c.Observability.Tracing.Exporter,
			SamplePct: c.Observability.Tracing.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.Observability.Metrics.Enabled,
			Exporter: c.Observability.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: c.Observability.Logging.Enabled,
			Level:   c.Observability.Logging.Level,
		},
	}
}

// ResourceConfig maps the monitor section onto resource.MonitorConfig. The
// logger is supplied by the caller once the observer exists.
func (c *Config) ResourceConfig(logger observe.Logger) resource.MonitorConfig {
	return resource.MonitorConfig{
		SampleInterval:      c.Monitor.SampleInterval.Std(),
		HistorySize:         c.Monitor.HistorySize,
		MaintenanceInterval: c.Monitor.MaintenanceInterval.Std(),
		Thresholds: resource.Thresholds{
			MaxMemoryBytes: c.Monitor.Thresholds.MaxMemoryBytes,
			MaxCPUPercent:  c.Monitor.Thresholds.MaxCPUPercent,
			MaxFileHandles: c.Monitor.Thresholds.MaxFileHandles,
			MaxConnections: c.Monitor.Thresholds.MaxConnections,
		},
		Logger: logger,
	}
}

// RegistryConfig maps the health section onto health.RegistryConfig.
func (c *Config) RegistryConfig(logger observe.Logger, metrics observe.Metrics) health.RegistryConfig {
	return health.RegistryConfig{
		CheckTimeout:  c.Health.CheckTimeout.Std(),
		MaxErrorCount: c.Health.MaxErrorCount,
		Logger:        logger,
		Metrics:       metrics,
		Defaults: health.DefaultProbesConfig{
			ScratchDir: c.Health.ScratchDir,
			Memory: health.MemoryProbeConfig{
				MaxUsageRatio: c.Health.MemoryMaxUsageRatio,
			},
		},
	}
}

// BoundaryConfig maps the boundary section onto boundary.Config. The caller
// supplies the recovery catalog and collaborators.
func (c *Config) BoundaryConfig(logger observe.Logger, metrics observe.Metrics) boundary.Config {
	return boundary.Config{
		MaxErrorRate: c.Boundary.MaxErrorRate,
		Window:       c.Boundary.Window.Std(),
		Logger:       logger,
		Metrics:      metrics,
	}
}

// ControllerConfig maps the server section onto lifecycle.Config. The
// collaborator fields are filled in by the caller.
func (c *Config) ControllerConfig() lifecycle.Config {
	return lifecycle.Config{
		TickInterval:     c.Server.TickInterval.Std(),
		ShutdownTimeout:  c.Server.ShutdownTimeout.Std(),
		RestartPause:     c.Server.RestartPause.Std(),
		RestartAttempts:  c.Server.RestartAttempts,
		PanicGracePeriod: c.Server.PanicGracePeriod.Std(),
	}
}

// TokenVerifier builds the bearer token verifier for the HTTP endpoints, or
// nil when no key is configured.
func (c *Config) TokenVerifier() *lifecycle.TokenVerifier {
	if c.HTTP.Auth.Key == "" {
		return nil
	}
	return lifecycle.NewTokenVerifier(lifecycle.VerifierConfig{
		Key:      []byte(c.HTTP.Auth.Key),
		Issuer:   c.HTTP.Auth.Issuer,
		Audience: c.HTTP.Auth.Audience,
	})
}
