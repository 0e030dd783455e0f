package config

import "fmt"

// Validate checks configuration correctness. It performs declarative
// validation only and never mutates the configuration; zero values are
// legal and defer to component defaults.
func Validate(cfg *Config) error {
	durations := []struct {
		name  string
		value Duration
	}{
		{"server.tick_interval", cfg.Server.TickInterval},
		{"server.shutdown_timeout", cfg.Server.ShutdownTimeout},
		{"server.restart_pause", cfg.Server.RestartPause},
		{"server.panic_grace_period", cfg.Server.PanicGracePeriod},
		{"monitor.sample_interval", cfg.Monitor.SampleInterval},
		{"monitor.maintenance_interval", cfg.Monitor.MaintenanceInterval},
		{"health.check_timeout", cfg.Health.CheckTimeout},
		{"boundary.window", cfg.Boundary.Window},
	}
	for _, d := range durations {
		if d.value < 0 {
			return fmt.Errorf("%s must not be negative", d.name)
		}
	}

	counts := []struct {
		name  string
		value int
	}{
		{"server.restart_attempts", cfg.Server.RestartAttempts},
		{"monitor.history_size", cfg.Monitor.HistorySize},
		{"monitor.thresholds.max_file_handles", cfg.Monitor.Thresholds.MaxFileHandles},
		{"monitor.thresholds.max_connections", cfg.Monitor.Thresholds.MaxConnections},
		{"health.max_error_count", cfg.Health.MaxErrorCount},
		{"boundary.max_error_rate", cfg.Boundary.MaxErrorRate},
	}
	for _, c := range counts {
		if c.value < 0 {
			return fmt.Errorf("%s must not be negative", c.name)
		}
	}

	if cfg.Monitor.Thresholds.MaxCPUPercent < 0 {
		return fmt.Errorf("monitor.thresholds.max_cpu_percent must not be negative")
	}
	if r := cfg.Health.MemoryMaxUsageRatio; r != 0 && (r < 0 || r >= 1) {
		return fmt.Errorf("health.memory_max_usage_ratio must be in (0, 1), got %v", r)
	}
	if cfg.Observability.Tracing.SamplePct < 0 || cfg.Observability.Tracing.SamplePct > 1 {
		return fmt.Errorf("observability.tracing.sample_pct must be in [0, 1], got %v",
			cfg.Observability.Tracing.SamplePct)
	}

	if cfg.HTTP.Auth.Key == "" && (cfg.HTTP.Auth.Issuer != "" || cfg.HTTP.Auth.Audience != "") {
		return fmt.Errorf("http.auth.issuer and http.auth.audience require http.auth.key")
	}

	return nil
}
