package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings such as
// "30s" or "5m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the supervisor's file configuration. Zero values defer to each
// component's own defaults.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Monitor       MonitorConfig       `yaml:"monitor"`
	Health        HealthConfig        `yaml:"health"`
	Boundary      BoundaryConfig      `yaml:"boundary"`
	HTTP          HTTPConfig          `yaml:"http"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig configures the lifecycle controller.
type ServerConfig struct {
	TickInterval     Duration `yaml:"tick_interval"`
	ShutdownTimeout  Duration `yaml:"shutdown_timeout"`
	RestartPause     Duration `yaml:"restart_pause"`
	RestartAttempts  int      `yaml:"restart_attempts"`
	PanicGracePeriod Duration `yaml:"panic_grace_period"`
}

// MonitorConfig configures the resource monitor.
type MonitorConfig struct {
	SampleInterval      Duration         `yaml:"sample_interval"`
	HistorySize         int              `yaml:"history_size"`
	MaintenanceInterval Duration         `yaml:"maintenance_interval"`
	Thresholds          ThresholdsConfig `yaml:"thresholds"`
}

// ThresholdsConfig holds the resource limits.
type ThresholdsConfig struct {
	MaxMemoryBytes uint64  `yaml:"max_memory_bytes"`
	MaxCPUPercent  float64 `yaml:"max_cpu_percent"`
	MaxFileHandles int     `yaml:"max_file_handles"`
	MaxConnections int     `yaml:"max_connections"`
}

// HealthConfig configures the health probe registry.
type HealthConfig struct {
	CheckTimeout        Duration `yaml:"check_timeout"`
	MaxErrorCount       int      `yaml:"max_error_count"`
	ScratchDir          string   `yaml:"scratch_dir"`
	MemoryMaxUsageRatio float64  `yaml:"memory_max_usage_ratio"`
}

// BoundaryConfig configures the error boundary.
type BoundaryConfig struct {
	MaxErrorRate int      `yaml:"max_error_rate"`
	Window       Duration `yaml:"window"`
}

// HTTPConfig configures the health HTTP endpoints.
type HTTPConfig struct {
	Addr string     `yaml:"addr"`
	Auth AuthConfig `yaml:"auth"`
}

// AuthConfig configures bearer token verification. An empty key leaves the
// endpoints unauthenticated.
type AuthConfig struct {
	Key      string `yaml:"key"`
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
}

// ObservabilityConfig configures logging, tracing and metrics.
type ObservabilityConfig struct {
	ServiceName string        `yaml:"service_name"`
	Version     string        `yaml:"version"`
	Tracing     TracingConfig `yaml:"tracing"`
	Metrics     MetricsConfig `yaml:"metrics"`
	Logging     LoggingConfig `yaml:"logging"`
}

// TracingConfig configures trace export.
type TracingConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Exporter  string  `yaml:"exporter"`
	SamplePct float64 `yaml:"sample_pct"`
}

// MetricsConfig configures metric export.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
}
