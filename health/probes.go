package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Default probe names.
const (
	ProbeParser      = "parser"
	ProbeMemory      = "memory"
	ProbeConnections = "connections"
	ProbeFilesystem  = "filesystem"
)

// DefaultProbesConfig configures the probe set registered by
// Registry.Initialize. The parser and connection checks delegate to the
// language front end and the client transport, both outside this package;
// nil callbacks degrade to trivially healthy probes.
type DefaultProbesConfig struct {
	// Parse exercises the critical parsing path with a trivial input.
	Parse func(ctx context.Context) error

	// PingConnections verifies client connection liveness.
	PingConnections func(ctx context.Context) error

	// ScratchDir is where the filesystem probe performs its round-trip.
	// Default: os.TempDir()
	ScratchDir string

	// Memory configures the memory threshold probe.
	Memory MemoryProbeConfig
}

// MemoryProbeConfig configures the memory threshold probe.
type MemoryProbeConfig struct {
	// MaxUsageRatio is the heap-allocated/heap-reserved ratio above which
	// the probe reports unhealthy. Values outside (0,1) fall back to the
	// default. Default: 0.9
	MaxUsageRatio float64
}

func defaultProbes(cfg DefaultProbesConfig) []Probe {
	return []Probe{
		NewParserProbe(cfg.Parse),
		NewMemoryProbe(cfg.Memory),
		NewConnectionsProbe(cfg.PingConnections),
		NewFilesystemProbe(cfg.ScratchDir),
	}
}

// NewParserProbe creates the critical parser-availability probe.
func NewParserProbe(parse func(ctx context.Context) error) Probe {
	return NewProbeFunc(ProbeParser, true, func(ctx context.Context) Result {
		if parse == nil {
			return Result{Healthy: true}
		}
		if err := parse(ctx); err != nil {
			return Result{Err: fmt.Errorf("parser check: %w", err)}
		}
		return Result{Healthy: true}
	})
}

// NewMemoryProbe creates the critical memory threshold probe.
func NewMemoryProbe(cfg MemoryProbeConfig) Probe {
	ratio := cfg.MaxUsageRatio
	if ratio <= 0 || ratio >= 1 {
		ratio = 0.9
	}

	return NewProbeFunc(ProbeMemory, true, func(ctx context.Context) Result {
		var stats runtime.MemStats
		runtime.ReadMemStats(&stats)

		if stats.HeapSys == 0 {
			return Result{Healthy: true}
		}

		usage := float64(stats.HeapAlloc) / float64(stats.HeapSys)
		if usage >= ratio {
			return Result{Err: fmt.Errorf("heap usage %.1f%% exceeds %.1f%%", usage*100, ratio*100)}
		}
		return Result{Healthy: true}
	})
}

// NewConnectionsProbe creates the critical connection-liveness probe.
func NewConnectionsProbe(ping func(ctx context.Context) error) Probe {
	return NewProbeFunc(ProbeConnections, true, func(ctx context.Context) Result {
		if ping == nil {
			return Result{Healthy: true}
		}
		if err := ping(ctx); err != nil {
			return Result{Err: fmt.Errorf("connection check: %w", err)}
		}
		return Result{Healthy: true}
	})
}

// NewFilesystemProbe creates the non-critical filesystem round-trip probe.
// It writes, reads back and removes a small file under dir.
func NewFilesystemProbe(dir string) Probe {
	if dir == "" {
		dir = os.TempDir()
	}

	return NewProbeFunc(ProbeFilesystem, false, func(ctx context.Context) Result {
		path := filepath.Join(dir, fmt.Sprintf(".serverops-health-%d", os.Getpid()))
		payload := []byte("ok")

		if err := os.WriteFile(path, payload, 0o600); err != nil {
			return Result{Err: fmt.Errorf("filesystem write: %w", err)}
		}
		defer os.Remove(path)

		read, err := os.ReadFile(path)
		if err != nil {
			return Result{Err: fmt.Errorf("filesystem read: %w", err)}
		}
		if string(read) != string(payload) {
			return Result{Err: fmt.Errorf("filesystem round-trip mismatch")}
		}
		return Result{Healthy: true}
	})
}
