package resource

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewMonitor_Defaults(t *testing.T) {
	m := NewMonitor(MonitorConfig{})

	if m.config.SampleInterval != 10*time.Second {
		t.Errorf("SampleInterval = %v, want 10s", m.config.SampleInterval)
	}
	if m.config.HistorySize != 60 {
		t.Errorf("HistorySize = %d, want 60", m.config.HistorySize)
	}
	if m.thresholds.MaxMemoryBytes != 512*1024*1024 {
		t.Errorf("MaxMemoryBytes = %d, want 512 MiB", m.thresholds.MaxMemoryBytes)
	}
	if m.thresholds.MaxCPUPercent != 80 {
		t.Errorf("MaxCPUPercent = %f, want 80", m.thresholds.MaxCPUPercent)
	}
}

func TestMonitor_CheckLimits_DefaultsOK(t *testing.T) {
	m := NewMonitor(MonitorConfig{})

	status := m.CheckLimits()
	if !status.FileHandlesOK || !status.ConnectionsOK {
		t.Errorf("counters should be OK with no tracked use: %+v", status)
	}
	if !status.CPUOK {
		t.Errorf("CPU should be OK before any load: %+v", status)
	}
}

func TestMonitor_CheckLimits_TinyMemoryThreshold(t *testing.T) {
	m := NewMonitor(MonitorConfig{
		Thresholds: Thresholds{MaxMemoryBytes: 1},
	})

	status := m.CheckLimits()
	if status.MemoryOK {
		t.Error("MemoryOK = true with 1-byte threshold, want false")
	}

	found := false
	for _, w := range status.Warnings {
		if strings.Contains(w, "Memory usage high") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want one mentioning 'Memory usage high'", status.Warnings)
	}
}

func TestMonitor_TrackCounters_ClampedAtZero(t *testing.T) {
	m := NewMonitor(MonitorConfig{})

	m.TrackFileHandle(+2)
	m.TrackFileHandle(-5)
	if got := m.FileHandles(); got != 0 {
		t.Errorf("FileHandles() = %d, want clamped 0", got)
	}

	m.TrackConnection(+3)
	m.TrackConnection(-1)
	if got := m.Connections(); got != 2 {
		t.Errorf("Connections() = %d, want 2", got)
	}
}

func TestMonitor_CheckLimits_ConnectionThreshold(t *testing.T) {
	m := NewMonitor(MonitorConfig{
		Thresholds: Thresholds{MaxConnections: 2},
	})

	for i := 0; i < 3; i++ {
		m.TrackConnection(+1)
	}

	status := m.CheckLimits()
	if status.ConnectionsOK {
		t.Error("ConnectionsOK = true above threshold, want false")
	}
}

func TestMonitor_LeakHeuristic(t *testing.T) {
	m := NewMonitor(MonitorConfig{HistorySize: 60})

	// Ten flat samples then five at 1.6x: mean(last 5) / mean(samples
	// 10-15 back) = 1.6, above the 1.5 trigger.
	for i := 0; i < 10; i++ {
		m.appendMemorySample(MemoryInfo{HeapUsed: 100_000_000, RSS: 1})
	}
	for i := 0; i < 5; i++ {
		m.appendMemorySample(MemoryInfo{HeapUsed: 160_000_000, RSS: 1})
	}

	status := m.CheckLimits()

	var leak string
	for _, w := range status.Warnings {
		if strings.Contains(strings.ToLower(w), "potential memory leak") {
			leak = w
		}
	}
	if leak == "" {
		t.Fatalf("warnings = %v, want a potential memory leak warning", status.Warnings)
	}
	if !strings.Contains(leak, "60%") {
		t.Errorf("leak warning = %q, want ~60%% increase reported", leak)
	}
}

func TestMonitor_LeakHeuristic_NeedsHistory(t *testing.T) {
	m := NewMonitor(MonitorConfig{})

	// Growth over too few samples must not trigger.
	for i := 0; i < 5; i++ {
		m.appendMemorySample(MemoryInfo{HeapUsed: uint64(100_000_000 * (i + 1)), RSS: 1})
	}

	status := m.CheckLimits()
	for _, w := range status.Warnings {
		if strings.Contains(strings.ToLower(w), "potential memory leak") {
			t.Errorf("leak warning with %d samples: %q", 5, w)
		}
	}
}

func TestMonitor_HistoryBounded(t *testing.T) {
	m := NewMonitor(MonitorConfig{HistorySize: 10})

	for i := 0; i < 50; i++ {
		m.appendMemorySample(MemoryInfo{HeapUsed: 1})
	}

	mem, _ := m.historyLengths()
	if mem > 20 {
		t.Errorf("memory history length = %d, want <= 2x history size (20)", mem)
	}
}

func TestMonitor_Maintain_TrimsToNominalSize(t *testing.T) {
	m := NewMonitor(MonitorConfig{HistorySize: 10})

	for i := 0; i < 15; i++ {
		m.appendMemorySample(MemoryInfo{HeapUsed: 1})
	}

	m.maintain()

	mem, _ := m.historyLengths()
	if mem != 10 {
		t.Errorf("memory history length after maintain = %d, want 10", mem)
	}
}

func TestMonitor_Cleanup_RunsTasksBestEffort(t *testing.T) {
	m := NewMonitor(MonitorConfig{})

	var ran []string
	m.AddCleanupTask("failing", func(ctx context.Context) error {
		ran = append(ran, "failing")
		return errors.New("flush failed")
	})
	m.AddCleanupTask("panicking", func(ctx context.Context) error {
		ran = append(ran, "panicking")
		panic("cleanup exploded")
	})
	m.AddCleanupTask("ok", func(ctx context.Context) error {
		ran = append(ran, "ok")
		return nil
	})

	m.Cleanup(context.Background()) // must not panic or stop early

	if len(ran) != 3 {
		t.Errorf("ran = %v, want all three tasks", ran)
	}
}

func TestMonitor_StartCleanup_StopsSampling(t *testing.T) {
	m := NewMonitor(MonitorConfig{SampleInterval: 5 * time.Millisecond})

	m.Start()
	m.Start() // idempotent

	time.Sleep(25 * time.Millisecond)
	memBefore, _ := m.historyLengths()
	if memBefore < 2 {
		t.Fatalf("history length = %d, want samples accumulating", memBefore)
	}

	m.Cleanup(context.Background())
	memAfter, _ := m.historyLengths()

	time.Sleep(25 * time.Millisecond)
	memLater, _ := m.historyLengths()
	if memLater != memAfter {
		t.Errorf("history grew after Cleanup: %d -> %d", memAfter, memLater)
	}
}

func TestMonitor_SetThresholds(t *testing.T) {
	m := NewMonitor(MonitorConfig{})

	m.SetThresholds(Thresholds{MaxConnections: 7})

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.thresholds.MaxConnections != 7 {
		t.Errorf("MaxConnections = %d, want 7", m.thresholds.MaxConnections)
	}
	// Unset fields keep their previous values.
	if m.thresholds.MaxCPUPercent != 80 {
		t.Errorf("MaxCPUPercent = %f, want unchanged 80", m.thresholds.MaxCPUPercent)
	}
}
