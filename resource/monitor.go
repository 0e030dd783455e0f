package resource

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/procfs"

	"github.com/jonwraymond/serverops/observe"
)

// MemoryInfo is one memory sample.
type MemoryInfo struct {
	// RSS is the process resident set size in bytes. Falls back to the
	// Go runtime's reserved bytes where /proc is unavailable.
	RSS uint64

	// HeapUsed is the allocated heap in bytes.
	HeapUsed uint64

	// HeapTotal is the heap reserved from the OS in bytes.
	HeapTotal uint64

	// External is memory held outside the heap (stacks, runtime tables).
	External uint64
}

// Thresholds are the mutable resource limits evaluated by CheckLimits.
type Thresholds struct {
	// MaxMemoryBytes bounds RSS. Default: 512 MiB
	MaxMemoryBytes uint64

	// MaxCPUPercent bounds the CPU usage estimate. Default: 80
	MaxCPUPercent float64

	// MaxFileHandles bounds the tracked open-file count. Default: 1000
	MaxFileHandles int

	// MaxConnections bounds the tracked connection count. Default: 100
	MaxConnections int
}

// Status is the outcome of one CheckLimits evaluation. It is recomputed on
// every call and never stored.
type Status struct {
	MemoryOK      bool
	CPUOK         bool
	FileHandlesOK bool
	ConnectionsOK bool
	Warnings      []string
}

// OK reports whether every resource flag is within limits.
func (s Status) OK() bool {
	return s.MemoryOK && s.CPUOK && s.FileHandlesOK && s.ConnectionsOK
}

// MonitorConfig configures the resource monitor.
type MonitorConfig struct {
	// SampleInterval is how often memory/CPU samples are captured.
	// Default: 10 seconds
	SampleInterval time.Duration

	// HistorySize is the nominal bounded-history length. Histories may
	// drift up to twice this size between maintenance passes.
	// Default: 60 (ten minutes of samples)
	HistorySize int

	// MaintenanceInterval is how often histories are trimmed and a GC
	// pass is requested. Default: 5 minutes
	MaintenanceInterval time.Duration

	// Thresholds are the initial resource limits.
	Thresholds Thresholds

	// Logger receives sampling and cleanup logs. Default: no-op.
	Logger observe.Logger
}

// cleanupTask is a registered best-effort cleanup callback.
type cleanupTask struct {
	name string
	fn   func(ctx context.Context) error
}

// Monitor samples process memory and CPU on an interval, retains bounded
// histories, evaluates thresholds and runs registered cleanup tasks.
type Monitor struct {
	config MonitorConfig
	logger observe.Logger

	mu           sync.Mutex
	thresholds   Thresholds
	memHistory   []MemoryInfo
	cpuHistory   []float64
	fileHandles  int
	connections  int
	lastCPUTime  float64
	lastCPUCheck time.Time
	cleanupTasks []cleanupTask
	stopCh       chan struct{}
	running      bool
}

// NewMonitor creates a new resource monitor.
func NewMonitor(config MonitorConfig) *Monitor {
	if config.SampleInterval <= 0 {
		config.SampleInterval = 10 * time.Second
	}
	if config.HistorySize <= 0 {
		config.HistorySize = 60
	}
	if config.MaintenanceInterval <= 0 {
		config.MaintenanceInterval = 5 * time.Minute
	}
	if config.Thresholds.MaxMemoryBytes == 0 {
		config.Thresholds.MaxMemoryBytes = 512 * 1024 * 1024
	}
	if config.Thresholds.MaxCPUPercent <= 0 {
		config.Thresholds.MaxCPUPercent = 80
	}
	if config.Thresholds.MaxFileHandles <= 0 {
		config.Thresholds.MaxFileHandles = 1000
	}
	if config.Thresholds.MaxConnections <= 0 {
		config.Thresholds.MaxConnections = 100
	}

	logger := config.Logger
	if logger == nil {
		logger = observe.NopLogger()
	} else {
		logger = logger.WithComponent("resource")
	}

	return &Monitor{
		config:     config,
		logger:     logger,
		thresholds: config.Thresholds,
	}
}

// Start begins periodic sampling and self-maintenance. Idempotent.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	stopCh := m.stopCh
	m.mu.Unlock()

	m.Sample()

	go m.loop(stopCh)
}

func (m *Monitor) loop(stopCh chan struct{}) {
	sample := time.NewTicker(m.config.SampleInterval)
	defer sample.Stop()
	maintain := time.NewTicker(m.config.MaintenanceInterval)
	defer maintain.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-sample.C:
			m.Sample()
		case <-maintain.C:
			m.maintain()
		}
	}
}

// Sample captures one memory snapshot and CPU-usage estimate and appends
// them to the bounded histories.
func (m *Monitor) Sample() {
	info := readMemoryInfo()
	cpu := m.estimateCPU()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.memHistory = appendBounded(m.memHistory, info, m.config.HistorySize)
	m.cpuHistory = appendBounded(m.cpuHistory, cpu, m.config.HistorySize)
}

// appendBounded appends v and trims the slice back to size when drift has
// let it reach twice the nominal bound.
func appendBounded[T any](history []T, v T, size int) []T {
	history = append(history, v)
	if len(history) > 2*size {
		history = history[len(history)-size:]
	}
	return history
}

// readMemoryInfo captures the current memory sample, preferring /proc for
// the resident set size.
func readMemoryInfo() MemoryInfo {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	info := MemoryInfo{
		RSS:       stats.Sys,
		HeapUsed:  stats.HeapAlloc,
		HeapTotal: stats.HeapSys,
		External:  stats.StackSys + stats.OtherSys,
	}

	if proc, err := procfs.Self(); err == nil {
		if stat, err := proc.Stat(); err == nil {
			info.RSS = uint64(stat.ResidentMemory())
		}
	}

	return info
}

// estimateCPU converts the delta of accumulated process CPU time since the
// previous call into a percentage of the elapsed wall time.
func (m *Monitor) estimateCPU() float64 {
	proc, err := procfs.Self()
	if err != nil {
		return 0
	}
	stat, err := proc.Stat()
	if err != nil {
		return 0
	}

	now := time.Now()
	cpuTime := stat.CPUTime()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastCPUCheck.IsZero() {
		m.lastCPUTime = cpuTime
		m.lastCPUCheck = now
		return 0
	}

	elapsed := now.Sub(m.lastCPUCheck).Seconds()
	delta := cpuTime - m.lastCPUTime
	m.lastCPUTime = cpuTime
	m.lastCPUCheck = now

	if elapsed <= 0 || delta < 0 {
		return 0
	}
	return delta / elapsed * 100
}

// SetThresholds replaces the resource limits.
func (m *Monitor) SetThresholds(t Thresholds) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.MaxMemoryBytes > 0 {
		m.thresholds.MaxMemoryBytes = t.MaxMemoryBytes
	}
	if t.MaxCPUPercent > 0 {
		m.thresholds.MaxCPUPercent = t.MaxCPUPercent
	}
	if t.MaxFileHandles > 0 {
		m.thresholds.MaxFileHandles = t.MaxFileHandles
	}
	if t.MaxConnections > 0 {
		m.thresholds.MaxConnections = t.MaxConnections
	}
}

// CheckLimits evaluates the latest samples and tracked counters against the
// thresholds.
func (m *Monitor) CheckLimits() Status {
	m.mu.Lock()
	if len(m.memHistory) == 0 {
		m.mu.Unlock()
		m.Sample()
		m.mu.Lock()
	}
	defer m.mu.Unlock()

	mem := m.memHistory[len(m.memHistory)-1]
	cpu := 0.0
	if len(m.cpuHistory) > 0 {
		cpu = m.cpuHistory[len(m.cpuHistory)-1]
	}

	status := Status{
		MemoryOK:      mem.RSS <= m.thresholds.MaxMemoryBytes,
		CPUOK:         cpu <= m.thresholds.MaxCPUPercent,
		FileHandlesOK: m.fileHandles <= m.thresholds.MaxFileHandles,
		ConnectionsOK: m.connections <= m.thresholds.MaxConnections,
	}

	if !status.MemoryOK {
		status.Warnings = append(status.Warnings,
			fmt.Sprintf("Memory usage high: %.1f MB (limit %.1f MB)",
				float64(mem.RSS)/(1024*1024),
				float64(m.thresholds.MaxMemoryBytes)/(1024*1024)))
	}
	if !status.CPUOK {
		status.Warnings = append(status.Warnings,
			fmt.Sprintf("CPU usage high: %.1f%% (limit %.1f%%)", cpu, m.thresholds.MaxCPUPercent))
	}
	if !status.FileHandlesOK {
		status.Warnings = append(status.Warnings,
			fmt.Sprintf("File handle count high: %d (limit %d)", m.fileHandles, m.thresholds.MaxFileHandles))
	}
	if !status.ConnectionsOK {
		status.Warnings = append(status.Warnings,
			fmt.Sprintf("Connection count high: %d (limit %d)", m.connections, m.thresholds.MaxConnections))
	}

	if warning, ok := m.leakWarningLocked(); ok {
		status.Warnings = append(status.Warnings, warning)
	}

	return status
}

// leakWarningLocked runs the memory-growth heuristic: the mean heap usage of
// the five most recent samples against the mean of the samples ten to
// fifteen back. Needs at least ten samples of history.
func (m *Monitor) leakWarningLocked() (string, bool) {
	h := m.memHistory
	if len(h) < 10 {
		return "", false
	}

	olderStart := len(h) - 15
	if olderStart < 0 {
		olderStart = 0
	}
	older := h[olderStart : len(h)-10]
	if len(older) == 0 {
		return "", false
	}
	recent := h[len(h)-5:]

	var recentSum, olderSum float64
	for _, s := range recent {
		recentSum += float64(s.HeapUsed)
	}
	for _, s := range older {
		olderSum += float64(s.HeapUsed)
	}

	recentAvg := recentSum / float64(len(recent))
	olderAvg := olderSum / float64(len(older))
	if olderAvg <= 0 {
		return "", false
	}

	ratio := recentAvg / olderAvg
	if ratio <= 1.5 {
		return "", false
	}

	return fmt.Sprintf("Potential memory leak detected: heap usage increased %.0f%% over recent samples",
		(ratio-1)*100), true
}

// TrackFileHandle adjusts the manual open-file counter, clamped at zero.
// The monitor has no OS-level introspection; callers pair these calls
// around real file use.
func (m *Monitor) TrackFileHandle(delta int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fileHandles += delta
	if m.fileHandles < 0 {
		m.fileHandles = 0
	}
}

// TrackConnection adjusts the manual connection counter, clamped at zero.
func (m *Monitor) TrackConnection(delta int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connections += delta
	if m.connections < 0 {
		m.connections = 0
	}
}

// FileHandles returns the tracked open-file count.
func (m *Monitor) FileHandles() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fileHandles
}

// Connections returns the tracked connection count.
func (m *Monitor) Connections() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connections
}

// LatestMemory returns the most recent memory sample, capturing one when no
// history exists yet.
func (m *Monitor) LatestMemory() MemoryInfo {
	m.mu.Lock()
	if len(m.memHistory) > 0 {
		defer m.mu.Unlock()
		return m.memHistory[len(m.memHistory)-1]
	}
	m.mu.Unlock()

	return readMemoryInfo()
}

// LatestCPU returns the most recent CPU-usage estimate.
func (m *Monitor) LatestCPU() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.cpuHistory) == 0 {
		return 0
	}
	return m.cpuHistory[len(m.cpuHistory)-1]
}

// AddCleanupTask registers a named cleanup callback run during Cleanup.
func (m *Monitor) AddCleanupTask(name string, fn func(ctx context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanupTasks = append(m.cleanupTasks, cleanupTask{name: name, fn: fn})
}

// Cleanup cancels sampling, runs every registered cleanup task best-effort
// and requests a garbage-collection pass. A failing or panicking task is
// logged, never propagated.
func (m *Monitor) Cleanup(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		close(m.stopCh)
		m.running = false
	}
	tasks := make([]cleanupTask, len(m.cleanupTasks))
	copy(tasks, m.cleanupTasks)
	m.mu.Unlock()

	for _, task := range tasks {
		m.runCleanupTask(ctx, task)
	}

	runtime.GC()
}

func (m *Monitor) runCleanupTask(ctx context.Context, task cleanupTask) {
	defer func() {
		if v := recover(); v != nil {
			m.logger.Error(ctx, "cleanup task panicked",
				observe.Field{Key: "task", Value: task.name},
				observe.Field{Key: "panic", Value: fmt.Sprint(v)},
			)
		}
	}()

	if err := task.fn(ctx); err != nil {
		m.logger.Warn(ctx, "cleanup task failed",
			observe.Field{Key: "task", Value: task.name},
			observe.Field{Key: "error", Value: err.Error()},
		)
	}
}

// maintain trims drifted histories back to the nominal size and requests GC.
func (m *Monitor) maintain() {
	m.mu.Lock()
	size := m.config.HistorySize
	if len(m.memHistory) > size {
		m.memHistory = m.memHistory[len(m.memHistory)-size:]
	}
	if len(m.cpuHistory) > size {
		m.cpuHistory = m.cpuHistory[len(m.cpuHistory)-size:]
	}
	m.mu.Unlock()

	runtime.GC()
}

// historyLengths reports the current history lengths. Test hook.
func (m *Monitor) historyLengths() (mem, cpu int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.memHistory), len(m.cpuHistory)
}

// appendMemorySample injects a synthetic sample. Test hook.
func (m *Monitor) appendMemorySample(info MemoryInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.memHistory = appendBounded(m.memHistory, info, m.config.HistorySize)
}
