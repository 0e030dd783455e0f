package lifecycle

import (
	"sort"
	"time"
)

// Snapshot is a point-in-time view of the server's health, suitable for
// serialization.
type Snapshot struct {
	Status            string            `json:"status"`
	State             string            `json:"state"`
	UptimeMS          int64             `json:"uptimeMs"`
	MemoryUsage       MemorySnapshot    `json:"memoryUsage"`
	CPUUsage          float64           `json:"cpuUsage"`
	ActiveConnections int               `json:"activeConnections"`
	Services          []ServiceSnapshot `json:"services"`
}

// MemorySnapshot reports process memory usage in bytes.
type MemorySnapshot struct {
	RSS       uint64 `json:"rss"`
	HeapUsed  uint64 `json:"heapUsed"`
	HeapTotal uint64 `json:"heapTotal"`
	External  uint64 `json:"external"`
}

// ServiceSnapshot reports the last known health of one monitored service.
type ServiceSnapshot struct {
	Name           string `json:"name"`
	Status         string `json:"status"`
	LastCheck      string `json:"lastCheck"`
	ErrorCount     int    `json:"errorCount"`
	ResponseTimeMS int64  `json:"responseTimeMs"`
}

// Health assembles a snapshot from the controller's collaborators without
// running new probe checks. The overall status is unhealthy when the
// controller is in the error state, degraded when it is in the degraded
// state or any resource limit is exceeded, and healthy otherwise.
func (c *Controller) Health() Snapshot {
	state := c.State()
	limits := c.monitor.CheckLimits()
	mem := c.monitor.LatestMemory()

	status := "healthy"
	switch {
	case state == StateErrored:
		status = "unhealthy"
	case state == StateDegraded || !limits.OK():
		status = "degraded"
	}

	records := c.checker.Snapshot()
	services := make([]ServiceSnapshot, 0, len(records))
	for _, rec := range records {
		svc := ServiceSnapshot{
			Name:           rec.Name,
			Status:         rec.Status.String(),
			ErrorCount:     rec.ErrorCount,
			ResponseTimeMS: rec.ResponseTime.Milliseconds(),
		}
		if !rec.LastCheck.IsZero() {
			svc.LastCheck = rec.LastCheck.UTC().Format(time.RFC3339)
		}
		services = append(services, svc)
	}
	sort.Slice(services, func(i, j int) bool { return services[i].Name < services[j].Name })

	var uptime int64
	if state != StateStopped {
		uptime = c.Uptime().Milliseconds()
	}

	return Snapshot{
		Status:   status,
		State:    state.String(),
		UptimeMS: uptime,
		MemoryUsage: MemorySnapshot{
			RSS:       mem.RSS,
			HeapUsed:  mem.HeapUsed,
			HeapTotal: mem.HeapTotal,
			External:  mem.External,
		},
		CPUUsage:          c.monitor.LatestCPU(),
		ActiveConnections: c.monitor.Connections(),
		Services:          services,
	}
}
