package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records supervisor telemetry.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordTick records one health-check tick with its duration and the
	// state it left the controller in.
	RecordTick(ctx context.Context, duration time.Duration, state string)

	// RecordStateChange records a lifecycle state transition.
	RecordStateChange(ctx context.Context, from, to string)

	// RecordHandledError records an error handled by the error boundary.
	RecordHandledError(ctx context.Context, operation, severity string, recovered bool)

	// RecordProbe records a single health probe check.
	RecordProbe(ctx context.Context, probe, status string, duration time.Duration)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter         metric.Meter
	tickCount     metric.Int64Counter
	tickDuration  metric.Float64Histogram
	transitions   metric.Int64Counter
	errorCount    metric.Int64Counter
	probeDuration metric.Float64Histogram
}

// NewMetrics creates a new Metrics instance with the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	tickCount, err := meter.Int64Counter(
		"server.tick.total",
		metric.WithDescription("Total number of health-check ticks"),
		metric.WithUnit("{tick}"),
	)
	if err != nil {
		return nil, err
	}

	tickDuration, err := meter.Float64Histogram(
		"server.tick.duration_ms",
		metric.WithDescription("Health-check tick duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter(
		"server.state.transitions",
		metric.WithDescription("Total number of lifecycle state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"server.errors.handled",
		metric.WithDescription("Total number of errors handled by the error boundary"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	probeDuration, err := meter.Float64Histogram(
		"server.probe.duration_ms",
		metric.WithDescription("Health probe check duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:         meter,
		tickCount:     tickCount,
		tickDuration:  tickDuration,
		transitions:   transitions,
		errorCount:    errorCount,
		probeDuration: probeDuration,
	}, nil
}

func (m *metricsImpl) RecordTick(ctx context.Context, duration time.Duration, state string) {
	opt := metric.WithAttributes(attribute.String("server.state", state))
	m.tickCount.Add(ctx, 1, opt)
	m.tickDuration.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordStateChange(ctx context.Context, from, to string) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("server.state.from", from),
		attribute.String("server.state.to", to),
	))
}

func (m *metricsImpl) RecordHandledError(ctx context.Context, operation, severity string, recovered bool) {
	m.errorCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("error.operation", operation),
		attribute.String("error.severity", severity),
		attribute.Bool("error.recovered", recovered),
	))
}

func (m *metricsImpl) RecordProbe(ctx context.Context, probe, status string, duration time.Duration) {
	m.probeDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(
		attribute.String("probe.name", probe),
		attribute.String("probe.status", status),
	))
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordTick(ctx context.Context, duration time.Duration, state string) {}
func (m *noopMetrics) RecordStateChange(ctx context.Context, from, to string)               {}
func (m *noopMetrics) RecordHandledError(ctx context.Context, operation, severity string, recovered bool) {
}
func (m *noopMetrics) RecordProbe(ctx context.Context, probe, status string, duration time.Duration) {
}

// NopMetrics returns a Metrics implementation that discards everything.
func NopMetrics() Metrics {
	return &noopMetrics{}
}

// Ensure implementations satisfy Metrics
var (
	_ Metrics = (*metricsImpl)(nil)
	_ Metrics = (*noopMetrics)(nil)
)
