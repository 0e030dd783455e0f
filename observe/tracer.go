package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps OpenTelemetry tracing with supervisor-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a supervisor operation
	// (e.g. "server.start", "server.tick", "server.stop").
	StartSpan(ctx context.Context, operation string) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a new Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span for the named operation.
func (t *tracerImpl) StartSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, operation,
		trace.WithAttributes(
			attribute.String("server.operation", operation),
		),
	)
}

// EndSpan ends the span, setting error status when err is non-nil.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if span == nil {
		return
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("server.error", true))
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

var _ Tracer = (*tracerImpl)(nil)
