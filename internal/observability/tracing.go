package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name for service spans.
const TracerName = "aether"

// Span attribute keys
const (
	AttrOperation = "operation"
	AttrModel     = "model"
	AttrUsername  = "username"
	AttrMeetingID = "meeting_id"
	AttrCount     = "count"
)

// Span names
const (
	SpanLLMCall      = "aether.llm_call"
	SpanCalendarSync = "aether.calendar_sync"
	SpanMemoryWrite  = "aether.memory.write"
	SpanMemorySearch = "aether.memory.search"
)

// Tracer starts spans around collaborator calls. Without a configured
// provider the global no-op tracer is used.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a tracer from the global provider.
func NewTracer() *Tracer {
	return &Tracer{
		tracer: otel.Tracer(TracerName),
	}
}

// StartLLMSpan starts a span for a language model call.
func (t *Tracer) StartLLMSpan(ctx context.Context, operation, model string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanLLMCall,
		trace.WithAttributes(
			attribute.String(AttrOperation, operation),
			attribute.String(AttrModel, model),
		),
	)
}

// StartCalendarSpan starts a span for a calendar submission.
func (t *Tracer) StartCalendarSpan(ctx context.Context, username string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanCalendarSync,
		trace.WithAttributes(attribute.String(AttrUsername, username)),
	)
}

// StartMemorySpan starts a span for a memory store operation.
func (t *Tracer) StartMemorySpan(ctx context.Context, name, username string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name,
		trace.WithAttributes(attribute.String(AttrUsername, username)),
	)
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// GetTraceID returns the trace ID from the context.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
