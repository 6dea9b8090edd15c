package usecase

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var usecaseTracer = otel.Tracer("homerun-cage/internal/usecase")

// startUsecaseSpan opens a child span only when ctx already carries a sampled
// trace, so background loops without a request do not start root spans.
func startUsecaseSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	parent := trace.SpanFromContext(ctx)
	if name == "" || !parent.SpanContext().IsValid() {
		return ctx, parent
	}
	return usecaseTracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan closes span and marks it failed when *errp is set, except for
// caller errors such as invalid input or a missing game.
func endSpan(span trace.Span, errp *error) {
	if errp != nil && *errp != nil && !isCallerError(*errp) {
		span.RecordError(*errp)
		span.SetStatus(codes.Error, (*errp).Error())
	}
	span.End()
}
