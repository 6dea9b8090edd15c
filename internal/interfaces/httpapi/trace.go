package httpapi

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var apiTracer = otel.Tracer("homerun-cage/internal/interfaces/httpapi")

// routeAttributes maps path wildcards onto span attributes.
var routeAttributes = []struct {
	wildcard string
	key      attribute.Key
}{
	{wildcard: "gameID", key: "cage.game_id"},
	{wildcard: "playerID", key: "cage.player_id"},
	{wildcard: "teamID", key: "cage.team_id"},
	{wildcard: "kind", key: "cage.job_kind"},
}

// startHandlerSpan opens a child span for one handler. Requests that the
// tracing middleware filtered out (health probes, metrics) get no span.
func startHandlerSpan(r *http.Request, operation string) (context.Context, trace.Span) {
	ctx := r.Context()
	parent := trace.SpanFromContext(ctx)
	if !parent.SpanContext().IsValid() {
		return ctx, parent
	}

	ctx, span := apiTracer.Start(ctx, "httpapi.Handler."+operation)
	span.SetAttributes(handlerAttributes(r)...)
	return ctx, span
}

func handlerAttributes(r *http.Request) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(routeAttributes))
	for _, ra := range routeAttributes {
		if v := r.PathValue(ra.wildcard); v != "" {
			attrs = append(attrs, ra.key.String(v))
		}
	}
	return attrs
}
