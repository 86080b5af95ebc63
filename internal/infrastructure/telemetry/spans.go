package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of application spans
const TracerName = "marketplace-backend"

// Span attribute keys
var (
	KeyUserID     = attribute.Key("user_id")
	KeyOrderID    = attribute.Key("order_id")
	KeyItemCount  = attribute.Key("item_count")
	KeyAmount     = attribute.Key("amount")
	KeyIdempotent = attribute.Key("idempotency_key_present")
)

// Start opens an internal span on the global tracer provider. The name is
// "<component>.<operation>", e.g. "checkout.place_order".
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// End sets the span status from err and ends it
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
