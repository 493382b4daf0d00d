package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/leadwire/leadwire"

// Tracer wraps the OpenTelemetry tracer used for delivery spans.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer backed by the given provider. Pass nil to use
// the global provider, which is a no-op unless the host application has
// installed one.
func NewTracer(tp trace.TracerProvider) *Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Tracer{tracer: tp.Tracer(tracerName)}
}

// StartDeliverySpan opens a span covering one delivery attempt.
func (t *Tracer) StartDeliverySpan(ctx context.Context, deliveryID, event, webhookID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "webhook.deliver",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("webhook.delivery_id", deliveryID),
			attribute.String("webhook.event", event),
			attribute.String("webhook.id", webhookID),
		))
}

// EndDeliverySpan records the attempt result and closes the span.
func (t *Tracer) EndDeliverySpan(span trace.Span, statusCode, latencyMs int, errMsg string) {
	span.SetAttributes(
		attribute.Int("http.status_code", statusCode),
		attribute.Int("webhook.latency_ms", latencyMs),
	)
	if errMsg != "" {
		span.SetStatus(codes.Error, errMsg)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
