// Package advertisementtrace wraps engine operations with OpenTelemetry
// spans. Spans open directly around AdvertiseSelf/HandleAdvertisement
// calls rather than through gRPC interceptors, since advertisements never
// cross a transport boundary here.
package advertisementtrace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"kaleidoscope/internal/domain"
)

const tracerName = "kaleidoscope/advertisement"

var tracer = otel.Tracer(tracerName)

// StartAdvertiseSelf opens a span around a self-advertisement planning
// call.
func StartAdvertiseSelf(ctx context.Context, self domain.NodeID) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "AdvertiseSelf", trace.WithSpanKind(trace.SpanKindProducer))
	span.SetAttributes(attribute.String("kaleidoscope.node.id", self.String()))
	return ctx, span
}

// StartHandleAdvertisement opens a span around an inbound advertisement's
// forwarding decision.
func StartHandleAdvertisement(ctx context.Context, ad domain.Advertisement) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "HandleAdvertisement", trace.WithSpanKind(trace.SpanKindConsumer))
	span.SetAttributes(
		attribute.String("kaleidoscope.advertisement.sender", ad.Sender.String()),
		attribute.Int("kaleidoscope.advertisement.ttl", ad.InboundTTL),
	)
	return ctx, span
}

// RecordPlan annotates span with the number of walks AdvertiseSelf
// launched.
func RecordPlan(span trace.Span, walks int) {
	span.SetAttributes(attribute.Int("kaleidoscope.walks", walks))
}

// RecordForward annotates span with a HandleAdvertisement outcome: either
// forwarded with a next hop, or dropped with a reason.
func RecordForward(span trace.Span, forwarded bool, next domain.NodeID, reason string) {
	span.SetAttributes(attribute.Bool("kaleidoscope.forwarded", forwarded))
	if forwarded {
		span.SetAttributes(attribute.String("kaleidoscope.next_hop", next.String()))
		return
	}
	if reason != "" {
		span.SetAttributes(attribute.String("kaleidoscope.drop_reason", reason))
	}
}
