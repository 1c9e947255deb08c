package workerpresentation

import (
	"context"

	domoutbox "github.com/Zhima-Mochi/minishop-storefront/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability/logctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// WithEventContext injects an event-scoped logger for background executions.
// Dynamic fields only: trace_id/span_id (if valid), event_id (generated if empty),
// plus caller-provided low-cardinality attributes (e.g. "consumer", "event").
func WithEventContext(
	ctx context.Context,
	base observability.Logger,
	attrs map[string]string,
) context.Context {
	if base == nil {
		base = logctx.FromOr(ctx, observability.NopLogger())
	}

	fields := make([]observability.Field, 0, len(attrs)+3)

	evtID := attrs["event_id"]
	if evtID == "" {
		evtID = uuid.NewString()
	}
	fields = append(fields, observability.F("event_id", evtID))

	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		fields = append(fields, observability.F("trace_id", sc.TraceID().String()))
	}
	if sc.HasSpanID() {
		fields = append(fields, observability.F("span_id", sc.SpanID().String()))
	}

	for k, v := range attrs {
		if k == "event_id" || v == "" {
			continue
		}
		fields = append(fields, observability.F(k, v))
	}

	return logctx.With(ctx, base.With(fields...))
}

// EventContext wraps an outbox handler so every delivery runs with an event-scoped logger.
// The event id is derived from the aggregate when the event carries one, which keeps
// redeliveries of the same fact pivotable in logs.
func EventContext(tel observability.Observability, consumer string) func(domoutbox.Handler) domoutbox.Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	base := tel.Logger()
	return func(next domoutbox.Handler) domoutbox.Handler {
		return func(ctx context.Context, e domoutbox.Event) error {
			attrs := map[string]string{
				"consumer": consumer,
				"event":    e.EventName(),
			}
			if key := domoutbox.KeyOf(e); key != "" {
				attrs["event_id"] = e.EventName() + ":" + key
			}
			return next(WithEventContext(ctx, logctx.FromOr(ctx, base), attrs), e)
		}
	}
}
