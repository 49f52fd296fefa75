package workerpresentation

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domoutbox "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/outbox"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/observability"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/observability/logctx"
)

const spanPrefix = "EVT."

// WithEventContext injects a request-scoped logger for background/worker executions.
// Dynamic fields only: trace_id/span_id (if valid), event_id (generated if empty),
// plus caller-provided low-cardinality attributes (e.g. "event", "consumer").
func WithEventContext(
	ctx context.Context,
	base observability.Logger,
	traceID trace.TraceID,
	spanID trace.SpanID,
	attrs map[string]string,
) context.Context {
	if base == nil {
		base = observability.NopLogger()
	}

	fields := make([]observability.Field, 0, 3+len(attrs))
	evtID := attrs["event_id"]
	if evtID == "" {
		evtID = uuid.NewString()
	}
	fields = append(fields, observability.F("event_id", evtID))
	if traceID.IsValid() {
		fields = append(fields, observability.F("trace_id", traceID.String()))
	}
	if spanID.IsValid() {
		fields = append(fields, observability.F("span_id", spanID.String()))
	}
	for k, v := range attrs {
		if k == "event_id" || v == "" {
			continue
		}
		fields = append(fields, observability.F(k, v))
	}
	return logctx.With(ctx, base.With(fields...))
}

// Instrument decorates a subscriber so every handler it registers runs inside
// an EVT.<name> span with an event-scoped logger on its context.
func Instrument(next domoutbox.Subscriber, obs observability.Observability, consumer string) domoutbox.Subscriber {
	obs = observability.OrNop(obs)
	return &instrumented{
		next:     next,
		tracer:   obs.Tracer(),
		log:      obs.Logger(),
		consumer: consumer,
	}
}

type instrumented struct {
	next     domoutbox.Subscriber
	tracer   observability.Tracer
	log      observability.Logger
	consumer string
}

func (s *instrumented) Subscribe(eventName string, h domoutbox.Handler) {
	s.next.Subscribe(eventName, func(ctx context.Context, e domoutbox.Event) error {
		ctx, span := s.tracer.Start(ctx, spanPrefix+eventName,
			attribute.String("messaging.operation", "process"),
			attribute.String("messaging.destination.name", eventName),
			attribute.String("messaging.consumer", s.consumer),
		)
		defer span.End()

		sc := span.SpanContext()
		ctx = WithEventContext(ctx, logctx.FromOr(ctx, s.log), sc.TraceID(), sc.SpanID(), map[string]string{
			"event":    eventName,
			"consumer": s.consumer,
		})

		err := h(ctx, e)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	})
}
