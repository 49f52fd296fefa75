package workerpresentation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	domoutbox "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/outbox"
	obsinfra "github.com/LoiPham2005/backend-doantotnghiep/internal/infrastructure/observability"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/infrastructure/observability/zaplogger"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/observability/logctx"
)

type captureSubscriber struct {
	handlers map[string]domoutbox.Handler
}

func (c *captureSubscriber) Subscribe(name string, h domoutbox.Handler) {
	if c.handlers == nil {
		c.handlers = make(map[string]domoutbox.Handler)
	}
	c.handlers[name] = h
}

type pingEvent struct{}

func (pingEvent) EventName() string { return "ping" }

func TestInstrumentInjectsEventLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	obs := obsinfra.New(nil, zaplogger.New(zap.New(core)), nil, nil)
	sub := &captureSubscriber{}

	boom := errors.New("boom")
	Instrument(sub, obs, "payment_worker").Subscribe("ping", func(ctx context.Context, _ domoutbox.Event) error {
		logger := logctx.From(ctx)
		require.NotNil(t, logger)
		logger.Info("handled")
		return boom
	})

	h, ok := sub.handlers["ping"]
	require.True(t, ok)
	assert.ErrorIs(t, h(context.Background(), pingEvent{}), boom)

	entries := logs.FilterMessage("handled").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "ping", fields["event"])
	assert.Equal(t, "payment_worker", fields["consumer"])
	assert.NotEmpty(t, fields["event_id"])
}

func TestWithEventContextKeepsGivenEventID(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := zaplogger.New(zap.New(core))

	ctx := WithEventContext(context.Background(), base, trace.TraceID{}, trace.SpanID{}, map[string]string{
		"event_id": "evt-1",
		"event":    "order.status_changed",
		"tenant":   "",
	})
	logctx.From(ctx).Info("x")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "evt-1", fields["event_id"])
	assert.NotContains(t, fields, "trace_id")
	assert.NotContains(t, fields, "tenant")
}
