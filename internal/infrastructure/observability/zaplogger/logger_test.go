package zaplogger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/observability"
)

func TestLoggerForwardsFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := New(zap.New(core), observability.F("component", "test"))

	log.With(observability.F("order_id", "o-1")).Warn("stock_low",
		observability.F("available", 2),
		observability.F("error", errors.New("boom")),
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "stock_low", entries[0].Message)
	assert.Equal(t, "test", ctx["component"])
	assert.Equal(t, "o-1", ctx["order_id"])
	assert.Equal(t, int64(2), ctx["available"])
	assert.Equal(t, "boom", ctx["error"])
}
