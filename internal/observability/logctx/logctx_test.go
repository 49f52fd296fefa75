package logctx_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/infrastructure/observability/zaplogger"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/observability"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/observability/logctx"
)

func TestFromOrFallsBackWhenContextHasNoLogger(t *testing.T) {
	fallback := observability.NopLogger()
	assert.Equal(t, fallback, logctx.FromOr(context.Background(), fallback))
	assert.Nil(t, logctx.From(context.Background()))
}

func TestWithStoresLogger(t *testing.T) {
	logger := observability.NopLogger().With(observability.F("request_id", "r-1"))
	ctx := logctx.With(context.Background(), logger)
	assert.Equal(t, logger, logctx.From(ctx))
	assert.Equal(t, ctx, logctx.With(ctx, nil))
}

func TestFromOrNeverReturnsNil(t *testing.T) {
	assert.NotNil(t, logctx.FromOr(context.Background(), nil))
}

func TestEnrichLayersFieldsOnScopedLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := zaplogger.New(zap.New(core))

	ctx := logctx.With(context.Background(), base.With(observability.F("request_id", "r-1")))
	ctx = logctx.Enrich(ctx, nil, observability.F("user_id", "u1"))
	logctx.From(ctx).Info("hello")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "r-1", fields["request_id"])
	assert.Equal(t, "u1", fields["user_id"])

	plain := context.Background()
	assert.Equal(t, plain, logctx.Enrich(plain, base))
}
