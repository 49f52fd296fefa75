package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/application/apperr"
	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/order"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/user"
)

func deliveredOrder(t *testing.T, e *env, qty int) *domain.Order {
	t.Helper()
	o := e.placeCOD(t, "u1", LineInput{VariantID: "v1", Quantity: qty})
	e.advance(t, o.ID, domain.StatusProcessing, domain.StatusShipping, domain.StatusDelivered)
	return o
}

func TestReturnApprovalRestocksAndReturnsOrder(t *testing.T) {
	e := newEnv(t, map[string]variantSeed{"v1": {price: 10000, stock: 5}})
	ctx := context.Background()
	o := deliveredOrder(t, e, 3)
	require.Equal(t, 2, e.stockOf(t, "v1"))

	req, err := e.returns.Request(ctx, ReturnCommand{
		OrderID:  o.ID,
		UserID:   "u1",
		LineID:   o.Lines[0].ID,
		Quantity: 2,
		Reason:   "sai kích cỡ",
		Images:   []domain.ReturnImage{{URL: "https://img.example/1.jpg", PublicID: "returns/1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RequestPending, req.Status)

	_, err = e.returns.Request(ctx, ReturnCommand{OrderID: o.ID, UserID: "u1", LineID: o.Lines[0].ID, Quantity: 1, Reason: "again"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	approved, err := e.returns.Review(ctx, req.ID, domain.RequestApproved)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestApproved, approved.Status)

	stored, err := e.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReturned, stored.Status)
	assert.Equal(t, 4, e.stockOf(t, "v1"))

	_, err = e.returns.Review(ctx, req.ID, domain.RequestRejected)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	completed, err := e.returns.Review(ctx, req.ID, domain.RequestCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestCompleted, completed.Status)
	assert.Equal(t, 4, e.stockOf(t, "v1"), "completion does not restock again")

	list, err := e.returns.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Images, 1)
}

func TestRejectedReturnAllowsNewRequest(t *testing.T) {
	e := newEnv(t, map[string]variantSeed{"v1": {price: 10000, stock: 5}})
	ctx := context.Background()
	o := deliveredOrder(t, e, 1)

	first, err := e.returns.Request(ctx, ReturnCommand{OrderID: o.ID, UserID: "u1", LineID: o.Lines[0].ID, Quantity: 1, Reason: "lỗi"})
	require.NoError(t, err)
	_, err = e.returns.Review(ctx, first.ID, domain.RequestRejected)
	require.NoError(t, err)

	stored, err := e.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, stored.Status)

	_, err = e.returns.Request(ctx, ReturnCommand{OrderID: o.ID, UserID: "u1", LineID: o.Lines[0].ID, Quantity: 1, Reason: "lỗi lần hai"})
	assert.NoError(t, err)
}

func TestReturnRequestRules(t *testing.T) {
	e := newEnv(t, map[string]variantSeed{"v1": {price: 10000, stock: 10}})
	ctx := context.Background()

	pending := e.placeCOD(t, "u1", LineInput{VariantID: "v1", Quantity: 1})
	_, err := e.returns.Request(ctx, ReturnCommand{OrderID: pending.ID, UserID: "u1", LineID: pending.Lines[0].ID, Quantity: 1, Reason: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	o := deliveredOrder(t, e, 2)
	_, err = e.returns.Request(ctx, ReturnCommand{OrderID: o.ID, UserID: "u2", LineID: o.Lines[0].ID, Quantity: 1, Reason: "x"})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = e.returns.Request(ctx, ReturnCommand{OrderID: o.ID, UserID: "u1", LineID: o.Lines[0].ID, Quantity: 3, Reason: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidReturn)

	_, err = e.returns.Request(ctx, ReturnCommand{OrderID: o.ID, UserID: "u1", LineID: "other", Quantity: 1, Reason: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidReturn)
}

func TestQueries(t *testing.T) {
	e := newEnv(t, map[string]variantSeed{"v1": {price: 10000, stock: 10}})
	ctx := context.Background()
	mine := e.placeCOD(t, "u1", LineInput{VariantID: "v1", Quantity: 1})
	e.placeCOD(t, "u2", LineInput{VariantID: "v1", Quantity: 1})

	d, err := e.queries.Get(ctx, mine.ID, "u1", user.RoleUser)
	require.NoError(t, err)
	require.NotNil(t, d.Payment)
	assert.Equal(t, mine.FinalTotal, d.Payment.Amount)
	assert.Len(t, d.Order.Lines, 1)

	_, err = e.queries.Get(ctx, mine.ID, "u2", user.RoleUser)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = e.queries.Get(ctx, mine.ID, adminID, user.RoleAdmin)
	assert.NoError(t, err)

	page, err := e.queries.History(ctx, "u1", nil, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	page, err = e.queries.List(ctx, domain.Query{Statuses: []domain.Status{domain.StatusPending}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	lo, hi := int64(100), int64(10)
	_, err = e.queries.List(ctx, domain.Query{MinTotal: &lo, MaxTotal: &hi})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
