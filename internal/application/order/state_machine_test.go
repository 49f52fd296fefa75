package order

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/application/apperr"
	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/order"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/user"
)

// seedOrder stores an order directly at the given status.
func seedOrder(t *testing.T, e *env, id string, status domain.Status) *domain.Order {
	t.Helper()
	o, err := domain.New(domain.NewParams{
		ID:            id,
		UserID:        "u1",
		AddressID:     "addr-1",
		Lines:         []domain.Line{{ID: id + "-l1", VariantID: "v1", Quantity: 1, UnitPrice: 10000}},
		ShippingFee:   testShippingFee,
		PaymentMethod: domain.PaymentCOD,
	})
	require.NoError(t, err)
	o.Status = status
	require.NoError(t, e.orders.Insert(context.Background(), o))
	return o
}

func TestUpdateStatusFollowsTransitionTable(t *testing.T) {
	e := newEnv(t, map[string]variantSeed{"v1": {price: 10000, stock: 100}})
	ctx := context.Background()

	for _, from := range domain.AllStatuses() {
		for _, to := range domain.AllStatuses() {
			name := string(from) + "->" + string(to)
			t.Run(name, func(t *testing.T) {
				o := seedOrder(t, e, "o-"+name, from)
				_, err := e.machine.UpdateStatus(ctx, TransitionCommand{
					OrderID: o.ID, To: to, ActorID: adminID, ActorRole: user.RoleAdmin,
				})

				stored, getErr := e.orders.Get(ctx, o.ID)
				require.NoError(t, getErr)
				switch {
				case from == domain.StatusDelivered && to == domain.StatusReturned:
					assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
					assert.Equal(t, from, stored.Status)
				case domain.CanTransition(from, to):
					require.NoError(t, err)
					assert.Equal(t, to, stored.Status)
				default:
					assert.ErrorIs(t, err, domain.ErrInvalidTransition)
					assert.Equal(t, from, stored.Status, "a rejected transition leaves the order unchanged")
				}
			})
		}
	}
}

func TestPendingCannotJumpToShipping(t *testing.T) {
	e := newEnv(t, map[string]variantSeed{"v1": {price: 10000, stock: 5}})
	o := e.placeCOD(t, "u1", LineInput{VariantID: "v1", Quantity: 1})

	_, err := e.machine.UpdateStatus(context.Background(), TransitionCommand{
		OrderID: o.ID, To: domain.StatusShipping, ActorID: adminID, ActorRole: user.RoleAdmin,
	})
	var te *domain.InvalidTransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, domain.StatusPending, te.From)
	assert.Equal(t, domain.StatusShipping, te.To)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))
}

func TestReturnedOutsideTableIsInvalidTransition(t *testing.T) {
	e := newEnv(t, map[string]variantSeed{"v1": {price: 10000, stock: 5}})
	ctx := context.Background()

	for _, from := range []domain.Status{domain.StatusPending, domain.StatusCancelled} {
		o := seedOrder(t, e, "o-returned-"+string(from), from)
		_, err := e.machine.UpdateStatus(ctx, TransitionCommand{
			OrderID: o.ID, To: domain.StatusReturned, ActorID: adminID, ActorRole: user.RoleAdmin,
		})
		var te *domain.InvalidTransitionError
		require.ErrorAs(t, err, &te, string(from))
		assert.Equal(t, from, te.From)
		assert.Equal(t, domain.StatusReturned, te.To)
		assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))
	}

	delivered := seedOrder(t, e, "o-returned-delivered", domain.StatusDelivered)
	_, err := e.machine.UpdateStatus(ctx, TransitionCommand{
		OrderID: delivered.ID, To: domain.StatusReturned, ActorID: adminID, ActorRole: user.RoleAdmin,
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestUpdateStatusRequiresStaff(t *testing.T) {
	e := newEnv(t, map[string]variantSeed{"v1": {price: 10000, stock: 5}})
	o := e.placeCOD(t, "u1", LineInput{VariantID: "v1", Quantity: 1})

	_, err := e.machine.UpdateStatus(context.Background(), TransitionCommand{
		OrderID: o.ID, To: domain.StatusProcessing, ActorID: "u1", ActorRole: user.RoleUser,
	})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestDeliveryStampsTimestampAndNotifiesOwner(t *testing.T) {
	e := newEnv(t, map[string]variantSeed{"v1": {price: 10000, stock: 5}})
	ctx := context.Background()
	o := e.placeCOD(t, "u1", LineInput{VariantID: "v1", Quantity: 1})

	e.advance(t, o.ID, domain.StatusProcessing, domain.StatusShipping, domain.StatusDelivered)

	stored, err := e.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.DeliveredAt)
	assert.True(t, stored.DeliveredAt.Equal(testNow))

	inbox, err := e.inbox.Inbox(ctx, "u1", false, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 3)
	titles := make([]string, 0, len(inbox))
	for _, item := range inbox {
		titles = append(titles, item.Notification.Title)
	}
	assert.Contains(t, titles, "Đơn hàng đã giao thành công")

	assert.Equal(t, []string{
		"order.placed",
		"order.status_changed",
		"order.status_changed",
		"order.status_changed",
	}, e.events.names())
}

func TestCancelFromProcessingRestoresStock(t *testing.T) {
	e := newEnv(t, map[string]variantSeed{"v1": {price: 10000, stock: 5}})
	ctx := context.Background()
	o := e.placeCOD(t, "u1", LineInput{VariantID: "v1", Quantity: 3})
	require.Equal(t, 2, e.stockOf(t, "v1"))
	e.advance(t, o.ID, domain.StatusProcessing)

	cancelled, req, err := e.machine.Cancel(ctx, CancelCommand{OrderID: o.ID, UserID: "u1", Reason: "đổi ý"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.Equal(t, 5, e.stockOf(t, "v1"))

	require.NotNil(t, req)
	assert.Equal(t, domain.RequestApproved, req.Status)
	assert.False(t, req.AdminCancel)
	cancels, err := e.returns.ListCancels(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, cancels, 1)
	assert.Equal(t, o.ID, cancels[0].OrderID)

	inbox, err := e.inbox.Inbox(ctx, "u1", true, 0)
	require.NoError(t, err)
	var found bool
	for _, item := range inbox {
		if item.Notification.Title == "Đơn hàng đã bị hủy" {
			found = true
			assert.True(t, strings.HasSuffix(item.Notification.Content, "Lý do: đổi ý"))
		}
	}
	assert.True(t, found, "owner is told about the cancellation")

	_, _, err = e.machine.Cancel(ctx, CancelCommand{OrderID: o.ID, UserID: "u1", Reason: "again"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, 5, e.stockOf(t, "v1"), "stock is credited once")
}

func TestCancelRules(t *testing.T) {
	e := newEnv(t, map[string]variantSeed{"v1": {price: 10000, stock: 10}})
	ctx := context.Background()

	t.Run("other user is forbidden", func(t *testing.T) {
		o := e.placeCOD(t, "u1", LineInput{VariantID: "v1", Quantity: 1})
		_, _, err := e.machine.Cancel(ctx, CancelCommand{OrderID: o.ID, UserID: "u2", Reason: "x"})
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	})
	t.Run("reason is required", func(t *testing.T) {
		o := e.placeCOD(t, "u1", LineInput{VariantID: "v1", Quantity: 1})
		_, _, err := e.machine.Cancel(ctx, CancelCommand{OrderID: o.ID, UserID: "u1", Reason: "  "})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})
	t.Run("shipping orders cannot be cancelled by the customer", func(t *testing.T) {
		o := e.placeCOD(t, "u1", LineInput{VariantID: "v1", Quantity: 1})
		e.advance(t, o.ID, domain.StatusProcessing, domain.StatusShipping)
		_, _, err := e.machine.Cancel(ctx, CancelCommand{OrderID: o.ID, UserID: "u1", Reason: "late"})
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
	t.Run("admin may cancel any pending order", func(t *testing.T) {
		o := e.placeCOD(t, "u1", LineInput{VariantID: "v1", Quantity: 2})
		before := e.stockOf(t, "v1")
		_, req, err := e.machine.Cancel(ctx, CancelCommand{OrderID: o.ID, UserID: adminID, Reason: "hết hàng", Admin: true})
		require.NoError(t, err)
		assert.True(t, req.AdminCancel)
		assert.Equal(t, before+2, e.stockOf(t, "v1"))
	})
}

func TestStaffCancelOfShippingOrderReleasesStock(t *testing.T) {
	e := newEnv(t, map[string]variantSeed{"v1": {price: 10000, stock: 4}})
	o := e.placeCOD(t, "u1", LineInput{VariantID: "v1", Quantity: 4})
	e.advance(t, o.ID, domain.StatusProcessing, domain.StatusShipping)

	_, err := e.machine.UpdateStatus(context.Background(), TransitionCommand{
		OrderID: o.ID, To: domain.StatusCancelled, ActorID: adminID, ActorRole: user.RoleAdmin, Reason: "thất lạc",
	})
	require.NoError(t, err)
	assert.Equal(t, 4, e.stockOf(t, "v1"))
}
