// Package storetest holds repository contract tests shared by every store
// implementation.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/cart"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/inventory"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/notification"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/order"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/payment"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/user"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/voucher"
)

// Stores is one complete set of repositories.
type Stores struct {
	Inventory     inventory.Repository
	Orders        order.Repository
	Requests      order.RequestRepository
	Payments      payment.Repository
	Vouchers      voucher.Repository
	Grants        voucher.GrantRepository
	Notifications notification.Repository
	Carts         cart.Repository
	Users         user.Directory
}

// Run executes every contract against a fresh set of stores per subtest.
func Run(t *testing.T, newStores func(t *testing.T) Stores) {
	t.Run("inventory", func(t *testing.T) { Inventory(t, newStores(t).Inventory) })
	t.Run("inventory_concurrency", func(t *testing.T) { InventoryConcurrency(t, newStores(t).Inventory) })
	t.Run("orders", func(t *testing.T) { Orders(t, newStores(t).Orders) })
	t.Run("requests", func(t *testing.T) { Requests(t, newStores(t).Requests) })
	t.Run("payments", func(t *testing.T) { Payments(t, newStores(t).Payments) })
	t.Run("vouchers", func(t *testing.T) {
		s := newStores(t)
		Vouchers(t, s.Vouchers, s.Grants)
	})
	t.Run("notifications", func(t *testing.T) { Notifications(t, newStores(t).Notifications) })
	t.Run("carts", func(t *testing.T) { Carts(t, newStores(t).Carts) })
	t.Run("users", func(t *testing.T) { Users(t, newStores(t).Users) })
}

func seedVariant(t *testing.T, repo inventory.Repository, id, productID string, qty int) {
	t.Helper()
	v, err := inventory.NewVariant(id, productID, "SKU-"+id, 100000, qty)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), v))
}

func Inventory(t *testing.T, repo inventory.Repository) {
	ctx := context.Background()
	seedVariant(t, repo, "v1", "p1", 3)
	seedVariant(t, repo, "v2", "p1", 0)

	_, err := repo.Get(ctx, "missing")
	require.ErrorIs(t, err, inventory.ErrNotFound)

	got, err := repo.Apply(ctx, inventory.Movement{Key: "reserve:o1:v1", VariantID: "v1", OrderID: "o1", Kind: inventory.MovementReserve, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Quantity)

	// replay is a no-op
	got, err = repo.Apply(ctx, inventory.Movement{Key: "reserve:o1:v1", VariantID: "v1", OrderID: "o1", Kind: inventory.MovementReserve, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Quantity)

	_, err = repo.Apply(ctx, inventory.Movement{Key: "reserve:o2:v1", VariantID: "v1", OrderID: "o2", Kind: inventory.MovementReserve, Quantity: 2})
	var stockErr *inventory.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "v1", stockErr.VariantID)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 2, stockErr.Requested)

	got, err = repo.Apply(ctx, inventory.Movement{Key: "reserve:o3:v1", VariantID: "v1", OrderID: "o3", Kind: inventory.MovementReserve, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity)
	assert.Equal(t, inventory.VariantOutOfStock, got.Status)

	for i := 0; i < 2; i++ {
		got, err = repo.Apply(ctx, inventory.Movement{Key: "cancel:o1:v1", VariantID: "v1", OrderID: "o1", Kind: inventory.MovementRelease, Quantity: 2})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, got.Quantity)
	assert.Equal(t, inventory.VariantAvailable, got.Status)

	variants, err := repo.ListByProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, variants, 2)

	_, err = repo.ProductStatus(ctx, "p1")
	assert.ErrorIs(t, err, inventory.ErrNotFound)
	require.NoError(t, repo.SetProductStatus(ctx, "p1", inventory.ProductOutOfStock))
	require.NoError(t, repo.SetProductStatus(ctx, "p1", inventory.ProductActive))
	status, err := repo.ProductStatus(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, inventory.ProductActive, status)
}

// InventoryConcurrency races reservations against a small stock level; the
// stock must never go negative and every unit must be accounted for.
func InventoryConcurrency(t *testing.T, repo inventory.Repository) {
	ctx := context.Background()
	seedVariant(t, repo, "hot", "p", 10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Apply(ctx, inventory.Movement{
				Key: fmt.Sprintf("reserve:o%d:hot", i), VariantID: "hot", OrderID: fmt.Sprintf("o%d", i),
				Kind: inventory.MovementReserve, Quantity: 1,
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
		}(i)
	}
	wg.Wait()

	v, err := repo.Get(ctx, "hot")
	require.NoError(t, err)
	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 0, v.Quantity)
}

func newOrder(t *testing.T, id, userID string, method order.PaymentMethod) *order.Order {
	t.Helper()
	o, err := order.New(order.NewParams{
		ID: id, UserID: userID, AddressID: "addr",
		Lines: []order.Line{
			{ID: id + "-l1", VariantID: "v1", Quantity: 2, UnitPrice: 100000},
			{ID: id + "-l2", VariantID: "v2", Quantity: 1, UnitPrice: 50000},
		},
		ShippingFee:   30000,
		PaymentMethod: method,
	})
	require.NoError(t, err)
	return o
}

func Orders(t *testing.T, repo order.Repository) {
	ctx := context.Background()
	o1 := newOrder(t, "o1", "u1", order.PaymentCOD)
	o2 := newOrder(t, "o2", "u1", order.PaymentBanking)
	o3 := newOrder(t, "o3", "u2", order.PaymentCOD)
	o2.CreatedAt = o1.CreatedAt.Add(time.Second)
	o3.CreatedAt = o1.CreatedAt.Add(2 * time.Second)
	for _, o := range []*order.Order{o1, o2, o3} {
		require.NoError(t, repo.Insert(ctx, o))
	}
	assert.ErrorIs(t, repo.Insert(ctx, o1), order.ErrConflict)

	got, err := repo.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Len(t, got.Lines, 2)
	assert.Equal(t, int64(100000), got.Lines[0].UnitPrice)
	assert.Equal(t, int64(280000), got.FinalTotal)

	_, err = repo.Get(ctx, "nope")
	assert.ErrorIs(t, err, order.ErrNotFound)

	// compare-and-swap on status
	got.Status = order.StatusProcessing
	require.NoError(t, repo.UpdateStatus(ctx, got, order.StatusPending))
	stale := got.Clone()
	stale.Status = order.StatusCancelled
	assert.ErrorIs(t, repo.UpdateStatus(ctx, stale, order.StatusPending), order.ErrConflict)

	delivered := got.Clone()
	delivered.Status = order.StatusShipping
	require.NoError(t, repo.UpdateStatus(ctx, delivered, order.StatusProcessing))
	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, delivered.TransitionTo(order.StatusDelivered, at))
	require.NoError(t, repo.UpdateStatus(ctx, delivered, order.StatusShipping))
	got, err = repo.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusDelivered, got.Status)
	require.NotNil(t, got.DeliveredAt)
	assert.True(t, at.Equal(*got.DeliveredAt))

	page, err := repo.List(ctx, order.Query{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, "o2", page.Orders[0].ID)

	page, err = repo.List(ctx, order.Query{PaymentMethod: order.PaymentCOD, Statuses: []order.Status{order.StatusPending}})
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, "o3", page.Orders[0].ID)

	minTotal := int64(300000)
	page, err = repo.List(ctx, order.Query{MinTotal: &minTotal})
	require.NoError(t, err)
	assert.Equal(t, int64(0), page.Total)

	page, err = repo.List(ctx, order.Query{Limit: 2, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, "o1", page.Orders[0].ID)

	require.NoError(t, repo.Delete(ctx, "o3"))
	_, err = repo.Get(ctx, "o3")
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func Requests(t *testing.T, repo order.RequestRepository) {
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.CreateCancel(ctx, &order.CancelRequest{ID: "c1", OrderID: "o1", UserID: "u1", Reason: "changed mind", Status: order.RequestApproved, CreatedAt: now}))
	require.NoError(t, repo.CreateCancel(ctx, &order.CancelRequest{ID: "c2", OrderID: "o2", UserID: "u2", Reason: "late", Status: order.RequestApproved, AdminCancel: true, CreatedAt: now}))
	mine, err := repo.ListCancels(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	all, err := repo.ListCancels(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	r1 := &order.ReturnRequest{ID: "r1", OrderID: "o1", LineID: "l1", UserID: "u1", Reason: "broken", Quantity: 1,
		Images: []order.ReturnImage{{URL: "https://cdn/1.jpg", PublicID: "img1"}}, Status: order.RequestPending, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.CreateReturn(ctx, r1))

	dup := r1.Clone()
	dup.ID = "r2"
	assert.ErrorIs(t, repo.CreateReturn(ctx, dup), order.ErrDuplicateRequest)

	got, err := repo.GetReturn(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, got.Images, 1)
	assert.Equal(t, "img1", got.Images[0].PublicID)

	_, err = repo.UpdateReturnStatus(ctx, "r1", order.RequestApproved, order.RequestCompleted, now)
	assert.ErrorIs(t, err, order.ErrConflict)
	updated, err := repo.UpdateReturnStatus(ctx, "r1", order.RequestPending, order.RequestRejected, now)
	require.NoError(t, err)
	assert.Equal(t, order.RequestRejected, updated.Status)

	// a rejected request no longer blocks a new one
	require.NoError(t, repo.CreateReturn(ctx, dup))
	list, err := repo.ListReturns(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = repo.GetReturn(ctx, "missing")
	assert.ErrorIs(t, err, order.ErrRequestNotFound)
}

func Payments(t *testing.T, repo payment.Repository) {
	ctx := context.Background()
	now := time.Now().UTC()
	rec := &payment.Record{ID: "p1", OrderID: "o1", UserID: "u1", Amount: 280000, Method: "COD", Status: payment.StatusPending, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.Insert(ctx, rec))

	got, err := repo.GetByOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, int64(280000), got.Amount)

	_, err = repo.UpdateStatus(ctx, "o1", []payment.Status{payment.StatusPaid}, payment.StatusRefunded, "")
	assert.ErrorIs(t, err, payment.ErrConflict)

	got, err = repo.UpdateStatus(ctx, "o1", []payment.Status{payment.StatusPending}, payment.StatusPaid, "ch_1")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPaid, got.Status)
	assert.Equal(t, "ch_1", got.Reference)

	require.NoError(t, repo.DeleteByOrder(ctx, "o1"))
	_, err = repo.GetByOrder(ctx, "o1")
	assert.ErrorIs(t, err, payment.ErrNotFound)
}

func Vouchers(t *testing.T, repo voucher.Repository, grants voucher.GrantRepository) {
	ctx := context.Background()
	now := time.Now().UTC()

	v, err := voucher.New(voucher.NewParams{ID: "vc1", Code: "SALE10", Kind: voucher.KindOrder, DiscountType: voucher.DiscountPercentage,
		DiscountValue: 10, MaxDiscount: 30000, StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour), Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, v))

	dup, _ := voucher.New(voucher.NewParams{ID: "vc2", Code: "sale10", Kind: voucher.KindShipping, DiscountType: voucher.DiscountFixed,
		DiscountValue: 10, StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour), Quantity: 1})
	assert.ErrorIs(t, repo.Create(ctx, dup), voucher.ErrCodeTaken)

	listed, err := repo.List(ctx, voucher.ListFilter{ActiveAt: &now})
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	require.NoError(t, repo.DecrementQuantity(ctx, "vc1"))
	assert.ErrorIs(t, repo.DecrementQuantity(ctx, "vc1"), voucher.ErrExhausted)
	listed, err = repo.List(ctx, voucher.ListFilter{ActiveAt: &now})
	require.NoError(t, err)
	assert.Empty(t, listed)
	require.NoError(t, repo.IncrementQuantity(ctx, "vc1"))
	got, err := repo.Get(ctx, "vc1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Quantity)
	assert.Equal(t, int64(30000), got.MaxDiscount)

	g := &voucher.Grant{ID: "g1", UserID: "u1", VoucherID: "vc1", Status: voucher.GrantAvailable, CreatedAt: now}
	require.NoError(t, grants.Create(ctx, g))
	assert.ErrorIs(t, grants.Create(ctx, &voucher.Grant{ID: "g2", UserID: "u1", VoucherID: "vc1", Status: voucher.GrantAvailable, CreatedAt: now}), voucher.ErrAlreadyClaimed)

	require.NoError(t, grants.MarkUsed(ctx, "u1", "vc1", now))
	assert.ErrorIs(t, grants.MarkUsed(ctx, "u1", "vc1", now), voucher.ErrGrantNotUsable)
	found, err := grants.Find(ctx, "u1", "vc1")
	require.NoError(t, err)
	assert.Equal(t, voucher.GrantUsed, found.Status)
	require.NotNil(t, found.UsedAt)

	require.NoError(t, grants.MarkAvailable(ctx, "u1", "vc1"))
	found, err = grants.Find(ctx, "u1", "vc1")
	require.NoError(t, err)
	assert.Equal(t, voucher.GrantAvailable, found.Status)
	assert.Nil(t, found.UsedAt)

	_, err = grants.Find(ctx, "u2", "vc1")
	assert.ErrorIs(t, err, voucher.ErrGrantNotFound)
	mine, err := grants.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func Notifications(t *testing.T, repo notification.Repository) {
	ctx := context.Background()
	now := time.Now().UTC()
	n1 := &notification.Notification{ID: "n1", Title: "Hello", Content: "c", Kind: notification.KindSystem, CreatedAt: now}
	n2 := &notification.Notification{ID: "n2", Title: "Order", Content: "c", Kind: notification.KindOrder, CreatedAt: now.Add(time.Second)}
	require.NoError(t, repo.Create(ctx, n1, []string{"u1", "u2", "u1"}))
	require.NoError(t, repo.Create(ctx, n2, []string{"u1"}))

	count, err := repo.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	for i := 0; i < 2; i++ {
		require.NoError(t, repo.MarkRead(ctx, "n1", "u1", now))
	}
	assert.ErrorIs(t, repo.MarkRead(ctx, "n2", "u2", now), notification.ErrNotFound)

	items, err := repo.ListForUser(ctx, "u1", false, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "n2", items[0].Notification.ID)
	assert.False(t, items[0].Read)
	assert.True(t, items[1].Read)

	unread, err := repo.ListForUser(ctx, "u1", true, 10)
	require.NoError(t, err)
	require.Len(t, unread, 1)

	n, err := repo.MarkAllRead(ctx, "u1", now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	count, err = repo.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	count, err = repo.UnreadCount(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func Carts(t *testing.T, repo cart.Repository) {
	ctx := context.Background()
	now := time.Now().UTC()

	first, err := repo.Add(ctx, &cart.Item{ID: "c1", UserID: "u1", VariantID: "v1", Quantity: 1, CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	merged, err := repo.Add(ctx, &cart.Item{ID: "c2", UserID: "u1", VariantID: "v1", Quantity: 2, CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	assert.Equal(t, first.ID, merged.ID)
	assert.Equal(t, 3, merged.Quantity)

	_, err = repo.Add(ctx, &cart.Item{ID: "c3", UserID: "u1", VariantID: "v2", Quantity: 1, CreatedAt: now.Add(time.Second), UpdatedAt: now})
	require.NoError(t, err)
	_, err = repo.Add(ctx, &cart.Item{ID: "c4", UserID: "u2", VariantID: "v1", Quantity: 1, CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)

	_, err = repo.UpdateQuantity(ctx, "u2", "c1", 5)
	assert.ErrorIs(t, err, cart.ErrNotFound)
	updated, err := repo.UpdateQuantity(ctx, "u1", "c1", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Quantity)

	require.NoError(t, repo.DeleteVariants(ctx, "u1", []string{"v1"}))
	items, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "v2", items[0].VariantID)

	assert.ErrorIs(t, repo.Delete(ctx, "u1", "c4"), cart.ErrNotFound)
	require.NoError(t, repo.Clear(ctx, "u1"))
	items, err = repo.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)

	others, err := repo.List(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, others, 1)
}

func Users(t *testing.T, repo user.Directory) {
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, &user.User{ID: "u2", Email: "b@shop.vn", Role: user.RoleUser}))
	require.NoError(t, repo.Save(ctx, &user.User{ID: "u1", Email: "a@shop.vn", Role: user.RoleUser}))
	require.NoError(t, repo.Save(ctx, &user.User{ID: "admin", Email: "admin@shop.vn", Role: user.RoleAdmin}))

	ids, err := repo.ListIDsByRole(ctx, user.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, ids)

	u, err := repo.Get(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, u.Role)

	_, err = repo.Get(ctx, "ghost")
	assert.ErrorIs(t, err, user.ErrNotFound)
}
