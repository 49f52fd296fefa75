package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	inventoryapp "github.com/LoiPham2005/backend-doantotnghiep/internal/application/inventory"
	notificationapp "github.com/LoiPham2005/backend-doantotnghiep/internal/application/notification"
	voucherapp "github.com/LoiPham2005/backend-doantotnghiep/internal/application/voucher"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/inventory"
	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/order"
	domoutbox "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/outbox"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/payment"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/user"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/voucher"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/infrastructure/id"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/infrastructure/memory"
)

const (
	testShippingFee = 30000
	adminID         = "admin-1"
)

var testNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type fakeGateway struct {
	mu        sync.Mutex
	err       error
	calls     int
	cancelled []string
}

func (g *fakeGateway) CreatePayment(_ context.Context, req payment.CheckoutRequest) (payment.Link, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return payment.Link{}, g.err
	}
	return payment.Link{URL: "https://pay.example/" + req.OrderID, Reference: "cs_" + req.OrderID}, nil
}

func (g *fakeGateway) CancelPayment(_ context.Context, reference string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelled = append(g.cancelled, reference)
	return nil
}

func (g *fakeGateway) VerifyCallback(context.Context, payment.Callback) (payment.CallbackResult, error) {
	return payment.CallbackResult{}, errors.New("not used")
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domoutbox.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventName())
	}
	return out
}

// failingLedger lets the first reservations through and fails on one variant.
type failingLedger struct {
	Ledger
	failOn string
}

func (l failingLedger) Reserve(ctx context.Context, req inventory.Request) (*inventory.Variant, error) {
	if req.VariantID == l.failOn {
		return nil, &inventory.InsufficientStockError{VariantID: req.VariantID, Requested: req.Quantity}
	}
	return l.Ledger.Reserve(ctx, req)
}

// failingPayments rejects every insert.
type failingPayments struct {
	*memory.PaymentRepository
}

func (failingPayments) Insert(context.Context, *payment.Record) error {
	return errors.New("disk full")
}

type env struct {
	place    *PlaceOrderUseCase
	machine  *StateMachine
	returns  *Returns
	queries  *Queries
	ledger   *inventoryapp.Ledger
	vouchers *voucherapp.Service
	inbox    *notificationapp.Dispatcher

	stock       *memory.InventoryRepository
	orders      *memory.OrderRepository
	payments    *memory.PaymentRepository
	requests    *memory.RequestRepository
	voucherRepo *memory.VoucherRepository
	grants      *memory.GrantRepository
	carts       *memory.CartRepository
	gateway     *fakeGateway
	events      *recordingPublisher
}

type variantSeed struct {
	price int64
	stock int
}

func newEnv(t *testing.T, variants map[string]variantSeed) *env {
	t.Helper()
	ctx := context.Background()
	clock := func() time.Time { return testNow }
	ids := id.NewUUIDGenerator()

	e := &env{
		stock:       memory.NewInventoryRepository(),
		orders:      memory.NewOrderRepository(),
		payments:    memory.NewPaymentRepository(),
		requests:    memory.NewRequestRepository(),
		voucherRepo: memory.NewVoucherRepository(),
		grants:      memory.NewGrantRepository(),
		carts:       memory.NewCartRepository(),
		gateway:     &fakeGateway{},
		events:      &recordingPublisher{},
	}
	for vid, seed := range variants {
		v, err := inventory.NewVariant(vid, "product-1", "SKU-"+vid, seed.price, seed.stock)
		require.NoError(t, err)
		require.NoError(t, e.stock.Save(ctx, v))
	}

	users := memory.NewUserRepository()
	for _, u := range []*user.User{
		{ID: adminID, Role: user.RoleAdmin},
		{ID: "u1", Role: user.RoleUser},
		{ID: "u2", Role: user.RoleUser},
	} {
		require.NoError(t, users.Save(ctx, u))
	}

	var err error
	e.ledger, err = inventoryapp.NewLedger(inventoryapp.LedgerDeps{Repo: e.stock, Clock: clock})
	require.NoError(t, err)
	validator, err := voucherapp.NewValidator(voucherapp.ValidatorDeps{Vouchers: e.voucherRepo, Grants: e.grants, Clock: clock})
	require.NoError(t, err)
	e.vouchers, err = voucherapp.NewService(voucherapp.ServiceDeps{Validator: validator, IDs: ids})
	require.NoError(t, err)
	e.inbox, err = notificationapp.NewDispatcher(notificationapp.DispatcherDeps{
		Repo:  memory.NewNotificationRepository(),
		Users: users,
		IDs:   ids,
		Clock: clock,
	})
	require.NoError(t, err)

	e.place, err = NewPlaceOrderUseCase(PlaceOrderDeps{
		Orders:      e.orders,
		Payments:    e.payments,
		Ledger:      e.ledger,
		Vouchers:    e.vouchers,
		Carts:       e.carts,
		Notifier:    e.inbox,
		Publisher:   e.events,
		Gateway:     e.gateway,
		OrderIDs:    id.NewULIDGenerator(),
		IDs:         ids,
		ShippingFee: testShippingFee,
		Clock:       clock,
	})
	require.NoError(t, err)
	e.machine, err = NewStateMachine(StateMachineDeps{
		Orders:    e.orders,
		Requests:  e.requests,
		Ledger:    e.ledger,
		Notifier:  e.inbox,
		Publisher: e.events,
		IDs:       ids,
		Clock:     clock,
	})
	require.NoError(t, err)
	e.returns, err = NewReturns(ReturnsDeps{
		Orders:   e.orders,
		Requests: e.requests,
		Machine:  e.machine,
		Notifier: e.inbox,
		IDs:      ids,
		Clock:    clock,
	})
	require.NoError(t, err)
	e.queries, err = NewQueries(e.orders, e.payments)
	require.NoError(t, err)
	return e
}

func (e *env) stockOf(t *testing.T, variantID string) int {
	t.Helper()
	v, err := e.stock.Get(context.Background(), variantID)
	require.NoError(t, err)
	return v.Quantity
}

func (e *env) placeCOD(t *testing.T, userID string, lines ...LineInput) *domain.Order {
	t.Helper()
	res, err := e.place.Execute(context.Background(), PlaceOrderInput{
		UserID:        userID,
		AddressID:     "addr-1",
		Lines:         lines,
		PaymentMethod: domain.PaymentCOD,
	})
	require.NoError(t, err)
	return res.Order
}

func (e *env) advance(t *testing.T, orderID string, path ...domain.Status) {
	t.Helper()
	for _, to := range path {
		_, err := e.machine.UpdateStatus(context.Background(), TransitionCommand{
			OrderID: orderID, To: to, ActorID: adminID, ActorRole: user.RoleAdmin,
		})
		require.NoError(t, err, "transition to %s", to)
	}
}

func (e *env) claimedVoucher(t *testing.T, userID string, in voucherapp.CreateInput) *voucher.Voucher {
	t.Helper()
	ctx := context.Background()
	in.StartDate = testNow.Add(-time.Hour)
	in.EndDate = testNow.Add(24 * time.Hour)
	if in.Quantity == 0 {
		in.Quantity = 5
	}
	v, err := e.vouchers.Create(ctx, in)
	require.NoError(t, err)
	_, err = e.vouchers.Claim(ctx, userID, v.ID)
	require.NoError(t, err)
	return v
}
