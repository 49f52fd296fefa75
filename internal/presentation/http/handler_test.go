package httppresentation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appcart "github.com/LoiPham2005/backend-doantotnghiep/internal/application/cart"
	appinventory "github.com/LoiPham2005/backend-doantotnghiep/internal/application/inventory"
	appnotification "github.com/LoiPham2005/backend-doantotnghiep/internal/application/notification"
	apporder "github.com/LoiPham2005/backend-doantotnghiep/internal/application/order"
	apppayment "github.com/LoiPham2005/backend-doantotnghiep/internal/application/payment"
	appvoucher "github.com/LoiPham2005/backend-doantotnghiep/internal/application/voucher"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/inventory"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/payment"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/user"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/infrastructure/id"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/infrastructure/memory"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/infrastructure/outbox"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/infrastructure/realtime"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/observability"
)

var (
	testNow    = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	testSecret = []byte("test-secret")
)

// fakeGateway accepts callbacks signed "valid" whose body is
// {"order_id":..., "paid":...}.
type fakeGateway struct{}

func (fakeGateway) CreatePayment(_ context.Context, req payment.CheckoutRequest) (payment.Link, error) {
	return payment.Link{URL: "https://pay.example/" + req.OrderID, Reference: "cs_" + req.OrderID}, nil
}

func (fakeGateway) CancelPayment(context.Context, string) error { return nil }

func (fakeGateway) VerifyCallback(_ context.Context, cb payment.Callback) (payment.CallbackResult, error) {
	if cb.Signature != "valid" {
		return payment.CallbackResult{}, fmt.Errorf("%w: bad signature", payment.ErrInvalidCallback)
	}
	var body struct {
		OrderID string `json:"order_id"`
		Paid    bool   `json:"paid"`
	}
	if err := json.Unmarshal(cb.Payload, &body); err != nil {
		return payment.CallbackResult{}, fmt.Errorf("%w: %v", payment.ErrInvalidCallback, err)
	}
	return payment.CallbackResult{OrderID: body.OrderID, Reference: "pi_" + body.OrderID, Paid: body.Paid}, nil
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	stock   *memory.InventoryRepository
	hub     *realtime.Hub
}

type response struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Details map[string]any  `json:"details"`
}

func newTestServer(t *testing.T, obs observability.Observability, metrics http.Handler) *testServer {
	t.Helper()
	ctx := context.Background()
	clock := func() time.Time { return testNow }
	ids := id.NewUUIDGenerator()

	s := &testServer{t: t, stock: memory.NewInventoryRepository(), hub: realtime.NewHub(nil)}
	for _, v := range []struct {
		id    string
		price int64
		stock int
	}{{"v1", 100000, 5}, {"v2", 50000, 1}} {
		variant, err := inventory.NewVariant(v.id, "p1", "SKU-"+v.id, v.price, v.stock)
		require.NoError(t, err)
		require.NoError(t, s.stock.Save(ctx, variant))
	}

	users := memory.NewUserRepository()
	for _, u := range []*user.User{
		{ID: "admin-1", Role: user.RoleAdmin},
		{ID: "u1", Role: user.RoleUser},
		{ID: "u2", Role: user.RoleUser},
	} {
		require.NoError(t, users.Save(ctx, u))
	}

	orders := memory.NewOrderRepository()
	payments := memory.NewPaymentRepository()
	requests := memory.NewRequestRepository()
	carts := memory.NewCartRepository()
	bus := outbox.NewBus(nil)

	ledger, err := appinventory.NewLedger(appinventory.LedgerDeps{Repo: s.stock, Clock: clock})
	require.NoError(t, err)
	validator, err := appvoucher.NewValidator(appvoucher.ValidatorDeps{
		Vouchers: memory.NewVoucherRepository(),
		Grants:   memory.NewGrantRepository(),
		Clock:    clock,
	})
	require.NoError(t, err)
	vouchers, err := appvoucher.NewService(appvoucher.ServiceDeps{Validator: validator, IDs: ids})
	require.NoError(t, err)
	dispatcher, err := appnotification.NewDispatcher(appnotification.DispatcherDeps{
		Repo:   memory.NewNotificationRepository(),
		Users:  users,
		PubSub: s.hub,
		IDs:    ids,
		Clock:  clock,
	})
	require.NoError(t, err)
	place, err := apporder.NewPlaceOrderUseCase(apporder.PlaceOrderDeps{
		Orders:      orders,
		Payments:    payments,
		Ledger:      ledger,
		Vouchers:    vouchers,
		Carts:       carts,
		Notifier:    dispatcher,
		Publisher:   bus,
		Gateway:     fakeGateway{},
		OrderIDs:    id.NewULIDGenerator(),
		IDs:         ids,
		ShippingFee: 30000,
		Clock:       clock,
	})
	require.NoError(t, err)
	machine, err := apporder.NewStateMachine(apporder.StateMachineDeps{
		Orders:    orders,
		Requests:  requests,
		Ledger:    ledger,
		Notifier:  dispatcher,
		Publisher: bus,
		IDs:       ids,
		Clock:     clock,
	})
	require.NoError(t, err)
	returns, err := apporder.NewReturns(apporder.ReturnsDeps{
		Orders:   orders,
		Requests: requests,
		Machine:  machine,
		Notifier: dispatcher,
		IDs:      ids,
		Clock:    clock,
	})
	require.NoError(t, err)
	queries, err := apporder.NewQueries(orders, payments)
	require.NoError(t, err)
	cartSvc, err := appcart.NewService(appcart.ServiceDeps{Repo: carts, Variants: ledger, IDs: ids, Clock: clock})
	require.NoError(t, err)
	paySvc, err := apppayment.NewService(apppayment.ServiceDeps{Payments: payments, Gateway: fakeGateway{}, Notifier: dispatcher})
	require.NoError(t, err)

	h, err := NewHandler(Services{
		PlaceOrder:    place,
		Machine:       machine,
		Returns:       returns,
		Orders:        queries,
		Cart:          cartSvc,
		Vouchers:      vouchers,
		Notifications: dispatcher,
		Ledger:        ledger,
		Payments:      paySvc,
		Users:         users,
		Stream:        s.hub,
	}, Options{JWTSecret: testSecret, Metrics: metrics, Obs: obs, Now: clock})
	require.NoError(t, err)
	s.handler = h.Router()
	return s
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := IssueToken(testSecret, userID, time.Hour, testNow)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(method, path, userID string, body any) (*httptest.ResponseRecorder, response) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(s.t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+token(s.t, userID))
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var resp response
	if rec.Header().Get("Content-Type") != "" && rec.Body.Len() > 0 && rec.Body.Bytes()[0] == '{' {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func decodeData(t *testing.T, resp response, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(resp.Data, dst))
}

func (s *testServer) stockOf(variantID string) int {
	s.t.Helper()
	v, err := s.stock.Get(context.Background(), variantID)
	require.NoError(s.t, err)
	return v.Quantity
}

func (s *testServer) placeCOD(userID string, qty int) orderDetailView {
	s.t.Helper()
	rec, resp := s.do(http.MethodPost, "/orders", userID, map[string]any{
		"address_id":     "addr-1",
		"orderDetails":   []map[string]any{{"variant_id": "v1", "quantity": qty}},
		"payment_method": "COD",
	})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	var view orderDetailView
	decodeData(s.t, resp, &view)
	return view
}
