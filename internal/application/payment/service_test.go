package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/application/apperr"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/notification"
	domorder "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/order"
	domoutbox "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/outbox"
	dompay "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/payment"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/infrastructure/memory"
)

type stubGateway struct {
	result dompay.CallbackResult
	err    error
}

func (g stubGateway) CreatePayment(context.Context, dompay.CheckoutRequest) (dompay.Link, error) {
	return dompay.Link{}, errors.New("not used")
}

func (g stubGateway) CancelPayment(context.Context, string) error { return nil }

func (g stubGateway) VerifyCallback(context.Context, dompay.Callback) (dompay.CallbackResult, error) {
	return g.result, g.err
}

type countingNotifier struct{ titles []string }

func (n *countingNotifier) Notify(_ context.Context, req notification.Request) (*notification.Notification, error) {
	n.titles = append(n.titles, req.Title)
	return &notification.Notification{Title: req.Title}, nil
}

func seedRecord(t *testing.T, repo *memory.PaymentRepository, orderID, method string, status dompay.Status) {
	t.Helper()
	require.NoError(t, repo.Insert(context.Background(), &dompay.Record{
		ID:        "pay-" + orderID,
		OrderID:   orderID,
		UserID:    "u1",
		Amount:    100000,
		Method:    method,
		Status:    status,
		CreatedAt: time.Now(),
	}))
}

func TestHandleCallback(t *testing.T) {
	ctx := context.Background()

	t.Run("paid callback marks record and notifies owner", func(t *testing.T) {
		repo := memory.NewPaymentRepository()
		seedRecord(t, repo, "o1", "banking", dompay.StatusPending)
		notifier := &countingNotifier{}
		svc, err := NewService(ServiceDeps{
			Payments: repo,
			Gateway:  stubGateway{result: dompay.CallbackResult{OrderID: "o1", Reference: "pi_1", Paid: true}},
			Notifier: notifier,
		})
		require.NoError(t, err)

		rec, err := svc.HandleCallback(ctx, dompay.Callback{Payload: []byte("{}")})
		require.NoError(t, err)
		assert.Equal(t, dompay.StatusPaid, rec.Status)
		assert.Equal(t, "pi_1", rec.Reference)
		assert.Equal(t, []string{"Thanh toán thành công"}, notifier.titles)

		again, err := svc.HandleCallback(ctx, dompay.Callback{Payload: []byte("{}")})
		require.NoError(t, err, "a replayed webhook is accepted")
		assert.Equal(t, dompay.StatusPaid, again.Status)
	})

	t.Run("unpaid callback marks failed", func(t *testing.T) {
		repo := memory.NewPaymentRepository()
		seedRecord(t, repo, "o1", "banking", dompay.StatusPending)
		svc, err := NewService(ServiceDeps{
			Payments: repo,
			Gateway:  stubGateway{result: dompay.CallbackResult{OrderID: "o1"}},
		})
		require.NoError(t, err)

		rec, err := svc.HandleCallback(ctx, dompay.Callback{})
		require.NoError(t, err)
		assert.Equal(t, dompay.StatusFailed, rec.Status)
	})

	t.Run("ignored and rejected callbacks", func(t *testing.T) {
		repo := memory.NewPaymentRepository()
		svc, err := NewService(ServiceDeps{Payments: repo, Gateway: stubGateway{err: dompay.ErrIgnoredEvent}})
		require.NoError(t, err)
		rec, err := svc.HandleCallback(ctx, dompay.Callback{})
		require.NoError(t, err)
		assert.Nil(t, rec)

		svc, err = NewService(ServiceDeps{Payments: repo, Gateway: stubGateway{err: dompay.ErrInvalidCallback}})
		require.NoError(t, err)
		_, err = svc.HandleCallback(ctx, dompay.Callback{})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("gateway disabled", func(t *testing.T) {
		svc, err := NewService(ServiceDeps{Payments: memory.NewPaymentRepository()})
		require.NoError(t, err)
		_, err = svc.HandleCallback(ctx, dompay.Callback{})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})
}

func TestSettle(t *testing.T) {
	tests := []struct {
		name    string
		method  domorder.PaymentMethod
		initial dompay.Status
		to      domorder.Status
		want    dompay.Status
	}{
		{"cod delivered is paid", domorder.PaymentCOD, dompay.StatusPending, domorder.StatusDelivered, dompay.StatusPaid},
		{"banking delivered is untouched", domorder.PaymentBanking, dompay.StatusPending, domorder.StatusDelivered, dompay.StatusPending},
		{"pending cancelled is voided", domorder.PaymentCOD, dompay.StatusPending, domorder.StatusCancelled, dompay.StatusCancelled},
		{"paid cancelled is refunded", domorder.PaymentBanking, dompay.StatusPaid, domorder.StatusCancelled, dompay.StatusRefunded},
		{"paid returned is refunded", domorder.PaymentCOD, dompay.StatusPaid, domorder.StatusReturned, dompay.StatusRefunded},
		{"failed cancelled is untouched", domorder.PaymentBanking, dompay.StatusFailed, domorder.StatusCancelled, dompay.StatusFailed},
		{"processing is untouched", domorder.PaymentCOD, dompay.StatusPending, domorder.StatusProcessing, dompay.StatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			repo := memory.NewPaymentRepository()
			seedRecord(t, repo, "o1", string(tt.method), tt.initial)
			svc, err := NewService(ServiceDeps{Payments: repo})
			require.NoError(t, err)

			_, err = svc.Settle(ctx, domorder.StatusChangedEvent{OrderID: "o1", To: tt.to, PaymentMethod: tt.method})
			require.NoError(t, err)

			rec, err := svc.Get(ctx, "o1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.Status)
		})
	}
}

type captureSubscriber struct {
	handlers map[string]domoutbox.Handler
}

func (s *captureSubscriber) Subscribe(name string, h domoutbox.Handler) {
	if s.handlers == nil {
		s.handlers = make(map[string]domoutbox.Handler)
	}
	s.handlers[name] = h
}

func TestWorkerSettlesOnStatusChange(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewPaymentRepository()
	seedRecord(t, repo, "o1", "COD", dompay.StatusPending)
	svc, err := NewService(ServiceDeps{Payments: repo})
	require.NoError(t, err)

	sub := &captureSubscriber{}
	NewWorker(sub, svc, nil).Start()
	h, ok := sub.handlers["order.status_changed"]
	require.True(t, ok)

	require.NoError(t, h(ctx, domorder.StatusChangedEvent{OrderID: "o1", To: domorder.StatusDelivered, PaymentMethod: domorder.PaymentCOD}))
	rec, err := svc.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, dompay.StatusPaid, rec.Status)

	assert.NoError(t, h(ctx, domorder.PlacedEvent{OrderID: "o1"}), "other events are ignored")
	assert.Error(t, h(ctx, domorder.StatusChangedEvent{OrderID: "missing", To: domorder.StatusCancelled}))
}
