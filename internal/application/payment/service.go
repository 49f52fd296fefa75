package payment

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/application"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/application/apperr"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/notification"
	domorder "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/order"
	dompay "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/payment"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/observability"
)

const (
	paymentService  = "payment-service"
	useCaseCallback = "payment.callback"
	useCaseSettle   = "payment.settle"
	gatewayPeer     = "payment_gateway"
)

// Notifier is the slice of the notification dispatcher payments use.
type Notifier interface {
	Notify(ctx context.Context, req notification.Request) (*notification.Notification, error)
}

type ServiceDeps struct {
	Payments dompay.Repository
	Gateway  dompay.Gateway
	Notifier Notifier
	Obs      observability.Observability
}

// Service keeps payment records in step with the gateway and with the order
// lifecycle. It never changes order status.
type Service struct {
	payments dompay.Repository
	gateway  dompay.Gateway
	notifier Notifier
	ins      *application.Instruments
}

func NewService(deps ServiceDeps) (*Service, error) {
	if deps.Payments == nil {
		return nil, errors.New("payment: repository is required")
	}
	return &Service{
		payments: deps.Payments,
		gateway:  deps.Gateway,
		notifier: deps.Notifier,
		ins:      application.NewInstruments(deps.Obs, paymentService),
	}, nil
}

func (s *Service) Get(ctx context.Context, orderID string) (*dompay.Record, error) {
	return s.payments.GetByOrder(ctx, orderID)
}

// HandleCallback verifies a gateway webhook and marks the pending record paid
// or failed. Replays of an applied callback return the stored record. A nil
// record with a nil error means the webhook was not about a payment.
func (s *Service) HandleCallback(ctx context.Context, cb dompay.Callback) (_ *dompay.Record, err error) {
	ctx, run := s.ins.Start(ctx, useCaseCallback, "PaymentCallback")
	defer func() { run.End(err) }()

	if s.gateway == nil {
		run.Fail("GATEWAY_DISABLED")
		return nil, apperr.Validation("banking payments are not enabled")
	}

	var res dompay.CallbackResult
	err = s.ins.External(ctx, gatewayPeer, "verify_callback", func(ctx context.Context) error {
		var verr error
		res, verr = s.gateway.VerifyCallback(ctx, cb)
		return verr
	})
	switch {
	case errors.Is(err, dompay.ErrIgnoredEvent):
		run.SetStatus("IGNORED")
		return nil, nil
	case err != nil:
		run.Fail("CALLBACK_REJECTED")
		return nil, err
	}

	to := dompay.StatusFailed
	if res.Paid {
		to = dompay.StatusPaid
	}
	run.Span().SetAttributes(
		attribute.String("order.id", res.OrderID),
		attribute.String("payment.status", string(to)),
	)
	run.Annotate(observability.F("order_id", res.OrderID))

	rec, err := s.payments.UpdateStatus(ctx, res.OrderID, []dompay.Status{dompay.StatusPending}, to, res.Reference)
	if errors.Is(err, dompay.ErrConflict) {
		current, getErr := s.payments.GetByOrder(ctx, res.OrderID)
		if getErr == nil && current.Status == to {
			run.SetStatus("REPLAYED")
			return current, nil
		}
	}
	if err != nil {
		run.Fail("PAYMENT_UPDATE_FAILED")
		return nil, fmt.Errorf("payment: update status: %w", err)
	}

	s.notifyOwner(ctx, run, rec)
	return rec, nil
}

// Settle applies the payment consequence of an order transition:
// COD orders are paid on delivery, cancelled orders void or refund, and
// returned orders refund.
func (s *Service) Settle(ctx context.Context, evt domorder.StatusChangedEvent) (_ *dompay.Record, err error) {
	ctx, run := s.ins.Start(ctx, useCaseSettle, "SettlePayment",
		attribute.String("order.id", evt.OrderID),
		attribute.String("order.to", string(evt.To)),
	)
	defer func() { run.End(err) }()

	var (
		from []dompay.Status
		to   dompay.Status
	)
	switch evt.To {
	case domorder.StatusDelivered:
		if evt.PaymentMethod != domorder.PaymentCOD {
			run.SetStatus("NOOP")
			return nil, nil
		}
		from, to = []dompay.Status{dompay.StatusPending}, dompay.StatusPaid
	case domorder.StatusCancelled, domorder.StatusReturned:
		rec, err := s.payments.GetByOrder(ctx, evt.OrderID)
		if err != nil {
			run.Fail("PAYMENT_LOAD_FAILED")
			return nil, fmt.Errorf("payment: get: %w", err)
		}
		switch {
		case rec.Status == dompay.StatusPaid:
			from, to = []dompay.Status{dompay.StatusPaid}, dompay.StatusRefunded
		case rec.Status == dompay.StatusPending && evt.To == domorder.StatusCancelled:
			from, to = []dompay.Status{dompay.StatusPending}, dompay.StatusCancelled
		default:
			run.SetStatus("NOOP")
			return rec, nil
		}
	default:
		run.SetStatus("NOOP")
		return nil, nil
	}

	rec, err := s.payments.UpdateStatus(ctx, evt.OrderID, from, to, "")
	if err != nil {
		run.Fail("PAYMENT_UPDATE_FAILED")
		return nil, fmt.Errorf("payment: update status: %w", err)
	}
	run.Annotate(observability.F("payment_status", string(rec.Status)))
	return rec, nil
}

func (s *Service) notifyOwner(ctx context.Context, run *application.Run, rec *dompay.Record) {
	if s.notifier == nil || rec.Status != dompay.StatusPaid {
		return
	}
	ref := (&domorder.Order{ID: rec.OrderID}).ShortID()
	if _, err := s.notifier.Notify(ctx, notification.Request{
		Recipients: notification.Recipients{UserIDs: []string{rec.UserID}},
		Title:      "Thanh toán thành công",
		Content:    "Đơn hàng #" + ref + " đã được thanh toán.",
		Kind:       notification.KindOrder,
	}); err != nil {
		run.SetStatus("OWNER_NOTIFY_FAILED")
		run.Logger().Warn("owner_notify_failed",
			observability.F("order_id", rec.OrderID),
			observability.F("error", err.Error()),
		)
	}
}
