package payment

import (
	"context"

	domorder "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/order"
	domoutbox "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/outbox"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/observability"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/observability/logctx"
)

const paymentWorker = "payment_worker"

// Worker settles payment records when orders change status.
type Worker struct {
	subscriber domoutbox.Subscriber
	service    *Service
	log        observability.Logger
}

func NewWorker(subscriber domoutbox.Subscriber, service *Service, obs observability.Observability) *Worker {
	return &Worker{
		subscriber: subscriber,
		service:    service,
		log:        observability.OrNop(obs).Logger().With(observability.F("component", paymentWorker)),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil || w.service == nil {
		return
	}
	w.subscriber.Subscribe(domorder.StatusChangedEvent{}.EventName(), w.handleStatusChanged)
}

func (w *Worker) handleStatusChanged(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.StatusChangedEvent)
	if !ok {
		return nil
	}
	logger := logctx.FromOr(ctx, w.log).With(
		observability.F("event", e.EventName()),
		observability.F("order_id", evt.OrderID),
	)

	rec, err := w.service.Settle(ctx, evt)
	if err != nil {
		logger.Warn("payment_settle_failed", observability.F("error", err.Error()))
		return err
	}
	if rec != nil {
		logger.Info("payment_settled", observability.F("payment_status", string(rec.Status)))
	}
	return nil
}
