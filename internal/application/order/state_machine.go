package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/application"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/application/apperr"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/inventory"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/notification"
	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/order"
	domoutbox "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/outbox"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/user"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/observability"
)

const (
	useCaseUpdateStatus = "order.update_status"
	useCaseCancel       = "order.cancel"
	useCaseApplyReturn  = "order.apply_return"
)

type StateMachineDeps struct {
	Orders    domain.Repository
	Requests  domain.RequestRepository
	Ledger    Ledger
	Notifier  Notifier
	Publisher domoutbox.Publisher
	IDs       application.IDGenerator
	Obs       observability.Observability
	Clock     application.Clock
}

// StateMachine is the only writer of order status. Each transition is a
// compare-and-swap on the stored status followed by its side effects.
type StateMachine struct {
	orders    domain.Repository
	requests  domain.RequestRepository
	ledger    Ledger
	notifier  Notifier
	publisher domoutbox.Publisher
	ids       application.IDGenerator
	ins       *application.Instruments
	now       application.Clock
}

func NewStateMachine(deps StateMachineDeps) (*StateMachine, error) {
	switch {
	case deps.Orders == nil || deps.Requests == nil:
		return nil, errors.New("order: order and request repositories are required")
	case deps.Ledger == nil:
		return nil, errors.New("order: inventory ledger is required")
	case deps.IDs == nil:
		return nil, errors.New("order: id generator is required")
	}
	return &StateMachine{
		orders:    deps.Orders,
		requests:  deps.Requests,
		ledger:    deps.Ledger,
		notifier:  deps.Notifier,
		publisher: deps.Publisher,
		ids:       deps.IDs,
		ins:       application.NewInstruments(deps.Obs, orderService),
		now:       deps.Clock.OrSystem(),
	}, nil
}

type TransitionCommand struct {
	OrderID   string
	To        domain.Status
	ActorID   string
	ActorRole user.Role
	Reason    string
}

// UpdateStatus is the staff-facing transition. Delivered to returned is a
// legal pair but is rejected here: it is only reachable by approving a return
// request.
func (sm *StateMachine) UpdateStatus(ctx context.Context, cmd TransitionCommand) (_ *domain.Order, err error) {
	ctx, run := sm.ins.Start(ctx, useCaseUpdateStatus, "UpdateStatus",
		attribute.String("order.id", cmd.OrderID),
		attribute.String("order.to", string(cmd.To)),
	)
	defer func() { run.End(err) }()

	if cmd.ActorRole != user.RoleAdmin {
		run.Fail("FORBIDDEN")
		return nil, apperr.Forbidden("only staff can change order status")
	}
	if _, err := domain.ParseStatus(string(cmd.To)); err != nil {
		run.Fail("STATUS_INVALID")
		return nil, err
	}

	o, err := sm.orders.Get(ctx, cmd.OrderID)
	if err != nil {
		run.Fail("ORDER_LOAD_FAILED")
		return nil, fmt.Errorf("order: get: %w", err)
	}
	if !domain.CanTransition(o.Status, cmd.To) {
		run.Fail("TRANSITION_INVALID")
		return nil, &domain.InvalidTransitionError{From: o.Status, To: cmd.To}
	}
	if cmd.To == domain.StatusReturned {
		run.Fail("STATUS_INVALID")
		return nil, apperr.Validation("status %s is set by approving a return request", cmd.To)
	}
	var detail string
	if reason := strings.TrimSpace(cmd.Reason); reason != "" {
		detail = "Lý do từ admin: " + reason
	}
	if err := sm.transition(ctx, run, o, cmd.To, detail); err != nil {
		return nil, err
	}
	return o, nil
}

type CancelCommand struct {
	OrderID string
	UserID  string
	Reason  string
	// Admin cancels on behalf of the shop and skips the ownership check.
	Admin bool
}

// Cancel is the customer or staff cancellation. It is allowed only while the
// order is pending or processing and leaves an approved audit record.
func (sm *StateMachine) Cancel(ctx context.Context, cmd CancelCommand) (_ *domain.Order, _ *domain.CancelRequest, err error) {
	ctx, run := sm.ins.Start(ctx, useCaseCancel, "CancelOrder",
		attribute.String("order.id", cmd.OrderID),
		attribute.Bool("order.admin_cancel", cmd.Admin),
	)
	defer func() { run.End(err) }()

	reason := strings.TrimSpace(cmd.Reason)
	if cmd.OrderID == "" || cmd.UserID == "" || reason == "" {
		run.Fail("INPUT_INVALID")
		return nil, nil, apperr.Validation("order id, user id and reason are required")
	}

	o, err := sm.orders.Get(ctx, cmd.OrderID)
	if err != nil {
		run.Fail("ORDER_LOAD_FAILED")
		return nil, nil, fmt.Errorf("order: get: %w", err)
	}
	if !cmd.Admin && o.UserID != cmd.UserID {
		run.Fail("FORBIDDEN")
		return nil, nil, apperr.Forbidden("order %s belongs to another user", o.ID)
	}
	if !o.Status.UserCancellable() {
		run.Fail("STATE_TRANSITION_INVALID")
		return nil, nil, &domain.InvalidTransitionError{From: o.Status, To: domain.StatusCancelled}
	}

	label := "Lý do: "
	if cmd.Admin {
		label = "Lý do từ admin: "
	}
	if err := sm.transition(ctx, run, o, domain.StatusCancelled, label+reason); err != nil {
		return nil, nil, err
	}

	req := &domain.CancelRequest{
		ID:          sm.ids.NewID(),
		OrderID:     o.ID,
		UserID:      cmd.UserID,
		Reason:      reason,
		Status:      domain.RequestApproved,
		AdminCancel: cmd.Admin,
		CreatedAt:   sm.now(),
	}
	if err := sm.requests.CreateCancel(ctx, req); err != nil {
		// The cancellation itself has committed; only the audit row is missing.
		run.SetStatus("AUDIT_WRITE_FAILED")
		run.Logger().Error("cancel_audit_failed",
			observability.F("order_id", o.ID),
			observability.F("error", err.Error()),
		)
	}
	return o, req, nil
}

// ApplyReturn moves a delivered order to returned for an approved request and
// puts the returned units back in stock.
func (sm *StateMachine) ApplyReturn(ctx context.Context, req *domain.ReturnRequest) (_ *domain.Order, err error) {
	ctx, run := sm.ins.Start(ctx, useCaseApplyReturn, "ApplyReturn",
		attribute.String("order.id", req.OrderID),
		attribute.String("return.id", req.ID),
	)
	defer func() { run.End(err) }()

	o, err := sm.orders.Get(ctx, req.OrderID)
	if err != nil {
		run.Fail("ORDER_LOAD_FAILED")
		return nil, fmt.Errorf("order: get: %w", err)
	}
	line, ok := o.Line(req.LineID)
	if !ok {
		run.Fail("LINE_NOT_FOUND")
		return nil, fmt.Errorf("%w: line %s is not part of order %s", domain.ErrInvalidReturn, req.LineID, o.ID)
	}
	if err := sm.transition(ctx, run, o, domain.StatusReturned, ""); err != nil {
		return nil, err
	}

	if _, err := sm.ledger.Release(ctx, inventory.Request{
		Key:       "return:" + req.ID,
		OrderID:   o.ID,
		VariantID: line.VariantID,
		Quantity:  req.Quantity,
	}); err != nil {
		run.SetStatus("STOCK_RELEASE_FAILED")
		run.Logger().Error("return_stock_release_failed",
			observability.F("order_id", o.ID),
			observability.F("variant_id", line.VariantID),
			observability.F("error", err.Error()),
		)
	}
	return o, nil
}

// transition applies one table move and, once committed, its side effects.
// On error the order in memory and in the store are left unchanged.
func (sm *StateMachine) transition(ctx context.Context, run *application.Run, o *domain.Order, to domain.Status, detail string) error {
	from := o.Status
	next := o.Clone()
	if err := next.TransitionTo(to, sm.now()); err != nil {
		run.Fail("STATE_TRANSITION_INVALID")
		return err
	}
	if err := sm.orders.UpdateStatus(ctx, next, from); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			run.Fail("STATUS_CONFLICT")
		} else {
			run.Fail("ORDER_UPDATE_FAILED")
		}
		return fmt.Errorf("order: update status: %w", err)
	}
	*o = *next
	run.Annotate(
		observability.F("from", string(from)),
		observability.F("to", string(to)),
	)

	if to == domain.StatusCancelled {
		sm.releaseLines(ctx, run, o)
	}
	sm.notifyOwner(ctx, run, o, detail)
	sm.publish(ctx, run, domain.NewStatusChangedEvent(o, from))
	return nil
}

// releaseLines returns every reserved unit of a cancelled order. Keys are
// per order and variant, so a retried cancellation cannot credit twice.
func (sm *StateMachine) releaseLines(ctx context.Context, run *application.Run, o *domain.Order) {
	for _, l := range o.Lines {
		if _, err := sm.ledger.Release(ctx, inventory.Request{
			Key:       "cancel:" + o.ID + ":" + l.VariantID,
			OrderID:   o.ID,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
		}); err != nil {
			run.SetStatus("STOCK_RELEASE_FAILED")
			run.Logger().Error("cancel_stock_release_failed",
				observability.F("order_id", o.ID),
				observability.F("variant_id", l.VariantID),
				observability.F("error", err.Error()),
			)
		}
	}
}

func (sm *StateMachine) notifyOwner(ctx context.Context, run *application.Run, o *domain.Order, detail string) {
	if sm.notifier == nil {
		return
	}
	title, content := statusMessage(o)
	if detail != "" {
		content += " " + detail
	}
	if _, err := sm.notifier.Notify(ctx, notification.Request{
		Recipients: notification.Recipients{UserIDs: []string{o.UserID}},
		Title:      title,
		Content:    content,
		Kind:       notification.KindOrder,
	}); err != nil {
		run.SetStatus("OWNER_NOTIFY_FAILED")
		run.Logger().Warn("owner_notify_failed",
			observability.F("order_id", o.ID),
			observability.F("error", err.Error()),
		)
	}
}

func (sm *StateMachine) publish(ctx context.Context, run *application.Run, evt domain.StatusChangedEvent) {
	if sm.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := sm.ins.External(pubCtx, publishPeer, evt.EventName(), func(ctx context.Context) error {
		return sm.publisher.Publish(ctx, evt)
	}); err != nil {
		run.SetStatus("EVENT_PUBLISH_FAILED")
		run.Annotate(observability.F("event_publish_error", err.Error()))
	}
}

func statusMessage(o *domain.Order) (title, content string) {
	ref := "Đơn hàng #" + o.ShortID()
	switch o.Status {
	case domain.StatusProcessing:
		return "Đơn hàng đang được xử lý", ref + " đã được xác nhận và đang được chuẩn bị."
	case domain.StatusShipping:
		return "Đơn hàng đang được giao", ref + " đã được giao cho đơn vị vận chuyển."
	case domain.StatusDelivered:
		return "Đơn hàng đã giao thành công", ref + " đã được giao thành công."
	case domain.StatusCancelled:
		return "Đơn hàng đã bị hủy", ref + " đã bị hủy."
	case domain.StatusReturned:
		return "Đơn hàng đã được hoàn trả", ref + " đã được hoàn trả."
	default:
		return "Cập nhật đơn hàng", ref + " chuyển sang trạng thái " + string(o.Status) + "."
	}
}
