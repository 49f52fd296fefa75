package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/application"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/application/apperr"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/notification"
	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/order"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/observability"
)

const (
	useCaseRequestReturn = "order.request_return"
	useCaseReviewReturn  = "order.review_return"
)

type ReturnsDeps struct {
	Orders   domain.Repository
	Requests domain.RequestRepository
	Machine  *StateMachine
	Notifier Notifier
	IDs      application.IDGenerator
	Obs      observability.Observability
	Clock    application.Clock
}

// Returns handles return requests. Approving one drives the order to returned
// through the StateMachine.
type Returns struct {
	orders   domain.Repository
	requests domain.RequestRepository
	machine  *StateMachine
	notifier Notifier
	ids      application.IDGenerator
	ins      *application.Instruments
	now      application.Clock
}

func NewReturns(deps ReturnsDeps) (*Returns, error) {
	if deps.Orders == nil || deps.Requests == nil || deps.Machine == nil || deps.IDs == nil {
		return nil, errors.New("order: repositories, state machine and id generator are required")
	}
	return &Returns{
		orders:   deps.Orders,
		requests: deps.Requests,
		machine:  deps.Machine,
		notifier: deps.Notifier,
		ids:      deps.IDs,
		ins:      application.NewInstruments(deps.Obs, orderService),
		now:      deps.Clock.OrSystem(),
	}, nil
}

type ReturnCommand struct {
	OrderID  string
	UserID   string
	LineID   string
	Quantity int
	Reason   string
	Images   []domain.ReturnImage
}

// Request opens a return for one line of a delivered order. Only one
// non-rejected request may exist per order.
func (r *Returns) Request(ctx context.Context, cmd ReturnCommand) (_ *domain.ReturnRequest, err error) {
	ctx, run := r.ins.Start(ctx, useCaseRequestReturn, "RequestReturn",
		attribute.String("order.id", cmd.OrderID),
	)
	defer func() { run.End(err) }()

	if cmd.OrderID == "" || cmd.UserID == "" || cmd.LineID == "" {
		run.Fail("INPUT_INVALID")
		return nil, apperr.Validation("order id, user id and line id are required")
	}
	o, err := r.orders.Get(ctx, cmd.OrderID)
	if err != nil {
		run.Fail("ORDER_LOAD_FAILED")
		return nil, fmt.Errorf("order: get: %w", err)
	}
	if o.UserID != cmd.UserID {
		run.Fail("FORBIDDEN")
		return nil, apperr.Forbidden("order %s belongs to another user", o.ID)
	}

	req, err := domain.NewReturnRequest(r.ids.NewID(), o, cmd.LineID, cmd.UserID,
		strings.TrimSpace(cmd.Reason), cmd.Quantity, cmd.Images)
	if err != nil {
		run.Fail("RETURN_INVALID")
		return nil, err
	}
	req.CreatedAt = r.now()
	req.UpdatedAt = req.CreatedAt
	if err := r.requests.CreateReturn(ctx, req); err != nil {
		run.Fail("REPO_INSERT_FAILED")
		return nil, fmt.Errorf("order: create return: %w", err)
	}
	return req, nil
}

// Review moves a return request along pending -> approved|rejected and
// approved -> completed. Approval returns the order and restocks the line.
func (r *Returns) Review(ctx context.Context, requestID string, to domain.RequestStatus) (_ *domain.ReturnRequest, err error) {
	ctx, run := r.ins.Start(ctx, useCaseReviewReturn, "ReviewReturn",
		attribute.String("return.id", requestID),
		attribute.String("return.to", string(to)),
	)
	defer func() { run.End(err) }()

	req, err := r.requests.GetReturn(ctx, requestID)
	if err != nil {
		run.Fail("REQUEST_LOAD_FAILED")
		return nil, fmt.Errorf("order: get return: %w", err)
	}
	from := req.Status
	if !domain.CanReviewReturn(from, to) {
		run.Fail("REVIEW_INVALID")
		return nil, apperr.Validation("return request cannot move from %s to %s", from, to)
	}

	updated, err := r.requests.UpdateReturnStatus(ctx, req.ID, from, to, r.now())
	if err != nil {
		run.Fail("REQUEST_UPDATE_FAILED")
		return nil, fmt.Errorf("order: update return: %w", err)
	}

	if to == domain.RequestApproved {
		if _, err := r.machine.ApplyReturn(ctx, updated); err != nil {
			run.Fail("APPLY_RETURN_FAILED")
			if _, revertErr := r.requests.UpdateReturnStatus(context.WithoutCancel(ctx), req.ID, to, from, r.now()); revertErr != nil {
				run.Logger().Error("return_review_revert_failed",
					observability.F("return_id", req.ID),
					observability.F("error", revertErr.Error()),
				)
			}
			return nil, err
		}
	}

	r.notifyReview(ctx, run, updated)
	return updated, nil
}

func (r *Returns) notifyReview(ctx context.Context, run *application.Run, req *domain.ReturnRequest) {
	if r.notifier == nil {
		return
	}
	var title string
	switch req.Status {
	case domain.RequestApproved:
		title = "Yêu cầu trả hàng đã được chấp nhận"
	case domain.RequestRejected:
		title = "Yêu cầu trả hàng bị từ chối"
	default:
		title = "Yêu cầu trả hàng đã hoàn tất"
	}
	if _, err := r.notifier.Notify(ctx, notification.Request{
		Recipients: notification.Recipients{UserIDs: []string{req.UserID}},
		Title:      title,
		Content:    "Yêu cầu trả hàng cho đơn hàng #" + shortRef(req.OrderID) + ": " + string(req.Status) + ".",
		Kind:       notification.KindOrder,
	}); err != nil {
		run.SetStatus("OWNER_NOTIFY_FAILED")
		run.Logger().Warn("owner_notify_failed",
			observability.F("return_id", req.ID),
			observability.F("error", err.Error()),
		)
	}
}

func (r *Returns) List(ctx context.Context, userID string) ([]*domain.ReturnRequest, error) {
	return r.requests.ListReturns(ctx, userID)
}

func (r *Returns) ListCancels(ctx context.Context, userID string) ([]*domain.CancelRequest, error) {
	return r.requests.ListCancels(ctx, userID)
}

func shortRef(orderID string) string {
	return (&domain.Order{ID: orderID}).ShortID()
}
