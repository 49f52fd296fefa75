package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/application/apperr"
	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/order"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/payment"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/user"
)

// Queries serves read-only order views. Orders always come back with their
// lines loaded.
type Queries struct {
	orders   domain.Repository
	payments payment.Repository
}

func NewQueries(orders domain.Repository, payments payment.Repository) (*Queries, error) {
	if orders == nil || payments == nil {
		return nil, errors.New("order: order and payment repositories are required")
	}
	return &Queries{orders: orders, payments: payments}, nil
}

// Detail is an order with its payment record.
type Detail struct {
	Order   *domain.Order
	Payment *payment.Record
}

// Get returns the order when the caller owns it or is staff.
func (q *Queries) Get(ctx context.Context, orderID, callerID string, role user.Role) (*Detail, error) {
	o, err := q.orders.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order: get: %w", err)
	}
	if role != user.RoleAdmin && o.UserID != callerID {
		return nil, apperr.Forbidden("order %s belongs to another user", o.ID)
	}
	rec, err := q.payments.GetByOrder(ctx, o.ID)
	if err != nil && !errors.Is(err, payment.ErrNotFound) {
		return nil, fmt.Errorf("order: get payment: %w", err)
	}
	return &Detail{Order: o, Payment: rec}, nil
}

// List is the staff listing over every order.
func (q *Queries) List(ctx context.Context, query domain.Query) (domain.Page, error) {
	if query.MinTotal != nil && query.MaxTotal != nil && *query.MinTotal > *query.MaxTotal {
		return domain.Page{}, apperr.Validation("min_total must not exceed max_total")
	}
	if query.CreatedFrom != nil && query.CreatedTo != nil && query.CreatedFrom.After(*query.CreatedTo) {
		return domain.Page{}, apperr.Validation("created_from must not be after created_to")
	}
	return q.orders.List(ctx, query.Normalize())
}

// History lists the caller's own orders, newest first.
func (q *Queries) History(ctx context.Context, userID string, statuses []domain.Status, page, limit int) (domain.Page, error) {
	if userID == "" {
		return domain.Page{}, apperr.Validation("user id is required")
	}
	return q.orders.List(ctx, domain.Query{UserID: userID, Statuses: statuses, Page: page, Limit: limit}.Normalize())
}
