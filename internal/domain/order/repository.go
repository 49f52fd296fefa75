package order

import (
	"context"
	"time"
)

// Query is the typed filter for order listings.
type Query struct {
	UserID        string
	Statuses      []Status
	PaymentMethod PaymentMethod
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	MinTotal      *int64
	MaxTotal      *int64
	Page          int
	Limit         int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	return q
}

func (q Query) Offset() int { return (q.Page - 1) * q.Limit }

// Matches applies the filter to a single order; stores without a query engine use it.
func (q Query) Matches(o *Order) bool {
	if q.UserID != "" && o.UserID != q.UserID {
		return false
	}
	if len(q.Statuses) > 0 {
		found := false
		for _, s := range q.Statuses {
			if o.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.PaymentMethod != "" && o.PaymentMethod != q.PaymentMethod {
		return false
	}
	if q.CreatedFrom != nil && o.CreatedAt.Before(*q.CreatedFrom) {
		return false
	}
	if q.CreatedTo != nil && o.CreatedAt.After(*q.CreatedTo) {
		return false
	}
	if q.MinTotal != nil && o.FinalTotal < *q.MinTotal {
		return false
	}
	if q.MaxTotal != nil && o.FinalTotal > *q.MaxTotal {
		return false
	}
	return true
}

type Page struct {
	Orders []*Order
	Total  int64
	Page   int
	Limit  int
}

type Repository interface {
	// Insert stores the order together with its lines.
	Insert(ctx context.Context, o *Order) error
	// Get returns the order with its lines loaded.
	Get(ctx context.Context, id string) (*Order, error)
	// UpdateStatus writes o's status only if the stored status still equals from.
	// A mismatch yields ErrConflict.
	UpdateStatus(ctx context.Context, o *Order, from Status) error
	// Delete removes an order and its lines. Only failed placements use it.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q Query) (Page, error)
}

type RequestRepository interface {
	CreateCancel(ctx context.Context, r *CancelRequest) error
	ListCancels(ctx context.Context, userID string) ([]*CancelRequest, error)

	// CreateReturn fails with ErrDuplicateRequest while another non-rejected
	// request exists for the same order.
	CreateReturn(ctx context.Context, r *ReturnRequest) error
	GetReturn(ctx context.Context, id string) (*ReturnRequest, error)
	// UpdateReturnStatus is a compare-and-swap on the request status.
	UpdateReturnStatus(ctx context.Context, id string, from, to RequestStatus, at time.Time) (*ReturnRequest, error)
	ListReturns(ctx context.Context, userID string) ([]*ReturnRequest, error)
}
