package voucher

import (
	"context"
	"time"
)

type ListFilter struct {
	// ActiveAt keeps only active vouchers whose window contains the instant and that have stock.
	ActiveAt *time.Time
	Kind     Kind
}

type Repository interface {
	Create(ctx context.Context, v *Voucher) error
	Get(ctx context.Context, id string) (*Voucher, error)
	List(ctx context.Context, filter ListFilter) ([]*Voucher, error)
	// DecrementQuantity consumes one unit, failing with ErrExhausted at zero.
	DecrementQuantity(ctx context.Context, id string) error
	IncrementQuantity(ctx context.Context, id string) error
}

type GrantRepository interface {
	// Create fails with ErrAlreadyClaimed when the (user, voucher) pair exists.
	Create(ctx context.Context, g *Grant) error
	Find(ctx context.Context, userID, voucherID string) (*Grant, error)
	ListByUser(ctx context.Context, userID string) ([]*Grant, error)
	// MarkUsed moves an available grant to used; any other state yields ErrGrantNotUsable.
	MarkUsed(ctx context.Context, userID, voucherID string, at time.Time) error
	MarkAvailable(ctx context.Context, userID, voucherID string) error
}
