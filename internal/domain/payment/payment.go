package payment

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound     = errors.New("payment: record not found")
	ErrConflict     = errors.New("payment: status changed concurrently")
	ErrGateway      = errors.New("payment: gateway failure")
	ErrIgnoredEvent = errors.New("payment: callback does not concern a payment")

	// ErrInvalidCallback marks a webhook whose signature or payload is rejected.
	ErrInvalidCallback = errors.New("payment: invalid callback")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

// Record tracks the money side of one order. Amount equals the order's final
// total at creation.
type Record struct {
	ID        string
	OrderID   string
	UserID    string
	Amount    int64
	Method    string
	Status    Status
	Reference string
	PayURL    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

type Repository interface {
	Insert(ctx context.Context, r *Record) error
	GetByOrder(ctx context.Context, orderID string) (*Record, error)
	DeleteByOrder(ctx context.Context, orderID string) error
	// UpdateStatus moves the record to `to` only when its current status is one
	// of from; otherwise ErrConflict.
	UpdateStatus(ctx context.Context, orderID string, from []Status, to Status, reference string) (*Record, error)
}

// CheckoutRequest asks the gateway for a hosted payment page.
type CheckoutRequest struct {
	OrderID     string
	UserID      string
	Amount      int64
	Description string
}

type Link struct {
	URL       string
	Reference string
}

// Callback is the raw webhook as received over HTTP.
type Callback struct {
	Payload   []byte
	Signature string
}

type CallbackResult struct {
	OrderID   string
	Reference string
	Paid      bool
}

// Gateway is the external payment provider.
type Gateway interface {
	CreatePayment(ctx context.Context, req CheckoutRequest) (Link, error)
	// CancelPayment invalidates a link that was created but never handed to
	// the customer. Cancelling an already closed link is not an error.
	CancelPayment(ctx context.Context, reference string) error
	VerifyCallback(ctx context.Context, cb Callback) (CallbackResult, error)
}

// GatewayError wraps a provider failure. It is reported as a bad gateway.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment: gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

func (e *GatewayError) Is(target error) bool { return target == ErrGateway }
