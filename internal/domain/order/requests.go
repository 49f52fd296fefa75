package order

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrRequestNotFound  = errors.New("order: request not found")
	ErrDuplicateRequest = errors.New("order: an open return request already exists")
	ErrInvalidReturn    = errors.New("order: invalid return request")
)

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestApproved  RequestStatus = "approved"
	RequestRejected  RequestStatus = "rejected"
	RequestCompleted RequestStatus = "completed"
)

// CancelRequest is the audit record of a cancellation. User cancellations are
// approved immediately.
type CancelRequest struct {
	ID          string
	OrderID     string
	UserID      string
	Reason      string
	Status      RequestStatus
	AdminCancel bool
	CreatedAt   time.Time
}

type ReturnImage struct {
	URL      string
	PublicID string
}

type ReturnRequest struct {
	ID        string
	OrderID   string
	LineID    string
	UserID    string
	Reason    string
	Quantity  int
	Images    []ReturnImage
	Status    RequestStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

var returnTransitions = map[RequestStatus][]RequestStatus{
	RequestPending:  {RequestApproved, RequestRejected},
	RequestApproved: {RequestCompleted},
}

func CanReviewReturn(from, to RequestStatus) bool {
	for _, next := range returnTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NewReturnRequest validates a return against the delivered order it targets.
func NewReturnRequest(id string, o *Order, lineID, userID, reason string, quantity int, images []ReturnImage) (*ReturnRequest, error) {
	if o.Status != StatusDelivered {
		return nil, &InvalidTransitionError{From: o.Status, To: StatusReturned}
	}
	line, ok := o.Line(lineID)
	if !ok {
		return nil, fmt.Errorf("%w: line %s is not part of order %s", ErrInvalidReturn, lineID, o.ID)
	}
	if quantity <= 0 || quantity > line.Quantity {
		return nil, fmt.Errorf("%w: quantity must be between 1 and %d", ErrInvalidReturn, line.Quantity)
	}
	if reason == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrInvalidReturn)
	}
	now := time.Now().UTC()
	return &ReturnRequest{
		ID:        id,
		OrderID:   o.ID,
		LineID:    lineID,
		UserID:    userID,
		Reason:    reason,
		Quantity:  quantity,
		Images:    append([]ReturnImage(nil), images...),
		Status:    RequestPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (r *ReturnRequest) Clone() *ReturnRequest {
	if r == nil {
		return nil
	}
	c := *r
	c.Images = append([]ReturnImage(nil), r.Images...)
	return &c
}
