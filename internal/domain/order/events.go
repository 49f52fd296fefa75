package order

import "time"

// PlacedEvent is published once an order and its reservations are committed.
type PlacedEvent struct {
	OrderID       string
	UserID        string
	FinalTotal    int64
	PaymentMethod PaymentMethod
	OccurredAt    time.Time
}

func (PlacedEvent) EventName() string { return "order.placed" }

func NewPlacedEvent(o *Order) PlacedEvent {
	return PlacedEvent{
		OrderID:       o.ID,
		UserID:        o.UserID,
		FinalTotal:    o.FinalTotal,
		PaymentMethod: o.PaymentMethod,
		OccurredAt:    time.Now().UTC(),
	}
}

// StatusChangedEvent is published after every committed transition.
type StatusChangedEvent struct {
	OrderID       string
	UserID        string
	From          Status
	To            Status
	PaymentMethod PaymentMethod
	OccurredAt    time.Time
}

func (StatusChangedEvent) EventName() string { return "order.status_changed" }

func NewStatusChangedEvent(o *Order, from Status) StatusChangedEvent {
	return StatusChangedEvent{
		OrderID:       o.ID,
		UserID:        o.UserID,
		From:          from,
		To:            o.Status,
		PaymentMethod: o.PaymentMethod,
		OccurredAt:    time.Now().UTC(),
	}
}
