package order

import (
	"fmt"
	"time"
)

// transitions is the single lifecycle table. Statuses absent as keys are terminal.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipping, StatusCancelled},
	StatusShipping:   {StatusDelivered, StatusCancelled},
	StatusDelivered:  {StatusReturned},
}

var allStatuses = []Status{
	StatusPending, StatusProcessing, StatusShipping, StatusDelivered, StatusReturned, StatusCancelled,
}

func AllStatuses() []Status { return append([]Status(nil), allStatuses...) }

func ParseStatus(raw string) (Status, error) {
	for _, s := range allStatuses {
		if string(s) == raw {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool { return len(transitions[s]) == 0 }

// UserCancellable reports whether the owner may still cancel without staff.
func (s Status) UserCancellable() bool {
	return s == StatusPending || s == StatusProcessing
}

// InvalidTransitionError reports a (from, to) pair outside the lifecycle table.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order: cannot change status from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// TransitionTo moves the order to the next status. Entering delivered stamps DeliveredAt.
func (o *Order) TransitionTo(to Status, at time.Time) error {
	if !CanTransition(o.Status, to) {
		return &InvalidTransitionError{From: o.Status, To: to}
	}
	o.Status = to
	if to == StatusDelivered {
		t := at.UTC()
		o.DeliveredAt = &t
	}
	o.touch(at)
	return nil
}
