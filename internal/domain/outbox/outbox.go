package outbox

import "context"

// Event is a named domain event.
type Event interface {
	EventName() string
}

// Handler consumes one event. Returned errors are logged by the dispatcher.
type Handler func(ctx context.Context, e Event) error

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Subscriber interface {
	Subscribe(eventName string, h Handler)
}
