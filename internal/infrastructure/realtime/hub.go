// Package realtime fans notification pushes out to connected clients.
package realtime

import (
	"context"
	"sync"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/notification"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/observability"
)

const componentHub = "realtime_hub"

// Hub is an in-process publish/subscribe switch keyed by channel name. Each
// subscriber owns a bounded buffer; a slow subscriber loses messages instead
// of blocking publishers.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]map[*subscription]struct{}
	buffer  int
	dropped observability.Counter
	log     observability.Logger
}

type subscription struct {
	ch   chan notification.Message
	once sync.Once
}

type Option func(*Hub)

func WithBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

func NewHub(obs observability.Observability, opts ...Option) *Hub {
	obs = observability.OrNop(obs)
	h := &Hub{
		subs:    make(map[string]map[*subscription]struct{}),
		buffer:  16,
		dropped: obs.Metrics().Counter(observability.MNotificationsPushed),
		log:     obs.Logger().With(observability.F("component", componentHub)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers interest in channel. The returned cancel func must be
// called once the consumer goes away; it closes the message channel.
func (h *Hub) Subscribe(channel string) (<-chan notification.Message, func()) {
	sub := &subscription{ch: make(chan notification.Message, h.buffer)}

	h.mu.Lock()
	if h.subs[channel] == nil {
		h.subs[channel] = make(map[*subscription]struct{})
	}
	h.subs[channel][sub] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		sub.once.Do(func() {
			h.mu.Lock()
			delete(h.subs[channel], sub)
			if len(h.subs[channel]) == 0 {
				delete(h.subs, channel)
			}
			close(sub.ch)
			h.mu.Unlock()
		})
	}
	return sub.ch, cancel
}

// Publish never blocks. Messages for channels without subscribers are
// dropped silently since the stored inbox is the source of truth.
func (h *Hub) Publish(ctx context.Context, msgs ...notification.Message) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, m := range msgs {
		for sub := range h.subs[m.Channel] {
			select {
			case sub.ch <- m:
			default:
				h.dropped.Add(1, observability.L("outcome", "dropped"))
				h.log.Warn("realtime_message_dropped",
					observability.F("channel", m.Channel),
					observability.F("event", m.Event),
				)
			}
		}
	}
	return ctx.Err()
}

// Subscribers reports how many consumers listen on channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[channel])
}
