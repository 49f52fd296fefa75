package realtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/notification"
)

func TestHubDeliversToChannelSubscribers(t *testing.T) {
	h := NewHub(nil)
	ctx := context.Background()

	u1, cancel1 := h.Subscribe("user:u1")
	defer cancel1()
	u2, cancel2 := h.Subscribe("user:u2")
	defer cancel2()

	require.NoError(t, h.Publish(ctx,
		notification.Message{Channel: "user:u1", Event: "notification", Data: "a"},
		notification.Message{Channel: "user:u3", Event: "notification", Data: "nobody"},
	))

	select {
	case m := <-u1:
		assert.Equal(t, "a", m.Data)
	default:
		t.Fatal("u1 should have a message")
	}
	select {
	case m := <-u2:
		t.Fatalf("u2 got unexpected message %v", m)
	default:
	}
}

func TestHubDropsWhenSubscriberIsSlow(t *testing.T) {
	h := NewHub(nil, WithBuffer(1))
	ctx := context.Background()
	ch, cancel := h.Subscribe("user:u1")
	defer cancel()

	msg := notification.Message{Channel: "user:u1", Event: "notification"}
	require.NoError(t, h.Publish(ctx, msg, msg, msg))
	assert.Len(t, ch, 1)
}

func TestHubCancelClosesAndUnregisters(t *testing.T) {
	h := NewHub(nil)
	ch, cancel := h.Subscribe("user:u1")
	assert.Equal(t, 1, h.Subscribers("user:u1"))

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, h.Subscribers("user:u1"))
	assert.NoError(t, h.Publish(context.Background(), notification.Message{Channel: "user:u1"}))
}
