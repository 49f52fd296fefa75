// Package gcppubsub forwards realtime pushes to a Google Cloud Pub/Sub topic
// so other instances and services can deliver them.
package gcppubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/notification"
)

// Payload is the JSON body of every published message.
type Payload struct {
	Channel string `json:"channel"`
	Event   string `json:"event"`
	Data    any    `json:"data"`
}

type Publisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

func NewPublisher(topic *pubsub.Topic) (*Publisher, error) {
	if topic == nil {
		return nil, errors.New("gcppubsub: topic is required")
	}
	return &Publisher{topic: topic, marshal: json.Marshal}, nil
}

// Publish sends every message and waits for all acknowledgements. The
// channel and event are copied into attributes for subscription filters.
func (p *Publisher) Publish(ctx context.Context, msgs ...notification.Message) error {
	results := make([]*pubsub.PublishResult, 0, len(msgs))
	for _, m := range msgs {
		data, err := p.marshal(Payload{Channel: m.Channel, Event: m.Event, Data: m.Data})
		if err != nil {
			return fmt.Errorf("gcppubsub: marshal %s: %w", m.Channel, err)
		}
		results = append(results, p.topic.Publish(ctx, &pubsub.Message{
			Data: data,
			Attributes: map[string]string{
				"channel": m.Channel,
				"event":   m.Event,
			},
		}))
	}

	var errs []error
	for _, r := range results {
		if _, err := r.Get(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("gcppubsub: publish: %w", errors.Join(errs...))
	}
	return nil
}
