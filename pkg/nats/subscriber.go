package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"nau-assistant/pkg/events"

	"github.com/nats-io/nats.go/jetstream"
)

// EventHandler is a function that processes an event.
type EventHandler func(ctx context.Context, event events.Event) error

// Subscribe registers a handler on a durable consumer filtered to subject.
// The returned func stops consumption.
func (c *Client) Subscribe(ctx context.Context, subject, durableName string, handler EventHandler) (func(), error) {
	consumer, err := c.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		var payload map[string]interface{}
		if err := json.Unmarshal(msg.Data(), &payload); err != nil {
			// a payload that never decodes would be redelivered forever
			c.logger.Error("NATS", "Dropping undecodable event", map[string]interface{}{"subject": msg.Subject(), "error": err})
			_ = msg.Term()
			return
		}

		event := events.BaseEvent{
			Type:       events.TypeFromSubject(msg.Subject()),
			Data:       payload,
			OccurredAt: timestampOf(msg),
		}

		if err := handler(ctx, event); err != nil {
			c.logger.Error("NATS", "Handler failed", map[string]interface{}{"subject": msg.Subject(), "error": err})
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("NATS", "Subscribed", map[string]interface{}{"subject": subject, "durable": durableName})
	return consumeCtx.Stop, nil
}

func timestampOf(msg jetstream.Msg) time.Time {
	if meta, err := msg.Metadata(); err == nil && meta != nil {
		return meta.Timestamp
	}
	return time.Now()
}
