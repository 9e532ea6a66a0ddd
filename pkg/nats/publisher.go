package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"nau-assistant/pkg/events"
)

var _ events.Publisher = (*Client)(nil)

// Publish sends an event to events.<type>.
func (c *Client) Publish(ctx context.Context, event events.Event) error {
	data, err := json.Marshal(event.Payload())
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	subject := events.Subject(event.EventType())
	if _, err := c.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish event to subject %s: %w", subject, err)
	}
	return nil
}
