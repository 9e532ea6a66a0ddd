package service

import (
	"context"
	"encoding/json"

	"nau-assistant/internal/dto"
	"nau-assistant/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
)

const consumerModule = "Consumer"

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// Reloader is the part of the index service the consumer drives.
type Reloader interface {
	Reload(ctx context.Context, reason string) (*dto.RefreshResult, error)
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	reloader   Reloader
	logger     logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	reloader Reloader,
	logger logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		reloader:   reloader,
		logger:     logger,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishIndexRefreshMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error(consumerModule, "Failed to unmarshal refresh message", map[string]interface{}{"error": err})
		msg.Ack() // invalid messages would be redelivered forever
		return
	}
	if payload.Reason == "" {
		payload.Reason = "unspecified"
	}

	cs.logger.Info(consumerModule, "Processing index refresh", map[string]interface{}{
		"reason":       payload.Reason,
		"requested_at": payload.RequestedAt,
	})

	// A failed reload already left a usable store in place; retrying the same
	// snapshot would fail the same way, so the message is acked either way.
	result, err := cs.reloader.Reload(ctx, payload.Reason)
	if err != nil {
		cs.logger.Warn(consumerModule, "Index refresh failed", map[string]interface{}{
			"reason": payload.Reason,
			"error":  err.Error(),
		})
		msg.Ack()
		return
	}

	cs.logger.Info(consumerModule, "Index refreshed", map[string]interface{}{
		"reason":     payload.Reason,
		"generation": result.Generation,
		"chunks":     result.Chunks,
	})
	msg.Ack()
}
