package service

import (
	"context"
	"encoding/json"
	"time"

	"nau-assistant/internal/dto"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// IPublisherService puts refresh requests on the in-process topic. Every
// trigger (admin call, cron, file watch, bus event) goes through it so that
// one consumer serializes the reloads.
type IPublisherService interface {
	PublishIndexRefresh(ctx context.Context, reason string) error
}

type publisherService struct {
	topicName string
	publisher message.Publisher
}

func NewPublisherService(topicName string, publisher message.Publisher) IPublisherService {
	return &publisherService{
		topicName: topicName,
		publisher: publisher,
	}
}

func (ps *publisherService) PublishIndexRefresh(ctx context.Context, reason string) error {
	payload, err := json.Marshal(dto.PublishIndexRefreshMessage{
		Reason:      reason,
		RequestedAt: time.Now(),
	})
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return ps.publisher.Publish(ps.topicName, msg)
}
