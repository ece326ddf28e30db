package pubsub

import (
	"context"
	"encoding/json"

	"story-syndication/domain/model"
	"story-syndication/infrastructure/logger"

	"cloud.google.com/go/pubsub"
)

// EventPublisher fans revocation events out on a Pub/Sub topic so platform
// integrations can tear down cached copies without a registered webhook.
type EventPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

func NewEventPublisher(client *pubsub.Client, topicID string) *EventPublisher {
	return &EventPublisher{client: client, topic: client.Topic(topicID)}
}

// EnsureTopic creates the topic when it does not exist yet.
func (p *EventPublisher) EnsureTopic(ctx context.Context) error {
	exists, err := p.topic.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	logger.GetLogger().WithField("topic", p.topic.ID()).Info("Topic doesn't exist - creating it")
	topic, err := p.client.CreateTopic(ctx, p.topic.ID())
	if err != nil {
		return err
	}
	p.topic = topic
	return nil
}

func (p *EventPublisher) Publish(ctx context.Context, evt *model.RevocationEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event":           string(evt.Type),
			"distribution_id": evt.DistributionID,
			"story_id":        evt.StoryID,
			"tenant_id":       evt.TenantID,
		},
	}
	serverID, err := p.topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return err
	}
	logger.GetLogger().WithField("server_id", serverID).WithField("distribution_id", evt.DistributionID).
		Debug("Revocation event published")
	return nil
}

// Stop flushes pending messages.
func (p *EventPublisher) Stop() {
	p.topic.Stop()
}
