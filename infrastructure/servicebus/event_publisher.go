package servicebus

import (
	"context"
	"encoding/json"

	"story-syndication/domain/model"
	"story-syndication/infrastructure/logger"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
)

type messageSender interface {
	SendMessage(ctx context.Context, message *azservicebus.Message, options *azservicebus.SendMessageOptions) error
	Close(ctx context.Context) error
}

// EventPublisher sends revocation events to an Azure Service Bus queue.
type EventPublisher struct {
	sender messageSender
}

func NewEventPublisher(client *azservicebus.Client, queue string) (*EventPublisher, error) {
	sender, err := client.NewSender(queue, nil)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while making new sender service bus.")
		return nil, err
	}
	return &EventPublisher{sender: sender}, nil
}

func (p *EventPublisher) Publish(ctx context.Context, evt *model.RevocationEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	contentType := "application/json"
	subject := string(evt.Type)
	// Service Bus duplicate detection keys on MessageID.
	messageID := evt.DistributionID + ":" + string(evt.Type)
	msg := &azservicebus.Message{
		Body:        body,
		ContentType: &contentType,
		Subject:     &subject,
		MessageID:   &messageID,
		ApplicationProperties: map[string]interface{}{
			"distribution_id": evt.DistributionID,
			"story_id":        evt.StoryID,
			"tenant_id":       evt.TenantID,
		},
	}
	if err := p.sender.SendMessage(ctx, msg, nil); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while sending message.")
		return err
	}
	return nil
}

func (p *EventPublisher) Close(ctx context.Context) error {
	return p.sender.Close(ctx)
}
