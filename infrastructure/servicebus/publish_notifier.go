package servicebus

import (
	"context"
	"encoding/json"

	"brandhub/domain/dto"
	"brandhub/domain/repository"
	"brandhub/infrastructure/logger"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
)

// PublishNotifier sends publish events to a Service Bus queue.
type PublishNotifier struct {
	AzservicebusClient *azservicebus.Client
	queueName          string
}

func NewPublishNotifier(client *azservicebus.Client, queueName string) *PublishNotifier {
	return &PublishNotifier{AzservicebusClient: client, queueName: queueName}
}

var _ repository.IPublishNotifier = (*PublishNotifier)(nil)

func newMessage(evt *dto.PublishEvent) (*azservicebus.Message, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	contentType := "application/json"
	subject := evt.Type
	messageID := evt.AttemptID
	correlationID := evt.ContentID
	return &azservicebus.Message{
		Body:          body,
		ContentType:   &contentType,
		Subject:       &subject,
		MessageID:     &messageID,
		CorrelationID: &correlationID,
		ApplicationProperties: map[string]any{
			"brand_id": evt.BrandID,
			"status":   string(evt.Status),
		},
	}, nil
}

func (n *PublishNotifier) NotifyPublished(ctx context.Context, evt *dto.PublishEvent) error {
	if n == nil || n.AzservicebusClient == nil || evt == nil {
		return nil
	}
	msg, err := newMessage(evt)
	if err != nil {
		return err
	}
	sender, err := n.AzservicebusClient.NewSender(n.queueName, nil)
	if err != nil {
		logger.GetLogger().
			WithField("error", err).
			Error("Error while making new sender service bus.")
		return err
	}
	defer func(sender *azservicebus.Sender, ctx context.Context) {
		if err := sender.Close(ctx); err != nil {
			logger.GetLogger().
				WithField("error", err).
				Error("Error while closing sender.")
		}
	}(sender, context.Background())

	if err := sender.SendMessage(ctx, msg, nil); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while sending message.")
		return err
	}
	return nil
}
