package pubsub

import (
	"context"
	"encoding/json"
	"sync"

	"brandhub/domain/dto"
	"brandhub/domain/repository"
	"brandhub/infrastructure/logger"

	"cloud.google.com/go/pubsub"
)

// PublishNotifier forwards publish events to a Pub/Sub topic.
type PublishNotifier struct {
	PubSubClient *pubsub.Client
	topicID      string

	once     sync.Once
	topic    *pubsub.Topic
	topicErr error
}

func NewPublishNotifier(pubSubClient *pubsub.Client, topicID string) *PublishNotifier {
	return &PublishNotifier{PubSubClient: pubSubClient, topicID: topicID}
}

var _ repository.IPublishNotifier = (*PublishNotifier)(nil)

func (n *PublishNotifier) ensureTopic(ctx context.Context) (*pubsub.Topic, error) {
	n.once.Do(func() {
		topic := n.PubSubClient.Topic(n.topicID)
		exists, err := topic.Exists(ctx)
		if err != nil {
			n.topicErr = err
			return
		}
		if !exists {
			logger.GetLogger().WithField("topic", n.topicID).Info("Topic doesn't exist - creating it")
			if topic, err = n.PubSubClient.CreateTopic(ctx, n.topicID); err != nil {
				n.topicErr = err
				return
			}
		}
		n.topic = topic
	})
	return n.topic, n.topicErr
}

func (n *PublishNotifier) NotifyPublished(ctx context.Context, evt *dto.PublishEvent) error {
	if n == nil || n.PubSubClient == nil || evt == nil {
		return nil
	}
	topic, err := n.ensureTopic(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"type":       evt.Type,
			"content_id": evt.ContentID,
			"brand_id":   evt.BrandID,
			"status":     string(evt.Status),
		},
	}
	serverID, err := topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return err
	}
	logger.GetLogger().WithField("server_id", serverID).WithField("content_id", evt.ContentID).Debug("Publish event sent")
	return nil
}

// Close flushes pending messages.
func (n *PublishNotifier) Close() {
	if n != nil && n.topic != nil {
		n.topic.Stop()
	}
}
