package persistence

import (
	"context"

	"brandhub/domain/dto"
	"brandhub/domain/repository"
	"brandhub/infrastructure/logger"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const publishEventsCollection = "publish_events"

// PublishAuditRepository keeps a document per publish call in MongoDB.
// A nil client turns every call into a no-op.
type PublishAuditRepository struct {
	mongoDb *mongo.Client
	dbName  string
}

func NewPublishAuditRepository(db *mongo.Client, dbName string) *PublishAuditRepository {
	if dbName == "" {
		dbName = "brandhub"
	}
	return &PublishAuditRepository{mongoDb: db, dbName: dbName}
}

var _ repository.IPublishNotifier = (*PublishAuditRepository)(nil)

func (r *PublishAuditRepository) collection() *mongo.Collection {
	return r.mongoDb.Database(r.dbName).Collection(publishEventsCollection)
}

func (r *PublishAuditRepository) NotifyPublished(ctx context.Context, evt *dto.PublishEvent) error {
	if r.mongoDb == nil || evt == nil {
		return nil
	}
	_, err := r.collection().InsertOne(ctx, evt)
	return err
}

// ListByContent returns the recorded events of a content item, newest first.
func (r *PublishAuditRepository) ListByContent(ctx context.Context, contentID string, limit int64) ([]dto.PublishEvent, error) {
	if r.mongoDb == nil {
		logger.GetLogger().Info("MongoDB client is nil - no publish audit available")
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	opts := options.Find().SetSort(bson.D{{Key: "occurred_at", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection().Find(ctx, bson.D{{Key: "content_id", Value: contentID}}, opts)
	if err != nil {
		return nil, err
	}
	defer func(cursor *mongo.Cursor, ctx context.Context) {
		if err := cursor.Close(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing cursor")
		}
	}(cursor, ctx)

	var events []dto.PublishEvent
	for cursor.Next(ctx) {
		var evt dto.PublishEvent
		if err := cursor.Decode(&evt); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while decoding publish event")
			continue
		}
		events = append(events, evt)
	}
	return events, cursor.Err()
}
