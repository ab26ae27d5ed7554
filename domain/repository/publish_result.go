package repository

import (
	"context"

	"brandhub/domain/model"
)

// IPublishResult is append-only: rows are created, never updated.
type IPublishResult interface {
	Create(ctx context.Context, r *model.PublishResult) error
	// ListByContent returns all rows for the content item, newest first.
	ListByContent(ctx context.Context, contentID string) ([]*model.PublishResult, error)
}
