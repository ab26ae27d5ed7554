package repository

import (
	"context"
	"time"

	"brandhub/domain/model"
)

// IContent is the read/write contract the publisher needs from content storage.
type IContent interface {
	// GetByID returns nil, nil when the item does not exist.
	GetByID(ctx context.Context, id string) (*model.ContentItem, error)
	// UpdatePublishStatus writes the aggregated status. A nil publishedAt
	// leaves the stored value untouched.
	UpdatePublishStatus(ctx context.Context, id string, status model.ContentStatus, publishedAt *time.Time) error
	// ListDueScheduled returns approved SCHEDULED items of the brand whose
	// scheduled time is at or before now, oldest first.
	ListDueScheduled(ctx context.Context, brandID string, now time.Time, limit int) ([]*model.ContentItem, error)
	// ListBrandsWithDueScheduled returns the brands having at least one due item.
	ListBrandsWithDueScheduled(ctx context.Context, now time.Time) ([]string, error)
}
