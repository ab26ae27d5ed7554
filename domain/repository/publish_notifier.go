package repository

import (
	"context"

	"brandhub/domain/dto"
)

// IPublishNotifier receives one event per completed publish call.
type IPublishNotifier interface {
	NotifyPublished(ctx context.Context, evt *dto.PublishEvent) error
}

// IPublishLock guards a content item against concurrent publish calls.
type IPublishLock interface {
	// Acquire returns false when another holder owns the lock.
	Acquire(ctx context.Context, contentID, owner string) (bool, error)
	Release(ctx context.Context, contentID, owner string) error
}
