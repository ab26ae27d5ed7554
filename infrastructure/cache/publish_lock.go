package cache

import (
	"context"
	"time"

	"brandhub/domain/repository"
	"brandhub/infrastructure/logger"

	"github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "brandhub:publish-lock:"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// PublishLock is a per-content mutex held in redis with SET NX and a TTL.
// A nil client, or a redis error, grants the lock so publishing keeps
// working without redis.
type PublishLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPublishLock(client *redis.Client, ttl time.Duration) *PublishLock {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &PublishLock{client: client, ttl: ttl}
}

var _ repository.IPublishLock = (*PublishLock)(nil)

func lockKey(contentID string) string { return lockKeyPrefix + contentID }

func (l *PublishLock) Acquire(ctx context.Context, contentID, owner string) (bool, error) {
	if l == nil || l.client == nil {
		return true, nil
	}
	ok, err := l.client.SetNX(ctx, lockKey(contentID), owner, l.ttl).Result()
	if err != nil {
		logger.GetLogger().WithField("error", err).WithField("content_id", contentID).
			Warn("Publish lock unavailable - continuing without lock")
		return true, nil
	}
	return ok, nil
}

func (l *PublishLock) Release(ctx context.Context, contentID, owner string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if err := releaseScript.Run(ctx, l.client, []string{lockKey(contentID)}, owner).Err(); err != nil && err != redis.Nil {
		logger.GetLogger().WithField("error", err).WithField("content_id", contentID).Warn("Publish lock release failed")
		return err
	}
	return nil
}
