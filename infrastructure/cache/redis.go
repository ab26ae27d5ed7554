package cache

import (
	"context"
	"time"

	"brandhub/infrastructure/logger"

	"github.com/redis/go-redis/v9"
)

// NewCache returns a connected redis client. When the initial ping fails the
// client is closed and the error returned so callers can degrade.
func NewCache(ctx context.Context, addr, username, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Username:     username,
		Password:     password,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		MaxRetries:   1,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.GetLogger().WithField("error", err).WithField("addr", addr).Warn("Redis ping failed")
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
