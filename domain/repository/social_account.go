package repository

import (
	"context"
	"time"

	"brandhub/domain/model"
)

type ISocialAccount interface {
	// ListConnected returns CONNECTED accounts of the brand for the given platforms.
	ListConnected(ctx context.Context, brandID string, platforms []model.Platform) ([]*model.SocialAccount, error)
	ListByBrand(ctx context.Context, brandID string) ([]*model.SocialAccount, error)
	// Upsert inserts or replaces the account keyed by (brand, platform, platform account id).
	Upsert(ctx context.Context, acc *model.SocialAccount) error
	// UpdateTokens stores refreshed (already encrypted) tokens, sets the
	// account CONNECTED and clears its last error.
	UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt *time.Time) error
	MarkError(ctx context.Context, id, message string) error
	// Disconnect flips the account to DISCONNECTED and clears its tokens.
	Disconnect(ctx context.Context, brandID, id string) error
}
