package repository

import (
	"context"

	"brandhub/domain/dto"
	"brandhub/domain/model"
)

// IPlatformClient is the capability set every social platform implements.
type IPlatformClient interface {
	// Publish never returns an error: failures are reported in the result.
	Publish(ctx context.Context, opts dto.PublishOptions) dto.PublishResult
	// RefreshTokenIfNeeded returns new tokens, or nil when no refresh was
	// needed, possible, or successful.
	RefreshTokenIfNeeded(ctx context.Context) *model.OAuthTokens
	GetProfile(ctx context.Context) (*model.PlatformProfile, error)
}

// IPlatformClientFactory builds the client variant matching a platform.
type IPlatformClientFactory interface {
	NewClient(platform model.Platform, platformAccountID string, tokens *model.OAuthTokens) IPlatformClient
}
