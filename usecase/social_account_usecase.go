package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"brandhub/domain/model"
	"brandhub/domain/repository"
	"brandhub/infrastructure/logger"

	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidTokens      = errors.New("access token is required")
	ErrProfileUnavailable = errors.New("could not fetch platform profile")
	ErrAccountNotFound    = errors.New("social account not found")
)

type ISocialAccountUsecase interface {
	// Connect binds already exchanged OAuth tokens to the platform identity
	// they belong to and stores them encrypted.
	Connect(ctx context.Context, brandID string, platform model.Platform, tokens *model.OAuthTokens, platformAccountID string) (*model.SocialAccount, error)
	List(ctx context.Context, brandID string) ([]*model.SocialAccount, error)
	Disconnect(ctx context.Context, brandID, accountID string) error
}

type socialAccountUsecase struct {
	accountRepo repository.ISocialAccount
	factory     repository.IPlatformClientFactory
	cipher      ITokenCipher
}

func NewSocialAccountUsecase(accountRepo repository.ISocialAccount, factory repository.IPlatformClientFactory, cipher ITokenCipher) ISocialAccountUsecase {
	return &socialAccountUsecase{accountRepo: accountRepo, factory: factory, cipher: cipher}
}

func (u *socialAccountUsecase) Connect(ctx context.Context, brandID string, platform model.Platform, tokens *model.OAuthTokens, platformAccountID string) (*model.SocialAccount, error) {
	if tokens == nil || strings.TrimSpace(tokens.AccessToken) == "" {
		return nil, ErrInvalidTokens
	}
	lg := logger.GetLogger().WithFields(logrus.Fields{"brand_id": brandID, "platform": platform})

	client := u.factory.NewClient(platform, platformAccountID, tokens)
	profile, err := client.GetProfile(ctx)
	if err != nil {
		lg.WithField("error", err).Warn("profile lookup failed during connect")
		return nil, fmt.Errorf("%w: %v", ErrProfileUnavailable, err)
	}

	accountID := profile.PlatformID
	if accountID == "" {
		accountID = platformAccountID
	}
	displayName := profile.DisplayName
	if displayName == "" {
		displayName = profile.Handle
	}

	access, err := u.cipher.SafeEncrypt(tokens.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("encrypt access token: %w", err)
	}
	refresh, err := u.cipher.SafeEncrypt(tokens.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("encrypt refresh token: %w", err)
	}

	acc := &model.SocialAccount{
		BrandID:           brandID,
		Platform:          platform,
		PlatformAccountID: accountID,
		DisplayName:       displayName,
		AccessToken:       access,
		RefreshToken:      refresh,
		TokenExpiresAt:    tokens.ExpiresAt,
		Scope:             tokens.Scope,
		Status:            model.AccountStatusConnected,
	}
	if err := u.accountRepo.Upsert(ctx, acc); err != nil {
		return nil, err
	}
	lg.WithField("account_id", acc.ID).Info("social account connected")
	return acc, nil
}

func (u *socialAccountUsecase) List(ctx context.Context, brandID string) ([]*model.SocialAccount, error) {
	return u.accountRepo.ListByBrand(ctx, brandID)
}

func (u *socialAccountUsecase) Disconnect(ctx context.Context, brandID, accountID string) error {
	err := u.accountRepo.Disconnect(ctx, brandID, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrAccountNotFound
	}
	return err
}
