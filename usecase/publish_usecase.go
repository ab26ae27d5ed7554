package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"brandhub/domain/dto"
	"brandhub/domain/model"
	"brandhub/domain/repository"
	"brandhub/infrastructure/bugsink"
	"brandhub/infrastructure/logger"
	"brandhub/infrastructure/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	ErrContentNotFound   = errors.New("content not found")
	ErrPublishInProgress = errors.New("publish already in progress for this content")
	ErrNoPlatforms       = errors.New("no target platforms")
)

// ITokenCipher protects credentials at rest. *vault.Vault implements it.
type ITokenCipher interface {
	SafeEncrypt(plaintext string) (string, error)
	SafeDecrypt(stored string) (string, error)
}

type IPublishUsecase interface {
	// Publish fans the content out to platforms, or to the item's own
	// platforms when none are given. Per-platform failures are reported in
	// the results; only precondition failures return an error.
	Publish(ctx context.Context, contentID string, platforms []model.Platform) ([]dto.PlatformPublishResult, error)
	// PublishForBrand is Publish restricted to content owned by brandID.
	PublishForBrand(ctx context.Context, brandID, contentID string, platforms []model.Platform) ([]dto.PlatformPublishResult, error)
	// GetResults lists the recorded attempts of the brand's content, newest first.
	GetResults(ctx context.Context, brandID, contentID string) ([]*model.PublishResult, error)
}

type PublisherConfig struct {
	MaxConcurrentPlatforms int
	AttemptTimeout         time.Duration
}

type PublishUsecase struct {
	contentRepo repository.IContent
	accountRepo repository.ISocialAccount
	resultRepo  repository.IPublishResult
	factory     repository.IPlatformClientFactory
	cipher      ITokenCipher
	notifiers   []repository.IPublishNotifier
	lock        repository.IPublishLock
	cfg         PublisherConfig

	now   func() time.Time
	newID func() string
}

func NewPublishUsecase(
	contentRepo repository.IContent,
	accountRepo repository.ISocialAccount,
	resultRepo repository.IPublishResult,
	factory repository.IPlatformClientFactory,
	cipher ITokenCipher,
	cfg PublisherConfig,
) *PublishUsecase {
	if cfg.MaxConcurrentPlatforms <= 0 {
		cfg.MaxConcurrentPlatforms = 4
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 2 * time.Minute
	}
	return &PublishUsecase{
		contentRepo: contentRepo,
		accountRepo: accountRepo,
		resultRepo:  resultRepo,
		factory:     factory,
		cipher:      cipher,
		cfg:         cfg,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

// WithNotifiers adds listeners called once per completed publish call.
func (u *PublishUsecase) WithNotifiers(n ...repository.IPublishNotifier) *PublishUsecase {
	for _, l := range n {
		if l != nil {
			u.notifiers = append(u.notifiers, l)
		}
	}
	return u
}

// WithLock guards each content item against concurrent publish calls.
func (u *PublishUsecase) WithLock(l repository.IPublishLock) *PublishUsecase {
	u.lock = l
	return u
}

func (u *PublishUsecase) loadContent(ctx context.Context, contentID string) (*model.ContentItem, error) {
	item, err := u.contentRepo.GetByID(ctx, contentID)
	if err != nil {
		return nil, fmt.Errorf("load content %s: %w", contentID, err)
	}
	if item == nil {
		return nil, ErrContentNotFound
	}
	return item, nil
}

func (u *PublishUsecase) Publish(ctx context.Context, contentID string, platforms []model.Platform) ([]dto.PlatformPublishResult, error) {
	item, err := u.loadContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	return u.publish(ctx, item, platforms)
}

func (u *PublishUsecase) PublishForBrand(ctx context.Context, brandID, contentID string, platforms []model.Platform) ([]dto.PlatformPublishResult, error) {
	item, err := u.loadContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if item.BrandID != brandID {
		return nil, ErrContentNotFound
	}
	return u.publish(ctx, item, platforms)
}

func (u *PublishUsecase) GetResults(ctx context.Context, brandID, contentID string) ([]*model.PublishResult, error) {
	item, err := u.loadContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if item.BrandID != brandID {
		return nil, ErrContentNotFound
	}
	return u.resultRepo.ListByContent(ctx, contentID)
}

// targetPlatforms returns the requested platforms, falling back to the
// item's own list, without duplicates and in first-seen order.
func targetPlatforms(requested, own []model.Platform) []model.Platform {
	src := requested
	if len(src) == 0 {
		src = own
	}
	seen := make(map[model.Platform]struct{}, len(src))
	out := make([]model.Platform, 0, len(src))
	for _, p := range src {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// AggregateStatus reduces the results of one publish call to a content status.
func AggregateStatus(results []dto.PlatformPublishResult) model.ContentStatus {
	ok := dto.CountSucceeded(results)
	switch {
	case ok > 0 && ok == len(results):
		return model.ContentStatusPublished
	case ok > 0:
		return model.ContentStatusPartiallyPublished
	default:
		return model.ContentStatusFailed
	}
}

// BuildPayload selects the platform text and carries media, link and hashtags unchanged.
func BuildPayload(item *model.ContentItem, p model.Platform) dto.PublishOptions {
	return dto.PublishOptions{
		Text:      item.TextFor(p),
		MediaURLs: item.MediaURLs,
		MediaKind: item.MediaKind,
		LinkURL:   item.LinkURL,
		Hashtags:  item.Hashtags,
	}
}

func (u *PublishUsecase) publish(ctx context.Context, item *model.ContentItem, requested []model.Platform) ([]dto.PlatformPublishResult, error) {
	targets := targetPlatforms(requested, item.Platforms)
	if len(targets) == 0 {
		return nil, ErrNoPlatforms
	}

	attemptID := u.newID()
	lg := logger.GetLogger().WithFields(logrus.Fields{
		"content_id": item.ID,
		"brand_id":   item.BrandID,
		"attempt_id": attemptID,
	})

	if u.lock != nil {
		acquired, err := u.lock.Acquire(ctx, item.ID, attemptID)
		if err != nil {
			lg.WithField("error", err).Warn("publish lock unavailable")
		} else if !acquired {
			return nil, ErrPublishInProgress
		}
		defer func() {
			_ = u.lock.Release(context.WithoutCancel(ctx), item.ID, attemptID)
		}()
	}

	accounts := map[model.Platform]*model.SocialAccount{}
	list, accountErr := u.accountRepo.ListConnected(ctx, item.BrandID, targets)
	if accountErr != nil {
		lg.WithField("error", accountErr).Error("failed loading connected accounts")
	}
	for _, acc := range list {
		if _, ok := accounts[acc.Platform]; !ok && acc.IsConnected() {
			accounts[acc.Platform] = acc
		}
	}

	results := make([]dto.PlatformPublishResult, len(targets))
	var g errgroup.Group
	g.SetLimit(u.cfg.MaxConcurrentPlatforms)
	for i, p := range targets {
		g.Go(func() error {
			results[i] = dto.PlatformPublishResult{
				Platform: p,
				Result:   u.attempt(ctx, attemptID, item, p, accounts[p], accountErr),
			}
			return nil
		})
	}
	_ = g.Wait()

	status := AggregateStatus(results)
	var publishedAt *time.Time
	if status != model.ContentStatusFailed {
		t := u.now()
		publishedAt = &t
	}
	if err := u.contentRepo.UpdatePublishStatus(context.WithoutCancel(ctx), item.ID, status, publishedAt); err != nil {
		lg.WithField("error", err).Error("failed writing content status")
	}
	metrics.RecordContentStatus(string(status))

	succeeded := dto.CountSucceeded(results)
	lg.WithFields(logrus.Fields{
		"status":    status,
		"succeeded": succeeded,
		"failed":    len(results) - succeeded,
	}).Info("content publish finished")

	u.notify(ctx, &dto.PublishEvent{
		Type:        dto.PublishEventType,
		AttemptID:   attemptID,
		ContentID:   item.ID,
		BrandID:     item.BrandID,
		Status:      status,
		Results:     results,
		PublishedAt: publishedAt,
		OccurredAt:  u.now(),
	})
	return results, nil
}

func (u *PublishUsecase) attempt(ctx context.Context, attemptID string, item *model.ContentItem, p model.Platform, acc *model.SocialAccount, accountErr error) dto.PublishResult {
	started := time.Now()
	attemptCtx, cancel := context.WithTimeout(ctx, u.cfg.AttemptTimeout)
	defer cancel()

	var res dto.PublishResult
	switch {
	case acc != nil:
		res = u.publishWithAccount(attemptCtx, item, p, acc)
	case accountErr != nil:
		res = dto.Failure(fmt.Sprintf("Failed to load %s account: %v", p.DisplayName(), accountErr))
	default:
		res = dto.Failure(fmt.Sprintf("No active %s account connected", p.DisplayName()))
	}

	u.recordResult(ctx, attemptID, item.ID, p, res)
	metrics.RecordAttempt(string(p), res.Success)
	metrics.ObserveAttemptDuration(string(p), started)
	return res
}

func (u *PublishUsecase) publishWithAccount(ctx context.Context, item *model.ContentItem, p model.Platform, acc *model.SocialAccount) (res dto.PublishResult) {
	lg := logger.GetLogger().WithFields(logrus.Fields{"content_id": item.ID, "platform": p, "account_id": acc.ID})
	defer func() {
		if r := recover(); r != nil {
			bugsink.CapturePanic(r, map[string]string{"content_id": item.ID, "platform": string(p)})
			lg.WithField("panic", r).Error("platform publish panicked")
			res = dto.Failure(fmt.Sprintf("unexpected error: %v", r))
		}
	}()

	tokens, err := u.decryptTokens(acc)
	if err != nil {
		lg.WithField("error", err).Error("failed decrypting account tokens")
		return dto.Failure(err.Error())
	}

	client := u.factory.NewClient(p, acc.PlatformAccountID, tokens)
	if fresh := client.RefreshTokenIfNeeded(ctx); fresh != nil {
		persisted := true
		if err := u.persistTokens(ctx, acc, fresh); err != nil {
			persisted = false
			bugsink.CaptureError(err, map[string]string{"platform": string(p), "account_id": acc.ID})
			lg.WithField("error", err).Error("failed persisting refreshed tokens")
		}
		metrics.RecordTokenRefresh(string(p), persisted)
	}

	res = client.Publish(ctx, BuildPayload(item, p))
	if !res.Success {
		lg.WithField("error", res.Error).Warn("platform publish failed")
		if res.TokenRejected {
			if err := u.accountRepo.MarkError(context.WithoutCancel(ctx), acc.ID, res.Error); err != nil {
				lg.WithField("error", err).Error("failed marking account as errored")
			}
		}
	}
	return res
}

func (u *PublishUsecase) decryptTokens(acc *model.SocialAccount) (*model.OAuthTokens, error) {
	access, err := u.cipher.SafeDecrypt(acc.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}
	tokens := &model.OAuthTokens{AccessToken: access, ExpiresAt: acc.TokenExpiresAt, Scope: acc.Scope}
	if acc.RefreshToken != "" {
		if tokens.RefreshToken, err = u.cipher.SafeDecrypt(acc.RefreshToken); err != nil {
			return nil, fmt.Errorf("decrypt refresh token: %w", err)
		}
	}
	return tokens, nil
}

func (u *PublishUsecase) persistTokens(ctx context.Context, acc *model.SocialAccount, fresh *model.OAuthTokens) error {
	access, err := u.cipher.SafeEncrypt(fresh.AccessToken)
	if err != nil {
		return err
	}
	refresh, err := u.cipher.SafeEncrypt(fresh.RefreshToken)
	if err != nil {
		return err
	}
	return u.accountRepo.UpdateTokens(ctx, acc.ID, access, refresh, fresh.ExpiresAt)
}

func (u *PublishUsecase) recordResult(ctx context.Context, attemptID, contentID string, p model.Platform, res dto.PublishResult) {
	rec := &model.PublishResult{
		ContentID:      contentID,
		AttemptID:      attemptID,
		Platform:       p,
		Success:        res.Success,
		PlatformPostID: optional(res.PostID),
		PostURL:        optional(res.URL),
		ErrorMessage:   optional(res.Error),
		CreatedAt:      u.now(),
	}
	if err := u.resultRepo.Create(context.WithoutCancel(ctx), rec); err != nil {
		logger.GetLogger().WithFields(logrus.Fields{
			"content_id": contentID,
			"platform":   p,
			"error":      err,
		}).Error("failed recording publish result")
	}
}

func (u *PublishUsecase) notify(ctx context.Context, evt *dto.PublishEvent) {
	for _, n := range u.notifiers {
		if err := n.NotifyPublished(ctx, evt); err != nil {
			logger.GetLogger().WithField("content_id", evt.ContentID).WithField("error", err).Warn("publish notifier failed")
		}
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
