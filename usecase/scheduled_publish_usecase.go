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

	"github.com/sirupsen/logrus"
)

type IScheduledPublishUsecase interface {
	// PublishScheduled publishes the brand's due items and returns how many
	// reached at least one platform.
	PublishScheduled(ctx context.Context, brandID string) (int, error)
	// PublishAllScheduled runs PublishScheduled for every brand with due items.
	PublishAllScheduled(ctx context.Context) (int, error)
}

type SchedulerConfig struct {
	BatchSize   int
	BatchBudget time.Duration
}

type scheduledPublishUsecase struct {
	contentRepo repository.IContent
	publisher   IPublishUsecase
	cfg         SchedulerConfig
	now         func() time.Time
}

func NewScheduledPublishUsecase(contentRepo repository.IContent, publisher IPublishUsecase, cfg SchedulerConfig) IScheduledPublishUsecase {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.BatchBudget <= 0 {
		cfg.BatchBudget = 5 * time.Minute
	}
	return &scheduledPublishUsecase{
		contentRepo: contentRepo,
		publisher:   publisher,
		cfg:         cfg,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (u *scheduledPublishUsecase) PublishScheduled(ctx context.Context, brandID string) (int, error) {
	lg := logger.GetLogger().WithField("brand_id", brandID)
	started := u.now()
	deadline := started.Add(u.cfg.BatchBudget)

	items, err := u.contentRepo.ListDueScheduled(ctx, brandID, started, u.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("list due content for brand %s: %w", brandID, err)
	}

	processed, published := 0, 0
	for i, item := range items {
		if ctx.Err() != nil {
			lg.WithField("remaining", len(items)-i).Warn("scheduled run cancelled")
			break
		}
		if u.now().After(deadline) {
			lg.WithField("remaining", len(items)-i).Warn("scheduled run budget exhausted; leaving items for the next tick")
			break
		}
		processed++
		results, err := u.publishOne(ctx, item.ID, item.Platforms)
		if errors.Is(err, ErrNoPlatforms) {
			u.failUntargeted(ctx, lg, item.ID)
			continue
		}
		if err != nil {
			lg.WithFields(logrus.Fields{"content_id": item.ID, "error": err}).Error("scheduled publish failed")
			continue
		}
		if dto.CountSucceeded(results) > 0 {
			published++
		}
	}

	metrics.RecordScheduledRun(processed, published)
	lg.WithFields(logrus.Fields{"due": len(items), "processed": processed, "published": published}).Info("scheduled run finished")
	return published, nil
}

func (u *scheduledPublishUsecase) publishOne(ctx context.Context, contentID string, platforms []model.Platform) (results []dto.PlatformPublishResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			bugsink.CapturePanic(r, map[string]string{"content_id": contentID})
			err = fmt.Errorf("panic while publishing %s: %v", contentID, r)
		}
	}()
	return u.publisher.Publish(ctx, contentID, platforms)
}

// failUntargeted moves an item with no target platforms out of SCHEDULED so it
// stops occupying a batch slot on every tick.
func (u *scheduledPublishUsecase) failUntargeted(ctx context.Context, lg *logrus.Entry, contentID string) {
	lg = lg.WithField("content_id", contentID)
	if err := u.contentRepo.UpdatePublishStatus(context.WithoutCancel(ctx), contentID, model.ContentStatusFailed, nil); err != nil {
		lg.WithField("error", err).Error("failed marking untargeted item")
		return
	}
	metrics.RecordContentStatus(string(model.ContentStatusFailed))
	lg.Warn("scheduled item has no target platforms; marked FAILED")
}

func (u *scheduledPublishUsecase) PublishAllScheduled(ctx context.Context) (int, error) {
	brands, err := u.contentRepo.ListBrandsWithDueScheduled(ctx, u.now())
	if err != nil {
		return 0, fmt.Errorf("list brands with due content: %w", err)
	}
	total := 0
	for _, brandID := range brands {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		n, err := u.PublishScheduled(ctx, brandID)
		if err != nil {
			logger.GetLogger().WithFields(logrus.Fields{"brand_id": brandID, "error": err}).Error("scheduled run failed for brand")
			continue
		}
		total += n
	}
	return total, nil
}
