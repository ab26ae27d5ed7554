package persistence

import (
	"context"
	"errors"
	"time"

	"brandhub/domain/model"
	"brandhub/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormContentRepository is the MySQL variant of ContentRepository.
type GormContentRepository struct{ db *gorm.DB }

func NewGormContentRepository(db *gorm.DB) *GormContentRepository {
	return &GormContentRepository{db: db}
}

var _ repository.IContent = (*GormContentRepository)(nil)

func (r *GormContentRepository) GetByID(ctx context.Context, id string) (*model.ContentItem, error) {
	var item model.ContentItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormContentRepository) UpdatePublishStatus(ctx context.Context, id string, status model.ContentStatus, publishedAt *time.Time) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	if publishedAt != nil {
		updates["published_at"] = *publishedAt
	}
	return r.db.WithContext(ctx).Model(&model.ContentItem{}).Where("id = ?", id).Updates(updates).Error
}

func (r *GormContentRepository) dueScope(now time.Time) *gorm.DB {
	return r.db.Where("status = ? AND approval_status = ? AND scheduled_for <= ?",
		model.ContentStatusScheduled, model.ApprovalStatusApproved, now)
}

func (r *GormContentRepository) ListDueScheduled(ctx context.Context, brandID string, now time.Time, limit int) ([]*model.ContentItem, error) {
	if limit <= 0 {
		limit = 50
	}
	var items []*model.ContentItem
	err := r.dueScope(now).WithContext(ctx).
		Where("brand_id = ?", brandID).
		Order("scheduled_for ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *GormContentRepository) ListBrandsWithDueScheduled(ctx context.Context, now time.Time) ([]string, error) {
	var brands []string
	err := r.dueScope(now).WithContext(ctx).
		Model(&model.ContentItem{}).
		Distinct("brand_id").
		Order("brand_id").
		Pluck("brand_id", &brands).Error
	return brands, err
}

// GormSocialAccountRepository is the MySQL variant of SocialAccountRepository.
type GormSocialAccountRepository struct{ db *gorm.DB }

func NewGormSocialAccountRepository(db *gorm.DB) *GormSocialAccountRepository {
	return &GormSocialAccountRepository{db: db}
}

var _ repository.ISocialAccount = (*GormSocialAccountRepository)(nil)

func (r *GormSocialAccountRepository) ListConnected(ctx context.Context, brandID string, platforms []model.Platform) ([]*model.SocialAccount, error) {
	if len(platforms) == 0 {
		return nil, nil
	}
	var list []*model.SocialAccount
	err := r.db.WithContext(ctx).
		Where("brand_id = ? AND status = ? AND platform IN ?", brandID, model.AccountStatusConnected, platforms).
		Order("updated_at DESC").
		Find(&list).Error
	return list, err
}

func (r *GormSocialAccountRepository) ListByBrand(ctx context.Context, brandID string) ([]*model.SocialAccount, error) {
	var list []*model.SocialAccount
	err := r.db.WithContext(ctx).Where("brand_id = ?", brandID).Order("platform, created_at").Find(&list).Error
	return list, err
}

func (r *GormSocialAccountRepository) Upsert(ctx context.Context, acc *model.SocialAccount) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.SocialAccount
		err := tx.Where("brand_id = ? AND platform = ? AND platform_account_id = ?", acc.BrandID, acc.Platform, acc.PlatformAccountID).
			Take(&existing).Error
		switch {
		case err == nil:
			acc.ID = existing.ID
			acc.CreatedAt = existing.CreatedAt
		case errors.Is(err, gorm.ErrRecordNotFound):
			if acc.ID == "" {
				acc.ID = uuid.NewString()
			}
		default:
			return err
		}
		return tx.Save(acc).Error
	})
}

func (r *GormSocialAccountRepository) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt *time.Time) error {
	updates := map[string]interface{}{
		"access_token":     accessToken,
		"token_expires_at": expiresAt,
		"status":           model.AccountStatusConnected,
		"last_error":       nil,
		"updated_at":       time.Now().UTC(),
	}
	if refreshToken != "" {
		updates["refresh_token"] = refreshToken
	}
	return r.update(ctx, r.db.Where("id = ?", id), updates)
}

func (r *GormSocialAccountRepository) MarkError(ctx context.Context, id, message string) error {
	return r.update(ctx, r.db.Where("id = ?", id), map[string]interface{}{
		"status":     model.AccountStatusError,
		"last_error": message,
		"updated_at": time.Now().UTC(),
	})
}

func (r *GormSocialAccountRepository) Disconnect(ctx context.Context, brandID, id string) error {
	return r.update(ctx, r.db.Where("id = ? AND brand_id = ?", id, brandID), map[string]interface{}{
		"status":           model.AccountStatusDisconnected,
		"access_token":     "",
		"refresh_token":    "",
		"token_expires_at": nil,
		"updated_at":       time.Now().UTC(),
	})
}

func (r *GormSocialAccountRepository) update(ctx context.Context, scope *gorm.DB, updates map[string]interface{}) error {
	res := scope.WithContext(ctx).Model(&model.SocialAccount{}).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GormPublishResultRepository is the MySQL variant of PublishResultRepository.
type GormPublishResultRepository struct{ db *gorm.DB }

func NewGormPublishResultRepository(db *gorm.DB) *GormPublishResultRepository {
	return &GormPublishResultRepository{db: db}
}

var _ repository.IPublishResult = (*GormPublishResultRepository)(nil)

func (r *GormPublishResultRepository) Create(ctx context.Context, res *model.PublishResult) error {
	return r.db.WithContext(ctx).Create(res).Error
}

func (r *GormPublishResultRepository) ListByContent(ctx context.Context, contentID string) ([]*model.PublishResult, error) {
	var list []*model.PublishResult
	err := r.db.WithContext(ctx).Where("content_id = ?", contentID).Order("created_at DESC, id DESC").Find(&list).Error
	return list, err
}
