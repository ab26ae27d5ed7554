package persistence

import (
	"context"
	"regexp"
	"testing"
	"time"

	"brandhub/domain/model"
	"brandhub/domain/repository"
	"brandhub/infrastructure/configuration"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestNewRepositories_RequiresHost(t *testing.T) {
	saved := configuration.C.Database
	t.Cleanup(func() { configuration.C.Database = saved })
	configuration.C.Database.MySql = configuration.Db{}

	db, err := NewRepositories()
	assert.Error(t, err)
	assert.Nil(t, db)
}

func newMockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return gormDB, mock
}

func TestGormContentRepository_GetByID(t *testing.T) {
	gormDB, mock := newMockGorm(t)
	repo := NewGormContentRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `content_items` WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "brand_id", "body", "variations", "media_urls", "platforms", "status", "approval_status"}).
			AddRow("c1", "b1", "hello", `{"TWITTER":"short"}`, `["https://m/1.jpg"]`, `["TWITTER","LINKEDIN"]`, "SCHEDULED", "APPROVED"))

	item, err := repo.GetByID(context.Background(), "c1")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "short", item.TextFor(model.PlatformTwitter))
	assert.Equal(t, "hello", item.TextFor(model.PlatformLinkedIn))
	assert.Equal(t, []model.Platform{model.PlatformTwitter, model.PlatformLinkedIn}, item.Platforms)
	assert.Equal(t, []string{"https://m/1.jpg"}, item.MediaURLs)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `content_items` WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	item, err = repo.GetByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, item)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormContentRepository_UpdatePublishStatus(t *testing.T) {
	gormDB, mock := newMockGorm(t)
	repo := NewGormContentRepository(gormDB)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE `content_items` SET `status`=?,`updated_at`=? WHERE id = ?")).
		WithArgs(string(model.ContentStatusFailed), sqlmock.AnyArg(), "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdatePublishStatus(context.Background(), "c1", model.ContentStatusFailed, nil))

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `content_items` SET `published_at`=?,`status`=?,`updated_at`=? WHERE id = ?")).
		WithArgs(now, string(model.ContentStatusPublished), sqlmock.AnyArg(), "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdatePublishStatus(context.Background(), "c1", model.ContentStatusPublished, &now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormSocialAccountRepository_MarkErrorNotFound(t *testing.T) {
	gormDB, mock := newMockGorm(t)
	repo := NewGormSocialAccountRepository(gormDB)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE `social_accounts` SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.MarkError(context.Background(), "nope", "boom")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormPublishResultRepository_Create(t *testing.T) {
	gormDB, mock := newMockGorm(t)
	repo := NewGormPublishResultRepository(gormDB)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `publish_results`")).
		WillReturnResult(sqlmock.NewResult(42, 1))

	rec := &model.PublishResult{ContentID: "c1", AttemptID: "a1", Platform: model.PlatformTwitter, Success: true}
	require.NoError(t, repo.Create(context.Background(), rec))
	assert.EqualValues(t, 42, rec.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
