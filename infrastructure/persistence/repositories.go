package persistence

import (
	"database/sql"

	"brandhub/domain/repository"

	"gorm.io/gorm"
)

// Repositories groups the stores the publisher depends on.
type Repositories struct {
	Content  repository.IContent
	Accounts repository.ISocialAccount
	Results  repository.IPublishResult
}

// NewSQLRepositories returns the PostgreSQL implementations.
func NewSQLRepositories(db *sql.DB) Repositories {
	return Repositories{
		Content:  NewContentRepository(db),
		Accounts: NewSocialAccountRepository(db),
		Results:  NewPublishResultRepository(db),
	}
}

// NewGormRepositories returns the MySQL implementations.
func NewGormRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Content:  NewGormContentRepository(db),
		Accounts: NewGormSocialAccountRepository(db),
		Results:  NewGormPublishResultRepository(db),
	}
}
