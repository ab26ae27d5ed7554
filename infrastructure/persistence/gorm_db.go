package persistence

import (
	"errors"
	"fmt"
	"time"

	"brandhub/domain/model"
	"brandhub/infrastructure/configuration"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewRepositories opens the MySQL store used when DB_VENDOR=mysql.
func NewRepositories() (*gorm.DB, error) {
	cfg := configuration.C.Database.MySql
	if cfg.Host == "" {
		return nil, errors.New("mysql host not configured")
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC", cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// MigrateGorm creates or updates the publishing tables on the MySQL store.
func MigrateGorm(db *gorm.DB) error {
	return db.AutoMigrate(&model.ContentItem{}, &model.SocialAccount{}, &model.PublishResult{})
}
