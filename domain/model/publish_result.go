package model

import "time"

// PublishResult is an append-only record of one platform attempt.
// Rows sharing an AttemptID were written by the same publish call.
type PublishResult struct {
	ID             int64     `json:"id"               gorm:"primaryKey;autoIncrement"`
	ContentID      string    `json:"content_id"       gorm:"index;type:varchar(64)"`
	AttemptID      string    `json:"attempt_id"       gorm:"index;type:varchar(64)"`
	Platform       Platform  `json:"platform"         gorm:"type:varchar(32)"`
	Success        bool      `json:"success"`
	PlatformPostID *string   `json:"platform_post_id,omitempty" gorm:"type:varchar(255)"`
	PostURL        *string   `json:"post_url,omitempty"         gorm:"type:text"`
	ErrorMessage   *string   `json:"error_message,omitempty"    gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at"       gorm:"autoCreateTime"`
}

func (PublishResult) TableName() string { return "publish_results" }
