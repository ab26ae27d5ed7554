package model

import "time"

type ContentStatus string

const (
	ContentStatusDraft              ContentStatus = "DRAFT"
	ContentStatusPending            ContentStatus = "PENDING"
	ContentStatusApproved           ContentStatus = "APPROVED"
	ContentStatusAutoApproved       ContentStatus = "AUTO_APPROVED"
	ContentStatusScheduled          ContentStatus = "SCHEDULED"
	ContentStatusPublished          ContentStatus = "PUBLISHED"
	ContentStatusPartiallyPublished ContentStatus = "PARTIALLY_PUBLISHED"
	ContentStatusFailed             ContentStatus = "FAILED"
)

// IsTerminal reports whether the status is one only the publisher writes.
func (s ContentStatus) IsTerminal() bool {
	switch s {
	case ContentStatusPublished, ContentStatusPartiallyPublished, ContentStatusFailed:
		return true
	}
	return false
}

type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "PENDING"
	ApprovalStatusApproved ApprovalStatus = "APPROVED"
	ApprovalStatusRejected ApprovalStatus = "REJECTED"
)

type MediaKind string

const (
	MediaKindNone     MediaKind = ""
	MediaKindImage    MediaKind = "IMAGE"
	MediaKindVideo    MediaKind = "VIDEO"
	MediaKindCarousel MediaKind = "CAROUSEL"
)

// ContentItem is a unit of content distributed to one or more platforms.
// Only Status and PublishedAt are written by the publisher.
type ContentItem struct {
	ID             string              `json:"id"              gorm:"primaryKey;type:varchar(64)"`
	BrandID        string              `json:"brand_id"        gorm:"index;type:varchar(64)"`
	Body           string              `json:"body"            gorm:"type:text"`
	Variations     map[Platform]string `json:"variations"      gorm:"serializer:json;type:text"`
	MediaURLs      []string            `json:"media_urls"      gorm:"serializer:json;type:text"`
	MediaKind      MediaKind           `json:"media_kind"      gorm:"type:varchar(16)"`
	LinkURL        string              `json:"link_url"        gorm:"type:text"`
	Hashtags       []string            `json:"hashtags"        gorm:"serializer:json;type:text"`
	Platforms      []Platform          `json:"platforms"       gorm:"serializer:json;type:text"`
	Status         ContentStatus       `json:"status"          gorm:"index;type:varchar(32)"`
	ApprovalStatus ApprovalStatus      `json:"approval_status" gorm:"type:varchar(16)"`
	ScheduledFor   *time.Time          `json:"scheduled_for,omitempty" gorm:"index"`
	PublishedAt    *time.Time          `json:"published_at,omitempty"`
	CreatedAt      time.Time           `json:"created_at"      gorm:"autoCreateTime"`
	UpdatedAt      time.Time           `json:"updated_at"      gorm:"autoUpdateTime"`
}

func (ContentItem) TableName() string { return "content_items" }

// TextFor returns the platform variation when one exists, otherwise the body.
func (c *ContentItem) TextFor(p Platform) string {
	if v, ok := c.Variations[p]; ok && v != "" {
		return v
	}
	return c.Body
}

// IsDue reports whether the item is eligible for the scheduled runner at now.
func (c *ContentItem) IsDue(now time.Time) bool {
	return c.Status == ContentStatusScheduled &&
		c.ApprovalStatus == ApprovalStatusApproved &&
		c.ScheduledFor != nil && !c.ScheduledFor.After(now)
}
