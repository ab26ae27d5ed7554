package dto

import (
	"time"

	"brandhub/domain/model"
)

// PublishOptions is the platform-ready payload handed to a platform client.
type PublishOptions struct {
	Text      string          `json:"text"`
	MediaURLs []string        `json:"media_urls,omitempty"`
	MediaKind model.MediaKind `json:"media_kind,omitempty"`
	LinkURL   string          `json:"link_url,omitempty"`
	Hashtags  []string        `json:"hashtags,omitempty"`
}

// PublishResult is the outcome of a single platform publish call.
type PublishResult struct {
	Success bool   `json:"success"`
	PostID  string `json:"post_id,omitempty"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
	// TokenRejected is set when the platform refused the credential itself.
	TokenRejected bool `json:"-"`
}

func Failure(msg string) PublishResult { return PublishResult{Success: false, Error: msg} }

type PlatformPublishResult struct {
	Platform model.Platform `json:"platform"`
	Result   PublishResult  `json:"result"`
}

// CountSucceeded returns how many entries succeeded.
func CountSucceeded(results []PlatformPublishResult) int {
	n := 0
	for _, r := range results {
		if r.Result.Success {
			n++
		}
	}
	return n
}

type PublishRequest struct {
	Platforms []string `json:"platforms"`
}

type PublishResponse struct {
	ContentID string                  `json:"content_id"`
	Status    model.ContentStatus     `json:"status"`
	Succeeded int                     `json:"succeeded"`
	Failed    int                     `json:"failed"`
	Results   []PlatformPublishResult `json:"results"`
}

// PublishEvent is emitted once per publish call after the status write.
type PublishEvent struct {
	Type        string                  `json:"type"             bson:"type"`
	AttemptID   string                  `json:"attempt_id"       bson:"attempt_id"`
	ContentID   string                  `json:"content_id"       bson:"content_id"`
	BrandID     string                  `json:"brand_id"         bson:"brand_id"`
	Status      model.ContentStatus     `json:"status"           bson:"status"`
	Results     []PlatformPublishResult `json:"results"          bson:"results"`
	PublishedAt *time.Time              `json:"published_at,omitempty" bson:"published_at,omitempty"`
	OccurredAt  time.Time               `json:"occurred_at"      bson:"occurred_at"`
}

const PublishEventType = "content_publish"
