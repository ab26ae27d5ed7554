package model

import (
	"fmt"
	"strings"
	"time"
)

type Platform string

const (
	PlatformTwitter   Platform = "TWITTER"
	PlatformLinkedIn  Platform = "LINKEDIN"
	PlatformFacebook  Platform = "FACEBOOK"
	PlatformInstagram Platform = "INSTAGRAM"
	PlatformYouTube   Platform = "YOUTUBE"
)

// SupportedPlatforms lists every platform with a client implementation.
var SupportedPlatforms = []Platform{
	PlatformTwitter,
	PlatformLinkedIn,
	PlatformFacebook,
	PlatformInstagram,
	PlatformYouTube,
}

// ParsePlatform accepts any casing and the "x" alias for twitter.
func ParsePlatform(s string) (Platform, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	if v == "X" {
		v = string(PlatformTwitter)
	}
	for _, p := range SupportedPlatforms {
		if string(p) == v {
			return p, nil
		}
	}
	return "", fmt.Errorf("unsupported platform: %s", s)
}

// DisplayName is the human readable platform name used in messages.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformTwitter:
		return "Twitter"
	case PlatformLinkedIn:
		return "LinkedIn"
	case PlatformFacebook:
		return "Facebook"
	case PlatformInstagram:
		return "Instagram"
	case PlatformYouTube:
		return "YouTube"
	}
	return string(p)
}

type AccountStatus string

const (
	AccountStatusConnected    AccountStatus = "CONNECTED"
	AccountStatusDisconnected AccountStatus = "DISCONNECTED"
	AccountStatusError        AccountStatus = "ERROR"
)

// SocialAccount binds a brand to one platform identity. Tokens are stored
// encrypted and never serialised.
type SocialAccount struct {
	ID                string        `json:"id"                  gorm:"primaryKey;type:varchar(64)"`
	BrandID           string        `json:"brand_id"            gorm:"uniqueIndex:ux_social_account;type:varchar(64)"`
	Platform          Platform      `json:"platform"            gorm:"uniqueIndex:ux_social_account;type:varchar(32)"`
	PlatformAccountID string        `json:"platform_account_id" gorm:"uniqueIndex:ux_social_account;type:varchar(128)"`
	DisplayName       string        `json:"display_name"        gorm:"type:varchar(255)"`
	AccessToken       string        `json:"-"                   gorm:"type:text"`
	RefreshToken      string        `json:"-"                   gorm:"type:text"`
	TokenExpiresAt    *time.Time    `json:"token_expires_at,omitempty"`
	Scope             string        `json:"scope"               gorm:"type:text"`
	Status            AccountStatus `json:"status"              gorm:"index;type:varchar(16)"`
	LastError         *string       `json:"last_error,omitempty" gorm:"type:text"`
	CreatedAt         time.Time     `json:"created_at"          gorm:"autoCreateTime"`
	UpdatedAt         time.Time     `json:"updated_at"          gorm:"autoUpdateTime"`
}

func (SocialAccount) TableName() string { return "social_accounts" }

func (a *SocialAccount) IsConnected() bool { return a.Status == AccountStatusConnected }
