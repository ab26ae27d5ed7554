package model

import "time"

// OAuthTokens is the decrypted in-memory form of a SocialAccount credential.
type OAuthTokens struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Scope        string     `json:"scope,omitempty"`
}

// ExpiresWithin reports whether the token expires inside d from now.
// Tokens without a known expiry never do.
func (t *OAuthTokens) ExpiresWithin(now time.Time, d time.Duration) bool {
	if t == nil || t.ExpiresAt == nil {
		return false
	}
	return t.ExpiresAt.Before(now.Add(d))
}

// PlatformProfile is the authenticated identity behind a credential.
type PlatformProfile struct {
	PlatformID  string `json:"platform_id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	ProfileURL  string `json:"profile_url,omitempty"`
}
