// Package platform maps a Platform to its client implementation.
package platform

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"brandhub/domain/dto"
	"brandhub/domain/model"
	"brandhub/domain/repository"
	"brandhub/infrastructure/clients/linkedin"
	"brandhub/infrastructure/clients/meta"
	"brandhub/infrastructure/clients/social"
	"brandhub/infrastructure/clients/twitter"
	"brandhub/infrastructure/clients/youtube"
	"brandhub/infrastructure/configuration"
)

type Settings struct {
	HTTPTimeout       time.Duration
	MediaPollInterval time.Duration
	MediaPollTimeout  time.Duration
	RefreshWindow     time.Duration
	Twitter           configuration.PlatformOAuth
	LinkedIn          configuration.PlatformOAuth
	Meta              configuration.PlatformOAuth
	YouTube           configuration.PlatformOAuth
	// HTTPClient replaces the per-call client, mainly for tests.
	HTTPClient *http.Client
}

// SettingsFromConfig reads the publisher and OAuth sections of c.
func SettingsFromConfig(c configuration.Config) Settings {
	return Settings{
		HTTPTimeout:       c.Publisher.HTTPTimeout(),
		MediaPollInterval: c.Publisher.MediaPollInterval(),
		MediaPollTimeout:  c.Publisher.MediaPollTimeout(),
		RefreshWindow:     c.Publisher.RefreshWindow(),
		Twitter:           configuration.GetPlatformOAuth("twitter"),
		LinkedIn:          configuration.GetPlatformOAuth("linkedin"),
		Meta:              configuration.GetPlatformOAuth("meta"),
		YouTube:           configuration.GetPlatformOAuth("youtube"),
	}
}

type factory struct {
	s Settings
}

func NewFactory(s Settings) repository.IPlatformClientFactory {
	return &factory{s: s}
}

func (f *factory) httpClient() *http.Client {
	if f.s.HTTPClient != nil {
		return f.s.HTTPClient
	}
	return social.NewHTTPClient(f.s.HTTPTimeout)
}

func (f *factory) NewClient(p model.Platform, platformAccountID string, tokens *model.OAuthTokens) repository.IPlatformClient {
	hc := f.httpClient()
	switch p {
	case model.PlatformTwitter:
		return twitter.NewTwitterClient(tokens, twitter.Config{
			ClientID:      f.s.Twitter.ClientID,
			ClientSecret:  f.s.Twitter.ClientSecret,
			HTTPClient:    hc,
			RefreshWindow: f.s.RefreshWindow,
		})
	case model.PlatformLinkedIn:
		return linkedin.NewLinkedInClient(platformAccountID, tokens, linkedin.Config{
			ClientID:      f.s.LinkedIn.ClientID,
			ClientSecret:  f.s.LinkedIn.ClientSecret,
			HTTPClient:    hc,
			RefreshWindow: f.s.RefreshWindow,
		})
	case model.PlatformFacebook, model.PlatformInstagram:
		// Meta long-lived tokens use their own default window.
		return meta.NewMetaClient(p, platformAccountID, tokens, meta.Config{
			AppID:        f.s.Meta.ClientID,
			AppSecret:    f.s.Meta.ClientSecret,
			HTTPClient:   hc,
			PollInterval: f.s.MediaPollInterval,
			PollTimeout:  f.s.MediaPollTimeout,
		})
	case model.PlatformYouTube:
		return youtube.NewYouTubeClient(platformAccountID, tokens, youtube.Config{
			ClientID:      f.s.YouTube.ClientID,
			ClientSecret:  f.s.YouTube.ClientSecret,
			HTTPClient:    hc,
			RefreshWindow: f.s.RefreshWindow,
		})
	}
	return Unsupported{Platform: p}
}

// Unsupported is returned for platforms without an implementation.
type Unsupported struct {
	Platform model.Platform
}

func (u Unsupported) message() string {
	return fmt.Sprintf("Unsupported platform: %s", u.Platform)
}

func (u Unsupported) Publish(context.Context, dto.PublishOptions) dto.PublishResult {
	return dto.Failure(u.message())
}

func (u Unsupported) RefreshTokenIfNeeded(context.Context) *model.OAuthTokens { return nil }

func (u Unsupported) GetProfile(context.Context) (*model.PlatformProfile, error) {
	return nil, fmt.Errorf("%s", u.message())
}
