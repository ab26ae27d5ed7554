package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"brandhub/domain/dto"
	"brandhub/domain/model"
	"brandhub/infrastructure/clients/social"
	"brandhub/infrastructure/logger"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	maxTitleLength = 100
	defaultPrivacy = "public"
)

type Config struct {
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
	// Endpoint overrides the API base URL.
	Endpoint      string
	TokenURL      string
	PrivacyStatus string
	RefreshWindow time.Duration
	Now           func() time.Time
}

// Client uploads videos to the authenticated channel.
type Client struct {
	cfg       Config
	channelID string
	tokens    *model.OAuthTokens
}

func NewYouTubeClient(channelID string, tokens *model.OAuthTokens, cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = social.NewHTTPClient(0)
	}
	if cfg.PrivacyStatus == "" {
		cfg.PrivacyStatus = defaultPrivacy
	}
	if cfg.RefreshWindow <= 0 {
		cfg.RefreshWindow = 5 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if tokens == nil {
		tokens = &model.OAuthTokens{}
	}
	return &Client{cfg: cfg, channelID: channelID, tokens: tokens}
}

func (c *Client) oauthConfig() *oauth2.Config {
	endpoint := google.Endpoint
	if c.cfg.TokenURL != "" {
		endpoint.TokenURL = c.cfg.TokenURL
	}
	return &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeReadonlyScope},
		Endpoint:     endpoint,
	}
}

// service builds an API client that sends the current access token. Uploads
// are bounded by the caller's context, not the per-call HTTP timeout.
func (c *Client) service(ctx context.Context) (*youtube.Service, error) {
	base := c.cfg.HTTPClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.tokens.AccessToken, TokenType: "Bearer"}),
			Base:   base,
		},
	}
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if c.cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.cfg.Endpoint))
	}
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	return svc, nil
}

func (c *Client) Publish(ctx context.Context, opts dto.PublishOptions) dto.PublishResult {
	if opts.MediaKind != model.MediaKindVideo || len(opts.MediaURLs) == 0 {
		return dto.Failure("YouTube requires a video")
	}
	svc, err := c.service(ctx)
	if err != nil {
		return dto.Failure(err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.MediaURLs[0], nil)
	if err != nil {
		return dto.Failure(fmt.Sprintf("invalid video url: %v", err))
	}
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return dto.Failure(fmt.Sprintf("download video: %v", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return dto.Failure(fmt.Sprintf("download video: HTTP %d", resp.StatusCode))
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       Title(opts.Text),
			Description: social.ComposeText(opts.Text, opts.Hashtags, opts.LinkURL, true),
			Tags:        tags(opts.Hashtags),
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: c.cfg.PrivacyStatus,
		},
	}
	uploaded, err := svc.Videos.Insert([]string{"snippet", "status"}, video).
		Media(resp.Body).
		Context(ctx).
		Do()
	if err != nil {
		logger.GetLogger().WithField("platform", model.PlatformYouTube).WithField("channel_id", c.channelID).WithField("error", err).Warn("youtube upload failed")
		return failure(err)
	}
	return dto.PublishResult{Success: true, PostID: uploaded.Id, URL: WatchURL(uploaded.Id)}
}

func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// Title is the first line of text, shortened to the platform limit.
func Title(text string) string {
	line := strings.TrimSpace(text)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	if line == "" {
		line = "Untitled"
	}
	return social.Truncate(line, maxTitleLength)
}

func tags(hashtags []string) []string {
	out := make([]string, 0, len(hashtags))
	for _, h := range hashtags {
		if t := strings.TrimLeft(strings.TrimSpace(h), "#"); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func failure(err error) dto.PublishResult {
	res := dto.Failure(fmt.Sprintf("YouTube API error: %v", err))
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusUnauthorized {
		res.TokenRejected = true
	}
	return res
}

// RefreshTokenIfNeeded checks if the token is close to expiry and refreshes
// it against the Google token endpoint.
func (c *Client) RefreshTokenIfNeeded(ctx context.Context) *model.OAuthTokens {
	if !social.NeedsRefresh(c.tokens, c.cfg.Now(), c.cfg.RefreshWindow) {
		return nil
	}
	expired := social.ToOAuth2(c.tokens)
	expired.Expiry = c.cfg.Now().Add(-time.Minute)

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.cfg.HTTPClient)
	tok, err := c.oauthConfig().TokenSource(ctx, expired).Token()
	if err != nil {
		logger.GetLogger().WithField("platform", model.PlatformYouTube).WithField("error", err).Warn("youtube token refresh failed")
		return nil
	}
	c.tokens = social.FromOAuth2(tok, c.tokens)
	return c.tokens
}

func (c *Client) GetProfile(ctx context.Context) (*model.PlatformProfile, error) {
	svc, err := c.service(ctx)
	if err != nil {
		return nil, err
	}
	response, err := svc.Channels.List([]string{"snippet"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get my channel: %w", err)
	}
	if len(response.Items) == 0 {
		return nil, fmt.Errorf("no channel found for authenticated user")
	}
	channel := response.Items[0]
	p := &model.PlatformProfile{
		PlatformID: channel.Id,
		ProfileURL: "https://www.youtube.com/channel/" + channel.Id,
		Handle:     channel.Id,
	}
	if channel.Snippet != nil {
		p.DisplayName = channel.Snippet.Title
		if channel.Snippet.CustomUrl != "" {
			p.Handle = channel.Snippet.CustomUrl
			p.ProfileURL = "https://www.youtube.com/" + channel.Snippet.CustomUrl
		}
		if th := channel.Snippet.Thumbnails; th != nil {
			switch {
			case th.High != nil:
				p.AvatarURL = th.High.Url
			case th.Medium != nil:
				p.AvatarURL = th.Medium.Url
			case th.Default != nil:
				p.AvatarURL = th.Default.Url
			}
		}
	}
	return p, nil
}
