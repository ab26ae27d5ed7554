package meta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"brandhub/domain/dto"
	"brandhub/domain/model"
	"brandhub/infrastructure/clients/social"
	"brandhub/infrastructure/logger"
)

const (
	DefaultGraphBase = "https://graph.facebook.com/v19.0"

	MaxCarouselItems = 10
	// tokenRejectedCode is the Graph API code for an invalid or expired token.
	tokenRejectedCode = 190
)

var (
	ErrContainerFailed  = errors.New("instagram media container failed")
	ErrContainerTimeout = errors.New("instagram media container not ready before timeout")
)

type Config struct {
	AppID         string
	AppSecret     string
	HTTPClient    *http.Client
	GraphBase     string
	PollInterval  time.Duration
	PollTimeout   time.Duration
	RefreshWindow time.Duration
	Now           func() time.Time
}

// Client talks to the unified graph network. The surface decides whether
// accountID is a Facebook page or an Instagram business account.
type Client struct {
	cfg       Config
	surface   model.Platform
	accountID string
	tokens    *model.OAuthTokens
	req       *social.Requester
}

func NewMetaClient(surface model.Platform, accountID string, tokens *model.OAuthTokens, cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = social.NewHTTPClient(0)
	}
	if cfg.GraphBase == "" {
		cfg.GraphBase = DefaultGraphBase
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 90 * time.Second
	}
	if cfg.RefreshWindow <= 0 {
		cfg.RefreshWindow = 7 * 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if tokens == nil {
		tokens = &model.OAuthTokens{}
	}
	return &Client{
		cfg:       cfg,
		surface:   surface,
		accountID: accountID,
		tokens:    tokens,
		req: &social.Requester{
			Platform:   surface.DisplayName(),
			HTTPClient: cfg.HTTPClient,
			Decode:     decodeError,
		},
	}
}

type idResponse struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}

func (c *Client) endpoint(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return c.cfg.GraphBase + "/" + strings.Join(escaped, "/")
}

func (c *Client) post(ctx context.Context, endpoint string, form url.Values) (idResponse, error) {
	form.Set("access_token", c.tokens.AccessToken)
	var out idResponse
	err := c.req.Form(ctx, http.MethodPost, endpoint, form, &out)
	return out, err
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("access_token", c.tokens.AccessToken)
	return c.req.Get(ctx, endpoint, params, out)
}

func (c *Client) Publish(ctx context.Context, opts dto.PublishOptions) dto.PublishResult {
	if c.accountID == "" {
		return dto.Failure(fmt.Sprintf("%s account id missing; reconnect the account", c.surface.DisplayName()))
	}
	var (
		res dto.PublishResult
		err error
	)
	switch c.surface {
	case model.PlatformInstagram:
		res, err = c.publishInstagram(ctx, opts)
	default:
		res, err = c.publishFacebook(ctx, opts)
	}
	if err != nil {
		logger.GetLogger().WithField("platform", c.surface).WithField("error", err).Warn("meta publish failed")
		return social.FailureFrom(err)
	}
	return res
}

func (c *Client) publishFacebook(ctx context.Context, opts dto.PublishOptions) (dto.PublishResult, error) {
	page := c.accountID
	switch {
	case opts.MediaKind == model.MediaKindVideo && len(opts.MediaURLs) > 0:
		form := url.Values{}
		form.Set("file_url", opts.MediaURLs[0])
		form.Set("description", social.ComposeText(opts.Text, opts.Hashtags, opts.LinkURL, true))
		out, err := c.post(ctx, c.endpoint(page, "videos"), form)
		if err != nil {
			return dto.PublishResult{}, err
		}
		return facebookResult(out.ID), nil

	case len(opts.MediaURLs) == 1:
		form := url.Values{}
		form.Set("url", opts.MediaURLs[0])
		form.Set("caption", social.ComposeText(opts.Text, opts.Hashtags, opts.LinkURL, true))
		out, err := c.post(ctx, c.endpoint(page, "photos"), form)
		if err != nil {
			return dto.PublishResult{}, err
		}
		if out.PostID != "" {
			return facebookResult(out.PostID), nil
		}
		return facebookResult(out.ID), nil

	case len(opts.MediaURLs) > 1:
		form := url.Values{}
		form.Set("message", social.ComposeText(opts.Text, opts.Hashtags, opts.LinkURL, true))
		for i, m := range opts.MediaURLs {
			photo := url.Values{}
			photo.Set("url", m)
			photo.Set("published", "false")
			out, err := c.post(ctx, c.endpoint(page, "photos"), photo)
			if err != nil {
				return dto.PublishResult{}, fmt.Errorf("upload photo %d: %w", i+1, err)
			}
			ref, _ := json.Marshal(map[string]string{"media_fbid": out.ID})
			form.Set(fmt.Sprintf("attached_media[%d]", i), string(ref))
		}
		out, err := c.post(ctx, c.endpoint(page, "feed"), form)
		if err != nil {
			return dto.PublishResult{}, err
		}
		return facebookResult(out.ID), nil
	}

	form := url.Values{}
	form.Set("message", social.ComposeText(opts.Text, opts.Hashtags, opts.LinkURL, false))
	if opts.LinkURL != "" {
		form.Set("link", opts.LinkURL)
	}
	out, err := c.post(ctx, c.endpoint(page, "feed"), form)
	if err != nil {
		return dto.PublishResult{}, err
	}
	return facebookResult(out.ID), nil
}

func facebookResult(id string) dto.PublishResult {
	if id == "" {
		return dto.Failure("Facebook API returned no post id")
	}
	return dto.PublishResult{Success: true, PostID: id, URL: "https://www.facebook.com/" + id}
}

func (c *Client) publishInstagram(ctx context.Context, opts dto.PublishOptions) (dto.PublishResult, error) {
	if len(opts.MediaURLs) == 0 {
		return dto.Failure("Instagram requires at least one image or video"), nil
	}
	if len(opts.MediaURLs) > MaxCarouselItems {
		return dto.Failure(fmt.Sprintf("Instagram carousels hold at most %d items, got %d", MaxCarouselItems, len(opts.MediaURLs))), nil
	}
	ig := c.accountID
	caption := social.ComposeText(opts.Text, opts.Hashtags, opts.LinkURL, true)

	var containerID string
	if len(opts.MediaURLs) == 1 {
		form := mediaForm(opts.MediaURLs[0], opts.MediaKind, false)
		form.Set("caption", caption)
		out, err := c.post(ctx, c.endpoint(ig, "media"), form)
		if err != nil {
			return dto.PublishResult{}, err
		}
		containerID = out.ID
	} else {
		children := make([]string, 0, len(opts.MediaURLs))
		for i, m := range opts.MediaURLs {
			out, err := c.post(ctx, c.endpoint(ig, "media"), mediaForm(m, opts.MediaKind, true))
			if err != nil {
				return dto.PublishResult{}, fmt.Errorf("create carousel item %d: %w", i+1, err)
			}
			children = append(children, out.ID)
		}
		form := url.Values{}
		form.Set("media_type", "CAROUSEL")
		form.Set("children", strings.Join(children, ","))
		form.Set("caption", caption)
		out, err := c.post(ctx, c.endpoint(ig, "media"), form)
		if err != nil {
			return dto.PublishResult{}, err
		}
		containerID = out.ID
	}
	if containerID == "" {
		return dto.Failure("Instagram API returned no container id"), nil
	}

	if err := c.waitForContainer(ctx, containerID); err != nil {
		return dto.PublishResult{}, err
	}

	publishForm := url.Values{}
	publishForm.Set("creation_id", containerID)
	published, err := c.post(ctx, c.endpoint(ig, "media_publish"), publishForm)
	if err != nil {
		return dto.PublishResult{}, err
	}
	if published.ID == "" {
		return dto.Failure("Instagram API returned no media id"), nil
	}

	res := dto.PublishResult{Success: true, PostID: published.ID}
	var link struct {
		Permalink string `json:"permalink"`
	}
	if err := c.get(ctx, c.endpoint(published.ID), url.Values{"fields": {"permalink"}}, &link); err != nil {
		logger.GetLogger().WithField("media_id", published.ID).WithField("error", err).Warn("instagram permalink lookup failed")
	}
	res.URL = link.Permalink
	return res, nil
}

func mediaForm(mediaURL string, kind model.MediaKind, carouselItem bool) url.Values {
	form := url.Values{}
	if kind == model.MediaKindVideo || IsVideoURL(mediaURL) {
		form.Set("video_url", mediaURL)
		if carouselItem {
			form.Set("media_type", "VIDEO")
		} else {
			form.Set("media_type", "REELS")
		}
	} else {
		form.Set("image_url", mediaURL)
	}
	if carouselItem {
		form.Set("is_carousel_item", "true")
	}
	return form
}

// IsVideoURL guesses from the file extension.
func IsVideoURL(mediaURL string) bool {
	u, err := url.Parse(mediaURL)
	if err != nil {
		return false
	}
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".mp4", ".mov", ".m4v", ".webm":
		return true
	}
	return false
}

// waitForContainer polls status_code until FINISHED, failing on ERROR or
// EXPIRED and when the poll budget runs out.
func (c *Client) waitForContainer(ctx context.Context, containerID string) error {
	deadline := c.cfg.Now().Add(c.cfg.PollTimeout)
	for {
		var status struct {
			StatusCode string `json:"status_code"`
			Status     string `json:"status"`
		}
		if err := c.get(ctx, c.endpoint(containerID), url.Values{"fields": {"status_code,status"}}, &status); err != nil {
			return err
		}
		switch status.StatusCode {
		case "FINISHED", "PUBLISHED":
			return nil
		case "ERROR", "EXPIRED":
			return fmt.Errorf("%w: %s %s", ErrContainerFailed, status.StatusCode, status.Status)
		}
		if !c.cfg.Now().Add(c.cfg.PollInterval).Before(deadline) {
			return ErrContainerTimeout
		}
		timer := time.NewTimer(c.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RefreshTokenIfNeeded exchanges a long-lived token that is about to expire
// for a new one. Tokens without a known expiry are left alone.
func (c *Client) RefreshTokenIfNeeded(ctx context.Context) *model.OAuthTokens {
	if c.tokens.AccessToken == "" || !c.tokens.ExpiresWithin(c.cfg.Now(), c.cfg.RefreshWindow) {
		return nil
	}
	params := url.Values{}
	params.Set("grant_type", "fb_exchange_token")
	params.Set("client_id", c.cfg.AppID)
	params.Set("client_secret", c.cfg.AppSecret)
	params.Set("fb_exchange_token", c.tokens.AccessToken)

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := c.req.Get(ctx, c.cfg.GraphBase+"/oauth/access_token", params, &out); err != nil || out.AccessToken == "" {
		logger.GetLogger().WithField("platform", c.surface).WithField("error", err).Warn("meta token exchange failed")
		return nil
	}
	refreshed := &model.OAuthTokens{
		AccessToken:  out.AccessToken,
		RefreshToken: c.tokens.RefreshToken,
		Scope:        c.tokens.Scope,
	}
	if out.ExpiresIn > 0 {
		exp := c.cfg.Now().Add(time.Duration(out.ExpiresIn) * time.Second).UTC()
		refreshed.ExpiresAt = &exp
	}
	c.tokens = refreshed
	return refreshed
}

func (c *Client) GetProfile(ctx context.Context) (*model.PlatformProfile, error) {
	id := c.accountID
	if id == "" {
		id = "me"
	}
	if c.surface == model.PlatformInstagram {
		var out struct {
			ID                string `json:"id"`
			Username          string `json:"username"`
			Name              string `json:"name"`
			ProfilePictureURL string `json:"profile_picture_url"`
		}
		if err := c.get(ctx, c.endpoint(id), url.Values{"fields": {"id,username,name,profile_picture_url"}}, &out); err != nil {
			return nil, err
		}
		if out.ID == "" {
			return nil, fmt.Errorf("instagram profile response has no id")
		}
		name := out.Name
		if name == "" {
			name = out.Username
		}
		return &model.PlatformProfile{
			PlatformID:  out.ID,
			Handle:      out.Username,
			DisplayName: name,
			AvatarURL:   out.ProfilePictureURL,
			ProfileURL:  "https://www.instagram.com/" + out.Username,
		}, nil
	}

	var out struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username"`
		Link     string `json:"link"`
		Picture  struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := c.get(ctx, c.endpoint(id), url.Values{"fields": {"id,name,username,link,picture"}}, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("facebook profile response has no id")
	}
	p := &model.PlatformProfile{
		PlatformID:  out.ID,
		Handle:      out.Username,
		DisplayName: out.Name,
		AvatarURL:   out.Picture.Data.URL,
		ProfileURL:  out.Link,
	}
	if p.Handle == "" {
		p.Handle = out.ID
	}
	if p.ProfileURL == "" {
		p.ProfileURL = "https://www.facebook.com/" + out.ID
	}
	return p, nil
}

func decodeError(status int, body []byte) *social.APIError {
	var env struct {
		Error struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &env) != nil || env.Error.Message == "" {
		return nil
	}
	return &social.APIError{
		Message: env.Error.Message,
		Code:    env.Error.Code,
		Auth:    env.Error.Code == tokenRejectedCode,
	}
}
