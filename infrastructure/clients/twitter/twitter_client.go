package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"brandhub/domain/dto"
	"brandhub/domain/model"
	"brandhub/infrastructure/clients/social"
	"brandhub/infrastructure/logger"

	"github.com/michimani/gotwi"
	"github.com/michimani/gotwi/tweet/managetweet"
	"github.com/michimani/gotwi/tweet/managetweet/types"
	"golang.org/x/oauth2"
)

const (
	APIBase        = "https://api.twitter.com"
	TokenURL       = APIBase + "/2/oauth2/token"
	MediaUploadURL = APIBase + "/2/media/upload"
	MeURL          = APIBase + "/2/users/me"

	MaxImages     = 4
	MaxTextLength = 280
	// LinkLength is what X charges for any URL after t.co wrapping.
	LinkLength = 23
)

type Config struct {
	ClientID      string
	ClientSecret  string
	HTTPClient    *http.Client
	RefreshWindow time.Duration
	Now           func() time.Time
}

// Client posts tweets on behalf of one connected account.
type Client struct {
	cfg    Config
	tokens *model.OAuthTokens
	req    *social.Requester
}

func NewTwitterClient(tokens *model.OAuthTokens, cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = social.NewHTTPClient(0)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.RefreshWindow <= 0 {
		cfg.RefreshWindow = 5 * time.Minute
	}
	if tokens == nil {
		tokens = &model.OAuthTokens{}
	}
	c := &Client{cfg: cfg, tokens: tokens}
	c.req = &social.Requester{
		Platform:   "Twitter",
		HTTPClient: cfg.HTTPClient,
		Decode:     decodeError,
		Header:     http.Header{"Authorization": []string{"Bearer " + tokens.AccessToken}},
	}
	return c
}

func (c *Client) Publish(ctx context.Context, opts dto.PublishOptions) dto.PublishResult {
	lg := logger.GetLogger().WithField("platform", model.PlatformTwitter)
	if opts.MediaKind == model.MediaKindVideo {
		return dto.Failure("Twitter video publishing is not supported; attach images or post text only")
	}
	if len(opts.MediaURLs) > MaxImages {
		return dto.Failure(fmt.Sprintf("Twitter allows at most %d images per post, got %d", MaxImages, len(opts.MediaURLs)))
	}

	text := social.ComposeLimited(opts.Text, opts.Hashtags, opts.LinkURL, MaxTextLength, LinkLength)

	mediaIDs := make([]string, 0, len(opts.MediaURLs))
	for _, u := range opts.MediaURLs {
		id, err := c.uploadImage(ctx, u)
		if err != nil {
			lg.WithField("error", err).Warn("twitter media upload failed")
			return social.FailureFrom(err)
		}
		mediaIDs = append(mediaIDs, id)
	}

	api, err := gotwi.NewClientWithAccessToken(&gotwi.NewClientWithAccessTokenInput{
		AccessToken: c.tokens.AccessToken,
		HTTPClient:  c.cfg.HTTPClient,
	})
	if err != nil {
		return dto.Failure(fmt.Sprintf("Twitter client init failed: %v", err))
	}
	in := &types.CreateInput{Text: gotwi.String(text)}
	if len(mediaIDs) > 0 {
		in.Media = &types.CreateInputMedia{MediaIDs: mediaIDs}
	}
	res, err := managetweet.Create(ctx, api, in)
	if err != nil {
		lg.WithField("error", err).Warn("tweet create failed")
		return dto.PublishResult{Error: fmt.Sprintf("Twitter API error: %v", err), TokenRejected: isAuthError(err)}
	}
	id := gotwi.StringValue(res.Data.ID)
	if id == "" {
		return dto.Failure("Twitter API returned no tweet id")
	}
	return dto.PublishResult{
		Success: true,
		PostID:  id,
		URL:     PostURL(id),
	}
}

// PostURL is the canonical permalink of a tweet.
func PostURL(id string) string {
	return "https://twitter.com/i/web/status/" + id
}

func (c *Client) uploadImage(ctx context.Context, mediaURL string) (string, error) {
	data, contentType, err := social.Download(ctx, c.cfg.HTTPClient, mediaURL)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("twitter accepts images only, %s is %s", mediaURL, contentType)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("media_category", "tweet_image")
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="media"; filename="upload"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, MediaUploadURL, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
		MediaIDString string `json:"media_id_string"`
	}
	if err := c.req.Do(req, &out); err != nil {
		return "", err
	}
	if out.Data.ID != "" {
		return out.Data.ID, nil
	}
	if out.MediaIDString != "" {
		return out.MediaIDString, nil
	}
	return "", fmt.Errorf("twitter media upload returned no media id")
}

// RefreshTokenIfNeeded exchanges the refresh token when the access token is
// close to expiry. Client credentials go in the Basic auth header.
func (c *Client) RefreshTokenIfNeeded(ctx context.Context) *model.OAuthTokens {
	if !social.NeedsRefresh(c.tokens, c.cfg.Now(), c.cfg.RefreshWindow) {
		return nil
	}
	conf := &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	expired := social.ToOAuth2(c.tokens)
	expired.Expiry = c.cfg.Now().Add(-time.Minute)

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.cfg.HTTPClient)
	tok, err := conf.TokenSource(ctx, expired).Token()
	if err != nil {
		logger.GetLogger().WithField("platform", model.PlatformTwitter).WithField("error", err).Warn("twitter token refresh failed")
		return nil
	}
	refreshed := social.FromOAuth2(tok, c.tokens)
	c.tokens = refreshed
	c.req.Header.Set("Authorization", "Bearer "+refreshed.AccessToken)
	return refreshed
}

func (c *Client) GetProfile(ctx context.Context) (*model.PlatformProfile, error) {
	var out struct {
		Data struct {
			ID              string `json:"id"`
			Name            string `json:"name"`
			Username        string `json:"username"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"data"`
	}
	if err := c.req.Get(ctx, MeURL, map[string]string{"user.fields": "profile_image_url"}, &out); err != nil {
		return nil, err
	}
	if out.Data.ID == "" {
		return nil, fmt.Errorf("twitter profile response has no id")
	}
	return &model.PlatformProfile{
		PlatformID:  out.Data.ID,
		Handle:      out.Data.Username,
		DisplayName: out.Data.Name,
		AvatarURL:   out.Data.ProfileImageURL,
		ProfileURL:  "https://twitter.com/" + out.Data.Username,
	}, nil
}

func decodeError(status int, body []byte) *social.APIError {
	var env struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Errors []struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		} `json:"errors"`
	}
	if json.Unmarshal(body, &env) != nil {
		return nil
	}
	e := &social.APIError{}
	switch {
	case env.Detail != "":
		e.Message = env.Detail
	case len(env.Errors) > 0:
		e.Message = env.Errors[0].Message
		e.Code = env.Errors[0].Code
	default:
		e.Message = env.Title
	}
	// 89: invalid or expired token
	if e.Code == 89 || strings.EqualFold(env.Title, "Unauthorized") {
		e.Auth = true
	}
	return e
}

func isAuthError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "invalid or expired token")
}
