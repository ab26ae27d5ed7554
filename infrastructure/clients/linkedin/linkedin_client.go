package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"brandhub/domain/dto"
	"brandhub/domain/model"
	"brandhub/infrastructure/clients/social"
	"brandhub/infrastructure/logger"

	"golang.org/x/oauth2"
)

const (
	DefaultAPIBase  = "https://api.linkedin.com"
	DefaultTokenURL = "https://www.linkedin.com/oauth/v2/accessToken"

	shareContentKey = "com.linkedin.ugc.ShareContent"
	visibilityKey   = "com.linkedin.ugc.MemberNetworkVisibility"
	uploadMechKey   = "com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest"
	imageRecipe     = "urn:li:digitalmediaRecipe:feedshare-image"
)

var ErrNoAsset = errors.New("linkedin registerUpload returned no asset")

type Config struct {
	ClientID      string
	ClientSecret  string
	HTTPClient    *http.Client
	APIBase       string
	TokenURL      string
	RefreshWindow time.Duration
	Now           func() time.Time
}

type Client struct {
	cfg      Config
	personID string
	tokens   *model.OAuthTokens
	req      *social.Requester
}

func NewLinkedInClient(personID string, tokens *model.OAuthTokens, cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = social.NewHTTPClient(0)
	}
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
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
	c := &Client{cfg: cfg, personID: personID, tokens: tokens}
	c.req = &social.Requester{
		Platform:   "LinkedIn",
		HTTPClient: cfg.HTTPClient,
		Decode:     decodeError,
		Header: http.Header{
			"Authorization":             []string{"Bearer " + tokens.AccessToken},
			"X-Restli-Protocol-Version": []string{"2.0.0"},
		},
	}
	return c
}

// AuthorURN is the member URN posts are published under.
func AuthorURN(personID string) string {
	return "urn:li:person:" + personID
}

type ugcMedia struct {
	Status      string `json:"status"`
	Media       string `json:"media,omitempty"`
	OriginalURL string `json:"originalUrl,omitempty"`
}

type shareContent struct {
	ShareCommentary struct {
		Text string `json:"text"`
	} `json:"shareCommentary"`
	ShareMediaCategory string     `json:"shareMediaCategory"`
	Media              []ugcMedia `json:"media,omitempty"`
}

type ugcPost struct {
	Author          string                  `json:"author"`
	LifecycleState  string                  `json:"lifecycleState"`
	SpecificContent map[string]shareContent `json:"specificContent"`
	Visibility      map[string]string       `json:"visibility"`
}

func (c *Client) Publish(ctx context.Context, opts dto.PublishOptions) dto.PublishResult {
	lg := logger.GetLogger().WithField("platform", model.PlatformLinkedIn)
	if c.personID == "" {
		return dto.Failure("LinkedIn account has no member id; reconnect the account")
	}
	if opts.MediaKind == model.MediaKindVideo {
		return dto.Failure("LinkedIn video publishing is not supported")
	}
	author := AuthorURN(c.personID)

	content := shareContent{ShareMediaCategory: "NONE"}
	withLinkInText := true
	switch {
	case len(opts.MediaURLs) > 0:
		if len(opts.MediaURLs) > 1 {
			lg.WithField("count", len(opts.MediaURLs)).Info("linkedin supports one image per post; extra images dropped")
		}
		asset, err := c.uploadImage(ctx, author, opts.MediaURLs[0])
		if err != nil {
			lg.WithField("error", err).Warn("linkedin image upload failed")
			return social.FailureFrom(err)
		}
		content.ShareMediaCategory = "IMAGE"
		content.Media = []ugcMedia{{Status: "READY", Media: asset}}
	case opts.LinkURL != "":
		content.ShareMediaCategory = "ARTICLE"
		content.Media = []ugcMedia{{Status: "READY", OriginalURL: opts.LinkURL}}
		withLinkInText = false
	}
	content.ShareCommentary.Text = social.ComposeText(opts.Text, opts.Hashtags, opts.LinkURL, withLinkInText)

	post := ugcPost{
		Author:          author,
		LifecycleState:  "PUBLISHED",
		SpecificContent: map[string]shareContent{shareContentKey: content},
		Visibility:      map[string]string{visibilityKey: "PUBLIC"},
	}

	raw, err := json.Marshal(post)
	if err != nil {
		return dto.Failure(fmt.Sprintf("encode LinkedIn post: %v", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIBase+"/v2/ugcPosts", bytes.NewReader(raw))
	if err != nil {
		return dto.Failure(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		ID string `json:"id"`
	}
	header, err := c.req.DoHeader(req, &out)
	if err != nil {
		lg.WithField("error", err).Warn("linkedin ugcPost failed")
		return social.FailureFrom(err)
	}
	id := out.ID
	if id == "" {
		id = header.Get("X-RestLi-Id")
	}
	if id == "" {
		return dto.Failure("LinkedIn API returned no post id")
	}
	return dto.PublishResult{Success: true, PostID: id, URL: PostURL(id)}
}

// PostURL links to the feed entry of a UGC post URN.
func PostURL(urn string) string {
	return "https://www.linkedin.com/feed/update/" + urn
}

func (c *Client) uploadImage(ctx context.Context, author, mediaURL string) (string, error) {
	data, contentType, err := social.Download(ctx, c.cfg.HTTPClient, mediaURL)
	if err != nil {
		return "", err
	}

	body := map[string]interface{}{
		"registerUploadRequest": map[string]interface{}{
			"recipes": []string{imageRecipe},
			"owner":   author,
			"serviceRelationships": []map[string]string{
				{"relationshipType": "OWNER", "identifier": "urn:li:userGeneratedContent"},
			},
		},
	}
	var reg struct {
		Value struct {
			Asset           string `json:"asset"`
			UploadMechanism map[string]struct {
				UploadURL string `json:"uploadUrl"`
			} `json:"uploadMechanism"`
		} `json:"value"`
	}
	if err := c.req.JSON(ctx, http.MethodPost, c.cfg.APIBase+"/v2/assets?action=registerUpload", body, &reg); err != nil {
		return "", err
	}
	uploadURL := reg.Value.UploadMechanism[uploadMechKey].UploadURL
	if reg.Value.Asset == "" || uploadURL == "" {
		return "", ErrNoAsset
	}

	put, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	put.Header.Set("Content-Type", contentType)
	if err := c.req.Do(put, nil); err != nil {
		return "", err
	}
	return reg.Value.Asset, nil
}

// RefreshTokenIfNeeded uses the programmatic refresh flow; LinkedIn expects
// client credentials in the form body.
func (c *Client) RefreshTokenIfNeeded(ctx context.Context) *model.OAuthTokens {
	if !social.NeedsRefresh(c.tokens, c.cfg.Now(), c.cfg.RefreshWindow) {
		return nil
	}
	conf := &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	expired := social.ToOAuth2(c.tokens)
	expired.Expiry = c.cfg.Now().Add(-time.Minute)

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.cfg.HTTPClient)
	tok, err := conf.TokenSource(ctx, expired).Token()
	if err != nil {
		logger.GetLogger().WithField("platform", model.PlatformLinkedIn).WithField("error", err).Warn("linkedin token refresh failed")
		return nil
	}
	refreshed := social.FromOAuth2(tok, c.tokens)
	c.tokens = refreshed
	c.req.Header.Set("Authorization", "Bearer "+refreshed.AccessToken)
	return refreshed
}

func (c *Client) GetProfile(ctx context.Context) (*model.PlatformProfile, error) {
	var out struct {
		ID                 string `json:"id"`
		LocalizedFirstName string `json:"localizedFirstName"`
		LocalizedLastName  string `json:"localizedLastName"`
		VanityName         string `json:"vanityName"`
		ProfilePicture     struct {
			DisplayImage struct {
				Elements []struct {
					Identifiers []struct {
						Identifier string `json:"identifier"`
					} `json:"identifiers"`
				} `json:"elements"`
			} `json:"displayImage~"`
		} `json:"profilePicture"`
	}
	projection := "(id,localizedFirstName,localizedLastName,vanityName,profilePicture(displayImage~:playableStreams))"
	endpoint := c.cfg.APIBase + "/v2/me?projection=" + url.PathEscape(projection)
	if err := c.req.Get(ctx, endpoint, nil, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("linkedin profile response has no id")
	}
	p := &model.PlatformProfile{
		PlatformID:  out.ID,
		Handle:      out.VanityName,
		DisplayName: strings.TrimSpace(out.LocalizedFirstName + " " + out.LocalizedLastName),
	}
	if p.Handle == "" {
		p.Handle = out.ID
	}
	if out.VanityName != "" {
		p.ProfileURL = "https://www.linkedin.com/in/" + out.VanityName
	}
	// Largest rendition is last.
	if els := out.ProfilePicture.DisplayImage.Elements; len(els) > 0 {
		if ids := els[len(els)-1].Identifiers; len(ids) > 0 {
			p.AvatarURL = ids[0].Identifier
		}
	}
	return p, nil
}

func decodeError(status int, body []byte) *social.APIError {
	var env struct {
		Message          string `json:"message"`
		ServiceErrorCode int    `json:"serviceErrorCode"`
	}
	if json.Unmarshal(body, &env) != nil || env.Message == "" {
		return nil
	}
	return &social.APIError{
		Message: env.Message,
		Code:    env.ServiceErrorCode,
		// 65600/65601: invalid or revoked access token
		Auth: env.ServiceErrorCode == 65600 || env.ServiceErrorCode == 65601,
	}
}
