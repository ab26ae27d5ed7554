package twitter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"brandhub/domain/dto"
	"brandhub/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rewriteTransport sends platform API calls to a local test server.
type rewriteTransport struct {
	target *url.URL
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Host == "api.twitter.com" || req.URL.Host == "api.x.com" {
		clone := req.Clone(req.Context())
		clone.URL.Scheme = t.target.Scheme
		clone.URL.Host = t.target.Host
		clone.Host = t.target.Host
		req = clone
	}
	return http.DefaultTransport.RoundTrip(req)
}

func newTestClient(t *testing.T, h http.Handler, tokens *model.OAuthTokens) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	target, _ := url.Parse(srv.URL)
	cfg := Config{
		ClientID:     "cid",
		ClientSecret: "csecret",
		HTTPClient:   &http.Client{Transport: rewriteTransport{target: target}, Timeout: 5 * time.Second},
	}
	return NewTwitterClient(tokens, cfg), srv
}

func TestPublish_TextWithImages(t *testing.T) {
	var uploads int32
	mux := http.NewServeMux()
	mux.HandleFunc("/img.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG"))
	})
	mux.HandleFunc("/2/media/upload", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "tweet_image", r.FormValue("media_category"))
		n := atomic.AddInt32(&uploads, 1)
		_, _ = w.Write([]byte(`{"data":{"id":"m` + string(rune('0'+n)) + `"}}`))
	})
	mux.HandleFunc("/2/tweets", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Text  string `json:"text"`
			Media struct {
				MediaIDs []string `json:"media_ids"`
			} `json:"media"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Big news\n\n#launch\n\nhttps://brand.example/post", body.Text)
		assert.Equal(t, []string{"m1", "m2"}, body.Media.MediaIDs)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"1790","text":"Big news"}}`))
	})

	c, srv := newTestClient(t, mux, &model.OAuthTokens{AccessToken: "access"})
	res := c.Publish(context.Background(), dto.PublishOptions{
		Text:      "Big news",
		Hashtags:  []string{"launch"},
		LinkURL:   "https://brand.example/post",
		MediaURLs: []string{srv.URL + "/img.png", srv.URL + "/img.png"},
		MediaKind: model.MediaKindImage,
	})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "1790", res.PostID)
	assert.Equal(t, "https://twitter.com/i/web/status/1790", res.URL)
	assert.EqualValues(t, 2, atomic.LoadInt32(&uploads))
}

func TestPublish_LongBodyKeepsLinkAndHashtags(t *testing.T) {
	var sent string
	mux := http.NewServeMux()
	mux.HandleFunc("/2/tweets", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Text string `json:"text"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		sent = body.Text
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"1791","text":"x"}}`))
	})

	c, _ := newTestClient(t, mux, &model.OAuthTokens{AccessToken: "access"})
	link := "https://brand.example/spring"
	res := c.Publish(context.Background(), dto.PublishOptions{
		Text:     strings.Repeat("a", 270),
		Hashtags: []string{"spring"},
		LinkURL:  link,
	})

	require.True(t, res.Success, res.Error)
	assert.True(t, strings.HasSuffix(sent, "…\n\n#spring\n\n"+link), sent)
	weighted := len([]rune(sent)) - len(link) + LinkLength
	assert.Equal(t, MaxTextLength, weighted)
}

func TestPublish_RejectsVideoAndTooManyImages(t *testing.T) {
	c := NewTwitterClient(&model.OAuthTokens{AccessToken: "a"}, Config{})

	res := c.Publish(context.Background(), dto.PublishOptions{Text: "v", MediaKind: model.MediaKindVideo, MediaURLs: []string{"https://x/v.mp4"}})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "video")

	res = c.Publish(context.Background(), dto.PublishOptions{Text: "v", MediaURLs: []string{"1", "2", "3", "4", "5"}})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "at most 4")
}

func TestPublish_MediaUploadUnauthorized(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/img.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpg"))
	})
	mux.HandleFunc("/2/media/upload", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"title":"Unauthorized","detail":"Unauthorized","status":401}`))
	})
	c, srv := newTestClient(t, mux, &model.OAuthTokens{AccessToken: "stale"})

	res := c.Publish(context.Background(), dto.PublishOptions{Text: "x", MediaURLs: []string{srv.URL + "/img.png"}})
	assert.False(t, res.Success)
	assert.True(t, res.TokenRejected)
	assert.Contains(t, res.Error, "HTTP 401")
}

func TestRefreshTokenIfNeeded(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/2/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "cid", user)
		assert.Equal(t, "csecret", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.PostForm.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"new-access","refresh_token":"new-refresh","expires_in":7200,"token_type":"bearer","scope":"tweet.write"}`))
	})

	soon := time.Now().Add(time.Minute)
	c, _ := newTestClient(t, mux, &model.OAuthTokens{AccessToken: "old", RefreshToken: "old-refresh", ExpiresAt: &soon})

	got := c.RefreshTokenIfNeeded(context.Background())
	require.NotNil(t, got)
	assert.Equal(t, "new-access", got.AccessToken)
	assert.Equal(t, "new-refresh", got.RefreshToken)
	assert.Equal(t, "tweet.write", got.Scope)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, got.ExpiresAt.After(time.Now().Add(time.Hour)))
}

func TestRefreshTokenIfNeeded_NotDueOrFailed(t *testing.T) {
	later := time.Now().Add(2 * time.Hour)
	c := NewTwitterClient(&model.OAuthTokens{AccessToken: "a", RefreshToken: "r", ExpiresAt: &later}, Config{})
	assert.Nil(t, c.RefreshTokenIfNeeded(context.Background()))

	mux := http.NewServeMux()
	mux.HandleFunc("/2/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_request"}`))
	})
	c, _ = newTestClient(t, mux, &model.OAuthTokens{AccessToken: "a", RefreshToken: "r"})
	assert.Nil(t, c.RefreshTokenIfNeeded(context.Background()))
}

func TestGetProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/2/users/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "profile_image_url", r.URL.Query().Get("user.fields"))
		_, _ = w.Write([]byte(`{"data":{"id":"99","name":"Brand","username":"brand","profile_image_url":"https://img/p.png"}}`))
	})
	c, _ := newTestClient(t, mux, &model.OAuthTokens{AccessToken: "a"})

	p, err := c.GetProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "99", p.PlatformID)
	assert.Equal(t, "brand", p.Handle)
	assert.Equal(t, "https://twitter.com/brand", p.ProfileURL)
}

func TestIsAuthError(t *testing.T) {
	assert.True(t, isAuthError(assertErr("The response status code is 401 Unauthorized")))
	assert.False(t, isAuthError(assertErr("duplicate content")))
	assert.True(t, strings.HasPrefix(PostURL("1"), "https://twitter.com/"))
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
