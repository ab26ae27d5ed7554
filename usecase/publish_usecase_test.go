package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"brandhub/domain/dto"
	"brandhub/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

type publishFixture struct {
	content  *MockContentRepo
	accounts *MockAccountRepo
	results  *resultStore
	factory  *fakeFactory
	notifier *recordingNotifier
	uc       *PublishUsecase
}

func newPublishFixture(item *model.ContentItem, clients map[model.Platform]*fakeClient) *publishFixture {
	f := &publishFixture{
		content:  new(MockContentRepo),
		accounts: new(MockAccountRepo),
		results:  &resultStore{},
		factory:  &fakeFactory{clients: clients},
		notifier: &recordingNotifier{},
	}
	if item != nil {
		f.content.On("GetByID", mock.Anything, item.ID).Return(item, nil)
	}
	f.uc = NewPublishUsecase(f.content, f.accounts, f.results, f.factory, prefixCipher{}, PublisherConfig{}).
		WithNotifiers(f.notifier)
	f.uc.now = func() time.Time { return fixedNow }
	var seq int64
	f.uc.newID = func() string { return fmt.Sprintf("attempt-%d", atomic.AddInt64(&seq, 1)) }
	return f
}

func (f *publishFixture) expectStatus(status model.ContentStatus, published bool) {
	f.content.On("UpdatePublishStatus", mock.Anything, "content-1", status,
		mock.MatchedBy(func(at *time.Time) bool {
			if !published {
				return at == nil
			}
			return at != nil && at.Equal(fixedNow)
		})).Return(nil)
}

func sampleItem(platforms ...model.Platform) *model.ContentItem {
	return &model.ContentItem{
		ID:         "content-1",
		BrandID:    "brand-1",
		Body:       "Spring launch",
		Variations: map[model.Platform]string{
			model.PlatformTwitter: "Spring launch, short",
		},
		Hashtags:  []string{"launch"},
		LinkURL:   "https://brand.example/spring",
		Platforms: platforms,
		Status:    model.ContentStatusApproved,
	}
}

func account(id string, p model.Platform) *model.SocialAccount {
	return &model.SocialAccount{
		ID:                id,
		BrandID:           "brand-1",
		Platform:          p,
		PlatformAccountID: "ext-" + id,
		AccessToken:       "enc:" + id + "-token",
		RefreshToken:      "enc:" + id + "-refresh",
		Status:            model.AccountStatusConnected,
	}
}

func ok(postID string) dto.PublishResult {
	return dto.PublishResult{Success: true, PostID: postID, URL: "https://posts.example/" + postID}
}

func TestPublish_AllSucceed(t *testing.T) {
	tw := &fakeClient{result: ok("tw-1")}
	li := &fakeClient{result: ok("li-1")}
	f := newPublishFixture(sampleItem(model.PlatformTwitter, model.PlatformLinkedIn),
		map[model.Platform]*fakeClient{model.PlatformTwitter: tw, model.PlatformLinkedIn: li})
	f.accounts.On("ListConnected", mock.Anything, "brand-1", mock.Anything).
		Return([]*model.SocialAccount{account("acc-tw", model.PlatformTwitter), account("acc-li", model.PlatformLinkedIn)}, nil)
	f.expectStatus(model.ContentStatusPublished, true)

	results, err := f.uc.Publish(context.Background(), "content-1", nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, model.PlatformTwitter, results[0].Platform)
	assert.Equal(t, model.PlatformLinkedIn, results[1].Platform)
	assert.True(t, results[0].Result.Success)
	assert.True(t, results[1].Result.Success)

	require.Len(t, f.results.rows, 2)
	assert.Equal(t, map[string]int{"attempt-1": 2}, f.results.attempts())
	for _, row := range f.results.rows {
		assert.True(t, row.Success)
		require.NotNil(t, row.PlatformPostID)
		assert.Nil(t, row.ErrorMessage)
	}

	assert.Equal(t, "acc-tw-token", tw.tokens.AccessToken)
	assert.Equal(t, "acc-tw-refresh", tw.tokens.RefreshToken)
	assert.Equal(t, "Spring launch, short", tw.payload.Text)
	assert.Equal(t, "Spring launch", li.payload.Text)
	assert.Equal(t, []string{"launch"}, li.payload.Hashtags)

	require.Len(t, f.notifier.events, 1)
	evt := f.notifier.events[0]
	assert.Equal(t, dto.PublishEventType, evt.Type)
	assert.Equal(t, "attempt-1", evt.AttemptID)
	assert.Equal(t, model.ContentStatusPublished, evt.Status)
	require.NotNil(t, evt.PublishedAt)
	f.content.AssertExpectations(t)
}

func TestPublish_PartialSuccess(t *testing.T) {
	tw := &fakeClient{result: ok("tw-1")}
	li := &fakeClient{result: dto.Failure("Throttled by LinkedIn")}
	f := newPublishFixture(sampleItem(model.PlatformTwitter, model.PlatformLinkedIn),
		map[model.Platform]*fakeClient{model.PlatformTwitter: tw, model.PlatformLinkedIn: li})
	f.accounts.On("ListConnected", mock.Anything, "brand-1", mock.Anything).
		Return([]*model.SocialAccount{account("acc-tw", model.PlatformTwitter), account("acc-li", model.PlatformLinkedIn)}, nil)
	f.expectStatus(model.ContentStatusPartiallyPublished, true)

	results, err := f.uc.Publish(context.Background(), "content-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, dto.CountSucceeded(results))
	assert.Equal(t, "Throttled by LinkedIn", results[1].Result.Error)
	f.content.AssertExpectations(t)
	f.accounts.AssertNotCalled(t, "MarkError", mock.Anything, mock.Anything, mock.Anything)
}

func TestPublish_NoConnectedAccounts(t *testing.T) {
	f := newPublishFixture(sampleItem(model.PlatformTwitter, model.PlatformInstagram), nil)
	disconnected := account("acc-ig", model.PlatformInstagram)
	disconnected.Status = model.AccountStatusError
	f.accounts.On("ListConnected", mock.Anything, "brand-1", mock.Anything).
		Return([]*model.SocialAccount{disconnected}, nil)
	f.expectStatus(model.ContentStatusFailed, false)

	results, err := f.uc.Publish(context.Background(), "content-1", nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "No active Twitter account connected", results[0].Result.Error)
	assert.Equal(t, "No active Instagram account connected", results[1].Result.Error)

	require.Len(t, f.results.rows, 2)
	for _, row := range f.results.rows {
		assert.False(t, row.Success)
		require.NotNil(t, row.ErrorMessage)
	}
	require.Len(t, f.notifier.events, 1)
	assert.Nil(t, f.notifier.events[0].PublishedAt)
	f.content.AssertExpectations(t)
}

func TestPublish_AccountLookupFails(t *testing.T) {
	f := newPublishFixture(sampleItem(model.PlatformTwitter), nil)
	f.accounts.On("ListConnected", mock.Anything, "brand-1", mock.Anything).Return(nil, errors.New("connection reset"))
	f.expectStatus(model.ContentStatusFailed, false)

	results, err := f.uc.Publish(context.Background(), "content-1", nil)
	require.NoError(t, err)
	assert.Equal(t, "Failed to load Twitter account: connection reset", results[0].Result.Error)
}

func TestPublish_EachCallIsItsOwnAttempt(t *testing.T) {
	f := newPublishFixture(sampleItem(model.PlatformTwitter, model.PlatformLinkedIn),
		map[model.Platform]*fakeClient{
			model.PlatformTwitter:  {result: ok("tw-1")},
			model.PlatformLinkedIn: {result: dto.Failure("down")},
		})
	f.accounts.On("ListConnected", mock.Anything, "brand-1", mock.Anything).
		Return([]*model.SocialAccount{account("acc-tw", model.PlatformTwitter), account("acc-li", model.PlatformLinkedIn)}, nil)
	f.expectStatus(model.ContentStatusPartiallyPublished, true)

	_, err := f.uc.Publish(context.Background(), "content-1", nil)
	require.NoError(t, err)
	_, err = f.uc.Publish(context.Background(), "content-1", nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"attempt-1": 2, "attempt-2": 2}, f.results.attempts())
	rows, err := f.results.ListByContent(context.Background(), "content-1")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "attempt-2", rows[0].AttemptID)
	assert.Len(t, f.notifier.events, 2)
}

func TestPublish_RequestedPlatformsOverrideAndDedup(t *testing.T) {
	li := &fakeClient{result: ok("li-1")}
	f := newPublishFixture(sampleItem(model.PlatformTwitter, model.PlatformLinkedIn),
		map[model.Platform]*fakeClient{model.PlatformLinkedIn: li})
	f.accounts.On("ListConnected", mock.Anything, "brand-1", []model.Platform{model.PlatformLinkedIn}).
		Return([]*model.SocialAccount{account("acc-li", model.PlatformLinkedIn)}, nil)
	f.expectStatus(model.ContentStatusPublished, true)

	results, err := f.uc.Publish(context.Background(), "content-1",
		[]model.Platform{model.PlatformLinkedIn, model.PlatformLinkedIn})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, model.PlatformLinkedIn, results[0].Platform)
	assert.Len(t, f.results.rows, 1)
}

func TestPublish_NoTargetPlatforms(t *testing.T) {
	f := newPublishFixture(sampleItem(), nil)

	_, err := f.uc.Publish(context.Background(), "content-1", nil)
	assert.ErrorIs(t, err, ErrNoPlatforms)
	f.content.AssertNotCalled(t, "UpdatePublishStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPublish_ContentNotFound(t *testing.T) {
	f := newPublishFixture(nil, nil)
	f.content.On("GetByID", mock.Anything, "missing").Return(nil, nil)
	f.content.On("GetByID", mock.Anything, "broken").Return(nil, errors.New("db down"))

	_, err := f.uc.Publish(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, ErrContentNotFound)

	_, err = f.uc.Publish(context.Background(), "broken", nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrContentNotFound)
	assert.Contains(t, err.Error(), "db down")
	assert.Empty(t, f.results.rows)
}

func TestPublishForBrand_OtherBrandIsNotFound(t *testing.T) {
	f := newPublishFixture(sampleItem(model.PlatformTwitter), nil)

	_, err := f.uc.PublishForBrand(context.Background(), "brand-2", "content-1", nil)
	assert.ErrorIs(t, err, ErrContentNotFound)

	_, err = f.uc.GetResults(context.Background(), "brand-2", "content-1")
	assert.ErrorIs(t, err, ErrContentNotFound)
	f.accounts.AssertNotCalled(t, "ListConnected", mock.Anything, mock.Anything, mock.Anything)
}

func TestPublish_RefreshedTokensArePersisted(t *testing.T) {
	exp := fixedNow.Add(60 * 24 * time.Hour)
	tw := &fakeClient{result: ok("tw-1"), fresh: &model.OAuthTokens{AccessToken: "new", RefreshToken: "new-r", ExpiresAt: &exp}}
	f := newPublishFixture(sampleItem(model.PlatformTwitter), map[model.Platform]*fakeClient{model.PlatformTwitter: tw})
	f.accounts.On("ListConnected", mock.Anything, "brand-1", mock.Anything).
		Return([]*model.SocialAccount{account("acc-tw", model.PlatformTwitter)}, nil)
	f.accounts.On("UpdateTokens", mock.Anything, "acc-tw", "enc:new", "enc:new-r", &exp).Return(nil).Once()
	f.expectStatus(model.ContentStatusPublished, true)

	results, err := f.uc.Publish(context.Background(), "content-1", nil)
	require.NoError(t, err)
	assert.True(t, results[0].Result.Success)
	f.accounts.AssertExpectations(t)
}

func TestPublish_RefreshPersistFailureDoesNotBlockPublish(t *testing.T) {
	tw := &fakeClient{result: ok("tw-1"), fresh: &model.OAuthTokens{AccessToken: "new"}}
	f := newPublishFixture(sampleItem(model.PlatformTwitter), map[model.Platform]*fakeClient{model.PlatformTwitter: tw})
	f.accounts.On("ListConnected", mock.Anything, "brand-1", mock.Anything).
		Return([]*model.SocialAccount{account("acc-tw", model.PlatformTwitter)}, nil)
	f.accounts.On("UpdateTokens", mock.Anything, "acc-tw", "enc:new", "", (*time.Time)(nil)).Return(errors.New("deadlock"))
	f.expectStatus(model.ContentStatusPublished, true)

	results, err := f.uc.Publish(context.Background(), "content-1", nil)
	require.NoError(t, err)
	assert.True(t, results[0].Result.Success)
}

func TestPublish_RejectedTokenMarksAccount(t *testing.T) {
	tw := &fakeClient{result: dto.PublishResult{Error: "Invalid or expired token", TokenRejected: true}}
	f := newPublishFixture(sampleItem(model.PlatformTwitter), map[model.Platform]*fakeClient{model.PlatformTwitter: tw})
	f.accounts.On("ListConnected", mock.Anything, "brand-1", mock.Anything).
		Return([]*model.SocialAccount{account("acc-tw", model.PlatformTwitter)}, nil)
	f.accounts.On("MarkError", mock.Anything, "acc-tw", "Invalid or expired token").Return(nil).Once()
	f.expectStatus(model.ContentStatusFailed, false)

	_, err := f.uc.Publish(context.Background(), "content-1", nil)
	require.NoError(t, err)
	f.accounts.AssertExpectations(t)
}

func TestPublish_PanickingClientIsContained(t *testing.T) {
	f := newPublishFixture(sampleItem(model.PlatformTwitter, model.PlatformFacebook),
		map[model.Platform]*fakeClient{
			model.PlatformTwitter:  {panics: true},
			model.PlatformFacebook: {result: ok("fb-1")},
		})
	f.accounts.On("ListConnected", mock.Anything, "brand-1", mock.Anything).
		Return([]*model.SocialAccount{account("acc-tw", model.PlatformTwitter), account("acc-fb", model.PlatformFacebook)}, nil)
	f.expectStatus(model.ContentStatusPartiallyPublished, true)

	results, err := f.uc.Publish(context.Background(), "content-1", nil)
	require.NoError(t, err)
	assert.False(t, results[0].Result.Success)
	assert.True(t, strings.HasPrefix(results[0].Result.Error, "unexpected error: "))
	assert.True(t, results[1].Result.Success)
	assert.Len(t, f.results.rows, 2)
}

func TestPublish_LockHeldRejectsConcurrentCall(t *testing.T) {
	f := newPublishFixture(sampleItem(model.PlatformTwitter), nil)
	f.uc.WithLock(&stubLock{held: true})

	_, err := f.uc.Publish(context.Background(), "content-1", nil)
	assert.ErrorIs(t, err, ErrPublishInProgress)
	f.accounts.AssertNotCalled(t, "ListConnected", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, f.results.rows)
}

func TestPublish_LockUnavailableDegrades(t *testing.T) {
	lock := &stubLock{err: errors.New("redis: connection refused")}
	f := newPublishFixture(sampleItem(model.PlatformTwitter),
		map[model.Platform]*fakeClient{model.PlatformTwitter: {result: ok("tw-1")}})
	f.uc.WithLock(lock)
	f.accounts.On("ListConnected", mock.Anything, "brand-1", mock.Anything).
		Return([]*model.SocialAccount{account("acc-tw", model.PlatformTwitter)}, nil)
	f.expectStatus(model.ContentStatusPublished, true)

	results, err := f.uc.Publish(context.Background(), "content-1", nil)
	require.NoError(t, err)
	assert.True(t, results[0].Result.Success)
	assert.Equal(t, []string{"content-1"}, lock.released)
}

func TestGetResults(t *testing.T) {
	f := newPublishFixture(sampleItem(model.PlatformTwitter), nil)
	_ = f.results.Create(context.Background(), &model.PublishResult{ContentID: "content-1", AttemptID: "a1", Platform: model.PlatformTwitter})
	_ = f.results.Create(context.Background(), &model.PublishResult{ContentID: "other", AttemptID: "a2", Platform: model.PlatformTwitter})

	rows, err := f.uc.GetResults(context.Background(), "brand-1", "content-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a1", rows[0].AttemptID)
}

func TestAggregateStatus(t *testing.T) {
	res := func(flags ...bool) []dto.PlatformPublishResult {
		out := make([]dto.PlatformPublishResult, len(flags))
		for i, s := range flags {
			out[i].Result.Success = s
		}
		return out
	}
	assert.Equal(t, model.ContentStatusPublished, AggregateStatus(res(true, true)))
	assert.Equal(t, model.ContentStatusPartiallyPublished, AggregateStatus(res(true, false, false)))
	assert.Equal(t, model.ContentStatusFailed, AggregateStatus(res(false, false)))
	assert.Equal(t, model.ContentStatusFailed, AggregateStatus(nil))
}

func TestBuildPayload(t *testing.T) {
	item := sampleItem(model.PlatformTwitter)
	item.MediaURLs = []string{"https://cdn.example/a.jpg"}
	item.MediaKind = model.MediaKindImage

	tw := BuildPayload(item, model.PlatformTwitter)
	assert.Equal(t, "Spring launch, short", tw.Text)
	assert.Equal(t, item.MediaURLs, tw.MediaURLs)
	assert.Equal(t, model.MediaKindImage, tw.MediaKind)
	assert.Equal(t, "https://brand.example/spring", tw.LinkURL)

	fb := BuildPayload(item, model.PlatformFacebook)
	assert.Equal(t, "Spring launch", fb.Text)
}
