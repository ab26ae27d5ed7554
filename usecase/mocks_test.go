package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"brandhub/domain/dto"
	"brandhub/domain/model"
	"brandhub/domain/repository"

	"github.com/stretchr/testify/mock"
)

type MockContentRepo struct {
	mock.Mock
}

func (m *MockContentRepo) GetByID(ctx context.Context, id string) (*model.ContentItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ContentItem), args.Error(1)
}

func (m *MockContentRepo) UpdatePublishStatus(ctx context.Context, id string, status model.ContentStatus, publishedAt *time.Time) error {
	args := m.Called(ctx, id, status, publishedAt)
	return args.Error(0)
}

func (m *MockContentRepo) ListDueScheduled(ctx context.Context, brandID string, now time.Time, limit int) ([]*model.ContentItem, error) {
	args := m.Called(ctx, brandID, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ContentItem), args.Error(1)
}

func (m *MockContentRepo) ListBrandsWithDueScheduled(ctx context.Context, now time.Time) ([]string, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockAccountRepo struct {
	mock.Mock
}

func (m *MockAccountRepo) ListConnected(ctx context.Context, brandID string, platforms []model.Platform) ([]*model.SocialAccount, error) {
	args := m.Called(ctx, brandID, platforms)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.SocialAccount), args.Error(1)
}

func (m *MockAccountRepo) ListByBrand(ctx context.Context, brandID string) ([]*model.SocialAccount, error) {
	args := m.Called(ctx, brandID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.SocialAccount), args.Error(1)
}

func (m *MockAccountRepo) Upsert(ctx context.Context, acc *model.SocialAccount) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *MockAccountRepo) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt *time.Time) error {
	args := m.Called(ctx, id, accessToken, refreshToken, expiresAt)
	return args.Error(0)
}

func (m *MockAccountRepo) MarkError(ctx context.Context, id, message string) error {
	args := m.Called(ctx, id, message)
	return args.Error(0)
}

func (m *MockAccountRepo) Disconnect(ctx context.Context, brandID, id string) error {
	args := m.Called(ctx, brandID, id)
	return args.Error(0)
}

// resultStore is an in-memory IPublishResult safe for the publisher's goroutines.
type resultStore struct {
	mu   sync.Mutex
	rows []*model.PublishResult
	err  error
}

func (s *resultStore) Create(ctx context.Context, r *model.PublishResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	r.ID = int64(len(s.rows) + 1)
	s.rows = append(s.rows, r)
	return nil
}

func (s *resultStore) ListByContent(ctx context.Context, contentID string) ([]*model.PublishResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.PublishResult
	for i := len(s.rows) - 1; i >= 0; i-- {
		if s.rows[i].ContentID == contentID {
			out = append(out, s.rows[i])
		}
	}
	return out, nil
}

func (s *resultStore) attempts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]int{}
	for _, r := range s.rows {
		out[r.AttemptID]++
	}
	return out
}

type fakeClient struct {
	result  dto.PublishResult
	fresh   *model.OAuthTokens
	panics  bool
	mu      sync.Mutex
	payload *dto.PublishOptions
	tokens  *model.OAuthTokens
}

func (c *fakeClient) Publish(ctx context.Context, opts dto.PublishOptions) dto.PublishResult {
	if c.panics {
		panic("nil map write")
	}
	c.mu.Lock()
	c.payload = &opts
	c.mu.Unlock()
	return c.result
}

func (c *fakeClient) RefreshTokenIfNeeded(ctx context.Context) *model.OAuthTokens { return c.fresh }

func (c *fakeClient) GetProfile(ctx context.Context) (*model.PlatformProfile, error) {
	return &model.PlatformProfile{PlatformID: "p-1"}, nil
}

type fakeFactory struct {
	mu      sync.Mutex
	clients map[model.Platform]*fakeClient
}

func (f *fakeFactory) NewClient(p model.Platform, platformAccountID string, tokens *model.OAuthTokens) repository.IPlatformClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.clients[p]
	c.tokens = tokens
	return c
}

// prefixCipher marks values instead of encrypting them.
type prefixCipher struct{}

func (prefixCipher) SafeEncrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	return "enc:" + plaintext, nil
}

func (prefixCipher) SafeDecrypt(stored string) (string, error) {
	return strings.TrimPrefix(stored, "enc:"), nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []*dto.PublishEvent
}

func (n *recordingNotifier) NotifyPublished(ctx context.Context, evt *dto.PublishEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, evt)
	return nil
}

type stubLock struct {
	held     bool
	err      error
	released []string
}

func (l *stubLock) Acquire(ctx context.Context, contentID, owner string) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	return !l.held, nil
}

func (l *stubLock) Release(ctx context.Context, contentID, owner string) error {
	l.released = append(l.released, contentID)
	return nil
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, contentID string, platforms []model.Platform) ([]dto.PlatformPublishResult, error) {
	args := m.Called(ctx, contentID, platforms)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dto.PlatformPublishResult), args.Error(1)
}

func (m *MockPublisher) PublishForBrand(ctx context.Context, brandID, contentID string, platforms []model.Platform) ([]dto.PlatformPublishResult, error) {
	args := m.Called(ctx, brandID, contentID, platforms)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dto.PlatformPublishResult), args.Error(1)
}

func (m *MockPublisher) GetResults(ctx context.Context, brandID, contentID string) ([]*model.PublishResult, error) {
	args := m.Called(ctx, brandID, contentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PublishResult), args.Error(1)
}
