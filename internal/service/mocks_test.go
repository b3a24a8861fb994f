package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"prochain-bridge/internal/domain"
	"prochain-bridge/internal/gateway"
	"prochain-bridge/internal/offline"
	"prochain-bridge/internal/remote"
	"prochain-bridge/internal/session"
	"prochain-bridge/internal/storage"
)

var errNotFound = &remote.Error{Op: "mock.get", Kind: remote.Application, Status: http.StatusNotFound, Err: errors.New("not found")}

type testLogger struct {
	t *testing.T
}

func (l testLogger) Printf(format string, args ...any) {
	l.t.Logf(format, args...)
}

type fakeSessions struct {
	userID string
}

func (f *fakeSessions) UserID(ctx context.Context) (string, error) {
	if f.userID == "" {
		return "", session.ErrNoSession
	}
	return f.userID, nil
}

type mockChainRepo struct {
	mu     sync.Mutex
	chains map[string]*domain.Chain
	err    error
}

func newMockChainRepo() *mockChainRepo {
	return &mockChainRepo{chains: make(map[string]*domain.Chain)}
}

func (m *mockChainRepo) Put(ctx context.Context, chain *domain.Chain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	stored := *chain
	m.chains[chain.ID] = &stored
	return nil
}

func (m *mockChainRepo) Get(ctx context.Context, id string) (*domain.Chain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	chain, ok := m.chains[id]
	if !ok {
		return nil, errNotFound
	}
	out := *chain
	return &out, nil
}

func (m *mockChainRepo) Browse(ctx context.Context, query domain.BrowseQuery) ([]*domain.Chain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*domain.Chain
	for _, chain := range m.chains {
		if chain.IsPublic && (query.Category == "all" || chain.Category == query.Category) {
			c := *chain
			out = append(out, &c)
		}
	}
	return out, nil
}

type mockSocialRepo struct {
	mu       sync.Mutex
	likes    map[string]bool
	ratings  map[string]int
	comments map[string]*domain.Comment
	follows  map[string]bool
	err      error
}

func newMockSocialRepo() *mockSocialRepo {
	return &mockSocialRepo{
		likes:    make(map[string]bool),
		ratings:  make(map[string]int),
		comments: make(map[string]*domain.Comment),
		follows:  make(map[string]bool),
	}
}

func (m *mockSocialRepo) SetLike(ctx context.Context, chainID, userID string, liked bool) (*domain.LikeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	key := chainID + ":" + userID
	if liked {
		m.likes[key] = true
	} else {
		delete(m.likes, key)
	}
	return &domain.LikeResult{ChainID: chainID, Liked: liked, LikeCount: len(m.likes)}, nil
}

func (m *mockSocialRepo) PutRating(ctx context.Context, chainID, userID string, value int) (*domain.RatingResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.ratings[chainID+":"+userID] = value
	return &domain.RatingResult{ChainID: chainID, UserValue: value, Average: float64(value), Count: 1}, nil
}

func (m *mockSocialRepo) PutComment(ctx context.Context, comment *domain.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	stored := *comment
	m.comments[comment.ID] = &stored
	return nil
}

func (m *mockSocialRepo) DeleteComment(ctx context.Context, commentID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.comments, commentID)
	return nil
}

func (m *mockSocialRepo) ListComments(ctx context.Context, chainID string) ([]*domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []*domain.Comment{}
	for _, c := range m.comments {
		if c.ChainID == chainID {
			comment := *c
			out = append(out, &comment)
		}
	}
	return out, nil
}

func (m *mockSocialRepo) SetFollow(ctx context.Context, followerID, followeeID string, following bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	key := followerID + ":" + followeeID
	if following {
		m.follows[key] = true
	} else {
		delete(m.follows, key)
	}
	return nil
}

type mockPluginRepo struct {
	mu    sync.Mutex
	lists map[string]*domain.PluginList
	err   error
}

func newMockPluginRepo() *mockPluginRepo {
	return &mockPluginRepo{lists: make(map[string]*domain.PluginList)}
}

func (m *mockPluginRepo) Put(ctx context.Context, list *domain.PluginList) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	stored := *list
	m.lists[list.UserID] = &stored
	return nil
}

func (m *mockPluginRepo) Get(ctx context.Context, userID string) (*domain.PluginList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	list, ok := m.lists[userID]
	if !ok {
		return nil, errNotFound
	}
	out := *list
	return &out, nil
}

type mockShareRepo struct {
	mu     sync.Mutex
	shares map[string]*domain.Share
	err    error
}

func newMockShareRepo() *mockShareRepo {
	return &mockShareRepo{shares: make(map[string]*domain.Share)}
}

func (m *mockShareRepo) Put(ctx context.Context, share *domain.Share) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, exists := m.shares[share.ID]; exists {
		return nil
	}
	stored := *share
	m.shares[share.ID] = &stored
	return nil
}

func (m *mockShareRepo) Get(ctx context.Context, id string) (*domain.Share, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	share, ok := m.shares[id]
	if !ok {
		return nil, errNotFound
	}
	out := *share
	return &out, nil
}

func (m *mockShareRepo) ListReceived(ctx context.Context, recipientID string) ([]*domain.Share, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []*domain.Share{}
	for _, s := range m.shares {
		if s.RecipientID == recipientID && s.Status == domain.ShareStatusPending {
			share := *s
			out = append(out, &share)
		}
	}
	return out, nil
}

func (m *mockShareRepo) Respond(ctx context.Context, shareID, recipientID string, status domain.ShareStatus) (*domain.Share, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	share, ok := m.shares[shareID]
	if !ok {
		return nil, errNotFound
	}
	if share.RecipientID != recipientID {
		return nil, &remote.Error{Op: "mock.respond", Kind: remote.Application, Status: http.StatusForbidden, Err: errors.New("not yours")}
	}
	now := time.Now().UTC()
	share.Status = status
	share.RespondedAt = &now
	out := *share
	return &out, nil
}

type testEnv struct {
	store    *offline.Store
	gw       *gateway.Gateway
	sessions *fakeSessions
	chains   *mockChainRepo
	social   *mockSocialRepo
	plugins  *mockPluginRepo
	shares   *mockShareRepo

	chainSvc  *ChainService
	socialSvc *SocialService
	pluginSvc *PluginService
	shareSvc  *ShareService
	replayer  *Replayer
}

func newTestEnv(t *testing.T, online bool) *testEnv {
	t.Helper()
	store := offline.NewStore(storage.NewMemoryKV(), offline.Options{
		Online:        online,
		RetryInterval: time.Hour,
		Logger:        testLogger{t: t},
	})
	store.Initialize(nil)
	t.Cleanup(store.StopRetryLoop)

	env := &testEnv{
		store:    store,
		gw:       gateway.New(store, gateway.WithLogger(testLogger{t: t})),
		sessions: &fakeSessions{userID: "user-1"},
		chains:   newMockChainRepo(),
		social:   newMockSocialRepo(),
		plugins:  newMockPluginRepo(),
		shares:   newMockShareRepo(),
	}
	env.chainSvc = NewChainService(env.chains, env.gw, env.sessions)
	env.socialSvc = NewSocialService(env.social, env.gw, env.sessions)
	env.pluginSvc = NewPluginService(env.plugins, env.gw, env.sessions)
	env.shareSvc = NewShareService(env.shares, env.chains, env.gw, env.sessions)
	env.replayer = NewReplayer(env.chains, env.social, env.plugins, env.shares, env.sessions, testLogger{t: t})
	return env
}

func validSaveRequest() *domain.SaveChainRequest {
	return &domain.SaveChainRequest{
		Name:     "Vocal Chain",
		Category: "Vocals",
		Tags:     []string{"warm"},
		Slots: []domain.ChainSlot{
			{Position: 0, PluginName: "Pro-Q 3", Manufacturer: "FabFilter", Format: domain.PluginFormatVST3},
			{Position: 1, PluginName: "R-Vox", Manufacturer: "Waves", Format: domain.PluginFormatAU},
		},
		IsPublic: true,
	}
}
