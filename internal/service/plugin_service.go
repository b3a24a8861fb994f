package service

import (
	"context"
	"time"

	"prochain-bridge/internal/domain"
	"prochain-bridge/internal/gateway"
	"prochain-bridge/internal/repository"

	"github.com/go-playground/validator/v10"
)

type PluginService struct {
	repo     repository.PluginRepository
	gw       *gateway.Gateway
	sessions Sessions
	validate *validator.Validate
}

func NewPluginService(repo repository.PluginRepository, gw *gateway.Gateway, sessions Sessions) *PluginService {
	return &PluginService{
		repo:     repo,
		gw:       gw,
		sessions: sessions,
		validate: validator.New(),
	}
}

// Sync replaces the user's scanned plugin list. Like chain saves, the list
// is cached before the attempt so List reflects it while queued.
func (s *PluginService) Sync(ctx context.Context, req *domain.SyncPluginsRequest) (*domain.PluginList, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	userID, err := currentUser(ctx, s.sessions)
	if err != nil {
		return nil, err
	}

	syncedAt := time.Now().UTC()
	local := &domain.PluginList{UserID: userID, Plugins: req.Plugins, SyncedAt: syncedAt}
	s.gw.Store().CacheChain(PluginsCacheKey(userID), local)

	list, err := gateway.WithWriteQueue(ctx, s.gw, string(ActionPluginsSync), []any{req.Plugins}, func(ctx context.Context) (*domain.PluginList, error) {
		return applyPluginsSync(ctx, s.repo, userID, req.Plugins, syncedAt)
	})
	if err != nil {
		return local, err
	}
	return list, nil
}

func (s *PluginService) List(ctx context.Context) (*domain.PluginList, error) {
	userID, err := currentUser(ctx, s.sessions)
	if err != nil {
		return nil, err
	}
	return gateway.WithOfflineFallback(ctx, s.gw, PluginsCacheKey(userID), func(ctx context.Context) (*domain.PluginList, error) {
		return s.repo.Get(ctx, userID)
	})
}
