package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"prochain-bridge/internal/domain"
	"prochain-bridge/internal/gateway"
	"prochain-bridge/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type ChainService struct {
	repo     repository.ChainRepository
	gw       *gateway.Gateway
	sessions Sessions
	validate *validator.Validate
}

func NewChainService(repo repository.ChainRepository, gw *gateway.Gateway, sessions Sessions) *ChainService {
	return &ChainService{
		repo:     repo,
		gw:       gw,
		sessions: sessions,
		validate: validator.New(),
	}
}

// Save creates or updates a chain. The chain is cached locally before the
// remote attempt, so a queued save is still readable through Get while the
// write waits for replay. A queued save returns the chain together with a
// *gateway.QueuedError.
func (s *ChainService) Save(ctx context.Context, req *domain.SaveChainRequest) (*domain.Chain, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	userID, err := currentUser(ctx, s.sessions)
	if err != nil {
		return nil, err
	}

	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()

	chain := &domain.Chain{
		ID:          id,
		AuthorID:    userID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Category:    strings.ToLower(strings.TrimSpace(req.Category)),
		Tags:        req.Tags,
		Slots:       req.Slots,
		IsPublic:    req.IsPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	store := s.gw.Store()
	key := ChainCacheKey(chain.ID)
	previous, hadPrevious := store.GetCachedChain(key)
	store.CacheChain(key, chain)

	_, err = gateway.WithWriteQueue(ctx, s.gw, string(ActionChainSave), []any{chain}, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, applyChainSave(ctx, s.repo, userID, chain)
	})
	if err != nil {
		if !errors.Is(err, gateway.ErrQueued) {
			// rejected by the backend: the intended version must not be
			// served as a fallback later
			if hadPrevious {
				store.CacheChain(key, previous.Data)
			} else {
				store.ForgetCached(key)
			}
		}
		return chain, err
	}
	return chain, nil
}

// Get returns nil without error when offline and the chain was never cached.
func (s *ChainService) Get(ctx context.Context, id string) (*domain.Chain, error) {
	return gateway.WithOfflineFallback(ctx, s.gw, ChainCacheKey(id), func(ctx context.Context) (*domain.Chain, error) {
		return s.repo.Get(ctx, id)
	})
}

func (s *ChainService) Browse(ctx context.Context, query domain.BrowseQuery) ([]*domain.Chain, error) {
	if err := s.validate.Struct(query); err != nil {
		return nil, validationError(err)
	}
	query = query.Normalized()

	return gateway.WithOfflineFallback(ctx, s.gw, BrowseCacheKey(query), func(ctx context.Context) ([]*domain.Chain, error) {
		return s.repo.Browse(ctx, query)
	})
}
