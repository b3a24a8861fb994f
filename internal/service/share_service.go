package service

import (
	"context"
	"errors"
	"time"

	"prochain-bridge/internal/domain"
	"prochain-bridge/internal/gateway"
	"prochain-bridge/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type ShareService struct {
	shares   repository.ShareRepository
	chains   repository.ChainRepository
	gw       *gateway.Gateway
	sessions Sessions
	validate *validator.Validate
}

func NewShareService(shares repository.ShareRepository, chains repository.ChainRepository, gw *gateway.Gateway, sessions Sessions) *ShareService {
	return &ShareService{
		shares:   shares,
		chains:   chains,
		gw:       gw,
		sessions: sessions,
		validate: validator.New(),
	}
}

// Send shares a chain privately with another user.
func (s *ShareService) Send(ctx context.Context, req *domain.SendShareRequest) (*domain.Share, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	userID, err := currentUser(ctx, s.sessions)
	if err != nil {
		return nil, err
	}
	if req.RecipientID == userID {
		return nil, validationError(errors.New("cannot share a chain with yourself"))
	}

	share := &domain.Share{
		ID:          uuid.New().String(),
		ChainID:     req.ChainID,
		SenderID:    userID,
		RecipientID: req.RecipientID,
		Status:      domain.ShareStatusPending,
		SentAt:      time.Now().UTC(),
	}

	_, err = gateway.WithWriteQueue(ctx, s.gw, string(ActionShareSend), []any{share}, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, applyShareSend(ctx, s.chains, s.shares, userID, share)
	})
	return share, err
}

// Respond accepts or rejects a received share. An accepted share returns the
// chain, which is also cached for offline reads.
func (s *ShareService) Respond(ctx context.Context, shareID string, req *domain.RespondShareRequest) (*domain.ShareResponse, error) {
	if err := requireID("share id", shareID); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	userID, err := currentUser(ctx, s.sessions)
	if err != nil {
		return nil, err
	}
	accept := req.Action == "accept"

	resp, err := gateway.WithWriteQueue(ctx, s.gw, string(ActionShareRespond), []any{shareID, accept}, func(ctx context.Context) (*domain.ShareResponse, error) {
		return applyShareRespond(ctx, s.chains, s.shares, userID, shareID, accept)
	})
	if err != nil {
		return nil, err
	}
	if resp.Chain != nil {
		s.gw.Store().CacheChain(ChainCacheKey(resp.Chain.ID), resp.Chain)
	}
	return resp, nil
}

// Received lists shares waiting for the user's answer.
func (s *ShareService) Received(ctx context.Context) ([]*domain.Share, error) {
	userID, err := currentUser(ctx, s.sessions)
	if err != nil {
		return nil, err
	}
	return gateway.WithOfflineFallback(ctx, s.gw, ReceivedSharesCacheKey(userID), func(ctx context.Context) ([]*domain.Share, error) {
		return s.shares.ListReceived(ctx, userID)
	})
}
