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

type SocialService struct {
	repo     repository.SocialRepository
	gw       *gateway.Gateway
	sessions Sessions
	validate *validator.Validate
}

func NewSocialService(repo repository.SocialRepository, gw *gateway.Gateway, sessions Sessions) *SocialService {
	return &SocialService{
		repo:     repo,
		gw:       gw,
		sessions: sessions,
		validate: validator.New(),
	}
}

// ToggleLike sets the user's like on a chain to liked.
func (s *SocialService) ToggleLike(ctx context.Context, chainID string, liked bool) (*domain.LikeResult, error) {
	if err := requireID("chain id", chainID); err != nil {
		return nil, err
	}
	userID, err := currentUser(ctx, s.sessions)
	if err != nil {
		return nil, err
	}

	return gateway.WithWriteQueue(ctx, s.gw, string(ActionLikeToggle), []any{chainID, liked}, func(ctx context.Context) (*domain.LikeResult, error) {
		return applyLike(ctx, s.repo, userID, chainID, liked)
	})
}

func (s *SocialService) Rate(ctx context.Context, chainID string, req *domain.RateRequest) (*domain.RatingResult, error) {
	if err := requireID("chain id", chainID); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	userID, err := currentUser(ctx, s.sessions)
	if err != nil {
		return nil, err
	}

	return gateway.WithWriteQueue(ctx, s.gw, string(ActionRate), []any{chainID, req.Value}, func(ctx context.Context) (*domain.RatingResult, error) {
		return applyRate(ctx, s.repo, userID, chainID, req.Value)
	})
}

// AddComment returns the comment even when it was queued.
func (s *SocialService) AddComment(ctx context.Context, chainID string, req *domain.AddCommentRequest) (*domain.Comment, error) {
	if err := requireID("chain id", chainID); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	userID, err := currentUser(ctx, s.sessions)
	if err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		ID:        uuid.New().String(),
		ChainID:   chainID,
		AuthorID:  userID,
		Body:      strings.TrimSpace(req.Body),
		CreatedAt: time.Now().UTC(),
	}

	_, err = gateway.WithWriteQueue(ctx, s.gw, string(ActionCommentAdd), []any{comment}, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, applyCommentAdd(ctx, s.repo, userID, comment)
	})
	return comment, err
}

func (s *SocialService) DeleteComment(ctx context.Context, commentID string) error {
	if err := requireID("comment id", commentID); err != nil {
		return err
	}
	userID, err := currentUser(ctx, s.sessions)
	if err != nil {
		return err
	}

	_, err = gateway.WithWriteQueue(ctx, s.gw, string(ActionCommentDelete), []any{commentID}, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, applyCommentDelete(ctx, s.repo, userID, commentID)
	})
	return err
}

func (s *SocialService) Comments(ctx context.Context, chainID string) ([]*domain.Comment, error) {
	if err := requireID("chain id", chainID); err != nil {
		return nil, err
	}
	return gateway.WithOfflineFallback(ctx, s.gw, CommentsCacheKey(chainID), func(ctx context.Context) ([]*domain.Comment, error) {
		return s.repo.ListComments(ctx, chainID)
	})
}

func (s *SocialService) Follow(ctx context.Context, followeeID string) error {
	return s.setFollow(ctx, ActionFollow, followeeID, true)
}

func (s *SocialService) Unfollow(ctx context.Context, followeeID string) error {
	return s.setFollow(ctx, ActionUnfollow, followeeID, false)
}

func (s *SocialService) setFollow(ctx context.Context, action Action, followeeID string, following bool) error {
	if err := requireID("user id", followeeID); err != nil {
		return err
	}
	userID, err := currentUser(ctx, s.sessions)
	if err != nil {
		return err
	}
	if userID == followeeID {
		return validationError(errors.New("cannot follow yourself"))
	}

	_, err = gateway.WithWriteQueue(ctx, s.gw, string(action), []any{followeeID}, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, applyFollow(ctx, s.repo, userID, followeeID, following)
	})
	return err
}

func requireID(name, id string) error {
	if strings.TrimSpace(id) == "" {
		return validationError(errors.New(name + " is required"))
	}
	return nil
}
