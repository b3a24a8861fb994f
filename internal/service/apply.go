package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"prochain-bridge/internal/domain"
	"prochain-bridge/internal/remote"
	"prochain-bridge/internal/repository"
)

// The apply functions perform one write against the backend. Live calls and
// queue replays both go through them, so a replayed write has the same
// effect as the original attempt.

func applyChainSave(ctx context.Context, repo repository.ChainRepository, userID string, chain *domain.Chain) error {
	chain.AuthorID = userID
	return repo.Put(ctx, chain)
}

func applyLike(ctx context.Context, repo repository.SocialRepository, userID, chainID string, liked bool) (*domain.LikeResult, error) {
	return repo.SetLike(ctx, chainID, userID, liked)
}

func applyRate(ctx context.Context, repo repository.SocialRepository, userID, chainID string, value int) (*domain.RatingResult, error) {
	return repo.PutRating(ctx, chainID, userID, value)
}

func applyCommentAdd(ctx context.Context, repo repository.SocialRepository, userID string, comment *domain.Comment) error {
	comment.AuthorID = userID
	return repo.PutComment(ctx, comment)
}

func applyCommentDelete(ctx context.Context, repo repository.SocialRepository, userID, commentID string) error {
	return repo.DeleteComment(ctx, commentID, userID)
}

func applyFollow(ctx context.Context, repo repository.SocialRepository, userID, followeeID string, following bool) error {
	return repo.SetFollow(ctx, userID, followeeID, following)
}

func applyPluginsSync(ctx context.Context, repo repository.PluginRepository, userID string, plugins []domain.Plugin, syncedAt time.Time) (*domain.PluginList, error) {
	list := &domain.PluginList{
		UserID:   userID,
		Plugins:  plugins,
		SyncedAt: syncedAt,
	}
	if err := repo.Put(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func applyShareSend(ctx context.Context, chains repository.ChainRepository, shares repository.ShareRepository, userID string, share *domain.Share) error {
	chain, err := chains.Get(ctx, share.ChainID)
	if err != nil {
		return err
	}
	if !chain.IsPublic && chain.AuthorID != userID {
		return &remote.Error{
			Op:     "shares.send",
			Kind:   remote.Application,
			Status: http.StatusForbidden,
			Err:    fmt.Errorf("chain %s is private", share.ChainID),
		}
	}

	share.SenderID = userID
	share.ChainName = chain.Name
	share.Status = domain.ShareStatusPending
	return shares.Put(ctx, share)
}

func applyShareRespond(ctx context.Context, chains repository.ChainRepository, shares repository.ShareRepository, userID, shareID string, accept bool) (*domain.ShareResponse, error) {
	status := domain.ShareStatusRejected
	if accept {
		status = domain.ShareStatusAccepted
	}

	share, err := shares.Respond(ctx, shareID, userID, status)
	if err != nil {
		return nil, err
	}

	resp := &domain.ShareResponse{Share: share}
	if accept {
		chain, err := chains.Get(ctx, share.ChainID)
		if err != nil {
			return nil, err
		}
		resp.Chain = chain
	}
	return resp, nil
}
