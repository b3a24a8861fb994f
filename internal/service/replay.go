package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"prochain-bridge/internal/domain"
	"prochain-bridge/internal/offline"
	"prochain-bridge/internal/repository"
)

// Action names a write that can be queued and replayed.
type Action string

const (
	ActionChainSave     Action = "chain.save"
	ActionLikeToggle    Action = "chain.like_toggle"
	ActionRate          Action = "chain.rate"
	ActionCommentAdd    Action = "comment.add"
	ActionCommentDelete Action = "comment.delete"
	ActionFollow        Action = "user.follow"
	ActionUnfollow      Action = "user.unfollow"
	ActionPluginsSync   Action = "plugins.sync"
	ActionShareSend     Action = "share.send"
	ActionShareRespond  Action = "share.respond"
)

var actions = []Action{
	ActionChainSave,
	ActionLikeToggle,
	ActionRate,
	ActionCommentAdd,
	ActionCommentDelete,
	ActionFollow,
	ActionUnfollow,
	ActionPluginsSync,
	ActionShareSend,
	ActionShareRespond,
}

func Actions() []Action {
	return append([]Action(nil), actions...)
}

func (a Action) Valid() bool {
	for _, known := range actions {
		if a == known {
			return true
		}
	}
	return false
}

// Replayer executes queued writes straight against the repositories. It
// never goes through the gateway, so a failed replay is not queued again.
type Replayer struct {
	chains   repository.ChainRepository
	social   repository.SocialRepository
	plugins  repository.PluginRepository
	shares   repository.ShareRepository
	sessions Sessions
	logger   offline.Logger
}

func NewReplayer(
	chains repository.ChainRepository,
	social repository.SocialRepository,
	plugins repository.PluginRepository,
	shares repository.ShareRepository,
	sessions Sessions,
	logger offline.Logger,
) *Replayer {
	if logger == nil {
		logger = log.Default()
	}
	return &Replayer{
		chains:   chains,
		social:   social,
		plugins:  plugins,
		shares:   shares,
		sessions: sessions,
		logger:   logger,
	}
}

// Execute matches offline.Executor.
func (r *Replayer) Execute(ctx context.Context, action string, args []json.RawMessage) error {
	a := Action(action)
	if !a.Valid() {
		r.logger.Printf("[replay] unknown action %q, dropping", action)
		return nil
	}

	// without a session no write can run; the queue waits for the next
	// sign in instead of burning retries
	userID, err := currentUser(ctx, r.sessions)
	if err != nil {
		return fmt.Errorf("%w: %w", offline.ErrPaused, err)
	}

	switch a {
	case ActionChainSave:
		var chain domain.Chain
		if err := decodeArgs(a, args, &chain); err != nil {
			return err
		}
		chain.UpdatedAt = time.Now().UTC()
		return applyChainSave(ctx, r.chains, userID, &chain)

	case ActionLikeToggle:
		var chainID string
		var liked bool
		if err := decodeArgs(a, args, &chainID, &liked); err != nil {
			return err
		}
		_, err := applyLike(ctx, r.social, userID, chainID, liked)
		return err

	case ActionRate:
		var chainID string
		var value int
		if err := decodeArgs(a, args, &chainID, &value); err != nil {
			return err
		}
		_, err := applyRate(ctx, r.social, userID, chainID, value)
		return err

	case ActionCommentAdd:
		var comment domain.Comment
		if err := decodeArgs(a, args, &comment); err != nil {
			return err
		}
		return applyCommentAdd(ctx, r.social, userID, &comment)

	case ActionCommentDelete:
		var commentID string
		if err := decodeArgs(a, args, &commentID); err != nil {
			return err
		}
		return applyCommentDelete(ctx, r.social, userID, commentID)

	case ActionFollow, ActionUnfollow:
		var followeeID string
		if err := decodeArgs(a, args, &followeeID); err != nil {
			return err
		}
		return applyFollow(ctx, r.social, userID, followeeID, a == ActionFollow)

	case ActionPluginsSync:
		var plugins []domain.Plugin
		if err := decodeArgs(a, args, &plugins); err != nil {
			return err
		}
		_, err := applyPluginsSync(ctx, r.plugins, userID, plugins, time.Now().UTC())
		return err

	case ActionShareSend:
		var share domain.Share
		if err := decodeArgs(a, args, &share); err != nil {
			return err
		}
		return applyShareSend(ctx, r.chains, r.shares, userID, &share)

	case ActionShareRespond:
		var shareID string
		var accept bool
		if err := decodeArgs(a, args, &shareID, &accept); err != nil {
			return err
		}
		_, err := applyShareRespond(ctx, r.chains, r.shares, userID, shareID, accept)
		return err
	}

	return nil
}

func decodeArgs(action Action, args []json.RawMessage, targets ...any) error {
	if len(args) != len(targets) {
		return fmt.Errorf("%s: expected %d arguments, got %d", action, len(targets), len(args))
	}
	for i, target := range targets {
		if err := json.Unmarshal(args[i], target); err != nil {
			return fmt.Errorf("%s: argument %d: %w", action, i, err)
		}
	}
	return nil
}
