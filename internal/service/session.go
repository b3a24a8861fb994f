package service

import (
	"context"
	"errors"
	"fmt"

	"prochain-bridge/internal/session"
)

// Sessions resolves the user behind the stored session token.
type Sessions interface {
	UserID(ctx context.Context) (string, error)
}

func currentUser(ctx context.Context, sessions Sessions) (string, error) {
	userID, err := sessions.UserID(ctx)
	if errors.Is(err, session.ErrNoSession) {
		return "", ErrUnauthenticated
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return userID, nil
}
