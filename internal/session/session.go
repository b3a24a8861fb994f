// Package session keeps the backend session token on disk so queued writes
// can be replayed with whatever token is current at replay time.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"prochain-bridge/internal/storage"
	"prochain-bridge/pkg/jwt"
)

const tokenKey = "session.token"

var ErrNoSession = errors.New("no session token stored")

type Store struct {
	kv storage.KV
}

func NewStore(kv storage.KV) *Store {
	return &Store{kv: kv}
}

func (s *Store) SetToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: empty token", storage.ErrInvalidInput)
	}
	if _, err := jwt.ParseSessionUnverified(token); err != nil {
		return err
	}
	if err := s.kv.Set(ctx, tokenKey, []byte(token)); err != nil {
		return fmt.Errorf("failed to store session token: %w", err)
	}
	return nil
}

func (s *Store) Token(ctx context.Context) (string, error) {
	data, err := s.kv.Get(ctx, tokenKey)
	if errors.Is(err, storage.ErrNotFound) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session token: %w", err)
	}
	return string(data), nil
}

// UserID returns the user the stored token belongs to.
func (s *Store) UserID(ctx context.Context) (string, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return "", err
	}
	claims, err := jwt.ParseSessionUnverified(token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, tokenKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to clear session token: %w", err)
	}
	return nil
}
