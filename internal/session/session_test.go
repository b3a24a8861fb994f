package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	gojwt "github.com/golang-jwt/jwt/v5"

	"prochain-bridge/internal/storage"
)

func sessionToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.RegisteredClaims{Subject: userID}).
		SignedString([]byte("backend"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestStore_TokenLifecycle(t *testing.T) {
	ctx := context.Background()
	kv, err := storage.OpenSQLiteKV(ctx, filepath.Join(t.TempDir(), "bridge.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer kv.Close()

	store := NewStore(kv)

	if _, err := store.Token(ctx); !errors.Is(err, ErrNoSession) {
		t.Errorf("Token() on empty store error = %v, want ErrNoSession", err)
	}

	if err := store.SetToken(ctx, sessionToken(t, "user-1")); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}
	userID, err := store.UserID(ctx)
	if err != nil {
		t.Fatalf("UserID() error = %v", err)
	}
	if userID != "user-1" {
		t.Errorf("UserID() = %s, want user-1", userID)
	}

	// replacing the token is visible to the next read
	if err := store.SetToken(ctx, sessionToken(t, "user-2")); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}
	if userID, _ := store.UserID(ctx); userID != "user-2" {
		t.Errorf("UserID() after replace = %s, want user-2", userID)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := store.UserID(ctx); !errors.Is(err, ErrNoSession) {
		t.Errorf("UserID() after clear error = %v, want ErrNoSession", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Errorf("second Clear() error = %v", err)
	}
}

func TestStore_SetTokenRejectsGarbage(t *testing.T) {
	store := NewStore(storage.NewMemoryKV())
	for _, token := range []string{"", "   ", "not-a-jwt"} {
		if err := store.SetToken(context.Background(), token); err == nil {
			t.Errorf("SetToken(%q) expected error", token)
		}
	}
}
