// Package storage provides the durable key-value storage the offline store
// persists into. Values are opaque byte slices, usually JSON documents.
package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("key not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrClosed       = errors.New("storage closed")
)

type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
