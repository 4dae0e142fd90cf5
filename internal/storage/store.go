// Package storage persists sessions as opaque blobs in a key-value store and
// debounces writes so a burst of turns produces one save.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tatianab/xianxia/internal/config"
)

// BlobStore is a minimal key-value store for serialized sessions.
type BlobStore interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	Close() error
}

// ErrUnknownBackend is returned by Open for an unrecognized backend name.
var ErrUnknownBackend = errors.New("unknown save backend")

// Open builds the store selected by cfg.SaveBackend.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (BlobStore, error) {
	switch cfg.SaveBackend {
	case config.BackendFile:
		return NewFileStore(cfg.SaveDir), nil
	case config.BackendSQLite:
		return OpenSQLite(cfg.SQLitePath)
	case config.BackendRedis:
		store := NewRedisStore(cfg.RedisAddr, logger)
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.SaveBackend)
	}
}
