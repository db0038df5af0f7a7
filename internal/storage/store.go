// Package storage provides the durable key-value store the widget keeps its
// recent searches and last searched city in.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/vzahanych/weather-widget/internal/config"
)

// ErrNotFound is returned by Get when the key has never been written or was removed.
var ErrNotFound = errors.New("storage: key not found")

// Store is a string key-value store that survives process restart.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Open builds the store selected by cfg.Driver.
func Open(cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return NewSQLite(cfg.Path)
	case "file":
		return NewFileStore(cfg.Path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
