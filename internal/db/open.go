package db

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/Marga-Ghale/ora-scrum-client/internal/apiclient"
	"github.com/Marga-Ghale/ora-scrum-client/internal/config"
)

// Store is a token storage backend that owns a connection.
type Store interface {
	apiclient.Storage
	io.Closer
}

// Open selects the token storage backend named by cfg.TokenStore and wraps it
// in Sealed when a TOKEN_SECRET is configured.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (apiclient.Storage, io.Closer, error) {
	var store Store
	switch cfg.TokenStore {
	case "", "memory":
		store = NewMemoryDB()
	case "sqlite":
		s, err := NewSQLiteDB(cfg.SQLitePath, log)
		if err != nil {
			return nil, nil, err
		}
		store = s
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("TOKEN_STORE=postgres requires DATABASE_URL")
		}
		s, err := NewPostgresDB(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, nil, err
		}
		store = s
	case "redis":
		if cfg.RedisURL == "" {
			return nil, nil, fmt.Errorf("TOKEN_STORE=redis requires REDIS_URL")
		}
		s, err := NewRedisDB(ctx, cfg.RedisURL, cfg.LoginEmail, log)
		if err != nil {
			return nil, nil, err
		}
		store = s
	default:
		return nil, nil, fmt.Errorf("unknown TOKEN_STORE %q", cfg.TokenStore)
	}

	if cfg.TokenSecret == "" {
		return store, store, nil
	}
	return NewSealed(store, cfg.TokenSecret), store, nil
}
