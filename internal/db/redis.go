// internal/db/redis.go
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const sessionPrefix = "session:"

// RedisDB keeps client tokens under session:<namespace>:<name>.
type RedisDB struct {
	Client    *redis.Client
	namespace string
	log       zerolog.Logger
}

func NewRedisDB(ctx context.Context, redisURL, namespace string, log zerolog.Logger) (*RedisDB, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info().Msg("✅ Connected to Redis token store")
	return NewRedisStore(client, namespace, log), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, namespace string, log zerolog.Logger) *RedisDB {
	if namespace == "" {
		namespace = "default"
	}
	return &RedisDB{Client: client, namespace: namespace, log: log}
}

func (r *RedisDB) key(name string) string {
	return sessionPrefix + r.namespace + ":" + name
}

func (r *RedisDB) Get(ctx context.Context, name string) (string, bool, error) {
	value, err := r.Client.Get(ctx, r.key(name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return value, true, nil
}

// Set writes all values in one MULTI/EXEC so readers never see half a pair.
func (r *RedisDB) Set(ctx context.Context, values map[string]string) error {
	_, err := r.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for name, value := range values {
			pipe.Set(ctx, r.key(name), value, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write tokens: %w", err)
	}
	return nil
}

func (r *RedisDB) Delete(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = r.key(name)
	}
	if err := r.Client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete tokens: %w", err)
	}
	return nil
}

func (r *RedisDB) Close() error {
	if r.Client == nil {
		return nil
	}
	r.log.Info().Msg("Redis connection closed")
	return r.Client.Close()
}
