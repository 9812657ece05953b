// internal/db/postgres.go
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// PostgresDB keeps client tokens in a shared PostgreSQL database, for
// daemons that run on several hosts under one account.
type PostgresDB struct {
	Pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewPostgresDB connects, migrates the token schema and returns the store.
func NewPostgresDB(ctx context.Context, databaseURL string, log zerolog.Logger) (*PostgresDB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// A token store needs very few connections
	config.MaxConns = 4
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn, err := openPostgresSQL(databaseURL)
	if err != nil {
		pool.Close()
		return nil, err
	}
	defer conn.Close()
	if err := RunMigrations(conn, DialectPostgres, log); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info().Msg("✅ Connected to PostgreSQL token store")
	return &PostgresDB{Pool: pool, log: log}, nil
}

func (db *PostgresDB) Get(ctx context.Context, name string) (string, bool, error) {
	var value string
	err := db.Pool.QueryRow(ctx, `SELECT value FROM client_tokens WHERE name = $1`, name).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return value, true, nil
}

func (db *PostgresDB) Set(ctx context.Context, values map[string]string) error {
	return pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		for name, value := range values {
			if _, err := tx.Exec(ctx, `
				INSERT INTO client_tokens (name, value, updated_at)
				VALUES ($1, $2, NOW())
				ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
				name, value); err != nil {
				return fmt.Errorf("failed to write %s: %w", name, err)
			}
		}
		return nil
	})
}

func (db *PostgresDB) Delete(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	if _, err := db.Pool.Exec(ctx, `DELETE FROM client_tokens WHERE name = ANY($1)`, names); err != nil {
		return fmt.Errorf("failed to delete tokens: %w", err)
	}
	return nil
}

func (db *PostgresDB) Close() error {
	if db.Pool != nil {
		db.Pool.Close()
		db.log.Info().Msg("PostgreSQL connection closed")
	}
	return nil
}
