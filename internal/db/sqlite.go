package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteDB keeps client tokens in a local SQLite file. It is the default
// durable store for a single-user daemon.
type SQLiteDB struct {
	DB  *sql.DB
	log zerolog.Logger
}

func NewSQLiteDB(path string, log zerolog.Logger) (*SQLiteDB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between the gateway and the poller
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if err := RunMigrations(conn, DialectSQLite, log); err != nil {
		conn.Close()
		return nil, err
	}

	log.Info().Str("path", path).Msg("✅ Opened SQLite token store")
	return &SQLiteDB{DB: conn, log: log}, nil
}

func (s *SQLiteDB) Get(ctx context.Context, name string) (string, bool, error) {
	var value string
	err := s.DB.QueryRowContext(ctx, `SELECT value FROM client_tokens WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return value, true, nil
}

func (s *SQLiteDB) Set(ctx context.Context, values map[string]string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for name, value := range values {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO client_tokens (name, value, updated_at)
			VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT (name) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
			name, value); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteDB) Delete(ctx context.Context, names ...string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, name := range names {
		if _, err := tx.ExecContext(ctx, `DELETE FROM client_tokens WHERE name = ?`, name); err != nil {
			return fmt.Errorf("failed to delete %s: %w", name, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteDB) Close() error {
	if s.DB == nil {
		return nil
	}
	s.log.Info().Msg("SQLite token store closed")
	return s.DB.Close()
}
