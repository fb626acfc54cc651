package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coursepilot/coursepilot/internal/store"
)

// Compile-time interface satisfaction check.
var _ store.Store = (*Store)(nil)

// Config holds the Postgres connection settings.
type Config struct {
	DSN string `yaml:"dsn"`
}

// Store implements store.Store backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store and verifies the connection.
func New(ctx context.Context, cfg *Config) (*Store, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Migrate runs the schema DDL to create tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}

// Start runs migrations. The pool is already connected from New.
func (s *Store) Start(ctx context.Context) error {
	return s.Migrate(ctx)
}

// Stop closes the connection pool.
func (s *Store) Stop(_ context.Context) error {
	s.pool.Close()
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

// AcquireLock takes a best-effort lock row. A held, unexpired lock blocks the
// acquisition; expired locks are stolen.
func (s *Store) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO locks (key, expires_at)
		VALUES ($1, NOW() + $2::interval)
		ON CONFLICT (key) DO UPDATE SET
			expires_at = EXCLUDED.expires_at
		WHERE locks.expires_at < NOW()
	`, key, fmt.Sprintf("%d milliseconds", ttl.Milliseconds()))
	if err != nil {
		return false, fmt.Errorf("postgres acquire lock %s: %w", key, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ReleaseLock releases a lock taken with AcquireLock.
func (s *Store) ReleaseLock(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM locks WHERE key = $1`, key); err != nil {
		return fmt.Errorf("postgres release lock %s: %w", key, err)
	}
	return nil
}
