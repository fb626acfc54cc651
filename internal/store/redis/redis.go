// Package redis implements the Store interface using Redis/Valkey.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/coursepilot/coursepilot/internal/store"
)

// Compile-time interface satisfaction check.
var _ store.Store = (*Store)(nil)

// Config holds the Redis connection settings.
type Config struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password,omitempty"`
	DB        int    `yaml:"db,omitempty"`
	KeyPrefix string `yaml:"keyPrefix,omitempty"`
}

// Store implements store.Store backed by Redis/Valkey. Catalog snapshots for
// a tuple are stored as JSON documents; sync metadata lives in per-institution
// hashes so a listing never needs a keyspace scan.
type Store struct {
	client *goredis.Client
	prefix string
}

// New creates a Store from config.
func New(cfg *Config) *Store {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewFromClient(client, cfg.KeyPrefix)
}

// NewFromClient creates a Store from an existing client (useful for testing).
func NewFromClient(client *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "coursepilot:"
	}
	return &Store{client: client, prefix: prefix}
}

// Start verifies the connection.
func (s *Store) Start(ctx context.Context) error {
	return s.Ping(ctx)
}

// Stop closes the connection.
func (s *Store) Stop(_ context.Context) error {
	return s.client.Close()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// AcquireLock takes a best-effort distributed lock via SET NX with a TTL.
func (s *Store) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+"lock:"+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis acquire lock %s: %w", key, err)
	}
	return ok, nil
}

// ReleaseLock releases a lock taken with AcquireLock.
func (s *Store) ReleaseLock(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+"lock:"+key).Err(); err != nil {
		return fmt.Errorf("redis release lock %s: %w", key, err)
	}
	return nil
}
