// Package redis provides the Redis-backed KV store used in production.
// The snapshot keys and value shapes match what the original frontend's
// serverless handlers stored, so an existing deployment can be pointed at
// the same instance.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"dexy/internal/storage"
)

// KV is a Redis implementation of storage.KV.
type KV struct {
	client *redis.Client
}

// NewKV creates a Redis KV store from a redis:// URL and verifies the
// connection.
func NewKV(ctx context.Context, url string) (*KV, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &KV{client: client}, nil
}

// Close releases the underlying connection pool.
func (s *KV) Close() error {
	return s.client.Close()
}

// Get returns the value for key. Returns ErrNotFound for keys that were
// never written and ErrUnavailable when Redis is unreachable.
func (s *KV) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("%w: redis get %s: %v", storage.ErrUnavailable, key, err)
	}
	return v, nil
}

// Set writes the value for key with no expiry. Last write wins.
func (s *KV) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("%w: redis set %s: %v", storage.ErrUnavailable, key, err)
	}
	return nil
}

var _ storage.KV = (*KV)(nil)
