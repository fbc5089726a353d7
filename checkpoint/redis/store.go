// Package redis provides a Redis-backed checkpoint store. Checkpoints
// are stored as opaque tokens under one key per scope, so several
// client processes can share a Redis instance without colliding.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/vellumledger/go-vellum/checkpoint"
)

// Store persists one checkpoint per scope in Redis.
type Store struct {
	client *redis.Client
	key    string
}

// New connects to Redis at addr and returns a store bound to scope.
func New(addr, password string, db int, scope string) (*Store, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewWithClient(client, scope)
}

// NewWithClient wraps an existing Redis client. The caller keeps
// ownership of the client lifecycle.
func NewWithClient(client *redis.Client, scope string) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if strings.TrimSpace(scope) == "" {
		return nil, fmt.Errorf("checkpoint scope is required")
	}
	return &Store{
		client: client,
		key:    fmt.Sprintf("vellum:checkpoint:%s", scope),
	}, nil
}

// Close closes the underlying Redis client.
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Save records the checkpoint, replacing any previous one.
func (s *Store) Save(ctx context.Context, cp checkpoint.Checkpoint) error {
	token, err := checkpoint.Encode(cp)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, token, 0).Err(); err != nil {
		return fmt.Errorf("redis save checkpoint: %w", err)
	}
	return nil
}

// Load returns the recorded checkpoint, or checkpoint.ErrNotFound.
func (s *Store) Load(ctx context.Context) (checkpoint.Checkpoint, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return checkpoint.Checkpoint{}, checkpoint.ErrNotFound
	}
	if err != nil {
		return checkpoint.Checkpoint{}, fmt.Errorf("redis load checkpoint: %w", err)
	}
	cp, err := checkpoint.Decode(token)
	if err != nil {
		return checkpoint.Checkpoint{}, fmt.Errorf("redis checkpoint corrupt: %w", err)
	}
	return cp, nil
}

// Clear removes the recorded checkpoint.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis clear checkpoint: %w", err)
	}
	return nil
}

var _ checkpoint.Store = (*Store)(nil)
