package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrKeyNotFound is returned by Storage.Get for an absent key.
var ErrKeyNotFound = errors.New("session: key not found")

// Storage is the durable key-value store the session survives restarts in.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Key names, relative to the configured prefix.
const (
	AuthKey        = "auth:session"
	PreferencesKey = "app:preferences"
)

// RedisStorage keeps values in Redis under a fixed prefix, without expiry.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

// NewRedisStorage constructs a RedisStorage.
func NewRedisStorage(client *redis.Client, prefix string) *RedisStorage {
	return &RedisStorage{client: client, prefix: prefix}
}

// Get reads key. A missing key yields ErrKeyNotFound.
func (s *RedisStorage) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("session: redis get: %w", err)
	}
	return data, nil
}

// Set writes key.
func (s *RedisStorage) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *RedisStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("session: redis del: %w", err)
	}
	return nil
}

var _ Storage = (*RedisStorage)(nil)
