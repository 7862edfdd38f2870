package session

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisVersionStore keeps token versions in Redis, shared across instances.
// INCR gives the atomic bump the revocation contract requires.
type RedisVersionStore struct {
	redis  *redis.Client
	prefix string
}

// NewRedisVersionStore creates a Redis-backed version store. An empty prefix
// defaults to "tokenversion".
func NewRedisVersionStore(redisClient *redis.Client, prefix string) *RedisVersionStore {
	if prefix == "" {
		prefix = "tokenversion"
	}
	return &RedisVersionStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *RedisVersionStore) key(id string, visitor bool) string {
	namespace := "user"
	if visitor {
		namespace = "visitor"
	}
	return fmt.Sprintf("%s:%s:%s", s.prefix, namespace, id)
}

// Ensure initializes the version to zero for a new account or visitor code.
// Existing versions are left untouched.
func (s *RedisVersionStore) Ensure(ctx context.Context, id string, visitor bool) error {
	if err := s.redis.SetNX(ctx, s.key(id, visitor), 0, 0).Err(); err != nil {
		return fmt.Errorf("failed to initialize token version: %w", err)
	}
	return nil
}

// Version returns the stored version, or ErrAccountNotFound when the key is
// absent (deleted account or expired visitor code)
func (s *RedisVersionStore) Version(ctx context.Context, id string, visitor bool) (int64, error) {
	version, err := s.redis.Get(ctx, s.key(id, visitor)).Int64()
	if err == redis.Nil {
		return 0, ErrAccountNotFound
	} else if err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}
	return version, nil
}

// Increment atomically bumps the version by one. INCR on a missing key
// creates it at 1, which still invalidates any version-0 tokens.
func (s *RedisVersionStore) Increment(ctx context.Context, id string, visitor bool) (int64, error) {
	version, err := s.redis.Incr(ctx, s.key(id, visitor)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}
	return version, nil
}

// Delete removes the version key, used when an account or visitor code is
// deleted so presented refresh tokens fail with ErrAccountNotFound
func (s *RedisVersionStore) Delete(ctx context.Context, id string, visitor bool) error {
	return s.redis.Del(ctx, s.key(id, visitor)).Err()
}
