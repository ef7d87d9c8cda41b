// Package session keeps a Redis-backed allow-list of issued tokens so that
// sign-out and revocation take effect before the JWT itself expires. The
// store is optional: a nil *Store accepts every validated token, which keeps
// single-node deployments free of a Redis dependency.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store tracks live sessions keyed by token digest. Raw tokens are never
// written to Redis.
type Store struct {
	client *redis.Client
}

// New creates a session store and verifies connectivity.
func New(ctx context.Context, redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("session: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("session: ping redis: %w", err)
	}
	return &Store{client: client}, nil
}

func sessionKey(token string) string {
	digest := sha256.Sum256([]byte(token))
	return "session:" + hex.EncodeToString(digest[:])
}

// Track records an issued token with a TTL matching its expiry.
func (s *Store) Track(ctx context.Context, token string, expiresAt time.Time) error {
	if s == nil {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, sessionKey(token), 1, ttl).Err(); err != nil {
		return fmt.Errorf("session: track token: %w", err)
	}
	return nil
}

// Live reports whether a token is still on the allow-list. With no store
// configured every token is considered live.
func (s *Store) Live(ctx context.Context, token string) (bool, error) {
	if s == nil {
		return true, nil
	}
	n, err := s.client.Exists(ctx, sessionKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("session: check token: %w", err)
	}
	return n > 0, nil
}

// Revoke drops a token from the allow-list, ending its session immediately.
func (s *Store) Revoke(ctx context.Context, token string) error {
	if s == nil {
		return nil
	}
	if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("session: revoke token: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.client.Close()
}
