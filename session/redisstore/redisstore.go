// Package redisstore keeps a session record in a single Redis hash.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-wedding-auth/session"
)

const keyPrefix = "wedding-auth:session:"

// Storage implements session.Storage on a Redis hash.
type Storage struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

var _ session.Storage = (*Storage)(nil)

// Option configures a Storage
type Option func(*Storage)

// WithTTL expires the hash ttl after the last Save. Zero keeps it forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Storage) { s.ttl = ttl }
}

// New stores the record of sessionID under wedding-auth:session:<sessionID>.
func New(client redis.UniversalClient, sessionID string, opts ...Option) *Storage {
	s := &Storage{
		client: client,
		key:    keyPrefix + sessionID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Key returns the Redis key of the hash.
func (s *Storage) Key() string {
	return s.key
}

func (s *Storage) Load(ctx context.Context) (map[string]string, error) {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall session: %w", err)
	}
	return values, nil
}

// Save replaces the hash inside MULTI/EXEC.
func (s *Storage) Save(ctx context.Context, values map[string]string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(values) == 0 {
			return nil
		}

		fields := make(map[string]any, len(values))
		for k, v := range values {
			fields[k] = v
		}
		pipe.HSet(ctx, s.key, fields)

		if s.ttl > 0 {
			pipe.Expire(ctx, s.key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	return nil
}

func (s *Storage) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}
