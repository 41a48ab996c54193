// Package cache keeps computed probe profiles in Redis so repeated runs with
// the same optics, grid and tolerances skip the integration.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/HamletTheHamster/stemprobe/internal/config"
)

// ErrMiss is returned by Store.Get for an absent key.
var ErrMiss = errors.New("cache miss")

// Store is a byte-valued key store with expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// RedisStore is a Store backed by a Redis server.
type RedisStore struct {
	client *redis.Client
	addr   string
}

// NewRedisStore builds a client from cfg. It does not connect; see Ping.
func NewRedisStore(cfg config.CacheConfig) *RedisStore {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		addr: addr,
	}
}

// Ping checks the server answers within five seconds.
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s: %w", s.addr, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return b, err
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
