package store

import (
	"context"
	"fmt"
	"time"

	scribe "github.com/goliatone/go-scribe"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "scribe:"

// RedisStore keeps the credential in a redis string key
type RedisStore struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

var _ scribe.TokenStore = (*RedisStore)(nil)

// NewRedisStore wraps an existing client
func NewRedisStore(rdb *redis.Client, key string) *RedisStore {
	if key == "" {
		key = scribe.DefaultTokenKey
	}
	return &RedisStore{rdb: rdb, key: redisKeyPrefix + key}
}

// ConnectRedis parses url, verifies connectivity and returns a store
func ConnectRedis(ctx context.Context, url, key string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisStore(rdb, key), nil
}

// WithTTL expires the stored key after ttl (0 = no expiry)
func (s *RedisStore) WithTTL(ttl time.Duration) *RedisStore {
	s.ttl = ttl
	return s
}

// Key returns the redis key in use
func (s *RedisStore) Key() string {
	return s.key
}

func (s *RedisStore) Save(ctx context.Context, token string) error {
	return scribe.WrapStoreError("save", s.rdb.Set(ctx, s.key, token, s.ttl).Err())
}

func (s *RedisStore) Load(ctx context.Context) (string, bool, error) {
	val, err := s.rdb.Get(ctx, s.key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, scribe.WrapStoreError("load", err)
	}
	return val, true, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return scribe.WrapStoreError("clear", s.rdb.Del(ctx, s.key).Err())
}

// Client returns the underlying redis client
func (s *RedisStore) Client() *redis.Client {
	return s.rdb
}

// Close releases the redis client
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
