package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores each session as a Redis hash with a sliding TTL.
type RedisBackend struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisBackend creates a backend; ttl <= 0 disables expiry.
func NewRedisBackend(rdb *redis.Client, ttl time.Duration) *RedisBackend {
	return &RedisBackend{rdb: rdb, ttl: ttl, prefix: "portal:session:"}
}

func (b *RedisBackend) key(id string) string {
	return b.prefix + id
}

func (b *RedisBackend) Create(ctx context.Context, id string) error {
	pipe := b.rdb.TxPipeline()
	pipe.HSet(ctx, b.key(id), sessionCreatedMarker, time.Now().UTC().Format(time.RFC3339))
	if b.ttl > 0 {
		pipe.Expire(ctx, b.key(id), b.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (b *RedisBackend) Exists(ctx context.Context, id string) (bool, error) {
	n, err := b.rdb.Exists(ctx, b.key(id)).Result()
	return n > 0, err
}

func (b *RedisBackend) Touch(ctx context.Context, id string) (bool, error) {
	if b.ttl <= 0 {
		return b.Exists(ctx, id)
	}
	return b.rdb.Expire(ctx, b.key(id), b.ttl).Result()
}

func (b *RedisBackend) Open(id string) Store {
	return &redisStore{backend: b, key: b.key(id)}
}

func (b *RedisBackend) Destroy(ctx context.Context, id string) error {
	return b.rdb.Del(ctx, b.key(id)).Err()
}

type redisStore struct {
	backend *RedisBackend
	key     string
}

func (s *redisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.backend.rdb.HGet(ctx, s.key, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string) error {
	pipe := s.backend.rdb.TxPipeline()
	pipe.HSet(ctx, s.key, key, value)
	if s.backend.ttl > 0 {
		pipe.Expire(ctx, s.key, s.backend.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	return s.backend.rdb.HDel(ctx, s.key, key).Err()
}

// Clear drops every value but keeps the session itself alive.
func (s *redisStore) Clear(ctx context.Context) error {
	fields, err := s.backend.rdb.HKeys(ctx, s.key).Result()
	if err != nil {
		return err
	}
	var drop []string
	for _, f := range fields {
		if f != sessionCreatedMarker {
			drop = append(drop, f)
		}
	}
	if len(drop) == 0 {
		return nil
	}
	return s.backend.rdb.HDel(ctx, s.key, drop...).Err()
}
