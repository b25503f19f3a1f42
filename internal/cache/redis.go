package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// indexGrace keeps index sets alive a little longer than the entries they list.
const indexGrace = 30 * time.Second

// RedisStore is a Store backed by a go-redis client.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}

func (s *RedisStore) AddToIndex(ctx context.Context, index, key string, ttl time.Duration) error {
	// SADD and EXPIRE go out together so an index never lives forever
	pipe := s.rdb.TxPipeline()
	pipe.SAdd(ctx, index, key)
	pipe.Expire(ctx, index, ttl+indexGrace)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Members(ctx context.Context, index string) ([]string, error) {
	return s.rdb.SMembers(ctx, index).Result()
}
