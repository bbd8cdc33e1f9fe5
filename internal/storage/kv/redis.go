package kv

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore talks to a hosted Redis. Keys are enumerated with SCAN rather than KEYS
// so a large keyspace does not block the server.
type RedisStore struct {
	client  *redis.Client
	timeout time.Duration
}

func OpenRedis(ctx context.Context, url string, timeout time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	s := NewRedisStore(redis.NewClient(opts), timeout)
	pctx, cancel := withTimeout(ctx, timeout)
	defer cancel()
	if err := s.client.Ping(pctx).Err(); err != nil {
		_ = s.client.Close()
		return nil, storageErr("ping", url, err)
	}
	return s, nil
}

func NewRedisStore(client *redis.Client, timeout time.Duration) *RedisStore {
	return &RedisStore{client: client, timeout: timeout}
}

func (s *RedisStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	b, err := encode(key, value)
	if err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.client.Set(ctx, key, b, ttl).Err(); err != nil {
		return storageErr("set", key, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string, dst any) (bool, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, storageErr("get", key, err)
	}
	if err := decode(key, b, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return storageErr("delete", key, err)
	}
	return nil
}

func (s *RedisStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	// SCAN may return a key more than once
	seen := map[string]struct{}{}
	var cursor uint64
	for {
		batch, next, err := s.client.Scan(ctx, cursor, pattern, 500).Result()
		if err != nil {
			return nil, storageErr("keys", pattern, err)
		}
		for _, k := range batch {
			seen[k] = struct{}{}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }
