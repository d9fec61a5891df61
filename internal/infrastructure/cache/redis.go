package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wallet_tracker/internal/domain/entity"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const scanBatch = 200

// NewRedisClient configures a Redis client and verifies connectivity.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// RedisStore is a port.Cache shared across processes. Keys live under a per-network namespace.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore returns a store whose keys are prefixed with "txcache:{network}:".
func NewRedisStore(client redis.UniversalClient, network string) *RedisStore {
	return &RedisStore{client: client, prefix: "txcache:" + strings.ToLower(network) + ":"}
}

func (s *RedisStore) Get(ctx context.Context, key string) (entity.CacheEntry, bool, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return entity.CacheEntry{}, false, nil
	}
	if err != nil {
		return entity.CacheEntry{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var entry entity.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return entity.CacheEntry{}, false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	return entry, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, entry entity.CacheEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	ttl := retention(entry.TTL)
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.prefix + k
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Entries returns every entry in the namespace. Keys are returned without the prefix.
func (s *RedisStore) Entries(ctx context.Context) (map[string]entity.CacheEntry, error) {
	keys, err := s.keys(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]entity.CacheEntry, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			// deleted between SCAN and MGET
			continue
		}
		var entry entity.CacheEntry
		if err := json.Unmarshal([]byte(str), &entry); err != nil {
			continue
		}
		out[strings.TrimPrefix(keys[i], s.prefix)] = entry
	}
	return out, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	keys, err := s.keys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *RedisStore) keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return keys, nil
}
