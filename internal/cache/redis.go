package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "bolso:cache:"

// RedisStore is a Redis-backed response cache. Errors degrade to cache
// misses; Redis being down must never fail a request.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
	if !strings.Contains(url, "://") {
		url = "redis://" + url
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{client: client, ttl: ttl}, nil
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		slog.WarnContext(ctx, "Redis get failed", "key", key, "error", err)
		return nil, false
	}
	return data, true
}

func (r *RedisStore) Set(ctx context.Context, key string, data []byte) {
	if err := r.client.SetEx(ctx, redisKeyPrefix+key, data, r.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "Redis set failed", "key", key, "error", err)
	}
}

// Flush deletes every cached response under this service's prefix.
func (r *RedisStore) Flush(ctx context.Context) {
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		slog.WarnContext(ctx, "Redis scan failed", "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		slog.WarnContext(ctx, "Redis delete failed", "error", err)
	}
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
