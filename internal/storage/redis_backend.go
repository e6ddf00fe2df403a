package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores both documents as plain string keys.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend creates a Redis storage backend.
func NewRedisBackend(addr, password string, db int, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = "ag2api:"
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	return &RedisBackend{client: client, prefix: prefix}
}

// newRedisBackendWithClient 供测试注入 miniredis 连接。
func newRedisBackendWithClient(client *redis.Client, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

func (r *RedisBackend) Initialize(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func (r *RedisBackend) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *RedisBackend) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisBackend) Name() string { return "redis" }

func (r *RedisBackend) LoadAccounts(ctx context.Context) ([]byte, error) {
	return r.load(ctx, DocAccounts)
}

func (r *RedisBackend) SaveAccounts(ctx context.Context, data []byte) error {
	return r.client.Set(ctx, r.prefix+DocAccounts, data, 0).Err()
}

func (r *RedisBackend) LoadQuotas(ctx context.Context) ([]byte, error) {
	return r.load(ctx, DocQuotas)
}

func (r *RedisBackend) SaveQuotas(ctx context.Context, data []byte) error {
	return r.client.Set(ctx, r.prefix+DocQuotas, data, 0).Err()
}

func (r *RedisBackend) load(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return data, err
}
