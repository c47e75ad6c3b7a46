package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when the requested key is absent.
var ErrCacheMiss = errors.New("cache miss")

// CacheService fronts Redis for derived read models. Only recomputable data
// goes here; wallet balances and transaction records live in Mongo alone.
type CacheService interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error

	Ping(ctx context.Context) error
	Close() error

	Client() *redis.Client
}

type redisCache struct {
	client    *redis.Client
	keyPrefix string
}

type CacheConfig struct {
	Addr        string
	Password    string
	Database    int
	PoolSize    int
	DialTimeout time.Duration
	ReadTimeout time.Duration
	KeyPrefix   string
}

func NewRedisCache(config *CacheConfig) (CacheService, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.Database,
		PoolSize:     config.PoolSize,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.ReadTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisCache{
		client:    rdb,
		keyPrefix: config.KeyPrefix,
	}, nil
}

func (r *redisCache) buildKey(key string) string {
	if r.keyPrefix != "" {
		return fmt.Sprintf("%s:%s", r.keyPrefix, key)
	}
	return key
}

func (r *redisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return r.client.Set(ctx, r.buildKey(key), data, expiration).Err()
}

func (r *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, r.buildKey(key)).Result()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get value: %w", err)
	}

	return json.Unmarshal([]byte(data), dest)
}

func (r *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = r.buildKey(key)
	}

	return r.client.Del(ctx, prefixed...).Err()
}

func (r *redisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisCache) Close() error {
	return r.client.Close()
}

// Client exposes the underlying connection for components that need raw
// Redis commands, like the reconciliation sweep lock.
func (r *redisCache) Client() *redis.Client {
	return r.client
}

// SummaryKey is the cache key for a user's dashboard summary.
func SummaryKey(userID string) string {
	return fmt.Sprintf("summary:%s", userID)
}
