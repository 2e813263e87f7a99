package cache

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCountCache is a Redis-backed implementation of CountCache, for
// deployments where several frontend instances serve the same visitors.
type RedisCountCache struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
}

// RedisCountCacheConfig holds configuration for the Redis count cache.
type RedisCountCacheConfig struct {
	Addr      string
	Password  string
	DB        int
	TTL       time.Duration
	KeyPrefix string
}

// NewRedisCountCache creates a Redis-backed count cache.
func NewRedisCountCache(cfg RedisCountCacheConfig) (*RedisCountCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "linguini:cart_count"
	}

	log.Printf("[RedisCountCache] Initialized - DB:%d, prefix:%s, ttl:%v", cfg.DB, keyPrefix, cfg.TTL)
	return &RedisCountCache{
		client:    client,
		ttl:       cfg.TTL,
		keyPrefix: keyPrefix,
	}, nil
}

func (c *RedisCountCache) key(token string) string {
	return c.keyPrefix + ":" + token
}

// Get retrieves a cached count by token.
func (c *RedisCountCache) Get(ctx context.Context, token string) (int, error) {
	raw, err := c.client.Get(ctx, c.key(token)).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, ErrCacheMiss
		}
		return 0, err
	}

	count, err := strconv.Atoi(raw)
	if err != nil {
		return 0, ErrCacheMiss
	}
	return count, nil
}

// Set stores a count for the configured TTL.
func (c *RedisCountCache) Set(ctx context.Context, token string, count int) error {
	return c.client.Set(ctx, c.key(token), strconv.Itoa(count), c.ttl).Err()
}

// Invalidate removes a cached count by token.
func (c *RedisCountCache) Invalidate(ctx context.Context, token string) error {
	return c.client.Del(ctx, c.key(token)).Err()
}

// Close closes the Redis connection.
func (c *RedisCountCache) Close() error {
	return c.client.Close()
}

// Ensure RedisCountCache implements CountCache
var _ CountCache = (*RedisCountCache)(nil)
