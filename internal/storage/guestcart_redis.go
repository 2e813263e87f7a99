package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"linguini-ordering-web/internal/model"

	"github.com/redis/go-redis/v9"
)

// GuestCartTTL bounds how long an abandoned guest cart is kept.
const GuestCartTTL = 30 * 24 * time.Hour

// RedisGuestCartRepository implements GuestCartRepository using Redis.
// Abandoned carts expire instead of accumulating forever.
type RedisGuestCartRepository struct {
	client    *redis.Client
	keyPrefix string
}

// RedisGuestCartConfig holds configuration for the Redis repository.
type RedisGuestCartConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// NewRedisGuestCartRepository creates a Redis-backed guest-cart repository.
func NewRedisGuestCartRepository(cfg RedisGuestCartConfig) (*RedisGuestCartRepository, error) {
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
		keyPrefix = "linguini:guest_cart"
	}

	log.Printf("[RedisGuestCartRepository] Initialized - DB:%d, prefix:%s", cfg.DB, keyPrefix)
	return &RedisGuestCartRepository{client: client, keyPrefix: keyPrefix}, nil
}

func (r *RedisGuestCartRepository) key(guestKey string) string {
	return r.keyPrefix + ":" + guestKey
}

// Load retrieves the stored guest cart collection.
func (r *RedisGuestCartRepository) Load(ctx context.Context, guestKey string) ([]model.CartItem, error) {
	raw, err := r.client.Get(ctx, r.key(guestKey)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load guest cart: %w", err)
	}

	var items []model.CartItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode guest cart: %w", err)
	}
	return items, nil
}

// Save replaces the stored guest cart collection.
func (r *RedisGuestCartRepository) Save(ctx context.Context, guestKey string, items []model.CartItem) error {
	if items == nil {
		items = []model.CartItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode guest cart: %w", err)
	}

	if err := r.client.Set(ctx, r.key(guestKey), raw, GuestCartTTL).Err(); err != nil {
		return fmt.Errorf("failed to save guest cart: %w", err)
	}
	return nil
}

// Delete removes the stored guest cart collection.
func (r *RedisGuestCartRepository) Delete(ctx context.Context, guestKey string) error {
	if err := r.client.Del(ctx, r.key(guestKey)).Err(); err != nil {
		return fmt.Errorf("failed to delete guest cart: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *RedisGuestCartRepository) Close() error {
	return r.client.Close()
}

// Ensure RedisGuestCartRepository implements GuestCartRepository
var _ GuestCartRepository = (*RedisGuestCartRepository)(nil)
