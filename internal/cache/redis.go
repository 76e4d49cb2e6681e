package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/debtcheck/debtcheck/internal/config"
	"github.com/debtcheck/debtcheck/internal/models"
)

// RedisTTLStore is a Redis-backed TTLStore. Entries are stored as JSON and
// expire via Redis key TTLs.
type RedisTTLStore struct {
	client *redis.Client
}

// NewRedisTTLStore connects to Redis and verifies the connection.
func NewRedisTTLStore(ctx context.Context, cfg config.RedisConfig) (*RedisTTLStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return &RedisTTLStore{client: client}, nil
}

// Get returns the stored entry for key, or ok=false when absent or expired
func (s *RedisTTLStore) Get(ctx context.Context, key string) (*models.CacheEntry, bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// A corrupt entry is treated as a miss; the next fetch overwrites it.
		return nil, false, nil
	}
	return &entry, true, nil
}

// Set stores the entry under key with the given TTL
func (s *RedisTTLStore) Set(ctx context.Context, key string, entry *models.CacheEntry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisTTLStore) Close() error {
	return s.client.Close()
}
