package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sellerdesk/backend/internal/domain/feed"
	"github.com/sellerdesk/backend/internal/infrastructure/config"
)

// RedisCursorStore implements feed.CursorStore using Redis, for deployments
// where multiple instances share the poll watermark
type RedisCursorStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisCursorStore creates a Redis-backed cursor store
func NewRedisCursorStore(cfg *config.RedisConfig) (*RedisCursorStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCursorStore{client: client, keyPrefix: "sync:cursor:"}, nil
}

// NewRedisCursorStoreWithClient creates a store with an existing Redis
// client, useful for testing or sharing a client across components
func NewRedisCursorStoreWithClient(client *redis.Client, keyPrefix string) *RedisCursorStore {
	if keyPrefix == "" {
		keyPrefix = "sync:cursor:"
	}
	return &RedisCursorStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisCursorStore) key(sellerCode string, marketplace feed.Marketplace) string {
	return s.keyPrefix + string(marketplace) + ":" + sellerCode
}

// Get returns the stored cursor, or "" when none exists yet
func (s *RedisCursorStore) Get(ctx context.Context, sellerCode string, marketplace feed.Marketplace) (string, error) {
	val, err := s.client.Get(ctx, s.key(sellerCode, marketplace)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load cursor: %w", err)
	}
	return val, nil
}

// Set stores the cursor. Cursors have no TTL; a watermark only moves
// forward and must survive restarts.
func (s *RedisCursorStore) Set(ctx context.Context, sellerCode string, marketplace feed.Marketplace, cursor string) error {
	if err := s.client.Set(ctx, s.key(sellerCode, marketplace), cursor, 0).Err(); err != nil {
		return fmt.Errorf("failed to persist cursor: %w", err)
	}
	return nil
}

// Close releases the underlying client
func (s *RedisCursorStore) Close() error {
	return s.client.Close()
}
