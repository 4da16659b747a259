package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/marketlens/internal/domain"
)

// HolderCache implements domain.HolderCache using JSON values.
//
// Key schema:
//
//	holders:v{N}:{conditionID}:{limit}:{minBalance} - JSON of the buckets
type HolderCache struct {
	rdb *redis.Client
}

// NewHolderCache creates a HolderCache backed by the given Client.
func NewHolderCache(c *Client) *HolderCache {
	return &HolderCache{rdb: c.Underlying()}
}

var _ domain.HolderCache = (*HolderCache)(nil)

func holdersKey(key string) string {
	return fmt.Sprintf("holders:v%d:%s", domain.SnapshotSchemaVersion, key)
}

// GetHolders retrieves cached holder buckets by lookup key.
// It returns domain.ErrNotFound when the key does not exist.
func (hc *HolderCache) GetHolders(ctx context.Context, key string) (*domain.HolderBuckets, error) {
	data, err := hc.rdb.Get(ctx, holdersKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get holders %s: %w", key, err)
	}

	var buckets domain.HolderBuckets
	if err := json.Unmarshal(data, &buckets); err != nil {
		return nil, fmt.Errorf("redis: unmarshal holders %s: %w", key, err)
	}
	return &buckets, nil
}

// SetHolders stores holder buckets with the given TTL.
func (hc *HolderCache) SetHolders(ctx context.Context, key string, h *domain.HolderBuckets, ttl time.Duration) error {
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("redis: marshal holders %s: %w", key, err)
	}
	if err := hc.rdb.Set(ctx, holdersKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set holders %s: %w", key, err)
	}
	return nil
}
