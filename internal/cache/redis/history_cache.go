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

// HistoryCache implements domain.HistoryCache using JSON values keyed by
// token plus query window.
//
// Key schema:
//
//	history:v{N}:{key} - JSON of the price series
//
// The key suffix is built by the caller from token ID, interval, and
// fidelity so differently-windowed requests never collide.
type HistoryCache struct {
	rdb *redis.Client
}

// NewHistoryCache creates a HistoryCache backed by the given Client.
func NewHistoryCache(c *Client) *HistoryCache {
	return &HistoryCache{rdb: c.Underlying()}
}

var _ domain.HistoryCache = (*HistoryCache)(nil)

func historyKey(key string) string {
	return fmt.Sprintf("history:v%d:%s", domain.SnapshotSchemaVersion, key)
}

// GetHistory retrieves a cached price series.
// It returns domain.ErrNotFound when the key does not exist.
func (hc *HistoryCache) GetHistory(ctx context.Context, key string) (*domain.PriceHistory, error) {
	data, err := hc.rdb.Get(ctx, historyKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get history %s: %w", key, err)
	}

	var h domain.PriceHistory
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("redis: unmarshal history %s: %w", key, err)
	}
	return &h, nil
}

// SetHistory stores a price series with the given TTL.
func (hc *HistoryCache) SetHistory(ctx context.Context, key string, h *domain.PriceHistory, ttl time.Duration) error {
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("redis: marshal history %s: %w", key, err)
	}
	if err := hc.rdb.Set(ctx, historyKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set history %s: %w", key, err)
	}
	return nil
}
