package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/marketlens/internal/domain"
)

// SnapshotCache implements domain.SnapshotCache using Redis string values
// with JSON-serialized event data.
//
// Key schema:
//
//	catalog:v{N}:events - JSON of the full event snapshot
//	catalog:v{N}:ts     - unix milliseconds of the capture time
//
// N is domain.SnapshotSchemaVersion, so a shape change orphans old entries
// instead of decoding them wrong.
type SnapshotCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSnapshotCache creates a SnapshotCache backed by the given Client.
// ttl bounds how long an entry survives at all; freshness tiering within
// that window is the caller's concern.
func NewSnapshotCache(c *Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{rdb: c.Underlying(), ttl: ttl}
}

var _ domain.SnapshotCache = (*SnapshotCache)(nil)

func snapshotKey() string  { return fmt.Sprintf("catalog:v%d:events", domain.SnapshotSchemaVersion) }
func timestampKey() string { return fmt.Sprintf("catalog:v%d:ts", domain.SnapshotSchemaVersion) }

// Get retrieves the cached snapshot. It returns domain.ErrNotFound when
// either the data or the timestamp entry is missing.
func (sc *SnapshotCache) Get(ctx context.Context) (*domain.Snapshot, error) {
	pipe := sc.rdb.Pipeline()
	dataCmd := pipe.Get(ctx, snapshotKey())
	tsCmd := pipe.Get(ctx, timestampKey())
	if _, err := pipe.Exec(ctx); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get snapshot: %w", err)
	}

	var events []domain.Event
	if err := json.Unmarshal([]byte(dataCmd.Val()), &events); err != nil {
		return nil, fmt.Errorf("redis: unmarshal snapshot: %w", err)
	}

	ms, err := strconv.ParseInt(tsCmd.Val(), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("redis: parse snapshot timestamp: %w", err)
	}

	return &domain.Snapshot{
		Events:     events,
		CapturedAt: time.UnixMilli(ms),
	}, nil
}

// Set stores the snapshot and its capture time. When the write is rejected
// for memory pressure, every catalog key is cleared and the write retried
// exactly once; a second rejection surfaces as an error.
func (sc *SnapshotCache) Set(ctx context.Context, snap *domain.Snapshot) error {
	data, err := json.Marshal(snap.Events)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot: %w", err)
	}

	if err := sc.write(ctx, data, snap.CapturedAt); err != nil {
		if !isQuotaError(err) {
			return fmt.Errorf("redis: set snapshot: %w", err)
		}
		if err := sc.Clear(ctx); err != nil {
			return fmt.Errorf("redis: clear after quota rejection: %w", err)
		}
		if err := sc.write(ctx, data, snap.CapturedAt); err != nil {
			return fmt.Errorf("redis: set snapshot after clear: %w", err)
		}
	}
	return nil
}

func (sc *SnapshotCache) write(ctx context.Context, data []byte, capturedAt time.Time) error {
	pipe := sc.rdb.TxPipeline()
	pipe.Set(ctx, snapshotKey(), data, sc.ttl)
	pipe.Set(ctx, timestampKey(), strconv.FormatInt(capturedAt.UnixMilli(), 10), sc.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Clear removes every catalog key across all schema versions.
func (sc *SnapshotCache) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := sc.rdb.Scan(ctx, cursor, "catalog:*", 100).Result()
		if err != nil {
			return fmt.Errorf("redis: scan catalog keys: %w", err)
		}
		if len(keys) > 0 {
			if err := sc.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis: delete catalog keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// isQuotaError reports whether err is Redis refusing a write for memory
// pressure (maxmemory with a noeviction policy).
func isQuotaError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "OOM")
}
