package domain

import (
	"context"
	"time"
)

// SnapshotCache stores the full event catalog. Implementations return
// ErrNotFound on a miss and must tolerate oversized payloads by clearing
// their keyspace and retrying the write once.
type SnapshotCache interface {
	Get(ctx context.Context) (*Snapshot, error)
	Set(ctx context.Context, snap *Snapshot) error
	Clear(ctx context.Context) error
}

// BookCache stores per-token order book summaries with a short TTL.
type BookCache interface {
	GetBook(ctx context.Context, tokenID string) (*BookSummary, error)
	SetBook(ctx context.Context, sum *BookSummary, ttl time.Duration) error
}

// HolderCache stores per-market holder leaderboards.
type HolderCache interface {
	GetHolders(ctx context.Context, key string) (*HolderBuckets, error)
	SetHolders(ctx context.Context, key string, h *HolderBuckets, ttl time.Duration) error
}

// HistoryCache stores per-token price history series.
type HistoryCache interface {
	GetHistory(ctx context.Context, key string) (*PriceHistory, error)
	SetHistory(ctx context.Context, key string, h *PriceHistory, ttl time.Duration) error
}

// RateLimiter gates inbound requests per client key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// SignalBus carries lightweight notifications between components, such as
// "the catalog was refreshed".
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
