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

// BookCache implements domain.BookCache using short-TTL JSON values.
//
// Key schema:
//
//	book:v{N}:{tokenID} - JSON of the book summary
type BookCache struct {
	rdb *redis.Client
}

// NewBookCache creates a BookCache backed by the given Client.
func NewBookCache(c *Client) *BookCache {
	return &BookCache{rdb: c.Underlying()}
}

var _ domain.BookCache = (*BookCache)(nil)

func bookKey(tokenID string) string {
	return fmt.Sprintf("book:v%d:%s", domain.SnapshotSchemaVersion, tokenID)
}

// GetBook retrieves a cached book summary by token ID.
// It returns domain.ErrNotFound when the key does not exist.
func (bc *BookCache) GetBook(ctx context.Context, tokenID string) (*domain.BookSummary, error) {
	data, err := bc.rdb.Get(ctx, bookKey(tokenID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get book %s: %w", tokenID, err)
	}

	var sum domain.BookSummary
	if err := json.Unmarshal(data, &sum); err != nil {
		return nil, fmt.Errorf("redis: unmarshal book %s: %w", tokenID, err)
	}
	sum.HasBook = sum.BestBid != nil || sum.BestAsk != nil
	return &sum, nil
}

// SetBook stores a book summary with the given TTL.
func (bc *BookCache) SetBook(ctx context.Context, sum *domain.BookSummary, ttl time.Duration) error {
	data, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("redis: marshal book %s: %w", sum.TokenID, err)
	}
	if err := bc.rdb.Set(ctx, bookKey(sum.TokenID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set book %s: %w", sum.TokenID, err)
	}
	return nil
}
