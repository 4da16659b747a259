// Package redis backs the domain cache interfaces with go-redis/v9: the
// versioned catalog snapshot, the per-token book and history entries, the
// holder leaderboards, the request rate limiter, and the pub/sub signal bus
// all share one connection pool.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Pool defaults applied when the config leaves them zero. The dashboard's
// read path fans many small GETs through the pool, so it defaults wider
// than the driver's own.
const (
	defaultPoolSize   = 20
	defaultMaxRetries = 3
)

// ClientConfig holds connection parameters for the shared Redis client.
type ClientConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
}

func (cfg ClientConfig) withDefaults() ClientConfig {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = defaultPoolSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	return cfg
}

// Client owns the shared connection pool the cache and bus types are built
// over.
type Client struct {
	rdb *redis.Client
}

// New connects to Redis and verifies connectivity with a ping before
// handing the pool out. Every cache in the process shares the returned
// client.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	cfg = cfg.withDefaults()

	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Ping reports whether the connection is still healthy. The health endpoint
// degrades rather than fails when it is not.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Underlying exposes the raw driver client to the cache and bus
// constructors in this package.
func (c *Client) Underlying() *redis.Client {
	return c.rdb
}
