package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/alanyoungcy/marketlens/internal/blob/s3"
	"github.com/alanyoungcy/marketlens/internal/cache/redis"
	"github.com/alanyoungcy/marketlens/internal/catalog"
	"github.com/alanyoungcy/marketlens/internal/config"
	"github.com/alanyoungcy/marketlens/internal/domain"
	"github.com/alanyoungcy/marketlens/internal/pipeline"
	"github.com/alanyoungcy/marketlens/internal/platform/polymarket"
	"github.com/alanyoungcy/marketlens/internal/store/postgres"
)

// rateLimitWindow is the fixed window applied to the per-client request
// limit from the server config.
const rateLimitWindow = time.Minute

// Dependencies bundles every dependency that the application modes need to
// operate. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Upstream clients
	Gamma *polymarket.GammaClient
	Clob  *polymarket.ClobClient
	Data  *polymarket.DataClient

	// Caches
	Redis       *redis.Client
	Snapshots   domain.SnapshotCache
	Books       domain.BookCache
	Holders     domain.HolderCache
	History     domain.HistoryCache
	RateLimiter domain.RateLimiter
	SignalBus   domain.SignalBus

	// Stores (nil unless Postgres is enabled)
	FetchRuns domain.FetchRunStore

	// Blob storage (nil unless S3 is enabled)
	BlobWriter domain.BlobWriter
	Archiver   catalog.Archiver

	// Services
	Fetcher *pipeline.EventFetcher
	Catalog *catalog.Service
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Upstream API clients ---
	deps.Gamma = polymarket.NewGammaClient(cfg.Polymarket.GammaHost)
	deps.Clob = polymarket.NewClobClient(cfg.Polymarket.ClobHost)
	deps.Data = polymarket.NewDataClient(cfg.Polymarket.DataHost, cfg.Polymarket.PnlHost)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.Redis = redisClient
	// The snapshot persists without expiry: expired copies are still served
	// when a refresh fails.
	deps.Snapshots = redis.NewSnapshotCache(redisClient, 0)
	deps.Books = redis.NewBookCache(redisClient)
	deps.Holders = redis.NewHolderCache(redisClient)
	deps.History = redis.NewHistoryCache(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)
	if cfg.Server.RateLimit > 0 {
		deps.RateLimiter = redis.NewRateLimiter(redisClient, cfg.Server.RateLimit, rateLimitWindow)
	}

	// --- PostgreSQL fetch-run audit store ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.FetchRuns = postgres.NewFetchRunStore(pgClient.Pool())
	}

	// --- S3 snapshot archive ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.Archiver = s3blob.NewSnapshotArchiver(deps.BlobWriter)
	}

	// --- Catalog service ---
	deps.Fetcher = pipeline.NewEventFetcher(deps.Gamma, pipeline.Options{
		PageSize:    cfg.Fetch.PageSize,
		Concurrency: cfg.Fetch.Concurrency,
		MaxPages:    cfg.Fetch.MaxPages,
		PageTimeout: cfg.Fetch.PageTimeout.Duration,
	}, logger)

	svc := catalog.New(deps.Fetcher, deps.Snapshots, catalog.Config{
		FreshTTL: cfg.Cache.FreshTTL.Duration,
		StaleTTL: cfg.Cache.StaleTTL.Duration,
	}, logger).WithSignalBus(deps.SignalBus)

	if deps.FetchRuns != nil {
		svc = svc.WithRunStore(deps.FetchRuns)
	}
	if deps.Archiver != nil {
		svc = svc.WithArchiver(deps.Archiver)
	}
	deps.Catalog = svc

	return deps, cleanup, nil
}
