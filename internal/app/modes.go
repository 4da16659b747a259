package app

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/marketlens/internal/server"
	"github.com/alanyoungcy/marketlens/internal/server/handler"
	"github.com/alanyoungcy/marketlens/internal/server/ws"
)

// shutdownGrace bounds how long a stopping server waits for in-flight
// requests.
const shutdownGrace = 10 * time.Second

// ServerMode runs the HTTP and WebSocket API without the periodic refresh
// loop. The catalog still refreshes on demand when reads find the snapshot
// stale or missing.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	return a.runServer(ctx, deps, false)
}

// FetchMode runs only the periodic catalog refresh loop. Useful for a
// dedicated fetcher next to one or more server instances sharing the cache.
func (a *App) FetchMode(ctx context.Context, deps *Dependencies) error {
	err := deps.Catalog.RunLoop(ctx, a.cfg.Fetch.Interval.Duration)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// FullMode runs the API server and the periodic refresh loop together.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	return a.runServer(ctx, deps, true)
}

func (a *App) runServer(ctx context.Context, deps *Dependencies, withLoop bool) error {
	hub := ws.NewHub(deps.SignalBus, a.logger).WithScreener(deps.Catalog, deps.Books)

	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(deps.Redis, a.logger),
		Catalog:  handler.NewCatalogHandler(deps.Catalog, a.cfg.Cache.FreshTTL.Duration, a.logger),
		Screener: handler.NewScreenerHandler(deps.Catalog, deps.Books, a.logger),
		Books:    handler.NewBookHandler(deps.Clob, deps.Books, a.cfg.Cache.BookTTL.Duration, a.logger),
		Holders:  handler.NewHolderHandler(deps.Data, deps.Holders, a.cfg.Cache.HoldersTTL.Duration, a.logger),
		History:  handler.NewHistoryHandler(deps.Clob, deps.History, a.cfg.Cache.HistoryTTL.Duration, a.logger),
		Wallets:  handler.NewWalletHandler(deps.Data, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		AdminKey:    a.cfg.Server.AdminKey,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := hub.Run(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if withLoop {
		g.Go(func() error {
			err := deps.Catalog.RunLoop(ctx, a.cfg.Fetch.Interval.Duration)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
