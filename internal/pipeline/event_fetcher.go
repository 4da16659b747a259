// Package pipeline implements the paginated event sweep against the
// upstream API: bounded-concurrency page rounds, normalization, and
// accumulation into a single snapshot.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/alanyoungcy/marketlens/internal/domain"
)

// EventPageFetcher retrieves one normalized page of events from an
// external API.
type EventPageFetcher interface {
	FetchEventsPage(ctx context.Context, limit, offset int) ([]domain.Event, error)
}

// Options holds pagination parameters for one full sweep.
type Options struct {
	// PageSize is the number of events requested per page.
	PageSize int
	// Concurrency is the number of pages fetched in parallel per round.
	Concurrency int
	// MaxPages caps the sweep as a safety valve against a runaway loop.
	MaxPages int
	// PageTimeout bounds each individual page request. A page that times
	// out is treated as "no more data" rather than a failure.
	PageTimeout time.Duration
}

// EventFetcher sweeps the upstream events listing page by page until
// exhaustion or a target count is reached. Concurrent sweeps for the same
// target coalesce into one upstream pass.
type EventFetcher struct {
	fetcher EventPageFetcher
	opts    Options
	logger  *slog.Logger

	group singleflight.Group
}

// NewEventFetcher creates a new EventFetcher.
func NewEventFetcher(fetcher EventPageFetcher, opts Options, logger *slog.Logger) *EventFetcher {
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 10
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 10000
	}
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = 30 * time.Second
	}
	return &EventFetcher{
		fetcher: fetcher,
		opts:    opts,
		logger:  logger,
	}
}

// fetchResult pairs a completed sweep with its stats for singleflight.
type fetchResult struct {
	snap  *domain.Snapshot
	stats domain.FetchStats
}

// FetchAll sweeps events until the listing is exhausted or target events
// have accumulated. target <= 0 means fetch everything. Concurrent callers
// with the same target share a single sweep.
func (f *EventFetcher) FetchAll(ctx context.Context, target int) (*domain.Snapshot, domain.FetchStats, error) {
	key := fmt.Sprintf("events:%d", target)
	v, err, shared := f.group.Do(key, func() (any, error) {
		snap, stats, err := f.sweep(ctx, target)
		if err != nil {
			return nil, err
		}
		return fetchResult{snap: snap, stats: stats}, nil
	})
	if err != nil {
		return nil, domain.FetchStats{}, err
	}
	if shared {
		f.logger.Debug("event sweep coalesced", slog.Int("target", target))
	}
	res := v.(fetchResult)
	return res.snap, res.stats, nil
}

// sweep runs the actual pagination. Pages are issued in rounds of
// Concurrency requests; each round completes fully before the next starts
// so results accumulate in page order.
func (f *EventFetcher) sweep(ctx context.Context, target int) (*domain.Snapshot, domain.FetchStats, error) {
	start := time.Now()

	var (
		all     []domain.Event
		page    int
		hasMore = true
		stats   domain.FetchStats
	)

	for hasMore && page < f.opts.MaxPages && (target <= 0 || len(all) < target) {
		if err := ctx.Err(); err != nil {
			return nil, stats, fmt.Errorf("event sweep cancelled: %w", err)
		}

		batch := f.opts.Concurrency
		if remaining := f.opts.MaxPages - page; batch > remaining {
			batch = remaining
		}

		pages := make([][]domain.Event, batch)
		var (
			mu        sync.Mutex
			exhausted bool
			timedOut  bool
		)

		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < batch; i++ {
			i, offset := i, (page+i)*f.opts.PageSize
			g.Go(func() error {
				pctx, cancel := context.WithTimeout(gctx, f.opts.PageTimeout)
				defer cancel()

				events, err := f.fetcher.FetchEventsPage(pctx, f.opts.PageSize, offset)
				if err != nil {
					// A page timeout means the upstream is struggling at
					// this depth; stop paginating instead of failing the
					// sweep. Any other error leaves hasMore alone so the
					// next round retries deeper offsets.
					if errors.Is(err, context.DeadlineExceeded) {
						mu.Lock()
						exhausted = true
						timedOut = true
						mu.Unlock()
						f.logger.Warn("events page timed out",
							slog.Int("offset", offset),
							slog.Duration("timeout", f.opts.PageTimeout),
						)
						return nil
					}
					f.logger.Warn("events page failed",
						slog.Int("offset", offset),
						slog.String("error", err.Error()),
					)
					return nil
				}

				pages[i] = events
				if len(events) < f.opts.PageSize {
					mu.Lock()
					exhausted = true
					mu.Unlock()
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, stats, fmt.Errorf("event sweep round at page %d: %w", page, err)
		}

		for _, events := range pages {
			all = append(all, events...)
		}
		page += batch
		stats.Pages = page
		if timedOut {
			stats.TimedOut = true
		}
		if exhausted {
			hasMore = false
		}

		f.logger.Debug("event sweep round complete",
			slog.Int("pages", page),
			slog.Int("events", len(all)),
			slog.Bool("has_more", hasMore),
		)
	}

	stats.HitPageCap = page >= f.opts.MaxPages
	stats.Events = len(all)
	for i := range all {
		stats.Markets += len(all[i].Markets)
	}
	stats.Duration = time.Since(start)

	if len(all) == 0 {
		return nil, stats, &domain.NoDataError{
			PagesFetched: stats.Pages,
			Target:       target,
			HitPageCap:   stats.HitPageCap,
			TimedOut:     stats.TimedOut,
		}
	}

	if target > 0 && len(all) > target {
		all = all[:target]
	}

	f.logger.Info("event sweep complete",
		slog.Int("pages", stats.Pages),
		slog.Int("events", len(all)),
		slog.Int("markets", stats.Markets),
		slog.Duration("duration", stats.Duration),
	)

	return &domain.Snapshot{Events: all, CapturedAt: time.Now()}, stats, nil
}
