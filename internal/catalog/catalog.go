// Package catalog owns the cached event snapshot: stale-while-revalidate
// reads, coalesced refreshes, and the audit/archive hooks that run after a
// successful sweep.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/marketlens/internal/domain"
)

// RefreshedChannel is the signal bus channel announcing completed
// refreshes.
const RefreshedChannel = "catalog.refreshed"

// refreshTimeout bounds a background refresh that outlives its triggering
// request.
const refreshTimeout = 5 * time.Minute

// Fetcher runs one full event sweep.
type Fetcher interface {
	FetchAll(ctx context.Context, target int) (*domain.Snapshot, domain.FetchStats, error)
}

// Archiver persists a snapshot to durable storage after a refresh.
type Archiver interface {
	ArchiveSnapshot(ctx context.Context, snap *domain.Snapshot) error
}

// Config holds the freshness windows for snapshot classification.
type Config struct {
	FreshTTL time.Duration
	StaleTTL time.Duration
}

// Service serves the event catalog out of the snapshot cache, refreshing
// from upstream when the cached copy has aged out of its fresh window.
type Service struct {
	fetcher Fetcher
	cache   domain.SnapshotCache
	cfg     Config
	logger  *slog.Logger

	// Optional collaborators; each may be nil.
	runs     domain.FetchRunStore
	archiver Archiver
	bus      domain.SignalBus

	now func() time.Time

	mu         sync.Mutex
	refreshing bool
}

// New creates a catalog Service.
func New(fetcher Fetcher, cache domain.SnapshotCache, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		fetcher: fetcher,
		cache:   cache,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// WithRunStore records every refresh in the given store.
func (s *Service) WithRunStore(store domain.FetchRunStore) *Service {
	s.runs = store
	return s
}

// WithArchiver archives every refreshed snapshot.
func (s *Service) WithArchiver(a Archiver) *Service {
	s.archiver = a
	return s
}

// WithSignalBus announces every refresh on the bus.
func (s *Service) WithSignalBus(bus domain.SignalBus) *Service {
	s.bus = bus
	return s
}

// Events returns the cached event snapshot, refreshing as its age demands:
// a fresh snapshot is served as-is, a stale one is served while a refresh
// runs in the background, and a missing or expired one forces a
// synchronous refresh. target limits the event count on a forced refresh;
// zero means everything.
func (s *Service) Events(ctx context.Context, target int) ([]domain.Event, domain.Freshness, error) {
	snap, err := s.cache.Get(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("snapshot cache read failed", slog.String("error", err.Error()))
	}

	switch tier := snap.Classify(s.now(), s.cfg.FreshTTL, s.cfg.StaleTTL); tier {
	case domain.FreshnessFresh:
		return snap.Events, tier, nil
	case domain.FreshnessStale:
		s.refreshInBackground(target)
		return snap.Events, tier, nil
	default:
		fresh, _, err := s.Refresh(ctx, target)
		if err != nil {
			// A dead upstream with an expired-but-present snapshot still
			// beats an error page.
			if snap != nil && len(snap.Events) > 0 {
				s.logger.Warn("refresh failed, serving expired snapshot",
					slog.String("error", err.Error()),
				)
				return snap.Events, domain.FreshnessExpired, nil
			}
			return nil, domain.FreshnessMiss, err
		}
		return fresh.Events, domain.FreshnessFresh, nil
	}
}

// Markets returns the flattened market list of the current snapshot.
func (s *Service) Markets(ctx context.Context, target int) ([]domain.Market, domain.Freshness, error) {
	events, tier, err := s.Events(ctx, target)
	if err != nil {
		return nil, tier, err
	}
	return domain.FlattenMarkets(events), tier, nil
}

// Categories returns the distinct category and tag labels present in the
// current snapshot, sorted case-insensitively.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	events, _, err := s.Events(ctx, 0)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []string
	add := func(label string) {
		if label == "" || seen[label] {
			return
		}
		seen[label] = true
		out = append(out, label)
	}
	for i := range events {
		add(events[i].Category)
		for _, t := range events[i].Tags {
			add(t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i]), strings.ToLower(out[j])
		if a != b {
			return a < b
		}
		return out[i] < out[j]
	})
	return out, nil
}

// Refresh runs a full sweep, stores the result, and runs the audit,
// archive, and announce hooks. The returned snapshot is the one written to
// the cache.
func (s *Service) Refresh(ctx context.Context, target int) (*domain.Snapshot, domain.FetchStats, error) {
	run := domain.FetchRun{
		ID:        uuid.NewString(),
		StartedAt: s.now(),
	}

	snap, stats, err := s.fetcher.FetchAll(ctx, target)
	run.FinishedAt = s.now()
	run.Stats = stats
	if err != nil {
		run.Err = err.Error()
		s.recordRun(ctx, &run)
		return nil, stats, fmt.Errorf("catalog: refresh: %w", err)
	}

	if err := s.cache.Set(ctx, snap); err != nil {
		s.logger.Error("snapshot cache write failed", slog.String("error", err.Error()))
	}

	s.recordRun(ctx, &run)

	if s.archiver != nil {
		if err := s.archiver.ArchiveSnapshot(ctx, snap); err != nil {
			s.logger.Error("snapshot archive failed", slog.String("error", err.Error()))
		}
	}

	if s.bus != nil {
		payload, _ := json.Marshal(map[string]any{
			"runId":      run.ID,
			"events":     stats.Events,
			"markets":    stats.Markets,
			"capturedAt": snap.CapturedAt,
		})
		if err := s.bus.Publish(ctx, RefreshedChannel, payload); err != nil {
			s.logger.Warn("refresh announce failed", slog.String("error", err.Error()))
		}
	}

	return snap, stats, nil
}

// TriggerRefresh starts a background refresh unless one is already
// running, in which case it returns domain.ErrRefreshInFlight.
func (s *Service) TriggerRefresh(target int) error {
	s.mu.Lock()
	if s.refreshing {
		s.mu.Unlock()
		return domain.ErrRefreshInFlight
	}
	s.refreshing = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.refreshing = false
			s.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		if _, _, err := s.Refresh(ctx, target); err != nil {
			s.logger.Error("background refresh failed", slog.String("error", err.Error()))
		}
	}()
	return nil
}

// refreshInBackground is TriggerRefresh with the in-flight case demoted to
// a debug log, for the stale-serve path.
func (s *Service) refreshInBackground(target int) {
	if err := s.TriggerRefresh(target); err != nil {
		s.logger.Debug("background refresh skipped", slog.String("reason", err.Error()))
	}
}

// Invalidate drops the cached snapshot. The next read forces a refresh.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Clear(ctx)
}

// RecentRuns returns the latest refresh audit records, newest first. It
// returns nil when no run store is configured.
func (s *Service) RecentRuns(ctx context.Context, limit int) ([]domain.FetchRun, error) {
	if s.runs == nil {
		return nil, nil
	}
	return s.runs.RecentRuns(ctx, limit)
}

// RunLoop refreshes on a repeating interval until the context is cancelled.
func (s *Service) RunLoop(ctx context.Context, interval time.Duration) error {
	if _, _, err := s.Refresh(ctx, 0); err != nil {
		s.logger.Error("catalog refresh failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("catalog refresh loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, _, err := s.Refresh(ctx, 0); err != nil {
				s.logger.Error("catalog refresh failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (s *Service) recordRun(ctx context.Context, run *domain.FetchRun) {
	if s.runs == nil {
		return
	}
	if err := s.runs.RecordRun(ctx, run); err != nil {
		s.logger.Warn("fetch run record failed", slog.String("error", err.Error()))
	}
}
