package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/marketlens/internal/domain"
)

// defaultTarget caps how many events one request pulls through the catalog
// when the client does not ask for a specific count.
const defaultTarget = 1000

// CatalogService defines the methods that the catalog handlers require from
// the service layer.
type CatalogService interface {
	Events(ctx context.Context, target int) ([]domain.Event, domain.Freshness, error)
	Markets(ctx context.Context, target int) ([]domain.Market, domain.Freshness, error)
	Categories(ctx context.Context) ([]string, error)
	TriggerRefresh(target int) error
	Invalidate(ctx context.Context) error
	RecentRuns(ctx context.Context, limit int) ([]domain.FetchRun, error)
}

// CatalogHandler serves the event catalog endpoints.
type CatalogHandler struct {
	catalog  CatalogService
	freshTTL time.Duration
	logger   *slog.Logger
}

// NewCatalogHandler creates a CatalogHandler. freshTTL drives the
// Cache-Control header on the listing endpoints.
func NewCatalogHandler(catalog CatalogService, freshTTL time.Duration, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog:  catalog,
		freshTTL: freshTTL,
		logger:   logger,
	}
}

type listEventsResponse struct {
	Events    []domain.Event `json:"events"`
	Freshness string         `json:"freshness"`
}

// ListEvents returns the cached event catalog, refreshing it when needed.
// GET /api/events?target=1000
func (h *CatalogHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	target := queryInt(r, "target", defaultTarget)

	events, freshness, err := h.catalog.Events(r.Context(), target)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list events failed",
			slog.String("error", err.Error()),
		)
		writeUpstreamError(w, err, "failed to load events")
		return
	}

	setCacheHeader(w, h.freshTTL)
	writeJSON(w, http.StatusOK, listEventsResponse{
		Events:    events,
		Freshness: freshness.String(),
	})
}

type listCatalogMarketsResponse struct {
	Markets   []domain.Market `json:"markets"`
	Freshness string          `json:"freshness"`
}

// ListMarkets returns the flattened market list of the cached catalog.
// limit and offset slice the flattened list; closed=false drops markets
// that already resolved.
// GET /api/markets?target=1000&limit=100&offset=0&closed=false
func (h *CatalogHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	target := queryInt(r, "target", defaultTarget)

	markets, freshness, err := h.catalog.Markets(r.Context(), target)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list markets failed",
			slog.String("error", err.Error()),
		)
		writeUpstreamError(w, err, "failed to load markets")
		return
	}

	if r.URL.Query().Get("closed") == "false" {
		open := markets[:0:0]
		for _, m := range markets {
			if !m.Closed {
				open = append(open, m)
			}
		}
		markets = open
	}
	markets = sliceWindow(markets, queryInt(r, "offset", 0), queryInt(r, "limit", 0))

	setCacheHeader(w, h.freshTTL)
	writeJSON(w, http.StatusOK, listCatalogMarketsResponse{
		Markets:   markets,
		Freshness: freshness.String(),
	})
}

// sliceWindow applies offset/limit pagination to a market list. A limit of
// zero means no cap.
func sliceWindow(markets []domain.Market, offset, limit int) []domain.Market {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(markets) {
		return []domain.Market{}
	}
	markets = markets[offset:]
	if limit > 0 && limit < len(markets) {
		markets = markets[:limit]
	}
	return markets
}

// ListCategories returns the distinct categories of the cached catalog.
// GET /api/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list categories failed",
			slog.String("error", err.Error()),
		)
		writeUpstreamError(w, err, "failed to load categories")
		return
	}

	setCacheHeader(w, h.freshTTL)
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

// TriggerRefresh starts a background catalog refresh.
// POST /api/catalog/refresh?target=1000
func (h *CatalogHandler) TriggerRefresh(w http.ResponseWriter, r *http.Request) {
	target := queryInt(r, "target", defaultTarget)

	if err := h.catalog.TriggerRefresh(target); err != nil {
		if errors.Is(err, domain.ErrRefreshInFlight) {
			writeError(w, http.StatusConflict, "refresh already in progress")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: trigger refresh failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to trigger refresh")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refreshing"})
}

// Invalidate drops the cached catalog so the next read refetches.
// POST /api/catalog/invalidate
func (h *CatalogHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Invalidate(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: invalidate failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to invalidate cache")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// ListRuns returns the recent refresh audit records.
// GET /api/catalog/runs?limit=20
func (h *CatalogHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)

	runs, err := h.catalog.RecentRuns(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list runs failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list refresh runs")
		return
	}
	if runs == nil {
		runs = []domain.FetchRun{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}
