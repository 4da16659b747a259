package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/marketlens/internal/domain"
)

// HolderService fetches per-market holder leaderboards from the data API.
type HolderService interface {
	GetHolders(ctx context.Context, market string, limit int, minBalance float64) (domain.HolderBuckets, error)
}

// HolderHandler serves the holder leaderboard endpoint.
type HolderHandler struct {
	holders HolderService
	cache   domain.HolderCache
	ttl     time.Duration
	logger  *slog.Logger
}

// NewHolderHandler creates a HolderHandler. cache may be nil to disable caching.
func NewHolderHandler(holders HolderService, cache domain.HolderCache, ttl time.Duration, logger *slog.Logger) *HolderHandler {
	return &HolderHandler{
		holders: holders,
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
	}
}

// GetHolders returns the YES and NO holder leaderboards for one market,
// keyed by its condition ID.
// GET /api/holders?market=0x...&limit=20&minBalance=1
func (h *HolderHandler) GetHolders(w http.ResponseWriter, r *http.Request) {
	market := r.URL.Query().Get("market")
	if market == "" {
		writeError(w, http.StatusBadRequest, "missing market")
		return
	}

	limit := queryInt(r, "limit", 500)
	minBalance := queryFloat(r, "minBalance")

	cacheKey := fmt.Sprintf("%s:%d:%g", market, limit, minBalance)
	if h.cache != nil {
		if buckets, err := h.cache.GetHolders(r.Context(), cacheKey); err == nil {
			setCacheHeader(w, h.ttl)
			writeJSON(w, http.StatusOK, buckets)
			return
		}
	}

	buckets, err := h.holders.GetHolders(r.Context(), market, limit, minBalance)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: get holders failed",
			slog.String("market", market),
			slog.String("error", err.Error()),
		)
		writeUpstreamError(w, err, "failed to load holders")
		return
	}

	if h.cache != nil {
		if err := h.cache.SetHolders(r.Context(), cacheKey, &buckets, h.ttl); err != nil {
			h.logger.WarnContext(r.Context(), "handler: cache holders failed",
				slog.String("market", market),
				slog.String("error", err.Error()),
			)
		}
	}

	setCacheHeader(w, h.ttl)
	writeJSON(w, http.StatusOK, buckets)
}
