package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/marketlens/internal/domain"
)

// HistoryService fetches price history series from the upstream CLOB.
type HistoryService interface {
	GetPriceHistory(ctx context.Context, tokenID, interval string, fidelity int) (domain.PriceHistory, error)
}

// HistoryHandler serves per-token price history with a read-through cache.
type HistoryHandler struct {
	history HistoryService
	cache   domain.HistoryCache
	ttl     time.Duration
	logger  *slog.Logger
}

// NewHistoryHandler creates a HistoryHandler. cache may be nil to disable caching.
func NewHistoryHandler(history HistoryService, cache domain.HistoryCache, ttl time.Duration, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{
		history: history,
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
	}
}

type historyResponse struct {
	TokenID   string              `json:"tokenId"`
	Points    []domain.PricePoint `json:"history"`
	Sparkline []float64           `json:"sparkline,omitempty"`
}

// GetHistory returns the price series for one CLOB token. sparkline=1 adds
// a normalized series suitable for inline charts.
// GET /api/price-history?tokenId=123&interval=1d&fidelity=30&sparkline=1
func (h *HistoryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	tokenID := r.URL.Query().Get("tokenId")
	if tokenID == "" {
		writeError(w, http.StatusBadRequest, "missing tokenId")
		return
	}

	interval := r.URL.Query().Get("interval")
	if interval == "" {
		interval = "1d"
	}
	fidelity := queryInt(r, "fidelity", 30)

	withSparkline := queryBool(r, "sparkline")

	cacheKey := fmt.Sprintf("%s:%s:%d", tokenID, interval, fidelity)
	if h.cache != nil {
		if hist, err := h.cache.GetHistory(r.Context(), cacheKey); err == nil {
			setCacheHeader(w, h.ttl)
			writeHistory(w, hist, withSparkline)
			return
		}
	}

	hist, err := h.history.GetPriceHistory(r.Context(), tokenID, interval, fidelity)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: get price history failed",
			slog.String("token_id", tokenID),
			slog.String("error", err.Error()),
		)
		writeUpstreamError(w, err, "failed to load price history")
		return
	}

	if h.cache != nil {
		if err := h.cache.SetHistory(r.Context(), cacheKey, &hist, h.ttl); err != nil {
			h.logger.WarnContext(r.Context(), "handler: cache history failed",
				slog.String("token_id", tokenID),
				slog.String("error", err.Error()),
			)
		}
	}

	setCacheHeader(w, h.ttl)
	writeHistory(w, &hist, withSparkline)
}

func writeHistory(w http.ResponseWriter, hist *domain.PriceHistory, withSparkline bool) {
	points := hist.Points
	if points == nil {
		points = []domain.PricePoint{}
	}
	resp := historyResponse{
		TokenID: hist.TokenID,
		Points:  points,
	}
	if withSparkline {
		resp.Sparkline = hist.Sparkline()
	}
	writeJSON(w, http.StatusOK, resp)
}
