package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/marketlens/internal/domain"
)

// BookService fetches a live order book summary from the upstream CLOB.
type BookService interface {
	GetBook(ctx context.Context, tokenID string) (domain.BookSummary, error)
}

// BookHandler serves per-token order book summaries with a short-TTL
// read-through cache in front of the upstream.
type BookHandler struct {
	books  BookService
	cache  domain.BookCache
	ttl    time.Duration
	logger *slog.Logger
}

// NewBookHandler creates a BookHandler. cache may be nil to disable caching.
func NewBookHandler(books BookService, cache domain.BookCache, ttl time.Duration, logger *slog.Logger) *BookHandler {
	return &BookHandler{
		books:  books,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// GetBook returns the order book summary for one CLOB token. A token with no
// book upstream yields an empty summary rather than an error: the dashboard
// renders dashes for it, same as any other thin market.
// GET /api/orderbook?tokenId=123
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	tokenID := r.URL.Query().Get("tokenId")
	if tokenID == "" {
		writeError(w, http.StatusBadRequest, "missing tokenId")
		return
	}

	setCacheHeader(w, h.ttl)

	if h.cache != nil {
		if sum, err := h.cache.GetBook(r.Context(), tokenID); err == nil {
			writeJSON(w, http.StatusOK, sum)
			return
		}
	}

	sum, err := h.books.GetBook(r.Context(), tokenID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusOK, domain.BookSummary{TokenID: tokenID})
			return
		}
		h.logger.WarnContext(r.Context(), "handler: get book failed",
			slog.String("token_id", tokenID),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusOK, domain.BookSummary{TokenID: tokenID})
		return
	}

	if h.cache != nil {
		if err := h.cache.SetBook(r.Context(), &sum, h.ttl); err != nil {
			h.logger.WarnContext(r.Context(), "handler: cache book failed",
				slog.String("token_id", tokenID),
				slog.String("error", err.Error()),
			)
		}
	}

	writeJSON(w, http.StatusOK, sum)
}
