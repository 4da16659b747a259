package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/marketlens/internal/domain"
	"github.com/alanyoungcy/marketlens/internal/screener"
)

// ScreenerHandler runs the filter-and-sort pipeline over the cached catalog.
type ScreenerHandler struct {
	catalog CatalogService
	books   domain.BookCache
	logger  *slog.Logger
}

// NewScreenerHandler creates a ScreenerHandler. books may be nil; book
// filters then exclude every market, same as an empty cache.
func NewScreenerHandler(catalog CatalogService, books domain.BookCache, logger *slog.Logger) *ScreenerHandler {
	return &ScreenerHandler{
		catalog: catalog,
		books:   books,
		logger:  logger,
	}
}

// screenerStats aggregates the filtered result set for the dashboard's
// header bar.
type screenerStats struct {
	TotalVolume    float64 `json:"totalVolume"`
	TotalLiquidity float64 `json:"totalLiquidity"`
	ActiveMarkets  int     `json:"activeMarkets"`
}

type screenerResponse struct {
	Markets   []domain.Market `json:"markets"`
	Total     int             `json:"total"`
	Visible   int             `json:"visible"`
	Stats     screenerStats   `json:"stats"`
	Freshness string          `json:"freshness"`
}

func aggregateStats(markets []domain.Market) screenerStats {
	var stats screenerStats
	for i := range markets {
		stats.TotalVolume += markets[i].VolumeNum
		stats.TotalLiquidity += markets[i].LiquidityNum
		if markets[i].Active && !markets[i].Closed {
			stats.ActiveMarkets++
		}
	}
	return stats
}

// Screen filters and sorts the cached market list.
// GET /api/screener?search=...&category=...&minVolume=...&sort=volume&desc=true
func (h *ScreenerHandler) Screen(w http.ResponseWriter, r *http.Request) {
	state, ok := parseFilterState(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid sort field")
		return
	}

	target := queryInt(r, "target", defaultTarget)
	markets, freshness, err := h.catalog.Markets(r.Context(), target)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: screener load markets failed",
			slog.String("error", err.Error()),
		)
		writeUpstreamError(w, err, "failed to load markets")
		return
	}

	var books map[string]*domain.BookSummary
	if state.NeedsBook() {
		books = h.gatherBooks(r.Context(), markets)
	}

	filtered, err := screener.Apply(r.Context(), markets, state, books)
	if err != nil {
		// The client went away mid-recompute.
		return
	}

	writeJSON(w, http.StatusOK, screenerResponse{
		Markets:   filtered,
		Total:     len(markets),
		Visible:   len(filtered),
		Stats:     aggregateStats(filtered),
		Freshness: freshness.String(),
	})
}

// gatherBooks loads cached book summaries for every market's primary token.
// Tokens with no cached summary are simply absent from the map; the filter
// excludes those markets.
func (h *ScreenerHandler) gatherBooks(ctx context.Context, markets []domain.Market) map[string]*domain.BookSummary {
	if h.books == nil {
		return nil
	}

	books := make(map[string]*domain.BookSummary)
	for i := range markets {
		tokenID := markets[i].PrimaryTokenID()
		if tokenID == "" {
			continue
		}
		if _, seen := books[tokenID]; seen {
			continue
		}
		sum, err := h.books.GetBook(ctx, tokenID)
		if err != nil {
			continue
		}
		books[tokenID] = sum
	}
	return books
}

func parseFilterState(r *http.Request) (screener.FilterState, bool) {
	q := r.URL.Query()

	state := screener.FilterState{
		Search:              q.Get("search"),
		Category:            q.Get("category"),
		ShowClosed:          queryBool(r, "showClosed"),
		MinVolume:           queryFloat(r, "minVolume"),
		MaxVolume:           queryFloat(r, "maxVolume"),
		MinLiquidity:        queryFloat(r, "minLiquidity"),
		MaxLiquidity:        queryFloat(r, "maxLiquidity"),
		MaxDaysToResolution: queryInt(r, "maxDays", 0),
		MaxSpreadPercent:    queryFloat(r, "maxSpreadPercent"),
		MinBidNotional:      queryFloat(r, "minBidNotional"),
		MinAskNotional:      queryFloat(r, "minAskNotional"),
		SortField:           screener.SortField(q.Get("sort")),
		SortDesc:            queryBool(r, "desc"),
	}

	if !screener.ValidSortField(state.SortField) {
		return state, false
	}

	state.YesPrice = parsePriceRange(r, "yesPriceMin", "yesPriceMax")
	state.NoPrice = parsePriceRange(r, "noPriceMin", "noPriceMax")
	state.EndDateFrom = parseDate(q.Get("endDateFrom"))
	state.EndDateTo = parseDate(q.Get("endDateTo"))

	return state, true
}

// parsePriceRange builds a percent range from min/max query parameters. An
// absent pair leaves the range nil, which disables the predicate.
func parsePriceRange(r *http.Request, minName, maxName string) *screener.PriceRange {
	if r.URL.Query().Get(minName) == "" && r.URL.Query().Get(maxName) == "" {
		return nil
	}
	pr := &screener.PriceRange{
		Min: queryFloat(r, minName),
		Max: queryFloat(r, maxName),
	}
	if pr.Max == 0 {
		pr.Max = 100
	}
	return pr
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	return time.Time{}
}
