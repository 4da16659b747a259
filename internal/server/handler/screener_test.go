package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/marketlens/internal/domain"
)

func screenerMarkets() []domain.Market {
	return []domain.Market{
		{ID: "a", Question: "Will Bitcoin hit 100k?", Active: true, VolumeNum: 50, TokenIDs: []string{"tok-a"}},
		{ID: "b", Question: "Rate cut by September?", Active: true, VolumeNum: 150},
		{ID: "c", Question: "Champions League winner", Active: true, VolumeNum: 300},
	}
}

func TestScreenFiltersAndSorts(t *testing.T) {
	svc := &stubCatalog{markets: screenerMarkets(), freshness: domain.FreshnessFresh}
	h := NewScreenerHandler(svc, nil, testLogger())

	req := httptest.NewRequest(http.MethodGet,
		"/api/screener?minVolume=100&sort=volume&desc=true", nil)
	rec := httptest.NewRecorder()
	h.Screen(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got screenerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, 3, got.Total)
	require.Equal(t, 2, got.Visible)
	assert.Equal(t, "c", got.Markets[0].ID)
	assert.Equal(t, "b", got.Markets[1].ID)
	assert.Equal(t, 450.0, got.Stats.TotalVolume)
	assert.Equal(t, 2, got.Stats.ActiveMarkets)
	assert.Equal(t, "fresh", got.Freshness)
}

func TestScreenRejectsUnknownSortField(t *testing.T) {
	h := NewScreenerHandler(&stubCatalog{}, nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/screener?sort=bogus", nil)
	rec := httptest.NewRecorder()
	h.Screen(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScreenBookFilterUsesCachedSummaries(t *testing.T) {
	svc := &stubCatalog{markets: screenerMarkets(), freshness: domain.FreshnessFresh}

	spread := 4.0
	cache := newMemBookCache()
	require.NoError(t, cache.SetBook(t.Context(), &domain.BookSummary{
		TokenID:       "tok-a",
		HasBook:       true,
		SpreadPercent: &spread,
	}, 0))

	h := NewScreenerHandler(svc, cache, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/screener?maxSpreadPercent=10", nil)
	rec := httptest.NewRecorder()
	h.Screen(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got screenerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	// Only the market with a cached summary under the spread ceiling passes.
	require.Equal(t, 1, got.Visible)
	assert.Equal(t, "a", got.Markets[0].ID)
}

func TestScreenPriceRangeParams(t *testing.T) {
	markets := []domain.Market{
		{ID: "hi", Question: "q1", Active: true, OutcomePrices: []float64{0.95, 0.05}},
		{ID: "mid", Question: "q2", Active: true, OutcomePrices: []float64{0.5, 0.5}},
	}
	svc := &stubCatalog{markets: markets, freshness: domain.FreshnessFresh}
	h := NewScreenerHandler(svc, nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/screener?yesPriceMin=90", nil)
	rec := httptest.NewRecorder()
	h.Screen(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got screenerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, 1, got.Visible)
	assert.Equal(t, "hi", got.Markets[0].ID)
}
