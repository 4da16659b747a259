package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/marketlens/internal/domain"
	"github.com/alanyoungcy/marketlens/internal/platform/polymarket"
)

type stubCatalog struct {
	events     []domain.Event
	markets    []domain.Market
	categories []string
	freshness  domain.Freshness
	err        error
	refreshErr error
	triggered  int
}

func (s *stubCatalog) Events(context.Context, int) ([]domain.Event, domain.Freshness, error) {
	return s.events, s.freshness, s.err
}

func (s *stubCatalog) Markets(context.Context, int) ([]domain.Market, domain.Freshness, error) {
	return s.markets, s.freshness, s.err
}

func (s *stubCatalog) Categories(context.Context) ([]string, error) {
	return s.categories, s.err
}

func (s *stubCatalog) TriggerRefresh(int) error {
	s.triggered++
	return s.refreshErr
}

func (s *stubCatalog) Invalidate(context.Context) error { return s.err }

func (s *stubCatalog) RecentRuns(context.Context, int) ([]domain.FetchRun, error) {
	return nil, s.err
}

func TestListEventsIncludesFreshness(t *testing.T) {
	svc := &stubCatalog{
		events:    []domain.Event{{ID: "1", Title: "Election winner"}},
		freshness: domain.FreshnessStale,
	}
	h := NewCatalogHandler(svc, 2*time.Minute, testLogger())

	rec := httptest.NewRecorder()
	h.ListEvents(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got listEventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Events, 1)
	assert.Equal(t, "stale", got.Freshness)
	assert.Equal(t, "public, s-maxage=120, stale-while-revalidate=240", rec.Header().Get("Cache-Control"))
}

func TestListEventsRelaysUpstreamStatus(t *testing.T) {
	svc := &stubCatalog{err: &polymarket.StatusError{Code: http.StatusServiceUnavailable}}
	h := NewCatalogHandler(svc, 2*time.Minute, testLogger())

	rec := httptest.NewRecorder()
	h.ListEvents(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListEventsBadGatewayOnOtherErrors(t *testing.T) {
	svc := &stubCatalog{err: context.DeadlineExceeded}
	h := NewCatalogHandler(svc, 2*time.Minute, testLogger())

	rec := httptest.NewRecorder()
	h.ListEvents(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestTriggerRefreshAccepted(t *testing.T) {
	svc := &stubCatalog{}
	h := NewCatalogHandler(svc, 2*time.Minute, testLogger())

	rec := httptest.NewRecorder()
	h.TriggerRefresh(rec, httptest.NewRequest(http.MethodPost, "/api/catalog/refresh", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, svc.triggered)
}

func TestTriggerRefreshConflictWhenInFlight(t *testing.T) {
	svc := &stubCatalog{refreshErr: domain.ErrRefreshInFlight}
	h := NewCatalogHandler(svc, 2*time.Minute, testLogger())

	rec := httptest.NewRecorder()
	h.TriggerRefresh(rec, httptest.NewRequest(http.MethodPost, "/api/catalog/refresh", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListRunsEmptyIsArray(t *testing.T) {
	h := NewCatalogHandler(&stubCatalog{}, 2*time.Minute, testLogger())

	rec := httptest.NewRecorder()
	h.ListRuns(rec, httptest.NewRequest(http.MethodGet, "/api/catalog/runs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"runs":[]}`, rec.Body.String())
}
