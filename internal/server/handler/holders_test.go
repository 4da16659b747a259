package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/marketlens/internal/domain"
	"github.com/alanyoungcy/marketlens/internal/platform/polymarket"
)

type stubHolderService struct {
	buckets    domain.HolderBuckets
	err        error
	limit      int
	minBalance float64
}

func (s *stubHolderService) GetHolders(_ context.Context, _ string, limit int, minBalance float64) (domain.HolderBuckets, error) {
	s.limit = limit
	s.minBalance = minBalance
	return s.buckets, s.err
}

func TestGetHoldersBucketedResponse(t *testing.T) {
	svc := &stubHolderService{
		buckets: domain.BucketHolders([]domain.Holder{
			{Wallet: "0xaaa", Amount: 500, OutcomeIndex: 0},
			{Wallet: "0xbbb", Amount: 300, OutcomeIndex: 1},
		}),
	}
	h := NewHolderHandler(svc, nil, 0, testLogger())

	rec := httptest.NewRecorder()
	h.GetHolders(rec, httptest.NewRequest(http.MethodGet,
		"/api/holders?market=0xcond&limit=20&minBalance=1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, svc.limit)
	assert.Equal(t, 1.0, svc.minBalance)

	var got domain.HolderBuckets
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Yes, 1)
	require.Len(t, got.No, 1)
	assert.Equal(t, 500.0, got.Yes[0].Amount)
	assert.Equal(t, 300.0, got.No[0].Amount)
}

func TestGetHoldersDefaultLimit(t *testing.T) {
	svc := &stubHolderService{}
	h := NewHolderHandler(svc, nil, 0, testLogger())

	rec := httptest.NewRecorder()
	h.GetHolders(rec, httptest.NewRequest(http.MethodGet, "/api/holders?market=0xcond", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 500, svc.limit)
}

func TestGetHoldersRequiresMarket(t *testing.T) {
	h := NewHolderHandler(&stubHolderService{}, nil, 0, testLogger())

	rec := httptest.NewRecorder()
	h.GetHolders(rec, httptest.NewRequest(http.MethodGet, "/api/holders", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetHoldersRelaysUpstreamStatus(t *testing.T) {
	h := NewHolderHandler(&stubHolderService{
		err: &polymarket.StatusError{Code: http.StatusServiceUnavailable},
	}, nil, 0, testLogger())

	rec := httptest.NewRecorder()
	h.GetHolders(rec, httptest.NewRequest(http.MethodGet, "/api/holders?market=0xcond", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
