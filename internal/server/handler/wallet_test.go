package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/marketlens/internal/domain"
	"github.com/alanyoungcy/marketlens/internal/platform/polymarket"
)

const testWallet = "0x56687bf447db6ffa42ffe2204a05edaa20f55839"

type stubWalletService struct {
	positions []domain.Position
	values    []domain.AccountValue
	pnl       *float64
	err       error
}

func (s *stubWalletService) GetPositions(context.Context, string) ([]domain.Position, error) {
	return s.positions, s.err
}

func (s *stubWalletService) GetValue(context.Context, string) ([]domain.AccountValue, error) {
	return s.values, s.err
}

func (s *stubWalletService) GetAllTimePnL(context.Context, string) (*float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.pnl, nil
}

func TestWalletParamValidation(t *testing.T) {
	h := NewWalletHandler(&stubWalletService{}, testLogger())

	endpoints := []struct {
		path  string
		param string
		fn    http.HandlerFunc
	}{
		{"/api/pnl", "wallet", h.GetPnL},
		{"/api/positions", "user", h.GetPositions},
		{"/api/value", "user", h.GetValue},
	}
	for _, ep := range endpoints {
		rec := httptest.NewRecorder()
		ep.fn(rec, httptest.NewRequest(http.MethodGet, ep.path, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "missing wallet on %s", ep.path)

		rec = httptest.NewRecorder()
		ep.fn(rec, httptest.NewRequest(http.MethodGet, ep.path+"?"+ep.param+"=not-an-address", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "invalid wallet on %s", ep.path)
	}
}

func TestGetPnLNullWhenNoHistory(t *testing.T) {
	h := NewWalletHandler(&stubWalletService{pnl: nil}, testLogger())

	rec := httptest.NewRecorder()
	h.GetPnL(rec, httptest.NewRequest(http.MethodGet, "/api/pnl?wallet="+testWallet, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"allTimePnL":null}`, rec.Body.String())
}

func TestGetPnLValue(t *testing.T) {
	pnl := 1234.56
	h := NewWalletHandler(&stubWalletService{pnl: &pnl}, testLogger())

	rec := httptest.NewRecorder()
	h.GetPnL(rec, httptest.NewRequest(http.MethodGet, "/api/pnl?wallet="+testWallet, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"allTimePnL":1234.56}`, rec.Body.String())
}

func TestGetPositionsUnknownWalletIsEmptyList(t *testing.T) {
	h := NewWalletHandler(&stubWalletService{err: domain.ErrNotFound}, testLogger())

	rec := httptest.NewRecorder()
	h.GetPositions(rec, httptest.NewRequest(http.MethodGet, "/api/positions?user="+testWallet, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGetPositionsAnyFailureIsEmptyList(t *testing.T) {
	failures := map[string]error{
		"rejected lookup": &polymarket.StatusError{Code: http.StatusBadRequest},
		"upstream outage": &polymarket.StatusError{Code: http.StatusInternalServerError},
		"network failure": errors.New("connection refused"),
	}
	for name, failure := range failures {
		t.Run(name, func(t *testing.T) {
			h := NewWalletHandler(&stubWalletService{err: failure}, testLogger())

			rec := httptest.NewRecorder()
			h.GetPositions(rec, httptest.NewRequest(http.MethodGet, "/api/positions?user="+testWallet, nil))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `[]`, rec.Body.String())
		})
	}
}

func TestGetValueNullWhenUnknown(t *testing.T) {
	h := NewWalletHandler(&stubWalletService{err: domain.ErrNotFound}, testLogger())

	rec := httptest.NewRecorder()
	h.GetValue(rec, httptest.NewRequest(http.MethodGet, "/api/value?user="+testWallet, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", rec.Body.String())
}

func TestGetValueFirstEntry(t *testing.T) {
	h := NewWalletHandler(&stubWalletService{
		values: []domain.AccountValue{{Wallet: testWallet, Value: 987.65}},
	}, testLogger())

	rec := httptest.NewRecorder()
	h.GetValue(rec, httptest.NewRequest(http.MethodGet, "/api/value?user="+testWallet, nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.AccountValue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 987.65, got.Value)
}

func TestGetValueAnyFailureIsNull(t *testing.T) {
	failures := map[string]error{
		"upstream outage": &polymarket.StatusError{Code: http.StatusInternalServerError},
		"bad gateway":     &polymarket.StatusError{Code: http.StatusBadGateway},
		"network failure": errors.New("connection refused"),
	}
	for name, failure := range failures {
		t.Run(name, func(t *testing.T) {
			h := NewWalletHandler(&stubWalletService{err: failure}, testLogger())

			rec := httptest.NewRecorder()
			h.GetValue(rec, httptest.NewRequest(http.MethodGet, "/api/value?user="+testWallet, nil))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "null", rec.Body.String())
		})
	}
}
