package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/marketlens/internal/domain"
	"github.com/alanyoungcy/marketlens/internal/screener"
)

type stubMarketSource struct {
	markets []domain.Market
}

func (s *stubMarketSource) Markets(context.Context, int) ([]domain.Market, domain.Freshness, error) {
	return s.markets, domain.FreshnessFresh, nil
}

func newTestClient(t *testing.T, h *Hub) *client {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return &client{
		hub:    h,
		send:   make(chan []byte, sendBufferSize),
		subs:   make(map[string]bool),
		ctx:    ctx,
		cancel: cancel,
	}
}

func TestSubmitFiltersPushesScreenerFrame(t *testing.T) {
	src := &stubMarketSource{markets: []domain.Market{
		{ID: "a", Question: "q1", Active: true, VolumeNum: 50},
		{ID: "b", Question: "q2", Active: true, VolumeNum: 150},
		{ID: "c", Question: "q3", Active: true, VolumeNum: 300},
	}}
	h := NewHub(nil, slog.New(slog.DiscardHandler)).WithScreener(src, nil)
	c := newTestClient(t, h)

	c.submitFilters(screener.FilterState{MinVolume: 100})

	select {
	case frame := <-c.send:
		var got struct {
			Type    string `json:"type"`
			Payload struct {
				Markets []domain.Market `json:"markets"`
				Visible int             `json:"visible"`
			} `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(frame, &got))
		assert.Equal(t, "screener", got.Type)
		assert.Equal(t, 2, got.Payload.Visible)
	case <-time.After(2 * time.Second):
		t.Fatal("no screener frame before deadline")
	}
}

func TestSubmitFiltersBurstYieldsOneFrame(t *testing.T) {
	src := &stubMarketSource{markets: []domain.Market{
		{ID: "a", Question: "q1", Active: true, VolumeNum: 50},
		{ID: "b", Question: "q2", Active: true, VolumeNum: 300},
	}}
	h := NewHub(nil, slog.New(slog.DiscardHandler)).WithScreener(src, nil)
	c := newTestClient(t, h)

	c.submitFilters(screener.FilterState{Search: "q"})
	c.submitFilters(screener.FilterState{MinVolume: 100})

	select {
	case frame := <-c.send:
		var got struct {
			Payload struct {
				Visible int `json:"visible"`
			} `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(frame, &got))
		// Only the final submission of the burst computes.
		assert.Equal(t, 1, got.Payload.Visible)
	case <-time.After(2 * time.Second):
		t.Fatal("no screener frame before deadline")
	}

	select {
	case <-c.send:
		t.Fatal("unexpected second frame for a debounced burst")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestSubmitFiltersIgnoredWithoutMarketSource(t *testing.T) {
	h := NewHub(nil, slog.New(slog.DiscardHandler))
	c := newTestClient(t, h)

	c.submitFilters(screener.FilterState{MinVolume: 100})

	select {
	case <-c.send:
		t.Fatal("frame pushed with no market source configured")
	case <-time.After(400 * time.Millisecond):
	}
}
