package screener

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/marketlens/internal/domain"
)

func recomputerMarkets() []domain.Market {
	return []domain.Market{
		mk("a", func(m *domain.Market) { m.VolumeNum = 50 }),
		mk("b", func(m *domain.Market) { m.VolumeNum = 150 }),
		mk("c", func(m *domain.Market) { m.VolumeNum = 300 }),
	}
}

func awaitResult(t *testing.T, rc *Recomputer) Result {
	t.Helper()
	select {
	case res := <-rc.Results():
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("no result before deadline")
		return Result{}
	}
}

func TestRecomputerBurstCollapsesToLastState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rc := NewRecomputer(30 * time.Millisecond)
	go rc.Run(ctx)

	markets := recomputerMarkets()
	rc.Submit(Input{Markets: markets, State: FilterState{Search: "q"}})
	rc.Submit(Input{Markets: markets, State: FilterState{Search: "qu"}})
	rc.Submit(Input{Markets: markets, State: FilterState{MinVolume: 100}})

	res := awaitResult(t, rc)
	require.NoError(t, res.Err)
	assert.Equal(t, 100.0, res.State.MinVolume)
	assert.Equal(t, []string{"b", "c"}, ids(res.Markets))

	// The earlier keystrokes never produce their own passes.
	select {
	case extra := <-rc.Results():
		t.Fatalf("unexpected second result for state %+v", extra.State)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestRecomputerSequentialSubmissions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rc := NewRecomputer(10 * time.Millisecond)
	go rc.Run(ctx)

	markets := recomputerMarkets()

	rc.Submit(Input{Markets: markets, State: FilterState{MinVolume: 100}})
	first := awaitResult(t, rc)
	require.NoError(t, first.Err)
	assert.Equal(t, []string{"b", "c"}, ids(first.Markets))

	rc.Submit(Input{Markets: markets, State: FilterState{MinVolume: 200}})
	second := awaitResult(t, rc)
	require.NoError(t, second.Err)
	assert.Equal(t, []string{"c"}, ids(second.Markets))
}

func TestRecomputerRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	rc := NewRecomputer(10 * time.Millisecond)
	errCh := make(chan error, 1)
	go func() { errCh <- rc.Run(ctx) }()

	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
