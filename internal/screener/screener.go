package screener

import (
	"context"

	"github.com/alanyoungcy/marketlens/internal/domain"
)

// ctxCheckStride is how many markets are filtered between cancellation
// checks. The pass over tens of thousands of markets stays interruptible
// without paying a ctx.Err() per record.
const ctxCheckStride = 1024

// Apply derives the visible subset: filter, stable sort, then a
// deduplication by market ID keeping the first occurrence. The input slice
// is never mutated. books maps primary token IDs to cached order-book
// summaries and may be nil when no book-derived filter is active.
//
// ctx is the cancellation token for superseded recomputations: a caller
// that re-runs Apply on every input change cancels the previous run and
// discards its partial work.
func Apply(ctx context.Context, markets []domain.Market, state FilterState, books map[string]*domain.BookSummary) ([]domain.Market, error) {
	out := make([]domain.Market, 0, len(markets))
	for i := range markets {
		if i%ctxCheckStride == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if state.matches(&markets[i], books) {
			out = append(out, markets[i])
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sortMarkets(out, state.SortField, state.SortDesc)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return dedupe(out), nil
}

// dedupe removes repeated market IDs in place, keeping the first
// occurrence. Upstream pagination can hand back the same market across a
// page boundary; that is tolerated here rather than treated as an error.
func dedupe(markets []domain.Market) []domain.Market {
	seen := make(map[string]bool, len(markets))
	out := markets[:0]
	for i := range markets {
		if seen[markets[i].ID] {
			continue
		}
		seen[markets[i].ID] = true
		out = append(out, markets[i])
	}
	return out
}
