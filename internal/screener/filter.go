// Package screener derives the visible subset of a market list from a
// filter state: a pure predicate-and-sort pipeline safe to re-run on every
// input change.
package screener

import (
	"strings"
	"time"

	"github.com/alanyoungcy/marketlens/internal/domain"
)

// PriceRange bounds an outcome price, expressed in percent (0 to 100).
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether the price (a probability in [0,1]) falls inside
// the range.
func (r *PriceRange) Contains(price float64) bool {
	pct := price * 100
	return pct >= r.Min && pct <= r.Max
}

// FilterState is the full set of active predicate parameters plus the sort
// order. Zero values mean "predicate off" throughout: empty strings, nil
// ranges, zero numerics, and zero times all disable their filter.
type FilterState struct {
	// Search is tokenized on whitespace; every token must match at least
	// one text field.
	Search string `json:"search,omitempty"`

	// Category matches the primary category or any secondary tag exactly.
	Category string `json:"category,omitempty"`

	// ShowClosed includes closed, finalized, and inactive markets.
	ShowClosed bool `json:"showClosed,omitempty"`

	MinVolume float64 `json:"minVolume,omitempty"`
	MaxVolume float64 `json:"maxVolume,omitempty"`

	MinLiquidity float64 `json:"minLiquidity,omitempty"`
	MaxLiquidity float64 `json:"maxLiquidity,omitempty"`

	// YesPrice and NoPrice combine as a disjunction when both are set: a
	// market passes if either leg falls in its range.
	YesPrice *PriceRange `json:"yesPrice,omitempty"`
	NoPrice  *PriceRange `json:"noPrice,omitempty"`

	// MaxDaysToResolution excludes markets already past resolution, beyond
	// the ceiling, or with no end date at all.
	MaxDaysToResolution int `json:"maxDaysToResolution,omitempty"`

	// EndDateFrom/EndDateTo bound the market's end date. EndDateTo is
	// inclusive through the end of its day.
	EndDateFrom time.Time `json:"endDateFrom,omitzero"`
	EndDateTo   time.Time `json:"endDateTo,omitzero"`

	// Order-book thresholds; markets with no cached book summary for
	// their primary token are excluded while any of these is active.
	MaxSpreadPercent float64 `json:"maxSpreadPercent,omitempty"`
	MinBidNotional   float64 `json:"minBidNotional,omitempty"`
	MinAskNotional   float64 `json:"minAskNotional,omitempty"`

	SortField SortField `json:"sortField,omitempty"`
	SortDesc  bool      `json:"sortDesc,omitempty"`
}

// NeedsBook reports whether any order-book-derived predicate is active.
// Callers use it to decide whether to gather book summaries at all.
func (s *FilterState) NeedsBook() bool {
	return s.MaxSpreadPercent > 0 || s.MinBidNotional > 0 || s.MinAskNotional > 0
}

// matches evaluates every active predicate against one market. books maps
// primary token ID to its cached summary.
func (s *FilterState) matches(m *domain.Market, books map[string]*domain.BookSummary) bool {
	if !s.ShowClosed && (!m.Active || m.Closed || m.Finalized) {
		return false
	}

	if s.Category != "" && !m.HasTag(s.Category) {
		return false
	}

	if s.MinVolume > 0 && m.VolumeNum < s.MinVolume {
		return false
	}
	if s.MaxVolume > 0 && m.VolumeNum > s.MaxVolume {
		return false
	}
	if s.MinLiquidity > 0 && m.LiquidityNum < s.MinLiquidity {
		return false
	}
	if s.MaxLiquidity > 0 && m.LiquidityNum > s.MaxLiquidity {
		return false
	}

	if !s.matchesPrices(m) {
		return false
	}

	if s.MaxDaysToResolution > 0 {
		if !m.HasEndDate || m.DaysUntil < 0 || m.DaysUntil > s.MaxDaysToResolution {
			return false
		}
	}

	if !s.EndDateFrom.IsZero() {
		if !m.HasEndDate || m.EndDate.Before(s.EndDateFrom) {
			return false
		}
	}
	if !s.EndDateTo.IsZero() {
		cutoff := endOfDay(s.EndDateTo)
		if !m.HasEndDate || m.EndDate.After(cutoff) {
			return false
		}
	}

	if s.NeedsBook() && !s.matchesBook(m, books) {
		return false
	}

	if s.Search != "" && !s.matchesSearch(m) {
		return false
	}

	return true
}

// matchesPrices applies the YES/NO price ranges. With both active the two
// combine as a disjunction; with one active it applies alone.
func (s *FilterState) matchesPrices(m *domain.Market) bool {
	switch {
	case s.YesPrice != nil && s.NoPrice != nil:
		return s.YesPrice.Contains(m.YesPrice()) || s.NoPrice.Contains(m.NoPrice())
	case s.YesPrice != nil:
		return s.YesPrice.Contains(m.YesPrice())
	case s.NoPrice != nil:
		return s.NoPrice.Contains(m.NoPrice())
	default:
		return true
	}
}

// matchesBook applies the order-book thresholds. A market whose primary
// token has no cached summary is excluded: absence of data is not evidence
// of passing the threshold.
func (s *FilterState) matchesBook(m *domain.Market, books map[string]*domain.BookSummary) bool {
	book := books[m.PrimaryTokenID()]
	if book == nil || !book.HasBook {
		return false
	}

	if s.MaxSpreadPercent > 0 {
		if book.SpreadPercent == nil || *book.SpreadPercent > s.MaxSpreadPercent {
			return false
		}
	}
	if s.MinBidNotional > 0 && book.TotalBidLiquidity < s.MinBidNotional {
		return false
	}
	if s.MinAskNotional > 0 && book.TotalAskLiquidity < s.MinAskNotional {
		return false
	}
	return true
}

// matchesSearch requires every whitespace token of the query to appear,
// case-insensitively, in at least one searchable field.
func (s *FilterState) matchesSearch(m *domain.Market) bool {
	fields := []string{
		strings.ToLower(m.Question),
		strings.ToLower(m.Description),
		strings.ToLower(m.Category),
		strings.ToLower(m.Slug),
		strings.ToLower(m.EventSlug),
	}

	for _, token := range strings.Fields(strings.ToLower(s.Search)) {
		found := false
		for _, f := range fields {
			if strings.Contains(f, token) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
