package screener

import (
	"math"
	"sort"
	"strings"

	"github.com/alanyoungcy/marketlens/internal/domain"
)

// SortField names one sortable market attribute.
type SortField string

const (
	SortByQuestion  SortField = "question"
	SortByCategory  SortField = "category"
	SortByYesPrice  SortField = "yesPrice"
	SortByNoPrice   SortField = "noPrice"
	SortByVolume    SortField = "volume"
	SortByLiquidity SortField = "liquidity"
	SortByVolume24h SortField = "volume24h"
	SortByEndDate   SortField = "endDate"
	SortByDaysUntil SortField = "daysUntil"
	SortByStatus    SortField = "status"
)

// ValidSortField reports whether f names a known sort field. The empty
// field is valid and means "keep input order".
func ValidSortField(f SortField) bool {
	switch f {
	case "", SortByQuestion, SortByCategory, SortByYesPrice, SortByNoPrice,
		SortByVolume, SortByLiquidity, SortByVolume24h, SortByEndDate,
		SortByDaysUntil, SortByStatus:
		return true
	}
	return false
}

// textKey returns the case-folded string key for text sort fields, or ""
// with ok=false for numeric fields.
func (f SortField) textKey(m *domain.Market) (string, bool) {
	switch f {
	case SortByQuestion:
		return strings.ToLower(m.Question), true
	case SortByCategory:
		return strings.ToLower(m.Category), true
	}
	return "", false
}

// numericKey returns the numeric sort key. Missing values map to +Inf so
// they sort last in ascending order.
func (f SortField) numericKey(m *domain.Market) float64 {
	switch f {
	case SortByYesPrice:
		return m.YesPrice()
	case SortByNoPrice:
		return m.NoPrice()
	case SortByVolume:
		return m.VolumeNum
	case SortByLiquidity:
		return m.LiquidityNum
	case SortByVolume24h:
		return m.Volume24h
	case SortByEndDate:
		if !m.HasEndDate {
			return math.Inf(1)
		}
		return float64(m.EndDate.UnixMilli())
	case SortByDaysUntil:
		if !m.HasEndDate {
			return math.Inf(1)
		}
		return float64(m.DaysUntil)
	case SortByStatus:
		switch {
		case m.Finalized:
			return 2
		case m.Closed:
			return 1
		default:
			return 0
		}
	}
	return 0
}

// sortMarkets orders markets in place by the given field and direction.
// The sort is stable: equal keys keep their input order.
func sortMarkets(markets []domain.Market, field SortField, desc bool) {
	if field == "" {
		return
	}

	sort.SliceStable(markets, func(i, j int) bool {
		a, b := &markets[i], &markets[j]

		if ka, ok := field.textKey(a); ok {
			kb, _ := field.textKey(b)
			if desc {
				return ka > kb
			}
			return ka < kb
		}

		ka, kb := field.numericKey(a), field.numericKey(b)
		if desc {
			return ka > kb
		}
		return ka < kb
	})
}
