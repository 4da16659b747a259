package domain

import "time"

// PriceLevel is a single price+size entry in an order book.
type PriceLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// Notional returns the USD value of the level (price x shares).
func (l PriceLevel) Notional() float64 {
	return l.Price * l.Size
}

// Quote is one side's best level with its dollar value.
type Quote struct {
	Price    float64 `json:"price"`
	Size     float64 `json:"size"`
	USDValue float64 `json:"usdValue"`
}

// BookSummary is the reshaped form of a raw order book for one outcome
// token: best bid/ask, spread, mid, and aggregate per-side notional.
// A token with no book yields the zero value with HasBook=false; callers
// treat "no market" uniformly with "empty market".
type BookSummary struct {
	TokenID string `json:"tokenId,omitempty"`

	BestBid *Quote `json:"bestBid"`
	BestAsk *Quote `json:"bestAsk"`

	// Spread and friends are nil when either side of the book is empty.
	Spread        *float64 `json:"spread"`
	SpreadPercent *float64 `json:"spreadPercent"`
	MidPrice      *float64 `json:"midPrice"`

	TotalBidLiquidity float64 `json:"totalBidLiquidity"`
	TotalAskLiquidity float64 `json:"totalAskLiquidity"`

	HasBook   bool      `json:"-"`
	Timestamp time.Time `json:"-"`
}

// SummarizeBook computes a BookSummary from raw bid/ask levels. Best bid is
// the highest-priced bid, best ask the lowest-priced ask; spread percent is
// relative to the mid price, expressed in percent.
func SummarizeBook(tokenID string, bids, asks []PriceLevel) BookSummary {
	sum := BookSummary{
		TokenID: tokenID,
		HasBook: len(bids) > 0 || len(asks) > 0,
	}

	for _, lvl := range bids {
		sum.TotalBidLiquidity += lvl.Notional()
		if sum.BestBid == nil || lvl.Price > sum.BestBid.Price {
			sum.BestBid = &Quote{Price: lvl.Price, Size: lvl.Size, USDValue: lvl.Notional()}
		}
	}
	for _, lvl := range asks {
		sum.TotalAskLiquidity += lvl.Notional()
		if sum.BestAsk == nil || lvl.Price < sum.BestAsk.Price {
			sum.BestAsk = &Quote{Price: lvl.Price, Size: lvl.Size, USDValue: lvl.Notional()}
		}
	}

	if sum.BestBid != nil && sum.BestAsk != nil {
		spread := sum.BestAsk.Price - sum.BestBid.Price
		mid := (sum.BestBid.Price + sum.BestAsk.Price) / 2
		sum.Spread = &spread
		sum.MidPrice = &mid
		if mid > 0 {
			pct := spread / mid * 100
			sum.SpreadPercent = &pct
		}
	}

	return sum
}

// PricePoint is one sample in a token's price history.
type PricePoint struct {
	Timestamp int64   `json:"t"`
	Price     float64 `json:"p"`
}

// PriceHistory is the cached price series for one outcome token.
type PriceHistory struct {
	TokenID string       `json:"tokenId"`
	Points  []PricePoint `json:"history"`
}

// Sparkline returns the series min/max-normalized to [0,1], suitable for
// rendering as a fixed-height polyline. A flat series normalizes to 0.5.
func (h *PriceHistory) Sparkline() []float64 {
	if len(h.Points) == 0 {
		return nil
	}

	min, max := h.Points[0].Price, h.Points[0].Price
	for _, p := range h.Points[1:] {
		if p.Price < min {
			min = p.Price
		}
		if p.Price > max {
			max = p.Price
		}
	}

	out := make([]float64, len(h.Points))
	span := max - min
	for i, p := range h.Points {
		if span == 0 {
			out[i] = 0.5
			continue
		}
		out[i] = (p.Price - min) / span
	}
	return out
}
