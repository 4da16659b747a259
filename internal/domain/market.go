package domain

import "time"

// Market is the canonical, fully-typed form of one prediction market after
// normalization. Every field the screener or the API surface reads lives
// here; nothing downstream of the normalization boundary parses upstream
// strings again.
type Market struct {
	ID          string `json:"id"`
	Question    string `json:"question"`
	Description string `json:"description,omitempty"`

	// Slug identifies the market itself; EventSlug identifies the parent
	// event and is what deep links into the upstream UI use.
	Slug      string `json:"slug"`
	EventSlug string `json:"eventSlug"`

	Image            string `json:"image,omitempty"`
	ResolutionSource string `json:"resolutionSource,omitempty"`

	StartDate time.Time `json:"startDate,omitzero"`
	EndDate   time.Time `json:"endDate,omitzero"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`

	// Time remaining until resolution, computed at normalization time.
	// Negative DaysUntil means the end date has passed. HasEndDate is false
	// when the upstream record carried no parseable end date at all.
	HasEndDate   bool `json:"hasEndDate"`
	DaysUntil    int  `json:"daysUntilResolution"`
	HoursUntil   int  `json:"hoursUntilResolution"`
	MinutesUntil int  `json:"minutesUntilResolution"`
	SecondsUntil int  `json:"secondsUntilResolution"`

	// Outcome labels and their prices as probabilities in [0,1]. The
	// prices slice is always at least as long as the outcomes slice;
	// missing entries are filled with an even split at normalization.
	Outcomes      []string  `json:"outcomes"`
	OutcomePrices []float64 `json:"outcomePrices"`

	// Volume/Liquidity keep the raw upstream string alongside the parsed
	// number; malformed upstream values parse to 0.
	Volume       string  `json:"volume"`
	VolumeNum    float64 `json:"volumeNum"`
	Liquidity    string  `json:"liquidity"`
	LiquidityNum float64 `json:"liquidityNum"`

	Volume24h      float64 `json:"volume24h"`
	PriceChange24h float64 `json:"priceChange24h"`

	Active    bool `json:"active"`
	Closed    bool `json:"closed"`
	Finalized bool `json:"finalized"`

	// Category is the primary category (first surviving parsed tag of the
	// parent event); Tags is the full raw label list supporting membership
	// in multiple categories.
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`

	// ConditionID keys holder lookups; TokenIDs are the per-outcome CLOB
	// token identifiers keying order-book and price-history lookups.
	ConditionID string   `json:"conditionId"`
	TokenIDs    []string `json:"clobTokenIds"`
}

// YesPrice returns the price of the first outcome, defaulting to an even
// split when the market somehow carries no prices.
func (m *Market) YesPrice() float64 {
	if len(m.OutcomePrices) > 0 {
		return m.OutcomePrices[0]
	}
	return 0.5
}

// NoPrice returns the price of the second outcome, falling back to the
// complement of the YES price for binary markets normalized from sparse data.
func (m *Market) NoPrice() float64 {
	if len(m.OutcomePrices) > 1 {
		return m.OutcomePrices[1]
	}
	return 1 - m.YesPrice()
}

// PrimaryTokenID returns the CLOB token ID of the first outcome, or "" when
// the market has no order book.
func (m *Market) PrimaryTokenID() string {
	if len(m.TokenIDs) > 0 {
		return m.TokenIDs[0]
	}
	return ""
}

// HasTag reports whether label equals the market's primary category or any
// of its raw tags. Comparison is exact on trimmed labels: categories are
// user-visible proper nouns, not free text.
func (m *Market) HasTag(label string) bool {
	if m.Category == label {
		return true
	}
	for _, t := range m.Tags {
		if t == label {
			return true
		}
	}
	return false
}

// Event groups one or more related markets sharing a resolution topic. The
// event owns its markets; a market's category and tags are inherited from
// its parent event during normalization.
type Event struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Icon        string `json:"icon,omitempty"`

	StartDate time.Time `json:"startDate,omitzero"`
	EndDate   time.Time `json:"endDate,omitzero"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`

	Active   bool `json:"active"`
	Closed   bool `json:"closed"`
	Archived bool `json:"archived"`

	Volume    float64 `json:"volume"`
	Volume24h float64 `json:"volume24h"`
	Liquidity float64 `json:"liquidity"`

	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`

	Markets []Market `json:"markets"`
}

// FlattenMarkets returns all markets of the given events in event order,
// preserving the relative order of markets within each event.
func FlattenMarkets(events []Event) []Market {
	total := 0
	for i := range events {
		total += len(events[i].Markets)
	}
	out := make([]Market, 0, total)
	for i := range events {
		out = append(out, events[i].Markets...)
	}
	return out
}
