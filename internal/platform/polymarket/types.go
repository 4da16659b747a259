package polymarket

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/marketlens/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexFloat unmarshals from JSON number or numeric string. Malformed or
// missing values decode to 0 rather than failing the whole record.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
			n = 0
		}
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
		n = 0
	}
	*f = flexFloat(n)
	return nil
}

// flexStrings unmarshals from a JSON array of strings, a JSON array of
// numbers, or a string containing JSON-encoded array text (the Gamma API
// sends "outcomes" and "outcomePrices" as the latter). A bare string that is
// not valid JSON decodes to a one-element slice.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	var arr []any
	if err := json.Unmarshal(data, &arr); err == nil {
		*f = anySliceToStrings(arr)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(s), &arr); err == nil {
		*f = anySliceToStrings(arr)
		return nil
	}
	if strings.TrimSpace(s) == "" {
		*f = nil
		return nil
	}
	*f = flexStrings{s}
	return nil
}

func anySliceToStrings(arr []any) flexStrings {
	out := make(flexStrings, 0, len(arr))
	for _, v := range arr {
		switch t := v.(type) {
		case string:
			out = append(out, t)
		case float64:
			out = append(out, strconv.FormatFloat(t, 'f', -1, 64))
		case bool:
			out = append(out, strconv.FormatBool(t))
		}
	}
	return out
}

// RawTag unmarshals from either a tag object ({id,label,slug}) or a bare
// string label.
type RawTag struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

func (t *RawTag) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		t.Label = s
		return nil
	}
	type alias RawTag
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*t = RawTag(a)
	return nil
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIEvent represents an event as returned by the Polymarket Gamma API.
// An event groups one or more related markets.
type APIEvent struct {
	ID          json.Number `json:"id"`
	Title       string      `json:"title"`
	Slug        string      `json:"slug"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Image       string      `json:"image"`
	Icon        string      `json:"icon"`

	ResolutionSource string `json:"resolutionSource"`

	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`

	Active   flexBool `json:"active"`
	Closed   flexBool `json:"closed"`
	Archived flexBool `json:"archived"`

	Volume    flexFloat `json:"volume"`
	Volume24h flexFloat `json:"volume24hr"`
	Liquidity flexFloat `json:"liquidity"`

	Tags    []RawTag    `json:"tags"`
	Markets []APIMarket `json:"markets"`
}

// APIMarket represents a market as returned by the Polymarket Gamma API.
// String-encoded JSON array fields decode through flexStrings; numeric
// fields arrive as either numbers or strings depending on the endpoint.
type APIMarket struct {
	ID          json.Number `json:"id"`
	Question    string      `json:"question"`
	Description string      `json:"description"`
	Slug        string      `json:"slug"`
	Category    string      `json:"category"`
	Image       string      `json:"image"`

	ResolutionSource string `json:"resolutionSource"`

	// The events endpoint and the markets endpoint disagree on the end
	// date field name. All three spellings observed in the wild.
	EndDate    string `json:"endDate"`
	EndDateISO string `json:"endDateIso"`
	EndDateAlt string `json:"end_date_iso"`

	StartDate string `json:"startDate"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`

	Outcomes      flexStrings `json:"outcomes"`
	OutcomePrices flexStrings `json:"outcomePrices"`

	Volume         flexFloat `json:"volume"`
	VolumeNum      flexFloat `json:"volumeNum"`
	Liquidity      flexFloat `json:"liquidity"`
	LiquidityNum   flexFloat `json:"liquidityNum"`
	Volume24h      flexFloat `json:"volume24hr"`
	OneDayPriceChg float64   `json:"oneDayPriceChange"`

	Active    *flexBool `json:"active"`
	Closed    flexBool  `json:"closed"`
	Finalized flexBool  `json:"finalized"`

	ConditionID  string      `json:"conditionId"`
	ClobTokenIDs flexStrings `json:"clobTokenIds"`

	Tags []RawTag `json:"tags"`
}

// --------------------------------------------------------------------------
// Normalization: API types -> domain types
// --------------------------------------------------------------------------

// ParseTags reduces raw tag entries to an order-preserving list of trimmed
// labels. Empty labels and the upstream "none" sentinel (any case) are
// dropped; duplicate labels are kept as upstream sends them.
func ParseTags(raw []RawTag) []string {
	var out []string
	for _, t := range raw {
		label := strings.TrimSpace(t.Label)
		if label == "" || strings.EqualFold(label, "none") {
			continue
		}
		out = append(out, label)
	}
	return out
}

// Normalize converts an APIEvent and its nested markets to the canonical
// domain shape. Tags are parsed once per event; the first surviving tag
// becomes the event's primary category and is inherited by every child
// market that lacks its own.
func (e *APIEvent) Normalize(now time.Time) domain.Event {
	tags := ParseTags(e.Tags)

	category := ""
	if len(tags) > 0 {
		category = tags[0]
	} else if c := strings.TrimSpace(e.Category); c != "" && !strings.EqualFold(c, "none") {
		category = c
	}

	ev := domain.Event{
		ID:          e.ID.String(),
		Title:       e.Title,
		Slug:        e.Slug,
		Description: e.Description,
		Image:       e.Image,
		Icon:        e.Icon,
		Active:      bool(e.Active),
		Closed:      bool(e.Closed),
		Archived:    bool(e.Archived),
		Volume:      float64(e.Volume),
		Volume24h:   float64(e.Volume24h),
		Liquidity:   float64(e.Liquidity),
		Category:    category,
		Tags:        tags,
	}
	ev.StartDate = parseTime(e.StartDate)
	ev.EndDate = parseTime(e.EndDate)
	ev.CreatedAt = parseTime(e.CreatedAt)
	ev.UpdatedAt = parseTime(e.UpdatedAt)

	ev.Markets = make([]domain.Market, 0, len(e.Markets))
	for i := range e.Markets {
		ev.Markets = append(ev.Markets, e.Markets[i].Normalize(now, e, tags))
	}
	return ev
}

// Normalize converts an APIMarket to a domain.Market using the parent
// event for fallback fields and the event's pre-parsed tag list.
func (m *APIMarket) Normalize(now time.Time, event *APIEvent, eventTags []string) domain.Market {
	dm := domain.Market{
		ID:               m.ID.String(),
		Question:         m.Question,
		Description:      m.Description,
		Slug:             m.Slug,
		Image:            m.Image,
		ResolutionSource: m.ResolutionSource,
		ConditionID:      m.ConditionID,
		TokenIDs:         []string(m.ClobTokenIDs),
		Volume24h:        float64(m.Volume24h),
		PriceChange24h:   m.OneDayPriceChg,
		Closed:           bool(m.Closed),
		Finalized:        bool(m.Finalized),
		Tags:             eventTags,
	}

	if dm.ID == "" {
		dm.ID = m.ConditionID
	}
	if dm.ConditionID == "" {
		dm.ConditionID = dm.ID
	}
	if dm.Slug == "" {
		dm.Slug = dm.ID
	}

	// Active defaults to true when the field is absent.
	dm.Active = m.Active == nil || bool(*m.Active)

	// Finalized markets are necessarily closed.
	if dm.Finalized {
		dm.Closed = true
	}

	if event != nil {
		dm.EventSlug = event.Slug
		if dm.Question == "" {
			dm.Question = event.Title
		}
		if dm.Description == "" {
			dm.Description = event.Description
		}
		if dm.Image == "" {
			dm.Image = event.Image
		}
		if dm.ResolutionSource == "" {
			dm.ResolutionSource = event.ResolutionSource
		}
	}
	if dm.EventSlug == "" {
		dm.EventSlug = dm.Slug
	}

	// Primary category: event tags win, then explicit category fields.
	if len(eventTags) > 0 {
		dm.Category = eventTags[0]
	} else if c := cleanCategory(m.Category); c != "" {
		dm.Category = c
	} else if event != nil {
		dm.Category = cleanCategory(event.Category)
	}
	if len(dm.Tags) == 0 {
		if own := ParseTags(m.Tags); len(own) > 0 {
			dm.Tags = own
		}
	}

	// Outcomes default to a binary pair; prices pad to outcome count with
	// an even split so the pair is never ragged.
	dm.Outcomes = []string(m.Outcomes)
	if len(dm.Outcomes) == 0 {
		dm.Outcomes = []string{"Yes", "No"}
	}
	dm.OutcomePrices = parsePrices(m.OutcomePrices, len(dm.Outcomes))

	// Volume/liquidity: prefer the pre-parsed *Num variants when the
	// upstream sends both.
	vol := float64(m.VolumeNum)
	if vol == 0 {
		vol = float64(m.Volume)
	}
	liq := float64(m.LiquidityNum)
	if liq == 0 {
		liq = float64(m.Liquidity)
	}
	dm.VolumeNum = vol
	dm.Volume = strconv.FormatFloat(vol, 'f', -1, 64)
	dm.LiquidityNum = liq
	dm.Liquidity = strconv.FormatFloat(liq, 'f', -1, 64)

	dm.StartDate = parseTime(m.StartDate)
	dm.CreatedAt = parseTime(m.CreatedAt)
	dm.UpdatedAt = parseTime(m.UpdatedAt)

	end := firstNonEmpty(m.EndDate, m.EndDateISO, m.EndDateAlt)
	dm.EndDate = parseTime(end)
	if !dm.EndDate.IsZero() {
		dm.HasEndDate = true
		setTimeUntil(&dm, now)
	}

	return dm
}

// setTimeUntil fills the granular time-to-resolution fields. Each component
// is the remainder after the larger unit, floored, matching a countdown
// display. Flooring keeps a passed end date strictly negative: an end date
// five hours ago yields DaysUntil -1, never 0.
func setTimeUntil(m *domain.Market, now time.Time) {
	diff := m.EndDate.Sub(now)
	m.DaysUntil = floorDiv(diff, 24*time.Hour)
	m.HoursUntil = floorDiv(diff%(24*time.Hour), time.Hour)
	m.MinutesUntil = floorDiv(diff%time.Hour, time.Minute)
	m.SecondsUntil = floorDiv(diff%time.Minute, time.Second)
}

// floorDiv divides toward negative infinity, unlike Go's integer division
// which truncates toward zero.
func floorDiv(d, unit time.Duration) int {
	q := d / unit
	if d%unit != 0 && d < 0 {
		q--
	}
	return int(q)
}

// parsePrices converts price strings to floats and pads to want entries
// with an even split. Malformed entries parse to the even split as well.
func parsePrices(raw flexStrings, want int) []float64 {
	split := 0.5
	if want > 0 {
		split = 1 / float64(want)
	}
	n := len(raw)
	if n < want {
		n = want
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = split
		if i < len(raw) {
			if p, err := strconv.ParseFloat(strings.TrimSpace(raw[i]), 64); err == nil && !math.IsNaN(p) && !math.IsInf(p, 0) {
				out[i] = p
			}
		}
	}
	return out
}

func cleanCategory(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return ""
	}
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseTime accepts the timestamp layouts the Gamma API has been seen to
// emit. An unparseable or empty value yields the zero time.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05Z0700",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// --------------------------------------------------------------------------
// CLOB / Data API DTOs
// --------------------------------------------------------------------------

// APIBook is a raw order book as returned by the CLOB API.
type APIBook struct {
	Market    string          `json:"market"`
	AssetID   string          `json:"asset_id"`
	Timestamp string          `json:"timestamp"`
	Bids      []APIPriceLevel `json:"bids"`
	Asks      []APIPriceLevel `json:"asks"`
}

// APIPriceLevel is a single bid/ask level with string-encoded numbers.
type APIPriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// ToDomainLevels converts raw levels to typed ones, dropping entries whose
// price fails to parse.
func ToDomainLevels(raw []APIPriceLevel) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(raw))
	for _, lvl := range raw {
		p, err := strconv.ParseFloat(lvl.Price, 64)
		if err != nil {
			continue
		}
		s, _ := strconv.ParseFloat(lvl.Size, 64)
		out = append(out, domain.PriceLevel{Price: p, Size: s})
	}
	return out
}

// APIHolder represents one holder entry from the data API.
type APIHolder struct {
	ProxyWallet  string    `json:"proxyWallet"`
	Name         string    `json:"name"`
	Pseudonym    string    `json:"pseudonym"`
	Amount       flexFloat `json:"amount"`
	OutcomeIndex int       `json:"outcomeIndex"`
}

// ToDomainHolder converts an APIHolder to a domain.Holder.
func (h *APIHolder) ToDomainHolder() domain.Holder {
	return domain.Holder{
		Wallet:       h.ProxyWallet,
		Name:         h.Name,
		Pseudonym:    h.Pseudonym,
		Amount:       float64(h.Amount),
		OutcomeIndex: h.OutcomeIndex,
	}
}

// APIPnlPoint is one sample in the user PNL series.
type APIPnlPoint struct {
	T int64   `json:"t"`
	P float64 `json:"p"`
}
