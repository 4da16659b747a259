package polymarket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexBool(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{`true`, true},
		{`false`, false},
		{`"true"`, true},
		{`"TRUE"`, true},
		{`"false"`, false},
		{`"1"`, true},
		{`"0"`, false},
	}
	for _, tc := range cases {
		var f flexBool
		require.NoError(t, json.Unmarshal([]byte(tc.in), &f), tc.in)
		assert.Equal(t, tc.want, bool(f), tc.in)
	}
}

func TestFlexFloatMalformedIsZero(t *testing.T) {
	cases := []string{`"abc"`, `"NaN"`, `-3`, `"-3"`, `""`}
	for _, in := range cases {
		var f flexFloat
		require.NoError(t, json.Unmarshal([]byte(in), &f), in)
		assert.Zero(t, float64(f), in)
	}

	var f flexFloat
	require.NoError(t, json.Unmarshal([]byte(`"123.5"`), &f))
	assert.Equal(t, 123.5, float64(f))
}

func TestFlexStrings(t *testing.T) {
	var direct flexStrings
	require.NoError(t, json.Unmarshal([]byte(`["Yes","No"]`), &direct))
	assert.Equal(t, flexStrings{"Yes", "No"}, direct)

	// String-encoded JSON array, the shape the events endpoint sends.
	var encoded flexStrings
	require.NoError(t, json.Unmarshal([]byte(`"[\"0.62\",\"0.38\"]"`), &encoded))
	assert.Equal(t, flexStrings{"0.62", "0.38"}, encoded)

	// Bare string that is not JSON becomes a single element.
	var bare flexStrings
	require.NoError(t, json.Unmarshal([]byte(`"0.5"`), &bare))
	assert.Equal(t, flexStrings{"0.5"}, bare)
}

func TestParseTags(t *testing.T) {
	raw := []RawTag{
		{Label: " Crypto "},
		{Label: "NONE"},
		{Label: "none"},
		{Label: ""},
		{Label: "Bitcoin"},
		{Label: "Crypto"},
	}
	// Duplicate labels survive; only blanks and "none" sentinels are dropped.
	assert.Equal(t, []string{"Crypto", "Bitcoin", "Crypto"}, ParseTags(raw))
}

func TestRawTagAcceptsObjectAndString(t *testing.T) {
	var fromObj RawTag
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","label":"Politics","slug":"politics"}`), &fromObj))
	assert.Equal(t, "Politics", fromObj.Label)

	var fromStr RawTag
	require.NoError(t, json.Unmarshal([]byte(`"Sports"`), &fromStr))
	assert.Equal(t, "Sports", fromStr.Label)
}

func TestNormalizeCategoryInheritance(t *testing.T) {
	raw := `{
		"id": "100",
		"title": "BTC above 100k?",
		"slug": "btc-above-100k",
		"tags": [{"label":"Crypto"},{"label":"Bitcoin"}],
		"markets": [
			{"id": "200", "question": "By March?", "slug": "by-march"}
		]
	}`
	var ev APIEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &ev))

	norm := ev.Normalize(time.Now())
	assert.Equal(t, "Crypto", norm.Category)
	require.Len(t, norm.Markets, 1)

	m := norm.Markets[0]
	assert.Equal(t, "Crypto", m.Category)
	assert.Equal(t, []string{"Crypto", "Bitcoin"}, m.Tags)
	assert.True(t, m.HasTag("Bitcoin"))
	assert.Equal(t, "btc-above-100k", m.EventSlug)
}

func TestNormalizePricePadding(t *testing.T) {
	m := APIMarket{
		Outcomes:      flexStrings{"A", "B", "C", "D"},
		OutcomePrices: flexStrings{"0.4"},
	}
	dm := m.Normalize(time.Now(), nil, nil)
	require.Len(t, dm.OutcomePrices, 4)
	assert.Equal(t, 0.4, dm.OutcomePrices[0])
	for _, p := range dm.OutcomePrices[1:] {
		assert.Equal(t, 0.25, p)
	}
}

func TestNormalizeDefaultsAndMalformed(t *testing.T) {
	raw := `{
		"id": "300",
		"question": "Q",
		"outcomePrices": "not json",
		"volume": "garbage"
	}`
	var m APIMarket
	require.NoError(t, json.Unmarshal([]byte(raw), &m))

	dm := m.Normalize(time.Now(), nil, nil)
	assert.Equal(t, []string{"Yes", "No"}, dm.Outcomes)
	assert.Zero(t, dm.VolumeNum)
	assert.True(t, dm.Active)
	assert.False(t, dm.HasEndDate)
	// A bare non-JSON price string becomes the single first price; the
	// second outcome pads to the even split.
	require.Len(t, dm.OutcomePrices, 2)
	assert.Equal(t, 0.5, dm.OutcomePrices[1])
}

func TestNormalizeFinalizedImpliesClosed(t *testing.T) {
	m := APIMarket{Finalized: true}
	dm := m.Normalize(time.Now(), nil, nil)
	assert.True(t, dm.Closed)
	assert.True(t, dm.Finalized)
}

func TestNormalizeEndDateAlternates(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	m := APIMarket{EndDateAlt: "2025-06-03T12:30:00Z"}
	dm := m.Normalize(now, nil, nil)

	assert.True(t, dm.HasEndDate)
	assert.Equal(t, 2, dm.DaysUntil)
	assert.Equal(t, 12, dm.HoursUntil)
	assert.Equal(t, 30, dm.MinutesUntil)
	assert.Equal(t, 0, dm.SecondsUntil)
}

func TestNormalizePassedEndDateIsNegative(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := APIMarket{EndDateAlt: "2025-06-01T07:00:00Z"}
	dm := m.Normalize(now, nil, nil)

	require.True(t, dm.HasEndDate)
	// Five hours past resolution floors to day -1, not day 0.
	assert.Equal(t, -1, dm.DaysUntil)
	assert.Equal(t, -5, dm.HoursUntil)
}

func TestNormalizeIdempotentOnRepeat(t *testing.T) {
	raw := `{
		"id": "100",
		"slug": "s",
		"tags": [{"label":"Politics"}],
		"markets": [{"id":"1","outcomes":"[\"Yes\",\"No\"]","outcomePrices":"[\"0.7\",\"0.3\"]"}]
	}`
	var ev APIEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &ev))

	now := time.Now()
	first := ev.Normalize(now)
	second := ev.Normalize(now)
	assert.Equal(t, first, second)
}
