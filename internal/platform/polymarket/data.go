package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/marketlens/internal/domain"
)

// DataClient is the REST client for the Polymarket data API, which serves
// holder lists and per-wallet positions and portfolio value. The PNL series
// lives on a separate host, so the client carries both base URLs.
type DataClient struct {
	dataURL    string
	pnlURL     string
	httpClient *http.Client
}

// NewDataClient creates a new data API client.
//
// dataURL is the data API root, e.g. "https://data-api.polymarket.com";
// pnlURL is the PNL API root, e.g. "https://user-pnl-api.polymarket.com".
func NewDataClient(dataURL, pnlURL string) *DataClient {
	return &DataClient{
		dataURL: dataURL,
		pnlURL:  pnlURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// maxHoldersLimit is the hard cap the upstream holders endpoint enforces.
const maxHoldersLimit = 500

// GetHolders returns a market's holders, bucketed by outcome side. market
// is the condition ID. limit is clamped to the upstream maximum; a zero
// minBalance requests the upstream default of 1 share.
func (d *DataClient) GetHolders(ctx context.Context, market string, limit int, minBalance float64) (domain.HolderBuckets, error) {
	if limit <= 0 || limit > maxHoldersLimit {
		limit = maxHoldersLimit
	}
	if minBalance <= 0 {
		minBalance = 1
	}

	params := url.Values{}
	params.Set("market", market)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("minBalance", strconv.FormatFloat(minBalance, 'f', -1, 64))

	body, err := d.doGet(ctx, d.dataURL, "/holders?"+params.Encode())
	if err != nil {
		return domain.HolderBuckets{}, fmt.Errorf("polymarket/data: get holders %s: %w", market, err)
	}

	// The endpoint returns one entry per outcome token, each with its own
	// holder list. Bucketing happens on the flattened set.
	var tokens []struct {
		Token   string      `json:"token"`
		Holders []APIHolder `json:"holders"`
	}
	if err := json.Unmarshal(body, &tokens); err != nil {
		return domain.HolderBuckets{}, fmt.Errorf("polymarket/data: decode holders: %w", err)
	}

	var all []domain.Holder
	for _, tok := range tokens {
		for i := range tok.Holders {
			all = append(all, tok.Holders[i].ToDomainHolder())
		}
	}
	return domain.BucketHolders(all), nil
}

// GetPositions returns a wallet's open positions.
func (d *DataClient) GetPositions(ctx context.Context, wallet string) ([]domain.Position, error) {
	params := url.Values{}
	params.Set("user", wallet)

	body, err := d.doGet(ctx, d.dataURL, "/positions?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/data: get positions %s: %w", wallet, err)
	}

	var positions []domain.Position
	if err := json.Unmarshal(body, &positions); err != nil {
		return nil, fmt.Errorf("polymarket/data: decode positions: %w", err)
	}
	return positions, nil
}

// GetValue returns a wallet's total portfolio value.
func (d *DataClient) GetValue(ctx context.Context, wallet string) ([]domain.AccountValue, error) {
	params := url.Values{}
	params.Set("user", wallet)

	body, err := d.doGet(ctx, d.dataURL, "/value?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/data: get value %s: %w", wallet, err)
	}

	var values []domain.AccountValue
	if err := json.Unmarshal(body, &values); err != nil {
		return nil, fmt.Errorf("polymarket/data: decode value: %w", err)
	}
	return values, nil
}

// GetAllTimePnL returns the latest point of a wallet's PNL series, or nil
// when the wallet has no series at all.
func (d *DataClient) GetAllTimePnL(ctx context.Context, wallet string) (*float64, error) {
	params := url.Values{}
	params.Set("user_address", wallet)

	body, err := d.doGet(ctx, d.pnlURL, "/user-pnl?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/data: get pnl %s: %w", wallet, err)
	}

	var series []APIPnlPoint
	if err := json.Unmarshal(body, &series); err != nil {
		return nil, fmt.Errorf("polymarket/data: decode pnl: %w", err)
	}
	if len(series) == 0 {
		return nil, nil
	}
	latest := series[len(series)-1].P
	return &latest, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

func (d *DataClient) doGet(ctx context.Context, base, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}
