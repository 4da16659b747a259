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

// ClobClient is the REST client for the Polymarket CLOB API, which serves
// order books and price history per outcome token.
type ClobClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewClobClient creates a new CLOB API client.
//
// baseURL is the CLOB API root, e.g. "https://clob.polymarket.com".
func NewClobClient(baseURL string) *ClobClient {
	return &ClobClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetBook returns the summarized order book for an outcome token. A token
// with no book upstream returns domain.ErrNotFound.
func (c *ClobClient) GetBook(ctx context.Context, tokenID string) (domain.BookSummary, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)

	body, err := c.doGet(ctx, "/book?"+params.Encode())
	if err != nil {
		return domain.BookSummary{}, fmt.Errorf("polymarket/clob: get book %s: %w", tokenID, err)
	}

	var book APIBook
	if err := json.Unmarshal(body, &book); err != nil {
		return domain.BookSummary{}, fmt.Errorf("polymarket/clob: decode book: %w", err)
	}

	sum := domain.SummarizeBook(tokenID, ToDomainLevels(book.Bids), ToDomainLevels(book.Asks))
	if ts, err := strconv.ParseInt(book.Timestamp, 10, 64); err == nil {
		sum.Timestamp = time.UnixMilli(ts)
	} else {
		sum.Timestamp = time.Now()
	}
	return sum, nil
}

// GetPriceHistory returns the price series for an outcome token. interval
// is an upstream window name such as "1d" or "1w"; fidelity is the sample
// resolution in minutes. Zero fidelity omits the parameter.
func (c *ClobClient) GetPriceHistory(ctx context.Context, tokenID, interval string, fidelity int) (domain.PriceHistory, error) {
	params := url.Values{}
	params.Set("market", tokenID)
	if interval != "" {
		params.Set("interval", interval)
	}
	if fidelity > 0 {
		params.Set("fidelity", strconv.Itoa(fidelity))
	}

	body, err := c.doGet(ctx, "/prices-history?"+params.Encode())
	if err != nil {
		return domain.PriceHistory{}, fmt.Errorf("polymarket/clob: get price history %s: %w", tokenID, err)
	}

	var resp struct {
		History []APIPnlPoint `json:"history"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.PriceHistory{}, fmt.Errorf("polymarket/clob: decode price history: %w", err)
	}

	h := domain.PriceHistory{TokenID: tokenID, Points: make([]domain.PricePoint, 0, len(resp.History))}
	for _, p := range resp.History {
		h.Points = append(h.Points, domain.PricePoint{Timestamp: p.T, Price: p.P})
	}
	return h, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

func (c *ClobClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
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

// StatusError preserves the upstream HTTP status for callers that need to
// relay it (the events proxy propagates upstream 5xx codes verbatim).
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

// checkHTTPStatus maps non-2xx status codes to appropriate domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return &StatusError{Code: statusCode, Body: bodyStr}
	}
}
