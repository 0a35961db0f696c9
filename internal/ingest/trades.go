package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// DefaultTradeLimit caps per-wallet trade history requests.
const DefaultTradeLimit = 20

// Client talks to the Polymarket data API.
type Client struct {
	tradesURL  string
	marketsURL string
	apiKey     string
	http       *http.Client
}

// NewClient creates a data API client. An empty apiKey sends no
// Authorization header.
func NewClient(tradesURL, marketsURL, apiKey string) *Client {
	return &Client{
		tradesURL:  tradesURL,
		marketsURL: marketsURL,
		apiKey:     apiKey,
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchTrades issues one read request for a wallet's recent trades,
// capped at limit results. The caller owns failure reporting; on error
// the returned slice is nil and the aggregation continues without it.
func (c *Client) FetchTrades(ctx context.Context, address string, limit int) ([]RawTrade, error) {
	if limit <= 0 {
		limit = DefaultTradeLimit
	}

	query := url.Values{}
	query.Set("user", address)
	query.Set("limit", fmt.Sprintf("%d", limit))

	var raws []RawTrade
	if err := c.getJSON(ctx, c.tradesURL+"?"+query.Encode(), &raws); err != nil {
		return nil, fmt.Errorf("trades for %s: %w", address, err)
	}
	return raws, nil
}

// getJSON performs a GET and decodes the body into v.
func (c *Client) getJSON(ctx context.Context, endpoint string, v any) error {
	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", ErrFetch, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrFetch, err)
	}
	return nil
}

// get issues a GET with the client's auth headers. The caller closes the
// body.
func (c *Client) get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrFetch, err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	return resp, nil
}
