package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/polymates/engine/internal/store"
)

// SearchResultLimit caps market search results.
const SearchResultLimit = 20

// searchParams are the query-parameter conventions tried in priority
// order before falling back to client-side filtering.
var searchParams = []string{"query", "search", "q", "text"}

// FetchMarkets issues a GET against the markets endpoint with the given
// query values and unwraps the payload, which may be a bare array or an
// object carrying the array under a known key.
func (c *Client) FetchMarkets(ctx context.Context, query url.Values) ([]RawTrade, error) {
	endpoint := c.marketsURL
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrFetch, resp.StatusCode)
	}

	var payload json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode markets response: %v", ErrFetch, err)
	}

	markets, ok := unwrapMarkets(payload)
	if !ok {
		return nil, fmt.Errorf("%w: unrecognized markets payload shape", ErrFetch)
	}
	return markets, nil
}

// unwrapMarkets accepts a bare array or an object exposing the array
// under one of the known field names.
func unwrapMarkets(payload json.RawMessage) ([]RawTrade, bool) {
	var markets []RawTrade
	if err := json.Unmarshal(payload, &markets); err == nil {
		return markets, true
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(payload, &wrapped); err != nil {
		return nil, false
	}

	for _, key := range []string{"data", "results", "markets"} {
		inner, ok := wrapped[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(inner, &markets); err == nil {
			return markets, true
		}
	}
	return nil, false
}

// SearchMarkets queries the markets endpoint for query, trying each
// parameter convention until one yields results, then falling back to
// fetching active markets and filtering client-side. A blank query
// returns no results without a request. On total failure the error is
// returned alongside an empty result; it never aborts anything upstream.
func (c *Client) SearchMarkets(ctx context.Context, query string) ([]store.MarketSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	for _, param := range searchParams {
		values := url.Values{}
		values.Set(param, query)
		values.Set("limit", fmt.Sprintf("%d", SearchResultLimit))

		markets, err := c.FetchMarkets(ctx, values)
		if err != nil {
			slog.Debug("market_search_attempt_failed", "param", param, "error", err)
			continue
		}
		if len(markets) == 0 {
			// Well-formed but empty: the convention may be silently
			// ignored by the endpoint, so keep trying.
			continue
		}
		return normalizeMarkets(markets), nil
	}

	// Fallback: pull a generic active-markets page and filter here.
	values := url.Values{}
	values.Set("limit", "100")
	values.Set("active", "true")

	markets, err := c.FetchMarkets(ctx, values)
	if err != nil {
		return nil, fmt.Errorf("market search for %q: %w", query, err)
	}

	needle := strings.ToLower(query)
	var matched []RawTrade
	for _, market := range markets {
		title := strings.ToLower(stringField(market, "question", "title", "name"))
		category := strings.ToLower(stringField(market, "category", "group"))
		if strings.Contains(title, needle) || strings.Contains(category, needle) {
			matched = append(matched, market)
			if len(matched) == SearchResultLimit {
				break
			}
		}
	}

	return normalizeMarkets(matched), nil
}

// NormalizeMarket maps one raw market record into a canonical summary
// with the same fallback-chain discipline as trade normalization.
func NormalizeMarket(raw RawTrade) store.MarketSummary {
	marketID := stringField(raw, "slug", "id", "condition_id")

	marketURL := ""
	if marketID != "" {
		marketURL = EventURLBase + marketID
	}

	title := stringField(raw, "question", "title", "name")
	if title == "" {
		title = store.UnknownMarketTitle
	}

	category := stringField(raw, "category", "group")
	if category == "" {
		category = "Uncategorized"
	}

	return store.MarketSummary{
		ID:        marketID,
		Title:     title,
		Liquidity: firstFloat(raw, "liquidity", "volume"),
		Category:  category,
		MarketURL: marketURL,
		Slug:      stringField(raw, "slug"),
	}
}

func normalizeMarkets(raws []RawTrade) []store.MarketSummary {
	out := make([]store.MarketSummary, 0, len(raws))
	for _, raw := range raws {
		out = append(out, NormalizeMarket(raw))
	}
	return out
}

// MetadataResolver performs on-demand, cached market title lookups for
// trades whose embedded title is absent. Entries cache for the life of
// the process; market titles are effectively immutable. Concurrent cold
// lookups for the same ID may issue redundant requests, which is
// harmless for an idempotent read.
type MetadataResolver struct {
	client *Client

	mu    sync.Mutex
	cache map[string]*store.MarketMetadata
}

// NewMetadataResolver creates a resolver backed by the given client.
func NewMetadataResolver(client *Client) *MetadataResolver {
	return &MetadataResolver{
		client: client,
		cache:  make(map[string]*store.MarketMetadata),
	}
}

// Resolve returns metadata for a market, or nil when the ID is empty,
// the lookup fails, or no result comes back. Enrichment is best-effort
// and must never block feed assembly on an error path.
func (r *MetadataResolver) Resolve(ctx context.Context, marketID string) *store.MarketMetadata {
	if marketID == "" {
		return nil
	}

	r.mu.Lock()
	cached, ok := r.cache[marketID]
	r.mu.Unlock()
	if ok {
		return cached
	}

	values := url.Values{}
	values.Set("ids", marketID)

	markets, err := r.client.FetchMarkets(ctx, values)
	if err != nil {
		slog.Debug("market_metadata_lookup_failed", "market_id", marketID, "error", err)
		return nil
	}
	if len(markets) == 0 {
		return nil
	}

	market := markets[0]
	meta := &store.MarketMetadata{
		Title:       stringField(market, "question", "title", "market_title"),
		Question:    stringField(market, "question", "title"),
		Description: stringField(market, "description"),
	}
	if meta.Title == "" {
		meta.Title = store.UnknownMarketTitle
	}

	r.mu.Lock()
	r.cache[marketID] = meta
	r.mu.Unlock()

	return meta
}
