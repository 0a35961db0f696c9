package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ENSLookup resolves an ENS name to a wallet address.
type ENSLookup interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// ENSResolver resolves ENS names through an external HTTP resolver.
type ENSResolver struct {
	baseURL string
	client  *http.Client
}

// NewENSResolver creates a resolver against the given endpoint base.
func NewENSResolver(baseURL string) *ENSResolver {
	return &ENSResolver{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// ensResponse is the resolver payload; only the address field matters.
type ensResponse struct {
	Address string `json:"address"`
}

// Resolve looks up name and returns its lowercased address. It fails when
// the HTTP call fails, the response carries no address, or the returned
// address does not classify as a known chain.
func (r *ENSResolver) Resolve(ctx context.Context, name string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s", r.baseURL, url.PathEscape(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("%w: create request for %s: %v", ErrResolution, name, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: request for %s: %v", ErrResolution, name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: resolver returned status %d for %s", ErrResolution, resp.StatusCode, name)
	}

	var payload ensResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decode response for %s: %v", ErrResolution, name, err)
	}

	if payload.Address == "" {
		return "", fmt.Errorf("%w: no address for %s", ErrResolution, name)
	}

	if _, ok := Classify(payload.Address); !ok {
		return "", fmt.Errorf("%w: resolver returned unrecognized address for %s", ErrResolution, name)
	}

	return strings.ToLower(payload.Address), nil
}

var _ ENSLookup = (*ENSResolver)(nil)
