// Package store provides the canonical data models and the persisted
// local state used by the tracker.
package store

import "time"

// Blockchain identifies the chain a wallet address belongs to.
type Blockchain string

const (
	// BlockchainEthereum is an EVM-style hex address.
	BlockchainEthereum Blockchain = "ethereum"
	// BlockchainSolana is a base58 Solana address.
	BlockchainSolana Blockchain = "solana"
)

// Trade sides produced by normalization.
const (
	SideBuy     = "buy"
	SideSell    = "sell"
	SideUnknown = "unknown"
)

// UnknownMarketTitle is the placeholder used when no title survives the
// fallback chain. A trade carrying it (plus a market ID) is eligible for
// metadata enrichment.
const UnknownMarketTitle = "Unknown Market"

// Wallet is a tracked wallet. Address is the canonical identity:
// lowercased for Ethereum, case-preserved for Solana (base58 is
// case-significant).
type Wallet struct {
	Address    string     `json:"address"`
	Blockchain Blockchain `json:"blockchain"`
}

// Trade is the canonical trade record produced by normalization.
type Trade struct {
	// ID is a unique identifier for this trade record, synthesized when
	// the source payload lacks one
	ID string

	// User is the tracked wallet the trade belongs to
	User string

	// MarketID is the market/event/condition identifier
	MarketID string

	// MarketTitle is the display title, UnknownMarketTitle when absent
	MarketTitle string

	// Question is the full market question when enrichment supplied one
	Question string

	// Outcome is the traded outcome label (YES, NO, a team name, ...)
	Outcome string

	// Side is SideBuy, SideSell, or SideUnknown
	Side string

	// Price is the execution price, always finite and non-negative
	Price float64

	// Size is the absolute trade size, always finite and non-negative
	Size float64

	// Timestamp is when the trade occurred
	Timestamp time.Time

	// MarketURL links to the market page, empty when MarketID is empty
	MarketURL string

	// Blockchain is inherited from the owning wallet
	Blockchain Blockchain

	// NeedsMetadata marks the trade as eligible for title enrichment
	NeedsMetadata bool
}

// MarketMetadata is the enrichment record cached per market ID for the
// life of the process. Market titles are treated as immutable.
type MarketMetadata struct {
	Title       string
	Question    string
	Description string
}

// MarketSummary is a normalized market search result.
type MarketSummary struct {
	ID        string
	Title     string
	Liquidity float64
	Category  string
	MarketURL string
	Slug      string
}

// Settings holds user-tunable behavior persisted in local state.
type Settings struct {
	// RefreshIntervalSeconds drives the auto-refresh ticker
	RefreshIntervalSeconds int `json:"refreshIntervalSeconds"`

	// HideWallets masks full addresses in rendered output
	HideWallets bool `json:"hideWallets"`

	// DemoMode swaps the live trade source for deterministic sample data
	DemoMode bool `json:"demoMode"`
}

// DefaultSettings are used when no settings record is persisted.
func DefaultSettings() Settings {
	return Settings{RefreshIntervalSeconds: 60}
}
