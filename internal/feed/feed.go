// Package feed aggregates per-wallet trade history into a single
// chronological feed with a time-boxed cache.
package feed

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/polymates/engine/internal/ingest"
	"github.com/polymates/engine/internal/metrics"
	"github.com/polymates/engine/internal/report"
	"github.com/polymates/engine/internal/store"
)

// DefaultCacheTTL bounds how long a merged feed serves from cache.
const DefaultCacheTTL = 30 * time.Second

// Side filter values accepted by SetFilter.
const (
	FilterAll  = "all"
	FilterBuy  = store.SideBuy
	FilterSell = store.SideSell
)

// TradeSource fetches raw trade history for one wallet.
type TradeSource interface {
	FetchTrades(ctx context.Context, address string, limit int) ([]ingest.RawTrade, error)
}

// MetadataSource resolves market metadata for enrichment. A nil result
// means the lookup failed or returned nothing; enrichment skips on.
type MetadataSource interface {
	Resolve(ctx context.Context, marketID string) *store.MarketMetadata
}

// WalletSource supplies the tracked wallet set.
type WalletSource interface {
	Wallets() []store.Wallet
}

// Renderer receives the filtered feed after every Refresh and after
// filter changes served from cache. The core invokes it unconditionally;
// wire NopRenderer when nothing consumes it.
type Renderer interface {
	RenderFeed(trades []store.Trade)
}

// NopRenderer discards feed notifications.
type NopRenderer struct{}

// RenderFeed discards the trades.
func (NopRenderer) RenderFeed([]store.Trade) {}

// Service owns the feed cache and orchestrates fetch, normalize, enrich,
// merge, and sort across all tracked wallets. The cache holds the
// unfiltered sorted list; the side filter is recomputed per read.
type Service struct {
	source   TradeSource
	metadata MetadataSource
	wallets  WalletSource
	renderer Renderer
	sink     report.Sink
	tracker  *metrics.Tracker

	limit int
	ttl   time.Duration
	now   func() time.Time

	mu          sync.Mutex
	trades      []store.Trade
	lastFetched time.Time
	filter      string
}

// NewService creates a feed service. limit caps per-wallet history; a
// non-positive ttl falls back to DefaultCacheTTL.
func NewService(source TradeSource, metadata MetadataSource, wallets WalletSource,
	renderer Renderer, sink report.Sink, tracker *metrics.Tracker,
	limit int, ttl time.Duration) *Service {

	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if limit <= 0 {
		limit = ingest.DefaultTradeLimit
	}
	return &Service{
		source:   source,
		metadata: metadata,
		wallets:  wallets,
		renderer: renderer,
		sink:     sink,
		tracker:  tracker,
		limit:    limit,
		ttl:      ttl,
		now:      time.Now,
		filter:   FilterAll,
	}
}

// Refresh returns the filtered feed, serving from cache while it is
// fresh and refetching otherwise. A failed fetch for one wallet never
// cancels the others; partial results are merged and the failure is
// reported per wallet.
func (s *Service) Refresh(ctx context.Context) []store.Trade {
	s.mu.Lock()
	if !s.lastFetched.IsZero() && s.now().Sub(s.lastFetched) < s.ttl {
		out := filterTrades(s.trades, s.filter)
		s.mu.Unlock()
		s.tracker.RecordCacheHit()
		s.renderer.RenderFeed(out)
		return out
	}
	s.mu.Unlock()

	wallets := s.wallets.Wallets()
	if len(wallets) == 0 {
		s.mu.Lock()
		s.trades = nil
		s.lastFetched = s.now()
		s.mu.Unlock()
		s.renderer.RenderFeed(nil)
		return nil
	}

	merged := s.fetchAll(ctx, wallets)
	s.enrich(ctx, merged)
	sortTrades(merged)

	// Cache contents and timestamp update together under the lock, so a
	// concurrent reader never observes a half-written cache. When two
	// refreshes overlap, the later completion wins.
	s.mu.Lock()
	s.trades = merged
	s.lastFetched = s.now()
	out := filterTrades(s.trades, s.filter)
	s.mu.Unlock()

	s.tracker.RecordRefresh(len(merged))
	s.renderer.RenderFeed(out)
	return out
}

// fetchAll fans out one fetch per wallet concurrently and joins with an
// all-settled barrier, normalizing each wallet's raw trades in place.
func (s *Service) fetchAll(ctx context.Context, wallets []store.Wallet) []store.Trade {
	results := make([][]store.Trade, len(wallets))

	var wg sync.WaitGroup
	for i, w := range wallets {
		wg.Add(1)
		go func(i int, w store.Wallet) {
			defer wg.Done()

			raws, err := s.source.FetchTrades(ctx, w.Address, s.limit)
			if err != nil {
				s.sink.Report(fmt.Errorf("fetch trades for wallet %s: %w", w.Address, err))
				s.tracker.RecordFetchError(w.Address)
				return
			}

			trades := make([]store.Trade, 0, len(raws))
			for _, raw := range raws {
				trade, err := ingest.NormalizeTrade(raw, w.Address)
				if err != nil {
					// One bad record never aborts the batch.
					s.sink.Report(err)
					continue
				}
				trade.Blockchain = w.Blockchain
				trades = append(trades, trade)
			}
			results[i] = trades
		}(i, w)
	}
	wg.Wait()

	var merged []store.Trade
	for _, trades := range results {
		merged = append(merged, trades...)
	}
	return merged
}

// enrich patches titles for trades flagged as needing metadata. Misses
// leave the placeholder in place.
func (s *Service) enrich(ctx context.Context, trades []store.Trade) {
	for i := range trades {
		if !trades[i].NeedsMetadata {
			continue
		}
		meta := s.metadata.Resolve(ctx, trades[i].MarketID)
		if meta == nil {
			continue
		}
		if meta.Title != "" {
			trades[i].MarketTitle = meta.Title
		}
		trades[i].Question = meta.Question
		s.tracker.RecordEnrichment()
	}
}

// sortTrades orders by timestamp descending, breaking ties by price
// descending. The sort is stable so equal pairs keep arrival order.
func sortTrades(trades []store.Trade) {
	sort.SliceStable(trades, func(i, j int) bool {
		if !trades[i].Timestamp.Equal(trades[j].Timestamp) {
			return trades[i].Timestamp.After(trades[j].Timestamp)
		}
		return trades[i].Price > trades[j].Price
	})
}

// filterTrades returns the side-filtered view. FilterAll is the identity.
func filterTrades(trades []store.Trade, filter string) []store.Trade {
	out := make([]store.Trade, 0, len(trades))
	if filter == FilterAll || filter == "" {
		return append(out, trades...)
	}
	for _, t := range trades {
		if t.Side == filter {
			out = append(out, t)
		}
	}
	return out
}

// SetFilter updates the active side filter. When the cache is still
// fresh the renderer is re-notified from cache without a refetch;
// unknown values are ignored.
func (s *Service) SetFilter(filter string) {
	if filter != FilterAll && filter != FilterBuy && filter != FilterSell {
		return
	}

	s.mu.Lock()
	s.filter = filter
	fresh := !s.lastFetched.IsZero() && s.now().Sub(s.lastFetched) < s.ttl
	out := filterTrades(s.trades, s.filter)
	s.mu.Unlock()

	if fresh {
		s.renderer.RenderFeed(out)
	}
}

// Filter returns the active side filter.
func (s *Service) Filter() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Invalidate forces the next Refresh to refetch. Called after wallet
// add/remove and on explicit user refresh.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.lastFetched = time.Time{}
	s.mu.Unlock()
}

// Cached returns the current filtered view and the cache timestamp
// without touching the network.
func (s *Service) Cached() ([]store.Trade, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filterTrades(s.trades, s.filter), s.lastFetched
}
