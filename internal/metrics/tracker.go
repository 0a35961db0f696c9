// Package metrics tracks per-session stats for the tracker.
package metrics

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time view of session stats.
type Snapshot struct {
	Refreshes       int64
	CacheHits       int64
	TradesFetched   int64
	Enrichments     int64
	LiveTrades      int64
	FetchErrors     map[string]int64 // wallet address -> error count
	LastRefresh     time.Time
	WebSocketStatus string
	Uptime          time.Duration
}

// Tracker provides thread-safe session stats tracking. The TUI stats
// panel reads it through Snapshot.
type Tracker struct {
	mu            sync.RWMutex
	refreshes     int64
	cacheHits     int64
	tradesFetched int64
	enrichments   int64
	liveTrades    int64
	fetchErrors   map[string]int64
	lastRefresh   time.Time
	wsStatus      string
	startTime     time.Time
}

// NewTracker creates a new Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		fetchErrors: make(map[string]int64),
		wsStatus:    "disabled",
		startTime:   time.Now(),
	}
}

// RecordRefresh counts a full network refresh.
func (t *Tracker) RecordRefresh(tradeCount int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refreshes++
	t.tradesFetched += int64(tradeCount)
	t.lastRefresh = time.Now()
}

// RecordCacheHit counts a refresh served from cache.
func (t *Tracker) RecordCacheHit() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cacheHits++
}

// RecordFetchError counts a failed per-wallet fetch.
func (t *Tracker) RecordFetchError(address string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fetchErrors[address]++
}

// RecordEnrichment counts a metadata enrichment attempt that patched a trade.
func (t *Tracker) RecordEnrichment() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enrichments++
}

// RecordLiveTrade counts a trade delivered over the user WebSocket.
func (t *Tracker) RecordLiveTrade() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.liveTrades++
}

// SetWebSocketStatus sets the live-connection status string.
func (t *Tracker) SetWebSocketStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.wsStatus = status
}

// Snapshot returns a point-in-time copy of the stats.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	errorsCopy := make(map[string]int64, len(t.fetchErrors))
	for k, v := range t.fetchErrors {
		errorsCopy[k] = v
	}

	return Snapshot{
		Refreshes:       t.refreshes,
		CacheHits:       t.cacheHits,
		TradesFetched:   t.tradesFetched,
		Enrichments:     t.enrichments,
		LiveTrades:      t.liveTrades,
		FetchErrors:     errorsCopy,
		LastRefresh:     t.lastRefresh,
		WebSocketStatus: t.wsStatus,
		Uptime:          time.Since(t.startTime),
	}
}
