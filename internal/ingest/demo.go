package ingest

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"
)

// demoMarkets seed the demo data source. IDs are stable so favoriting
// and metadata enrichment behave the same as with live data.
var demoMarkets = []struct {
	id      string
	title   string
	outcome string
}{
	{"demo-election-2028", "Will turnout exceed 60% in 2028?", "Yes"},
	{"demo-btc-100k", "Bitcoin above $100k by year end?", "No"},
	{"demo-superbowl", "Will the favorite win the Super Bowl?", "Yes"},
	{"demo-rate-cut", "Fed rate cut this quarter?", "No"},
}

// DemoSource produces deterministic sample trades without network
// access. It satisfies the same fetch contract as Client so demo mode
// swaps in transparently underneath the aggregator.
type DemoSource struct {
	base time.Time
}

// NewDemoSource creates a demo source anchored at the given base time.
func NewDemoSource(base time.Time) *DemoSource {
	return &DemoSource{base: base}
}

// FetchTrades synthesizes limit raw trades for the wallet. Output is a
// pure function of (address, limit, base time).
func (d *DemoSource) FetchTrades(_ context.Context, address string, limit int) ([]RawTrade, error) {
	if limit <= 0 {
		limit = DefaultTradeLimit
	}

	h := fnv.New64a()
	h.Write([]byte(address))
	seed := h.Sum64()

	raws := make([]RawTrade, 0, limit)
	for i := 0; i < limit; i++ {
		market := demoMarkets[int((seed>>uint(i%8))%uint64(len(demoMarkets)))]
		price := float64((seed>>uint(i%16))%80+10) / 100
		size := float64((seed>>uint(i%12))%500 + 5)
		if (seed>>uint(i%7))%2 == 1 {
			size = -size // sell
		}

		raws = append(raws, RawTrade{
			"id":         fmt.Sprintf("demo-%s-%d", address, i),
			"event_id":   market.id,
			"question":   market.title,
			"outcome":    market.outcome,
			"price":      price,
			"amount":     size,
			"created_at": d.base.Add(-time.Duration(i) * 7 * time.Minute).Format(time.RFC3339),
		})
	}
	return raws, nil
}
