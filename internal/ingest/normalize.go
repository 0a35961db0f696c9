// Package ingest talks to the external trading-data APIs and normalizes
// their loosely-structured payloads into canonical records.
package ingest

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/polymates/engine/internal/store"
)

// EventURLBase is the URL template prefix for market pages.
const EventURLBase = "https://polymarket.com/event/"

// RawTrade is a trade record exactly as the API returned it. The schema
// varies across endpoints and API versions, so it stays a loose map until
// normalization; nothing downstream of NormalizeTrade sees this shape.
type RawTrade map[string]any

// NormalizeTrade maps one raw trade plus its owning wallet address into
// the canonical record, applying ordered field-fallback chains. It never
// produces a negative or non-finite price/size and never returns a side
// outside buy/sell/unknown. A nil raw record is the one mapping failure.
func NormalizeTrade(raw RawTrade, walletAddress string) (store.Trade, error) {
	if raw == nil {
		return store.Trade{}, fmt.Errorf("%w: nil raw trade", ErrNormalization)
	}

	timestamp := time.Now()
	if ts, ok := timeField(raw, "created_at"); ok {
		timestamp = ts
	}

	side := store.SideUnknown
	if isBuy, ok := boolField(raw, "isBuy"); ok {
		if isBuy {
			side = store.SideBuy
		} else {
			side = store.SideSell
		}
	} else if s := strings.ToLower(stringField(raw, "side")); s == store.SideBuy || s == store.SideSell {
		side = s
	} else if amount, ok := floatField(raw, "amount"); ok {
		if amount > 0 {
			side = store.SideBuy
		} else {
			side = store.SideSell
		}
	}

	marketID := stringField(raw, "event_id", "market_id", "condition_id")

	marketTitle := stringField(raw, "market_title", "event_title", "question")
	if marketTitle == "" {
		marketTitle = store.UnknownMarketTitle
	}

	outcome := stringField(raw, "outcome", "token", "outcome_title")
	if outcome == "" {
		outcome = "Unknown"
	}

	price := firstFloat(raw, "price", "outcome_price")
	size := firstFloat(raw, "amount", "size")

	id := stringField(raw, "id", "tx_hash")
	if id == "" {
		id = fmt.Sprintf("%s-%d-%d", walletAddress, timestamp.UnixMilli(), rand.Int63())
	}

	marketURL := ""
	if marketID != "" {
		marketURL = EventURLBase + marketID
	}

	return store.Trade{
		ID:            id,
		User:          walletAddress,
		MarketID:      marketID,
		MarketTitle:   marketTitle,
		Outcome:       outcome,
		Side:          side,
		Price:         price,
		Size:          size,
		Timestamp:     timestamp,
		MarketURL:     marketURL,
		NeedsMetadata: marketTitle == store.UnknownMarketTitle && marketID != "",
	}, nil
}

// stringField returns the first key whose value is a non-empty string,
// stringifying numeric values on the way (some endpoints send IDs as
// numbers).
func stringField(raw RawTrade, keys ...string) string {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// boolField reads a boolean field, tolerating "true"/"false" strings.
func boolField(raw RawTrade, key string) (bool, bool) {
	switch v := raw[key].(type) {
	case bool:
		return v, true
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b, true
		}
	}
	return false, false
}

// floatField parses a numeric field that may arrive as a number or a
// string. Non-finite values are rejected.
func floatField(raw RawTrade, key string) (float64, bool) {
	var f float64
	switch v := raw[key].(type) {
	case float64:
		f = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// firstFloat walks the fallback chain and returns the absolute value of
// the first parseable non-zero field, or 0.
func firstFloat(raw RawTrade, keys ...string) float64 {
	for _, key := range keys {
		if f, ok := floatField(raw, key); ok && f != 0 {
			return math.Abs(f)
		}
	}
	return 0
}

// timeField parses a timestamp that may be RFC3339 or a Unix value in
// seconds or milliseconds.
func timeField(raw RawTrade, key string) (time.Time, bool) {
	switch v := raw[key].(type) {
	case string:
		if v == "" {
			return time.Time{}, false
		}
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			return fromUnix(ts), true
		}
		for _, format := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02 15:04:05"} {
			if t, err := time.Parse(format, v); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	case float64:
		return fromUnix(int64(v)), true
	}
	return time.Time{}, false
}

// fromUnix interprets large values as milliseconds, small as seconds.
func fromUnix(ts int64) time.Time {
	if ts > 1e12 {
		return time.UnixMilli(ts)
	}
	return time.Unix(ts, 0)
}
