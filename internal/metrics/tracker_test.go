package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_Snapshot(t *testing.T) {
	tr := NewTracker()

	tr.RecordRefresh(12)
	tr.RecordRefresh(3)
	tr.RecordCacheHit()
	tr.RecordFetchError("0xabc")
	tr.RecordFetchError("0xabc")
	tr.RecordEnrichment()
	tr.RecordLiveTrade()
	tr.SetWebSocketStatus("connected")

	snap := tr.Snapshot()
	assert.Equal(t, int64(2), snap.Refreshes)
	assert.Equal(t, int64(15), snap.TradesFetched)
	assert.Equal(t, int64(1), snap.CacheHits)
	assert.Equal(t, int64(2), snap.FetchErrors["0xabc"])
	assert.Equal(t, int64(1), snap.Enrichments)
	assert.Equal(t, int64(1), snap.LiveTrades)
	assert.Equal(t, "connected", snap.WebSocketStatus)
	assert.False(t, snap.LastRefresh.IsZero())
}

func TestTracker_SnapshotIsolation(t *testing.T) {
	tr := NewTracker()
	tr.RecordFetchError("0xabc")

	snap := tr.Snapshot()
	snap.FetchErrors["0xother"] = 99

	assert.NotContains(t, tr.Snapshot().FetchErrors, "0xother", "snapshot map is a copy")
}
