package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timeMustParse(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func TestMetadataResolver_CachesPermanently(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		assert.Equal(t, "m1", r.URL.Query().Get("ids"))
		w.Write([]byte(`[{"question": "Will it rain?", "description": "Rain market"}]`))
	}))
	defer srv.Close()

	r := NewMetadataResolver(NewClient(srv.URL, srv.URL, ""))

	meta := r.Resolve(context.Background(), "m1")
	require.NotNil(t, meta)
	assert.Equal(t, "Will it rain?", meta.Title)
	assert.Equal(t, "Will it rain?", meta.Question)
	assert.Equal(t, "Rain market", meta.Description)

	again := r.Resolve(context.Background(), "m1")
	require.NotNil(t, again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests), "second resolve served from cache")
}

func TestMetadataResolver_BestEffortNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewMetadataResolver(NewClient(srv.URL, srv.URL, ""))

	assert.Nil(t, r.Resolve(context.Background(), ""), "empty id short-circuits")
	assert.Nil(t, r.Resolve(context.Background(), "m1"), "lookup failure is nil, not an error")
}

func TestMetadataResolver_EmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	r := NewMetadataResolver(NewClient(srv.URL, srv.URL, ""))
	assert.Nil(t, r.Resolve(context.Background(), "m1"))
}

func TestSearchMarkets_BlankQueryNoRequest(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		atomic.AddInt32(&requests, 1)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, "")

	results, err := c.SearchMarkets(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, atomic.LoadInt32(&requests))
}

func TestSearchMarkets_TriesConventionsInOrder(t *testing.T) {
	var params []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("query") != "":
			params = append(params, "query")
			w.WriteHeader(http.StatusNotFound)
		case q.Get("search") != "":
			params = append(params, "search")
			w.Write([]byte(`{"results": [{"id": "m1", "title": "Rain market"}]}`))
		default:
			t.Errorf("unexpected request: %s", r.URL.RawQuery)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, "")
	results, err := c.SearchMarkets(context.Background(), "rain")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "m1", results[0].ID)
	assert.Equal(t, []string{"query", "search"}, params, "404 on first convention, success on second")
}

func TestSearchMarkets_EmptyResponseTriesNext(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		if r.URL.Query().Get("text") != "" {
			w.Write([]byte(`[{"id": "m9", "question": "Found at last"}]`))
			return
		}
		// Well-formed but empty for query/search/q and any fallback.
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, "")
	results, err := c.SearchMarkets(context.Background(), "last")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "m9", results[0].ID)
	assert.Equal(t, int32(4), atomic.LoadInt32(&attempts), "query, search, q, then text")
}

func TestSearchMarkets_WrappedPayloadShapes(t *testing.T) {
	for _, key := range []string{"data", "results", "markets"} {
		t.Run(key, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"` + key + `": [{"id": "m1", "title": "Wrapped"}]}`))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, srv.URL, "")
			results, err := c.SearchMarkets(context.Background(), "wrapped")
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, "Wrapped", results[0].Title)
		})
	}
}

func TestSearchMarkets_ClientSideFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("active") == "true" {
			assert.Equal(t, "100", q.Get("limit"))
			w.Write([]byte(`[
				{"id": "m1", "question": "Will Bitcoin hit 100k?", "category": "Crypto"},
				{"id": "m2", "question": "Super Bowl winner?", "category": "Sports"},
				{"id": "m3", "title": "Other", "category": "crypto adjacent"}
			]`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, "")
	results, err := c.SearchMarkets(context.Background(), "CRYPTO")
	require.NoError(t, err)
	require.Len(t, results, 2, "case-insensitive match on title and category")
	assert.Equal(t, "m1", results[0].ID)
	assert.Equal(t, "m3", results[1].ID)
}

func TestSearchMarkets_TotalFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, "")
	results, err := c.SearchMarkets(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrFetch)
	assert.Empty(t, results)
}

func TestDemoSource_Deterministic(t *testing.T) {
	base := timeMustParse(t, "2024-05-01T00:00:00Z")

	d := NewDemoSource(base)
	first, err := d.FetchTrades(context.Background(), wallet, 10)
	require.NoError(t, err)
	second, err := d.FetchTrades(context.Background(), wallet, 10)
	require.NoError(t, err)

	require.Len(t, first, 10)
	assert.Equal(t, first, second, "demo output is a pure function of its inputs")

	// Demo raws normalize cleanly through the standard pipeline.
	for _, raw := range first {
		trade, err := NormalizeTrade(raw, wallet)
		require.NoError(t, err)
		assert.NotEmpty(t, trade.MarketID)
		assert.NotEqual(t, "", trade.Side)
	}
}
