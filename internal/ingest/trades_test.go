package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_FetchTrades(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, wallet, r.URL.Query().Get("user"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		w.Write([]byte(`[{"id": "t1", "price": "0.5"}, {"id": "t2"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, "secret-key")
	raws, err := c.FetchTrades(context.Background(), wallet, 5)
	require.NoError(t, err)
	require.Len(t, raws, 2)
	assert.Equal(t, "t1", raws[0]["id"])
	assert.Equal(t, "Bearer secret-key", gotAuth)
}

func TestClient_FetchTrades_DefaultLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Empty(t, r.Header.Get("Authorization"), "no auth header without a key")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, "")
	raws, err := c.FetchTrades(context.Background(), wallet, 0)
	require.NoError(t, err)
	assert.Empty(t, raws)
}

func TestClient_FetchTrades_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, "")
	raws, err := c.FetchTrades(context.Background(), wallet, 10)
	assert.ErrorIs(t, err, ErrFetch)
	assert.Nil(t, raws)
}

func TestClient_FetchTrades_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, srv.URL, "")
	_, err := c.FetchTrades(context.Background(), wallet, 10)
	assert.ErrorIs(t, err, ErrFetch)
}

func TestClient_FetchTrades_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"oops`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, "")
	_, err := c.FetchTrades(context.Background(), wallet, 10)
	assert.ErrorIs(t, err, ErrFetch)
}
