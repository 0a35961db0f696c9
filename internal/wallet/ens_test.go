package wallet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestENSResolver_Resolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vitalik.eth", r.URL.Path)
		w.Write([]byte(`{"address": "` + ethAddrUpper + `", "name": "vitalik.eth"}`))
	}))
	defer srv.Close()

	resolver := NewENSResolver(srv.URL)
	addr, err := resolver.Resolve(context.Background(), "vitalik.eth")
	require.NoError(t, err)
	assert.Equal(t, ethAddr, addr, "resolved address is lowercased")
}

func TestENSResolver_NoAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"name": "ghost.eth"}`))
	}))
	defer srv.Close()

	_, err := NewENSResolver(srv.URL).Resolve(context.Background(), "ghost.eth")
	assert.ErrorIs(t, err, ErrResolution)
}

func TestENSResolver_UnrecognizedAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"address": "0xdeadbeef"}`))
	}))
	defer srv.Close()

	_, err := NewENSResolver(srv.URL).Resolve(context.Background(), "short.eth")
	assert.ErrorIs(t, err, ErrResolution)
}

func TestENSResolver_HTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewENSResolver(srv.URL).Resolve(context.Background(), "vitalik.eth")
	assert.ErrorIs(t, err, ErrResolution)
}

func TestENSResolver_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // closed before use

	_, err := NewENSResolver(srv.URL).Resolve(context.Background(), "vitalik.eth")
	assert.ErrorIs(t, err, ErrResolution)
}
