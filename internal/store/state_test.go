package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polymates/engine/internal/report"
)

func TestOpenState_MissingFile(t *testing.T) {
	sink := &report.CaptureSink{}
	s := OpenState(filepath.Join(t.TempDir(), "state.json"), sink)

	var wallets []Wallet
	assert.False(t, s.Get(KeyWallets, &wallets))
	assert.Empty(t, sink.Errors(), "a missing file is not an error")
}

func TestOpenState_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	sink := &report.CaptureSink{}
	s := OpenState(path, sink)

	var wallets []Wallet
	assert.False(t, s.Get(KeyWallets, &wallets))
	require.Len(t, sink.Errors(), 1)
	assert.ErrorIs(t, sink.Errors()[0], ErrPersistence)
}

func TestStateStore_PutGetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	sink := &report.CaptureSink{}

	s := OpenState(path, sink)
	s.Put(KeyWallets, []Wallet{{Address: "0xabc", Blockchain: BlockchainEthereum}})
	s.Put(KeyOnboarding, true)

	// Reopen to prove it survived the round trip to disk.
	reopened := OpenState(path, sink)

	var wallets []Wallet
	require.True(t, reopened.Get(KeyWallets, &wallets))
	require.Len(t, wallets, 1)
	assert.Equal(t, "0xabc", wallets[0].Address)

	var onboarded bool
	require.True(t, reopened.Get(KeyOnboarding, &onboarded))
	assert.True(t, onboarded)

	assert.Empty(t, sink.Errors())
}

func TestStateStore_CorruptValueTreatedAsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"polymates_tracked_wallets": "oops"}`), 0o644))

	sink := &report.CaptureSink{}
	s := OpenState(path, sink)

	var wallets []Wallet
	assert.False(t, s.Get(KeyWallets, &wallets))
	require.Len(t, sink.Errors(), 1)
}

func TestStateStore_Delete(t *testing.T) {
	s := OpenState(filepath.Join(t.TempDir(), "state.json"), report.NopSink{})
	s.Put(KeyTheme, "dark")
	s.Delete(KeyTheme)

	var theme string
	assert.False(t, s.Get(KeyTheme, &theme))
}
