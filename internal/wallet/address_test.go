package wallet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/polymates/engine/internal/store"
)

const (
	ethAddr    = "0x1a2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b"
	solanaAddr = "4Nd1mYvM6t8mspAEZYYt8YbXY5vScSdVrcNUqGm6FGcV"
)

func TestIsEthereumAddress(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{ethAddr, true},
		{strings.ToUpper(ethAddr[2:]), false}, // missing 0x prefix
		{"0X" + ethAddr[2:], false},           // uppercase prefix
		{"0x1A2B3C4D5E6F7A8B9C0D1E2F3A4B5C6D7E8F9A0B", true}, // mixed case hex
		{ethAddr + "ff", false},  // 42 hex digits
		{ethAddr[:40], false},    // 38 hex digits
		{"0x" + strings.Repeat("g", 40), false},
		{"", false},
		{solanaAddr, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsEthereumAddress(tt.input), "input %q", tt.input)
	}
}

func TestIsSolanaAddress(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{solanaAddr, true},
		{strings.Repeat("1", 32), true},
		{strings.Repeat("1", 44), true},
		{strings.Repeat("1", 31), false}, // too short
		{strings.Repeat("1", 45), false}, // too long
		{strings.Repeat("0", 32), false}, // 0 not in base58 alphabet
		{strings.Repeat("O", 32), false},
		{strings.Repeat("I", 32), false},
		{strings.Repeat("l", 32), false},
		{ethAddr, false}, // contains 0 and x positionally invalid for base58
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsSolanaAddress(tt.input), "input %q", tt.input)
	}
}

func TestClassify_TotalAndDisjoint(t *testing.T) {
	chain, ok := Classify(ethAddr)
	assert.True(t, ok)
	assert.Equal(t, store.BlockchainEthereum, chain)

	chain, ok = Classify(solanaAddr)
	assert.True(t, ok)
	assert.Equal(t, store.BlockchainSolana, chain)

	_, ok = Classify("not-an-address")
	assert.False(t, ok)
	_, ok = Classify("")
	assert.False(t, ok)

	// No input classifies as both chains.
	for _, input := range []string{ethAddr, solanaAddr, "junk", ""} {
		assert.False(t, IsEthereumAddress(input) && IsSolanaAddress(input), "input %q", input)
	}
}

func TestIsENSName(t *testing.T) {
	assert.True(t, IsENSName("vitalik.eth"))
	assert.True(t, IsENSName("VITALIK.ETH"))
	assert.True(t, IsENSName("some-name-42.eth"))
	assert.False(t, IsENSName("vitalik.com"))
	assert.False(t, IsENSName("vitalik"))
	assert.False(t, IsENSName(".eth"))
	assert.False(t, IsENSName("a.b.eth"))
	assert.False(t, IsENSName("name.eth "))
}
