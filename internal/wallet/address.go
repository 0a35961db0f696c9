// Package wallet provides address validation and the tracked-wallet registry.
package wallet

import (
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"

	"github.com/polymates/engine/internal/store"
)

// ensNameRegex matches a single-label ENS name, case-insensitively.
var ensNameRegex = regexp.MustCompile(`(?i)^[a-z0-9-]+\.eth$`)

// IsEthereumAddress reports whether s is a 0x-prefixed 40-hex-digit address.
func IsEthereumAddress(s string) bool {
	// common.IsHexAddress also accepts a bare or 0X-prefixed hex string;
	// tracked input must carry the canonical lowercase 0x prefix.
	return strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
}

// IsSolanaAddress reports whether s is 32-44 base58 characters.
func IsSolanaAddress(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	_, err := base58.Decode(s)
	return err == nil
}

// Classify returns the blockchain an address belongs to. Ethereum is
// checked first; the alphabets are disjoint so no address matches both.
func Classify(s string) (store.Blockchain, bool) {
	if IsEthereumAddress(s) {
		return store.BlockchainEthereum, true
	}
	if IsSolanaAddress(s) {
		return store.BlockchainSolana, true
	}
	return "", false
}

// IsENSName reports whether s looks like an ENS name (<label>.eth).
func IsENSName(s string) bool {
	return ensNameRegex.MatchString(s)
}
