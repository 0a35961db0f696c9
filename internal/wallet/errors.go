package wallet

import "errors"

// Registry and validation errors.
var (
	// ErrInvalidAddress is returned when input is neither a valid
	// Ethereum address, Solana address, nor resolvable ENS name.
	ErrInvalidAddress = errors.New("invalid wallet address")

	// ErrDuplicateWallet is returned when the address is already tracked.
	ErrDuplicateWallet = errors.New("wallet already tracked")

	// ErrResolution is returned when ENS resolution fails.
	ErrResolution = errors.New("ens resolution failed")
)
