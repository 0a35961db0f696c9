package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/polymates/engine/internal/report"
	"github.com/polymates/engine/internal/store"
)

// Registry is the persisted, ordered, duplicate-free collection of
// tracked wallets, plus the nickname and favorite-market annotations.
// All mutations persist through the state store; persistence failures
// degrade to in-memory state (the store reports them).
type Registry struct {
	mu       sync.Mutex
	state    *store.StateStore
	resolver ENSLookup
	sink     report.Sink

	wallets   []store.Wallet
	nicknames map[string]string
	favorites []string
}

// NewRegistry loads tracked wallets, nicknames, and favorites from the
// state store, migrating any legacy wallet format on the way.
func NewRegistry(state *store.StateStore, resolver ENSLookup, sink report.Sink) *Registry {
	r := &Registry{
		state:     state,
		resolver:  resolver,
		sink:      sink,
		nicknames: make(map[string]string),
	}

	r.wallets = r.loadWallets()
	state.Get(store.KeyNicknames, &r.nicknames)
	if r.nicknames == nil {
		r.nicknames = make(map[string]string)
	}
	state.Get(store.KeyFavorites, &r.favorites)

	return r
}

// loadWallets decodes the persisted wallet list, transparently migrating
// the legacy flat string-array format to {address, blockchain} records.
// Migration is idempotent: already-migrated data passes through untouched.
func (r *Registry) loadWallets() []store.Wallet {
	raw, ok := r.state.GetRaw(store.KeyWallets)
	if !ok {
		return nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		r.sink.Report(fmt.Errorf("%w: decode tracked wallets: %v", store.ErrPersistence, err))
		return nil
	}

	wallets := make([]store.Wallet, 0, len(elems))
	migrated := false

	for _, elem := range elems {
		var addr string
		if err := json.Unmarshal(elem, &addr); err == nil {
			// Legacy entry: bare address string. Unclassifiable legacy
			// entries default to Ethereum.
			chain, ok := Classify(addr)
			if !ok {
				chain = store.BlockchainEthereum
			}
			if chain == store.BlockchainEthereum {
				addr = strings.ToLower(addr)
			}
			wallets = append(wallets, store.Wallet{
				Address:    addr,
				Blockchain: chain,
			})
			migrated = true
			continue
		}

		var w store.Wallet
		if err := json.Unmarshal(elem, &w); err != nil || w.Address == "" {
			r.sink.Report(fmt.Errorf("%w: skip malformed wallet entry", store.ErrPersistence))
			continue
		}
		wallets = append(wallets, w)
	}

	if migrated {
		r.state.Put(store.KeyWallets, wallets)
	}

	return wallets
}

// Wallets returns a copy of the tracked wallets in insertion order.
func (r *Registry) Wallets() []store.Wallet {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]store.Wallet, len(r.wallets))
	copy(out, r.wallets)
	return out
}

// Add validates input (raw address or ENS name), resolves ENS when
// needed, normalizes casing per chain, rejects duplicates, and appends
// the wallet. The returned wallet is the canonical persisted form.
func (r *Registry) Add(ctx context.Context, input string) (store.Wallet, error) {
	address := strings.TrimSpace(input)

	if IsENSName(address) {
		resolved, err := r.resolver.Resolve(ctx, address)
		if err != nil {
			return store.Wallet{}, err
		}
		address = resolved
	}

	chain, ok := Classify(address)
	if !ok {
		return store.Wallet{}, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}

	if chain == store.BlockchainEthereum {
		address = strings.ToLower(address)
	}
	// Solana addresses are case-sensitive, keep as-is.

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, w := range r.wallets {
		if matchesAddress(w, address) {
			return store.Wallet{}, fmt.Errorf("%w: %s", ErrDuplicateWallet, address)
		}
	}

	wallet := store.Wallet{Address: address, Blockchain: chain}
	r.wallets = append(r.wallets, wallet)
	r.state.Put(store.KeyWallets, r.wallets)

	return wallet, nil
}

// Remove deletes any entry matching the address (case-insensitive for
// Ethereum, exact for Solana) and reports whether one was removed.
// Nickname and favorite annotations are deliberately left in place.
func (r *Registry) Remove(address string) bool {
	address = strings.TrimSpace(address)

	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.wallets[:0]
	removed := false
	for _, w := range r.wallets {
		if matchesAddress(w, address) {
			removed = true
			continue
		}
		kept = append(kept, w)
	}

	if removed {
		r.wallets = kept
		r.state.Put(store.KeyWallets, r.wallets)
	}
	return removed
}

// matchesAddress compares per the wallet's chain rules.
func matchesAddress(w store.Wallet, address string) bool {
	if w.Blockchain == store.BlockchainSolana {
		return w.Address == address
	}
	return strings.EqualFold(w.Address, address)
}

// SetNickname upserts the display label for an address, or deletes it
// when nickname is blank. Nicknames are keyed by lowercased address and
// live independently of wallet membership.
func (r *Registry) SetNickname(address, nickname string) {
	key := strings.ToLower(strings.TrimSpace(address))
	if key == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(nickname) == "" {
		delete(r.nicknames, key)
	} else {
		r.nicknames[key] = strings.TrimSpace(nickname)
	}
	r.state.Put(store.KeyNicknames, r.nicknames)
}

// Nickname returns the label for an address, or "" when none is set.
func (r *Registry) Nickname(address string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nicknames[strings.ToLower(address)]
}

// ToggleFavorite adds or removes a market from the favorite set and
// reports whether the market is now favorited.
func (r *Registry) ToggleFavorite(marketID string) bool {
	if marketID == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, id := range r.favorites {
		if id == marketID {
			r.favorites = append(r.favorites[:i], r.favorites[i+1:]...)
			r.state.Put(store.KeyFavorites, r.favorites)
			return false
		}
	}

	r.favorites = append(r.favorites, marketID)
	r.state.Put(store.KeyFavorites, r.favorites)
	return true
}

// IsFavorite reports whether a market is in the favorite set.
func (r *Registry) IsFavorite(marketID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.favorites {
		if id == marketID {
			return true
		}
	}
	return false
}

// Favorites returns a copy of the favorite market IDs.
func (r *Registry) Favorites() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.favorites))
	copy(out, r.favorites)
	return out
}
