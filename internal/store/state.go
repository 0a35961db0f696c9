package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/polymates/engine/internal/report"
)

// State keys. The names are kept stable so state files written by earlier
// releases keep loading.
const (
	KeyWallets    = "polymates_tracked_wallets"
	KeyNicknames  = "polymates_wallet_nicknames"
	KeyFavorites  = "polymates_favorite_markets"
	KeyOnboarding = "polymates_onboarding_completed"
	KeyTheme      = "polymates_theme"
	KeySettings   = "polymates_settings"
)

// StateStore is a JSON-file-backed key/value store for the tracker's
// persisted local state. Reads tolerate a missing or corrupt file by
// substituting empty defaults; writes report failures through the sink
// and never fail the calling operation.
type StateStore struct {
	mu   sync.Mutex
	path string
	data map[string]json.RawMessage
	sink report.Sink
}

// OpenState loads the state file at path, creating an empty store when
// the file is absent. A corrupt file is reported and replaced with an
// empty store on the next write.
func OpenState(path string, sink report.Sink) *StateStore {
	s := &StateStore{
		path: path,
		data: make(map[string]json.RawMessage),
		sink: sink,
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			sink.Report(fmt.Errorf("%w: read state file %s: %v", ErrPersistence, path, err))
		}
		return s
	}

	if err := json.Unmarshal(raw, &s.data); err != nil {
		sink.Report(fmt.Errorf("%w: decode state file %s: %v", ErrPersistence, path, err))
		s.data = make(map[string]json.RawMessage)
	}

	return s
}

// Get decodes the value stored under key into v. It returns false when
// the key is absent; a corrupt value is reported and treated as absent.
func (s *StateStore) Get(key string, v any) bool {
	s.mu.Lock()
	raw, ok := s.data[key]
	s.mu.Unlock()

	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		s.sink.Report(fmt.Errorf("%w: decode key %s: %v", ErrPersistence, key, err))
		return false
	}
	return true
}

// GetRaw returns the stored JSON for key without decoding it. Used by
// the wallet loader to sniff legacy formats before committing to a shape.
func (s *StateStore) GetRaw(key string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.data[key]
	return raw, ok
}

// Put stores v under key and rewrites the state file. Write failures are
// reported, not returned: the in-memory value is kept so the session
// continues with memory-only state.
func (s *StateStore) Put(key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.sink.Report(fmt.Errorf("%w: encode key %s: %v", ErrPersistence, key, err))
		return
	}

	s.mu.Lock()
	s.data[key] = raw
	err = s.flushLocked()
	s.mu.Unlock()

	if err != nil {
		s.sink.Report(fmt.Errorf("%w: write state file %s: %v", ErrPersistence, s.path, err))
	}
}

// Delete removes key and rewrites the state file.
func (s *StateStore) Delete(key string) {
	s.mu.Lock()
	delete(s.data, key)
	err := s.flushLocked()
	s.mu.Unlock()

	if err != nil {
		s.sink.Report(fmt.Errorf("%w: write state file %s: %v", ErrPersistence, s.path, err))
	}
}

// flushLocked writes the full map to disk. Caller holds the lock.
func (s *StateStore) flushLocked() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(s.path, raw, 0o644)
}
