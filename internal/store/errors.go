package store

import "errors"

// ErrPersistence is returned (wrapped) when the local state file cannot
// be read or written. Operations degrade to in-memory state and report
// the error rather than failing.
var ErrPersistence = errors.New("persistence failure")
