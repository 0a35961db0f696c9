package ingest

import "errors"

// API-boundary errors.
var (
	// ErrFetch is returned when a network or HTTP-level request fails.
	ErrFetch = errors.New("fetch failed")

	// ErrNormalization is returned when a single raw record cannot be
	// mapped. One bad record never aborts the batch that carried it.
	ErrNormalization = errors.New("normalization failed")
)
