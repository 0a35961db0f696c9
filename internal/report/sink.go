// Package report provides the error sink shared by the core services.
//
// Every recoverable failure in the pipeline (a wallet fetch, a bad record,
// a storage write) funnels through a single Sink instead of each call site
// deciding how to surface it.
package report

import (
	"log/slog"
	"sync"
)

// Sink receives errors that degraded an operation but did not abort it.
type Sink interface {
	Report(err error)
}

// SlogSink logs reported errors through the default structured logger.
type SlogSink struct{}

// NewSlogSink creates a slog-backed sink.
func NewSlogSink() *SlogSink {
	return &SlogSink{}
}

// Report logs the error at warn level.
func (s *SlogSink) Report(err error) {
	if err == nil {
		return
	}
	slog.Warn("error_reported", "error", err)
}

// NopSink discards all reports.
type NopSink struct{}

// Report discards the error.
func (NopSink) Report(error) {}

// CaptureSink records reported errors for inspection in tests.
type CaptureSink struct {
	mu     sync.Mutex
	errors []error
}

// Report appends the error to the captured list.
func (c *CaptureSink) Report(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	c.errors = append(c.errors, err)
	c.mu.Unlock()
}

// Errors returns a copy of the captured errors.
func (c *CaptureSink) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]error, len(c.errors))
	copy(out, c.errors)
	return out
}

var (
	_ Sink = (*SlogSink)(nil)
	_ Sink = NopSink{}
	_ Sink = (*CaptureSink)(nil)
)
