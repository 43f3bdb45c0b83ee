// Package sink contains destination-agnostic contracts for extracted
// records.
//
// A Sink receives the stream announcement (schema, key), then batches of
// typed records, then checkpoint markers. Concrete backends (jsonl,
// postgres, sqlite) register themselves with the factory at init time;
// importing internal/sink/all enables every built-in backend.
package sink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"katalog/internal/config"
	"katalog/internal/tableschema"
	"katalog/pkg/records"
)

// StreamInfo announces one dataset stream to a sink before any records are
// written. Name is the stream's table-safe identifier; Columns preserve the
// document schema order.
type StreamInfo struct {
	Name       string
	IRI        string
	Title      string
	PrimaryKey string
	Columns    []tableschema.Column
}

// Checkpoint summarizes extraction progress for one stream. Fingerprint is
// the hex form of the payload hash, empty until the payload has been
// buffered.
type Checkpoint struct {
	Stream      string    `json:"stream"`
	RunID       string    `json:"run_id,omitempty"`
	Records     int64     `json:"records"`
	Skipped     int64     `json:"skipped"`
	Batches     int64     `json:"batches"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	At          time.Time `json:"at"`
}

// Sink persists extracted records somewhere. Implementations are used by a
// single goroutine at a time; Open is called once per stream before any
// Write for that stream.
type Sink interface {
	// Open announces a stream. Backends typically create or verify the
	// destination table here.
	Open(ctx context.Context, info StreamInfo) error

	// Write persists one batch of records and reports how many were written.
	Write(ctx context.Context, recs []records.Record) (int64, error)

	// State records a checkpoint marker.
	State(ctx context.Context, cp Checkpoint) error

	// Close releases the destination. It is called exactly once, after the
	// last Write.
	Close() error
}

// Factory constructs a concrete sink from its options bag. Backends register
// a Factory for their kind at init time.
type Factory func(ctx context.Context, opts config.Options) (Sink, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) a Factory for the given sink kind. It is
// typically called from backend packages' init() functions.
func Register(kind string, fn Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = fn
}

// New locates the Factory for the given kind and invokes it. Callers do not
// need to know which backend they are using; they pass the sink section of
// the job config.
//
// If no factory has been registered for the kind, an error is returned.
func New(ctx context.Context, cfg config.Sink) (Sink, error) {
	mu.RLock()
	fn, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no sink registered for sink.kind=%q", cfg.Kind)
	}
	opts := cfg.Options
	if opts == nil {
		opts = config.Options{}
	}
	return fn(ctx, opts)
}
