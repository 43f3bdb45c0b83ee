// Package jsonl writes the extraction as a line-delimited JSON message
// stream: one SCHEMA message per stream, one RECORD message per record, and
// STATE messages at checkpoints. The default destination is stdout, which
// makes the binary composable with any consumer of the message protocol.
package jsonl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"katalog/internal/config"
	"katalog/internal/sink"
	"katalog/internal/tableschema"
	"katalog/pkg/records"
)

func init() {
	sink.Register("jsonl", func(ctx context.Context, opts config.Options) (sink.Sink, error) {
		return New(opts.String("path", ""))
	})
}

// Sink emits protocol messages to a single writer. Every message is written
// as one Write call carrying a complete line, so concurrently running sinks
// sharing a destination cannot splice lines together.
type Sink struct {
	mu     sync.Mutex
	w      io.Writer
	f      *os.File
	stream string
}

// New opens a message sink. An empty path or "-" selects stdout; anything
// else is opened for appending.
func New(path string) (*Sink, error) {
	if path == "" || path == "-" {
		return &Sink{w: os.Stdout}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("jsonl: open %s: %w", path, err)
	}
	return &Sink{w: f, f: f}, nil
}

type schemaMessage struct {
	Type          string         `json:"type"`
	Stream        string         `json:"stream"`
	Schema        map[string]any `json:"schema"`
	KeyProperties []string       `json:"key_properties"`
}

type recordMessage struct {
	Type   string         `json:"type"`
	Stream string         `json:"stream"`
	Record map[string]any `json:"record"`
}

type stateMessage struct {
	Type  string          `json:"type"`
	Value sink.Checkpoint `json:"value"`
}

// Open announces a stream with a SCHEMA message. Subsequent records are
// tagged with the stream name until the next Open.
func (s *Sink) Open(ctx context.Context, info sink.StreamInfo) error {
	s.mu.Lock()
	s.stream = info.Name
	s.mu.Unlock()

	msg := schemaMessage{
		Type:          "SCHEMA",
		Stream:        info.Name,
		Schema:        tableschema.Document(info.Columns),
		KeyProperties: keyProperties(info.PrimaryKey),
	}
	return s.emit(msg)
}

// Write emits one RECORD message per record.
func (s *Sink) Write(ctx context.Context, recs []records.Record) (int64, error) {
	var n int64
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		msg := recordMessage{
			Type:   "RECORD",
			Stream: s.stream,
			Record: encodeRecord(rec),
		}
		if err := s.emit(msg); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// State emits a STATE message.
func (s *Sink) State(ctx context.Context, cp sink.Checkpoint) error {
	return s.emit(stateMessage{Type: "STATE", Value: cp})
}

// Close closes the destination file. Stdout is left open.
func (s *Sink) Close() error {
	if s.f != nil {
		return s.f.Close()
	}
	return nil
}

func (s *Sink) emit(msg any) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("jsonl: marshal message: %w", err)
	}
	b = append(b, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(b); err != nil {
		return fmt.Errorf("jsonl: write message: %w", err)
	}
	return nil
}

func keyProperties(pk string) []string {
	if pk == "" {
		return []string{}
	}
	return []string{pk}
}

// encodeRecord converts typed values into their wire forms. Dates become
// plain YYYY-MM-DD strings.
func encodeRecord(rec records.Record) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		if t, ok := v.(time.Time); ok {
			out[k] = t.Format(tableschema.DateLayout)
			continue
		}
		out[k] = v
	}
	return out
}
