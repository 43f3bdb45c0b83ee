// This adapter wires the Postgres backend into the destination-agnostic
// factory by registering a constructor at init time. The CLI and other
// callers obtain a Sink via sink.New(...) without importing this package
// directly.
package postgres

import (
	"context"

	"katalog/internal/config"
	"katalog/internal/sink"
)

// newSink is a test hook that points to New by default. Tests may replace
// this variable to avoid real DB connections.
var newSink = func(ctx context.Context, cfg Config) (sink.Sink, error) {
	return New(ctx, cfg)
}

func init() {
	sink.Register("postgres", func(ctx context.Context, opts config.Options) (sink.Sink, error) {
		return newSink(ctx, Config{
			DSN:        opts.String("dsn", ""),
			Schema:     opts.String("schema", "public"),
			AutoCreate: opts.Bool("auto_create", true),
		})
	})
}
