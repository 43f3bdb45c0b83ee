// This adapter wires the SQLite backend into the destination-agnostic
// factory by registering a constructor at init time.
package sqlite

import (
	"context"

	"katalog/internal/config"
	"katalog/internal/sink"
)

// newSink is a test hook that points to New by default.
var newSink = func(ctx context.Context, cfg Config) (sink.Sink, error) {
	return New(ctx, cfg)
}

func init() {
	sink.Register("sqlite", func(ctx context.Context, opts config.Options) (sink.Sink, error) {
		return newSink(ctx, Config{
			Path:       opts.String("path", ""),
			AutoCreate: opts.Bool("auto_create", true),
		})
	})
}
