// Package pipeline composes the metadata resolver, the schema fetcher, and
// the payload streamer into named dataset streams, and runs whole extraction
// jobs against a configured sink.
package pipeline

import (
	"context"

	"katalog/internal/catalog"
	"katalog/internal/httpclient"
	"katalog/internal/slug"
	"katalog/internal/stream"
	"katalog/internal/tableschema"
)

// Factory builds Stream handles from dataset IRIs. It holds configuration
// only; every operation runs the resolution chain against live services.
type Factory struct {
	catalog  *catalog.Client
	http     *httpclient.Client
	streamer *stream.Streamer
}

// FactoryConfig configures a Factory. Zero values select the public catalog
// defaults and a fresh HTTP client.
type FactoryConfig struct {
	Catalog     *catalog.Client
	HTTP        *httpclient.Client
	SkipBadRows bool
}

// NewFactory constructs a Factory, applying defaults for zero values.
func NewFactory(cfg FactoryConfig) *Factory {
	if cfg.HTTP == nil {
		cfg.HTTP = httpclient.New(httpclient.Config{})
	}
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.NewClient(catalog.Config{HTTP: cfg.HTTP})
	}
	return &Factory{
		catalog: cfg.Catalog,
		http:    cfg.HTTP,
		streamer: &stream.Streamer{
			HTTP:        cfg.HTTP,
			SkipBadRows: cfg.SkipBadRows,
		},
	}
}

// Resolve looks up one dataset IRI in the catalog.
func (f *Factory) Resolve(ctx context.Context, iri string) (*catalog.DatasetDescriptor, error) {
	return f.catalog.Resolve(ctx, iri)
}

// FetchSchema retrieves the table schema the descriptor's distribution
// conforms to.
func (f *Factory) FetchSchema(ctx context.Context, d *catalog.DatasetDescriptor) (*tableschema.Schema, error) {
	return tableschema.Fetch(ctx, f.http, d.Distribution.ConformsTo, f.catalog.Locale())
}

// OpenRows downloads and buffers the distribution payload and returns the
// typed row iterator. The caller owns the iterator and must Close it.
func (f *Factory) OpenRows(ctx context.Context, d *catalog.DatasetDescriptor, sch *tableschema.Schema) (*stream.Rows, error) {
	return f.streamer.Open(ctx, d, sch)
}

// CreateStream resolves a dataset and its schema and returns the named
// handle. The descriptor and schema kept on the handle are the snapshot
// taken here; Rows does not reuse them.
func (f *Factory) CreateStream(ctx context.Context, iri string) (*Stream, error) {
	d, err := f.Resolve(ctx, iri)
	if err != nil {
		return nil, err
	}
	sch, err := f.FetchSchema(ctx, d)
	if err != nil {
		return nil, err
	}
	return &Stream{
		Name:       StreamName(d.Title),
		Descriptor: d,
		schema:     sch,
		factory:    f,
	}, nil
}

// StreamName derives a table-safe stream name from a dataset title. The
// derivation is deterministic and idempotent: the same title always yields
// the same name, and an already-derived name passes through unchanged.
func StreamName(title string) string {
	return slug.Truncate(slug.Make(title))
}

// Stream is a named handle on one resolvable dataset.
type Stream struct {
	// Name is the slug of the dataset title resolved at handle creation.
	Name string

	// Descriptor is the metadata snapshot taken when the handle was built.
	Descriptor *catalog.DatasetDescriptor

	schema  *tableschema.Schema
	factory *Factory
}

// PrimaryKey returns the schema's declared primary key column name, which
// may be empty or, on dirty schemas, name a column that does not exist.
func (s *Stream) PrimaryKey() string { return s.schema.PrimaryKey }

// Columns returns the schema columns in canonical order.
func (s *Stream) Columns() []tableschema.Column { return s.schema.Columns }

// Schema returns a JSON-schema-like description of the stream's records.
func (s *Stream) Schema() map[string]any {
	return tableschema.Document(s.schema.Columns)
}

// Rows opens the record stream. Each call re-runs the whole chain: resolve,
// schema fetch, payload download. Nothing is cached between invocations, so
// two calls can observe different catalog states.
func (s *Stream) Rows(ctx context.Context) (*stream.Rows, error) {
	d, err := s.factory.Resolve(ctx, s.Descriptor.IRI)
	if err != nil {
		return nil, err
	}
	sch, err := s.factory.FetchSchema(ctx, d)
	if err != nil {
		return nil, err
	}
	return s.factory.OpenRows(ctx, d, sch)
}
