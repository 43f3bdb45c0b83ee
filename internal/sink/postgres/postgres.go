// Package postgres implements a Postgres sink using pgx v5. Record batches
// go in through the COPY protocol; checkpoints are upserted into a small
// state table owned by the tool.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"katalog/internal/ddl"
	"katalog/internal/sink"
	"katalog/internal/tableschema"
	"katalog/pkg/records"
)

// stateTable holds one checkpoint row per stream.
const stateTable = "katalog_state"

// Config holds Postgres sink configuration.
type Config struct {
	// DSN is the connection string for pgxpool (e.g., postgresql://...).
	DSN string

	// Schema is the destination schema. Empty means "public".
	Schema string

	// AutoCreate creates the destination table from the document schema when
	// a stream is opened.
	AutoCreate bool
}

// Sink writes record batches into one table per stream.
type Sink struct {
	pool *pgxpool.Pool
	cfg  Config

	table   string
	columns []string
}

// New connects the pool and prepares the sink. The state table is created
// lazily on the first Open.
func New(ctx context.Context, cfg Config) (*Sink, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres: DSN must not be empty")
	}
	if cfg.Schema == "" {
		cfg.Schema = "public"
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: pgxpool: %w", err)
	}
	return &Sink{pool: pool, cfg: cfg}, nil
}

// Open points the sink at the stream's table, creating it first when
// AutoCreate is set. The state table is always ensured; it belongs to the
// tool, not to any dataset.
func (s *Sink) Open(ctx context.Context, info sink.StreamInfo) error {
	s.table = s.cfg.Schema + "." + info.Name
	s.columns = make([]string, len(info.Columns))
	for i, c := range info.Columns {
		s.columns[i] = c.Name
	}

	if err := s.ensureStateTable(ctx); err != nil {
		return err
	}
	if !s.cfg.AutoCreate {
		return nil
	}

	stmt, err := createTableSQL(s.table, info)
	if err != nil {
		return fmt.Errorf("postgres: table for %s: %w", info.Name, err)
	}
	if _, err := s.pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("postgres: create %s: %w", s.table, err)
	}
	return nil
}

// Write bulk-loads one batch through COPY. Values pass to pgx as-is; dates
// arrive as time.Time and map onto DATE columns.
func (s *Sink) Write(ctx context.Context, recs []records.Record) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	rows := buildRows(s.columns, recs)
	n, err := s.pool.CopyFrom(ctx, splitFQN(s.table), s.columns, pgx.CopyFromRows(rows))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Detail != "" {
			return n, fmt.Errorf("postgres: copy into %s: %s (%s)", s.table, pgErr.Detail, pgErr.SQLState())
		}
		return n, fmt.Errorf("postgres: copy into %s: %w", s.table, err)
	}
	return n, nil
}

// State upserts the stream's checkpoint row.
func (s *Sink) State(ctx context.Context, cp sink.Checkpoint) error {
	payload, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("postgres: marshal checkpoint: %w", err)
	}
	stmt := fmt.Sprintf(
		`INSERT INTO %s (stream, checkpoint, updated_at) VALUES ($1, $2::jsonb, now())
		 ON CONFLICT (stream) DO UPDATE SET checkpoint = EXCLUDED.checkpoint, updated_at = now()`,
		pgFQN(s.cfg.Schema+"."+stateTable),
	)
	if _, err := s.pool.Exec(ctx, stmt, cp.Stream, string(payload)); err != nil {
		return fmt.Errorf("postgres: record state for %s: %w", cp.Stream, err)
	}
	return nil
}

// Close releases the pool.
func (s *Sink) Close() error {
	s.pool.Close()
	return nil
}

func (s *Sink) ensureStateTable(ctx context.Context) error {
	td := ddl.TableDef{
		FQN:         pgFQN(s.cfg.Schema + "." + stateTable),
		IfNotExists: true,
		Columns: []ddl.ColumnDef{
			{Name: pgIdent("stream"), SQLType: "TEXT", PrimaryKey: true},
			{Name: pgIdent("checkpoint"), SQLType: "JSONB", Nullable: true},
			{Name: pgIdent("updated_at"), SQLType: "TIMESTAMPTZ", Default: "now()"},
		},
	}
	stmt, err := ddl.BuildCreateTableSQL(td)
	if err != nil {
		return fmt.Errorf("postgres: state table: %w", err)
	}
	if _, err := s.pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("postgres: ensure state table: %w", err)
	}
	return nil
}

// createTableSQL renders the stream's CREATE TABLE with quoted identifiers.
func createTableSQL(table string, info sink.StreamInfo) (string, error) {
	td := ddl.FromColumns(table, info.PrimaryKey, info.Columns, pgType)
	td.FQN = pgFQN(td.FQN)
	for i := range td.Columns {
		td.Columns[i].Name = pgIdent(td.Columns[i].Name)
	}
	return ddl.BuildCreateTableSQL(td)
}

// buildRows aligns records to the column order. Missing keys become NULLs.
func buildRows(columns []string, recs []records.Record) [][]any {
	rows := make([][]any, 0, len(recs))
	for _, rec := range recs {
		row := make([]any, len(columns))
		for i, c := range columns {
			row[i] = rec[c]
		}
		rows = append(rows, row)
	}
	return rows
}

// pgType maps schema column kinds onto Postgres types.
func pgType(k tableschema.Kind) string {
	switch k {
	case tableschema.KindNumber:
		return "DOUBLE PRECISION"
	case tableschema.KindDate:
		return "DATE"
	default:
		return "TEXT"
	}
}

// pgIdent safely quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// pgFQN quotes a possibly schema-qualified name like "public.events" to
// "public"."events". If no dot is present, returns a single quoted ident.
func pgFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pgIdent(p)
	}
	return strings.Join(parts, ".")
}

// splitFQN converts "schema.table" into a pgx.Identifier {"schema","table"}.
// If no dot is present, returns {"table"}.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}
