// Package sqlite implements a SQLite-backed sink using database/sql. It
// performs batched INSERTs inside a transaction; SQLite has no dedicated
// bulk-load API like Postgres COPY, but transactions keep performance
// acceptable for moderate volumes.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"katalog/internal/ddl"
	"katalog/internal/sink"
	"katalog/internal/tableschema"
	"katalog/pkg/records"
)

const stateTable = "katalog_state"

// Config holds SQLite sink configuration.
type Config struct {
	// Path is a SQLite file path or connection string, e.g.:
	//   "katalog.db"
	//   "file:katalog.db?cache=shared"
	Path string

	// AutoCreate creates the destination table from the document schema when
	// a stream is opened.
	AutoCreate bool
}

// Sink writes record batches into one table per stream.
type Sink struct {
	db  *sql.DB
	cfg Config

	table   string
	columns []string
}

// New opens a SQLite connection using the provided path.
func New(ctx context.Context, cfg Config) (*Sink, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("sqlite: path must not be empty")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	// Apply a basic ping with context to fail fast on invalid paths.
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	// Enable foreign keys by default; ignore error if driver doesn't support it.
	_, _ = db.ExecContext(ctx, "PRAGMA foreign_keys = ON;")

	return &Sink{db: db, cfg: cfg}, nil
}

// Open points the sink at the stream's table, creating it first when
// AutoCreate is set. The state table is always ensured.
func (s *Sink) Open(ctx context.Context, info sink.StreamInfo) error {
	s.table = info.Name
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

	stmt, err := createTableSQL(info)
	if err != nil {
		return fmt.Errorf("sqlite: table for %s: %w", info.Name, err)
	}
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("sqlite: create %s: %w", s.table, err)
	}
	return nil
}

// Write inserts the batch within a single transaction using a prepared
// multi-use INSERT statement. Dates are stored as YYYY-MM-DD text; SQLite
// has no native date type.
func (s *Sink) Write(ctx context.Context, recs []records.Record) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(s.columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	stmtSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(s.table),
		strings.Join(quoteAll(s.columns), ", "),
		strings.Join(placeholders, ", "),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, rec := range recs {
		row := make([]any, len(s.columns))
		for i, c := range s.columns {
			row[i] = encodeValue(rec[c])
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = tx.Rollback()
			return inserted, fmt.Errorf("sqlite: insert: %w", err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("sqlite: commit: %w", err)
	}
	return inserted, nil
}

// State replaces the stream's checkpoint row.
func (s *Sink) State(ctx context.Context, cp sink.Checkpoint) error {
	payload, err := marshalCheckpoint(cp)
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf(
		"INSERT OR REPLACE INTO %s (stream, checkpoint, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)",
		quoteIdent(stateTable),
	)
	if _, err := s.db.ExecContext(ctx, stmt, cp.Stream, payload); err != nil {
		return fmt.Errorf("sqlite: record state for %s: %w", cp.Stream, err)
	}
	return nil
}

// Close closes the database handle.
func (s *Sink) Close() error {
	return s.db.Close()
}

func (s *Sink) ensureStateTable(ctx context.Context) error {
	td := ddl.TableDef{
		FQN:         quoteIdent(stateTable),
		IfNotExists: true,
		Columns: []ddl.ColumnDef{
			{Name: quoteIdent("stream"), SQLType: "TEXT", PrimaryKey: true},
			{Name: quoteIdent("checkpoint"), SQLType: "TEXT", Nullable: true},
			{Name: quoteIdent("updated_at"), SQLType: "TEXT", Default: "CURRENT_TIMESTAMP"},
		},
	}
	stmt, err := ddl.BuildCreateTableSQL(td)
	if err != nil {
		return fmt.Errorf("sqlite: state table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("sqlite: ensure state table: %w", err)
	}
	return nil
}

// createTableSQL renders the stream's CREATE TABLE with quoted identifiers.
func createTableSQL(info sink.StreamInfo) (string, error) {
	td := ddl.FromColumns(info.Name, info.PrimaryKey, info.Columns, sqliteType)
	td.FQN = quoteIdent(td.FQN)
	for i := range td.Columns {
		td.Columns[i].Name = quoteIdent(td.Columns[i].Name)
	}
	return ddl.BuildCreateTableSQL(td)
}

func marshalCheckpoint(cp sink.Checkpoint) (string, error) {
	b, err := json.Marshal(cp)
	if err != nil {
		return "", fmt.Errorf("sqlite: marshal checkpoint: %w", err)
	}
	return string(b), nil
}

// encodeValue converts typed values into SQLite-storable forms.
func encodeValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.Format(tableschema.DateLayout)
	}
	return v
}

// sqliteType maps schema column kinds onto SQLite types.
func sqliteType(k tableschema.Kind) string {
	if k == tableschema.KindNumber {
		return "REAL"
	}
	return "TEXT"
}

// quoteIdent safely quotes a single identifier for SQLite.
func quoteIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

func quoteAll(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = quoteIdent(id)
	}
	return out
}
