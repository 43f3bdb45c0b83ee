package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"katalog/internal/config"
	"katalog/internal/sink"
	"katalog/internal/tableschema"
	"katalog/pkg/records"
)

func testInfo() sink.StreamInfo {
	return sink.StreamInfo{
		Name:       "vyskyt_ptaku",
		PrimaryKey: "id",
		Columns: []tableschema.Column{
			{Name: "id", Required: true, Kind: tableschema.KindText},
			{Name: "amount", Kind: tableschema.KindNumber},
			{Name: "measured", Kind: tableschema.KindDate},
		},
	}
}

// TestSink_RoundTrip drives the full sink lifecycle against a real database
// file: auto-created table, batched insert, checkpoint row, and the stored
// representations of typed values.
func TestSink_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out.db")

	s, err := New(ctx, Config{Path: path, AutoCreate: true})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := s.Open(ctx, testInfo()); err != nil {
		t.Fatalf("Open() error: %v", err)
	}

	recs := []records.Record{
		{"id": "A1", "amount": 12.5, "measured": time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"id": "B2", "amount": nil, "measured": nil},
	}
	n, err := s.Write(ctx, recs)
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if n != 2 {
		t.Errorf("Write() = %d, want 2", n)
	}

	if err := s.State(ctx, sink.Checkpoint{Stream: "vyskyt_ptaku", Records: 2, Batches: 1}); err != nil {
		t.Fatalf("State() error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM "vyskyt_ptaku"`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("row count = %d, want 2", count)
	}

	var measured string
	if err := db.QueryRow(`SELECT measured FROM "vyskyt_ptaku" WHERE id = 'A1'`).Scan(&measured); err != nil {
		t.Fatalf("select date: %v", err)
	}
	if measured != "2024-01-15" {
		t.Errorf("stored date = %q, want 2024-01-15", measured)
	}

	var amount sql.NullFloat64
	if err := db.QueryRow(`SELECT amount FROM "vyskyt_ptaku" WHERE id = 'B2'`).Scan(&amount); err != nil {
		t.Fatalf("select null amount: %v", err)
	}
	if amount.Valid {
		t.Errorf("empty amount stored as %v, want NULL", amount.Float64)
	}

	var checkpoint string
	if err := db.QueryRow(`SELECT checkpoint FROM "katalog_state" WHERE stream = 'vyskyt_ptaku'`).Scan(&checkpoint); err != nil {
		t.Fatalf("select state: %v", err)
	}
	if !strings.Contains(checkpoint, `"records":2`) {
		t.Errorf("checkpoint = %s, want records count", checkpoint)
	}
}

// TestSink_StateReplaces verifies that repeated checkpoints keep one row per
// stream.
func TestSink_StateReplaces(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out.db")

	s, err := New(ctx, Config{Path: path, AutoCreate: true})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := s.Open(ctx, testInfo()); err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	for i := int64(1); i <= 3; i++ {
		if err := s.State(ctx, sink.Checkpoint{Stream: "vyskyt_ptaku", Records: i * 100}); err != nil {
			t.Fatalf("State() error: %v", err)
		}
	}
	s.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM "katalog_state"`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("state rows = %d, want 1", count)
	}
	var checkpoint string
	if err := db.QueryRow(`SELECT checkpoint FROM "katalog_state"`).Scan(&checkpoint); err != nil {
		t.Fatalf("select: %v", err)
	}
	if !strings.Contains(checkpoint, `"records":300`) {
		t.Errorf("checkpoint = %s, want latest records count", checkpoint)
	}
}

func TestCreateTableSQL(t *testing.T) {
	got, err := createTableSQL(testInfo())
	if err != nil {
		t.Fatalf("createTableSQL() error: %v", err)
	}
	want := "CREATE TABLE IF NOT EXISTS \"vyskyt_ptaku\" (\n" +
		"  \"id\" TEXT NOT NULL,\n" +
		"  \"amount\" REAL,\n" +
		"  \"measured\" TEXT,\n" +
		"  PRIMARY KEY (\"id\")\n" +
		");"
	if got != want {
		t.Fatalf("createTableSQL() =\n%s\nwant:\n%s", got, want)
	}
}

func TestEncodeValue(t *testing.T) {
	if got := encodeValue(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)); got != "2023-12-31" {
		t.Errorf("date = %v, want 2023-12-31", got)
	}
	if got := encodeValue(12.5); got != 12.5 {
		t.Errorf("float = %v, want passthrough", got)
	}
	if got := encodeValue(nil); got != nil {
		t.Errorf("nil = %v, want nil", got)
	}
}

func TestNew_EmptyPath(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Error("New() with empty path succeeded, want error")
	}
}

func TestAdapter_OptionsMapping(t *testing.T) {
	orig := newSink
	defer func() { newSink = orig }()

	var got Config
	newSink = func(ctx context.Context, cfg Config) (sink.Sink, error) {
		got = cfg
		return nil, nil
	}

	_, err := sink.New(context.Background(), config.Sink{
		Kind:    "sqlite",
		Options: config.Options{"path": "out.db", "auto_create": false},
	})
	if err != nil {
		t.Fatalf("sink.New() error: %v", err)
	}
	if got.Path != "out.db" {
		t.Errorf("Path = %q, want out.db", got.Path)
	}
	if got.AutoCreate {
		t.Error("AutoCreate = true, want false")
	}
}
