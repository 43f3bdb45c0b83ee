package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"katalog/internal/catalog"
	"katalog/internal/httpclient"
)

func newTestFactory(fc *fakeCatalog) *Factory {
	hc := httpclient.New(httpclient.Config{})
	return NewFactory(FactoryConfig{
		Catalog: catalog.NewClient(catalog.Config{Endpoint: fc.endpoint(), HTTP: hc}),
		HTTP:    hc,
	})
}

func TestCreateStream(t *testing.T) {
	fc := newFakeCatalog(t, map[string]fakeDataset{
		"ptaci": {title: "Výskyt ptáků", schema: birdSchema, csv: birdCSV},
	})
	f := newTestFactory(fc)

	st, err := f.CreateStream(context.Background(), fc.iri("ptaci"))
	if err != nil {
		t.Fatalf("CreateStream error: %v", err)
	}

	if st.Name != "vyskyt_ptaku" {
		t.Errorf("Name = %q, want vyskyt_ptaku", st.Name)
	}
	if st.Descriptor.Title != "Výskyt ptáků" {
		t.Errorf("Title = %q", st.Descriptor.Title)
	}
	if st.PrimaryKey() != "id" {
		t.Errorf("PrimaryKey = %q, want id", st.PrimaryKey())
	}
	if len(st.Columns()) != 3 {
		t.Errorf("Columns = %d, want 3", len(st.Columns()))
	}
	if doc := st.Schema(); doc["type"] != "object" {
		t.Errorf("schema document = %+v", doc)
	}

	if fc.resolveCount("ptaci") != 1 {
		t.Errorf("resolves = %d, want 1", fc.resolveCount("ptaci"))
	}
	if fc.payloadCount() != 0 {
		t.Errorf("CreateStream fetched a payload")
	}
}

func TestCreateStream_NotFound(t *testing.T) {
	fc := newFakeCatalog(t, map[string]fakeDataset{})
	f := newTestFactory(fc)

	_, err := f.CreateStream(context.Background(), fc.iri("neexistuje"))
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

/*
TestStream_RowsRerunsChain verifies that every Rows call re-resolves the
dataset and re-downloads the payload instead of reusing the handle's
snapshot.
*/
func TestStream_RowsRerunsChain(t *testing.T) {
	fc := newFakeCatalog(t, map[string]fakeDataset{
		"ptaci": {title: "Výskyt ptáků", schema: birdSchema, csv: birdCSV},
	})
	f := newTestFactory(fc)
	ctx := context.Background()

	st, err := f.CreateStream(ctx, fc.iri("ptaci"))
	if err != nil {
		t.Fatalf("CreateStream error: %v", err)
	}
	if fc.resolveCount("ptaci") != 1 {
		t.Fatalf("resolves after CreateStream = %d, want 1", fc.resolveCount("ptaci"))
	}

	for pass := 1; pass <= 2; pass++ {
		rows, err := st.Rows(ctx)
		if err != nil {
			t.Fatalf("Rows pass %d error: %v", pass, err)
		}
		n := 0
		for rows.Next() {
			n++
		}
		if err := rows.Err(); err != nil {
			t.Fatalf("iteration pass %d error: %v", pass, err)
		}
		rows.Close()
		if n != 3 {
			t.Fatalf("pass %d records = %d, want 3", pass, n)
		}

		if got := fc.resolveCount("ptaci"); got != 1+pass {
			t.Errorf("resolves after pass %d = %d, want %d", pass, got, 1+pass)
		}
		if got := fc.payloadCount(); got != pass {
			t.Errorf("payload fetches after pass %d = %d, want %d", pass, got, pass)
		}
	}
}

func TestStreamName(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Výskyt ptáků", "vyskyt_ptaku"},
		{"Kvalita ovzduší - Praha 2024", "kvalita_ovzdusi_praha_2024"},
		{"vyskyt_ptaku", "vyskyt_ptaku"}, // already derived
		{"", "dataset"},
	}
	for _, tt := range tests {
		if got := StreamName(tt.title); got != tt.want {
			t.Errorf("StreamName(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}

	// Idempotence and the identifier length cap.
	long := strings.Repeat("velmi dlouhý název ", 10)
	name := StreamName(long)
	if len(name) > 63 {
		t.Errorf("len(StreamName(long)) = %d, want <= 63", len(name))
	}
	if StreamName(name) != name {
		t.Errorf("StreamName not idempotent: %q -> %q", name, StreamName(name))
	}
}

