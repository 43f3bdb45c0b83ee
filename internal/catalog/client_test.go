package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"katalog/internal/httpclient"
)

const testIRI = "https://example.org/dataset/birds"

// graphServer returns an httptest server that responds to every query with
// the given body and status, recording the last request body for assertions.
func graphServer(t *testing.T, status int, body string, lastQuery *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if lastQuery != nil {
			var req struct {
				Query string `json:"query"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
				*lastQuery = req.Query
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
}

// datasetJSON builds a well-formed single-distribution catalog response.
func datasetJSON(distributions string) string {
	return `{"data":{"dataset":{
		"iri":"` + testIRI + `",
		"accrualPeriodicity":"http://publications.europa.eu/resource/authority/frequency/ANNUAL",
		"documentation":"https://example.org/docs",
		"isPartOf":"https://example.org/dataset/parent",
		"distribution":[` + distributions + `],
		"description":{"cs":"Roční výskyt ptáků"},
		"title":{"cs":"Výskyt ptáků"}
	}}}`
}

const oneDistribution = `{"accessURL":"https://example.org/data.csv","conformsTo":"https://example.org/schema.json"}`

func newTestClient(endpoint string) *Client {
	return NewClient(Config{
		Endpoint: endpoint,
		HTTP:     httpclient.New(httpclient.Config{}),
	})
}

func TestResolve_Success(t *testing.T) {
	var gotQuery string
	srv := graphServer(t, http.StatusOK, datasetJSON(oneDistribution), &gotQuery)
	defer srv.Close()

	d, err := newTestClient(srv.URL).Resolve(context.Background(), testIRI)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}

	if d.IRI != testIRI {
		t.Errorf("IRI = %q, want %q", d.IRI, testIRI)
	}
	if d.Title != "Výskyt ptáků" {
		t.Errorf("Title = %q: locale envelope not unwrapped", d.Title)
	}
	if d.Description != "Roční výskyt ptáků" {
		t.Errorf("Description = %q: locale envelope not unwrapped", d.Description)
	}
	if d.Periodicity == "" || d.Documentation == "" || d.PartOf == "" {
		t.Errorf("optional fields lost: %+v", d)
	}
	if d.Distribution.AccessURL != "https://example.org/data.csv" {
		t.Errorf("AccessURL = %q", d.Distribution.AccessURL)
	}
	if d.Distribution.ConformsTo != "https://example.org/schema.json" {
		t.Errorf("ConformsTo = %q", d.Distribution.ConformsTo)
	}

	// The query must carry the quoted IRI and the configured locale.
	if !strings.Contains(gotQuery, `dataset(iri: "`+testIRI+`")`) {
		t.Errorf("query missing IRI parameter: %s", gotQuery)
	}
	if !strings.Contains(gotQuery, "title { cs }") {
		t.Errorf("query missing locale selection: %s", gotQuery)
	}
}

func TestResolve_NotFound(t *testing.T) {
	srv := graphServer(t, http.StatusOK, `{"data":{"dataset":null}}`, nil)
	defer srv.Close()

	_, err := newTestClient(srv.URL).Resolve(context.Background(), testIRI)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestResolve_ServiceFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"graph errors", http.StatusOK, `{"errors":[{"message":"syntax error"}]}`},
		{"http 500", http.StatusInternalServerError, `boom`},
		{"http 404", http.StatusNotFound, ``},
		{"undecodable body", http.StatusOK, `<html>not json</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := graphServer(t, tt.status, tt.body, nil)
			defer srv.Close()

			_, err := newTestClient(srv.URL).Resolve(context.Background(), testIRI)
			var se *ServiceError
			if !errors.As(err, &se) {
				t.Fatalf("err = %v (%T), want *ServiceError", err, err)
			}
		})
	}
}

func TestResolve_TransportError(t *testing.T) {
	srv := graphServer(t, http.StatusOK, "", nil)
	srv.Close() // refuse connections

	_, err := newTestClient(srv.URL).Resolve(context.Background(), testIRI)
	var se *ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v (%T), want *ServiceError", err, err)
	}
}

// TestResolve_DistributionCount pins the construction invariant: neither zero
// nor multiple distributions may produce a descriptor.
func TestResolve_DistributionCount(t *testing.T) {
	tests := []struct {
		name          string
		distributions string
		wantReason    string
	}{
		{"zero", ``, "no distribution"},
		{"two", oneDistribution + "," + oneDistribution, "distribution count 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := graphServer(t, http.StatusOK, datasetJSON(tt.distributions), nil)
			defer srv.Close()

			_, err := newTestClient(srv.URL).Resolve(context.Background(), testIRI)
			var me *MalformedMetadataError
			if !errors.As(err, &me) {
				t.Fatalf("err = %v (%T), want *MalformedMetadataError", err, err)
			}
			if !strings.Contains(me.Reason, tt.wantReason) {
				t.Errorf("Reason = %q, want substring %q", me.Reason, tt.wantReason)
			}
		})
	}
}

func TestResolve_MalformedEntries(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			"missing title locale",
			`{"data":{"dataset":{"distribution":[` + oneDistribution + `],"description":{"cs":"d"},"title":{}}}}`,
		},
		{
			"missing description",
			`{"data":{"dataset":{"distribution":[` + oneDistribution + `],"description":{},"title":{"cs":"t"}}}}`,
		},
		{
			"distribution without access URL",
			`{"data":{"dataset":{"distribution":[{"conformsTo":"https://example.org/s"}],"description":{"cs":"d"},"title":{"cs":"t"}}}}`,
		},
		{
			"distribution without conforms-to",
			`{"data":{"dataset":{"distribution":[{"accessURL":"https://example.org/a"}],"description":{"cs":"d"},"title":{"cs":"t"}}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := graphServer(t, http.StatusOK, tt.body, nil)
			defer srv.Close()

			_, err := newTestClient(srv.URL).Resolve(context.Background(), testIRI)
			var me *MalformedMetadataError
			if !errors.As(err, &me) {
				t.Fatalf("err = %v (%T), want *MalformedMetadataError", err, err)
			}
		})
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Config{})
	if c.endpoint != DefaultEndpoint {
		t.Errorf("endpoint = %q, want %q", c.endpoint, DefaultEndpoint)
	}
	if c.Locale() != DefaultLocale {
		t.Errorf("locale = %q, want %q", c.Locale(), DefaultLocale)
	}
	if c.http == nil {
		t.Errorf("expected a default HTTP client")
	}
}
