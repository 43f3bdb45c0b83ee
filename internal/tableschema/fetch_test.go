package tableschema

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"katalog/internal/httpclient"
)

func schemaServer(status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
}

func TestFetch_Success(t *testing.T) {
	srv := schemaServer(http.StatusOK, schemaDoc)
	defer srv.Close()

	c := httpclient.New(httpclient.Config{})
	s, err := Fetch(context.Background(), c, srv.URL, "cs")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if s.PrimaryKey != "id" || len(s.Columns) != 4 {
		t.Errorf("unexpected schema: pk=%q columns=%d", s.PrimaryKey, len(s.Columns))
	}
}

func TestFetch_Unavailable(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantStatus int
	}{
		{"not found", http.StatusNotFound, http.StatusNotFound},
		{"server error", http.StatusInternalServerError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := schemaServer(tt.status, "")
			defer srv.Close()

			c := httpclient.New(httpclient.Config{})
			_, err := Fetch(context.Background(), c, srv.URL, "cs")
			var ue *UnavailableError
			if !errors.As(err, &ue) {
				t.Fatalf("err = %v (%T), want *UnavailableError", err, err)
			}
			if ue.Status != tt.wantStatus {
				t.Errorf("Status = %d, want %d", ue.Status, tt.wantStatus)
			}
		})
	}
}

func TestFetch_TransportError(t *testing.T) {
	srv := schemaServer(http.StatusOK, "")
	srv.Close()

	c := httpclient.New(httpclient.Config{})
	_, err := Fetch(context.Background(), c, srv.URL, "cs")
	var ue *UnavailableError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v (%T), want *UnavailableError", err, err)
	}
}

func TestFetch_MalformedCarriesURL(t *testing.T) {
	srv := schemaServer(http.StatusOK, `{"tableSchema": {"columns": []}}`)
	defer srv.Close()

	c := httpclient.New(httpclient.Config{})
	_, err := Fetch(context.Background(), c, srv.URL, "cs")
	var me *MalformedError
	if !errors.As(err, &me) {
		t.Fatalf("err = %v (%T), want *MalformedError", err, err)
	}
	if me.URL != srv.URL {
		t.Errorf("URL = %q, want %q", me.URL, srv.URL)
	}
}
