package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"katalog/internal/httpclient"
)

const (
	// DefaultEndpoint is the public query endpoint of the national catalog.
	DefaultEndpoint = "https://data.gov.cz/graphql"

	// DefaultLocale selects the single language variant requested for title
	// and description. One locale per run; this is not a localization system.
	DefaultLocale = "cs"
)

// queryTemplate is the fixed graph query issued per resolution. The first
// verb is the quoted dataset IRI, the remaining two are the locale.
const queryTemplate = `query { dataset(iri: %s) { iri accrualPeriodicity documentation isPartOf distribution { accessURL conformsTo } description { %s } title { %s } } }`

// Config configures a catalog Client. Zero values select the public
// endpoint, the default locale, and a default HTTP client.
type Config struct {
	Endpoint string
	Locale   string
	HTTP     *httpclient.Client
}

// Client resolves dataset IRIs against one catalog endpoint. Each Resolve
// call is a fresh round trip: no retries, no caching.
type Client struct {
	endpoint string
	locale   string
	http     *httpclient.Client
}

// NewClient constructs a Client from Config, applying defaults for zero
// values.
func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Locale == "" {
		cfg.Locale = DefaultLocale
	}
	if cfg.HTTP == nil {
		cfg.HTTP = httpclient.New(httpclient.Config{})
	}
	return &Client{
		endpoint: cfg.Endpoint,
		locale:   cfg.Locale,
		http:     cfg.HTTP,
	}
}

// Locale returns the locale the client unwraps titles and descriptions for.
func (c *Client) Locale() string { return c.locale }

// envelope is the top-level graph response shape.
type envelope struct {
	Data struct {
		Dataset *wireDataset `json:"dataset"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Resolve queries the catalog for one dataset IRI and returns its validated
// descriptor.
//
// Failure modes: ErrNotFound when the catalog has no entry, *ServiceError on
// transport/protocol failure (including graph-level errors), and
// *MalformedMetadataError when the entry cannot form a valid descriptor.
func (c *Client) Resolve(ctx context.Context, iri string) (*DatasetDescriptor, error) {
	if iri == "" {
		return nil, &MalformedMetadataError{IRI: iri, Reason: "empty dataset IRI"}
	}

	query := fmt.Sprintf(queryTemplate, strconv.Quote(iri), c.locale, c.locale)
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("catalog: encode query: %w", err)
	}

	hdr := http.Header{}
	hdr.Set("Content-Type", "application/json")
	hdr.Set("Accept", "application/json")

	resp, err := c.http.Post(ctx, c.endpoint, body, hdr)
	if err != nil {
		return nil, &ServiceError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &ServiceError{Status: resp.StatusCode}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &ServiceError{Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	if len(env.Errors) > 0 {
		msgs := make([]string, 0, len(env.Errors))
		for _, e := range env.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, &ServiceError{Status: resp.StatusCode, Messages: msgs}
	}

	if env.Data.Dataset == nil {
		return nil, fmt.Errorf("resolve %s: %w", iri, ErrNotFound)
	}

	return descriptorFromWire(iri, c.locale, *env.Data.Dataset)
}
