// Package probe inspects a single catalog dataset without draining its
// payload. It resolves the dataset IRI, fetches the table schema, samples
// the leading payload bytes for dialect detection, and assembles a report
// together with a job skeleton ready for the extraction runner.
package probe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"time"

	"katalog/internal/catalog"
	"katalog/internal/config"
	"katalog/internal/httpclient"
	"katalog/internal/pipeline"
	"katalog/internal/stream"
	"katalog/internal/tableschema"
)

// Options control which dataset is probed and how much payload is sampled.
type Options struct {
	// IRI identifies the dataset in the catalog.
	IRI string

	// Endpoint overrides the catalog query endpoint. Empty selects the
	// public endpoint.
	Endpoint string

	// Locale selects the metadata language variant. Empty selects the
	// default locale.
	Locale string

	// SampleBytes bounds how much of the payload is read for dialect
	// detection. Non-positive selects stream.SampleSize.
	SampleBytes int

	// Timeout bounds each HTTP call. Zero selects the client default.
	Timeout time.Duration

	// UserAgent overrides the HTTP User-Agent header when non-empty.
	UserAgent string

	// SavePath, when non-empty, writes the raw sampled payload bytes to
	// this file. The file is overwritten if it exists.
	SavePath string

	// InsecureSkipVerify disables TLS certificate verification, for
	// endpoints with self-signed certificates.
	InsecureSkipVerify bool
}

// Column is one schema column as it appears in the report.
type Column struct {
	Name     string `json:"name"`
	Title    string `json:"title,omitempty"`
	Datatype string `json:"datatype,omitempty"`
	Kind     string `json:"kind"`
	Required bool   `json:"required,omitempty"`
}

// Report is the probe output. cmd/dsprobe marshals it to stdout as indented
// JSON; the embedded Job is accepted as-is by cmd/katalog after the sink
// options are adjusted.
type Report struct {
	IRI         string `json:"iri"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Stream      string `json:"stream"`
	Periodicity string `json:"periodicity,omitempty"`
	AccessURL   string `json:"access_url"`
	ConformsTo  string `json:"conforms_to"`

	PrimaryKey string   `json:"primary_key,omitempty"`
	Columns    []Column `json:"columns"`

	ContentType string `json:"content_type"`
	SampleBytes int    `json:"sample_bytes"`
	Delimiter   string `json:"delimiter,omitempty"`

	// Warnings list conditions that would trip up a full extraction run,
	// such as a non-CSV content type or an invalid primary key.
	Warnings []string `json:"warnings,omitempty"`

	SavedTo string `json:"saved_to,omitempty"`

	Job config.Job `json:"job"`
}

// Probe resolves opt.IRI, fetches its table schema, and samples the head of
// the payload. At most SampleBytes of the payload are read.
func Probe(ctx context.Context, opt Options) (*Report, error) {
	if opt.IRI == "" {
		return nil, fmt.Errorf("probe: iri must not be empty")
	}
	sampleBytes := opt.SampleBytes
	if sampleBytes <= 0 {
		sampleBytes = stream.SampleSize
	}

	hc := httpclient.New(httpclient.Config{
		Timeout:            opt.Timeout,
		UserAgent:          opt.UserAgent,
		InsecureSkipVerify: opt.InsecureSkipVerify,
	})
	cat := catalog.NewClient(catalog.Config{
		Endpoint: opt.Endpoint,
		Locale:   opt.Locale,
		HTTP:     hc,
	})

	d, err := cat.Resolve(ctx, opt.IRI)
	if err != nil {
		return nil, err
	}
	sch, err := tableschema.Fetch(ctx, hc, d.Distribution.ConformsTo, cat.Locale())
	if err != nil {
		return nil, err
	}

	rep := &Report{
		IRI:         d.IRI,
		Title:       d.Title,
		Description: d.Description,
		Stream:      pipeline.StreamName(d.Title),
		Periodicity: d.Periodicity,
		AccessURL:   d.Distribution.AccessURL,
		ConformsTo:  d.Distribution.ConformsTo,
		PrimaryKey:  sch.PrimaryKey,
	}
	for _, c := range sch.Columns {
		rep.Columns = append(rep.Columns, Column{
			Name:     c.Name,
			Title:    c.Title,
			Datatype: c.Datatype,
			Kind:     c.Kind.String(),
			Required: c.Required,
		})
	}
	if sch.PrimaryKey != "" && !sch.PrimaryKeyValid() {
		rep.Warnings = append(rep.Warnings,
			fmt.Sprintf("declared primary key %q does not name a column", sch.PrimaryKey))
	}

	sample, contentType, truncated, err := peek(ctx, hc, d.Distribution.AccessURL, sampleBytes)
	if err != nil {
		return nil, err
	}
	rep.ContentType = contentType
	rep.SampleBytes = len(sample)

	if mediaType, _, merr := mime.ParseMediaType(contentType); merr != nil || mediaType != "text/csv" {
		rep.Warnings = append(rep.Warnings,
			fmt.Sprintf("payload content type is %q; the streamer accepts only text/csv", contentType))
	}

	if opt.SavePath != "" {
		if err := os.WriteFile(opt.SavePath, sample, 0o644); err != nil {
			return nil, fmt.Errorf("probe: save sample: %w", err)
		}
		rep.SavedTo = opt.SavePath
	}

	// A truncated sample may end mid-row; cut back to the last complete
	// line before detection.
	if truncated {
		if i := bytes.LastIndexByte(sample, '\n'); i > 0 {
			sample = sample[:i]
		}
	}
	dia, derr := stream.DetectDialect(sample)
	if derr != nil {
		rep.Warnings = append(rep.Warnings, derr.Error())
	} else {
		rep.Delimiter = string(dia.Comma)
	}

	rep.Job = jobSkeleton(rep.Stream, opt, d)
	return rep, nil
}

// peek reads at most n leading payload bytes. It returns the sample, the
// raw Content-Type header, and whether the payload continued past the
// sample.
func peek(ctx context.Context, hc *httpclient.Client, url string, n int) ([]byte, string, bool, error) {
	resp, err := hc.Get(ctx, url, nil)
	if err != nil {
		return nil, "", false, fmt.Errorf("probe: sample payload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", false, fmt.Errorf("probe: payload request returned status %d", resp.StatusCode)
	}

	buf := make([]byte, n)
	read, err := io.ReadFull(resp.Body, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, "", false, fmt.Errorf("probe: sample payload: %w", err)
	}
	// A full buffer means the payload may continue past the sample.
	return buf[:read], resp.Header.Get("Content-Type"), read == n, nil
}

// jobSkeleton builds a runnable single-dataset job around the probed
// descriptor. Runtime is left zero so the runner applies its defaults; the
// sink defaults to a JSONL file named after the stream.
func jobSkeleton(name string, opt Options, d *catalog.DatasetDescriptor) config.Job {
	return config.Job{
		Name: name,
		Catalog: config.Catalog{
			Endpoint:       opt.Endpoint,
			Locale:         opt.Locale,
			TimeoutSeconds: int(opt.Timeout / time.Second),
			UserAgent:      opt.UserAgent,
		},
		Datasets: []config.Dataset{{IRI: d.IRI}},
		Sink: config.Sink{
			Kind:    "jsonl",
			Options: config.Options{"path": name + ".jsonl"},
		},
	}
}
