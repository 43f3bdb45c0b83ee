// Package config holds the on-disk job model for the catalog extraction
// tool. A job file fully describes one run; nothing else is read from
// the environment.
//
// Job files are JSON or YAML; the format is chosen by file extension.
//
// Example (trimmed):
//
//	{
//	  "name":    "mestske-datasety",
//	  "catalog": { "endpoint": "https://data.gov.cz/graphql", "locale": "cs" },
//	  "datasets": [
//	    { "iri": "https://data.gov.cz/zdroj/datové-sady/00025593/123" }
//	  ],
//	  "sink":    { "kind": "jsonl", "options": { "path": "-" } },
//	  "runtime": { "batch_size": 500 }
//	}
package config

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Job describes one extraction run: which datasets to pull from which
// catalog, where the records go, and how the run behaves. It is the top-level
// object decoded from a job file.
type Job struct {
	// Name identifies the job; it is used for metrics labeling and for
	// identifying runs in logs.
	Name string `json:"name" yaml:"name"`

	// Catalog points at the metadata service the datasets are resolved
	// against.
	Catalog Catalog `json:"catalog" yaml:"catalog"`

	// Datasets lists the dataset identifiers to extract, in order.
	Datasets []Dataset `json:"datasets" yaml:"datasets"`

	// Sink describes where extracted records are written.
	Sink Sink `json:"sink" yaml:"sink"`

	// Runtime controls batching, concurrency, and failure behavior.
	Runtime Runtime `json:"runtime" yaml:"runtime"`
}

// Catalog configures the graph-query metadata service.
type Catalog struct {
	// Endpoint is the query URL. Empty selects the national catalog default.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Locale selects which language variant of multilingual metadata fields
	// is unwrapped. Empty selects "cs".
	Locale string `json:"locale" yaml:"locale"`

	// TimeoutSeconds bounds every catalog, schema, and payload request.
	// Zero selects the client default.
	TimeoutSeconds int `json:"timeout_seconds" yaml:"timeout_seconds"`

	// UserAgent overrides the HTTP User-Agent header when non-empty.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// Dataset names one dataset to extract.
type Dataset struct {
	// IRI is the dataset identifier in the catalog.
	IRI string `json:"iri" yaml:"iri"`

	// Name optionally overrides the stream name derived from the dataset
	// title. Leave empty to use the derived name.
	Name string `json:"name" yaml:"name"`
}

// Sink selects the destination for extracted records.
type Sink struct {
	// Kind selects the sink implementation registered under that name.
	// Current values: "jsonl", "postgres", "sqlite".
	Kind string `json:"kind" yaml:"kind"`

	// Options is a free-form map interpreted by the selected sink. For
	// "jsonl" typical keys are path (string). For "postgres": dsn, schema,
	// auto_create. For "sqlite": path, auto_create.
	Options Options `json:"options" yaml:"options"`
}

// Runtime controls run behavior shared by all sinks.
type Runtime struct {
	// BatchSize is how many records are buffered before a sink write.
	// Non-positive selects the default.
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// Parallelism bounds how many datasets are extracted concurrently.
	// Non-positive selects 1; the run is then strictly sequential.
	Parallelism int `json:"parallelism" yaml:"parallelism"`

	// StateEvery emits a state checkpoint after every N batches. Zero
	// checkpoints only at dataset boundaries.
	StateEvery int `json:"state_every" yaml:"state_every"`

	// KeepGoing continues with the remaining datasets after one fails
	// instead of aborting the run.
	KeepGoing bool `json:"keep_going" yaml:"keep_going"`

	// SkipBadRows drops rows that fail type casting or field-count checks
	// instead of aborting the dataset. Skipped rows are counted and logged.
	SkipBadRows bool `json:"skip_bad_rows" yaml:"skip_bad_rows"`
}

// Options carries sink-specific settings as a free-form map. The typed
// getters coerce loosely and fall back to the given default when a key
// is absent or has the wrong type, so sinks can read their knobs without
// a decoding pass of their own.
type Options map[string]any

// String returns the string at key, or def.
func (o Options) String(key, def string) string {
	if s, ok := o[key].(string); ok {
		return s
	}
	return def
}

// Bool returns the bool at key, or def.
func (o Options) Bool(key string, def bool) bool {
	if b, ok := o[key].(bool); ok {
		return b
	}
	return def
}

// Int returns the integer at key, or def. JSON decodes numbers to
// float64 and YAML to int; both shapes are accepted.
func (o Options) Int(key string, def int) int {
	switch n := o[key].(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return def
}

// StringSlice returns the string elements of the list at key. Non-string
// elements are dropped; a missing or non-list value yields nil.
func (o Options) StringSlice(key string) []string {
	list, ok := o[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Any returns the raw value at key, or nil.
func (o Options) Any(key string) any { return o[key] }

// UnmarshalJSON decodes a missing or null options object to a non-nil
// empty map so call sites never need a nil check.
func (o *Options) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*o = m
	return nil
}

// UnmarshalYAML mirrors UnmarshalJSON for YAML job files.
func (o *Options) UnmarshalYAML(value *yaml.Node) error {
	var m map[string]any
	if err := value.Decode(&m); err != nil {
		return err
	}
	if m == nil {
		m = map[string]any{}
	}
	*o = m
	return nil
}
