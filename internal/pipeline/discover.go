package pipeline

import (
	"context"
	"fmt"

	"katalog/internal/config"
)

// StreamSummary describes one stream a job would produce, without touching
// its payload.
type StreamSummary struct {
	Name       string         `json:"name"`
	IRI        string         `json:"iri"`
	Title      string         `json:"title"`
	PrimaryKey string         `json:"primary_key,omitempty"`
	Schema     map[string]any `json:"schema"`
}

// Discover resolves every configured dataset and returns the streams the
// job would produce. Only metadata and schema documents are fetched; no
// payload is downloaded. Discovery is sequential and fails on the first
// unresolvable dataset.
func Discover(ctx context.Context, job config.Job) ([]StreamSummary, error) {
	factory := factoryForJob(job)

	out := make([]StreamSummary, 0, len(job.Datasets))
	for _, ds := range job.Datasets {
		st, err := factory.CreateStream(ctx, ds.IRI)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", ds.IRI, err)
		}
		name := st.Name
		if ds.Name != "" {
			name = StreamName(ds.Name)
		}
		out = append(out, StreamSummary{
			Name:       name,
			IRI:        st.Descriptor.IRI,
			Title:      st.Descriptor.Title,
			PrimaryKey: st.PrimaryKey(),
			Schema:     st.Schema(),
		})
	}
	return out, nil
}
