// Package datadog forwards run metrics to a DogStatsD agent.
//
// The backend renders metrics.Labels as "key:value" tags and emits
// counters and histograms through the official statsd client. Everything
// Datadog-specific stays behind the metrics.Backend interface, so the
// rest of the project can swap backends without changes.
package datadog

import (
	"fmt"
	"sort"

	"katalog/internal/metrics"

	"github.com/DataDog/datadog-go/v5/statsd"
)

// Every emission is sent unsampled; runs are low-volume enough that
// sampling would only distort small counts.
const sampleRate = 1

// Config configures the DogStatsD connection.
type Config struct {
	// Addr is the agent address, e.g. "127.0.0.1:8125" or
	// "unix:///var/run/datadog/dsd.socket".
	Addr string

	// Namespace prefixes every metric name, e.g. "katalog.".
	Namespace string

	// Tags are appended to every emission, e.g. "env:prod".
	Tags []string
}

// Backend emits metrics to a DogStatsD agent.
type Backend struct {
	client *statsd.Client
}

// NewBackend connects a statsd client for cfg. Addr is required.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("datadog: Addr is required")
	}

	var opts []statsd.Option
	if cfg.Namespace != "" {
		opts = append(opts, statsd.WithNamespace(cfg.Namespace))
	}
	if len(cfg.Tags) > 0 {
		opts = append(opts, statsd.WithTags(cfg.Tags))
	}

	c, err := statsd.New(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("datadog: create client: %w", err)
	}
	return &Backend{client: c}, nil
}

// IncCounter emits a Count. DogStatsD counts are integral; fractional
// deltas are truncated.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	b.client.Count(name, int64(delta), tagList(labels), sampleRate)
}

// ObserveHistogram emits a Histogram sample.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	b.client.Histogram(name, value, tagList(labels), sampleRate)
}

// Flush closes the client, which delivers anything still buffered. The
// backend stays installed for the life of the process, so a run flushes
// exactly once on its way out.
func (b *Backend) Flush() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

// tagList renders labels as sorted "key:value" tags so emissions are
// deterministic.
func tagList(lbls metrics.Labels) []string {
	if len(lbls) == 0 {
		return nil
	}
	tags := make([]string, 0, len(lbls))
	for k, v := range lbls {
		tags = append(tags, k+":"+v)
	}
	sort.Strings(tags)
	return tags
}
