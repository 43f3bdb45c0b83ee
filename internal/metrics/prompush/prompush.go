// Package prompush delivers run metrics to a Prometheus Pushgateway.
//
// Extraction runs are batch processes that exit when they finish, so
// instead of exposing a scrape endpoint the backend accumulates
// everything in a private registry and Flush pushes it in one shot,
// grouped under the job name. All Prometheus dependencies stay behind
// metrics.Backend; swapping the backend needs no changes elsewhere.
package prompush

import (
	"fmt"

	"katalog/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// counterSpec pairs a CounterVec with the label keys that fill it, in
// declaration order.
type counterSpec struct {
	vec  *prometheus.CounterVec
	keys []string
}

type summarySpec struct {
	vec  *prometheus.SummaryVec
	keys []string
}

// Backend accumulates counters and summaries locally and pushes them to
// a Pushgateway when flushed.
type Backend struct {
	url string
	job string
	reg *prometheus.Registry

	counters  map[string]counterSpec
	summaries map[string]summarySpec
}

// NewBackend builds a backend that pushes to the Pushgateway at url,
// grouped under job. An empty job falls back to "katalog".
func NewBackend(job, url string) (*Backend, error) {
	if url == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if job == "" {
		job = "katalog"
	}

	reg := prometheus.NewRegistry()
	fac := promauto.With(reg)

	b := &Backend{
		url:       url,
		job:       job,
		reg:       reg,
		counters:  map[string]counterSpec{},
		summaries: map[string]summarySpec{},
	}

	b.counter(fac, metrics.MetricStepTotal,
		"Step executions partitioned by step and status.",
		"step", "status")
	b.counter(fac, metrics.MetricRecordsTotal,
		"Rows handled per stream, partitioned by kind (extracted, skipped, written).",
		"stream", "kind")
	b.counter(fac, metrics.MetricBatchesTotal,
		"Sink batches flushed per stream.",
		"stream")
	b.summary(fac, metrics.MetricStepDuration,
		"Step latency in seconds, partitioned by step and status.",
		"step", "status")

	return b, nil
}

func (b *Backend) counter(fac promauto.Factory, name, help string, keys ...string) {
	b.counters[name] = counterSpec{
		vec:  fac.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, keys),
		keys: keys,
	}
}

func (b *Backend) summary(fac promauto.Factory, name, help string, keys ...string) {
	b.summaries[name] = summarySpec{
		vec: fac.NewSummaryVec(prometheus.SummaryOpts{
			Name:       name,
			Help:       help,
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}, keys),
		keys: keys,
	}
}

// IncCounter routes delta to the predeclared counter for name; unknown
// names are dropped. The "job" label is carried by the push grouping,
// not by the vectors.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	spec, ok := b.counters[name]
	if !ok {
		return
	}
	spec.vec.WithLabelValues(values(labels, spec.keys)...).Add(delta)
}

// ObserveHistogram routes value to the predeclared summary for name;
// unknown names are dropped.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	spec, ok := b.summaries[name]
	if !ok {
		return
	}
	spec.vec.WithLabelValues(values(labels, spec.keys)...).Observe(value)
}

// Flush pushes the accumulated registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.url, b.job).Gatherer(b.reg).Push()
}

// values extracts the label values for keys, in order. Missing keys
// yield empty strings, which Prometheus accepts as label values.
func values(labels metrics.Labels, keys []string) []string {
	vals := make([]string, len(keys))
	for i, k := range keys {
		vals[i] = labels[k]
	}
	return vals
}
