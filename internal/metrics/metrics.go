// Package metrics records operational counters and timings for extraction
// runs behind a pluggable backend.
//
// The default backend discards everything, so the helpers are always safe
// to call. Concrete backends (Prometheus Pushgateway, Datadog) live in
// subpackages and are installed once at startup via SetBackend; the rest
// of the codebase depends only on this package, mirroring how sinks are
// selected through their registry.
package metrics

import "time"

// Metric names emitted by the helpers below. Backends that predeclare
// their instruments route on these.
const (
	MetricStepTotal    = "katalog_step_total"
	MetricStepDuration = "katalog_step_duration_seconds"
	MetricRecordsTotal = "katalog_records_total"
	MetricBatchesTotal = "katalog_batches_total"
)

// Labels attach string key/value pairs to an observation.
type Labels map[string]string

// Backend is implemented by concrete metric systems.
type Backend interface {
	// IncCounter adds delta to the named counter.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records one sample of a duration-style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush delivers buffered observations; push-style backends need it
	// before the process exits.
	Flush() error
}

type discard struct{}

func (discard) IncCounter(string, float64, Labels)       {}
func (discard) ObserveHistogram(string, float64, Labels) {}
func (discard) Flush() error                             { return nil }

var active Backend = discard{}

// SetBackend installs b as the process-wide backend. A nil b is ignored,
// leaving the current backend in place.
func SetBackend(b Backend) {
	if b != nil {
		active = b
	}
}

// Flush flushes the installed backend.
func Flush() error { return active.Flush() }

// RecordStep counts one pipeline step and observes its duration. The
// status label is "success" unless err is non-nil.
//
// Steps are the per-dataset phases: "resolve", "schema", "stream", "load".
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}
	active.IncCounter(MetricStepTotal, 1, lbls)
	active.ObserveHistogram(MetricStepDuration, d.Seconds(), lbls)
}

// RecordRows counts rows of one kind for a stream. Kinds mirror the
// per-stream summary fields: "extracted", "skipped", "written".
// Non-positive deltas are dropped.
func RecordRows(job, stream, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	active.IncCounter(MetricRecordsTotal, float64(delta), Labels{
		"job":    job,
		"stream": stream,
		"kind":   kind,
	})
}

// RecordBatches counts sink batches flushed for a stream. Non-positive
// deltas are dropped.
func RecordBatches(job, stream string, delta int64) {
	if delta <= 0 {
		return
	}
	active.IncCounter(MetricBatchesTotal, float64(delta), Labels{
		"job":    job,
		"stream": stream,
	})
}
