// Job linting. ValidateJob returns findings instead of failing fast so a
// CLI can print every problem in one pass.
package config

import (
	"fmt"
	"net/url"
	"strings"
)

// IssueSeverity grades a finding.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is one finding. Path is a dotted path into the job file, e.g.
// "sink.kind" or "datasets[1].iri".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error lets a single Issue travel as an error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

type issues []Issue

func (is *issues) errf(path, format string, a ...any) {
	*is = append(*is, Issue{Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, a...)})
}

func (is *issues) warnf(path, format string, a ...any) {
	*is = append(*is, Issue{Severity: SeverityWarning, Path: path, Message: fmt.Sprintf(format, a...)})
}

// ValidateJob statically checks a decoded Job and returns every finding.
// The job is not mutated; callers decide whether warnings are fatal.
func ValidateJob(j Job) []Issue {
	var is issues

	if strings.TrimSpace(j.Name) == "" {
		is.errf("name", "name must not be empty; it is used for metrics labeling and identifying runs")
	}
	is.checkCatalog(j.Catalog)
	is.checkDatasets(j.Datasets)
	is.checkSink(j.Sink)
	is.checkRuntime(j.Runtime)

	return is
}

func (is *issues) checkCatalog(c Catalog) {
	if c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		if err != nil || !u.IsAbs() || u.Host == "" {
			is.errf("catalog.endpoint", "endpoint %q is not an absolute URL", c.Endpoint)
		}
	}

	// The locale is interpolated into the metadata query text, so anything
	// beyond lowercase letters would corrupt the query.
	if c.Locale != "" && !isLocaleToken(c.Locale) {
		is.errf("catalog.locale", "locale %q must consist of lowercase letters only", c.Locale)
	}

	if c.TimeoutSeconds < 0 {
		is.errf("catalog.timeout_seconds", "timeout_seconds must not be negative")
	}
}

func (is *issues) checkDatasets(ds []Dataset) {
	if len(ds) == 0 {
		is.warnf("datasets", "no datasets configured; the run will extract nothing")
		return
	}

	seenIRI := map[string]int{}
	seenName := map[string]int{}
	for i, d := range ds {
		path := fmt.Sprintf("datasets[%d].iri", i)
		if strings.TrimSpace(d.IRI) == "" {
			is.errf(path, "iri must not be empty")
			continue
		}
		if u, err := url.Parse(d.IRI); err != nil || !u.IsAbs() {
			is.warnf(path, "iri %q is not an absolute URL; the catalog is unlikely to resolve it", d.IRI)
		}
		if prev, ok := seenIRI[d.IRI]; ok {
			is.warnf(path, "duplicate of datasets[%d]; the dataset will be extracted twice", prev)
		} else {
			seenIRI[d.IRI] = i
		}

		if d.Name == "" {
			continue
		}
		if prev, ok := seenName[d.Name]; ok {
			is.errf(fmt.Sprintf("datasets[%d].name", i),
				"name %q already used by datasets[%d]; stream names must be unique", d.Name, prev)
		} else {
			seenName[d.Name] = i
		}
	}
}

func (is *issues) checkSink(s Sink) {
	if strings.TrimSpace(s.Kind) == "" {
		is.errf("sink.kind", "sink.kind must not be empty")
		return
	}

	switch s.Kind {
	case "jsonl":
		// Path is optional; empty or "-" writes to stdout.
	case "postgres":
		if strings.TrimSpace(s.Options.String("dsn", "")) == "" {
			is.errf("sink.options.dsn", "postgres sink requires a non-empty dsn")
		}
	case "sqlite":
		if strings.TrimSpace(s.Options.String("path", "")) == "" {
			is.errf("sink.options.path", "sqlite sink requires a non-empty path")
		}
	default:
		// Externally registered kinds still run; flag the name in case it
		// is a typo.
		is.warnf("sink.kind", "unknown sink kind %q; ensure a matching sink is registered", s.Kind)
	}
}

func (is *issues) checkRuntime(r Runtime) {
	if r.BatchSize < 0 {
		is.warnf("runtime.batch_size", "batch_size=%d; the default batch size will be used", r.BatchSize)
	}
	if r.Parallelism < 0 {
		is.errf("runtime.parallelism", "parallelism must not be negative")
	}
	if r.StateEvery < 0 {
		is.errf("runtime.state_every", "state_every must not be negative")
	}
}

// isLocaleToken reports whether s is a plain lowercase-letter token.
func isLocaleToken(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
