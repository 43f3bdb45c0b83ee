package config

import (
	"strings"
	"testing"
)

func validJob() Job {
	return Job{
		Name: "test-job",
		Catalog: Catalog{
			Endpoint: "https://example.org/graphql",
			Locale:   "cs",
		},
		Datasets: []Dataset{
			{IRI: "https://example.org/dataset/1"},
		},
		Sink: Sink{Kind: "jsonl", Options: Options{}},
	}
}

func findIssue(issues []Issue, sev IssueSeverity, path string) *Issue {
	for i := range issues {
		if issues[i].Severity == sev && issues[i].Path == path {
			return &issues[i]
		}
	}
	return nil
}

func TestValidateJobCleanConfig(t *testing.T) {
	if issues := ValidateJob(validJob()); len(issues) != 0 {
		t.Fatalf("valid job should lint clean, got: %+v", issues)
	}
}

// Each case breaks one thing in an otherwise valid job and expects the
// matching finding.
func TestValidateJobFindings(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Job)
		sev     IssueSeverity
		path    string
		message string
	}{
		{
			name:    "blank name",
			mutate:  func(j *Job) { j.Name = " " },
			sev:     SeverityError,
			path:    "name",
			message: "must not be empty",
		},
		{
			name:    "relative endpoint",
			mutate:  func(j *Job) { j.Catalog.Endpoint = "not a url" },
			sev:     SeverityError,
			path:    "catalog.endpoint",
			message: "not an absolute URL",
		},
		{
			name:    "mixed-case locale",
			mutate:  func(j *Job) { j.Catalog.Locale = "Cs-1" },
			sev:     SeverityError,
			path:    "catalog.locale",
			message: "lowercase letters only",
		},
		{
			name:    "negative timeout",
			mutate:  func(j *Job) { j.Catalog.TimeoutSeconds = -1 },
			sev:     SeverityError,
			path:    "catalog.timeout_seconds",
			message: "must not be negative",
		},
		{
			name:    "no datasets",
			mutate:  func(j *Job) { j.Datasets = nil },
			sev:     SeverityWarning,
			path:    "datasets",
			message: "extract nothing",
		},
		{
			name:    "blank iri",
			mutate:  func(j *Job) { j.Datasets[0].IRI = "  " },
			sev:     SeverityError,
			path:    "datasets[0].iri",
			message: "must not be empty",
		},
		{
			name:    "relative iri",
			mutate:  func(j *Job) { j.Datasets[0].IRI = "dataset/1" },
			sev:     SeverityWarning,
			path:    "datasets[0].iri",
			message: "not an absolute URL",
		},
		{
			name: "duplicate iri",
			mutate: func(j *Job) {
				j.Datasets = append(j.Datasets, Dataset{IRI: j.Datasets[0].IRI})
			},
			sev:     SeverityWarning,
			path:    "datasets[1].iri",
			message: "duplicate of datasets[0]",
		},
		{
			name: "duplicate stream name",
			mutate: func(j *Job) {
				j.Datasets[0].Name = "same"
				j.Datasets = append(j.Datasets, Dataset{
					IRI:  "https://example.org/dataset/2",
					Name: "same",
				})
			},
			sev:     SeverityError,
			path:    "datasets[1].name",
			message: "must be unique",
		},
		{
			name:    "empty sink kind",
			mutate:  func(j *Job) { j.Sink.Kind = "" },
			sev:     SeverityError,
			path:    "sink.kind",
			message: "must not be empty",
		},
		{
			name:    "unknown sink kind",
			mutate:  func(j *Job) { j.Sink.Kind = "kafka" },
			sev:     SeverityWarning,
			path:    "sink.kind",
			message: "unknown sink kind",
		},
		{
			name:    "postgres without dsn",
			mutate:  func(j *Job) { j.Sink.Kind = "postgres" },
			sev:     SeverityError,
			path:    "sink.options.dsn",
			message: "non-empty dsn",
		},
		{
			name:    "sqlite without path",
			mutate:  func(j *Job) { j.Sink.Kind = "sqlite" },
			sev:     SeverityError,
			path:    "sink.options.path",
			message: "non-empty path",
		},
		{
			name:    "negative batch size",
			mutate:  func(j *Job) { j.Runtime.BatchSize = -5 },
			sev:     SeverityWarning,
			path:    "runtime.batch_size",
			message: "default batch size",
		},
		{
			name:    "negative parallelism",
			mutate:  func(j *Job) { j.Runtime.Parallelism = -1 },
			sev:     SeverityError,
			path:    "runtime.parallelism",
			message: "must not be negative",
		},
		{
			name:    "negative state_every",
			mutate:  func(j *Job) { j.Runtime.StateEvery = -1 },
			sev:     SeverityError,
			path:    "runtime.state_every",
			message: "must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := validJob()
			tt.mutate(&job)

			issues := ValidateJob(job)
			iss := findIssue(issues, tt.sev, tt.path)
			if iss == nil {
				t.Fatalf("no %s at %s in: %+v", tt.sev, tt.path, issues)
			}
			if !strings.Contains(iss.Message, tt.message) {
				t.Errorf("message %q does not mention %q", iss.Message, tt.message)
			}
		})
	}
}

func TestIssueError(t *testing.T) {
	iss := Issue{Severity: SeverityError, Path: "sink.kind", Message: "sink.kind must not be empty"}
	want := "error at sink.kind: sink.kind must not be empty"
	if got := iss.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
