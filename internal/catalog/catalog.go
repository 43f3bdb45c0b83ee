// Package catalog resolves dataset identifiers against the national open
// data catalog's graph query service and returns structured descriptors.
package catalog

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Resolve when the catalog has no entry for the
// requested IRI.
var ErrNotFound = errors.New("catalog: dataset not found")

// ServiceError reports a transport or protocol failure while talking to the
// catalog service: network errors, non-2xx statuses, undecodable responses,
// or graph-level errors carried in the response envelope.
type ServiceError struct {
	Status   int      // HTTP status, 0 when the request never completed
	Messages []string // graph-level error messages, if any
	Err      error    // underlying error, if any
}

func (e *ServiceError) Error() string {
	switch {
	case len(e.Messages) > 0:
		return fmt.Sprintf("catalog: query failed: %s", e.Messages[0])
	case e.Status != 0:
		return fmt.Sprintf("catalog: query failed: status %d", e.Status)
	default:
		return fmt.Sprintf("catalog: query failed: %v", e.Err)
	}
}

func (e *ServiceError) Unwrap() error { return e.Err }

// MalformedMetadataError reports a catalog entry that decoded but cannot be
// turned into a valid descriptor: missing required fields, or a distribution
// count other than exactly one.
type MalformedMetadataError struct {
	IRI    string
	Reason string
}

func (e *MalformedMetadataError) Error() string {
	return fmt.Sprintf("catalog: malformed metadata for %s: %s", e.IRI, e.Reason)
}

// Distribution is one physical representation of a dataset: the payload URL
// and the URL of the machine-readable schema it conforms to.
type Distribution struct {
	AccessURL  string
	ConformsTo string
}

// DatasetDescriptor is the resolved metadata for one dataset. It holds
// exactly one Distribution by construction; multi-distribution entries are
// rejected during resolution, never truncated. Descriptors are plain values:
// built fresh per resolution, immutable afterwards.
type DatasetDescriptor struct {
	IRI           string
	Title         string
	Description   string
	Periodicity   string
	Documentation string
	PartOf        string
	Distribution  Distribution
}

// wireDataset mirrors the graph response shape for one dataset. Title and
// description arrive wrapped in a single-locale envelope.
type wireDataset struct {
	IRI                string             `json:"iri"`
	AccrualPeriodicity string             `json:"accrualPeriodicity"`
	Documentation      string             `json:"documentation"`
	IsPartOf           string             `json:"isPartOf"`
	Distribution       []wireDistribution `json:"distribution"`
	Description        map[string]string  `json:"description"`
	Title              map[string]string  `json:"title"`
}

type wireDistribution struct {
	AccessURL  string `json:"accessURL"`
	ConformsTo string `json:"conformsTo"`
}

// descriptorFromWire validates a decoded catalog entry and constructs the
// descriptor. All invariants are enforced here so that an invalid descriptor
// can never be observed downstream.
func descriptorFromWire(iri, locale string, w wireDataset) (*DatasetDescriptor, error) {
	title, ok := w.Title[locale]
	if !ok || title == "" {
		return nil, &MalformedMetadataError{IRI: iri, Reason: fmt.Sprintf("missing title for locale %q", locale)}
	}
	desc, ok := w.Description[locale]
	if !ok || desc == "" {
		return nil, &MalformedMetadataError{IRI: iri, Reason: fmt.Sprintf("missing description for locale %q", locale)}
	}

	switch n := len(w.Distribution); {
	case n == 0:
		return nil, &MalformedMetadataError{IRI: iri, Reason: "no distribution"}
	case n > 1:
		return nil, &MalformedMetadataError{IRI: iri, Reason: fmt.Sprintf("unsupported distribution count %d", n)}
	}

	dist := w.Distribution[0]
	if dist.AccessURL == "" {
		return nil, &MalformedMetadataError{IRI: iri, Reason: "distribution missing access URL"}
	}
	if dist.ConformsTo == "" {
		return nil, &MalformedMetadataError{IRI: iri, Reason: "distribution missing conforms-to URL"}
	}

	return &DatasetDescriptor{
		IRI:           iri,
		Title:         title,
		Description:   desc,
		Periodicity:   w.AccrualPeriodicity,
		Documentation: w.Documentation,
		PartOf:        w.IsPartOf,
		Distribution: Distribution{
			AccessURL:  dist.AccessURL,
			ConformsTo: dist.ConformsTo,
		},
	}, nil
}
