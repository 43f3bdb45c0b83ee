package stream

import (
	"bytes"
	"fmt"
)

// SampleSize is how many leading payload bytes are inspected for dialect
// detection.
const SampleSize = 8192

// Dialect holds the detected delimited-text conventions of a payload.
type Dialect struct {
	Comma rune
}

// DialectError reports that the leading payload sample did not contain
// enough structure to infer a dialect.
type DialectError struct {
	Reason string
}

func (e *DialectError) Error() string {
	return fmt.Sprintf("stream: dialect detection failed: %s", e.Reason)
}

// delimiterCandidates is the closed candidate set, in preference order for
// tie-breaking.
var delimiterCandidates = []rune{',', ';', '\t', '|'}

// DetectDialect infers the field delimiter from a leading sample of the
// payload. A candidate wins outright when it occurs a consistent nonzero
// number of times on every sample line; otherwise a candidate present on
// every line is accepted. Ties resolve by candidate preference order.
func DetectDialect(sample []byte) (Dialect, error) {
	lines := sampleLines(sample)
	if len(lines) == 0 {
		return Dialect{}, &DialectError{Reason: "empty sample"}
	}

	// First pass: uniform count across all lines.
	for _, cand := range delimiterCandidates {
		if hasUniformCount(lines, cand) {
			return Dialect{Comma: cand}, nil
		}
	}

	// Second pass: present on every line, even if counts vary (quoted fields
	// containing the delimiter shift per-line counts).
	for _, cand := range delimiterCandidates {
		if onEveryLine(lines, cand) {
			return Dialect{Comma: cand}, nil
		}
	}

	return Dialect{}, &DialectError{Reason: "no candidate delimiter is consistent across the sample"}
}

// cutSample trims a truncated sample back to its last complete line so a
// partial trailing row does not skew detection. Untruncated samples pass
// through whole.
func cutSample(sample []byte, truncated bool) []byte {
	if !truncated {
		return sample
	}
	if idx := bytes.LastIndexByte(sample, '\n'); idx > 0 {
		return sample[:idx]
	}
	return sample
}

// sampleLines splits the sample into non-empty lines.
func sampleLines(sample []byte) [][]byte {
	raw := bytes.Split(sample, []byte("\n"))
	lines := make([][]byte, 0, len(raw))
	for _, l := range raw {
		l = bytes.TrimSuffix(l, []byte("\r"))
		if len(bytes.TrimSpace(l)) == 0 {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

func hasUniformCount(lines [][]byte, cand rune) bool {
	want := -1
	for _, l := range lines {
		n := bytes.Count(l, []byte(string(cand)))
		if n == 0 {
			return false
		}
		if want == -1 {
			want = n
			continue
		}
		if n != want {
			return false
		}
	}
	return want > 0
}

func onEveryLine(lines [][]byte, cand rune) bool {
	for _, l := range lines {
		if !bytes.ContainsRune(l, cand) {
			return false
		}
	}
	return true
}
