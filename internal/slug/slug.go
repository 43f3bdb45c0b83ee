// Package slug converts dataset and column titles into stable lowercase
// ASCII identifiers usable as stream names, record keys, and SQL names.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Make converts arbitrary title text into a lowercase ASCII identifier:
//  1. lowercase
//  2. strip accents (NFD → remove Mn → NFC)
//  3. keep [a-z0-9_]; convert space/dash/dot/slash to underscore; drop others
//  4. fallback to "dataset" if nothing survives
//
// The result is deterministic, and already-slugged input passes through
// unchanged.
func Make(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	// Decompose → remove nonspacing marks (accents) → recompose.
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, _ := transform.String(t, s)

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
			prevUnderscore = false
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.' || r == '/':
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		default:
			// drop anything else
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "dataset"
	}
	return name
}

// Truncate ensures an identifier does not exceed PostgreSQL's 63-character
// limit, keeping the first 10 and last 53 characters when it does.
func Truncate(s string) string {
	if len(s) > 63 {
		return s[:10] + s[len(s)-53:]
	}
	return s
}
